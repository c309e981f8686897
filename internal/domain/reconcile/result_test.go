package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"finsync/internal/models"
)

func TestGo_DeliversExactlyOnce(t *testing.T) {
	done := Go(context.Background(), func(ctx context.Context) Result {
		return success(3, 1)
	})

	res, ok := <-done
	assert.True(t, ok)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 3, res.Upserted)

	select {
	case extra := <-done:
		t.Fatalf("unexpected second completion %+v", extra)
	default:
	}
}

func TestGo_PanicBecomesError(t *testing.T) {
	res := <-Go(context.Background(), func(ctx context.Context) Result {
		panic("boom")
	})

	assert.Equal(t, StatusError, res.Status)
	assert.False(t, res.OK())
	assert.ErrorContains(t, res.Err, "boom")
}

func TestResultOf(t *testing.T) {
	assert.Equal(t, StatusNoData, resultOf(Outcome[models.ID]{NoData: true}, nil).Status)

	res := resultOf(Outcome[models.ID]{Upserted: 2, Evicted: []models.ID{9}, Unresolved: []models.ID{4}}, nil)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Evicted)
	assert.Equal(t, []models.ID{4}, res.Missing)
	assert.True(t, res.OK())

	res = resultOf(Outcome[models.ID]{Upserted: 2}, errors.New("x"))
	assert.Equal(t, StatusError, res.Status)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain", errors.New("x"), KindUnknown},
		{"nil", nil, KindUnknown},
		{"direct", &Error{Kind: KindAuthentication, Op: "accounts.list"}, KindAuthentication},
		{"wrapped", fmt.Errorf("refresh: %w", &Error{Kind: KindRemoteRejected, Status: 500}), KindRemoteRejected},
		{"validation", ValidationError("accounts.update", models.ErrConflictingVisibility), KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindRemoteRejected, Op: "merchants.page", Status: 422, Code: "Y800", Message: "invalid cursor"}
	assert.Equal(t, "merchants.page: remote_rejected (status 422, code Y800): invalid cursor", err.Error())

	wrapped := ValidationError("accounts.update", models.ErrConflictingVisibility)
	assert.ErrorIs(t, wrapped, models.ErrConflictingVisibility)
	assert.Equal(t, "accounts.update: validation: "+models.ErrConflictingVisibility.Error(), wrapped.Error())
}

func TestCombine(t *testing.T) {
	assert.Equal(t, StatusNoData, Combine().Status)
	assert.Equal(t, StatusNoData, Combine(NoData(), NoData()).Status)

	res := Combine(success(2, 1), NoData(), success(3, 0))
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 5, res.Upserted)
	assert.Equal(t, 1, res.Evicted)

	boom := errors.New("boom")
	res = Combine(success(1, 0), Failed(boom), success(1, 0))
	assert.ErrorIs(t, res.Err, boom)
}
