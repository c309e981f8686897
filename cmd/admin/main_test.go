package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		input   string
		want    []models.ID
		wantErr bool
	}{
		{input: "", want: nil},
		{input: "7", want: []models.ID{7}},
		{input: "1, 2,3,", want: []models.ID{1, 2, 3}},
		{input: "1,x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseIDs(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRefreshTargetsCoverEveryCachedType(t *testing.T) {
	for typ := models.TypeProvider; typ <= models.TypeUserTag; typ++ {
		_, ok := refreshTargets[typ]
		assert.True(t, ok, "no refresh target for %s", typ)
	}
}

func TestRefreshEach(t *testing.T) {
	boom := errors.New("remote rejected")

	tests := []struct {
		name       string
		ids        []models.ID
		results    map[models.ID]reconcile.Result
		wantStatus reconcile.Status
		wantErr    error
	}{
		{
			name:       "every id refreshed",
			ids:        []models.ID{1, 2},
			results:    map[models.ID]reconcile.Result{1: reconcile.Saved(1), 2: reconcile.Saved(2)},
			wantStatus: reconcile.StatusSuccess,
		},
		{
			name:       "no data for any id",
			ids:        []models.ID{1, 2},
			results:    map[models.ID]reconcile.Result{1: reconcile.NoData(), 2: reconcile.NoData()},
			wantStatus: reconcile.StatusNoData,
		},
		{
			name:       "failure is reported",
			ids:        []models.ID{1, 2, 3},
			results:    map[models.ID]reconcile.Result{1: reconcile.Saved(1), 2: reconcile.Failed(boom), 3: reconcile.Saved(3)},
			wantStatus: reconcile.StatusError,
			wantErr:    boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called []models.ID
			res := refreshEach(context.Background(), tt.ids, func(ctx context.Context, id models.ID) reconcile.Result {
				called = append(called, id)
				return tt.results[id]
			})

			assert.Equal(t, tt.ids, called)
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			}
		})
	}
}
