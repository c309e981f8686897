package reconcile

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"finsync/internal/models"
)

func TestTracker_TryReserve(t *testing.T) {
	tr := NewTracker()

	assert.Equal(t, []models.ID{3, 1, 2}, tr.TryReserve(models.TypeMerchant, []models.ID{3, 1, 3, 0, 2}))
	assert.Equal(t, []models.ID{4}, tr.TryReserve(models.TypeMerchant, []models.ID{1, 4}))
	assert.Equal(t, []models.ID{1}, tr.TryReserve(models.TypeProvider, []models.ID{1}))
	assert.Equal(t, []models.ID{1, 2, 3, 4}, tr.InFlight(models.TypeMerchant))

	tr.Release(models.TypeMerchant, []models.ID{1, 3})
	assert.Equal(t, []models.ID{2, 4}, tr.InFlight(models.TypeMerchant))
	assert.False(t, tr.IsInFlight(models.TypeMerchant, 1))
	assert.True(t, tr.IsInFlight(models.TypeProvider, 1))
	assert.Equal(t, []models.ID{1}, tr.TryReserve(models.TypeMerchant, []models.ID{1}))
}

func TestTracker_ConcurrentReserveHasOneWinner(t *testing.T) {
	tr := NewTracker()
	var winners atomic.Int32
	var wg sync.WaitGroup

	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if len(tr.TryReserve(models.TypeTransaction, []models.ID{42})) == 1 {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
