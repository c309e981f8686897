package reconcile

import (
	"context"
	"slices"
	"sync"

	"finsync/internal/models"
)

// Tracker records, per entity type, the IDs with a remote fetch in flight.
// A Tracker is safe for concurrent use; one instance is shared by every
// collection in the process.
type Tracker struct {
	mu   sync.Mutex
	sets map[models.EntityType]map[models.ID]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{sets: make(map[models.EntityType]map[models.ID]struct{})}
}

// TryReserve atomically reserves the ids not already in flight and returns
// them in input order. The caller must fetch exactly the returned IDs and
// Release them afterwards; the others are owned by an earlier caller.
func (t *Tracker) TryReserve(typ models.EntityType, ids []models.ID) []models.ID {
	ids = models.UniqueIDs(ids)

	t.mu.Lock()
	set, ok := t.sets[typ]
	if !ok {
		set = make(map[models.ID]struct{})
		t.sets[typ] = set
	}
	reserved := make([]models.ID, 0, len(ids))
	for _, id := range ids {
		if _, busy := set[id]; busy {
			continue
		}
		set[id] = struct{}{}
		reserved = append(reserved, id)
	}
	t.mu.Unlock()

	record(context.Background(), droppedTotal, typ, len(ids)-len(reserved))
	return reserved
}

// Release ends the reservation of ids, whether their fetch succeeded or not.
func (t *Tracker) Release(typ models.EntityType, ids []models.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.sets[typ]
	for _, id := range ids {
		delete(set, id)
	}
	if len(set) == 0 {
		delete(t.sets, typ)
	}
}

// InFlight returns the reserved IDs of typ in ascending order.
func (t *Tracker) InFlight(typ models.EntityType) []models.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]models.ID, 0, len(t.sets[typ]))
	for id := range t.sets[typ] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IsInFlight reports whether id of typ is reserved.
func (t *Tracker) IsInFlight(typ models.EntityType, id models.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sets[typ][id]
	return ok
}
