package reconcile

import (
	"github.com/rs/zerolog"

	"finsync/internal/domain/cache"
	"finsync/internal/models"
)

// Engine holds the state shared by every orchestration service: the stores,
// the ownership graph, one in-flight tracker and the backfill dispatcher.
type Engine struct {
	Stores     *cache.Stores
	Graph      *Graph
	Tracker    *Tracker
	Dispatcher Dispatcher

	PageSize   int
	BatchSize  int
	WindowSize int
	Logger     zerolog.Logger
}

// NewEngine builds an Engine over stores with the ownership graph, a fresh
// tracker and default sizes. A nil dispatcher runs backfills on goroutines.
func NewEngine(stores *cache.Stores, dispatcher Dispatcher, log zerolog.Logger) *Engine {
	if dispatcher == nil {
		dispatcher = NewAsyncDispatcher()
	}
	return &Engine{
		Stores:     stores,
		Graph:      NewOwnershipGraph(stores),
		Tracker:    NewTracker(),
		Dispatcher: dispatcher,
		PageSize:   DefaultPageSize,
		BatchSize:  DefaultBatchSize,
		WindowSize: DefaultPageSize,
		Logger:     log,
	}
}

// Bind returns the collection config of one entity type on e.
func Bind[T any](e *Engine, schema cache.Schema[models.ID, T], store cache.IDStore[T], src Source[T]) CollectionConfig[T] {
	return CollectionConfig[T]{
		Schema:     schema,
		Store:      store,
		Source:     src,
		Tracker:    e.Tracker,
		Graph:      e.Graph,
		PageSize:   e.PageSize,
		BatchSize:  e.BatchSize,
		WindowSize: e.WindowSize,
		Logger:     e.Logger,
	}
}
