package reconcile

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"finsync/internal/models"
)

var (
	tracer = otel.Tracer("finsync/reconcile")
	meter  = otel.Meter("finsync/reconcile")

	upsertedTotal, _   = meter.Int64Counter("reconcile.upserted", metric.WithDescription("Rows inserted or replaced by reconciliation"))
	evictedTotal, _    = meter.Int64Counter("reconcile.evicted", metric.WithDescription("Stale rows evicted by reconciliation"))
	unresolvedTotal, _ = meter.Int64Counter("reconcile.unresolved", metric.WithDescription("Requested IDs the remote did not return"))
	cascadeTotal, _    = meter.Int64Counter("reconcile.cascade.deleted", metric.WithDescription("Rows deleted by cascade, per entity type"))
	droppedTotal, _    = meter.Int64Counter("reconcile.inflight.dropped", metric.WithDescription("IDs skipped because a fetch was already in flight"))
	backfillTotal, _   = meter.Int64Counter("reconcile.backfill.total", metric.WithDescription("Missing-reference backfills by status"))
	pageRequests, _    = meter.Int64Counter("reconcile.remote.pages", metric.WithDescription("Remote page requests issued by the fetcher"))
)

func typeAttr(t models.EntityType) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("entity_type", t.String()))
}

func record(ctx context.Context, c metric.Int64Counter, t models.EntityType, n int) {
	if n > 0 {
		c.Add(ctx, int64(n), typeAttr(t))
	}
}
