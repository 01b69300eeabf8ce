package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const startTimeKey = "telemetry:start"

// GormPlugins returns the gorm plugins for database observability: otelgorm
// spans when tracing is on and Prometheus statement metrics when m is set.
func GormPlugins(tracing bool, m *Metrics, slow time.Duration) []gorm.Plugin {
	var plugins []gorm.Plugin
	if tracing {
		plugins = append(plugins, otelgorm.NewPlugin(
			otelgorm.WithDBName("postgresql"),
			otelgorm.WithoutQueryVariables(),
		))
	}
	if m != nil {
		plugins = append(plugins, &QueryMetricsPlugin{metrics: m, slow: slow})
	}
	return plugins
}

// QueryMetricsPlugin times every statement, feeds the latency histogram and
// flags slow statements on the active span.
type QueryMetricsPlugin struct {
	metrics *Metrics
	slow    time.Duration
}

// Name implements gorm.Plugin
func (p *QueryMetricsPlugin) Name() string {
	return "pdv:query_metrics"
}

// Initialize implements gorm.Plugin
func (p *QueryMetricsPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	name := p.Name()
	for _, err := range []error{
		cb.Create().Before("gorm:create").Register(name+":before_create", start),
		cb.Query().Before("gorm:query").Register(name+":before_query", start),
		cb.Update().Before("gorm:update").Register(name+":before_update", start),
		cb.Delete().Before("gorm:delete").Register(name+":before_delete", start),
		cb.Row().Before("gorm:row").Register(name+":before_row", start),
		cb.Raw().Before("gorm:raw").Register(name+":before_raw", start),

		cb.Create().After("gorm:create").Register(name+":after_create", p.observe("create")),
		cb.Query().After("gorm:query").Register(name+":after_query", p.observe("query")),
		cb.Update().After("gorm:update").Register(name+":after_update", p.observe("update")),
		cb.Delete().After("gorm:delete").Register(name+":after_delete", p.observe("delete")),
		cb.Row().After("gorm:row").Register(name+":after_row", p.observe("row")),
		cb.Raw().After("gorm:raw").Register(name+":after_raw", p.observe("raw")),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func start(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func (p *QueryMetricsPlugin) observe(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		elapsed := time.Since(v.(time.Time))
		failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)
		p.metrics.ObserveQuery(op, db.Statement.Table, failed, elapsed)

		if p.slow <= 0 || elapsed < p.slow || db.Statement.Context == nil {
			return
		}
		span := trace.SpanFromContext(db.Statement.Context)
		if span.IsRecording() {
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.String("db.sql.table", db.Statement.Table),
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
			))
		}
	}
}
