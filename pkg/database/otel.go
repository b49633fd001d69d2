package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey  = "otel:span"
	startKey = "otel:start_time"
)

var (
	dbQueriesTotal     metric.Int64Counter
	dbQueryDuration    metric.Float64Histogram
	dbTransactionTotal metric.Int64Counter
)

// InitDatabaseMetrics 初始化数据库指标
func InitDatabaseMetrics(meter metric.Meter) error {
	var err error

	dbQueriesTotal, err = meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}

	dbQueryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return err
	}

	dbTransactionTotal, err = meter.Int64Counter(
		"db.transactions.total",
		metric.WithDescription("Total number of database transactions"),
		metric.WithUnit("{transaction}"),
	)
	return err
}

// RecordTransaction 记录事务结果，ApplyCommands 等多语句写入调用
func RecordTransaction(ctx context.Context, name string, err error) {
	if dbTransactionTotal == nil {
		return
	}
	status := "committed"
	if err != nil {
		status = "rolled_back"
	}
	dbTransactionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("db.transaction", name),
		attribute.String("db.status", status),
	))
}

// OTELPlugin GORM OpenTelemetry 插件
type OTELPlugin struct {
	tracer       trace.Tracer
	serviceName  string
	maxSQLLength int
}

func NewOTELPlugin(serviceName string) *OTELPlugin {
	if serviceName == "" {
		serviceName = "modusklar"
	}
	return &OTELPlugin{
		tracer:       otel.Tracer(serviceName + ".gorm"),
		serviceName:  serviceName,
		maxSQLLength: 500,
	}
}

// Name 实现 gorm.Plugin 接口
func (p *OTELPlugin) Name() string {
	return "otel_plugin"
}

// Initialize 为增删改查注册前后回调
func (p *OTELPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	hooks := []struct {
		name     string
		register func(name string, before, after func(*gorm.DB)) error
	}{
		{"query", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Query().Before("gorm:query").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("otel:after_"+name, after)
		}},
		{"create", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Create().Before("gorm:create").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("otel:after_"+name, after)
		}},
		{"update", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Update().Before("gorm:update").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("otel:after_"+name, after)
		}},
		{"delete", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Delete().Before("gorm:delete").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("otel:after_"+name, after)
		}},
		{"raw", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Raw().Before("gorm:raw").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("otel:after_"+name, after)
		}},
	}

	for _, h := range hooks {
		if err := h.register(h.name, p.before(h.name), p.after); err != nil {
			return err
		}
	}
	return nil
}

func (p *OTELPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		attrs := []attribute.KeyValue{
			attribute.String("db.system", db.Dialector.Name()),
			attribute.String("service.name", p.serviceName),
		}
		if table := db.Statement.Table; table != "" {
			attrs = append(attrs, semconv.DBSQLTable(table))
		}

		ctx, span := p.tracer.Start(db.Statement.Context, "db."+operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)
		db.InstanceSet(spanKey, span)
		db.InstanceSet(startKey, time.Now())
		db.Statement.Context = ctx
	}
}

func (p *OTELPlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	sql := db.Statement.SQL.String()
	if len(sql) > p.maxSQLLength {
		sql = sql[:p.maxSQLLength] + "..."
	}
	span.SetAttributes(
		semconv.DBStatement(sql),
		attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
	)

	status := "success"
	switch {
	case db.Error == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(db.Error, gorm.ErrRecordNotFound):
		status = "not_found"
		span.SetStatus(codes.Ok, "record not found")
	default:
		status = "error"
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if dbQueriesTotal == nil {
		return
	}
	var elapsed float64
	if start, ok := db.InstanceGet(startKey); ok {
		if t, ok := start.(time.Time); ok {
			elapsed = time.Since(t).Seconds()
		}
	}
	labels := metric.WithAttributes(
		attribute.String("db.operation", operationOf(sql)),
		attribute.String("db.status", status),
	)
	dbQueriesTotal.Add(db.Statement.Context, 1, labels)
	dbQueryDuration.Record(db.Statement.Context, elapsed, labels)
}

func operationOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
