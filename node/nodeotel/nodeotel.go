// Package nodeotel wraps a node.Client with OpenTelemetry tracing and metrics.
//
// Example:
//
//	rc, err := rest.New(url)
//	if err != nil {
//	    return err
//	}
//	c, err := nodeotel.New(ctx, rc, nodeotel.DefaultConfig())
package nodeotel

import (
	"time"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/gostdlib/base/context"
	"github.com/gostdlib/base/telemetry/otel/trace/span"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/node"
	"github.com/bearlytools/chainstate/value"
)

// Config configures the wrapper.
type Config struct {
	// EnableTracing starts a client span per read.
	EnableTracing bool

	// EnableMetrics records read counts and durations.
	EnableMetrics bool

	// MeterProvider is used for metrics. If nil, the meter from the context is used.
	MeterProvider metric.MeterProvider

	// RecordPayloadSize records the size of returned payloads.
	RecordPayloadSize bool
}

// DefaultConfig returns a Config with tracing and metrics enabled.
func DefaultConfig() Config {
	return Config{
		EnableTracing:     true,
		EnableMetrics:     true,
		RecordPayloadSize: true,
	}
}

// Client is a node.Client that traces and measures another node.Client.
type Client struct {
	next node.Client
	cfg  Config

	duration     metric.Float64Histogram
	requestCount metric.Int64Counter
	responseSize metric.Int64Histogram
}

var _ node.Client = (*Client)(nil)

// New wraps next.
func New(ctx context.Context, next node.Client, cfg Config) (*Client, error) {
	if next == nil {
		return nil, errors.New("nodeotel: nil node.Client")
	}
	c := &Client{next: next, cfg: cfg}

	if cfg.EnableMetrics {
		if err := c.initMetrics(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) initMetrics(ctx context.Context) error {
	var meter metric.Meter
	if c.cfg.MeterProvider != nil {
		meter = c.cfg.MeterProvider.Meter("chainstate-node")
	} else {
		meter = context.Meter(ctx)
	}

	var err error

	c.duration, err = meter.Float64Histogram(
		"node.client.duration",
		metric.WithDescription("Duration of node reads in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.requestCount, err = meter.Int64Counter(
		"node.client.request_count",
		metric.WithDescription("Total number of node reads"),
	)
	if err != nil {
		return err
	}

	if c.cfg.RecordPayloadSize {
		c.responseSize, err = meter.Int64Histogram(
			"node.client.response_size",
			metric.WithDescription("Size of node read payloads in bytes"),
			metric.WithUnit("By"),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Resource implements node.Client.Resource.
func (c *Client) Resource(ctx context.Context, addr value.Address, resourceType string) (jsontext.Value, error) {
	return c.observe(ctx, "Resource",
		[]attribute.KeyValue{
			attribute.String("ledger.address", addr.String()),
			attribute.String("move.type", resourceType),
		},
		func(ctx context.Context) (jsontext.Value, error) {
			return c.next.Resource(ctx, addr, resourceType)
		},
	)
}

// TableItem implements node.Client.TableItem.
func (c *Client) TableItem(ctx context.Context, handle value.Address, keyType, valueType string, key jsontext.Value) (jsontext.Value, error) {
	return c.observe(ctx, "TableItem",
		[]attribute.KeyValue{
			attribute.String("ledger.table", handle.String()),
			attribute.String("move.key_type", keyType),
			attribute.String("move.value_type", valueType),
		},
		func(ctx context.Context) (jsontext.Value, error) {
			return c.next.TableItem(ctx, handle, keyType, valueType, key)
		},
	)
}

func (c *Client) observe(ctx context.Context, op string, attrs []attribute.KeyValue, read func(context.Context) (jsontext.Value, error)) (jsontext.Value, error) {
	start := time.Now()

	if c.cfg.EnableTracing {
		var sp span.Span
		ctx, sp = span.New(ctx,
			span.WithName("node."+op),
			span.WithSpanStartOption(trace.WithSpanKind(trace.SpanKindClient)),
		)
		defer sp.End()

		sp.Span.SetAttributes(attrs...)
	}

	resp, err := read(ctx)

	if c.cfg.EnableMetrics {
		status := "ok"
		switch {
		case errors.Is(err, node.ErrNotFound):
			status = "not_found"
		case err != nil:
			status = "error"
		}

		mattrs := metric.WithAttributes(
			attribute.String("node_op", op),
			attribute.String("node_status", status),
		)
		c.duration.Record(ctx, float64(time.Since(start).Milliseconds()), mattrs)
		c.requestCount.Add(ctx, 1, mattrs)

		if c.cfg.RecordPayloadSize && c.responseSize != nil && err == nil {
			c.responseSize.Record(ctx, int64(len(resp)), metric.WithAttributes(attribute.String("node_op", op)))
		}
	}

	// Wrap with errors.E so the span records the failure. A miss is not a failure.
	switch {
	case err == nil:
		return resp, nil
	case errors.Is(err, node.ErrNotFound):
		return nil, errors.E(ctx, errors.CatUser, errors.TypeAbsence, err, errors.WithSuppressTraceErr())
	}
	return nil, errors.E(ctx, errors.CatRemote, errors.TypeTransport, err)
}
