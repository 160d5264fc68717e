// Package observability exposes the service's Prometheus metrics through
// the OpenTelemetry metrics SDK.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the service instruments. The zero value is a safe no-op,
// which is what a disabled metrics config produces.
type Metrics struct {
	queryDuration metric.Float64Histogram
	queryTotal    metric.Int64Counter
	queryErrors   metric.Int64Counter

	llmDuration metric.Float64Histogram
	llmErrors   metric.Int64Counter

	toolDuration metric.Float64Histogram
	toolTotal    metric.Int64Counter
	toolErrors   metric.Int64Counter

	retrievalTotal metric.Int64Counter
	corpusReloads  metric.Int64Counter

	httpDuration metric.Float64Histogram
	httpTotal    metric.Int64Counter
}

// Init wires the OpenTelemetry meter to the default Prometheus registry.
// The resulting metrics surface through promhttp on /metrics.
func Init(enabled bool) (*Metrics, error) {
	if !enabled {
		return &Metrics{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)).Meter("parley")

	m := &Metrics{}

	if m.queryDuration, err = meter.Float64Histogram(
		"parley_query_duration_seconds",
		metric.WithDescription("End-to-end query duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create query duration histogram: %w", err)
	}
	if m.queryTotal, err = meter.Int64Counter(
		"parley_queries_total",
		metric.WithDescription("Total queries processed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create query counter: %w", err)
	}
	if m.queryErrors, err = meter.Int64Counter(
		"parley_query_errors_total",
		metric.WithDescription("Total failed queries"),
	); err != nil {
		return nil, fmt.Errorf("failed to create query error counter: %w", err)
	}
	if m.llmDuration, err = meter.Float64Histogram(
		"parley_llm_request_duration_seconds",
		metric.WithDescription("Generation backend request duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}
	if m.llmErrors, err = meter.Int64Counter(
		"parley_llm_errors_total",
		metric.WithDescription("Total generation backend errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm error counter: %w", err)
	}
	if m.toolDuration, err = meter.Float64Histogram(
		"parley_tool_execution_duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tool duration histogram: %w", err)
	}
	if m.toolTotal, err = meter.Int64Counter(
		"parley_tool_calls_total",
		metric.WithDescription("Total tool calls"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tool counter: %w", err)
	}
	if m.toolErrors, err = meter.Int64Counter(
		"parley_tool_errors_total",
		metric.WithDescription("Total failed tool calls"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tool error counter: %w", err)
	}
	if m.retrievalTotal, err = meter.Int64Counter(
		"parley_retrievals_total",
		metric.WithDescription("Total passage retrievals by mode"),
	); err != nil {
		return nil, fmt.Errorf("failed to create retrieval counter: %w", err)
	}
	if m.corpusReloads, err = meter.Int64Counter(
		"parley_corpus_reloads_total",
		metric.WithDescription("Total corpus reloads"),
	); err != nil {
		return nil, fmt.Errorf("failed to create reload counter: %w", err)
	}
	if m.httpDuration, err = meter.Float64Histogram(
		"parley_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}
	if m.httpTotal, err = meter.Int64Counter(
		"parley_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordQuery(ctx context.Context, duration time.Duration, err error) {
	if m == nil || m.queryTotal == nil {
		return
	}
	m.queryTotal.Add(ctx, 1)
	m.queryDuration.Record(ctx, duration.Seconds())
	if err != nil {
		m.queryErrors.Add(ctx, 1)
	}
}

func (m *Metrics) RecordLLMRequest(ctx context.Context, model string, duration time.Duration, err error) {
	if m == nil || m.llmDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.llmErrors.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) RecordToolCall(ctx context.Context, tool string, duration time.Duration, success bool) {
	if m == nil || m.toolTotal == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.toolTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
	if !success {
		m.toolErrors.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) RecordRetrieval(ctx context.Context, mode string, passages int) {
	if m == nil || m.retrievalTotal == nil {
		return
	}
	m.retrievalTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Int("passages", passages),
	))
}

func (m *Metrics) RecordCorpusReload(ctx context.Context, mode string) {
	if m == nil || m.corpusReloads == nil {
		return
	}
	m.corpusReloads.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil || m.httpTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)
	m.httpTotal.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
}
