// Package metrics は、生成処理のOpenTelemetry計測を提供します
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"vstyler/internal/domain"
)

// Recorder は、application.GenerationMetrics のOpenTelemetry実装です
type Recorder struct {
	attempts        metric.Int64Counter
	attemptDuration metric.Float64Histogram
	batches         metric.Int64Counter
	batchResults    metric.Int64Histogram
	identities      metric.Int64Counter
	identityLatency metric.Float64Histogram
}

// NewRecorder は、meter から計測器を作成します
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	attempts, err := meter.Int64Counter(
		"vstyler_pose_attempts_total",
		metric.WithDescription("Total pose synthesis attempts"),
	)
	if err != nil {
		return nil, err
	}

	attemptDuration, err := meter.Float64Histogram(
		"vstyler_pose_attempt_duration_seconds",
		metric.WithDescription("Pose synthesis call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	batches, err := meter.Int64Counter(
		"vstyler_batches_total",
		metric.WithDescription("Total generation batches"),
	)
	if err != nil {
		return nil, err
	}

	batchResults, err := meter.Int64Histogram(
		"vstyler_batch_results",
		metric.WithDescription("Successful results per batch"),
	)
	if err != nil {
		return nil, err
	}

	identities, err := meter.Int64Counter(
		"vstyler_identity_resolutions_total",
		metric.WithDescription("Total identity resolution calls"),
	)
	if err != nil {
		return nil, err
	}

	identityLatency, err := meter.Float64Histogram(
		"vstyler_identity_resolution_duration_seconds",
		metric.WithDescription("Identity resolution call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		attempts:        attempts,
		attemptDuration: attemptDuration,
		batches:         batches,
		batchResults:    batchResults,
		identities:      identities,
		identityLatency: identityLatency,
	}, nil
}

// RecordAttempt は、1ポーズ分の試行を記録します
func (r *Recorder) RecordAttempt(ctx context.Context, mode domain.ProcessingMode, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("mode", string(mode)),
		attribute.String("outcome", outcome),
	)
	r.attempts.Add(ctx, 1, attrs)
	r.attemptDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordBatch は、バッチの終了を記録します
func (r *Recorder) RecordBatch(ctx context.Context, report domain.BatchReport) {
	status := "completed"
	switch {
	case report.CredentialPrompt:
		status = "credential_invalid"
	case report.Aborted:
		status = "aborted"
	case len(report.Failures) > 0:
		status = "partial"
	}

	r.batches.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	r.batchResults.Record(ctx, int64(len(report.Results)))
}

// RecordIdentity は、DNA解析の呼び出しを記録します
func (r *Recorder) RecordIdentity(ctx context.Context, ok bool, elapsed time.Duration) {
	status := "success"
	if !ok {
		status = "error"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	r.identities.Add(ctx, 1, attrs)
	r.identityLatency.Record(ctx, elapsed.Seconds(), attrs)
}
