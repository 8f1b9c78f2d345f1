package application

import (
	"context"
	"time"

	"vstyler/internal/domain"
)

// GenerationClient は、リモート生成APIとの通信を行うクライアントのインターフェースです
// 認証情報の解決は実装側で呼び出しごとに行います
type GenerationClient interface {
	// ResolveIdentity は、参照画像からキャラクターのDNA記述子を生成します
	ResolveIdentity(ctx context.Context, request domain.IdentityRequest) (string, error)

	// Synthesize は、合成リクエストから1枚の画像を生成します
	// テキストのみの応答やセーフティブロックは domain.ErrRemoteCallFailed として返します
	Synthesize(ctx context.Context, request domain.SynthesisRequest) (*domain.SynthesizedImage, error)
}

// GenerationMetrics は、生成処理の計測を行うインターフェースです
type GenerationMetrics interface {
	RecordAttempt(ctx context.Context, mode domain.ProcessingMode, outcome string, elapsed time.Duration)
	RecordBatch(ctx context.Context, report domain.BatchReport)
	RecordIdentity(ctx context.Context, ok bool, elapsed time.Duration)
}

// 1ポーズ分の試行結果の分類です
const (
	OutcomeSuccess           = "success"
	OutcomeFailed            = "failed"
	OutcomeCredentialInvalid = "credential_invalid"
)

type noopMetrics struct{}

func (noopMetrics) RecordAttempt(context.Context, domain.ProcessingMode, string, time.Duration) {}
func (noopMetrics) RecordBatch(context.Context, domain.BatchReport)                           {}
func (noopMetrics) RecordIdentity(context.Context, bool, time.Duration)                        {}

// NoopMetrics は、何も記録しないGenerationMetricsを返します
func NoopMetrics() GenerationMetrics {
	return noopMetrics{}
}
