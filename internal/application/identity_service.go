package application

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"vstyler/internal/domain"
)

// IdentityResolver は、キャラクター参照画像からDNA記述子を導出するサービスです
// 失敗はログに記録するのみで、空のDNAとして扱います
type IdentityResolver struct {
	client   GenerationClient
	composer *domain.PromptComposer
	metrics  GenerationMetrics
}

// NewIdentityResolver は新しいIdentityResolverインスタンスを作成します
func NewIdentityResolver(client GenerationClient, composer *domain.PromptComposer, metrics GenerationMetrics) *IdentityResolver {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &IdentityResolver{
		client:   client,
		composer: composer,
		metrics:  metrics,
	}
}

// Resolve は、参照画像をまとめて1回のリモート呼び出しで解析し、DNAを返します
// 参照画像がない場合や呼び出しに失敗した場合は空文字を返します
func (r *IdentityResolver) Resolve(ctx context.Context, refs []domain.MediaReference) string {
	if len(refs) == 0 {
		return ""
	}

	request, err := r.composer.ComposeIdentity(refs)
	if err != nil {
		log.Warn().Err(err).Msg("DNA解析リクエストの作成に失敗しました")
		return ""
	}

	start := time.Now()
	dna, err := r.client.ResolveIdentity(ctx, request)
	elapsed := time.Since(start)
	if err != nil {
		r.metrics.RecordIdentity(ctx, false, elapsed)
		log.Warn().Err(err).Int("references", len(refs)).Msg("DNA解析に失敗しました。DNAなしで続行します")
		return ""
	}

	r.metrics.RecordIdentity(ctx, true, elapsed)
	dna = strings.TrimSpace(dna)
	log.Info().Int("references", len(refs)).Int("dna_length", len(dna)).Dur("elapsed", elapsed).Msg("DNA解析が完了しました")
	return dna
}
