package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"vstyler/internal/domain"
)

// ImageGenerationService は、1ポーズ分のリクエストを組み立てて1回だけリモート呼び出しを行うサービスです
// リトライは行わず、結果またはエラーをそのまま呼び出し元に返します
type ImageGenerationService struct {
	client   GenerationClient
	composer *domain.PromptComposer
}

// NewImageGenerationService は新しいImageGenerationServiceインスタンスを作成します
func NewImageGenerationService(client GenerationClient, composer *domain.PromptComposer) *ImageGenerationService {
	return &ImageGenerationService{
		client:   client,
		composer: composer,
	}
}

// GeneratePose は、入力からリクエストを組み立てて画像を1枚生成します
func (s *ImageGenerationService) GeneratePose(ctx context.Context, input domain.SynthesisInput) (*domain.SynthesizedImage, error) {
	request, err := s.composer.ComposeSynthesis(input)
	if err != nil {
		return nil, fmt.Errorf("合成リクエストの作成に失敗: %w", err)
	}

	log.Debug().
		Str("mode", string(input.Mode)).
		Str("aspect_ratio", string(request.AspectRatio)).
		Str("image_size", string(request.ImageSize)).
		Int("parts", len(request.Parts)).
		Int("images", request.MediaCount()).
		Msg("合成リクエストを送信します")

	return s.client.Synthesize(ctx, request)
}
