package gemini

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vstyler/internal/domain"
	"vstyler/internal/infrastructure/config"

	"google.golang.org/genai"
)

// CredentialProvider は、呼び出しごとに使用するAPIキーを解決するインターフェースです
type CredentialProvider interface {
	Resolve(ctx context.Context) (string, error)
}

// contentGenerator は、genai.Models のうちこのクライアントが使用するメソッドです
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type generatorFactory func(ctx context.Context, apiKey string) (contentGenerator, error)

// newGenAIGenerator は、APIキーからgenaiクライアントを作成します
func newGenAIGenerator(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// GeminiAPIClient は、Gemini APIとの通信を行うクライアントです
// APIキーは呼び出しごとに解決し、キーが変わった場合はクライアントを作り直します
type GeminiAPIClient struct {
	credentials CredentialProvider
	config      config.GeminiConfig
	factory     generatorFactory

	mu        sync.Mutex
	cachedKey string
	cached    contentGenerator
}

// NewGeminiAPIClient は新しいGeminiAPIClientインスタンスを作成します
func NewGeminiAPIClient(credentials CredentialProvider, geminiConfig config.GeminiConfig) *GeminiAPIClient {
	defaults := config.DefaultGeminiConfig()
	if geminiConfig.IdentityModelName == "" {
		geminiConfig.IdentityModelName = defaults.IdentityModelName
	}
	if geminiConfig.ImageModelName == "" {
		geminiConfig.ImageModelName = defaults.ImageModelName
	}

	return &GeminiAPIClient{
		credentials: credentials,
		config:      geminiConfig,
		factory:     newGenAIGenerator,
	}
}

// generator は、現在のAPIキーに対応するクライアントを返します
func (g *GeminiAPIClient) generator(ctx context.Context) (contentGenerator, error) {
	apiKey, err := g.credentials.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cached != nil && g.cachedKey == apiKey {
		return g.cached, nil
	}

	gen, err := g.factory(ctx, apiKey)
	if err != nil {
		return nil, classifyError(fmt.Errorf("Gemini APIクライアントの作成に失敗: %w", err))
	}
	g.cached = gen
	g.cachedKey = apiKey
	return gen, nil
}

// withTimeout は、設定されている場合のみタイムアウト付きのコンテキストを返します
func (g *GeminiAPIClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.config.RequestTimeout > 0 {
		return context.WithTimeout(ctx, g.config.RequestTimeout)
	}
	return ctx, func() {}
}

// ResolveIdentity は、参照画像からキャラクターのDNA記述子を生成します
func (g *GeminiAPIClient) ResolveIdentity(ctx context.Context, request domain.IdentityRequest) (string, error) {
	gen, err := g.generator(ctx)
	if err != nil {
		return "", err
	}

	parts, err := toParts(request.Parts)
	if err != nil {
		return "", err
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := gen.GenerateContent(ctx, g.config.IdentityModelName,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		log.Warn().Err(err).Str("model", g.config.IdentityModelName).Int("parts", len(parts)).Msg("DNA解析のリクエストに失敗しました")
		return "", classifyError(err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}

	log.Debug().
		Str("model", g.config.IdentityModelName).
		Int("parts", len(parts)).
		Dur("elapsed", time.Since(start)).
		Msg("DNA解析のレスポンスを受信しました")
	return text, nil
}

// Synthesize は、合成リクエストから1枚の画像を生成します
// 出力サイズは ImageConfig として渡します
func (g *GeminiAPIClient) Synthesize(ctx context.Context, request domain.SynthesisRequest) (*domain.SynthesizedImage, error) {
	gen, err := g.generator(ctx)
	if err != nil {
		return nil, err
	}

	parts, err := toParts(request.Parts)
	if err != nil {
		return nil, err
	}

	generateConfig := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: string(request.AspectRatio),
			ImageSize:   string(request.ImageSize),
		},
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := gen.GenerateContent(ctx, g.config.ImageModelName,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, generateConfig)
	if err != nil {
		log.Warn().Err(err).Str("model", g.config.ImageModelName).Int("parts", len(parts)).Msg("画像合成のリクエストに失敗しました")
		return nil, classifyError(err)
	}

	image, err := extractImage(resp)
	if err != nil {
		log.Warn().Err(err).Str("model", g.config.ImageModelName).Msg("画像合成のレスポンスに画像が含まれていません")
		return nil, err
	}

	log.Info().
		Str("model", g.config.ImageModelName).
		Int("parts", len(parts)).
		Str("mime_type", image.MimeType).
		Int("bytes", len(image.Data)).
		Dur("elapsed", time.Since(start)).
		Msg("画像合成が完了しました")
	return image, nil
}

// toParts は、リクエストパートをgenaiのパートに変換します
func toParts(in []domain.RequestPart) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(in))
	for _, p := range in {
		if !p.IsMedia() {
			parts = append(parts, genai.NewPartFromText(p.Text))
			continue
		}
		data, err := p.Media.Bytes()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRemoteCallFailed, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, p.Media.EffectiveMimeType()))
	}
	return parts, nil
}
