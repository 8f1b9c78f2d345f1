package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vstyler/configs"
	"vstyler/internal/application"
	"vstyler/internal/domain"
	catalogInfra "vstyler/internal/infrastructure/catalog"
	logConfig "vstyler/internal/infrastructure/config"
	"vstyler/internal/infrastructure/gemini"
	"vstyler/internal/infrastructure/metrics"
	"vstyler/internal/infrastructure/settings"
	"vstyler/internal/infrastructure/vault"
	"vstyler/internal/presentation/rest"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 設定を読み込み
	config, err := configs.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("設定の読み込みに失敗")
	}
	setupLogger(config.Log)

	log.Info().Str("addr", config.Server.Addr).Str("data_dir", config.Vault.DataDir).Msg("V-Stylerを起動中...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// カタログを読み込み
	catalog, err := catalogInfra.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("カタログの読み込みに失敗")
	}

	language, err := domain.ParseLanguage(config.Studio.Language)
	if err != nil {
		log.Fatal().Err(err).Msg("言語設定が不正です")
	}

	// リポジトリを作成
	handles := domain.NewHandleRegistry()
	profileStore := vault.NewStore(config.Vault.DataDir, config.Vault.MaxRecordBytes)
	credentialRepo := settings.NewFileCredentialRepository(config.Vault.DataDir)

	// APIキーを初期化
	credentialService := application.NewAPIKeyApplicationService(credentialRepo, config.Gemini.SystemAPIKey)
	if err := credentialService.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("APIキーの初期化に失敗")
	}

	// 計測器を作成
	recorder, err := metrics.NewRecorder(otel.Meter("vstyler"))
	if err != nil {
		log.Fatal().Err(err).Msg("計測器の作成に失敗")
	}

	// Gemini APIクライアントを作成
	geminiClient := gemini.NewGeminiAPIClient(credentialService, config.Gemini)

	// アプリケーションサービスを作成
	composer := domain.NewPromptComposer(domain.NeutralStudioBackground)
	identityResolver := application.NewIdentityResolver(geminiClient, composer, recorder)
	imageService := application.NewImageGenerationService(geminiClient, composer)
	generationService := application.NewGenerationService(imageService, catalog, handles, credentialService, recorder)
	vaultService := application.NewVaultService(profileStore, handles)

	// ローカルストアを初期化してプロフィールを復元
	if err := vaultService.Initialize(ctx); err != nil {
		log.Error().Err(err).Msg("ローカルストアを利用できません。プロフィールの保存は失敗します")
	} else if err := vaultService.Restore(ctx); err != nil {
		log.Error().Err(err).Msg("プロフィールの復元に失敗しました")
	}

	studio := application.NewStudioService(catalog, handles, identityResolver, generationService, vaultService, language)

	// HTTPサーバーを作成
	handler := rest.NewHandler(studio, credentialService, catalog, handles, config.Server.MaxBodyBytes)
	server := &http.Server{
		Addr:              config.Server.Addr,
		Handler:           rest.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTPサーバーを起動しました")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		// 終了シグナルを待機
		<-gctx.Done()
		log.Info().Msg("終了シグナルを受信しました。サーバーを停止中...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("サーバーが異常終了しました")
	}

	log.Info().Msg("サーバーが正常に停止しました。")
}

// setupLogger は、ログレベルと出力形式を設定します
func setupLogger(cfg logConfig.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
