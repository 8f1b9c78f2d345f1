package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"vstyler/internal/domain"
	"vstyler/internal/infrastructure/config"

	"github.com/joho/godotenv"
)

// Config は、アプリケーション全体の設定を定義します
type Config struct {
	Gemini config.GeminiConfig
	Vault  config.VaultConfig
	Server config.ServerConfig
	Studio config.StudioConfig
	Log    config.LogConfig
}

// LoadConfig は、環境変数から設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルを読み込み（ファイルが存在しない場合は無視）
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "警告: .envファイルの読み込みに失敗しました: %v\n", err)
	}

	defaults := config.DefaultGeminiConfig()

	config := &Config{
		Gemini: config.GeminiConfig{
			SystemAPIKey:      getEnvOrDefault("GEMINI_API_KEY", os.Getenv("API_KEY")),
			IdentityModelName: getEnvOrDefault("GEMINI_IDENTITY_MODEL", defaults.IdentityModelName),
			ImageModelName:    getEnvOrDefault("GEMINI_IMAGE_MODEL", defaults.ImageModelName),
			RequestTimeout:    getEnvAsDurationOrDefault("GEMINI_REQUEST_TIMEOUT", 0),
		},
		Vault: config.VaultConfig{
			DataDir:        getEnvOrDefault("VSTYLER_DATA_DIR", "./data"),
			MaxRecordBytes: getEnvAsInt64OrDefault("VSTYLER_VAULT_MAX_RECORD_BYTES", 32<<20),
		},
		Server: config.ServerConfig{
			Addr:            getEnvOrDefault("HTTP_ADDR", ":8080"),
			MaxBodyBytes:    getEnvAsInt64OrDefault("HTTP_MAX_BODY_BYTES", 50<<20),
			ShutdownTimeout: getEnvAsDurationOrDefault("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Studio: config.StudioConfig{
			Language: getEnvOrDefault("VSTYLER_LANGUAGE", string(domain.DefaultLanguage)),
		},
		Log: config.LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	// 必須設定の検証
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate は、設定の妥当性を検証します
// APIキーが未設定であることはエラーにしません（呼び出し時に検出します）
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gemini.IdentityModelName) == "" {
		return fmt.Errorf("GEMINI_IDENTITY_MODEL が設定されていません")
	}

	if strings.TrimSpace(c.Gemini.ImageModelName) == "" {
		return fmt.Errorf("GEMINI_IMAGE_MODEL が設定されていません")
	}

	if c.Gemini.RequestTimeout < 0 {
		return fmt.Errorf("GEMINI_REQUEST_TIMEOUT は0以上である必要があります")
	}

	if strings.TrimSpace(c.Vault.DataDir) == "" {
		return fmt.Errorf("VSTYLER_DATA_DIR が設定されていません")
	}

	if c.Vault.MaxRecordBytes <= 0 {
		return fmt.Errorf("VSTYLER_VAULT_MAX_RECORD_BYTES は正の整数である必要があります")
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("HTTP_MAX_BODY_BYTES は正の整数である必要があります")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT は正の値である必要があります")
	}

	if _, err := domain.ParseLanguage(c.Studio.Language); err != nil {
		return fmt.Errorf("VSTYLER_LANGUAGE が不正です: %s", c.Studio.Language)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT は json または console である必要があります")
	}

	return nil
}

// getEnvOrDefault は、環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64OrDefault は、環境変数を整数として取得し、存在しない場合はデフォルト値を返します
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault は、環境変数を時間として取得し、存在しない場合はデフォルト値を返します
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
