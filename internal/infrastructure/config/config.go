package config

import "time"

// GeminiConfig は、Gemini API関連の設定を定義します
type GeminiConfig struct {
	SystemAPIKey      string        // 環境から与えられるAPIキー（任意）
	IdentityModelName string        // DNA解析用モデル名
	ImageModelName    string        // 画像合成用モデル名
	RequestTimeout    time.Duration // 0 の場合はタイムアウトなし
}

// VaultConfig は、ローカルストア関連の設定を定義します
type VaultConfig struct {
	DataDir        string
	MaxRecordBytes int64 // 1プロフィールあたりの書き込み上限
}

// ServerConfig は、HTTPサーバー関連の設定を定義します
type ServerConfig struct {
	Addr            string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// StudioConfig は、スタイリングセッションの設定を定義します
type StudioConfig struct {
	Language string
}

// LogConfig は、ログ出力の設定を定義します
type LogConfig struct {
	Level  string
	Format string // json または console
}

// DefaultGeminiConfig は、デフォルトのGemini設定を返します
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		IdentityModelName: "gemini-2.0-flash-exp",
		ImageModelName:    "gemini-3-pro-image-preview",
	}
}
