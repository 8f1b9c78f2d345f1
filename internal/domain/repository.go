package domain

import "context"

// ProfileRepository は、キャラクタープロフィールを永続化するローカルストアのインターフェースです
type ProfileRepository interface {
	// Initialize は、ストアを開き、プロフィールのコレクションが存在しなければ作成します
	Initialize(ctx context.Context) error

	// Save は、表示ハンドルを除いたプロフィールをIDで上書き保存します
	Save(ctx context.Context, profile CharacterProfile) error

	// ListAll は、保存されているすべてのプロフィールを返します（順序は保証しません）
	ListAll(ctx context.Context) ([]CharacterProfile, error)

	// DeleteByID は、プロフィールを削除します。存在しない場合は何もしません
	DeleteByID(ctx context.Context, id string) error
}

// CredentialRepository は、手動入力されたAPIキーをローカル設定に永続化するインターフェースです
type CredentialRepository interface {
	// GetManualKey は、保存されているAPIキーを返します。未設定の場合は空文字を返します
	GetManualKey(ctx context.Context) (string, error)

	// SetManualKey は、APIキーを保存します
	SetManualKey(ctx context.Context, apiKey string) error

	// ClearManualKey は、保存されているAPIキーを削除します
	ClearManualKey(ctx context.Context) error
}
