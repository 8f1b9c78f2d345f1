// Package settings は、手動入力されたAPIキーなどのローカル設定をファイルに保存します
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// FileName は、データディレクトリ内の設定ファイル名です
const FileName = "settings.json"

type settingsFile struct {
	CustomAPIKey string `json:"customApiKey,omitempty"`
}

// FileCredentialRepository は、domain.CredentialRepository のファイル実装です
// ファイルは所有者のみ読み書き可能な権限で作成します
type FileCredentialRepository struct {
	path  string
	mutex sync.RWMutex
}

// NewFileCredentialRepository は新しいFileCredentialRepositoryインスタンスを作成します
func NewFileCredentialRepository(dataDir string) *FileCredentialRepository {
	return &FileCredentialRepository{
		path: filepath.Join(dataDir, FileName),
	}
}

// GetManualKey は、保存されているAPIキーを返します。未設定の場合は空文字を返します
func (r *FileCredentialRepository) GetManualKey(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	s, err := r.read()
	if err != nil {
		return "", err
	}
	return s.CustomAPIKey, nil
}

// SetManualKey は、APIキーを保存します
func (r *FileCredentialRepository) SetManualKey(ctx context.Context, apiKey string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, err := r.read()
	if err != nil {
		return err
	}
	s.CustomAPIKey = apiKey
	return r.write(s)
}

// ClearManualKey は、保存されているAPIキーを削除します
func (r *FileCredentialRepository) ClearManualKey(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, err := r.read()
	if err != nil {
		return err
	}
	s.CustomAPIKey = ""
	return r.write(s)
}

func (r *FileCredentialRepository) read() (settingsFile, error) {
	var s settingsFile

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
	}
	return s, nil
}

// write は、一時ファイルに書き込んでから置き換えます
func (r *FileCredentialRepository) write(s settingsFile) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("設定ディレクトリの作成に失敗: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("設定のエンコードに失敗: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("設定ファイルの書き込みに失敗: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("設定ファイルの書き込みに失敗: %w", err)
	}
	return nil
}
