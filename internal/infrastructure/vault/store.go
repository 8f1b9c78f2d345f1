// Package vault は、キャラクタープロフィールをローカルのSQLiteファイルに保存するストアです
package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"vstyler/internal/domain"
)

// DatabaseFileName は、データディレクトリ内のデータベースファイル名です
const DatabaseFileName = "vstyler_vault.db"

const schema = `
CREATE TABLE IF NOT EXISTS model_vault (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	dna             TEXT NOT NULL,
	references_json TEXT NOT NULL,
	timestamp       INTEGER NOT NULL
)`

// storedReference は、永続化される参照画像の形式です。表示用ハンドルは含みません
type storedReference struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
}

// Store は、domain.ProfileRepository のSQLite実装です
// 操作ごとにデータベースを開き、完了時に必ず閉じます
type Store struct {
	path           string
	maxRecordBytes int64
}

// NewStore は新しいStoreインスタンスを作成します
func NewStore(dataDir string, maxRecordBytes int64) *Store {
	return &Store{
		path:           filepath.Join(dataDir, DatabaseFileName),
		maxRecordBytes: maxRecordBytes,
	}
}

// Path は、データベースファイルのパスを返します
func (s *Store) Path() string {
	return s.path
}

// open は、データベースを開いて接続を確認します
func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: データディレクトリを作成できません: %v", domain.ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return db, nil
}

// withTx は、1回の操作をトランザクション内で実行し、接続を閉じます
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("path", s.path).Msg("データベースのクローズに失敗しました")
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: トランザクションを開始できません: %v", domain.ErrStorageUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return classifyWriteError(err)
	}
	return nil
}

// Initialize は、データベースを開き、プロフィールのテーブルが存在しなければ作成します
func (s *Store) Initialize(ctx context.Context) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("%w: テーブルを作成できません: %v", domain.ErrStorageUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("path", s.path).Msg("ローカルストアを初期化しました")
	return nil
}

// Save は、表示用ハンドルを除いたプロフィールをIDで上書き保存します
func (s *Store) Save(ctx context.Context, profile domain.CharacterProfile) error {
	refs := make([]storedReference, len(profile.References))
	for i, ref := range profile.References {
		refs[i] = storedReference{Base64: ref.Base64, MimeType: ref.MimeType}
	}
	encoded, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("参照画像のエンコードに失敗: %w", err)
	}

	size := int64(len(encoded) + len(profile.DNA) + len(profile.Name) + len(profile.ID))
	if s.maxRecordBytes > 0 && size > s.maxRecordBytes {
		return fmt.Errorf("%w: プロフィールのサイズ %d バイトが上限 %d バイトを超えています", domain.ErrWriteRejected, size, s.maxRecordBytes)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO model_vault (id, name, dna, references_json, timestamp)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				dna = excluded.dna,
				references_json = excluded.references_json,
				timestamp = excluded.timestamp`,
			profile.ID, profile.Name, profile.DNA, string(encoded), profile.Timestamp)
		if err != nil {
			return classifyWriteError(err)
		}
		return nil
	})
}

// ListAll は、保存されているすべてのプロフィールを返します
func (s *Store) ListAll(ctx context.Context) ([]domain.CharacterProfile, error) {
	var profiles []domain.CharacterProfile

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, name, dna, references_json, timestamp FROM model_vault`)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		defer rows.Close()

		for rows.Next() {
			profile, err := scanProfile(rows)
			if err != nil {
				return err
			}
			profiles = append(profiles, profile)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// DeleteByID は、プロフィールを削除します。存在しない場合は何もしません
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM model_vault WHERE id = ?`, id); err != nil {
			return classifyWriteError(err)
		}
		return nil
	})
}

func scanProfile(rows *sql.Rows) (domain.CharacterProfile, error) {
	var (
		profile domain.CharacterProfile
		encoded string
	)
	if err := rows.Scan(&profile.ID, &profile.Name, &profile.DNA, &encoded, &profile.Timestamp); err != nil {
		return domain.CharacterProfile{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	var refs []storedReference
	if err := json.Unmarshal([]byte(encoded), &refs); err != nil {
		return domain.CharacterProfile{}, fmt.Errorf("プロフィール %s の参照画像を読み込めません: %w", profile.ID, err)
	}
	profile.References = make([]domain.MediaReference, len(refs))
	for i, ref := range refs {
		profile.References[i] = domain.MediaReference{Base64: ref.Base64, MimeType: ref.MimeType}
	}
	return profile, nil
}

// classifyWriteError は、容量超過を domain.ErrWriteRejected に、それ以外を domain.ErrStorageUnavailable に分類します
func classifyWriteError(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_FULL, sqlite3.SQLITE_TOOBIG:
			return fmt.Errorf("%w: %v", domain.ErrWriteRejected, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
