package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"vstyler/internal/domain"
)

// MinManualKeyLength は、手動入力のAPIキーとして受け付ける最小長（この値を超える必要があります）です
const MinManualKeyLength = 20

// CredentialSource は、現在使用されているAPIキーの取得元です
type CredentialSource string

const (
	CredentialSourceManual CredentialSource = "manual"
	CredentialSourceSystem CredentialSource = "system"
	CredentialSourceNone   CredentialSource = "none"
)

// CredentialStatus は、APIキーの状態です。キーそのものは含みません
type CredentialStatus struct {
	Source    CredentialSource `json:"source"`
	Validated bool             `json:"validated"`
}

// APIKeyApplicationService は、APIキーの解決と管理を行うアプリケーションサービスです
// 手動入力のキーを優先し、なければ環境から与えられたシステムキーを使用します
type APIKeyApplicationService struct {
	repo      domain.CredentialRepository
	systemKey string

	mu        sync.RWMutex
	manualKey string
	validated atomic.Bool
}

// NewAPIKeyApplicationService は新しいAPIKeyApplicationServiceインスタンスを作成します
func NewAPIKeyApplicationService(repo domain.CredentialRepository, systemKey string) *APIKeyApplicationService {
	return &APIKeyApplicationService{
		repo:      repo,
		systemKey: strings.TrimSpace(systemKey),
	}
}

// Bootstrap は、保存済みの手動キーを読み込み、キーが利用可能なら検証済みとして扱います
func (s *APIKeyApplicationService) Bootstrap(ctx context.Context) error {
	key, err := s.repo.GetManualKey(ctx)
	if err != nil {
		return fmt.Errorf("保存済みAPIキーの読み込みに失敗: %w", err)
	}

	key = strings.TrimSpace(key)
	if key != "" && len(key) <= MinManualKeyLength {
		log.Warn().Int("length", len(key)).Msg("保存済みAPIキーが短すぎるため無視します")
		key = ""
	}

	s.mu.Lock()
	s.manualKey = key
	s.mu.Unlock()

	status := s.Status()
	s.validated.Store(status.Source != CredentialSourceNone)

	log.Info().Str("source", string(status.Source)).Msg("APIキーを初期化しました")
	return nil
}

// Resolve は、呼び出しに使用するAPIキーを返します
// どちらのキーも存在しない場合は domain.ErrCredentialInvalid を返します
func (s *APIKeyApplicationService) Resolve(ctx context.Context) (string, error) {
	s.mu.RLock()
	manual := s.manualKey
	s.mu.RUnlock()

	if manual != "" {
		return manual, nil
	}
	if s.systemKey != "" {
		return s.systemKey, nil
	}
	return "", fmt.Errorf("%w: APIキーが設定されていません", domain.ErrCredentialInvalid)
}

// SetManualKey は、手動入力のAPIキーを検証して保存します
func (s *APIKeyApplicationService) SetManualKey(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("%w: APIキーが空です", domain.ErrValidation)
	}
	if len(apiKey) <= MinManualKeyLength {
		return fmt.Errorf("%w: APIキーが短すぎます", domain.ErrValidation)
	}

	if err := s.repo.SetManualKey(ctx, apiKey); err != nil {
		return fmt.Errorf("APIキーの保存に失敗: %w", err)
	}

	s.mu.Lock()
	s.manualKey = apiKey
	s.mu.Unlock()
	s.validated.Store(true)

	log.Info().Msg("手動入力のAPIキーを設定しました")
	return nil
}

// UseSystemKey は、手動入力のAPIキーを削除し、システムキーに戻します
func (s *APIKeyApplicationService) UseSystemKey(ctx context.Context) error {
	if err := s.repo.ClearManualKey(ctx); err != nil {
		return fmt.Errorf("APIキーの削除に失敗: %w", err)
	}

	s.mu.Lock()
	s.manualKey = ""
	s.mu.Unlock()
	s.validated.Store(s.systemKey != "")

	log.Info().Bool("system_key_available", s.systemKey != "").Msg("システムキーに切り替えました")
	return nil
}

// Invalidate は、検証済みフラグを解除します
func (s *APIKeyApplicationService) Invalidate() {
	if s.validated.Swap(false) {
		log.Warn().Msg("APIキーが無効と判定されました。再入力が必要です")
	}
}

// IsValidated は、APIキーが検証済みかどうかを返します
func (s *APIKeyApplicationService) IsValidated() bool {
	return s.validated.Load()
}

// Status は、APIキーの取得元と検証状態を返します
func (s *APIKeyApplicationService) Status() CredentialStatus {
	s.mu.RLock()
	manual := s.manualKey
	s.mu.RUnlock()

	source := CredentialSourceNone
	switch {
	case manual != "":
		source = CredentialSourceManual
	case s.systemKey != "":
		source = CredentialSourceSystem
	}

	return CredentialStatus{
		Source:    source,
		Validated: s.validated.Load(),
	}
}
