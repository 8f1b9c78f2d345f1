package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vstyler/internal/domain"
)

// VaultService は、保存済みプロフィールの一覧をメモリに保持し、ストアとの同期を行うサービスです
// メモリ上のプロフィールには表示用ハンドルが発行されています
type VaultService struct {
	repo    domain.ProfileRepository
	handles *domain.HandleRegistry
	now     func() time.Time

	mu       sync.RWMutex
	profiles []domain.CharacterProfile
}

// NewVaultService は新しいVaultServiceインスタンスを作成します
func NewVaultService(repo domain.ProfileRepository, handles *domain.HandleRegistry) *VaultService {
	return &VaultService{
		repo:    repo,
		handles: handles,
		now:     time.Now,
	}
}

// Initialize は、ストアを初期化します
func (s *VaultService) Initialize(ctx context.Context) error {
	if err := s.repo.Initialize(ctx); err != nil {
		return fmt.Errorf("ストアの初期化に失敗: %w", err)
	}
	return nil
}

// Restore は、ストアからすべてのプロフィールを読み込み、表示用ハンドルを再発行します
// プロフィールは作成時刻順に並べます
func (s *VaultService) Restore(ctx context.Context) error {
	stored, err := s.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("プロフィールの読み込みに失敗: %w", err)
	}

	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].Timestamp < stored[j].Timestamp
	})

	restored := make([]domain.CharacterProfile, 0, len(stored))
	for _, profile := range stored {
		refs, err := s.handles.RegisterAll(profile.References)
		if err != nil {
			log.Warn().Err(err).Str("profile_id", profile.ID).Msg("参照画像を復元できないプロフィールをスキップします")
			continue
		}
		profile.References = refs
		restored = append(restored, profile)
	}

	s.mu.Lock()
	old := s.profiles
	s.profiles = restored
	s.mu.Unlock()

	for _, p := range old {
		s.handles.ReleaseAll(p.References)
	}

	log.Info().Int("profiles", len(restored)).Msg("プロフィールを復元しました")
	return nil
}

// Profiles は、保存済みプロフィールのコピーを作成時刻順に返します
func (s *VaultService) Profiles() []domain.CharacterProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CharacterProfile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Size は、保存済みプロフィールの件数を返します
func (s *VaultService) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Find は、IDに対応するプロフィールを返します
func (s *VaultService) Find(id string) (domain.CharacterProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.CharacterProfile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, id)
}

// Save は、新しいプロフィールを作成してストアに書き込みます
// 書き込みに失敗した場合、メモリ上の一覧は変更しません
func (s *VaultService) Save(ctx context.Context, name, dna string, refs []domain.MediaReference) (domain.CharacterProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := domain.NewCharacterProfile(name, dna, refs, s.uniqueTimeLocked())
	if err != nil {
		return domain.CharacterProfile{}, err
	}

	if err := s.repo.Save(ctx, profile.Stripped()); err != nil {
		log.Error().Err(err).Str("profile_id", profile.ID).Msg("プロフィールの保存に失敗しました")
		return domain.CharacterProfile{}, fmt.Errorf("プロフィールの保存に失敗: %w", err)
	}

	registered, err := s.handles.RegisterAll(profile.References)
	if err != nil {
		return domain.CharacterProfile{}, err
	}
	profile.References = registered
	s.profiles = append(s.profiles, profile)

	log.Info().Str("profile_id", profile.ID).Str("name", profile.Name).Int("references", len(refs)).Msg("プロフィールを保存しました")
	return profile, nil
}

// Delete は、プロフィールをストアとメモリから削除し、表示用ハンドルを解放します
// 存在しないIDの削除はエラーになりません
func (s *VaultService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		log.Error().Err(err).Str("profile_id", id).Msg("プロフィールの削除に失敗しました")
		return fmt.Errorf("プロフィールの削除に失敗: %w", err)
	}

	kept := s.profiles[:0]
	for _, p := range s.profiles {
		if p.ID == id {
			s.handles.ReleaseAll(p.References)
			continue
		}
		kept = append(kept, p)
	}
	s.profiles = kept

	log.Info().Str("profile_id", id).Msg("プロフィールを削除しました")
	return nil
}

// uniqueTimeLocked は、既存のIDと衝突しない作成時刻を返します
func (s *VaultService) uniqueTimeLocked() time.Time {
	t := s.now()
	for {
		id := domain.ProfileIDAt(t)
		taken := false
		for _, p := range s.profiles {
			if p.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return t
		}
		t = t.Add(time.Millisecond)
	}
}
