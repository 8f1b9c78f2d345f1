package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"vstyler/internal/domain"
)

// MediaView は、画像データを含まない参照画像の表示用情報です
type MediaView struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

func viewOf(ref domain.MediaReference) MediaView {
	return MediaView{URL: ref.URL, MimeType: ref.EffectiveMimeType()}
}

func viewsOf(refs []domain.MediaReference) []MediaView {
	out := make([]MediaView, len(refs))
	for i, ref := range refs {
		out[i] = viewOf(ref)
	}
	return out
}

func optionalView(ref *domain.MediaReference) *MediaView {
	if ref == nil {
		return nil
	}
	v := viewOf(*ref)
	return &v
}

// ProfileSummary は、保存済みプロフィールの表示用情報です
type ProfileSummary struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	DNA        string      `json:"dna"`
	References []MediaView `json:"references"`
	Timestamp  int64       `json:"timestamp"`
}

// SummarizeProfile は、プロフィールを表示用情報に変換します
func SummarizeProfile(p domain.CharacterProfile) ProfileSummary {
	return ProfileSummary{
		ID:         p.ID,
		Name:       p.Name,
		DNA:        p.DNA,
		References: viewsOf(p.References),
		Timestamp:  p.Timestamp,
	}
}

// SessionSnapshot は、セッション状態の読み取り専用コピーです
type SessionSnapshot struct {
	ActiveProfileID     string                    `json:"activeProfileId,omitempty"`
	CharacterReferences []MediaView               `json:"characterReferences"`
	DNA                 string                    `json:"dna"`
	AnalyzingDNA        bool                      `json:"analyzingDna"`
	Garment             *MediaView                `json:"garment,omitempty"`
	Accessory           *MediaView                `json:"accessory,omitempty"`
	Background          *MediaView                `json:"background,omitempty"`
	PoseReferences      []MediaView               `json:"poseReferences"`
	Atmosphere          string                    `json:"atmosphere"`
	Mode                domain.ProcessingMode     `json:"mode"`
	AspectRatio         domain.AspectRatio        `json:"aspectRatio"`
	ImageSize           domain.ImageSize          `json:"imageSize"`
	Language            domain.Language           `json:"language"`
	Results             []domain.GenerationResult `json:"results"`
	Generating          bool                      `json:"generating"`
	Status              string                    `json:"status"`
	SuggestedName       string                    `json:"suggestedName"`
}

// SessionStatus は、生成中の進捗情報です
type SessionStatus struct {
	Generating   bool   `json:"generating"`
	AnalyzingDNA bool   `json:"analyzingDna"`
	Status       string `json:"status"`
	Results      int    `json:"results"`
}

// SessionOptions は、セッションの生成オプションの部分更新です。nil のフィールドは変更しません
type SessionOptions struct {
	Atmosphere  *string
	Mode        *domain.ProcessingMode
	AspectRatio *domain.AspectRatio
	ImageSize   *domain.ImageSize
	Language    *domain.Language
}

// StudioService は、1つのスタイリングセッションの状態を管理するサービスです
// キャラクターの識別状態は未保存か読み込み済みのどちらか一方のみを取ります
type StudioService struct {
	catalog    *domain.Catalog
	handles    *domain.HandleRegistry
	identity   *IdentityResolver
	generation *GenerationService
	vault      *VaultService

	mu              sync.Mutex
	state           domain.IdentityState
	identityVersion uint64
	analyzing       bool
	garment         *domain.MediaReference
	accessory       *domain.MediaReference
	background      *domain.MediaReference
	poseRefs        []domain.MediaReference
	atmosphereID    string
	mode            domain.ProcessingMode
	aspectRatio     domain.AspectRatio
	imageSize       domain.ImageSize
	language        domain.Language
	results         []domain.GenerationResult
	generating      bool
	status          string
}

// NewStudioService は新しいStudioServiceインスタンスを作成します
func NewStudioService(
	catalog *domain.Catalog,
	handles *domain.HandleRegistry,
	identity *IdentityResolver,
	generation *GenerationService,
	vault *VaultService,
	language domain.Language,
) *StudioService {
	if language == "" {
		language = domain.DefaultLanguage
	}
	return &StudioService{
		catalog:      catalog,
		handles:      handles,
		identity:     identity,
		generation:   generation,
		vault:        vault,
		state:        domain.UnsavedIdentity{},
		atmosphereID: catalog.DefaultAtmosphere().ID,
		mode:         domain.DefaultProcessingMode,
		aspectRatio:  domain.DefaultAspectRatio,
		imageSize:    domain.DefaultImageSize,
		language:     language,
	}
}

// AddCharacterReference は、未保存のキャラクターに参照画像を追加し、DNAを再解析します
func (s *StudioService) AddCharacterReference(ctx context.Context, ref domain.MediaReference) (SessionSnapshot, error) {
	s.mu.Lock()
	unsaved, ok := s.state.(domain.UnsavedIdentity)
	if !ok {
		s.mu.Unlock()
		return SessionSnapshot{}, fmt.Errorf("%w: 先に新しいモデルを開始してください", domain.ErrProfileLocked)
	}
	if len(unsaved.References) >= domain.MaxCharacterReferences {
		s.mu.Unlock()
		return SessionSnapshot{}, fmt.Errorf("%w: キャラクター画像は最大%d枚です", domain.ErrReferenceLimit, domain.MaxCharacterReferences)
	}

	registered, err := s.handles.Register(ref)
	if err != nil {
		s.mu.Unlock()
		return SessionSnapshot{}, err
	}

	refs := make([]domain.MediaReference, 0, len(unsaved.References)+1)
	refs = append(refs, unsaved.References...)
	refs = append(refs, registered)
	s.state = domain.UnsavedIdentity{References: refs, DNA: unsaved.DNA}
	version := s.beginIdentityChangeLocked()
	s.mu.Unlock()

	return s.resolveIdentity(ctx, version, refs), nil
}

// RemoveCharacterReference は、未保存のキャラクターから参照画像を削除し、DNAを再解析します
func (s *StudioService) RemoveCharacterReference(ctx context.Context, index int) (SessionSnapshot, error) {
	s.mu.Lock()
	unsaved, ok := s.state.(domain.UnsavedIdentity)
	if !ok {
		s.mu.Unlock()
		return SessionSnapshot{}, fmt.Errorf("%w: 保存済みプロフィールの画像は削除できません", domain.ErrProfileLocked)
	}
	if index < 0 || index >= len(unsaved.References) {
		s.mu.Unlock()
		return SessionSnapshot{}, fmt.Errorf("%w: 画像のインデックスが範囲外です: %d", domain.ErrValidation, index)
	}

	removed := unsaved.References[index]
	refs := make([]domain.MediaReference, 0, len(unsaved.References)-1)
	refs = append(refs, unsaved.References[:index]...)
	refs = append(refs, unsaved.References[index+1:]...)
	s.handles.ReleaseAll([]domain.MediaReference{removed})

	s.state = domain.UnsavedIdentity{References: refs, DNA: unsaved.DNA}
	version := s.beginIdentityChangeLocked()
	s.mu.Unlock()

	return s.resolveIdentity(ctx, version, refs), nil
}

// beginIdentityChangeLocked は、参照画像の変更を記録して新しいバージョンを返します
func (s *StudioService) beginIdentityChangeLocked() uint64 {
	s.identityVersion++
	s.analyzing = true
	return s.identityVersion
}

// resolveIdentity は、ロックを保持せずにDNAを解析し、その間に識別状態が変わっていなければ結果を反映します
func (s *StudioService) resolveIdentity(ctx context.Context, version uint64, refs []domain.MediaReference) SessionSnapshot {
	dna := ""
	if len(refs) > 0 {
		dna = s.identity.Resolve(context.WithoutCancel(ctx), refs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if version != s.identityVersion {
		log.Debug().Uint64("version", version).Msg("古いDNA解析結果を破棄しました")
		return s.snapshotLocked()
	}
	s.analyzing = false
	if unsaved, ok := s.state.(domain.UnsavedIdentity); ok {
		s.state = domain.UnsavedIdentity{References: unsaved.References, DNA: dna}
	}
	return s.snapshotLocked()
}

// SetGarment は、衣装画像を設定します
func (s *StudioService) SetGarment(ref domain.MediaReference) (SessionSnapshot, error) {
	return s.replaceSlot(&s.garment, &ref)
}

// ClearGarment は、衣装画像を解除します
func (s *StudioService) ClearGarment() (SessionSnapshot, error) {
	return s.replaceSlot(&s.garment, nil)
}

// SetAccessory は、アクセサリー画像を設定します
func (s *StudioService) SetAccessory(ref domain.MediaReference) (SessionSnapshot, error) {
	return s.replaceSlot(&s.accessory, &ref)
}

// ClearAccessory は、アクセサリー画像を解除します
func (s *StudioService) ClearAccessory() (SessionSnapshot, error) {
	return s.replaceSlot(&s.accessory, nil)
}

// SetBackground は、背景画像を設定します
func (s *StudioService) SetBackground(ref domain.MediaReference) (SessionSnapshot, error) {
	return s.replaceSlot(&s.background, &ref)
}

// ClearBackground は、背景画像を解除します
func (s *StudioService) ClearBackground() (SessionSnapshot, error) {
	return s.replaceSlot(&s.background, nil)
}

func (s *StudioService) replaceSlot(slot **domain.MediaReference, ref *domain.MediaReference) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next *domain.MediaReference
	if ref != nil {
		registered, err := s.handles.Register(*ref)
		if err != nil {
			return SessionSnapshot{}, err
		}
		next = &registered
	}

	if *slot != nil {
		s.handles.ReleaseAll([]domain.MediaReference{**slot})
	}
	*slot = next
	return s.snapshotLocked(), nil
}

// AddPoseReference は、ポーズ画像を追加します
func (s *StudioService) AddPoseReference(ref domain.MediaReference) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.poseRefs) >= domain.MaxPoseReferences {
		return SessionSnapshot{}, fmt.Errorf("%w: ポーズ画像は最大%d枚です", domain.ErrReferenceLimit, domain.MaxPoseReferences)
	}
	registered, err := s.handles.Register(ref)
	if err != nil {
		return SessionSnapshot{}, err
	}
	s.poseRefs = append(s.poseRefs, registered)
	return s.snapshotLocked(), nil
}

// RemovePoseReference は、ポーズ画像を削除します
func (s *StudioService) RemovePoseReference(index int) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.poseRefs) {
		return SessionSnapshot{}, fmt.Errorf("%w: ポーズ画像のインデックスが範囲外です: %d", domain.ErrValidation, index)
	}
	s.handles.ReleaseAll(s.poseRefs[index : index+1])

	refs := make([]domain.MediaReference, 0, len(s.poseRefs)-1)
	refs = append(refs, s.poseRefs[:index]...)
	refs = append(refs, s.poseRefs[index+1:]...)
	s.poseRefs = refs
	return s.snapshotLocked(), nil
}

// UpdateOptions は、雰囲気・処理モード・出力サイズ・言語を更新します
// いずれかが不正な場合は何も変更しません
func (s *StudioService) UpdateOptions(opts SessionOptions) (SessionSnapshot, error) {
	if opts.Atmosphere != nil && !s.catalog.HasAtmosphere(*opts.Atmosphere) {
		return SessionSnapshot{}, fmt.Errorf("%w: 未知の雰囲気です: %s", domain.ErrValidation, *opts.Atmosphere)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.Atmosphere != nil {
		s.atmosphereID = *opts.Atmosphere
	}
	if opts.Mode != nil {
		s.mode = *opts.Mode
	}
	if opts.AspectRatio != nil {
		s.aspectRatio = *opts.AspectRatio
	}
	if opts.ImageSize != nil {
		s.imageSize = *opts.ImageSize
	}
	if opts.Language != nil {
		s.language = *opts.Language
	}
	return s.snapshotLocked(), nil
}

// SaveProfile は、未保存のキャラクターをプロフィールとして保存し、読み込み済み状態にします
// 書き込みに失敗した場合、セッション状態は変更しません
func (s *StudioService) SaveProfile(ctx context.Context, name string) (ProfileSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unsaved, ok := s.state.(domain.UnsavedIdentity)
	if !ok {
		return ProfileSummary{}, fmt.Errorf("%w: このプロフィールは保存済みです", domain.ErrProfileLocked)
	}
	if s.analyzing {
		return ProfileSummary{}, fmt.Errorf("%w: DNAを解析中です", domain.ErrValidation)
	}

	profile, err := s.vault.Save(ctx, name, unsaved.DNA, unsaved.References)
	if err != nil {
		return ProfileSummary{}, err
	}

	s.identityVersion++
	s.state = domain.LoadedIdentity{Profile: domain.CharacterProfile{
		ID:         profile.ID,
		Name:       profile.Name,
		DNA:        profile.DNA,
		References: unsaved.References,
		Timestamp:  profile.Timestamp,
	}}
	return SummarizeProfile(profile), nil
}

// LoadProfile は、保存済みプロフィールを読み込み、参照画像の表示用ハンドルを再発行します
func (s *StudioService) LoadProfile(id string) (SessionSnapshot, error) {
	profile, err := s.vault.Find(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	refs, err := s.handles.RegisterAll(profile.References)
	if err != nil {
		return SessionSnapshot{}, err
	}
	profile.References = refs

	s.mu.Lock()
	defer s.mu.Unlock()

	s.handles.ReleaseAll(s.state.CharacterReferences())
	s.state = domain.LoadedIdentity{Profile: profile}
	s.identityVersion++
	s.analyzing = false

	log.Info().Str("profile_id", profile.ID).Msg("プロフィールを読み込みました")
	return s.snapshotLocked(), nil
}

// ResetCharacter は、キャラクターの識別状態を未保存の空の状態に戻します
func (s *StudioService) ResetCharacter() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetCharacterLocked()
	return s.snapshotLocked()
}

func (s *StudioService) resetCharacterLocked() {
	s.handles.ReleaseAll(s.state.CharacterReferences())
	s.state = domain.UnsavedIdentity{}
	s.identityVersion++
	s.analyzing = false
}

// DeleteProfile は、プロフィールを削除します。読み込み中のプロフィールであればキャラクターをリセットします
func (s *StudioService) DeleteProfile(ctx context.Context, id string) error {
	if err := s.vault.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if active, ok := domain.ActiveProfileID(s.state); ok && active == id {
		s.resetCharacterLocked()
	}
	return nil
}

// ListProfiles は、保存済みプロフィールを作成時刻順に返します
func (s *StudioService) ListProfiles() []ProfileSummary {
	profiles := s.vault.Profiles()
	out := make([]ProfileSummary, len(profiles))
	for i, p := range profiles {
		out[i] = SummarizeProfile(p)
	}
	return out
}

// Generate は、現在のセッション状態で生成バッチを実行します
// 前回の結果は検証に成功した時点で破棄します
func (s *StudioService) Generate(ctx context.Context) (domain.BatchReport, error) {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return domain.BatchReport{}, domain.ErrBatchInProgress
	}

	input := BatchInput{
		CharacterReferences: s.state.CharacterReferences(),
		DNA:                 s.state.Descriptor(),
		Garment:             s.garment,
		Accessory:           s.accessory,
		Background:          s.background,
		PoseReferences:      append([]domain.MediaReference(nil), s.poseRefs...),
		Atmosphere:          s.catalog.Atmosphere(s.atmosphereID),
		Mode:                s.mode,
		AspectRatio:         s.aspectRatio,
		ImageSize:           s.imageSize,
		Language:            s.language,
	}
	if err := ValidateBatch(input); err != nil {
		s.mu.Unlock()
		return domain.BatchReport{}, err
	}
	if s.analyzing {
		s.mu.Unlock()
		return domain.BatchReport{}, fmt.Errorf("%w: DNAを解析中です", domain.ErrValidation)
	}

	s.releaseResultsLocked()
	s.generating = true
	s.mu.Unlock()

	// クライアントが切断してもバッチは最後まで実行する。結果は Status と Snapshot で取得できる
	report, err := s.generation.RunBatch(context.WithoutCancel(ctx), input, BatchObserver{
		OnStatus: s.setStatus,
		OnResult: s.appendResult,
	})

	s.mu.Lock()
	s.generating = false
	s.status = ""
	s.mu.Unlock()

	return report, err
}

func (s *StudioService) releaseResultsLocked() {
	for _, r := range s.results {
		s.handles.Release(r.ImageURL)
	}
	s.results = nil
}

func (s *StudioService) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *StudioService) appendResult(result domain.GenerationResult) {
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
}

// Snapshot は、現在のセッション状態を返します
func (s *StudioService) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status は、生成中の進捗情報を返します
func (s *StudioService) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatus{
		Generating:   s.generating,
		AnalyzingDNA: s.analyzing,
		Status:       s.status,
		Results:      len(s.results),
	}
}

func (s *StudioService) snapshotLocked() SessionSnapshot {
	snap := SessionSnapshot{
		CharacterReferences: viewsOf(s.state.CharacterReferences()),
		DNA:                 s.state.Descriptor(),
		AnalyzingDNA:        s.analyzing,
		Garment:             optionalView(s.garment),
		Accessory:           optionalView(s.accessory),
		Background:          optionalView(s.background),
		PoseReferences:      viewsOf(s.poseRefs),
		Atmosphere:          s.atmosphereID,
		Mode:                s.mode,
		AspectRatio:         s.aspectRatio,
		ImageSize:           s.imageSize,
		Language:            s.language,
		Results:             append([]domain.GenerationResult{}, s.results...),
		Generating:          s.generating,
		Status:              s.status,
		SuggestedName:       s.catalog.SuggestProfileName(s.language, s.vault.Size()),
	}
	if id, ok := domain.ActiveProfileID(s.state); ok {
		snap.ActiveProfileID = id
	}
	return snap
}
