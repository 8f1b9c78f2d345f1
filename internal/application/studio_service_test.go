package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vstyler/internal/domain"
)

type studioFixture struct {
	client  *MockGenerationClient
	repo    *MockProfileRepository
	handles *domain.HandleRegistry
	vault   *VaultService
	studio  *StudioService
}

func newStudioFixture(t *testing.T, repo *MockProfileRepository) *studioFixture {
	t.Helper()
	if repo == nil {
		repo = NewMockProfileRepository()
	}
	f := &studioFixture{
		client:  &MockGenerationClient{},
		repo:    repo,
		handles: domain.NewHandleRegistry(),
	}
	composer := domain.NewPromptComposer("")
	catalog := newTestCatalog()
	identity := NewIdentityResolver(f.client, composer, nil)
	images := NewImageGenerationService(f.client, composer)
	generation := NewGenerationService(images, catalog, f.handles, &mockInvalidator{}, nil)

	f.vault = NewVaultService(repo, f.handles)
	require.NoError(t, f.vault.Initialize(context.Background()))
	require.NoError(t, f.vault.Restore(context.Background()))
	f.studio = NewStudioService(catalog, f.handles, identity, generation, f.vault, domain.LanguageEnglish)
	return f
}

func (f *studioFixture) addCharacter(t *testing.T, payloads ...string) SessionSnapshot {
	t.Helper()
	var snap SessionSnapshot
	for _, p := range payloads {
		var err error
		snap, err = f.studio.AddCharacterReference(context.Background(), media(p))
		require.NoError(t, err)
	}
	return snap
}

func TestStudio_AddCharacterReferenceResolvesDNA(t *testing.T) {
	f := newStudioFixture(t, nil)

	snap := f.addCharacter(t, "face-1", "face-2")

	assert.Equal(t, "oval face, warm undertone", snap.DNA)
	assert.False(t, snap.AnalyzingDNA)
	require.Len(t, snap.CharacterReferences, 2)
	assert.NotEmpty(t, snap.CharacterReferences[0].URL)

	// 追加のたびにすべての参照画像で再解析する
	calls := f.client.IdentityCalls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[1].Parts, 4)
}

func TestStudio_CharacterReferenceLimit(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.addCharacter(t, "1", "2", "3", "4")

	_, err := f.studio.AddCharacterReference(context.Background(), media("5"))
	assert.ErrorIs(t, err, domain.ErrReferenceLimit)
	assert.Len(t, f.studio.Snapshot().CharacterReferences, 4)
}

func TestStudio_RemoveLastReferenceClearsDNA(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.addCharacter(t, "face")

	snap, err := f.studio.RemoveCharacterReference(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, snap.DNA)
	assert.Empty(t, snap.CharacterReferences)
	assert.Len(t, f.client.IdentityCalls(), 1)

	_, err = f.studio.RemoveCharacterReference(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStudio_StaleIdentityResultIsDiscarded(t *testing.T) {
	f := newStudioFixture(t, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	f.client.identityFn = func(call int) (string, error) {
		if call == 0 {
			close(started)
			<-release
			return "stale", nil
		}
		return "fresh", nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.studio.AddCharacterReference(context.Background(), media("face-1"))
	}()

	<-started
	snap, err := f.studio.AddCharacterReference(context.Background(), media("face-2"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", snap.DNA)

	close(release)
	<-done

	final := f.studio.Snapshot()
	assert.Equal(t, "fresh", final.DNA)
	assert.False(t, final.AnalyzingDNA)
}

func TestStudio_SaveProfileRejectsEmptyName(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.addCharacter(t, "face")

	_, err := f.studio.SaveProfile(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.repo.saves)
	assert.Empty(t, f.studio.Snapshot().ActiveProfileID)
}

func TestStudio_SaveProfileSetsActive(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.addCharacter(t, "face")
	assert.Equal(t, "Elite Model 1", f.studio.Snapshot().SuggestedName)

	summary, err := f.studio.SaveProfile(context.Background(), "Linh")
	require.NoError(t, err)

	assert.Equal(t, 1, f.repo.saves)
	snap := f.studio.Snapshot()
	assert.Equal(t, summary.ID, snap.ActiveProfileID)
	assert.Equal(t, "oval face, warm undertone", snap.DNA)
	assert.Equal(t, "Elite Model 2", snap.SuggestedName)
	assert.Len(t, f.studio.ListProfiles(), 1)

	// 保存済みプロフィールの参照画像は変更できない
	_, err = f.studio.AddCharacterReference(context.Background(), media("other"))
	assert.ErrorIs(t, err, domain.ErrProfileLocked)
	_, err = f.studio.RemoveCharacterReference(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrProfileLocked)
	_, err = f.studio.SaveProfile(context.Background(), "Again")
	assert.ErrorIs(t, err, domain.ErrProfileLocked)
}

func TestStudio_SaveProfileWithoutDNA(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.client.identityFn = func(int) (string, error) { return "", errRemote }
	f.addCharacter(t, "face")

	_, err := f.studio.SaveProfile(context.Background(), "Linh")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.repo.saves)
}

func TestStudio_SaveFailureKeepsSessionUnsaved(t *testing.T) {
	repo := NewMockProfileRepository()
	f := newStudioFixture(t, repo)
	f.addCharacter(t, "face")
	repo.saveErr = domain.ErrWriteRejected

	_, err := f.studio.SaveProfile(context.Background(), "Linh")
	assert.ErrorIs(t, err, domain.ErrWriteRejected)
	assert.Empty(t, f.studio.Snapshot().ActiveProfileID)

	// 失敗後も編集を続けられる
	_, err = f.studio.AddCharacterReference(context.Background(), media("face-2"))
	assert.NoError(t, err)
}

func TestStudio_SaveAndReloadRoundTrip(t *testing.T) {
	repo := NewMockProfileRepository()
	first := newStudioFixture(t, repo)
	before := first.addCharacter(t, "face-1", "face-2")

	summary, err := first.studio.SaveProfile(context.Background(), "Linh")
	require.NoError(t, err)

	// 再起動を想定して同じストアから新しいセッションを作成する
	second := newStudioFixture(t, repo)
	profiles := second.studio.ListProfiles()
	require.Len(t, profiles, 1)
	assert.Equal(t, summary.ID, profiles[0].ID)

	snap, err := second.studio.LoadProfile(summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, snap.ActiveProfileID)
	assert.Equal(t, "oval face, warm undertone", snap.DNA)
	require.Len(t, snap.CharacterReferences, 2)

	for i, view := range snap.CharacterReferences {
		assert.NotEqual(t, before.CharacterReferences[i].URL, view.URL, "表示用ハンドルは再発行されます")

		reloaded, _, ok := second.handles.Resolve(view.URL)
		require.True(t, ok)
		original, _, ok := first.handles.Resolve(before.CharacterReferences[i].URL)
		require.True(t, ok)
		assert.Equal(t, original, reloaded)
	}

	// 読み込み時にDNAを再解析しない
	assert.Empty(t, second.client.IdentityCalls())
}

func TestStudio_LoadUnknownProfile(t *testing.T) {
	f := newStudioFixture(t, nil)
	_, err := f.studio.LoadProfile("brand-404")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestStudio_DeleteActiveProfileClearsSession(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.addCharacter(t, "face")
	summary, err := f.studio.SaveProfile(context.Background(), "Linh")
	require.NoError(t, err)

	require.NoError(t, f.studio.DeleteProfile(context.Background(), summary.ID))

	snap := f.studio.Snapshot()
	assert.Empty(t, snap.ActiveProfileID)
	assert.Empty(t, snap.CharacterReferences)
	assert.Empty(t, snap.DNA)
	assert.Empty(t, f.studio.ListProfiles())
	assert.Zero(t, f.repo.Len())
}

func TestStudio_DeleteInactiveProfileKeepsSession(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.addCharacter(t, "face")
	saved, err := f.studio.SaveProfile(context.Background(), "Linh")
	require.NoError(t, err)

	f.studio.ResetCharacter()
	f.addCharacter(t, "other")
	other, err := f.studio.SaveProfile(context.Background(), "Mai")
	require.NoError(t, err)

	require.NoError(t, f.studio.DeleteProfile(context.Background(), saved.ID))
	assert.Equal(t, other.ID, f.studio.Snapshot().ActiveProfileID)
}

func TestStudio_ResetCharacterReleasesHandles(t *testing.T) {
	f := newStudioFixture(t, nil)
	snap := f.addCharacter(t, "face")
	url := snap.CharacterReferences[0].URL

	reset := f.studio.ResetCharacter()
	assert.Empty(t, reset.CharacterReferences)
	_, _, ok := f.handles.Resolve(url)
	assert.False(t, ok)
}

func TestStudio_GenerateRequiresGarment(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.addCharacter(t, "face")

	_, err := f.studio.Generate(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, f.client.SynthCalls())
}

func TestStudio_GenerateWithoutCharacter(t *testing.T) {
	f := newStudioFixture(t, nil)
	_, err := f.studio.SetGarment(media("dress"))
	require.NoError(t, err)

	_, err = f.studio.Generate(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, f.client.SynthCalls())
}

func TestStudio_Generate(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.addCharacter(t, "face")
	_, err := f.studio.SetGarment(media("dress"))
	require.NoError(t, err)
	_, err = f.studio.SetAccessory(media("bag"))
	require.NoError(t, err)

	atmosphere := "yacht"
	mode := domain.ModeHighExposure
	_, err = f.studio.UpdateOptions(SessionOptions{Atmosphere: &atmosphere, Mode: &mode})
	require.NoError(t, err)

	report, err := f.studio.Generate(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Results, 5)

	snap := f.studio.Snapshot()
	assert.Len(t, snap.Results, 5)
	assert.False(t, snap.Generating)
	assert.Empty(t, snap.Status)
	assert.Equal(t, SessionStatus{Results: 5}, f.studio.Status())

	calls := f.client.SynthCalls()
	require.Len(t, calls, 5)
	assert.Contains(t, calls[0].Directive(), "On a yacht deck")
	assert.Contains(t, calls[0].Directive(), "HIGH-FIDELITY GARMENT TRANSFER")
	assert.Equal(t, 3, calls[0].MediaCount(), "人物・衣装・アクセサリーの3枚")

	// 再生成時は前回の結果を破棄する
	previous := snap.Results[0].ImageURL
	_, err = f.studio.Generate(context.Background())
	require.NoError(t, err)
	_, _, ok := f.handles.Resolve(previous)
	assert.False(t, ok)
	assert.Len(t, f.studio.Snapshot().Results, 5)
}

func TestStudio_GenerateRejectsConcurrentBatch(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.addCharacter(t, "face")
	_, err := f.studio.SetGarment(media("dress"))
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	f.client.synthFn = func(call int) (*domain.SynthesizedImage, error) {
		if call == 0 {
			close(started)
			<-release
		}
		return generatedImage(call), nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.studio.Generate(context.Background())
	}()

	<-started
	status := f.studio.Status()
	assert.True(t, status.Generating)
	assert.Equal(t, "SYNTHESIZING ATMOSPHERE STUDIO... [1/5]", status.Status)

	_, err = f.studio.Generate(context.Background())
	assert.ErrorIs(t, err, domain.ErrBatchInProgress)

	close(release)
	<-done
	assert.False(t, f.studio.Status().Generating)
}

func TestStudio_GenerateSurvivesCallerCancellation(t *testing.T) {
	f := newStudioFixture(t, nil)
	f.addCharacter(t, "face")
	_, err := f.studio.SetGarment(media("dress"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.client.synthFn = func(call int) (*domain.SynthesizedImage, error) {
		if call == 0 {
			cancel()
		}
		return generatedImage(call), nil
	}

	report, err := f.studio.Generate(ctx)
	require.NoError(t, err)

	assert.False(t, report.Aborted)
	assert.Equal(t, 5, report.Attempted)
	assert.Len(t, report.Results, 5)
	assert.Len(t, f.client.SynthCalls(), 5)
	assert.Len(t, f.studio.Snapshot().Results, 5)
}

func TestStudio_IdentitySurvivesCallerCancellation(t *testing.T) {
	f := newStudioFixture(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := f.studio.AddCharacterReference(ctx, media("face"))
	require.NoError(t, err)
	assert.Equal(t, "oval face, warm undertone", snap.DNA)
	assert.False(t, snap.AnalyzingDNA)
}

func TestStudio_UpdateOptions(t *testing.T) {
	f := newStudioFixture(t, nil)

	unknown := "moon"
	_, err := f.studio.UpdateOptions(SessionOptions{Atmosphere: &unknown})
	assert.ErrorIs(t, err, domain.ErrValidation)

	ratio := domain.AspectRatio16x9
	size := domain.ImageSize4K
	lang := domain.LanguageVietnamese
	snap, err := f.studio.UpdateOptions(SessionOptions{AspectRatio: &ratio, ImageSize: &size, Language: &lang})
	require.NoError(t, err)
	assert.Equal(t, domain.AspectRatio16x9, snap.AspectRatio)
	assert.Equal(t, domain.ImageSize4K, snap.ImageSize)
	assert.Equal(t, domain.LanguageVietnamese, snap.Language)
	assert.Equal(t, "studio", snap.Atmosphere)
	assert.Equal(t, domain.ModeStandard, snap.Mode)
	assert.Equal(t, "Người Mẫu Elite 1", snap.SuggestedName)
}

func TestStudio_Slots(t *testing.T) {
	f := newStudioFixture(t, nil)

	snap, err := f.studio.SetGarment(media("dress-1"))
	require.NoError(t, err)
	first := snap.Garment.URL

	snap, err = f.studio.SetGarment(media("dress-2"))
	require.NoError(t, err)
	assert.NotEqual(t, first, snap.Garment.URL)
	_, _, ok := f.handles.Resolve(first)
	assert.False(t, ok, "差し替えた画像のハンドルは解放されます")

	snap, err = f.studio.ClearGarment()
	require.NoError(t, err)
	assert.Nil(t, snap.Garment)

	snap, err = f.studio.SetBackground(media("beach"))
	require.NoError(t, err)
	assert.NotNil(t, snap.Background)
	snap, err = f.studio.ClearBackground()
	require.NoError(t, err)
	assert.Nil(t, snap.Background)

	snap, err = f.studio.ClearAccessory()
	require.NoError(t, err)
	assert.Nil(t, snap.Accessory)
}

func TestStudio_PoseReferences(t *testing.T) {
	f := newStudioFixture(t, nil)
	for i := 0; i < domain.MaxPoseReferences; i++ {
		_, err := f.studio.AddPoseReference(media(string(rune('a' + i))))
		require.NoError(t, err)
	}
	_, err := f.studio.AddPoseReference(media("extra"))
	assert.ErrorIs(t, err, domain.ErrReferenceLimit)

	snap, err := f.studio.RemovePoseReference(1)
	require.NoError(t, err)
	assert.Len(t, snap.PoseReferences, domain.MaxPoseReferences-1)

	_, err = f.studio.RemovePoseReference(10)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
