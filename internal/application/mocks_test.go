package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vstyler/internal/domain"
)

// MockGenerationClient は、テスト用のモック生成クライアントです
// 呼び出し回数（0始まり）ごとに応答を切り替えられます
type MockGenerationClient struct {
	mu            sync.Mutex
	identityCalls []domain.IdentityRequest
	synthCalls    []domain.SynthesisRequest

	identityFn func(call int) (string, error)
	synthFn    func(call int) (*domain.SynthesizedImage, error)
}

func (m *MockGenerationClient) ResolveIdentity(ctx context.Context, request domain.IdentityRequest) (string, error) {
	m.mu.Lock()
	call := len(m.identityCalls)
	m.identityCalls = append(m.identityCalls, request)
	fn := m.identityFn
	m.mu.Unlock()

	// 実クライアントと同様に、キャンセル済みのコンテキストでは呼び出しに失敗する
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRemoteCallFailed, err)
	}

	if fn == nil {
		return "oval face, warm undertone", nil
	}
	return fn(call)
}

func (m *MockGenerationClient) Synthesize(ctx context.Context, request domain.SynthesisRequest) (*domain.SynthesizedImage, error) {
	m.mu.Lock()
	call := len(m.synthCalls)
	m.synthCalls = append(m.synthCalls, request)
	fn := m.synthFn
	m.mu.Unlock()

	// 実クライアントと同様に、キャンセル済みのコンテキストでは呼び出しに失敗する
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteCallFailed, err)
	}

	if fn == nil {
		return generatedImage(call), nil
	}
	return fn(call)
}

func (m *MockGenerationClient) IdentityCalls() []domain.IdentityRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.IdentityRequest(nil), m.identityCalls...)
}

func (m *MockGenerationClient) SynthCalls() []domain.SynthesisRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SynthesisRequest(nil), m.synthCalls...)
}

func generatedImage(call int) *domain.SynthesizedImage {
	return &domain.SynthesizedImage{Data: []byte(fmt.Sprintf("image-%d", call)), MimeType: "image/png"}
}

// failAt は、指定した呼び出しだけエラーを返す合成関数を作成します
func failAt(index int, err error) func(call int) (*domain.SynthesizedImage, error) {
	return func(call int) (*domain.SynthesizedImage, error) {
		if call == index {
			return nil, err
		}
		return generatedImage(call), nil
	}
}

// MockProfileRepository は、メモリ上でプロフィールを保持するモックリポジトリです
type MockProfileRepository struct {
	mu        sync.Mutex
	records   map[string]domain.CharacterProfile
	saves     int
	saveErr   error
	deleteErr error
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{records: make(map[string]domain.CharacterProfile)}
}

func (m *MockProfileRepository) Initialize(ctx context.Context) error {
	return nil
}

func (m *MockProfileRepository) Save(ctx context.Context, profile domain.CharacterProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records[profile.ID] = profile
	return nil
}

func (m *MockProfileRepository) ListAll(ctx context.Context) ([]domain.CharacterProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CharacterProfile, 0, len(m.records))
	for _, p := range m.records {
		out = append(out, p)
	}
	return out, nil
}

func (m *MockProfileRepository) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.records, id)
	return nil
}

func (m *MockProfileRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// MockCredentialRepository は、テスト用のモック設定リポジトリです
type MockCredentialRepository struct {
	key    string
	getErr error
	setErr error
	writes int
}

func (m *MockCredentialRepository) GetManualKey(ctx context.Context) (string, error) {
	return m.key, m.getErr
}

func (m *MockCredentialRepository) SetManualKey(ctx context.Context, apiKey string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.writes++
	m.key = apiKey
	return nil
}

func (m *MockCredentialRepository) ClearManualKey(ctx context.Context) error {
	m.writes++
	m.key = ""
	return nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) Invalidate() {
	m.calls++
}

// recordingMetrics は、記録された計測値を保持します
type recordingMetrics struct {
	mu         sync.Mutex
	outcomes   []string
	batches    []domain.BatchReport
	identities []bool
}

func (r *recordingMetrics) RecordAttempt(ctx context.Context, mode domain.ProcessingMode, outcome string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingMetrics) RecordBatch(ctx context.Context, report domain.BatchReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, report)
}

func (r *recordingMetrics) RecordIdentity(ctx context.Context, ok bool, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities = append(r.identities, ok)
}

var errRemote = fmt.Errorf("%w: 500 internal", domain.ErrRemoteCallFailed)
var errCredential = fmt.Errorf("%w: 403 permission denied", domain.ErrCredentialInvalid)
var errDisk = errors.New("disk full")

func newTestCatalog() *domain.Catalog {
	return &domain.Catalog{
		Atmospheres: []domain.Atmosphere{
			{ID: "studio", Name: domain.LocalizedText{domain.LanguageEnglish: "Studio"}, Prompt: "Clean studio"},
			{ID: "yacht", Name: domain.LocalizedText{domain.LanguageEnglish: "Super Yacht Deck"}, Prompt: "On a yacht deck"},
		},
		DefaultPoses: map[domain.Language][]string{
			domain.LanguageEnglish:    {"Standing", "Sitting", "Walking", "Turning", "Leaning"},
			domain.LanguageVietnamese: {"Đứng", "Ngồi", "Đi", "Quay", "Nghiêng"},
		},
		Labels: map[domain.Language]domain.Labels{
			domain.LanguageEnglish:    {EliteLook: "Elite Look", GenerationStatus: "SYNTHESIZING ATMOSPHERE", DefaultModelName: "Elite Model"},
			domain.LanguageVietnamese: {EliteLook: "Elite Look", GenerationStatus: "ĐANG TỔNG HỢP", DefaultModelName: "Người Mẫu Elite"},
		},
	}
}

func media(payload string) domain.MediaReference {
	ref, err := domain.NewMediaReferenceFromBytes([]byte(payload), "image/png")
	if err != nil {
		panic(err)
	}
	return ref
}
