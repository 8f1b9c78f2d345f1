package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vstyler/internal/domain"
)

// BatchInput は、生成バッチの入力です
type BatchInput struct {
	CharacterReferences []domain.MediaReference
	DNA                 string
	Garment             *domain.MediaReference
	Accessory           *domain.MediaReference
	Background          *domain.MediaReference
	PoseReferences      []domain.MediaReference
	Atmosphere          domain.Atmosphere
	Mode                domain.ProcessingMode
	AspectRatio         domain.AspectRatio
	ImageSize           domain.ImageSize
	Language            domain.Language
}

// BatchObserver は、バッチの進捗を受け取るコールバックです。nil のフィールドは無視されます
type BatchObserver struct {
	OnStatus func(status string)
	OnResult func(result domain.GenerationResult)
}

func (o BatchObserver) status(s string) {
	if o.OnStatus != nil {
		o.OnStatus(s)
	}
}

func (o BatchObserver) result(r domain.GenerationResult) {
	if o.OnResult != nil {
		o.OnResult(r)
	}
}

// CredentialInvalidator は、APIキーの検証済みフラグを解除するインターフェースです
type CredentialInvalidator interface {
	Invalidate()
}

// GenerationService は、ポーズごとに1回ずつ順番に合成を行うバッチ処理を担当します
// 1ポーズの失敗はそのポーズに閉じ込め、APIキーの無効化のみがバッチを中断します
type GenerationService struct {
	images      *ImageGenerationService
	catalog     *domain.Catalog
	handles     *domain.HandleRegistry
	credentials CredentialInvalidator
	metrics     GenerationMetrics
	newID       func() string
}

// NewGenerationService は新しいGenerationServiceインスタンスを作成します
func NewGenerationService(
	images *ImageGenerationService,
	catalog *domain.Catalog,
	handles *domain.HandleRegistry,
	credentials CredentialInvalidator,
	metrics GenerationMetrics,
) *GenerationService {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &GenerationService{
		images:      images,
		catalog:     catalog,
		handles:     handles,
		credentials: credentials,
		metrics:     metrics,
		newID:       uuid.NewString,
	}
}

// ValidateBatch は、リモート呼び出しを行う前に必須入力を検証します
func ValidateBatch(input BatchInput) error {
	if len(input.CharacterReferences) == 0 {
		return fmt.Errorf("%w: キャラクター画像がありません", domain.ErrValidation)
	}
	if input.Garment == nil {
		return fmt.Errorf("%w: 衣装画像が選択されていません", domain.ErrValidation)
	}
	return nil
}

// RunBatch は、ポーズ計画に従って順番に画像を生成します
// 結果は成功したポーズのみを試行順に含みます。検証エラー以外はエラーを返さず、BatchReport に記録します
// バッチを途中で打ち切るのは ErrCredentialInvalid のみです
func (s *GenerationService) RunBatch(ctx context.Context, input BatchInput, observer BatchObserver) (domain.BatchReport, error) {
	if err := ValidateBatch(input); err != nil {
		return domain.BatchReport{}, err
	}

	poses := domain.PlanPoses(input.PoseReferences, s.catalog.Poses(input.Language))
	labels := s.catalog.Label(input.Language)

	report := domain.BatchReport{
		Results:  make([]domain.GenerationResult, 0, len(poses)),
		Failures: make([]domain.PoseFailure, 0),
		Total:    len(poses),
	}
	defer observer.status("")

	logger := log.With().Str("atmosphere", input.Atmosphere.ID).Str("mode", string(input.Mode)).Int("total", len(poses)).Logger()
	logger.Info().Msg("生成バッチを開始します")

	for i, pose := range poses {
		observer.status(s.catalog.StatusMessage(input.Language, input.Atmosphere, i, len(poses)))
		label := pose.ResultLabel(i, labels.EliteLook)

		start := time.Now()
		image, err := s.images.GeneratePose(ctx, domain.SynthesisInput{
			CharacterReferences: input.CharacterReferences,
			Garment:             input.Garment,
			Accessory:           input.Accessory,
			Background:          input.Background,
			Pose:                pose,
			DNA:                 input.DNA,
			AtmospherePrompt:    input.Atmosphere.Prompt,
			Mode:                input.Mode,
			AspectRatio:         input.AspectRatio,
			ImageSize:           input.ImageSize,
		})
		report.Attempted++

		if err == nil {
			var result domain.GenerationResult
			result, err = s.publish(image, label, i)
			if err == nil {
				s.metrics.RecordAttempt(ctx, input.Mode, OutcomeSuccess, time.Since(start))
				report.Results = append(report.Results, result)
				observer.result(result)
				logger.Info().Int("pose_index", i).Str("pose", label).Msg("ポーズの生成に成功しました")
				continue
			}
		}

		if errors.Is(err, domain.ErrCredentialInvalid) {
			s.metrics.RecordAttempt(ctx, input.Mode, OutcomeCredentialInvalid, time.Since(start))
			logger.Error().Err(err).Int("pose_index", i).Msg("APIキーが無効のため生成バッチを中断します")
			if s.credentials != nil {
				s.credentials.Invalidate()
			}
			report.Aborted = true
			report.CredentialPrompt = true
			report.Failures = append(report.Failures, domain.PoseFailure{
				PoseIndex: i,
				Pose:      label,
				Message:   err.Error(),
				Err:       err,
			})
			break
		}

		s.metrics.RecordAttempt(ctx, input.Mode, OutcomeFailed, time.Since(start))
		logger.Warn().Err(err).Int("pose_index", i).Str("pose", label).Msg("ポーズの生成に失敗しました。次のポーズに進みます")
		report.Failures = append(report.Failures, domain.PoseFailure{
			PoseIndex: i,
			Pose:      label,
			Message:   err.Error(),
			Err:       err,
		})
	}

	s.metrics.RecordBatch(ctx, report)
	logger.Info().
		Int("results", len(report.Results)).
		Int("failures", len(report.Failures)).
		Int("attempted", report.Attempted).
		Bool("aborted", report.Aborted).
		Msg("生成バッチが終了しました")

	return report, nil
}

// publish は、生成画像に表示用ハンドルを発行して結果を作成します
func (s *GenerationService) publish(image *domain.SynthesizedImage, label string, index int) (domain.GenerationResult, error) {
	if image == nil {
		return domain.GenerationResult{}, fmt.Errorf("%w: 画像が返されませんでした", domain.ErrRemoteCallFailed)
	}

	ref, err := image.MediaReference()
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("%w: %v", domain.ErrRemoteCallFailed, err)
	}
	registered, err := s.handles.Register(ref)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("%w: %v", domain.ErrRemoteCallFailed, err)
	}

	return domain.GenerationResult{
		ID:        s.newID(),
		ImageURL:  registered.URL,
		Pose:      label,
		PoseIndex: index,
	}, nil
}
