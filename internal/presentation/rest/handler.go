package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"vstyler/internal/application"
	"vstyler/internal/domain"
)

// Handler は、スタイリングセッションの操作をJSON APIとして公開するハンドラです
type Handler struct {
	studio       *application.StudioService
	credentials  *application.APIKeyApplicationService
	catalog      *domain.Catalog
	handles      *domain.HandleRegistry
	maxBodyBytes int64
}

// NewHandler は新しいHandlerインスタンスを作成します
func NewHandler(
	studio *application.StudioService,
	credentials *application.APIKeyApplicationService,
	catalog *domain.Catalog,
	handles *domain.HandleRegistry,
	maxBodyBytes int64,
) *Handler {
	return &Handler{
		studio:       studio,
		credentials:  credentials,
		catalog:      catalog,
		handles:      handles,
		maxBodyBytes: maxBodyBytes,
	}
}

type mediaRequest struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
}

type saveProfileRequest struct {
	Name string `json:"name"`
}

type optionsRequest struct {
	Atmosphere  *string `json:"atmosphere"`
	Mode        *string `json:"mode"`
	AspectRatio *string `json:"aspectRatio"`
	ImageSize   *string `json:"imageSize"`
	Language    *string `json:"language"`
}

type credentialRequest struct {
	APIKey string `json:"apiKey"`
}

type optionView struct {
	Value       string `json:"value"`
	DisplayName string `json:"displayName"`
}

type catalogResponse struct {
	Atmospheres  []domain.Atmosphere               `json:"atmospheres"`
	DefaultPoses map[domain.Language][]string      `json:"defaultPoses"`
	Labels       map[domain.Language]domain.Labels `json:"labels"`
	Modes        []optionView                      `json:"modes"`
	AspectRatios []domain.AspectRatio              `json:"aspectRatios"`
	ImageSizes   []domain.ImageSize                `json:"imageSizes"`
	Languages    []domain.Language                 `json:"languages"`
}

// decode は、ボディサイズを制限してJSONを読み込みます
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: リクエストが大きすぎます (上限 %d バイト)", domain.ErrValidation, tooLarge.Limit)
		}
		return fmt.Errorf("%w: リクエストの読み込みに失敗: %v", domain.ErrValidation, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: JSONの解析に失敗: %v", domain.ErrValidation, err)
	}
	return nil
}

func (h *Handler) decodeMedia(w http.ResponseWriter, r *http.Request) (domain.MediaReference, error) {
	var req mediaRequest
	if err := h.decode(w, r, &req); err != nil {
		return domain.MediaReference{}, err
	}
	return domain.NewMediaReference(req.Base64, req.MimeType)
}

func indexParam(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, fmt.Errorf("%w: インデックスが不正です", domain.ErrValidation)
	}
	return index, nil
}

// Health は、死活監視用のレスポンスを返します
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Catalog は、雰囲気・ポーズ・選択肢の一覧を返します
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	modes := make([]optionView, 0, len(domain.AllProcessingModes()))
	for _, m := range domain.AllProcessingModes() {
		modes = append(modes, optionView{Value: string(m), DisplayName: m.DisplayName()})
	}

	writeJSON(w, http.StatusOK, catalogResponse{
		Atmospheres:  h.catalog.Atmospheres,
		DefaultPoses: h.catalog.DefaultPoses,
		Labels:       h.catalog.Labels,
		Modes:        modes,
		AspectRatios: domain.AllAspectRatios(),
		ImageSizes:   domain.AllImageSizes(),
		Languages:    domain.AllLanguages(),
	})
}

// Session は、現在のセッション状態を返します
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.studio.Snapshot())
}

// SessionStatus は、生成中の進捗を返します
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.studio.Status())
}

// ResetSession は、キャラクターを新しいモデルの状態に戻します
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.studio.ResetCharacter())
}

// AddCharacterReference は、キャラクター画像を追加します
func (h *Handler) AddCharacterReference(w http.ResponseWriter, r *http.Request) {
	ref, err := h.decodeMedia(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.studio.AddCharacterReference(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// RemoveCharacterReference は、キャラクター画像を削除します
func (h *Handler) RemoveCharacterReference(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.studio.RemoveCharacterReference(r.Context(), index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// setSlot は、衣装・アクセサリー・背景の設定ハンドラを作成します
func (h *Handler) setSlot(set func(domain.MediaReference) (application.SessionSnapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := h.decodeMedia(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		snap, err := set(ref)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// clearSlot は、衣装・アクセサリー・背景の解除ハンドラを作成します
func (h *Handler) clearSlot(clearFn func() (application.SessionSnapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := clearFn()
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// AddPoseReference は、ポーズ画像を追加します
func (h *Handler) AddPoseReference(w http.ResponseWriter, r *http.Request) {
	h.setSlot(h.studio.AddPoseReference)(w, r)
}

// RemovePoseReference は、ポーズ画像を削除します
func (h *Handler) RemovePoseReference(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.studio.RemovePoseReference(index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// UpdateOptions は、生成オプションを更新します
func (h *Handler) UpdateOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	opts, err := parseOptions(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.studio.UpdateOptions(opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func parseOptions(req optionsRequest) (application.SessionOptions, error) {
	opts := application.SessionOptions{Atmosphere: req.Atmosphere}

	if req.Mode != nil {
		mode, err := domain.ParseProcessingMode(*req.Mode)
		if err != nil {
			return opts, err
		}
		opts.Mode = &mode
	}
	if req.AspectRatio != nil {
		ratio, err := domain.ParseAspectRatio(*req.AspectRatio)
		if err != nil {
			return opts, err
		}
		opts.AspectRatio = &ratio
	}
	if req.ImageSize != nil {
		size, err := domain.ParseImageSize(*req.ImageSize)
		if err != nil {
			return opts, err
		}
		opts.ImageSize = &size
	}
	if req.Language != nil {
		lang, err := domain.ParseLanguage(*req.Language)
		if err != nil {
			return opts, err
		}
		opts.Language = &lang
	}
	return opts, nil
}

// ListProfiles は、保存済みプロフィールを返します
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.studio.ListProfiles())
}

// SaveProfile は、現在のキャラクターをプロフィールとして保存します
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var req saveProfileRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := h.studio.SaveProfile(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// LoadProfile は、保存済みプロフィールを読み込みます
func (h *Handler) LoadProfile(w http.ResponseWriter, r *http.Request) {
	snap, err := h.studio.LoadProfile(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DeleteProfile は、プロフィールを削除します
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.studio.DeleteProfile(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate は、生成バッチを実行して結果を返します
// 個別のポーズの失敗はレスポンスの failures に含まれます
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	report, err := h.studio.Generate(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// CredentialStatus は、APIキーの状態を返します
func (h *Handler) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.credentials.Status())
}

// SetCredential は、手動入力のAPIキーを保存します
func (h *Handler) SetCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.credentials.SetManualKey(r.Context(), req.APIKey); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.credentials.Status())
}

// ClearCredential は、手動入力のAPIキーを削除してシステムキーに戻します
func (h *Handler) ClearCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.credentials.UseSystemKey(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.credentials.Status())
}

// Media は、表示用ハンドルに対応する画像を返します
func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	data, mimeType, ok := h.handles.Resolve(chi.URLParam(r, "handle"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
