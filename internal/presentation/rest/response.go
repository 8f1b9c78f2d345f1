package rest

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"vstyler/internal/domain"
)

// errorResponse は、エラー時のレスポンスボディです
type errorResponse struct {
	Error            string `json:"error"`
	CredentialPrompt bool   `json:"credentialPrompt,omitempty"`
}

// writeJSON は、値をJSONとして書き込みます
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("レスポンスの書き込みに失敗しました")
	}
}

// writeError は、エラーを分類してHTTPステータスとともに書き込みます
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("リクエストの処理に失敗しました")

	writeJSON(w, status, errorResponse{
		Error:            err.Error(),
		CredentialPrompt: errors.Is(err, domain.ErrCredentialInvalid),
	})
}

// statusFor は、ドメインエラーをHTTPステータスに変換します
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidMedia):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrReferenceLimit),
		errors.Is(err, domain.ErrProfileLocked),
		errors.Is(err, domain.ErrBatchInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCredentialInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrWriteRejected):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrRemoteCallFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
