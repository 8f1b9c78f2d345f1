// Package rest は、スタイリングセッションをHTTP JSON APIとして公開します
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// NewRouter は、すべてのルートを登録したルーターを作成します
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/media/{handle}", h.Media)

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.Catalog)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.Session)
			r.Get("/status", h.SessionStatus)
			r.Post("/reset", h.ResetSession)

			r.Post("/character-refs", h.AddCharacterReference)
			r.Delete("/character-refs/{index}", h.RemoveCharacterReference)

			r.Put("/garment", h.setSlot(h.studio.SetGarment))
			r.Delete("/garment", h.clearSlot(h.studio.ClearGarment))
			r.Put("/accessory", h.setSlot(h.studio.SetAccessory))
			r.Delete("/accessory", h.clearSlot(h.studio.ClearAccessory))
			r.Put("/background", h.setSlot(h.studio.SetBackground))
			r.Delete("/background", h.clearSlot(h.studio.ClearBackground))

			r.Post("/pose-refs", h.AddPoseReference)
			r.Delete("/pose-refs/{index}", h.RemovePoseReference)

			r.Put("/options", h.UpdateOptions)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.ListProfiles)
			r.Post("/", h.SaveProfile)
			r.Post("/{id}/load", h.LoadProfile)
			r.Delete("/{id}", h.DeleteProfile)
		})

		r.Post("/generate", h.Generate)

		r.Route("/credential", func(r chi.Router) {
			r.Get("/", h.CredentialStatus)
			r.Put("/", h.SetCredential)
			r.Delete("/", h.ClearCredential)
		})
	})

	return r
}

// requestLogger は、リクエストごとにステータスと処理時間をログに記録します
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		event := log.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTPリクエスト")
	})
}
