package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Policies *PolicyHandler
	Eval     *EvalHandler
	Auth     *Authenticator
	Metrics  http.Handler
	Logger   *zap.Logger
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.Identify)

		h := cfg.Policies
		r.Get("/policies", h.List)
		r.Get("/policies/{id}", h.Get)
		r.Get("/policies/{id}/rules", h.ListRules)
		r.Get("/policies/{id}/audit", h.Audit)
		if cfg.Eval != nil {
			r.Method(http.MethodPost, "/evaluate", cfg.Eval)
		}

		r.Group(func(r chi.Router) {
			r.Use(RequireActor)
			r.Post("/policies", h.Create)
			r.Put("/policies/{id}", h.Update)
			r.Delete("/policies/{id}", h.Delete)
			r.Post("/policies/{id}/toggle", h.Toggle)
			r.Post("/policies/{id}/rules", h.CreateRule)
			r.Delete("/rules/{id}", h.DeleteRule)
		})
	})
	return r
}
