// ABOUTME: Operator HTTP API built on chi
// ABOUTME: Health probe plus list, get and delete of stored subscriptions

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/2389/rail-scout/internal/errors"
	"github.com/2389/rail-scout/internal/subscription"
)

// Server is the operator API.
type Server struct {
	router    *chi.Mux
	store     subscription.Store
	logger    *slog.Logger
	startedAt time.Time
}

// NewServer creates the API over store.
func NewServer(store subscription.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:    chi.NewRouter(),
		store:     store,
		logger:    logger.With("component", "api"),
		startedAt: time.Now(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)

	s.router.Get("/health", s.health)
	s.router.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Get("/", s.listSubscriptions)
		r.Get("/{id}", s.getSubscription)
		r.Delete("/{id}", s.deleteSubscription)
	})

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving api: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
	})
}

type listResponse struct {
	Subscriptions []subscription.Subscription `json:"subscriptions"`
	Count         int                         `json:"count"`
}

// listSubscriptions handles GET /api/v1/subscriptions[?chat_id=N]
func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	subs := subscription.Sorted(all)
	if raw := r.URL.Query().Get("chat_id"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "chat_id must be an integer")
			return
		}
		subs = subscription.ForChat(all, chatID)
	}
	if subs == nil {
		subs = []subscription.Subscription{}
	}

	writeJSON(w, http.StatusOK, listResponse{Subscriptions: subs, Count: len(subs)})
}

// getSubscription handles GET /api/v1/subscriptions/{id}
func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// deleteSubscription handles DELETE /api/v1/subscriptions/{id}
func (s *Server) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("subscription deleted via api", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case apperrors.KindInvalidInput:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("api request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// requestLogger logs each request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
