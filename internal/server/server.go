// Package server exposes claim evaluation and the news gallery over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/verity/internal/metrics"
	"github.com/ppiankov/verity/internal/model"
)

const (
	maxRequestBytes = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Evaluator scores a single claim
type Evaluator interface {
	Evaluate(ctx context.Context, claim model.Claim) (model.Verdict, error)
}

// Gallery serves pages of the news gallery
type Gallery interface {
	GetPage(page, size int) model.Page
}

// Server wraps the HTTP router
type Server struct {
	evaluator Evaluator
	gallery   Gallery
	logger    *slog.Logger
	router    *mux.Router
}

// New creates a server and registers its routes
func New(evaluator Evaluator, gallery Gallery, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{evaluator: evaluator, gallery: gallery, logger: logger, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.instrument)
	s.router.HandleFunc("/api/verify", s.handleVerify).Methods(http.MethodPost)
	s.router.HandleFunc("/predict", s.handleVerify).Methods(http.MethodPost)
	s.router.HandleFunc("/api/news-gallery", s.handleGallery).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

type verifyRequest struct {
	NewsText string `json:"newsText"`
	Source   string `json:"source,omitempty"`
	URL      string `json:"url,omitempty"`
}

type verifyResponse struct {
	Status     string                `json:"status"`
	IsReal     bool                  `json:"isReal"`
	Confidence float64               `json:"confidence"`
	Score      float64               `json:"score"`
	Analysis   *model.ScoreBreakdown `json:"analysis,omitempty"`
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: "invalid JSON body"})
		return
	}

	claim := model.Claim{Text: req.NewsText, Source: req.Source, URL: req.URL}
	if claim.IsEmpty() {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: "No news text provided"})
		return
	}

	verdict, err := s.evaluator.Evaluate(r.Context(), claim)
	if err != nil {
		s.logger.Error("claim evaluation failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Error: "Failed to analyze news"})
		return
	}

	breakdown := verdict.Breakdown
	s.writeJSON(w, http.StatusOK, verifyResponse{
		Status:     model.StatusSuccess,
		IsReal:     verdict.IsReal,
		Confidence: verdict.Confidence,
		Score:      verdict.FinalScore,
		Analysis:   &breakdown,
	})
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intParam(q.Get("page"), 1)
	size := intParam(q.Get("per_page"), 0)
	s.writeJSON(w, http.StatusOK, s.gallery.GetPage(page, size))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// intParam parses a query parameter, returning def when it is absent or malformed
func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response failed", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by route template and status code
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}
