package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/cavityproof/internal/ir"
)

// maxBodyBytes bounds an attest request body.
const maxBodyBytes = 64 << 10

// AttestRequest is the body of POST /v1/attest.
type AttestRequest struct {
	User  ir.Pubkey    `json:"user"`
	Proof SessionProof `json:"proof"`
}

// OracleInfo is the body of GET /v1/oracle.
type OracleInfo struct {
	PublicKey  ir.Pubkey `json:"public_key"`
	TTLSeconds int64     `json:"ttl_seconds"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Server exposes a Signer over HTTP.
type Server struct {
	signer   *Signer
	limiter  *userLimiter
	logger   *slog.Logger
	registry *prometheus.Registry
	issued   *prometheus.CounterVec
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimit sets the per-user limit. Default: 6 per minute, burst 2.
func WithRateLimit(rl RateLimit) ServerOption {
	return func(s *Server) { s.limiter = newUserLimiter(rl) }
}

// WithServerLogger sets the logger. Default: slog.Default().
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithCollectors also serves cs on /metrics.
func WithCollectors(cs ...prometheus.Collector) ServerOption {
	return func(s *Server) { s.registry.MustRegister(cs...) }
}

// NewServer creates a Server around signer.
func NewServer(signer *Signer, opts ...ServerOption) *Server {
	s := &Server{
		signer:   signer,
		limiter:  newUserLimiter(RateLimit{RequestsPerMinute: 6, Burst: 2}),
		logger:   slog.Default(),
		registry: prometheus.NewRegistry(),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cavityproof_oracle_attestations_total",
			Help: "Attestation requests by outcome.",
		}, []string{"outcome"}),
	}
	s.registry.MustRegister(s.issued)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(sr chi.Router) {
		sr.Get("/oracle", s.handleInfo)
		sr.Post("/attest", s.handleAttest)
	})
	return r
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OracleInfo{
		PublicKey:  s.signer.PublicKey(),
		TTLSeconds: int64(s.signer.ttl / time.Second),
	})
}

func (s *Server) handleAttest(w http.ResponseWriter, r *http.Request) {
	var req AttestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.reject(w, http.StatusBadRequest, "bad_request", fmt.Errorf("decode request: %w", err))
		return
	}
	if req.User.IsZero() {
		s.reject(w, http.StatusBadRequest, "bad_request", errors.New("user is required"))
		return
	}
	if !s.limiter.Allow(req.User, s.signer.Now()) {
		s.reject(w, http.StatusTooManyRequests, "rate_limited", fmt.Errorf("rate limit exceeded for %s", req.User))
		return
	}

	att, err := s.signer.AttestSession(req.User, req.Proof)
	if errors.Is(err, ErrInvalidProof) {
		s.reject(w, http.StatusUnprocessableEntity, "invalid_proof", err)
		return
	}
	if err != nil {
		s.logger.Error("attestation failed", "user", req.User.String(), "error", err)
		s.reject(w, http.StatusInternalServerError, "error", errors.New("attestation failed"))
		return
	}

	s.issued.WithLabelValues("ok").Inc()
	s.logger.Info("attestation issued",
		"user", att.User.String(),
		"day", att.Day,
		"nonce", att.Nonce.String(),
		"expires_at", att.ExpiresAt,
	)
	writeJSON(w, http.StatusOK, att)
}

func (s *Server) reject(w http.ResponseWriter, status int, outcome string, err error) {
	s.issued.WithLabelValues(outcome).Inc()
	s.logger.Debug("attest request rejected", "status", status, "error", err)
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("oracle listening", "addr", addr, "oracle_key", s.signer.PublicKey().String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("oracle shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
