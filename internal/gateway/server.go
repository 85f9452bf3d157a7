// Package gateway serves a claim ledger over HTTP.
//
// Submitted batches go through ledger.Executor.Submit, so every client of
// one gateway is totally ordered by the executor's Run loop.
//
// Routes:
//
//	GET  /healthz                          liveness
//	GET  /metrics                          Prometheus metrics
//	POST /v1/batches                       signed ledger.Batch -> ledger.Receipt
//	GET  /v1/users/{user}/state            committed claim state
//	GET  /v1/users/{user}/nonces/{nonce}   whether a nonce was consumed
package gateway

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

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/ledger"
)

// maxBodyBytes bounds a submitted batch.
const maxBodyBytes = 256 << 10

// Codes for requests that never reached the ledger.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeStopped    = "LEDGER_STOPPED"
)

// Rejection is the body of every non-2xx response.
type Rejection struct {
	ID    string `json:"id,omitempty"`
	Seq   int64  `json:"seq,omitempty"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// UserState is the body of GET /v1/users/{user}/state.
type UserState struct {
	User           ir.Pubkey `json:"user"`
	Owner          ir.Pubkey `json:"owner"`
	Streak         uint32    `json:"streak"`
	LastDayClaimed int64     `json:"last_day_claimed"`
	TotalClaims    uint32    `json:"total_claims"`
}

// NonceStatus is the body of GET /v1/users/{user}/nonces/{nonce}.
type NonceStatus struct {
	User  ir.Pubkey `json:"user"`
	Nonce ir.Nonce  `json:"nonce"`
	Used  bool      `json:"used"`
}

// Server exposes an Executor over HTTP.
type Server struct {
	ledger    *ledger.Executor
	programID ir.Pubkey
	logger    *slog.Logger
	registry  *prometheus.Registry
	batches   *prometheus.CounterVec
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCollectors also serves cs on /metrics.
func WithCollectors(cs ...prometheus.Collector) Option {
	return func(s *Server) { s.registry.MustRegister(cs...) }
}

// NewServer creates a Server for exec, reading claim state owned by programID.
func NewServer(exec *ledger.Executor, programID ir.Pubkey, opts ...Option) *Server {
	s := &Server{
		ledger:    exec,
		programID: programID,
		logger:    slog.Default(),
		registry:  prometheus.NewRegistry(),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cavityproof_gateway_batches_total",
			Help: "Submitted batches by outcome code.",
		}, []string{"outcome"}),
	}
	s.registry.MustRegister(s.batches)
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
		sr.Post("/batches", s.handleSubmit)
		sr.Get("/users/{user}/state", s.handleState)
		sr.Get("/users/{user}/nonces/{nonce}", s.handleNonce)
	})
	return r
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var b ledger.Batch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		s.batches.WithLabelValues(CodeBadRequest).Inc()
		writeJSON(w, http.StatusBadRequest, Rejection{Code: CodeBadRequest, Error: fmt.Sprintf("decode batch: %v", err)})
		return
	}

	rcpt, err := s.ledger.Submit(r.Context(), b)
	switch {
	case err == nil:
		s.batches.WithLabelValues("ok").Inc()
		writeJSON(w, http.StatusOK, rcpt)
	case errors.Is(err, ledger.ErrStopped):
		s.batches.WithLabelValues(CodeStopped).Inc()
		writeJSON(w, http.StatusServiceUnavailable, Rejection{Code: CodeStopped, Error: err.Error()})
	case r.Context().Err() != nil:
		// Client went away; the batch still runs.
		s.logger.Debug("submitter disconnected", "signer", b.Signer.String(), "error", err)
	default:
		code := ledger.CodeOf(err)
		s.batches.WithLabelValues(code).Inc()
		status := http.StatusUnprocessableEntity
		if code == ledger.CodeInternal {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, Rejection{ID: rcpt.ID, Seq: rcpt.Seq, Code: code, Error: err.Error()})
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}
	state, err := claim.ReadUserState(r.Context(), s.ledger.Store(), s.programID, user)
	if claim.IsCode(err, claim.CodeNotInitialized) {
		writeJSON(w, http.StatusNotFound, Rejection{Code: string(claim.CodeNotInitialized), Error: err.Error()})
		return
	}
	if err != nil {
		s.internal(w, "read state", err)
		return
	}
	writeJSON(w, http.StatusOK, UserState{
		User:           user,
		Owner:          state.Owner,
		Streak:         state.Streak,
		LastDayClaimed: state.LastDayClaimed,
		TotalClaims:    state.TotalClaims,
	})
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}
	var nonce ir.Nonce
	if err := nonce.UnmarshalText([]byte(chi.URLParam(r, "nonce"))); err != nil {
		writeJSON(w, http.StatusBadRequest, Rejection{Code: CodeBadRequest, Error: err.Error()})
		return
	}
	used, err := claim.NonceUsed(r.Context(), s.ledger.Store(), s.programID, user, nonce)
	if err != nil {
		s.internal(w, "read nonce", err)
		return
	}
	writeJSON(w, http.StatusOK, NonceStatus{User: user, Nonce: nonce, Used: used})
}

func (s *Server) userParam(w http.ResponseWriter, r *http.Request) (ir.Pubkey, bool) {
	user, err := ir.ParsePubkey(chi.URLParam(r, "user"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Rejection{Code: CodeBadRequest, Error: err.Error()})
		return ir.Pubkey{}, false
	}
	return user, true
}

func (s *Server) internal(w http.ResponseWriter, what string, err error) {
	s.logger.Error(what+" failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, Rejection{Code: ledger.CodeInternal, Error: what + " failed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve runs the ledger loop and listens on addr until ctx is cancelled.
// On shutdown in-flight submissions finish before the loop stops.
func (s *Server) Serve(ctx context.Context, addr string) error {
	runErr := make(chan error, 1)
	go func() { runErr <- s.ledger.Run(context.WithoutCancel(ctx)) }()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "addr", addr, "program_id", s.programID.String())
		errCh <- srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("gateway shutting down")
		err = srv.Shutdown(shutdownCtx)
	}

	s.ledger.Stop()
	if rerr := <-runErr; err == nil {
		err = rerr
	}
	return err
}
