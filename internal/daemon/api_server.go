package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ShanTirmizi/incident-response-system/internal/api"
	"github.com/ShanTirmizi/incident-response-system/internal/audit"
	"github.com/ShanTirmizi/incident-response-system/internal/config"
	"github.com/ShanTirmizi/incident-response-system/internal/executor"
	"github.com/ShanTirmizi/incident-response-system/internal/incident"
	"github.com/ShanTirmizi/incident-response-system/internal/logging"
	"github.com/ShanTirmizi/incident-response-system/internal/notifications"
	"github.com/ShanTirmizi/incident-response-system/internal/policy"
	"github.com/ShanTirmizi/incident-response-system/internal/services"
)

const notifyTimeout = 15 * time.Second

// serviceUnavailableDetail is the fixed 503 body; the cause is only logged.
const serviceUnavailableDetail = "AI service unavailable. Please try again later."

type apiServer struct {
	bind    string
	logger  *slog.Logger
	deps    Deps
	audit   bool
	now     func() time.Time
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, deps Deps, logger *slog.Logger) *apiServer {
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.API.Bind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		deps:   deps,
		audit:  cfg.Audit.Enabled && deps.Audit != nil,
		now:    time.Now,
	}

	analyzeLimit := newIPRateLimiter(cfg.API.AnalyzePerMinute, time.Minute)
	refineLimit := newIPRateLimiter(cfg.API.RefinePerMinute, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.Handle("POST /v1/analyze", analyzeLimit.middleware(http.HandlerFunc(srv.handleAnalyze)))
	mux.Handle("POST /v1/refine", refineLimit.middleware(http.HandlerFunc(srv.handleRefine)))
	mux.HandleFunc("GET /v1/policies", srv.handlePolicies)
	mux.HandleFunc("GET /v1/form-template", srv.handleFormTemplate)
	mux.HandleFunc("GET /v1/status", srv.handleStatus)

	var handler http.Handler = mux
	handler = authMiddleware(cfg.API.Token, handler)
	handler = corsMiddleware(cfg.API.AllowedOrigins, handler)
	handler = srv.requestIDMiddleware(handler)
	srv.handler = handler
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	// no WriteTimeout: analyze spans three model calls, each bounded by the total budget
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	server := s.server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server shutdown incomplete", logging.Error(err))
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		Version:   api.Version,
	})
}

func (s *apiServer) handlePolicies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.PoliciesResponse{Policies: policy.Document})
}

func (s *apiServer) handleFormTemplate(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.FormTemplateResponse{Template: policy.FormTemplate})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Version: api.Version,
		Models:  s.deps.Circuit.Models(),
		Circuit: s.deps.Circuit.Snapshot(),
		Audit:   s.audit,
	})
}

func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := services.WithOperation(r.Context(), audit.OperationAnalyze)
	logger := logging.WithContext(ctx, s.logger)
	start := s.now()

	req, err := api.DecodeTranscriptRequest(r.Body)
	if err != nil {
		s.finish(ctx, logger, w, outcome{op: audit.OperationAnalyze, start: start, err: err})
		return
	}
	logger.Info("received transcript for analysis", logging.Int("chars", len(req.Transcript)))

	result, err := s.deps.Analyzer.Analyze(ctx, req.Transcript, req.AdditionalContext)
	s.finish(ctx, logger, w, outcome{
		op:         audit.OperationAnalyze,
		start:      start,
		inputChars: len(req.Transcript),
		result:     result,
		err:        err,
	})
}

func (s *apiServer) handleRefine(w http.ResponseWriter, r *http.Request) {
	ctx := services.WithOperation(r.Context(), audit.OperationRefine)
	logger := logging.WithContext(ctx, s.logger)
	start := s.now()

	req, err := api.DecodeFeedbackRequest(r.Body)
	if err != nil {
		s.finish(ctx, logger, w, outcome{op: audit.OperationRefine, start: start, err: err})
		return
	}
	logger.Info("received feedback", logging.String(logging.FieldSection, string(req.SectionToEdit)))

	result, err := s.deps.Analyzer.Refine(ctx, req.OriginalResponse, req.Feedback, req.SectionToEdit)
	s.finish(ctx, logger, w, outcome{
		op:         audit.OperationRefine,
		section:    string(req.SectionToEdit),
		start:      start,
		inputChars: len(req.Feedback),
		result:     result,
		err:        err,
	})
}

type outcome struct {
	op         string
	section    string
	start      time.Time
	inputChars int
	result     incident.AnalysisResult
	err        error
}

// finish writes the response, then records the outcome and alerts on
// service failures.
func (s *apiServer) finish(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, o outcome) {
	elapsed := s.now().Sub(o.start)
	if o.err == nil {
		logger.Info("request completed", logging.Duration("elapsed", elapsed))
		s.writeJSON(w, http.StatusOK, o.result)
	} else {
		s.writeFailure(w, logger, o.op, o.err)
	}

	circuit := s.deps.Circuit.Snapshot()
	if s.audit {
		requestID, _ := services.RequestIDFromContext(ctx)
		entry := audit.Entry{
			RequestID:   requestID,
			Operation:   o.op,
			Section:     o.section,
			Outcome:     audit.OutcomeFor(o.err),
			Duration:    elapsed,
			InputChars:  o.inputChars,
			CircuitOpen: circuit.Open,
		}
		if o.err != nil {
			entry.Error = o.err.Error()
		} else {
			entry.IncidentType = o.result.IncidentForm.TypeOfIncident
			entry.Recipients = len(o.result.DraftEmail.To) + len(o.result.DraftEmail.CC)
		}
		if _, err := s.deps.Audit.Record(context.WithoutCancel(ctx), entry); err != nil {
			logging.WarnWithContext(logger, "audit record failed", "audit_write_failed",
				logging.String(logging.FieldImpact, "request outcome missing from audit log"),
				logging.Error(err),
			)
		}
	}

	if services.FailureKind(o.err) == services.KindUnavailable && !errors.Is(o.err, executor.ErrCircuitOpen) {
		requestID, _ := services.RequestIDFromContext(ctx)
		s.notify(ctx, logger, notifications.EventRequestFailed, notifications.Payload{
			"operation":  o.op,
			"error":      o.err,
			"request_id": requestID,
		})
	}
}

func (s *apiServer) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if s.deps.Notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		if err := s.deps.Notifier.Publish(notifyCtx, event, payload); err != nil {
			logger.Warn("notification failed", logging.String("event", string(event)), logging.Error(err))
		}
	}()
}

func (s *apiServer) writeFailure(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var verr *incident.ValidationError
	switch {
	case errors.As(err, &verr):
		logger.Info("request rejected", logging.Any("errors", verr.Fields))
		s.writeJSON(w, http.StatusUnprocessableEntity, api.ErrorResponse{
			Detail: "Validation error",
			Errors: verr.Fields,
		})
	case errors.Is(err, services.ErrValidation):
		logger.Info("request rejected", logging.Error(err))
		s.writeJSON(w, http.StatusUnprocessableEntity, api.ErrorResponse{
			Detail: "Validation error",
			Errors: []string{err.Error()},
		})
	case errors.Is(err, services.ErrServiceUnavailable):
		logging.ErrorWithContext(logger, "AI service error", "ai_service_unavailable",
			logging.String(logging.FieldErrorHint, "see executor logs for the failing model and cause"),
			logging.Error(err),
		)
		var open *executor.CircuitOpenError
		if errors.As(err, &open) && open.RetryAfter > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(open.RetryAfter.Round(time.Second).Seconds())))
		}
		s.writeJSON(w, http.StatusServiceUnavailable, api.ErrorResponse{
			Detail: serviceUnavailableDetail,
		})
	default:
		logging.ErrorWithContext(logger, "unexpected request failure", "request_internal_error",
			logging.Error(err),
		)
		detail := "Failed to analyze transcript. Please try again."
		if op == audit.OperationRefine {
			detail = "Failed to refine content. Please try again."
		}
		s.writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Detail: detail})
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}
