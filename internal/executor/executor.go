package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ShanTirmizi/incident-response-system/internal/logging"
	"github.com/ShanTirmizi/incident-response-system/internal/services"
	"github.com/ShanTirmizi/incident-response-system/internal/services/llm"
)

const componentName = "executor"

// Request is one logical completion call.
type Request = llm.Request

// Completer performs a single completion attempt against one model.
type Completer interface {
	Complete(ctx context.Context, model string, req llm.Request) (string, error)
}

// Config holds the retry, budget and breaker settings.
type Config struct {
	PrimaryModel     string
	FallbackModel    string
	MaxRetries       int
	CallTimeout      time.Duration
	TotalTimeout     time.Duration
	FailureThreshold int
	RecoveryInterval time.Duration
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Executor wraps a Completer with retry, backoff, fallback, a total budget,
// and a circuit breaker shared by every caller of the same instance.
type Executor struct {
	cfg         Config
	completer   Completer
	breaker     *Breaker
	logger      *slog.Logger
	sleep       Sleeper
	jitter      func() float64
	backoffUnit time.Duration
	now         func() time.Time
}

// Option customizes the executor.
type Option func(*Executor)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSleeper overrides how backoff waits are performed (useful for tests).
func WithSleeper(sleeper Sleeper) Option {
	return func(e *Executor) {
		if sleeper != nil {
			e.sleep = sleeper
		}
	}
}

// WithJitter overrides the [0,1) jitter source.
func WithJitter(jitter func() float64) Option {
	return func(e *Executor) {
		if jitter != nil {
			e.jitter = jitter
		}
	}
}

// WithBackoffUnit scales backoff delays (default one second).
func WithBackoffUnit(unit time.Duration) Option {
	return func(e *Executor) {
		if unit >= 0 {
			e.backoffUnit = unit
		}
	}
}

// WithClock overrides the time source used for the budget and the breaker.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithStateListener registers a callback for circuit open/recover transitions.
// The callback runs synchronously on the request goroutine.
func WithStateListener(fn func(StateChange)) Option {
	return func(e *Executor) {
		e.breaker.setListener(fn)
	}
}

// New constructs an executor around completer.
func New(cfg Config, completer Completer, opts ...Option) (*Executor, error) {
	if completer == nil {
		return nil, services.Wrap(services.ErrConfiguration, componentName, "new", "completer required", nil)
	}
	cfg.PrimaryModel = strings.TrimSpace(cfg.PrimaryModel)
	cfg.FallbackModel = strings.TrimSpace(cfg.FallbackModel)
	if cfg.PrimaryModel == "" {
		return nil, services.Wrap(services.ErrConfiguration, componentName, "new", "primary model required", nil)
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.TotalTimeout <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, componentName, "new", "total timeout must be positive", nil)
	}

	e := &Executor{
		cfg:         cfg,
		completer:   completer,
		logger:      logging.NewNop(),
		sleep:       sleepContext,
		jitter:      rand.Float64,
		backoffUnit: time.Second,
		now:         time.Now,
	}
	// breaker reads the clock through e so WithClock applies regardless of option order
	e.breaker = NewBreaker(cfg.FailureThreshold, cfg.RecoveryInterval, func() time.Time { return e.now() })
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, componentName)
	return e, nil
}

// Snapshot exposes the circuit state for status reporting.
func (e *Executor) Snapshot() CircuitState {
	return e.breaker.Snapshot()
}

// Models returns the ordered model list tried by Execute.
func (e *Executor) Models() []string {
	models := []string{e.cfg.PrimaryModel}
	if e.cfg.FallbackModel != "" && e.cfg.FallbackModel != e.cfg.PrimaryModel {
		models = append(models, e.cfg.FallbackModel)
	}
	return models
}

// Execute runs req through the primary then the fallback model and returns
// the first non-empty content. All failures are tagged
// services.ErrServiceUnavailable.
func (e *Executor) Execute(ctx context.Context, req Request) (string, error) {
	logger := logging.WithContext(ctx, e.logger)

	if err := e.breaker.Allow(); err != nil {
		logger.Warn("circuit open; failing fast",
			logging.String(logging.FieldEventType, "circuit_reject"),
			logging.Error(err),
		)
		return "", e.wrap("circuit open", err)
	}

	start := e.now()
	deadline := start.Add(e.cfg.TotalTimeout)
	var lastErr error

	for _, model := range e.Models() {
	attempts:
		for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
			remaining := deadline.Sub(e.now())
			if remaining <= 0 {
				return "", e.budgetExceeded(logger, lastErr)
			}
			if err := ctx.Err(); err != nil {
				return "", e.wrap("request cancelled", err)
			}

			logger.Info("calling model",
				logging.String(logging.FieldModel, model),
				logging.Int("attempt", attempt+1),
				logging.Int("max_attempts", e.cfg.MaxRetries),
			)
			content, budgetCut, err := e.attempt(ctx, model, req, remaining)
			if budgetCut {
				return "", e.budgetExceeded(logger, err)
			}
			if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
				return "", e.wrap("request cancelled", ctxErr)
			}

			result, tagged := classify(err)
			switch result {
			case outcomeSuccess:
				e.breaker.RecordSuccess()
				logger.Info("model call succeeded",
					logging.String(logging.FieldModel, model),
					logging.Int("attempt", attempt+1),
					logging.Duration("elapsed", e.now().Sub(start)),
				)
				return content, nil

			case outcomeFatal:
				logging.ErrorWithContext(logger, "model rejected request", "llm_client_error",
					logging.String(logging.FieldModel, model),
					logging.String(logging.FieldErrorHint, "check api key, model name and request size"),
					logging.Error(tagged),
				)
				return "", e.wrap("model rejected request", tagged)

			case outcomeRetryable:
				lastErr = tagged
				if attempt+1 >= e.cfg.MaxRetries {
					break attempts
				}
				delay := e.backoff(attempt)
				logging.WarnWithContext(logger, "model attempt failed; backing off", "llm_retry",
					logging.String(logging.FieldModel, model),
					logging.Int("attempt", attempt+1),
					logging.Duration("delay", delay),
					logging.String(logging.FieldImpact, "response delayed"),
					logging.Error(tagged),
				)
				if remaining := deadline.Sub(e.now()); delay > remaining {
					delay = max(remaining, 0)
				}
				if err := e.sleep(ctx, delay); err != nil {
					return "", e.wrap("request cancelled", err)
				}

			default:
				lastErr = tagged
				logging.WarnWithContext(logger, "unexpected model failure; moving to next model", "llm_unexpected",
					logging.String(logging.FieldModel, model),
					logging.String("outcome", result.String()),
					logging.Error(tagged),
				)
				break attempts
			}
		}
		logger.Warn("model exhausted",
			logging.String(logging.FieldModel, model),
			logging.String(logging.FieldEventType, "llm_model_exhausted"),
		)
	}

	opened := e.breaker.RecordFailure()
	logging.ErrorWithContext(logger, "all models exhausted", "llm_exhausted",
		logging.Bool("circuit_opened", opened),
		logging.String(logging.FieldErrorHint, "check provider status and network reachability"),
		logging.Error(lastErr),
	)
	if lastErr == nil {
		return "", e.wrap("", ErrModelsExhausted)
	}
	return "", e.wrap("", fmt.Errorf("%w: %w", ErrModelsExhausted, lastErr))
}

// attempt runs one completion bounded by min(CallTimeout, remaining). budgetCut
// reports that the attempt was stopped by the total budget rather than by its
// own timeout or the caller.
func (e *Executor) attempt(ctx context.Context, model string, req Request, remaining time.Duration) (string, bool, error) {
	limit := remaining
	budgetBound := true
	if e.cfg.CallTimeout > 0 && e.cfg.CallTimeout < remaining {
		limit = e.cfg.CallTimeout
		budgetBound = false
	}
	attemptCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	content, err := e.completer.Complete(attemptCtx, model, req)
	if err == nil {
		return content, false, nil
	}
	cut := budgetBound && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
	return "", cut, err
}

// backoff returns (2^attempt + jitter) backoff units, attempt zero-based.
func (e *Executor) backoff(attempt int) time.Duration {
	jitter := e.jitter()
	if jitter < 0 || jitter >= 1 {
		jitter = 0
	}
	factor := math.Pow(2, float64(attempt)) + jitter
	return time.Duration(factor * float64(e.backoffUnit))
}

func (e *Executor) budgetExceeded(logger *slog.Logger, cause error) error {
	opened := e.breaker.RecordFailure()
	logging.ErrorWithContext(logger, "total timeout exceeded", "llm_total_timeout",
		logging.Duration("budget", e.cfg.TotalTimeout),
		logging.Bool("circuit_opened", opened),
		logging.String(logging.FieldErrorHint, "raise llm.total_timeout_seconds or check provider latency"),
		logging.Error(cause),
	)
	err := fmt.Errorf("%w after %s", ErrTotalTimeout, e.cfg.TotalTimeout)
	if cause != nil {
		err = fmt.Errorf("%w after %s: last error: %w", ErrTotalTimeout, e.cfg.TotalTimeout, cause)
	}
	return e.wrap("", err)
}

func (e *Executor) wrap(message string, err error) error {
	return services.Wrap(services.ErrServiceUnavailable, componentName, "execute", message, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
