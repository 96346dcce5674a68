package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ShanTirmizi/incident-response-system/internal/analysis"
	"github.com/ShanTirmizi/incident-response-system/internal/config"
	"github.com/ShanTirmizi/incident-response-system/internal/executor"
	"github.com/ShanTirmizi/incident-response-system/internal/logging"
	"github.com/ShanTirmizi/incident-response-system/internal/notifications"
	"github.com/ShanTirmizi/incident-response-system/internal/services/llm"
)

const circuitNotifyTimeout = 15 * time.Second

// Runtime is the model-facing stack shared by serve and the one-shot CLI
// commands: client, executor, and pipeline, built once and passed explicitly.
type Runtime struct {
	Executor *executor.Executor
	Pipeline *analysis.Pipeline
}

// NewRuntime builds the completion client, the resilient executor, and the
// analysis pipeline from cfg. Circuit transitions are logged and published
// through notifier.
func NewRuntime(cfg *config.Config, logger *slog.Logger, notifier notifications.Service, opts ...executor.Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Temperature:    cfg.LLM.Temperature,
		TimeoutSeconds: cfg.LLM.RequestTimeoutSeconds,
	})

	execOpts := []executor.Option{
		executor.WithLogger(logger),
		executor.WithStateListener(circuitListener(logger, notifier, cfg.RecoveryInterval())),
	}
	exec, err := executor.New(executor.Config{
		PrimaryModel:     cfg.LLM.Model,
		FallbackModel:    cfg.LLM.FallbackModel,
		MaxRetries:       cfg.LLM.MaxRetries,
		CallTimeout:      cfg.RequestTimeout(),
		TotalTimeout:     cfg.TotalTimeout(),
		FailureThreshold: cfg.Circuit.FailureThreshold,
		RecoveryInterval: cfg.RecoveryInterval(),
	}, client, append(execOpts, opts...)...)
	if err != nil {
		return nil, err
	}

	pipeline, err := analysis.New(exec, analysis.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &Runtime{Executor: exec, Pipeline: pipeline}, nil
}

// circuitListener runs on the request goroutine, so publishing is detached.
func circuitListener(logger *slog.Logger, notifier notifications.Service, recovery time.Duration) func(executor.StateChange) {
	logger = logging.NewComponentLogger(logger, "circuit")
	return func(change executor.StateChange) {
		event := notifications.EventCircuitRecovered
		payload := notifications.Payload{}
		if change.Open {
			event = notifications.EventCircuitOpened
			payload["failures"] = change.FailureCount
			payload["retry_after"] = recovery.String()
			logging.WarnWithContext(logger, "circuit breaker opened", "circuit_opened",
				logging.Int("failures", change.FailureCount),
				logging.String(logging.FieldImpact, "analysis requests fail fast until recovery"),
			)
		} else {
			logger.Info("circuit breaker recovered",
				logging.String(logging.FieldEventType, "circuit_recovered"),
			)
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), circuitNotifyTimeout)
			defer cancel()
			if err := notifier.Publish(ctx, event, payload); err != nil {
				logger.Warn("circuit notification failed", logging.String("event", string(event)), logging.Error(err))
			}
		}()
	}
}
