package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ShanTirmizi/incident-response-system/internal/audit"
	"github.com/ShanTirmizi/incident-response-system/internal/config"
	"github.com/ShanTirmizi/incident-response-system/internal/daemon"
	"github.com/ShanTirmizi/incident-response-system/internal/logging"
	"github.com/ShanTirmizi/incident-response-system/internal/notifications"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the incident daemon and blocks until the context is cancelled or
// SIGINT/SIGTERM arrives. Cancellation reaches in-flight requests, which
// interrupts any backoff wait.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, unix.SIGINT, unix.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("incident-%s.log", runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update incident.log link: %v\n", err)
	}
	logConfigSnapshot(logger, cfg)
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "incident-*.log", Exclude: []string{logPath}},
	)

	pidPath := filepath.Join(cfg.Paths.StateDir, "incident.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	notifier := notifications.NewService(cfg)
	runtime, err := NewRuntime(cfg, logger, notifier)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	deps := daemon.Deps{
		Analyzer: runtime.Pipeline,
		Circuit:  runtime.Executor,
		Notifier: notifier,
	}
	if cfg.Audit.Enabled {
		store, err := audit.Open(cfg)
		if err != nil {
			logging.ErrorWithContext(logger, "open audit store", "audit_open_failed",
				logging.String(logging.FieldErrorHint, "check audit.path permissions or set audit.enabled = false"),
				logging.Error(err),
			)
			return err
		}
		defer store.Close()
		pruneAudit(signalCtx, logger, store, cfg.Audit.RetentionDays)
		deps.Audit = store
	}

	d, err := daemon.New(cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.String(logging.FieldErrorHint, "check api.bind and whether another instance holds the lock"),
			logging.Error(err),
		)
		return err
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("incident daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "incident.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// logConfigSnapshot records the effective settings without secrets.
func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	endpointHost := cfg.LLM.BaseURL
	if parsed, err := url.Parse(cfg.LLM.BaseURL); err == nil && parsed.Host != "" {
		endpointHost = parsed.Host
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Bool("api_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.String("llm_endpoint", endpointHost),
		logging.String("model", cfg.LLM.Model),
		logging.String("fallback_model", cfg.LLM.FallbackModel),
		logging.Int("max_retries", cfg.LLM.MaxRetries),
		logging.Duration("request_timeout", cfg.RequestTimeout()),
		logging.Duration("total_timeout", cfg.TotalTimeout()),
		logging.Int("circuit_threshold", cfg.Circuit.FailureThreshold),
		logging.Duration("circuit_recovery", cfg.RecoveryInterval()),
		logging.String("bind", cfg.API.Bind),
		logging.Bool("auth_required", strings.TrimSpace(cfg.API.Token) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("audit_enabled", cfg.Audit.Enabled),
	)
}

func pruneAudit(ctx context.Context, logger *slog.Logger, store *audit.Store, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	removed, err := store.Prune(ctx, time.Now().AddDate(0, 0, -retentionDays))
	if err != nil {
		logging.WarnWithContext(logger, "audit prune failed", "audit_prune_failed",
			logging.String(logging.FieldImpact, "old request outcomes remain in the audit log"),
			logging.Error(err),
		)
		return
	}
	if removed > 0 {
		logger.Info("pruned audit entries", logging.Int("removed", int(removed)), logging.Int("retention_days", retentionDays))
	}
}
