package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/ShanTirmizi/incident-response-system/internal/audit"
	"github.com/ShanTirmizi/incident-response-system/internal/config"
	"github.com/ShanTirmizi/incident-response-system/internal/executor"
	"github.com/ShanTirmizi/incident-response-system/internal/incident"
	"github.com/ShanTirmizi/incident-response-system/internal/logging"
	"github.com/ShanTirmizi/incident-response-system/internal/notifications"
)

// Analyzer runs the analysis pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, transcript, additionalContext string) (incident.AnalysisResult, error)
	Refine(ctx context.Context, original incident.AnalysisResult, feedback string, section incident.Section) (incident.AnalysisResult, error)
}

// CircuitReporter exposes breaker state for the status endpoint.
type CircuitReporter interface {
	Snapshot() executor.CircuitState
	Models() []string
}

// AuditRecorder persists request outcomes.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) (int64, error)
}

// Deps are the collaborators the daemon serves.
type Deps struct {
	Analyzer Analyzer
	Circuit  CircuitReporter
	Audit    AuditRecorder
	Notifier notifications.Service
}

// Daemon owns the HTTP API lifecycle and enforces single-instance execution.
// The circuit breaker lives in process memory, so a second instance would
// keep independent state; the lock prevents that.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	server *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	started time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Address      string
	LockFilePath string
	StartedAt    time.Time
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Analyzer == nil || deps.Circuit == nil {
		return nil, errors.New("daemon requires config, analyzer, and circuit reporter")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		server:   newAPIServer(cfg, deps, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another incident daemon instance is already running")
	}

	if err := d.server.start(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.started = time.Now()
	d.running.Store(true)
	d.logger.Info("incident daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.address()),
	)
	return nil
}

// Stop shuts the API down and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.String("lock", d.lockPath),
			logging.String(logging.FieldImpact, "next start may report another instance running"),
			logging.Error(err),
		)
	}
	d.running.Store(false)
	d.logger.Info("incident daemon stopped")
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
	}
	if status.Running {
		status.Address = d.server.address()
		status.StartedAt = d.started
	}
	return status
}
