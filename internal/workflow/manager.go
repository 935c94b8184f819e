package workflow

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/render"
	"storyreel/internal/stories"
	"storyreel/internal/store"
)

// Manager drives both pipelines against the store on a poll interval.
type Manager struct {
	cfg          *config.Config
	store        *store.Store
	processor    *stories.Processor
	renderer     *render.Renderer
	logger       *slog.Logger
	pollInterval time.Duration

	lockPath string
	lock     *flock.Flock

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastCycle CycleResult
}

// NewManager constructs a manager with the default pipelines.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger) *Manager {
	return NewManagerWithPipelines(cfg, st, logger,
		stories.NewProcessor(cfg, st, logger),
		render.NewRenderer(cfg, st, logger))
}

// NewManagerWithPipelines constructs a manager around caller-supplied
// pipelines (used in tests to substitute stage handlers and the media
// toolchain).
func NewManagerWithPipelines(cfg *config.Config, st *store.Store, logger *slog.Logger, processor *stories.Processor, renderer *render.Renderer) *Manager {
	lockPath := filepath.Join(cfg.Paths.LogDir, "storyreel.lock")
	return &Manager{
		cfg:          cfg,
		store:        st,
		processor:    processor,
		renderer:     renderer,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		pollInterval: time.Duration(cfg.Pipeline.PollIntervalSeconds) * time.Second,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}
}

// LockPath returns the path of the single-instance lock file.
func (m *Manager) LockPath() string {
	return m.lockPath
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastCycle(result CycleResult) {
	m.mu.Lock()
	m.lastCycle = result
	m.lastErr = nil
	m.mu.Unlock()
}
