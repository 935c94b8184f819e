package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/render"
	"storyreel/internal/services"
	"storyreel/internal/stories"
)

// CycleResult summarizes one pass over both pipelines.
type CycleResult struct {
	Stories stories.BatchResult
	Renders render.BatchResult
}

// Start acquires the single-instance lock and begins background polling.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}

	if err := fileutil.EnsureDir(m.cfg.Paths.LogDir); err != nil {
		return fmt.Errorf("prepare lock dir: %w", err)
	}
	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another storyreel instance holds %s", m.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.run(runCtx)

	m.logger.Info("workflow started",
		logging.String("lock", m.lockPath),
		logging.Duration("poll_interval", m.pollInterval))
	return nil
}

// Stop cancels background polling, waits for the current cycle to finish,
// and releases the lock.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	if err := m.lock.Unlock(); err != nil {
		m.logger.Warn("failed to release workflow lock", logging.Error(err))
	}
	m.logger.Info("workflow stopped")
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := m.RunOnce(ctx)
		switch {
		case err == nil:
			m.setLastCycle(result)
		case errors.Is(err, context.Canceled):
			return
		default:
			m.setLastError(err)
			m.logger.Error("workflow cycle failed",
				logging.String(logging.FieldEventType, "cycle_failed"),
				logging.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.pollInterval):
		}
	}
}

// RunOnce drives every pending story through the story pipeline and every
// ready story through the video pipeline. Each cycle carries a correlation
// id so log lines from both pipelines can be tied together.
func (m *Manager) RunOnce(ctx context.Context) (CycleResult, error) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	var result CycleResult
	var err error

	result.Stories, err = m.processor.ProcessBatch(ctx)
	if err != nil {
		return result, fmt.Errorf("story pipeline: %w", err)
	}
	result.Renders, err = m.renderer.RenderBatch(ctx)
	if err != nil {
		return result, fmt.Errorf("video pipeline: %w", err)
	}

	if result.Stories.Ready+result.Renders.Rendered > 0 {
		logger.Info("cycle completed",
			logging.String(logging.FieldEventType, "cycle_complete"),
			logging.Int("stories_ready", result.Stories.Ready),
			logging.Int("videos_rendered", result.Renders.Rendered),
			logging.Int("failures", result.Stories.Failed+result.Renders.Failed))
	}
	return result, nil
}
