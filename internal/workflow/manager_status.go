package workflow

import (
	"context"

	"storyreel/internal/logging"
	"storyreel/internal/stage"
	"storyreel/internal/store"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	LastError  string
	LastCycle  CycleResult
	StoryStats map[store.Status]int
	Health     []stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:   m.running,
		LastCycle: m.lastCycle,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read story stats", logging.Error(err))
	}
	summary.StoryStats = stats

	summary.Health = append(m.processor.HealthChecks(ctx), m.renderer.HealthCheck(ctx))
	return summary
}
