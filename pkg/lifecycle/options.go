package lifecycle

import (
	"log/slog"
	"time"

	"github.com/aretw0/scriptdeck/pkg/domain"
	"github.com/aretw0/scriptdeck/pkg/ports"
)

// Option defines a functional option for configuring the Manager.
type Option func(*Manager)

// WithConfirmer sets the user-confirmation strategy for suspicious
// commands. Without one, every Confirm verdict is a decline.
func WithConfirmer(c ports.Confirmer) Option {
	return func(m *Manager) {
		m.confirmer = c
	}
}

// WithHistory enables best-effort recording of settled runs.
func WithHistory(h ports.HistoryStore) Option {
	return func(m *Manager) {
		m.history = h
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithReusePolicy sets the session reuse policy for new runs.
func WithReusePolicy(p domain.ReusePolicy) Option {
	return func(m *Manager) {
		m.reuse = p
	}
}

// WithGracePeriod sets how long a settled record stays visible before the
// identity reverts to idle.
func WithGracePeriod(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.grace = d
		}
	}
}

// WithDefaultWorkdir overrides the per-script working directory (which
// defaults to the script's own directory).
func WithDefaultWorkdir(dir string) Option {
	return func(m *Manager) {
		m.defaultDir = dir
	}
}

// WithKeepSessionOpen controls whether a session outlives its settled run
// for reuse, or is closed when the record reverts to idle.
func WithKeepSessionOpen(keep bool) Option {
	return func(m *Manager) {
		m.keepOpen = keep
	}
}

// WithConfirmBeforeExecute requires confirmation for every run, not just
// suspicious ones.
func WithConfirmBeforeExecute(confirm bool) Option {
	return func(m *Manager) {
		m.confirmAll = confirm
	}
}
