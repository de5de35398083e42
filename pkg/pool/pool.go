// Package pool owns the set of reusable execution surfaces ("sessions").
// It allocates sessions to script runs under a reuse policy, tracks session
// status, and garbage-collects closed sessions.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/scriptdeck/internal/logging"
	"github.com/aretw0/scriptdeck/pkg/domain"
	"github.com/aretw0/scriptdeck/pkg/ports"
)

// Status describes what a session is currently doing.
type Status int

const (
	// StatusIdle means the session is live and unoccupied.
	StatusIdle Status = iota
	// StatusRunning means the session is bound to a running script.
	StatusRunning
	// StatusSucceeded means the session's last run settled successfully.
	StatusSucceeded
	// StatusFailed means the session's last run settled as failed.
	StatusFailed
)

// String returns a human-readable representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session pairs an execution surface with pool bookkeeping. A session is
// bound to at most one script identity at a time; rebinding requires the
// prior binding to be released first.
type Session struct {
	ID        string
	Surface   ports.Surface
	Workdir   string
	CreatedAt time.Time

	bound  domain.ScriptIdentity // empty when unbound
	status Status
}

// Bound returns the identity currently bound to the session, or "" if none.
func (s *Session) Bound() domain.ScriptIdentity {
	return s.bound
}

// Status returns the session's current status.
func (s *Session) Status() Status {
	return s.status
}

// WarnFunc is invoked (non-fatally) when session creation pushes the pool
// past its configured ceiling. The receiver may prune settled sessions or
// close everything; the pool itself never drops a live running session to
// enforce the ceiling.
type WarnFunc func(total, ceiling int)

// Pool manages sessions. The session map is owned and mutated only by the
// pool; all access goes through its methods, which are safe for concurrent
// use.
type Pool struct {
	mu       sync.Mutex
	sessions map[string]*Session

	factory ports.SurfaceFactory
	ceiling int
	warn    WarnFunc
	logger  *slog.Logger
}

// Option configures the Pool.
type Option func(*Pool)

// WithCeiling sets the soft session cap that triggers the warning callback.
func WithCeiling(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.ceiling = n
		}
	}
}

// WithWarnFunc sets the ceiling-overflow callback.
func WithWarnFunc(fn WarnFunc) Option {
	return func(p *Pool) {
		p.warn = fn
	}
}

// WithLogger configures a logger for pool events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// DefaultCeiling is the soft cap on live sessions before the warning
// callback fires.
const DefaultCeiling = 8

// New creates a Pool that obtains surfaces from the given factory.
func New(factory ports.SurfaceFactory, opts ...Option) *Pool {
	p := &Pool{
		sessions: make(map[string]*Session),
		factory:  factory,
		ceiling:  DefaultCeiling,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns a session for a new run under the given reuse policy,
// bound to identity. The working directory and environment snapshot apply
// only when a fresh session is created; policy-level workdir resolution is
// the caller's job.
func (p *Pool) Acquire(ctx context.Context, policy domain.ReusePolicy, identity domain.ScriptIdentity, workdir string, env []string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneLocked()

	if sess := p.reusableLocked(policy); sess != nil {
		// Rebinding: release the prior binding first.
		sess.bound = identity
		sess.status = StatusRunning
		p.logger.Debug("reusing session", "session", sess.ID, "script", identity)
		return sess, nil
	}

	surface, err := p.factory.New(ctx, workdir, env)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Surface:   surface,
		Workdir:   workdir,
		CreatedAt: time.Now(),
		bound:     identity,
		status:    StatusRunning,
	}
	p.sessions[sess.ID] = sess

	if total := len(p.sessions); total > p.ceiling && p.warn != nil {
		// Non-fatal: the caller chooses whether to prune or close all.
		p.warn(total, p.ceiling)
	}

	p.logger.Debug("created session", "session", sess.ID, "script", identity, "workdir", workdir)
	return sess, nil
}

// reusableLocked picks a session eligible for reuse under the policy, or
// nil if a fresh one must be created.
func (p *Pool) reusableLocked(policy domain.ReusePolicy) *Session {
	switch policy {
	case domain.ReuseAlways:
		for _, s := range p.sessions {
			if s.Surface.Alive() {
				return s
			}
		}
	case domain.ReuseSmart:
		for _, s := range p.sessions {
			if s.Surface.Alive() && s.status != StatusRunning {
				return s
			}
		}
	}
	return nil
}

// Release clears the session's binding, returning it to the idle pool. The
// surface stays open for reuse.
func (p *Pool) Release(handle string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.sessions[handle]; ok {
		s.bound = ""
		s.status = StatusIdle
	}
}

// MarkSettled records the outcome of the run bound to the session. The
// binding is kept so observers can still correlate the session with its
// script; a settled session is eligible for smart reuse.
func (p *Pool) MarkSettled(handle string, outcome domain.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[handle]
	if !ok {
		return
	}
	if outcome == domain.OutcomeFailed {
		s.status = StatusFailed
	} else {
		s.status = StatusSucceeded
	}
}

// Destroy closes the session's surface and removes it from the pool.
func (p *Pool) Destroy(handle string, force bool) error {
	p.mu.Lock()
	s, ok := p.sessions[handle]
	delete(p.sessions, handle)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	if err := s.Surface.Close(force); err != nil {
		return fmt.Errorf("close surface: %w", err)
	}
	return nil
}

// CloseSettled closes every session whose last run has settled, plus idle
// ones. Running sessions are untouched. Returns the number closed.
func (p *Pool) CloseSettled() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	closed := 0
	for id, s := range p.sessions {
		if s.status == StatusRunning {
			continue
		}
		if err := s.Surface.Close(false); err != nil {
			p.logger.Warn("closing settled session failed", "session", id, "err", err)
		}
		delete(p.sessions, id)
		closed++
	}
	return closed
}

// CloseAll force-closes every session, including running ones.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, s := range p.sessions {
		if err := s.Surface.Close(true); err != nil {
			p.logger.Warn("closing session failed", "session", id, "err", err)
		}
		delete(p.sessions, id)
	}
}

// Counts returns a summary of the pool for status displays.
func (p *Pool) Counts() domain.PoolCounts {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneLocked()

	c := domain.PoolCounts{Total: len(p.sessions)}
	for _, s := range p.sessions {
		switch s.status {
		case StatusRunning:
			c.Running++
		case StatusSucceeded:
			c.Completed++
		case StatusFailed:
			c.Failed++
		}
	}
	return c
}

// pruneLocked drops sessions whose surface reported itself closed. Pruning
// is lazy, on the next pool scan, to avoid racing in-flight status reads.
func (p *Pool) pruneLocked() {
	for id, s := range p.sessions {
		if s.status == StatusRunning {
			// A running session's fate belongs to the lifecycle and its
			// inferencer, not the pool scan.
			continue
		}
		if !s.Surface.Alive() {
			delete(p.sessions, id)
			p.logger.Debug("pruned dead session", "session", id)
		}
	}
}
