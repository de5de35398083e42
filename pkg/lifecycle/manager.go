// Package lifecycle is the execution-lifecycle orchestrator: it maps each
// script identity to at most one live run, gates execution through the
// security policy, multiplexes runs across pooled terminal sessions, and
// infers completion without a reliable process-exit signal.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/scriptdeck/internal/logging"
	"github.com/aretw0/scriptdeck/pkg/domain"
	"github.com/aretw0/scriptdeck/pkg/gate"
	"github.com/aretw0/scriptdeck/pkg/infer"
	"github.com/aretw0/scriptdeck/pkg/pool"
	"github.com/aretw0/scriptdeck/pkg/ports"
)

// DefaultGracePeriod is how long a settled record stays visible before the
// identity reverts to idle, so observers can read the terminal status once.
const DefaultGracePeriod = 1500 * time.Millisecond

// run is the internal lifecycle entry behind a RunRecord.
type run struct {
	record  domain.RunRecord
	session *pool.Session
	cancel  context.CancelFunc
	grace   *time.Timer

	// stopRequested marks a record for immediate teardown when a stop
	// arrives before session creation has completed.
	stopRequested bool
	stopForce     bool
}

// Observer receives status-changed events.
type Observer func(domain.StatusEvent)

// Manager owns the run-record map. The map is mutated only through Manager
// methods; "reject if already running" and "insert running record" execute
// atomically under one mutex hold.
type Manager struct {
	mu   sync.Mutex
	runs map[domain.ScriptIdentity]*run
	gen  uint64

	gate       *gate.Gate
	pool       *pool.Pool
	inferencer *infer.Inferencer
	confirmer  ports.Confirmer
	history    ports.HistoryStore
	logger     *slog.Logger

	reuse      domain.ReusePolicy
	grace      time.Duration
	defaultDir string
	keepOpen   bool
	confirmAll bool

	observers map[int]Observer
	nextObs   int

	events       chan domain.StatusEvent
	closed       chan struct{}
	dispatchDone chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup
}

// New creates a Manager wired to the given gate, pool, and inferencer.
func New(g *gate.Gate, p *pool.Pool, inf *infer.Inferencer, opts ...Option) *Manager {
	m := &Manager{
		runs:         make(map[domain.ScriptIdentity]*run),
		gate:         g,
		pool:         p,
		inferencer:   inf,
		logger:       logging.NewNop(),
		reuse:        domain.ReuseSmart,
		grace:        DefaultGracePeriod,
		keepOpen:     true,
		observers:    make(map[int]Observer),
		events:       make(chan domain.StatusEvent, 128),
		closed:       make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.dispatch()
	return m
}

// Request launches the script identified by identity with the given
// parameters. Parameters are appended verbatim to the command; shell
// metacharacters in them are reported as warnings, never blocked on their
// own. The returned warnings are advisory and present even on error.
//
// The request is rejected synchronously with ErrAlreadyRunning before any
// asynchronous work is scheduled if a run for identity already exists.
func (m *Manager) Request(ctx context.Context, identity domain.ScriptIdentity, params string) ([]string, error) {
	warnings := ParamWarnings(params)

	// Reserve the identity. Holding the slot from here on makes the
	// duplicate-run check and the insert atomic, even though the gate and
	// confirmation steps below may suspend.
	m.mu.Lock()
	if _, exists := m.runs[identity]; exists {
		m.mu.Unlock()
		return warnings, domain.ErrAlreadyRunning
	}
	m.gen++
	gen := m.gen
	r := &run{
		record: domain.RunRecord{
			Identity:   identity,
			State:      domain.StateRunning,
			StartedAt:  time.Now(),
			Generation: gen,
		},
	}
	m.runs[identity] = r
	m.mu.Unlock()

	sess, err := m.admit(ctx, identity, params, r)
	if err != nil {
		m.unreserve(identity, gen)
		return warnings, err
	}

	// Finalize. A stop that raced the setup above wins: tear down now
	// instead of starting the watch.
	m.mu.Lock()
	r.session = sess
	r.record.SessionHandle = sess.ID
	if r.stopRequested {
		force := r.stopForce
		delete(m.runs, identity)
		m.mu.Unlock()
		if err := m.pool.Destroy(sess.ID, force); err != nil {
			m.logger.Warn("teardown after raced stop failed", "script", identity, "err", err)
		}
		m.emit(identity, domain.StateRunning, gen)
		m.emit(identity, domain.StateIdle, gen)
		return warnings, nil
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	m.mu.Unlock()

	// The running event is queued before the watch starts, so a settle can
	// never be observed ahead of it.
	m.logger.Info("script started", "script", identity, "session", sess.ID)
	m.emit(identity, domain.StateRunning, gen)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		outcome, settled := m.inferencer.Watch(watchCtx, sess.Surface)
		if settled {
			m.onSettled(identity, gen, outcome)
		}
	}()
	return warnings, nil
}

// admit runs the pre-flight steps: executable bit, security gate,
// confirmation, session acquisition, and command start.
func (m *Manager) admit(ctx context.Context, identity domain.ScriptIdentity, params string, r *run) (*pool.Session, error) {
	path := identity.String()

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	if err := ensureExecutable(path); err != nil {
		return nil, err
	}

	verdict := m.gate.Evaluate(string(body), params)
	switch verdict.Decision {
	case gate.Deny:
		m.logger.Warn("script denied", "script", identity, "rule", verdict.Rule)
		return nil, fmt.Errorf("%w: %s", domain.ErrSecurityDenied, verdict.Reason)
	case gate.Confirm:
		if err := m.confirm(ctx, identity, verdict.Reason); err != nil {
			return nil, err
		}
	default:
		if m.confirmAll {
			if err := m.confirm(ctx, identity, "confirmation required before every run"); err != nil {
				return nil, err
			}
		}
	}

	workdir := m.defaultDir
	if workdir == "" {
		workdir = filepath.Dir(path)
	}

	sess, err := m.pool.Acquire(ctx, m.reuse, identity, workdir, os.Environ())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionAcquisition, err)
	}

	command := shellQuote(path)
	if params != "" {
		// Appended verbatim; sanitization is advisory only.
		command += " " + params
	}

	if err := sess.Surface.Start(ctx, command); err != nil {
		if derr := m.pool.Destroy(sess.ID, true); derr != nil {
			m.logger.Warn("destroying unstartable session failed", "session", sess.ID, "err", derr)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionAcquisition, err)
	}
	return sess, nil
}

// confirm asks the user for explicit consent. No confirmer, a dismissal, or
// any prompt error all count as a decline.
func (m *Manager) confirm(ctx context.Context, identity domain.ScriptIdentity, reason string) error {
	if m.confirmer == nil {
		return fmt.Errorf("%w: no confirmer available (%s)", domain.ErrSecurityDeclined, reason)
	}
	prompt := fmt.Sprintf("%s: %s", identity, reason)
	ok, err := m.confirmer.Confirm(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSecurityDeclined, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSecurityDeclined, reason)
	}
	return nil
}

// unreserve removes a reservation that never became a live run. No event is
// emitted: the identity never left idle as far as observers are concerned.
func (m *Manager) unreserve(identity domain.ScriptIdentity, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[identity]; ok && r.record.Generation == gen {
		delete(m.runs, identity)
	}
}

// Stop terminates the run for identity. It is safe to call at any point
// after Request has returned, including before the session is confirmed
// started. Stop always wins a race with an in-flight settle signal.
func (m *Manager) Stop(ctx context.Context, identity domain.ScriptIdentity, mode domain.StopMode) error {
	m.mu.Lock()
	r, ok := m.runs[identity]
	if !ok {
		m.mu.Unlock()
		return domain.ErrNotRunning
	}

	if r.session == nil {
		// Session creation still in flight: mark for immediate teardown
		// once it completes rather than racing a half-built session.
		r.stopRequested = true
		r.stopForce = mode == domain.StopForce
		m.mu.Unlock()
		return nil
	}

	gen := r.record.Generation
	handle := r.record.SessionHandle
	if r.cancel != nil {
		r.cancel()
	}
	if r.grace != nil {
		r.grace.Stop()
	}
	// Removing the record here guarantees no settle event for this
	// generation can fire after the stop.
	delete(m.runs, identity)
	m.mu.Unlock()

	if err := m.pool.Destroy(handle, mode == domain.StopForce); err != nil {
		m.logger.Warn("session teardown failed", "script", identity, "err", err)
	}

	m.logger.Info("script stopped", "script", identity, "mode", mode)
	m.emit(identity, domain.StateIdle, gen)
	return nil
}

// onSettled transitions Running to Settled(outcome) and schedules the
// reversion to idle after the grace period. Stale generations (a stop beat
// the settle signal) are discarded.
func (m *Manager) onSettled(identity domain.ScriptIdentity, gen uint64, outcome domain.Outcome) {
	m.mu.Lock()
	r, ok := m.runs[identity]
	if !ok || r.record.Generation != gen || r.stopRequested {
		m.mu.Unlock()
		return
	}

	now := time.Now()
	r.record.State = outcome.State()
	r.record.EndedAt = &now
	if code, has := r.session.Surface.ExitCode(); has {
		r.record.LastExitHint = &code
	}
	handle := r.record.SessionHandle
	started := r.record.StartedAt
	r.grace = time.AfterFunc(m.grace, func() {
		m.revert(identity, gen)
	})
	m.mu.Unlock()

	m.pool.MarkSettled(handle, outcome)
	m.logger.Info("script settled", "script", identity, "outcome", outcome)
	m.emit(identity, outcome.State(), gen)
	m.appendHistory(identity, outcome, started, now)
}

// revert removes a settled record after the display grace period, emitting
// one more status event so observers can flip back to idle.
func (m *Manager) revert(identity domain.ScriptIdentity, gen uint64) {
	m.mu.Lock()
	r, ok := m.runs[identity]
	if !ok || r.record.Generation != gen {
		m.mu.Unlock()
		return
	}
	delete(m.runs, identity)
	handle := r.record.SessionHandle
	m.mu.Unlock()

	if m.keepOpen {
		m.pool.Release(handle)
	} else if err := m.pool.Destroy(handle, false); err != nil {
		m.logger.Warn("closing settled session failed", "script", identity, "err", err)
	}
	m.emit(identity, domain.StateIdle, gen)
}

// appendHistory records a settled run. Best-effort: failures are logged.
func (m *Manager) appendHistory(identity domain.ScriptIdentity, outcome domain.Outcome, started, ended time.Time) {
	if m.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.history.Append(ctx, domain.HistoryEntry{
		Identity:  identity,
		Outcome:   outcome,
		StartedAt: started,
		EndedAt:   ended,
	})
	if err != nil {
		m.logger.Warn("history append failed", "script", identity, "err", err)
	}
}

// Status returns the current state for identity. Repeated calls without an
// intervening transition return the same value.
func (m *Manager) Status(identity domain.ScriptIdentity) domain.RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[identity]; ok {
		return r.record.State
	}
	return domain.StateIdle
}

// Record returns a copy of the run record for identity, if one exists.
func (m *Manager) Record(identity domain.ScriptIdentity) (domain.RunRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[identity]; ok {
		return r.record, true
	}
	return domain.RunRecord{}, false
}

// Counts reports the pool summary.
func (m *Manager) Counts() domain.PoolCounts {
	return m.pool.Counts()
}

// Subscribe registers an observer for status-changed events. Events for a
// given identity arrive in transition order. The returned function removes
// the observer.
func (m *Manager) Subscribe(fn Observer) func() {
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Close cancels all watches, stops pending grace timers, and waits for the
// event dispatcher to drain. The pool is left to the caller.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		for id, r := range m.runs {
			if r.cancel != nil {
				r.cancel()
			}
			if r.grace != nil {
				r.grace.Stop()
			}
			delete(m.runs, id)
		}
		m.mu.Unlock()

		m.wg.Wait()
		close(m.closed)
		<-m.dispatchDone
	})
}

// emit queues a status event. Emissions happen in transition order per
// identity because every transition holds the manager mutex.
func (m *Manager) emit(identity domain.ScriptIdentity, state domain.RunState, gen uint64) {
	ev := domain.StatusEvent{
		Identity:   identity,
		State:      state,
		Generation: gen,
		At:         time.Now(),
	}
	select {
	case m.events <- ev:
	case <-m.closed:
	}
}

// dispatch delivers queued events to observers, one at a time, preserving
// queue order.
func (m *Manager) dispatch() {
	defer close(m.dispatchDone)
	for {
		select {
		case ev := <-m.events:
			m.deliver(ev)
		case <-m.closed:
			for {
				select {
				case ev := <-m.events:
					m.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) deliver(ev domain.StatusEvent) {
	m.mu.Lock()
	obs := make([]Observer, 0, len(m.observers))
	for _, fn := range m.observers {
		obs = append(obs, fn)
	}
	m.mu.Unlock()

	for _, fn := range obs {
		fn(ev)
	}
}

// ensureExecutable grants the execute bit when missing. A failed grant is
// fatal for the request, not retried.
func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat script: %w", err)
	}
	mode := info.Mode()
	if mode&0o111 != 0 {
		return nil
	}
	if err := os.Chmod(path, mode|0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPermissionGrant, err)
	}
	return nil
}

// shellQuote wraps the script path in single quotes so paths with spaces
// survive; parameters are never re-escaped.
func shellQuote(s string) string {
	if !strings.ContainsAny(s, " \t'\"\\$`&;|<>(){}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
