// Package infer decides when a run should leave the "running" state in the
// absence of a reliable exit-code channel.
//
// Two independent signals end inference, whichever fires first: the session
// surface closing (authoritative), or a bounded quiet delay after which the
// run is assumed to have finished. A generic terminal cannot report the
// exit status of a command it hosted, so a closed surface always resolves
// to success. This is a known accuracy limit, not a bug: the inferencer is
// failure-blind for opaque surfaces. Surfaces that own their child process
// report a real exit code and are preferred when available.
package infer

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/scriptdeck/internal/logging"
	"github.com/aretw0/scriptdeck/pkg/domain"
	"github.com/aretw0/scriptdeck/pkg/ports"
)

// Defaults tuned to "most scripts finish in low single-digit seconds".
const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultQuietDelay   = 3 * time.Second
	DefaultHardCeiling  = 30 * time.Minute
)

// Inferencer watches session surfaces and infers run completion.
type Inferencer struct {
	poll    time.Duration
	quiet   time.Duration
	ceiling time.Duration
	logger  *slog.Logger
}

// Option configures the Inferencer.
type Option func(*Inferencer)

// WithPollInterval sets the liveness polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(i *Inferencer) {
		if d > 0 {
			i.poll = d
		}
	}
}

// WithQuietDelay sets the fallback delay after which a still-open opaque
// surface is assumed to have finished its command.
func WithQuietDelay(d time.Duration) Option {
	return func(i *Inferencer) {
		if d > 0 {
			i.quiet = d
		}
	}
}

// WithHardCeiling sets the unconditional upper bound on inference,
// regardless of surface state.
func WithHardCeiling(d time.Duration) Option {
	return func(i *Inferencer) {
		if d > 0 {
			i.ceiling = d
		}
	}
}

// WithLogger configures a logger for recovered inference errors.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inferencer) {
		i.logger = logger
	}
}

// New creates an Inferencer with the given options.
func New(opts ...Option) *Inferencer {
	i := &Inferencer{
		poll:    DefaultPollInterval,
		quiet:   DefaultQuietDelay,
		ceiling: DefaultHardCeiling,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Watch blocks until completion is inferred or ctx is canceled.
// settled is false only when the watch was canceled; in that case the
// outcome must be ignored.
//
// For owned surfaces the quiet-delay fallback is disabled and the real exit
// code decides the outcome. For opaque surfaces the inferencer never
// reports failure on its own.
func (i *Inferencer) Watch(ctx context.Context, surface ports.Surface) (outcome domain.Outcome, settled bool) {
	// The settle path must never panic past this boundary; an internal
	// inference error degrades to assumed success.
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("completion inference panicked, assuming success", "panic", r)
			outcome = domain.OutcomeSuccess
			settled = true
		}
	}()

	ticker := time.NewTicker(i.poll)
	defer ticker.Stop()

	deadline := time.NewTimer(i.ceiling)
	defer deadline.Stop()

	var quiet <-chan time.Time
	if !surface.Owned() {
		t := time.NewTimer(i.quiet)
		defer t.Stop()
		quiet = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return domain.OutcomeSuccess, false

		case <-quiet:
			// Surface still open, no stop issued: declared settled,
			// assumed successful.
			return domain.OutcomeSuccess, true

		case <-deadline.C:
			i.logger.Warn("hard ceiling reached, ending inference", "ceiling", i.ceiling)
			return i.resolve(surface), true

		case <-ticker.C:
			if !surface.Alive() {
				return i.resolve(surface), true
			}
		}
	}
}

// resolve maps the surface's final state to an outcome. Without a captured
// exit code a closed surface resolves to success, because the real status
// cannot be recovered from a closed surface alone.
func (i *Inferencer) resolve(surface ports.Surface) domain.Outcome {
	if code, ok := surface.ExitCode(); ok && code != 0 {
		return domain.OutcomeFailed
	}
	return domain.OutcomeSuccess
}
