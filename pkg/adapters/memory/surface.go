// Package memory provides in-memory adapters: a scriptable execution
// surface used throughout the test suites, and a HistoryStore for
// deployments without a persistence backend.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/scriptdeck/pkg/ports"
)

// Surface is a scriptable in-memory execution surface. It models an opaque
// interactive terminal by default: alive until explicitly closed, no exit
// code. Tests flip its knobs to simulate surface-closed signals and owned
// children.
type Surface struct {
	mu       sync.Mutex
	alive    bool
	owned    bool
	exit     int
	hasExit  bool
	started  []string
	startErr error
	closes   int
	forced   bool
}

// NewSurface returns a live, opaque surface.
func NewSurface() *Surface {
	return &Surface{alive: true}
}

// Start records the command.
func (s *Surface) Start(ctx context.Context, command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return errors.New("surface is closed")
	}
	if s.startErr != nil {
		return s.startErr
	}
	s.started = append(s.started, command)
	return nil
}

// Alive reports whether the surface is open.
func (s *Surface) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Owned reports whether the surface pretends to supervise its child.
func (s *Surface) Owned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owned
}

// ExitCode returns the configured exit code, if any.
func (s *Surface) ExitCode() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exit, s.hasExit
}

// Close marks the surface closed.
func (s *Surface) Close(force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	s.closes++
	s.forced = s.forced || force
	return nil
}

// SetOwned flips the surface into owned-child mode.
func (s *Surface) SetOwned(owned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned = owned
}

// SetExit configures the exit code reported after Exit or Close.
func (s *Surface) SetExit(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exit = code
	s.hasExit = true
}

// Exit simulates the hosted command (and surface) terminating.
func (s *Surface) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
}

// FailStart makes subsequent Start calls return err.
func (s *Surface) FailStart(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startErr = err
}

// Started returns the commands started on this surface.
func (s *Surface) Started() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.started))
	copy(out, s.started)
	return out
}

// Closes returns how many times Close was called.
func (s *Surface) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

var _ ports.Surface = (*Surface)(nil)

// Factory hands out pre-built surfaces, creating fresh opaque ones when its
// queue is exhausted. It records every creation request.
type Factory struct {
	mu      sync.Mutex
	queue   []*Surface
	created []*Surface
	err     error
	dirs    []string
}

// NewFactory creates an empty factory.
func NewFactory(prepared ...*Surface) *Factory {
	return &Factory{queue: prepared}
}

// Fail makes subsequent New calls return err.
func (f *Factory) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// New returns the next prepared surface or a fresh opaque one.
func (f *Factory) New(ctx context.Context, workdir string, env []string) (ports.Surface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	var s *Surface
	if len(f.queue) > 0 {
		s = f.queue[0]
		f.queue = f.queue[1:]
	} else {
		s = NewSurface()
	}
	f.created = append(f.created, s)
	f.dirs = append(f.dirs, workdir)
	return s, nil
}

// Created returns every surface the factory has handed out.
func (f *Factory) Created() []*Surface {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Surface, len(f.created))
	copy(out, f.created)
	return out
}

// Workdirs returns the working directories requested so far.
func (f *Factory) Workdirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.dirs))
	copy(out, f.dirs)
	return out
}

var _ ports.SurfaceFactory = (*Factory)(nil)
