// Package shell provides an execution surface backed by a directly owned
// shell child process. Because the child is supervised, a real exit code is
// captured and completion inference short-circuits to true status. The
// opaque-terminal fallback path in pkg/infer remains for deployments where
// the surface is an interactive terminal the program does not own.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/aretw0/scriptdeck/pkg/ports"
)

// DefaultShell is used when the factory is constructed without one.
const DefaultShell = "/bin/sh"

// Factory creates shell-backed surfaces.
type Factory struct {
	shell string
}

// Option configures the Factory.
type Option func(*Factory)

// WithShell overrides the shell binary used to host commands.
func WithShell(path string) Option {
	return func(f *Factory) {
		if path != "" {
			f.shell = path
		}
	}
}

// NewFactory creates a surface factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{shell: DefaultShell}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New creates an unstarted surface with the working directory and
// environment snapshot fixed now.
func (f *Factory) New(ctx context.Context, workdir string, env []string) (ports.Surface, error) {
	return &session{
		shell:   f.shell,
		workdir: workdir,
		env:     env,
	}, nil
}

var _ ports.SurfaceFactory = (*Factory)(nil)

type session struct {
	shell   string
	workdir string
	env     []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	exit    int
	exited  bool
	closed  bool
	started bool
}

// Start launches the command under the configured shell. A surface hosts at
// most one command at a time.
func (s *session) Start(ctx context.Context, command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("surface is closed")
	}
	if s.started && !s.exited {
		return errors.New("surface is busy")
	}

	cmd := exec.Command(s.shell, "-c", command)
	cmd.Dir = s.workdir
	cmd.Env = s.env
	// Own process group, so graceful stop signals the whole script.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	s.cmd = cmd
	s.started = true
	s.exited = false
	s.done = make(chan struct{})

	go s.reap(cmd, s.done)
	return nil
}

// reap waits for the child and records its exit code.
func (s *session) reap(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.exit = 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		s.exit = exitErr.ExitCode()
	} else if err != nil {
		s.exit = -1
	}
	s.exited = true
	close(done)
}

// Alive reports whether the surface still exists: created but unstarted,
// or hosting a live child.
func (s *session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if !s.started {
		return true
	}
	return !s.exited
}

// Owned reports true: the child is directly supervised.
func (s *session) Owned() bool {
	return true
}

// ExitCode returns the child's real exit code once it has exited.
func (s *session) ExitCode() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exited {
		return 0, false
	}
	return s.exit, true
}

// Close terminates the child if it is still running. Graceful close sends
// SIGTERM to the process group; force sends SIGKILL.
func (s *session) Close(force bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cmd := s.cmd
	running := s.started && !s.exited
	done := s.done
	s.mu.Unlock()

	if !running || cmd == nil || cmd.Process == nil {
		return nil
	}

	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	// Negative pid signals the process group created at start.
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil {
		// Group may already be gone; fall back to the direct child.
		if killErr := cmd.Process.Signal(sig); killErr != nil {
			return fmt.Errorf("signal child: %w", killErr)
		}
	}

	if done == nil {
		return nil
	}
	select {
	case <-done:
	case <-time.After(termGrace):
		// The child ignored SIGTERM; escalate.
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
	}
	return nil
}

// termGrace bounds how long a graceful close waits before escalating to
// SIGKILL.
const termGrace = 5 * time.Second
