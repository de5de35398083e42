package ports

import (
	"context"

	"github.com/aretw0/scriptdeck/pkg/domain"
)

// Surface is a reusable execution surface: typically a terminal, sometimes a
// directly owned child process. The pool hands surfaces to the lifecycle;
// neither assumes more capability than this interface exposes.
//
// Liveness is polled, not pushed. A generic terminal does not notify when a
// command inside it finishes, only when the surface itself closes.
type Surface interface {
	// Start launches the command on the surface. Parameters are already
	// appended to the command text by the caller.
	Start(ctx context.Context, command string) error

	// Alive reports whether the surface still exists. Once false it never
	// becomes true again.
	Alive() bool

	// Owned reports whether the surface directly supervises its child
	// process and can capture a real exit code. Opaque interactive
	// terminals return false.
	Owned() bool

	// ExitCode returns the real exit code of the last command, if the
	// surface could capture one. ok is false until the command has exited,
	// and always false for non-owned surfaces.
	ExitCode() (code int, ok bool)

	// Close tears the surface down. force skips any graceful wind-down.
	Close(force bool) error
}

// SurfaceFactory creates execution surfaces. The working directory and
// environment snapshot are fixed at creation time.
type SurfaceFactory interface {
	New(ctx context.Context, workdir string, env []string) (Surface, error)
}

// Confirmer obtains explicit user consent before a suspicious command runs.
// A dismissal, timeout, or any error is treated as a decline.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmerFunc adapts a plain function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls the wrapped function.
func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// HistoryStore records settled runs. Implementations must be safe for
// concurrent use. The lifecycle treats the store as best-effort: append
// failures are logged, never surfaced to the caller.
type HistoryStore interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}
