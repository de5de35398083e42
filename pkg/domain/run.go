package domain

import "time"

// ScriptIdentity is the stable key for a runnable script: its absolute path.
// It is the sole lookup key for lifecycle state.
type ScriptIdentity string

// String returns the underlying path.
func (s ScriptIdentity) String() string {
	return string(s)
}

// RunState describes where a script is in its execution lifecycle.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateSuccess
	StateFailed
)

// String returns a human-readable representation of a RunState.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether the state is terminal (Success or Failed).
func (s RunState) Settled() bool {
	return s == StateSuccess || s == StateFailed
}

// Outcome is the terminal result of a run.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
)

// String returns a human-readable representation of an Outcome.
func (o Outcome) String() string {
	if o == OutcomeFailed {
		return "failed"
	}
	return "success"
}

// State maps the outcome to its corresponding terminal RunState.
func (o Outcome) State() RunState {
	if o == OutcomeFailed {
		return StateFailed
	}
	return StateSuccess
}

// StopMode selects how a run should be terminated.
type StopMode int

const (
	// StopGraceful asks the session surface to wind down (SIGTERM for owned
	// processes).
	StopGraceful StopMode = iota
	// StopForce tears the surface down immediately.
	StopForce
)

// RunRecord is the lifecycle entry for one active (or recently settled) run.
// It is owned exclusively by the lifecycle manager; callers receive copies.
type RunRecord struct {
	Identity      ScriptIdentity `json:"identity"`
	SessionHandle string         `json:"session_handle"`
	State         RunState       `json:"state"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       *time.Time     `json:"ended_at,omitempty"`
	// LastExitHint is the real exit code when the session surface could
	// capture one; nil when completion was inferred.
	LastExitHint *int `json:"last_exit_hint,omitempty"`
	// Generation discriminates async callbacks belonging to an earlier run
	// of the same identity after a stop.
	Generation uint64 `json:"generation"`
}

// PoolCounts summarizes the terminal pool for status displays.
type PoolCounts struct {
	Total     int `json:"total"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
