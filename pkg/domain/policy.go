package domain

import "fmt"

// ReusePolicy governs whether a new run may reuse an existing terminal
// session instead of creating a fresh one.
type ReusePolicy int

const (
	// ReuseNever always creates a fresh session.
	ReuseNever ReusePolicy = iota
	// ReuseAlways reuses any live session regardless of its status. The
	// prior binding, if any, is released first.
	ReuseAlways
	// ReuseSmart reuses only a session that is not bound to a running
	// record (unbound or settled).
	ReuseSmart
)

// String returns the configuration spelling of the policy.
func (p ReusePolicy) String() string {
	switch p {
	case ReuseNever:
		return "never"
	case ReuseAlways:
		return "always"
	case ReuseSmart:
		return "smart"
	default:
		return "unknown"
	}
}

// ParseReusePolicy converts a configuration string into a ReusePolicy.
func ParseReusePolicy(s string) (ReusePolicy, error) {
	switch s {
	case "never":
		return ReuseNever, nil
	case "always":
		return ReuseAlways, nil
	case "smart", "":
		return ReuseSmart, nil
	default:
		return ReuseSmart, fmt.Errorf("unknown reuse policy %q", s)
	}
}
