package gate

import (
	"log/slog"
	"strings"

	"github.com/aretw0/scriptdeck/internal/logging"
)

// Decision is the outcome of a security evaluation.
type Decision int

const (
	// Allow lets the command run without interaction.
	Allow Decision = iota
	// Deny blocks the command outright.
	Deny
	// Confirm requires explicit user consent before the command may run.
	Confirm
)

// String returns a human-readable representation of a Decision.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Confirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// Verdict is the result of evaluating a candidate command. Rule carries the
// matched rule text (or pattern description) for Deny and Confirm.
type Verdict struct {
	Decision Decision
	Rule     string
	Reason   string
}

// Gate evaluates candidate commands against user rule lists and built-in
// patterns. Evaluation is pure: no side effects, deterministic tier order
// (whitelist, blacklist, built-in, heuristic), first match wins within a
// tier. The whitelist always wins, even over the blacklist.
type Gate struct {
	whitelist []string
	blacklist []string

	destructive []compiledPattern
	suspicious  []compiledPattern

	logger *slog.Logger
}

// Option configures the Gate.
type Option func(*Gate)

// WithLogger configures a logger for rule-compilation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// New creates a Gate with the given user whitelist and blacklist. Built-in
// destructive and suspicious patterns are always active.
func New(whitelist, blacklist []string, opts ...Option) *Gate {
	g := &Gate{
		whitelist: whitelist,
		blacklist: blacklist,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.destructive = compilePatterns(destructivePatterns, "destructive", g.logger)
	g.suspicious = compilePatterns(suspiciousPatterns, "suspicious", g.logger)
	return g
}

// Evaluate checks the combined command and parameter text.
//
// Tier order:
//  1. whitelist substring match: short-circuit Allow
//  2. blacklist substring match: Deny, matched entry as reason
//  3. built-in destructive regex: Deny, matched text as reason
//  4. heuristic suspicious regex: Confirm, with a description
func (g *Gate) Evaluate(commandText, parameters string) Verdict {
	text := commandText
	if parameters != "" {
		text += " " + parameters
	}

	for _, entry := range g.whitelist {
		if entry != "" && strings.Contains(text, entry) {
			return Verdict{Decision: Allow, Rule: entry}
		}
	}

	for _, entry := range g.blacklist {
		if entry != "" && strings.Contains(text, entry) {
			return Verdict{
				Decision: Deny,
				Rule:     entry,
				Reason:   "matches blacklist entry " + entry,
			}
		}
	}

	for _, cp := range g.destructive {
		if match := cp.regex.FindString(text); match != "" {
			return Verdict{
				Decision: Deny,
				Rule:     match,
				Reason:   cp.description + ": " + match,
			}
		}
	}

	for _, cp := range g.suspicious {
		if match := cp.regex.FindString(text); match != "" {
			return Verdict{
				Decision: Confirm,
				Rule:     match,
				Reason:   cp.description,
			}
		}
	}

	return Verdict{Decision: Allow}
}
