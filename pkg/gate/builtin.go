package gate

import (
	"log/slog"
	"regexp"
)

// rawPattern is an uncompiled built-in rule.
type rawPattern struct {
	expr        string
	description string
}

// compiledPattern holds a compiled regex and its description.
type compiledPattern struct {
	regex       *regexp.Regexp
	description string
}

// destructivePatterns match commands that cause irreversible damage. A match
// is an unconditional Deny.
var destructivePatterns = []rawPattern{
	{`rm\s+(-[a-zA-Z]+\s+)*-?[a-zA-Z]*[rf][a-zA-Z]*[rf][a-zA-Z]*\s+/(\s|$|\*)`, "destructive filesystem wipe"},
	{`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`, "fork bomb"},
	{`dd\s+[^|;]*of=/dev/(sd|hd|nvme|vd|disk)`, "raw device overwrite"},
	{`mkfs(\.[a-z0-9]+)?\s+[^|;]*/dev/`, "filesystem format on a device"},
	{`>\s*/dev/(sd|hd|nvme|vd)[a-z0-9]*`, "raw device overwrite"},
	{`chmod\s+(-[a-zA-Z]+\s+)*-?[a-zA-Z]*R[a-zA-Z]*\s+[0-7]+\s+/(\s|$)`, "recursive permission reset on root"},
	{`chown\s+(-[a-zA-Z]+\s+)*-?[a-zA-Z]*R[a-zA-Z]*\s+\S+\s+/(\s|$)`, "recursive ownership reset on root"},
}

// suspiciousPatterns match commands that are not provably destructive but
// warrant explicit user confirmation.
var suspiciousPatterns = []rawPattern{
	{`(curl|wget)[^|;]*\|\s*(sudo\s+)?(ba|z|da)?sh`, "remote script piped straight into a shell"},
	{`eval\s+("\$|\$\(|` + "`" + `)`, "dynamic evaluation of computed content"},
	{`base64\s+(-d|--decode)[^|;]*\|\s*(sudo\s+)?(ba|z|da)?sh`, "decoded payload piped into a shell"},
	{`\|\s*(sudo\s+)?(ba|z|da)?sh\s+-s`, "piped input executed by a shell"},
}

// compilePatterns compiles built-in rules. An invalid pattern is logged and
// skipped, not fatal.
func compilePatterns(patterns []rawPattern, category string, logger *slog.Logger) []compiledPattern {
	result := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.expr)
		if err != nil {
			logger.Warn("invalid built-in pattern skipped",
				"category", category,
				"pattern", p.expr,
				"err", err,
			)
			continue
		}
		result = append(result, compiledPattern{regex: re, description: p.description})
	}
	return result
}
