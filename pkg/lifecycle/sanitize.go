package lifecycle

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultMaxParamSize is the advisory size limit for a parameter string.
const DefaultMaxParamSize = 4096

// metachars are shell characters worth flagging to the user. Their presence
// is advisory, never a block: the security gate is the actual boundary.
const metachars = ";&|<>`$(){}" + `"'\`

// ParamWarnings inspects a parameter string and returns human-readable
// warnings for anything suspicious: shell metacharacters, control
// characters, or an oversized argument list.
func ParamWarnings(params string) []string {
	var warnings []string

	if len(params) > DefaultMaxParamSize {
		warnings = append(warnings, fmt.Sprintf("parameters are unusually large (%d bytes)", len(params)))
	}

	if found := foundMetachars(params); found != "" {
		warnings = append(warnings, fmt.Sprintf("parameters contain shell metacharacters (%s); they are passed to the shell verbatim", found))
	}

	for _, r := range params {
		if unicode.IsControl(r) && r != '\t' {
			warnings = append(warnings, "parameters contain control characters")
			break
		}
	}

	return warnings
}

// foundMetachars returns the distinct metacharacters present, in metachars
// order.
func foundMetachars(s string) string {
	var b strings.Builder
	for _, c := range metachars {
		if strings.ContainsRune(s, c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}
