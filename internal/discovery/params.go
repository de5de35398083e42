package discovery

import (
	"regexp"
	"strconv"
)

// placeholderRe matches positional parameter references: $1..$9 and ${10}
// style.
var placeholderRe = regexp.MustCompile(`\$(\d)|\$\{(\d+)\}`)

// CountPlaceholders statically scans a script body and returns the highest
// positional parameter index it references. It is a display hint, not an
// execution contract; $0 does not count.
func CountPlaceholders(body string) int {
	max := 0
	for _, m := range placeholderRe.FindAllStringSubmatch(body, -1) {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max
}
