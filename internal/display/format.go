package display

import (
	"strings"
	"unicode/utf8"

	"github.com/ItsDanik/rfidisk/internal/state"
)

// Per-line character limits imposed by the device's display buffer.
var lineLimits = [4]int{20, 20, 14, 14}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Format renders the wire command "D|l1|l2|l3|l4|icon" without the trailing
// newline. Lines are truncated to the device limits and pipes become
// underscores.
func Format(lines state.Lines, icon string) string {
	var b strings.Builder
	b.WriteString("D")
	for i, l := range lines {
		b.WriteByte('|')
		b.WriteString(strings.ReplaceAll(Truncate(l, lineLimits[i]), "|", "_"))
	}
	b.WriteByte('|')
	b.WriteString(icon)
	return b.String()
}
