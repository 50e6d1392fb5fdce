package logging

import "strings"

// StripANSI removes CSI escape sequences (ESC [ ... final byte) from s.
// Module commands often colour their output for terminals.
func StripANSI(s string) string {
	if !strings.Contains(s, "\x1b[") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != 0x1b || i+1 >= len(s) || s[i+1] != '[' {
			b.WriteByte(s[i])
			continue
		}
		for i += 2; i < len(s); i++ {
			if s[i] >= 0x40 && s[i] <= 0x7e {
				break
			}
		}
	}
	return b.String()
}
