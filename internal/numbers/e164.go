package numbers

import "strings"

// NormalizeE164 converts a North American phone number to E.164.
//
//   - already "+"-prefixed: returned unchanged (after trimming spaces)
//   - 10 digits: "+1" prepended
//   - 11 digits starting with 1: "+" prepended
//   - anything else: digits only, "+" prepended when non-empty
//
// Normalizing an already normalized number is a no-op.
func NormalizeE164(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "+") {
		return s
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case digits == "":
		return ""
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	default:
		return "+" + digits
	}
}

// Candidates returns the lookup forms of a dialed number: the raw value first,
// then its normalized form when it differs.
func Candidates(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	out := []string{s}
	if n := NormalizeE164(s); n != "" && n != s {
		out = append(out, n)
	}
	return out
}
