package core

import (
	"regexp"
	"strings"
)

// postcodeRE matches the first UK-style postcode inside free-form text:
// either the GIR 0AA special case or outward code (one or two letters,
// one or two digits, optional trailing letter) plus inward code (digit,
// two letters), case-insensitive.
var postcodeRE = regexp.MustCompile(`(?i)\b(?:GIR ?0[A-Z]{2}|[A-Z]{1,2}[0-9]{1,2}[A-Z]?\s?[0-9][A-Z]{2})\b`)

// ExtractPostcode locates a UK postcode substring inside address text.
// This is best-effort normalization, not validation: when nothing in the
// input matches the grammar, the trimmed original value passes through
// unchanged rather than being rejected.
func ExtractPostcode(s string) string {
	s = strings.TrimSpace(s)
	if m := postcodeRE.FindString(s); m != "" {
		return strings.TrimSpace(m)
	}
	return s
}
