package core

import (
	"strings"
	"time"
)

// headerModeDateLayouts are tried in order when no profile pins down the
// notation. The list stops at the first match, so day-first beats
// month-first for ambiguous values like 01/02/2024.
var headerModeDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
}

// strftimeTokens maps the notation tokens accepted in profile date
// formats to Go reference layouts. Profiles persist strftime-style
// formats (%Y-%m-%d and friends) so stored configurations stay portable
// across importer implementations.
var strftimeTokens = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'b': "Jan",
	'B': "January",
}

// TranslateDateFormat converts a strftime-style notation string to a Go
// time layout. Unrecognized tokens are kept literally; dates then fail
// per row, which surfaces the misconfiguration without aborting the
// import.
func TranslateDateFormat(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		next := format[i]
		if next == '%' {
			b.WriteByte('%')
			continue
		}
		if layout, ok := strftimeTokens[next]; ok {
			b.WriteString(layout)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(next)
	}
	return b.String()
}

// parseDate tries the layouts in order, stopping at the first match.
// Blank input never parses.
func parseDate(value string, layouts []string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
