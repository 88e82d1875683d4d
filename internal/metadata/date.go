// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"strconv"
	"strings"
	"time"
)

const pdfDateLayout = "20060102150405"

// PDFDate converts a PDF date string (D:YYYYMMDDHHmmSSOHH'mm') to RFC 3339.
// Any prefix of the date part down to the year is accepted. Strings that do
// not parse are returned unchanged.
func PDFDate(s string) string {
	raw := strings.TrimSpace(s)
	v := strings.TrimPrefix(raw, "D:")

	n := 0
	for n < len(v) && v[n] >= '0' && v[n] <= '9' {
		n++
	}
	digits, zone := v[:n], v[n:]
	if n < 4 || n > len(pdfDateLayout) || n%2 != 0 {
		return raw
	}

	loc, ok := pdfZone(zone)
	if !ok {
		return raw
	}
	t, err := time.ParseInLocation(pdfDateLayout[:n], digits, loc)
	if err != nil {
		return raw
	}
	return t.Format(time.RFC3339)
}

// pdfZone parses the trailing offset: empty, Z, or +HH'mm' / -HH'mm'.
func pdfZone(zone string) (*time.Location, bool) {
	zone = strings.TrimSuffix(zone, "'")
	if zone == "" || strings.HasPrefix(zone, "Z") {
		return time.UTC, true
	}

	sign := 1
	switch zone[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, false
	}

	parts := strings.SplitN(zone[1:], "'", 2)
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours > 23 {
		return nil, false
	}
	minutes := 0
	if len(parts) == 2 && parts[1] != "" {
		if minutes, err = strconv.Atoi(parts[1]); err != nil || minutes > 59 {
			return nil, false
		}
	}
	return time.FixedZone("", sign*(hours*3600+minutes*60)), true
}
