package protocol

import (
	"strings"
	"time"
)

// The gateway reports timestamps in the account's local timezone with a bare US zone
// abbreviation, which the time package cannot resolve on its own.
var timezoneOffsets = map[string]int{
	"UT":   0,
	"UTC":  0,
	"GMT":  0,
	"EST":  -5 * 3600,
	"EDT":  -4 * 3600,
	"CST":  -6 * 3600,
	"CDT":  -5 * 3600,
	"MST":  -7 * 3600,
	"MDT":  -6 * 3600,
	"PST":  -8 * 3600,
	"PDT":  -7 * 3600,
	"HST":  -10 * 3600,
	"AKST": -9 * 3600,
	"AKDT": -8 * 3600,
}

var vendorTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
}

// parseVendorTime decodes a gateway timestamp. Returns the zero time if the value doesn't
// match any known layout; status timestamps are informational and a bad one should not fail
// the whole document.
func parseVendorTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}

	loc := time.UTC
	if i := strings.LastIndexByte(value, ' '); i > 0 {
		if offset, ok := timezoneOffsets[value[i+1:]]; ok {
			loc = time.FixedZone(value[i+1:], offset)
			value = strings.TrimSpace(value[:i])
		}
	}

	for _, layout := range vendorTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
