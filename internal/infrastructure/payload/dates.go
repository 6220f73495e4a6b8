package payload

import (
	"regexp"
	"strings"
	"time"
)

// vendorDateTime matches "YYYY-MM-DD HH:mm[:ss]"
var vendorDateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}`)

// layouts with an explicit offset are parsed as-is; the rest are read in the caller's location
var (
	zonedLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05Z0700", "2006-01-02T15:04:05.999999999Z0700"}
	localLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}
)

// ParseTime parses ISO-8601 and the vendor "YYYY-MM-DD HH:mm:ss" form.
// Values without an offset are interpreted in loc. Invalid input is absent.
func ParseTime(v any, loc *time.Location) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if vendorDateTime.MatchString(s) {
		s = strings.Replace(s, " ", "T", 1)
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// OptTime returns the first parseable date under keys
func OptTime(r Record, loc *time.Location, keys ...string) *time.Time {
	for _, k := range keys {
		if t, ok := ParseTime(r[k], loc); ok {
			return &t
		}
	}
	return nil
}
