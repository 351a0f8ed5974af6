package auth

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// unixMillisThreshold separates Unix seconds from Unix milliseconds. Seconds
// values stay below it until the year 33658.
const unixMillisThreshold = 1e12

// maxUnixMillis is the last millisecond of year 9999. Larger numbers are
// not expirations and would overflow int64 once converted.
const maxUnixMillis = 253402300799999

// instantLayouts are the textual timestamp formats accepted for the session
// expiration, tried in order.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseInstant interprets a stored expiration as an absolute instant.
// Accepts RFC 3339 (with or without fractional seconds), zone-less ISO
// timestamps (read as UTC), and Unix seconds or milliseconds.
func ParseInstant(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 || n > maxUnixMillis {
			return time.Time{}, false
		}
		if n >= unixMillisThreshold {
			return time.UnixMilli(int64(n)).UTC(), true
		}
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}

	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Expired reports whether a stored expiration is at or before now. Missing
// or unparseable values count as expired.
func Expired(raw string, now time.Time) bool {
	t, ok := ParseInstant(raw)
	if !ok {
		return true
	}
	return !t.After(now)
}

// remainingSeconds returns the whole seconds from now until t, rounded up.
// Zero means t is not in the future.
func remainingSeconds(t, now time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
