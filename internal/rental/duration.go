package rental

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Month is the fixed length of the "m" duration unit.
const Month = 30 * 24 * time.Hour

var durationUnits = map[byte]time.Duration{
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
	'm': Month,
}

// ParseDuration parses a rental duration such as "24h", "3d", "2w" or "1m".
// The unit is case-insensitive and the magnitude must be a positive integer.
func ParseDuration(spec string) (time.Duration, error) {
	spec = strings.TrimSpace(spec)
	if len(spec) < 2 {
		return 0, invalidDuration(spec)
	}

	unit, ok := durationUnits[lowerASCII(spec[len(spec)-1])]
	if !ok {
		return 0, invalidDuration(spec)
	}

	digits := spec[:len(spec)-1]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, invalidDuration(spec)
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 || n > math.MaxInt64/int64(unit) {
		return 0, invalidDuration(spec)
	}

	return time.Duration(n) * unit, nil
}

// FormatDuration renders d in the largest unit that divides it evenly, so
// ParseDuration(FormatDuration(d)) == d for any parsed duration.
func FormatDuration(d time.Duration) string {
	for _, u := range []struct {
		unit   time.Duration
		suffix string
	}{
		{Month, "m"},
		{7 * 24 * time.Hour, "w"},
		{24 * time.Hour, "d"},
	} {
		if d >= u.unit && d%u.unit == 0 {
			return strconv.FormatInt(int64(d/u.unit), 10) + u.suffix
		}
	}
	return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
}

func invalidDuration(spec string) error {
	return &ValidationError{
		Field:   "duration",
		Message: "use a number followed by h, d, w or m, e.g. 24h, 3d, 2w, 1m (got " + strconv.Quote(spec) + ")",
		Err:     ErrInvalidDuration,
	}
}

func lowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}
