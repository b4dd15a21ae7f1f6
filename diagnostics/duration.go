package diagnostics

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDuration = errors.New("invalid duration")

var durationTermRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zA-Z]+)\s*`)

var durationUnits = map[string]time.Duration{
	"ns":           time.Nanosecond,
	"nanosecond":   time.Nanosecond,
	"nanoseconds":  time.Nanosecond,
	"us":           time.Microsecond,
	"microsecond":  time.Microsecond,
	"microseconds": time.Microsecond,
	"ms":           time.Millisecond,
	"millisecond":  time.Millisecond,
	"milliseconds": time.Millisecond,
	"s":            time.Second,
	"sec":          time.Second,
	"secs":         time.Second,
	"second":       time.Second,
	"seconds":      time.Second,
	"m":            time.Minute,
	"t":            time.Minute,
	"min":          time.Minute,
	"mins":         time.Minute,
	"minute":       time.Minute,
	"minutes":      time.Minute,
	"h":            time.Hour,
	"hr":           time.Hour,
	"hrs":          time.Hour,
	"hour":         time.Hour,
	"hours":        time.Hour,
	"d":            24 * time.Hour,
	"day":          24 * time.Hour,
	"days":         24 * time.Hour,
	"w":            7 * 24 * time.Hour,
	"week":         7 * 24 * time.Hour,
	"weeks":        7 * 24 * time.Hour,
}

// ParseDuration parses window sizes written either as Go durations such as "72h" or as a sum of
// number and unit terms such as "365 days", "1 day 6 hours" or "30min". An empty string is unset
// and returns 0 with no error. Anything else that does not parse to a positive duration is an
// ErrInvalidDuration.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("%q is not positive, %w", s, ErrInvalidDuration)
		}
		return d, nil
	}

	matches := durationTermRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("%q, %w", s, ErrInvalidDuration)
	}

	var total time.Duration
	var pos int
	for _, m := range matches {
		// terms must cover the whole input back to back
		if m[0] != pos {
			return 0, fmt.Errorf("unexpected %q in %q, %w", s[pos:m[0]], s, ErrInvalidDuration)
		}
		pos = m[1]

		val, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
		if err != nil {
			return 0, fmt.Errorf("%q, %w", s, ErrInvalidDuration)
		}
		unit, exists := durationUnits[strings.ToLower(s[m[4]:m[5]])]
		if !exists {
			return 0, fmt.Errorf("unknown unit %q in %q, %w", s[m[4]:m[5]], s, ErrInvalidDuration)
		}
		term := val * float64(unit)
		if float64(total)+term >= math.MaxInt64 {
			return 0, fmt.Errorf("%q overflows a duration, %w", s, ErrInvalidDuration)
		}
		total += time.Duration(term)
	}
	if pos != len(s) {
		return 0, fmt.Errorf("unexpected %q in %q, %w", s[pos:], s, ErrInvalidDuration)
	}
	if total <= 0 {
		return 0, fmt.Errorf("%q is not positive, %w", s, ErrInvalidDuration)
	}
	return total, nil
}
