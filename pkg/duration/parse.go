package duration

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Unit factors in seconds.
const (
	secondsPerSecond = 1
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
)

// unitFactors lists every unit letter together with its factor. Each letter
// present in an expression contributes its factor once.
var unitFactors = []struct {
	letter string
	factor float64
}{
	{"d", secondsPerDay},
	{"m", secondsPerMinute},
	{"h", secondsPerHour},
	{"s", secondsPerSecond},
}

// ParseMillis converts an interval expression into milliseconds.
//
// It never fails: an expression without a numeric prefix yields NaN. Callers
// that need a usable duration should use ParseInterval instead.
func ParseMillis(expr string) float64 {
	seconds := leadingFloat(expr)
	for _, u := range unitFactors {
		if strings.Contains(expr, u.letter) {
			seconds *= u.factor
		}
	}
	return seconds * 1000
}

// ParseInterval converts an interval expression into a time.Duration.
// Returns ErrInvalidInterval when the result is NaN, infinite or negative.
func ParseInterval(expr string) (time.Duration, error) {
	ms := ParseMillis(expr)
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return 0, &IntervalError{Expr: expr}
	}
	d := ms * float64(time.Millisecond)
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if d >= math.MaxInt64 {
		return 0, &IntervalError{Expr: expr}
	}
	return time.Duration(d), nil
}

// IntervalError reports an interval expression that cannot be used.
type IntervalError struct {
	Expr string
}

func (e *IntervalError) Error() string {
	return "invalid interval " + strconv.Quote(e.Expr)
}

// Unwrap allows errors.Is(err, ErrInvalidInterval).
func (e *IntervalError) Unwrap() error {
	return ErrInvalidInterval
}

// leadingFloat parses the longest decimal prefix of s after leading
// whitespace, returning NaN if there is none.
func leadingFloat(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN()
	}

	// Optional exponent, only consumed when complete.
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		start := exp
		for exp < len(s) && isDigit(s[exp]) {
			exp++
		}
		if exp > start {
			end = exp
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
