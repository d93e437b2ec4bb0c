package validation

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/breathesafe/air-quality-service/internal/models"
)

// ErrUserIDEmpty is returned when the user id is empty or whitespace-only after trim.
var ErrUserIDEmpty = errors.New("user id is required")

// ErrUserIDTooLong is returned when the user id length exceeds the maximum.
var ErrUserIDTooLong = errors.New("user id too long")

// ErrUserIDInvalidChars is returned when the user id contains disallowed characters.
var ErrUserIDInvalidChars = errors.New("user id contains invalid characters")

// ErrTimestampInvalid is returned when a start or end parameter does not parse as RFC 3339.
var ErrTimestampInvalid = errors.New("timestamp must be RFC 3339")

// ErrRangeInverted is returned when end is not after start.
var ErrRangeInverted = errors.New("end must be after start")

// ErrRangeTooWide is returned when the requested range exceeds the maximum span.
var ErrRangeTooWide = errors.New("requested range too wide")

// ErrIntervalInvalid is returned when the interval parameter is not a positive hour count.
var ErrIntervalInvalid = errors.New("interval must be a positive number of hours")

// MaxUserIDLen bounds user id length in runes.
const MaxUserIDLen = 64

// ValidateUserID trims the input, enforces the length bound, and restricts to
// letters (Unicode), digits, hyphen and underscore. Returns the trimmed id or
// an error suitable for 400 INVALID_USER responses.
func ValidateUserID(input string) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) == 0 {
		return "", ErrUserIDEmpty
	}
	if len(r) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	for _, c := range r {
		if !isAllowedUserIDRune(c) {
			return "", ErrUserIDInvalidChars
		}
	}
	return s, nil
}

// isAllowedUserIDRune returns true for letters (Unicode), digits, hyphen, underscore.
func isAllowedUserIDRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case '-', '_':
		return true
	}
	return false
}

// ParseTimeRange parses start and end as RFC 3339 timestamps and enforces
// ordering plus an optional maximum span (0 disables the span check).
func ParseTimeRange(start, end string, maxSpan time.Duration) (models.TimeRange, error) {
	s, err := time.Parse(time.RFC3339, strings.TrimSpace(start))
	if err != nil {
		return models.TimeRange{}, ErrTimestampInvalid
	}
	e, err := time.Parse(time.RFC3339, strings.TrimSpace(end))
	if err != nil {
		return models.TimeRange{}, ErrTimestampInvalid
	}
	if !e.After(s) {
		return models.TimeRange{}, ErrRangeInverted
	}
	if maxSpan > 0 && e.Sub(s) > maxSpan {
		return models.TimeRange{}, ErrRangeTooWide
	}
	return models.TimeRange{Start: s, End: e}, nil
}

// ParseIntervalHours parses the interval query parameter as a positive hour
// count, returning the fallback when the parameter is absent.
func ParseIntervalHours(input string, fallback int) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, ErrIntervalInvalid
	}
	return n, nil
}
