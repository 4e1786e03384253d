// utils/timeutil.go
package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: clock %q", ErrInvalidInput, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("%w: clock %q", ErrInvalidInput, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: clock %q", ErrInvalidInput, s)
	}
	return h*60 + m, nil
}

// MustClock is ParseClock for constants.
func MustClock(s string) int {
	v, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

const isoDate = "2006-01-02"

// ParseDate accepts ISO dates only.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(isoDate, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	return t, nil
}

// AddDays returns the ISO date offset days after start, or "" when start is empty or invalid.
func AddDays(start string, offset int) string {
	if start == "" {
		return ""
	}
	t, err := ParseDate(start)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, offset).Format(isoDate)
}

// DaysBetween counts the inclusive number of days from start to end.
func DaysBetween(start, end string) (int, error) {
	s, err := ParseDate(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return 0, err
	}
	if e.Before(s) {
		return 0, fmt.Errorf("%w: end %s before start %s", ErrInvalidInput, end, start)
	}
	return int(e.Sub(s).Hours()/24) + 1, nil
}
