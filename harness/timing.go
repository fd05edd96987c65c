package harness

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrTimingNotFound is returned when output has no parseable
// "real XmY.YYYs" line.
var ErrTimingNotFound = errors.New("timing report not found")

// Seconds may use either '.' or ',' as the decimal separator depending on
// the locale of the shell that printed them.
var realTimePattern = regexp.MustCompile(`\breal\s+(\d+)m([\d.,]+)s`)

// ExtractDuration finds the "real" line of a time report anywhere in
// output and returns it in seconds.
func ExtractDuration(output string) (float64, error) {
	m := realTimePattern.FindStringSubmatch(output)
	if m == nil {
		return 0, fmt.Errorf("%w in output: %q", ErrTimingNotFound, excerpt(output))
	}

	minutes, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: minutes %q: %v", ErrTimingNotFound, m[1], err)
	}

	seconds, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: seconds %q: %v", ErrTimingNotFound, m[2], err)
	}

	return float64(minutes)*60 + seconds, nil
}
