package tourney

import (
	"fmt"
	"math"
)

// FormatRunTime renders a raw run duration in seconds as the canonical
// human string: M:SS.mmm, with an hour part only when needed.
func FormatRunTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "0:00.000"
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	ms %= 3_600_000
	m := ms / 60_000
	ms %= 60_000
	s := ms / 1000
	ms %= 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%d:%02d.%03d", m, s, ms)
}
