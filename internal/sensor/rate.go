package sensor

import (
	"fmt"
	"strings"
	"time"
)

// RateHint is the requested delay between events. The Manager treats it as a
// hint and polls at the matching interval.
type RateHint time.Duration

const (
	RateFastest RateHint = 0
	RateGame    RateHint = RateHint(20 * time.Millisecond)
	RateUI      RateHint = RateHint(66667 * time.Microsecond)
	RateNormal  RateHint = RateHint(200 * time.Millisecond)
)

// minInterval bounds RateFastest so a poll loop never spins.
const minInterval = 5 * time.Millisecond

// Interval returns the poll interval for the hint.
func (r RateHint) Interval() time.Duration {
	d := time.Duration(r)
	if d < minInterval {
		return minInterval
	}
	return d
}

func (r RateHint) String() string {
	switch r {
	case RateFastest:
		return "fastest"
	case RateGame:
		return "game"
	case RateUI:
		return "ui"
	case RateNormal:
		return "normal"
	default:
		return time.Duration(r).String()
	}
}

// ParseRateHint parses "normal", "ui", "game" or "fastest".
func ParseRateHint(s string) (RateHint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "":
		return RateNormal, nil
	case "ui":
		return RateUI, nil
	case "game":
		return RateGame, nil
	case "fastest":
		return RateFastest, nil
	default:
		return 0, fmt.Errorf("unknown sensor rate %q (want normal, ui, game or fastest)", s)
	}
}
