// -----------------------------------------------------------------------
// Time Window Gate - manual batch admission check
// -----------------------------------------------------------------------

package window

import (
	"fmt"
	"time"

	"github.com/ternarybob/aditus/internal/common"
)

// Gate is a stateless predicate over a configured daily operating window
// `[start, end)` in a civil timezone, possibly spanning midnight. Manual
// batch submissions outside the window are rejected to bound resource
// cost; the scheduler is not subject to it.
type Gate struct {
	cfg common.WindowConfig
	now func() time.Time
}

// Decision is the structured answer returned to the HTTP boundary.
type Decision struct {
	Allowed  bool       `json:"allowed"`
	Window   string     `json:"window,omitempty"`
	NextOpen *time.Time `json:"next_open,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// NewGate builds the gate from configuration.
func NewGate(cfg common.WindowConfig) *Gate {
	return &Gate{cfg: cfg, now: time.Now}
}

// Allows reports whether "now" falls inside the operating window. A
// disabled gate always allows.
func (g *Gate) Allows() bool {
	return g.Check().Allowed
}

// Check evaluates the window and, when closed, estimates the next open
// instant.
func (g *Gate) Check() Decision {
	if !g.cfg.Enabled {
		return Decision{Allowed: true}
	}

	loc, err := time.LoadLocation(g.cfg.Timezone)
	if err != nil {
		// A misconfigured zone must not lock operators out.
		return Decision{Allowed: true}
	}

	local := g.now().In(loc)
	cur := local.Hour()*60 + local.Minute()
	start := g.cfg.StartHour*60 + g.cfg.StartMinute
	end := g.cfg.EndHour*60 + g.cfg.EndMinute

	var inside bool
	if start <= end {
		inside = cur >= start && cur < end
	} else {
		// Window spans midnight, e.g. 22:00 to 02:00.
		inside = cur >= start || cur < end
	}

	window := fmt.Sprintf("%02d:%02d-%02d:%02d %s",
		g.cfg.StartHour, g.cfg.StartMinute, g.cfg.EndHour, g.cfg.EndMinute, g.cfg.Timezone)

	if inside {
		return Decision{Allowed: true, Window: window}
	}

	nextOpen := time.Date(local.Year(), local.Month(), local.Day(), g.cfg.StartHour, g.cfg.StartMinute, 0, 0, loc)
	if !nextOpen.After(local) {
		nextOpen = nextOpen.AddDate(0, 0, 1)
	}

	return Decision{
		Allowed:  false,
		Window:   window,
		NextOpen: &nextOpen,
		Reason:   fmt.Sprintf("outside operating window, next opens in %s", nextOpen.Sub(local).Round(time.Minute)),
	}
}
