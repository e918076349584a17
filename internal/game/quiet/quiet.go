// Package quiet implements the quiet-hours gate: a nightly window during
// which new game sessions are refused. In-progress sessions are unaffected.
package quiet

import "time"

// Window describes a quiet-hours configuration.
type Window struct {
	// Start and End are clock times in "HH:MM" form. A window where
	// Start > End wraps past midnight.
	Start string
	End   string
	// Override forces quiet hours on regardless of the time of day.
	Override bool
}

// Active reports whether quiet hours are in effect at the given moment.
//
// The manual override wins over the clock. Otherwise: equal bounds mean the
// window is disabled; Start < End means quiet when now is in [Start, End);
// Start > End means the window wraps midnight and is quiet when
// now >= Start or now < End.
func (w Window) Active(now time.Time) bool {
	if w.Override {
		return true
	}
	if w.Start == w.End {
		return false
	}

	clock := now.Format("15:04")
	if w.Start < w.End {
		return clock >= w.Start && clock < w.End
	}
	return clock >= w.Start || clock < w.End
}
