package domain

import (
	"math"
	"time"
)

// unsetOffset marks a loop boundary that has never been assigned.
const unsetOffset = time.Duration(math.MinInt64)

// LoopRange is a begin/end window within a part that playback is constrained
// to repeat while looping is enabled.
type LoopRange struct {
	Begin time.Duration
	End   time.Duration
}

// NoLoopRange is the unset loop range.
var NoLoopRange = LoopRange{Begin: unsetOffset, End: unsetOffset}

// IsSet reports whether both boundaries have been assigned.
func (r LoopRange) IsSet() bool {
	return r.Begin != unsetOffset && r.End != unsetOffset
}

// Contains reports whether pos falls inside the loop window. The end boundary
// is exclusive: a position at End belongs to the next iteration and wraps back
// to Begin.
func (r LoopRange) Contains(pos time.Duration) bool {
	return r.IsSet() && pos > r.Begin && pos < r.End
}

// Coerce clamps pos into the loop window. Positions at or past End wrap to
// Begin rather than clamping to End, so a seek beyond the window restarts the
// loop instead of pinning playback at its edge.
func (r LoopRange) Coerce(pos time.Duration) time.Duration {
	if !r.IsSet() {
		return pos
	}
	if pos <= r.Begin || pos >= r.End {
		return r.Begin
	}
	return pos
}
