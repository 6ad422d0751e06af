package domain

import (
	"time"
)

// EffectKind enumerates the operations that can be applied to a graph node.
type EffectKind int

const (
	// EffectStart starts or resumes the node.
	EffectStart EffectKind = iota

	// EffectStop halts the node without resetting its playhead.
	EffectStop

	// EffectReset rewinds the node's playhead to zero.
	EffectReset

	// EffectSeek moves the node's playhead to Position.
	EffectSeek

	// EffectSetGain sets the node's output gain to Gain.
	EffectSetGain

	// EffectSetTrim constrains the node to the [TrimBegin, TrimEnd) window.
	EffectSetTrim

	// EffectSetSpeed sets the playback-speed factor to Speed.
	EffectSetSpeed

	// EffectSetLoopCount sets the node's loop iteration count. Zero disables
	// node-level looping, a negative count loops forever.
	EffectSetLoopCount
)

// String returns a human-readable representation of the effect kind.
func (k EffectKind) String() string {
	switch k {
	case EffectStart:
		return "start"
	case EffectStop:
		return "stop"
	case EffectReset:
		return "reset"
	case EffectSeek:
		return "seek"
	case EffectSetGain:
		return "set_gain"
	case EffectSetTrim:
		return "set_trim"
	case EffectSetSpeed:
		return "set_speed"
	case EffectSetLoopCount:
		return "set_loop_count"
	default:
		return "unknown"
	}
}

// Effect is a single side effect to apply to the audio graph.
//
// State transitions never touch the graph directly. Instead every mutation
// returns the list of effects it implies and the controller replays them onto
// the node bound to the mutated part, if one exists. This keeps the state
// machine testable without a graph and keeps graph plumbing in one place.
type Effect struct {
	Kind EffectKind

	Position  time.Duration // EffectSeek
	Gain      float64       // EffectSetGain
	TrimBegin time.Duration // EffectSetTrim
	TrimEnd   time.Duration // EffectSetTrim
	Speed     float64       // EffectSetSpeed
	LoopCount int           // EffectSetLoopCount
}

// StartEffect returns an EffectStart value.
func StartEffect() Effect { return Effect{Kind: EffectStart} }

// StopEffect returns an EffectStop value.
func StopEffect() Effect { return Effect{Kind: EffectStop} }

// ResetEffect returns an EffectReset value.
func ResetEffect() Effect { return Effect{Kind: EffectReset} }

// SeekEffect returns an EffectSeek value for the given position.
func SeekEffect(pos time.Duration) Effect {
	return Effect{Kind: EffectSeek, Position: pos}
}

// GainEffect returns an EffectSetGain value for the given gain.
func GainEffect(gain float64) Effect {
	return Effect{Kind: EffectSetGain, Gain: gain}
}

// TrimEffect returns an EffectSetTrim value for the given window.
func TrimEffect(begin, end time.Duration) Effect {
	return Effect{Kind: EffectSetTrim, TrimBegin: begin, TrimEnd: end}
}

// SpeedEffect returns an EffectSetSpeed value for the given factor.
func SpeedEffect(speed float64) Effect {
	return Effect{Kind: EffectSetSpeed, Speed: speed}
}

// LoopCountEffect returns an EffectSetLoopCount value for the given count.
func LoopCountEffect(count int) Effect {
	return Effect{Kind: EffectSetLoopCount, LoopCount: count}
}
