package beepgraph

import (
	"github.com/gopxl/beep/v2"
)

// windowStream constrains a seekable streamer to a [begin, end) sample window
// and optionally repeats it. It is the node-level primitive behind the trim
// and loop-count effects.
//
// All fields are mutated under the speaker lock; Stream itself runs on the
// speaker goroutine.
type windowStream struct {
	src beep.StreamSeekCloser

	begin int // window start in samples
	end   int // window end in samples, exclusive

	// loops is the number of window repetitions left. Zero plays through
	// without wrapping, negative repeats forever.
	loops int

	drained bool
}

func newWindowStream(src beep.StreamSeekCloser) *windowStream {
	return &windowStream{src: src, end: src.Len()}
}

// setWindow replaces the trim window, clamped to the source bounds.
func (w *windowStream) setWindow(begin, end int) {
	if begin < 0 {
		begin = 0
	}
	if end <= 0 || end > w.src.Len() {
		end = w.src.Len()
	}
	if end < begin {
		end = begin
	}
	w.begin, w.end = begin, end
}

// seek moves the playhead and clears the drained latch.
func (w *windowStream) seek(pos int) error {
	if pos < 0 {
		pos = 0
	}
	if max := w.src.Len(); pos > max {
		pos = max
	}
	w.drained = false
	return w.src.Seek(pos)
}

// Stream implements beep.Streamer.
func (w *windowStream) Stream(samples [][2]float64) (int, bool) {
	if w.drained {
		return 0, false
	}

	n := 0
	for n < len(samples) {
		remain := w.end - w.src.Position()
		if remain <= 0 {
			if w.loops == 0 {
				break
			}
			if w.loops > 0 {
				w.loops--
			}
			if err := w.src.Seek(w.begin); err != nil {
				break
			}
			continue
		}

		max := len(samples) - n
		if remain < max {
			max = remain
		}
		m, ok := w.src.Stream(samples[n : n+max])
		n += m
		if !ok {
			break
		}
		if m == 0 {
			break
		}
	}

	if n == 0 {
		w.drained = true
		return 0, false
	}
	return n, true
}

// Err implements beep.Streamer.
func (w *windowStream) Err() error {
	return w.src.Err()
}

// Position returns the source playhead in samples.
func (w *windowStream) Position() int {
	return w.src.Position()
}

// Len returns the source length in samples.
func (w *windowStream) Len() int {
	return w.src.Len()
}

// markDrained makes the next Stream call report end-of-stream, which lets the
// speaker mixer drop the node.
func (w *windowStream) markDrained() {
	w.drained = true
}
