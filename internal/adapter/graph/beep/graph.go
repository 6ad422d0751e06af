// Package beepgraph implements the AudioGraph port with gopxl/beep. Every
// node is a decode chain (window/loop, volume, resampler, transport control)
// mixed into a single speaker output.
package beepgraph

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/narratix/hark/internal/domain"
	"github.com/narratix/hark/internal/ports"
)

// speakerRate is the output sample rate. Node sources at other rates are
// resampled into it.
const speakerRate = beep.SampleRate(44100)

// Graph renders audio through the beep speaker.
type Graph struct {
	log *slog.Logger

	mu          sync.Mutex
	started     bool
	nextHandle  int64
	nodes       map[domain.NodeHandle]*graphNode
	onCompleted func(domain.NodeHandle)
}

type graphNode struct {
	file      ports.File
	src       beep.StreamSeekCloser
	format    beep.Format
	window    *windowStream
	volume    *effects.Volume
	resampler *beep.Resampler
	ctrl      *beep.Ctrl

	baseRatio float64
	speed     float64
	removed   bool
}

// New returns an unstarted graph.
func New(log *slog.Logger) *Graph {
	return &Graph{
		log:   log,
		nodes: make(map[domain.NodeHandle]*graphNode),
	}
}

// Start implements ports.AudioGraph. Initializing the speaker claims the
// audio device; failure is fatal to playback.
func (g *Graph) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return nil
	}
	if err := speaker.Init(speakerRate, speakerRate.N(100*time.Millisecond)); err != nil {
		return domain.NewGraphError("start", "speaker initialization failed", true, err)
	}
	g.started = true
	g.log.Info("audio graph started", "sample_rate", int(speakerRate))
	return nil
}

// IsStarted implements ports.AudioGraph.
func (g *Graph) IsStarted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

// CreateNode implements ports.AudioGraph.
func (g *Graph) CreateNode(file ports.File) (domain.NodeHandle, error) {
	g.mu.Lock()
	started := g.started
	g.mu.Unlock()
	if !started {
		return domain.InvalidNodeHandle, domain.ErrGraphNotStarted
	}

	src, format, err := decode(file)
	if err != nil {
		return domain.InvalidNodeHandle, domain.NewGraphError("create_node",
			fmt.Sprintf("decoding %q failed", file.Name()), false, err)
	}

	window := newWindowStream(src)
	volume := &effects.Volume{Streamer: window, Base: 2, Volume: 0}
	resampler := beep.Resample(4, format.SampleRate, speakerRate, volume)
	ctrl := &beep.Ctrl{Streamer: resampler, Paused: true}

	node := &graphNode{
		file:      file,
		src:       src,
		format:    format,
		window:    window,
		volume:    volume,
		resampler: resampler,
		ctrl:      ctrl,
		baseRatio: float64(format.SampleRate) / float64(speakerRate),
		speed:     1.0,
	}

	g.mu.Lock()
	g.nextHandle++
	handle := domain.NodeHandle(g.nextHandle)
	g.nodes[handle] = node
	g.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		g.nodeFinished(handle)
	})))

	g.log.Debug("node created", "handle", int64(handle), "file", file.Name())
	return handle, nil
}

// nodeFinished runs on the speaker goroutine when a node's chain drains.
// Teardown-induced drains are filtered out so RemoveNode never produces a
// completion.
func (g *Graph) nodeFinished(handle domain.NodeHandle) {
	g.mu.Lock()
	node, ok := g.nodes[handle]
	fn := g.onCompleted
	g.mu.Unlock()

	if !ok || node.removed || fn == nil {
		return
	}
	fn(handle)
}

// RemoveNode implements ports.AudioGraph.
func (g *Graph) RemoveNode(handle domain.NodeHandle) error {
	g.mu.Lock()
	node, ok := g.nodes[handle]
	if !ok {
		g.mu.Unlock()
		return domain.ErrInvalidNodeHandle
	}
	delete(g.nodes, handle)
	g.mu.Unlock()

	// Drain the chain so the mixer drops it, then release the decoder.
	speaker.Lock()
	node.removed = true
	node.window.markDrained()
	node.ctrl.Paused = false
	speaker.Unlock()

	if err := node.src.Close(); err != nil {
		g.log.Warn("closing decoder failed", "error", err)
	}
	if err := node.file.Close(); err != nil {
		g.log.Warn("closing file failed", "error", err)
	}
	return nil
}

// Apply implements ports.AudioGraph.
func (g *Graph) Apply(handle domain.NodeHandle, effectList ...domain.Effect) error {
	g.mu.Lock()
	node, ok := g.nodes[handle]
	g.mu.Unlock()
	if !ok {
		return domain.ErrInvalidNodeHandle
	}

	speaker.Lock()
	defer speaker.Unlock()

	for _, e := range effectList {
		switch e.Kind {
		case domain.EffectStart:
			node.ctrl.Paused = false
		case domain.EffectStop:
			node.ctrl.Paused = true
		case domain.EffectReset:
			if err := node.window.seek(0); err != nil {
				return domain.NewGraphError("apply", "reset failed", false, err)
			}
		case domain.EffectSeek:
			if err := node.window.seek(node.format.SampleRate.N(e.Position)); err != nil {
				return domain.NewGraphError("apply", "seek failed", false, err)
			}
		case domain.EffectSetGain:
			applyGain(node.volume, e.Gain)
		case domain.EffectSetTrim:
			node.window.setWindow(
				node.format.SampleRate.N(e.TrimBegin),
				node.format.SampleRate.N(e.TrimEnd),
			)
		case domain.EffectSetSpeed:
			if e.Speed > 0 {
				node.speed = e.Speed
				node.resampler.SetRatio(node.baseRatio * e.Speed)
			}
		case domain.EffectSetLoopCount:
			node.window.loops = e.LoopCount
		}
	}
	return nil
}

// applyGain maps a linear 0..1 gain onto the volume effect's exponent scale.
func applyGain(v *effects.Volume, gain float64) {
	if gain <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(gain)
}

// NodePosition implements ports.AudioGraph.
func (g *Graph) NodePosition(handle domain.NodeHandle) (time.Duration, error) {
	g.mu.Lock()
	node, ok := g.nodes[handle]
	g.mu.Unlock()
	if !ok {
		return 0, domain.ErrInvalidNodeHandle
	}
	speaker.Lock()
	defer speaker.Unlock()
	return node.format.SampleRate.D(node.window.Position()), nil
}

// NodeDuration implements ports.AudioGraph.
func (g *Graph) NodeDuration(handle domain.NodeHandle) (time.Duration, error) {
	g.mu.Lock()
	node, ok := g.nodes[handle]
	g.mu.Unlock()
	if !ok {
		return 0, domain.ErrInvalidNodeHandle
	}
	speaker.Lock()
	defer speaker.Unlock()
	return node.format.SampleRate.D(node.window.Len()), nil
}

// OnNodeCompleted implements ports.AudioGraph.
func (g *Graph) OnNodeCompleted(fn func(handle domain.NodeHandle)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onCompleted = fn
}

// Close implements ports.AudioGraph.
func (g *Graph) Close() error {
	g.mu.Lock()
	handles := make([]domain.NodeHandle, 0, len(g.nodes))
	for h := range g.nodes {
		handles = append(handles, h)
	}
	started := g.started
	g.started = false
	g.mu.Unlock()

	for _, h := range handles {
		if err := g.RemoveNode(h); err != nil {
			g.log.Warn("node teardown failed", "handle", int64(h), "error", err)
		}
	}
	if started {
		speaker.Clear()
		speaker.Close()
	}
	return nil
}

// decode picks a decoder by file extension.
func decode(file ports.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(file.Name())) {
	case ".mp3":
		return mp3.Decode(file)
	case ".wav":
		return wav.Decode(file)
	case ".flac":
		return flac.Decode(file)
	case ".ogg":
		return vorbis.Decode(file)
	default:
		return nil, beep.Format{}, fmt.Errorf("%q: %w", file.Name(), domain.ErrUnsupportedFileType)
	}
}

var _ ports.AudioGraph = (*Graph)(nil)
