// Package mock provides an in-memory AudioGraph for tests and for running
// without an audio device. Nodes are plain property bags; tests drive the
// playhead and completion explicitly.
package mock

import (
	"sync"
	"time"

	"github.com/narratix/hark/internal/domain"
	"github.com/narratix/hark/internal/ports"
)

// DefaultNodeDuration is assigned to new nodes unless overridden.
const DefaultNodeDuration = 3 * time.Minute

// Graph is a mock audio graph. The Fail* fields make the corresponding
// operations return errors, for exercising failure paths.
type Graph struct {
	mu          sync.Mutex
	started     bool
	nextHandle  int64
	nodes       map[domain.NodeHandle]*node
	onCompleted func(domain.NodeHandle)

	FailStart  bool
	FailCreate bool
	FailApply  bool

	// NextDuration is assigned to the next created node, then reset.
	NextDuration time.Duration
}

type node struct {
	file      ports.File
	position  time.Duration
	duration  time.Duration
	playing   bool
	gain      float64
	speed     float64
	trimBegin time.Duration
	trimEnd   time.Duration
	loopCount int
}

// NodeSnapshot is a copy of a node's properties for assertions.
type NodeSnapshot struct {
	Position  time.Duration
	Duration  time.Duration
	Playing   bool
	Gain      float64
	Speed     float64
	TrimBegin time.Duration
	TrimEnd   time.Duration
	LoopCount int
}

// New returns an empty mock graph.
func New() *Graph {
	return &Graph{nodes: make(map[domain.NodeHandle]*node)}
}

// Start implements ports.AudioGraph.
func (g *Graph) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailStart {
		return domain.NewGraphError("start", "mock start failure", true, nil)
	}
	g.started = true
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
	defer g.mu.Unlock()
	if g.FailCreate {
		return domain.InvalidNodeHandle, domain.NewGraphError("create", "mock create failure", false, nil)
	}
	if !g.started {
		return domain.InvalidNodeHandle, domain.ErrGraphNotStarted
	}
	g.nextHandle++
	handle := domain.NodeHandle(g.nextHandle)
	dur := g.NextDuration
	if dur == 0 {
		dur = DefaultNodeDuration
	}
	g.NextDuration = 0
	g.nodes[handle] = &node{
		file:     file,
		duration: dur,
		gain:     1.0,
		speed:    1.0,
		trimEnd:  dur,
	}
	return handle, nil
}

// RemoveNode implements ports.AudioGraph.
func (g *Graph) RemoveNode(handle domain.NodeHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[handle]
	if !ok {
		return domain.ErrInvalidNodeHandle
	}
	delete(g.nodes, handle)
	if n.file != nil {
		n.file.Close()
	}
	return nil
}

// Apply implements ports.AudioGraph.
func (g *Graph) Apply(handle domain.NodeHandle, effects ...domain.Effect) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailApply {
		return domain.NewGraphError("apply", "mock apply failure", false, nil)
	}
	n, ok := g.nodes[handle]
	if !ok {
		return domain.ErrInvalidNodeHandle
	}
	for _, e := range effects {
		switch e.Kind {
		case domain.EffectStart:
			n.playing = true
		case domain.EffectStop:
			n.playing = false
		case domain.EffectReset:
			n.position = 0
		case domain.EffectSeek:
			n.position = e.Position
		case domain.EffectSetGain:
			n.gain = e.Gain
		case domain.EffectSetTrim:
			n.trimBegin, n.trimEnd = e.TrimBegin, e.TrimEnd
		case domain.EffectSetSpeed:
			n.speed = e.Speed
		case domain.EffectSetLoopCount:
			n.loopCount = e.LoopCount
		}
	}
	return nil
}

// NodePosition implements ports.AudioGraph.
func (g *Graph) NodePosition(handle domain.NodeHandle) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[handle]
	if !ok {
		return 0, domain.ErrInvalidNodeHandle
	}
	return n.position, nil
}

// NodeDuration implements ports.AudioGraph.
func (g *Graph) NodeDuration(handle domain.NodeHandle) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[handle]
	if !ok {
		return 0, domain.ErrInvalidNodeHandle
	}
	return n.duration, nil
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
	defer g.mu.Unlock()
	for h, n := range g.nodes {
		if n.file != nil {
			n.file.Close()
		}
		delete(g.nodes, h)
	}
	g.started = false
	return nil
}

// --- test hooks ---

// NodeCount returns how many nodes exist.
func (g *Graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Snapshot returns a copy of a node's properties.
func (g *Graph) Snapshot(handle domain.NodeHandle) (NodeSnapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[handle]
	if !ok {
		return NodeSnapshot{}, false
	}
	return NodeSnapshot{
		Position:  n.position,
		Duration:  n.duration,
		Playing:   n.playing,
		Gain:      n.gain,
		Speed:     n.speed,
		TrimBegin: n.trimBegin,
		TrimEnd:   n.trimEnd,
		LoopCount: n.loopCount,
	}, true
}

// OnlyHandle returns the handle of the single existing node. It fails the
// lookup when zero or several nodes exist.
func (g *Graph) OnlyHandle() (domain.NodeHandle, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.nodes) != 1 {
		return domain.InvalidNodeHandle, false
	}
	for h := range g.nodes {
		return h, true
	}
	return domain.InvalidNodeHandle, false
}

// AdvanceNode moves a node's playhead forward.
func (g *Graph) AdvanceNode(handle domain.NodeHandle, delta time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[handle]; ok {
		n.position += delta
		if n.position > n.duration {
			n.position = n.duration
		}
	}
}

// CompleteNode fires the completion callback for a node, as the real graph
// does at end-of-media.
func (g *Graph) CompleteNode(handle domain.NodeHandle) {
	g.mu.Lock()
	fn := g.onCompleted
	if n, ok := g.nodes[handle]; ok {
		n.playing = false
		n.position = n.duration
	}
	g.mu.Unlock()
	if fn != nil {
		fn(handle)
	}
}
