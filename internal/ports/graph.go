// Package ports defines interfaces for dependency inversion.
// These interfaces keep the playback core independent of the audio backend,
// the filesystem, and the persistence layer.
package ports

import (
	"io"
	"time"

	"github.com/narratix/hark/internal/domain"
)

// File is a readable, seekable handle to an audio resource returned by a
// StorageResolver. afero.File satisfies it.
type File interface {
	io.ReadSeekCloser

	// Name returns the file name of the underlying resource.
	Name() string
}

// AudioGraph is the audio rendering subsystem. It accepts one input node per
// active playback source and exposes gain, trim, speed and loop-count as
// live-settable node properties.
//
// Implementations must be thread-safe: node teardown may race with effect
// application from another goroutine.
type AudioGraph interface {
	// Start lazily initializes the graph and its device output node.
	// Failure here is fatal to playback (no audio device) and is reported as
	// a fatal GraphError. Start is idempotent once it has succeeded.
	Start() error

	// IsStarted reports whether the graph has been started successfully.
	IsStarted() bool

	// CreateNode decodes the file and registers a stopped input node
	// connected to the device output. The node's playhead is at zero.
	CreateNode(file File) (domain.NodeHandle, error)

	// RemoveNode stops the node, disconnects it from the output and releases
	// its resources. Removing an unknown handle returns ErrInvalidNodeHandle.
	RemoveNode(handle domain.NodeHandle) error

	// Apply applies effects to the node in order. Unknown handles return
	// ErrInvalidNodeHandle.
	Apply(handle domain.NodeHandle, effects ...domain.Effect) error

	// NodePosition returns the node's current playhead position.
	NodePosition(handle domain.NodeHandle) (time.Duration, error)

	// NodeDuration returns the total duration of the node's source.
	NodeDuration(handle domain.NodeHandle) (time.Duration, error)

	// OnNodeCompleted registers the callback invoked when a node reports
	// end-of-media. Only one callback is active at a time; registering
	// replaces the previous one. The callback may be invoked from the audio
	// goroutine and must not block.
	OnNodeCompleted(fn func(handle domain.NodeHandle))

	// Close tears down every node and the graph itself.
	Close() error
}
