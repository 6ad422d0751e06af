package playback

import (
	"time"

	"github.com/narratix/hark/internal/domain"
)

// Entry is anything that can sit in the playlist: a standalone file, an
// audiobook or an HTTP stream.
type Entry interface {
	// PlayState returns the entry's own aggregate state.
	PlayState() *State

	// Leaf returns the graph-bindable part the entry currently plays through.
	// False for streams (no local decode) and for audiobooks whose current
	// part has not materialized yet.
	Leaf() (*Part, bool)

	// Info returns the identifying display data used in events.
	Info() domain.EntryInfo
}

// Part is a single playable audio file: either a standalone playlist entry or
// one chapter of an audiobook.
type Part struct {
	state *State
}

// NewPart returns a created part for a standalone file.
func NewPart(path, name, token string, tag domain.MediaTag) *Part {
	s := newState(domain.KindFile, path, name, token)
	s.SetTag(tag)
	s.SetDuration(tag.Duration)
	s.SetToCreated()
	return &Part{state: s}
}

// NewBookPart returns a created part belonging to an audiobook folder.
// The part is addressed by the folder's token plus its file name.
func NewBookPart(path, name, folderToken string, tag domain.MediaTag) *Part {
	p := NewPart(path, name, "", tag)
	p.state.kind = domain.KindBook
	p.state.setFolderToken(folderToken)
	return p
}

// PlayState implements Entry.
func (p *Part) PlayState() *State { return p.state }

// Leaf implements Entry. A part is its own leaf.
func (p *Part) Leaf() (*Part, bool) { return p, true }

// Info implements Entry.
func (p *Part) Info() domain.EntryInfo {
	return domain.EntryInfo{
		ID:   p.state.ID(),
		Name: p.state.Name(),
		Path: p.state.Path(),
		Kind: p.state.Kind(),
	}
}

// Stream is a remote HTTP media stream. It carries the same state surface as
// a file but is not decoded locally, so it never binds a graph node;
// transport operations on it only mutate state and emit events.
type Stream struct {
	state *State
	url   string
}

// NewStream returns a created stream entry for the given URL.
func NewStream(url string, tag domain.MediaTag) *Stream {
	s := newState(domain.KindStream, url, tag.Title, "")
	if s.name == "" {
		s.name = url
	}
	s.SetTag(tag)
	s.SetDuration(tag.Duration)
	s.SetToCreated()
	return &Stream{state: s, url: url}
}

// URL returns the stream's source URL.
func (st *Stream) URL() string { return st.url }

// PlayState implements Entry.
func (st *Stream) PlayState() *State { return st.state }

// Leaf implements Entry. Streams have no local decode node.
func (st *Stream) Leaf() (*Part, bool) { return nil, false }

// Info implements Entry.
func (st *Stream) Info() domain.EntryInfo {
	return domain.EntryInfo{
		ID:   st.state.ID(),
		Name: st.state.Name(),
		Path: st.url,
		Kind: domain.KindStream,
	}
}

// restorePartPosition is used by snapshot restore to seed a part's saved
// position without going through the seek path.
func restorePartPosition(p *Part, pos time.Duration) {
	if p != nil {
		p.state.restorePosition(pos)
	}
}
