package domain

import (
	"time"
)

// TagSaver persists an edited media tag. A MediaTag with AutoSave enabled
// calls its saver after every edit.
type TagSaver func(MediaTag) error

// MediaTag is the metadata attached to any playable entity.
//
// Edits go through the Set* methods so that auto-persist-on-edit works: when
// AutoSave is enabled and a saver is attached, every successful edit is
// written back through the saver.
type MediaTag struct {
	Title       string
	Album       string
	Artist      string
	AlbumArtist string
	Genre       string
	Year        int
	TrackNumber uint
	BitRate     int
	Duration    time.Duration
	CoverArt    []byte

	// AutoSave controls whether edits are persisted immediately.
	AutoSave bool

	saver TagSaver
}

// AttachSaver wires the persistence callback used by auto-save edits.
func (t *MediaTag) AttachSaver(saver TagSaver) {
	t.saver = saver
}

// SetTitle updates the title and persists the tag when auto-save is on.
func (t *MediaTag) SetTitle(title string) error {
	t.Title = title
	return t.persist()
}

// SetAlbum updates the album and persists the tag when auto-save is on.
func (t *MediaTag) SetAlbum(album string) error {
	t.Album = album
	return t.persist()
}

// SetArtist updates the artist and persists the tag when auto-save is on.
func (t *MediaTag) SetArtist(artist string) error {
	t.Artist = artist
	return t.persist()
}

// SetGenre updates the genre and persists the tag when auto-save is on.
func (t *MediaTag) SetGenre(genre string) error {
	t.Genre = genre
	return t.persist()
}

// SetYear updates the year and persists the tag when auto-save is on.
func (t *MediaTag) SetYear(year int) error {
	t.Year = year
	return t.persist()
}

func (t *MediaTag) persist() error {
	if !t.AutoSave || t.saver == nil {
		return nil
	}
	return t.saver(*t)
}
