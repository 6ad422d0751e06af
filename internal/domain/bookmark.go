package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bookmark is an immutable snapshot of a playback position plus the display
// metadata that was current when it was taken. It is a copy, not a live
// reference: later tag edits do not alter existing bookmarks.
type Bookmark struct {
	// ID uniquely identifies the bookmark.
	ID string

	// Position is the absolute position within the whole entity. For an
	// audiobook this spans part boundaries.
	Position time.Duration

	// RelativePosition is the position within the bookmarked sub-part. For
	// flat entities it equals Position.
	RelativePosition time.Duration

	// PartIndex is the index into an audiobook's part sequence, or -1 when
	// the bookmark belongs to a flat entity.
	PartIndex int

	// Display metadata captured at creation time.
	Title       string
	Album       string
	AlbumArtist string
	TrackNumber uint
	CoverArt    []byte

	// CreatedAt is when the bookmark was taken.
	CreatedAt time.Time
}

// NewBookmark builds a bookmark snapshot from the given position and tag.
// partIndex must be -1 for entities without parts.
func NewBookmark(position, relative time.Duration, partIndex int, tag MediaTag) Bookmark {
	return Bookmark{
		ID:               uuid.NewString(),
		Position:         position,
		RelativePosition: relative,
		PartIndex:        partIndex,
		Title:            tag.Title,
		Album:            tag.Album,
		AlbumArtist:      tag.AlbumArtist,
		TrackNumber:      tag.TrackNumber,
		CoverArt:         tag.CoverArt,
		CreatedAt:        time.Now(),
	}
}
