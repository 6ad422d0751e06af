package domain

import (
	"time"
)

// The snapshot types mirror every persisted field of the playback core. A
// snapshot is sufficient to reconstruct playback state after a restart; live
// event subscriptions and graph nodes are deliberately excluded.

// PlaylistSnapshot is the serializable state of a playlist and its entries.
type PlaylistSnapshot struct {
	Entries                []EntrySnapshot `json:"entries"`
	LastPlayedIndex        int             `json:"last_played_index"`
	LoopEnabled            bool            `json:"loop_enabled"`
	LoopCurrentFileEnabled bool            `json:"loop_current_file_enabled"`
}

// EntrySnapshot is the serializable state of a single playlist entry.
type EntrySnapshot struct {
	Kind        EntryKind     `json:"kind"`
	ID          string        `json:"id"`
	Path        string        `json:"path"`
	Name        string        `json:"name"`
	Token       string        `json:"token"`
	FolderToken string        `json:"folder_token,omitempty"`
	URL         string        `json:"url,omitempty"`
	Position    time.Duration `json:"position"`
	Duration    time.Duration `json:"duration"`
	Volume      float64       `json:"volume"`
	Speed       float64       `json:"speed"`
	LoopEnabled bool          `json:"loop_enabled"`
	LoopCount   *int          `json:"loop_count,omitempty"`
	LoopBegin   time.Duration `json:"loop_begin"`
	LoopEnd     time.Duration `json:"loop_end"`
	HasLoop     bool          `json:"has_loop_range"`
	Tag         TagSnapshot   `json:"tag"`
	Bookmarks   []Bookmark    `json:"bookmarks,omitempty"`

	// Audiobook-only fields.
	CurrentPartIndex int            `json:"current_part_index,omitempty"`
	Parts            []PartSnapshot `json:"parts,omitempty"`
	ContinuousPlay   bool           `json:"continuous_play,omitempty"`
}

// PartSnapshot is the serializable state of one audiobook part.
type PartSnapshot struct {
	Name     string        `json:"name"`
	Token    string        `json:"token"`
	Position time.Duration `json:"position"`
	Duration time.Duration `json:"duration"`
}

// TagSnapshot is the serializable subset of a media tag.
type TagSnapshot struct {
	Title       string        `json:"title"`
	Album       string        `json:"album"`
	Artist      string        `json:"artist"`
	AlbumArtist string        `json:"album_artist"`
	Genre       string        `json:"genre"`
	Year        int           `json:"year"`
	TrackNumber uint          `json:"track_number"`
	BitRate     int           `json:"bit_rate"`
	Duration    time.Duration `json:"duration"`
}

// ToTag converts the snapshot back into a MediaTag.
func (s TagSnapshot) ToTag() MediaTag {
	return MediaTag{
		Title:       s.Title,
		Album:       s.Album,
		Artist:      s.Artist,
		AlbumArtist: s.AlbumArtist,
		Genre:       s.Genre,
		Year:        s.Year,
		TrackNumber: s.TrackNumber,
		BitRate:     s.BitRate,
		Duration:    s.Duration,
	}
}

// SnapshotTag converts a MediaTag into its serializable form.
func SnapshotTag(t MediaTag) TagSnapshot {
	return TagSnapshot{
		Title:       t.Title,
		Album:       t.Album,
		Artist:      t.Artist,
		AlbumArtist: t.AlbumArtist,
		Genre:       t.Genre,
		Year:        t.Year,
		TrackNumber: t.TrackNumber,
		BitRate:     t.BitRate,
		Duration:    t.Duration,
	}
}
