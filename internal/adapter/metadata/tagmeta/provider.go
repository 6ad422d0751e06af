// Package tagmeta implements the MetadataProvider port with dhowden/tag.
package tagmeta

import (
	"io"
	"log/slog"

	"github.com/dhowden/tag"

	"github.com/narratix/hark/internal/domain"
	"github.com/narratix/hark/internal/ports"
)

// Provider extracts metadata from audio containers. dhowden/tag parses the
// tag block only, so duration and bitrate stay zero here; the audio graph
// fills the duration when the file is decoded.
type Provider struct {
	log *slog.Logger
}

// New returns a metadata provider.
func New(log *slog.Logger) *Provider {
	return &Provider{log: log}
}

// Read implements ports.MetadataProvider. The file's read offset is rewound
// afterwards so callers can hand the same handle to the decoder.
func (p *Provider) Read(file ports.File) (domain.MediaTag, error) {
	defer func() {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			p.log.Warn("rewind after tag read failed", "file", file.Name(), "error", err)
		}
	}()

	m, err := tag.ReadFrom(file)
	if err != nil {
		return domain.MediaTag{}, err
	}

	track, _ := m.Track()
	if track < 0 {
		track = 0
	}
	out := domain.MediaTag{
		Title:       m.Title(),
		Album:       m.Album(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		Genre:       m.Genre(),
		Year:        m.Year(),
		TrackNumber: uint(track),
	}
	if pic := m.Picture(); pic != nil {
		out.CoverArt = pic.Data
	}
	return out, nil
}

// Write implements ports.MetadataProvider. dhowden/tag is read-only.
func (p *Provider) Write(ports.File, domain.MediaTag) error {
	return domain.ErrMetadataWriteUnsupported
}

var _ ports.MetadataProvider = (*Provider)(nil)
