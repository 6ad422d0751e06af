package ports

import (
	"github.com/narratix/hark/internal/domain"
)

// MetadataProvider extracts and persists media metadata for a file handle.
type MetadataProvider interface {
	// Read extracts title/album/artist/genre/year/track/bitrate/duration and
	// cover art from the file. Fields the container does not carry are left
	// at their zero values; Read fails only when the file cannot be parsed at
	// all.
	Read(file File) (domain.MediaTag, error)

	// Write persists an edited tag back to the file. Providers that cannot
	// write return ErrMetadataWriteUnsupported.
	Write(file File, tag domain.MediaTag) error
}
