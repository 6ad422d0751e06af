// Package library turns storage tokens into playable entries: single files,
// multi-part audiobook folders and persisted playlists. Audiobook parts
// materialize concurrently through a bounded priority work queue.
package library

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// SupportedExtensions is the allow-list of audio file extensions the library
// will ingest.
var SupportedExtensions = []string{
	".mp3", ".wav", ".wma", ".m4a", ".flac", ".ogg", ".aac", ".m4b",
}

// IsSupported reports whether the file name carries a supported audio
// extension. The check is case-insensitive.
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return lo.Contains(SupportedExtensions, ext)
}
