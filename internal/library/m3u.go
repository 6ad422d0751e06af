package library

import (
	"bufio"
	"io"
	"net/url"
	"path"
	"strings"
)

const m3uHeader = "#EXTM3U"

// ParseManifest reads an m3u playlist. The boolean is false when the content
// is not a valid manifest, which callers treat as "no manifest": ordering
// falls back to folder enumeration, never to an error.
//
// A valid manifest starts with #EXTM3U on its first line. Comment and
// directive lines are skipped; entry lines are URL-decoded and reduced to
// their base file name.
func ParseManifest(r io.Reader) ([]string, bool) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return nil, false
	}
	first := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
	if !strings.EqualFold(first, m3uHeader) {
		return nil, false
	}

	var entries []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if decoded, err := url.PathUnescape(line); err == nil {
			line = decoded
		}
		line = strings.ReplaceAll(line, "\\", "/")
		entries = append(entries, path.Base(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, false
	}
	return entries, true
}

// OrderByManifest reorders folder file names by their position in the
// manifest. Matching is case-insensitive on the base name. Files the manifest
// does not mention keep their enumeration order after the matched ones;
// manifest entries with no corresponding file are ignored.
func OrderByManifest(names, manifest []string) []string {
	if len(manifest) == 0 {
		return names
	}

	remaining := make([]string, len(names))
	copy(remaining, names)

	ordered := make([]string, 0, len(names))
	for _, want := range manifest {
		for i, have := range remaining {
			if strings.EqualFold(have, want) {
				ordered = append(ordered, have)
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}
	return append(ordered, remaining...)
}
