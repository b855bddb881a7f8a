package metadata

import (
	"path/filepath"
	"strings"
)

// Defaults used when neither the file nor a previous record supplies a value.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UntitledTrack = "Untitled"
)

// Resolved is the outcome of merging extracted metadata with prior state.
type Resolved struct {
	Title  string
	Artist string
	Album  string
	Genre  string
}

// Merge resolves the descriptive fields for a track. Precedence per field:
// freshly extracted value, then the previous record's value, then a
// filename-derived default. Pure; no I/O.
func Merge(extracted, previous Partial, filename string) Resolved {
	return Resolved{
		Title:  pick(extracted.Title, previous.Title, TitleFromFilename(filename)),
		Artist: pick(extracted.Artist, previous.Artist, UnknownArtist),
		Album:  pick(extracted.Album, previous.Album, UnknownAlbum),
		Genre:  pick(extracted.Genre, previous.Genre, ""),
	}
}

// TitleFromFilename derives a display title from a filename by stripping the
// extension. An empty filename yields UntitledTrack.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" || title == "." || title == string(filepath.Separator) {
		return UntitledTrack
	}
	return title
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
