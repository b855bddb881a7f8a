// Package metadata extracts embedded tags from audio files and merges them
// with previously known values and filename-derived defaults.
package metadata

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
)

// Partial holds whatever metadata could be extracted from a file. Every
// field is optional; absent values are filled in by Merge.
type Partial struct {
	Title   string
	Artist  string
	Album   string
	Genre   string
	Picture []byte // embedded artwork, nil if none
}

// Empty reports whether extraction produced nothing at all.
func (p Partial) Empty() bool {
	return p.Title == "" && p.Artist == "" && p.Album == "" && p.Genre == "" && len(p.Picture) == 0
}

// Extract reads embedded tags from the file at path. Decode failures are not
// errors: an unreadable or untagged file yields a zero Partial and the caller
// falls back to filename-derived metadata. One corrupt file must never abort
// a scan.
func Extract(path string) Partial {
	f, err := os.Open(path)
	if err != nil {
		return Partial{}
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// dhowden/tag has issues with some UTF-16 encoded ID3 tags
		if strings.EqualFold(filepath.Ext(path), ".mp3") {
			return extractMP3WithID3v2(path)
		}
		return Partial{}
	}

	p := Partial{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Genre:  m.Genre(),
	}
	if pic := m.Picture(); pic != nil {
		p.Picture = pic.Data
	}
	return p
}

// extractMP3WithID3v2 reads MP3 metadata using only the id3v2 library.
func extractMP3WithID3v2(path string) Partial {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Partial{}
	}
	defer id3tag.Close()

	p := Partial{
		Title:  id3tag.Title(),
		Artist: id3tag.Artist(),
		Album:  id3tag.Album(),
		Genre:  id3tag.Genre(),
	}

	for _, frame := range id3tag.GetFrames(id3tag.CommonID("Attached picture")) {
		if pic, ok := frame.(id3v2.PictureFrame); ok && len(pic.Picture) > 0 {
			p.Picture = pic.Picture
			break
		}
	}
	return p
}
