package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		extracted Partial
		previous  Partial
		filename  string
		expected  Resolved
	}{
		{
			name:      "extracted wins over previous and filename",
			extracted: Partial{Title: "Shine On", Artist: "Pink Floyd", Album: "Wish You Were Here", Genre: "Rock"},
			previous:  Partial{Title: "Old Title", Artist: "Old Artist", Album: "Old Album", Genre: "Pop"},
			filename:  "01 - shine_on.flac",
			expected:  Resolved{Title: "Shine On", Artist: "Pink Floyd", Album: "Wish You Were Here", Genre: "Rock"},
		},
		{
			name:      "previous fills gaps in extraction",
			extracted: Partial{Title: "Shine On"},
			previous:  Partial{Artist: "Pink Floyd", Album: "Wish You Were Here"},
			filename:  "01 - shine_on.flac",
			expected:  Resolved{Title: "Shine On", Artist: "Pink Floyd", Album: "Wish You Were Here"},
		},
		{
			name:     "filename-derived defaults when nothing else is known",
			filename: "01 - shine_on.flac",
			expected: Resolved{Title: "01 - shine_on", Artist: UnknownArtist, Album: UnknownAlbum},
		},
		{
			name:     "empty filename yields untitled",
			filename: "",
			expected: Resolved{Title: UntitledTrack, Artist: UnknownArtist, Album: UnknownAlbum},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.extracted, tt.previous, tt.filename)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"track.mp3", "track"},
		{"/music/albums/track.flac", "track"},
		{"no-extension", "no-extension"},
		{"archive.tar.gz", "archive.tar"},
		{"", UntitledTrack},
	}

	for _, tt := range tests {
		if got := TitleFromFilename(tt.input); got != tt.expected {
			t.Errorf("TitleFromFilename(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestPartialEmpty(t *testing.T) {
	require.True(t, Partial{}.Empty())
	require.False(t, Partial{Title: "x"}.Empty())
	require.False(t, Partial{Picture: []byte{1}}.Empty())
}
