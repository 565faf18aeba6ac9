package infrastructure

import (
	"testing"
	"time"
)

func TestParseYTDLPEntries(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   []ytdlpEntry
	}{
		{
			name:   "single video",
			stdout: "NA\thttps://www.youtube.com/watch?v=a\tSong\tBand\t212.0\tFalse\tYoutube\n",
			want: []ytdlpEntry{{
				url: "https://www.youtube.com/watch?v=a", title: "Song", uploader: "Band",
				duration: 212 * time.Second, extractor: "Youtube",
			}},
		},
		{
			name: "playlist with live entry and missing duration",
			stdout: "Mix\thttps://www.youtube.com/watch?v=a\tA\tX\t60\tFalse\tYoutube\n" +
				"Mix\thttps://www.youtube.com/watch?v=b\tB\tNA\tNA\tTrue\tYoutube\n",
			want: []ytdlpEntry{
				{playlist: "Mix", url: "https://www.youtube.com/watch?v=a", title: "A", uploader: "X", duration: time.Minute, extractor: "Youtube"},
				{playlist: "Mix", url: "https://www.youtube.com/watch?v=b", title: "B", live: true, extractor: "Youtube"},
			},
		},
		{
			name:   "skips malformed and URL-less lines",
			stdout: "garbage\nNA\tNA\tT\tU\t1\tFalse\tGeneric\n",
		},
		{
			name:   "empty output",
			stdout: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseYTDLPEntries(tt.stdout)

			if len(got) != len(tt.want) {
				t.Fatalf("expected %d entries, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestYTDLPEntry_TrackInfo(t *testing.T) {
	info := ytdlpEntry{
		url:       "https://soundcloud.com/a/b",
		title:     "B",
		uploader:  "A",
		duration:  90 * time.Second,
		extractor: "Soundcloud",
	}.trackInfo()

	if info.SourceName != "soundcloud" {
		t.Errorf("expected soundcloud, got %s", info.SourceName)
	}
	if info.URI != info.Handle || info.URI != "https://soundcloud.com/a/b" {
		t.Errorf("expected URI to double as handle, got %q / %q", info.URI, info.Handle)
	}
}

func TestSourceNameFor(t *testing.T) {
	tests := map[string]string{
		"Youtube":    "youtube",
		"YoutubeTab": "youtube",
		"Soundcloud": "soundcloud",
		"TwitchVod":  "twitch",
		"":           "http",
		"Bandcamp":   "bandcamp",
	}
	for extractor, want := range tests {
		if got := sourceNameFor(extractor); got != want {
			t.Errorf("sourceNameFor(%q) = %q, want %q", extractor, got, want)
		}
	}
}

func TestParseCatalogListing(t *testing.T) {
	listing := parseCatalogListing(
		"Road Trip\tOne\tBand\n" +
			"Road Trip\tTwo\tNA\n" +
			"short line\n",
	)

	if listing.Name != "Road Trip" {
		t.Errorf("expected name Road Trip, got %q", listing.Name)
	}
	if len(listing.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(listing.Entries))
	}
	if got := listing.Entries[0].SearchText(); got != "Band - One" {
		t.Errorf("expected %q, got %q", "Band - One", got)
	}
	if got := listing.Entries[1].SearchText(); got != "Two" {
		t.Errorf("expected %q, got %q", "Two", got)
	}
}
