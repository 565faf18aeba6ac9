package domain

import "strings"

// CatalogEntry is one item of an external catalog listing. It is not directly
// playable and must be re-resolved as a search.
type CatalogEntry struct {
	Title  string
	Artist string
}

// SearchText returns the plain-text search used to re-resolve the entry.
func (e CatalogEntry) SearchText() string {
	if e.Artist == "" {
		return strings.TrimSpace(e.Title)
	}
	return strings.TrimSpace(e.Artist + " - " + e.Title)
}

// CatalogListing is the result of an external catalog lookup.
type CatalogListing struct {
	Name    string
	Entries []CatalogEntry
}
