package domain

import (
	"net/url"
	"strings"
)

// SearchSource represents the scope marker prepended to plain-text queries.
type SearchSource string

const (
	// SourceYouTube searches YouTube.
	SourceYouTube SearchSource = "ytsearch"
	// SourceYouTubeMusic searches YouTube Music.
	SourceYouTubeMusic SearchSource = "ytmsearch"
	// SourceSoundCloud searches SoundCloud.
	SourceSoundCloud SearchSource = "scsearch"
	// SourceDirect indicates a direct URL (no search prefix).
	SourceDirect SearchSource = ""
)

// knownSources are scope markers a user may type explicitly, e.g. "scsearch:foo".
var knownSources = []SearchSource{SourceYouTube, SourceYouTubeMusic, SourceSoundCloud}

// QueryKind classifies a user-supplied reference.
type QueryKind int

const (
	// QueryKindSearch is plain text that resolves through a catalog search.
	QueryKindSearch QueryKind = iota
	// QueryKindDirect is a URL the resolver can load as-is.
	QueryKindDirect
	// QueryKindCatalog is a URL into an external catalog whose entries must
	// be re-resolved as searches before they are playable.
	QueryKindCatalog
)

// SearchQuery represents a query for loading tracks.
type SearchQuery struct {
	Query  string       // The search term or URL
	Source SearchSource // The search source
	Kind   QueryKind
	Host   string // lower-cased host for URL queries
}

// NewSearchQuery creates a SearchQuery from user input.
// URLs are returned as direct queries. Text already carrying a known scope
// marker keeps it; any other text becomes a YouTube search.
func NewSearchQuery(input string) *SearchQuery {
	return NewSearchQueryWithSource(input, SourceYouTube)
}

// NewSearchQueryWithSource creates a SearchQuery, using source for plain text.
func NewSearchQueryWithSource(input string, source SearchSource) *SearchQuery {
	input = strings.TrimSpace(input)

	if isURL(input) {
		return &SearchQuery{
			Query:  input,
			Source: SourceDirect,
			Kind:   QueryKindDirect,
			Host:   hostOf(input),
		}
	}

	for _, known := range knownSources {
		prefix := string(known) + ":"
		if strings.HasPrefix(input, prefix) {
			return &SearchQuery{
				Query:  strings.TrimSpace(strings.TrimPrefix(input, prefix)),
				Source: known,
				Kind:   QueryKindSearch,
			}
		}
	}

	return &SearchQuery{
		Query:  input,
		Source: source,
		Kind:   QueryKindSearch,
	}
}

// MarkCatalog reclassifies a direct query as a catalog reference when its host
// is one of catalogHosts.
func (q *SearchQuery) MarkCatalog(catalogHosts []string) {
	if q.Kind != QueryKindDirect {
		return
	}
	if MatchesHost(q.Host, catalogHosts) {
		q.Kind = QueryKindCatalog
	}
}

// IsURL reports whether the query is a URL (direct or catalog).
func (q *SearchQuery) IsURL() bool {
	return q.Kind != QueryKindSearch
}

// ResolverQuery returns the query string formatted for the resolver.
func (q *SearchQuery) ResolverQuery() string {
	if q.IsURL() {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// IsValid returns true if the query is not empty.
func (q *SearchQuery) IsValid() bool {
	return q.Query != ""
}

// MatchesHost reports whether host equals, or is a subdomain of, any entry in hosts.
func MatchesHost(host string, hosts []string) bool {
	host = strings.ToLower(host)
	for _, allowed := range hosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// isURL checks if the input looks like a URL.
func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}

func hostOf(input string) string {
	if strings.HasPrefix(input, "www.") {
		input = "https://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
