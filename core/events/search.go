package events

const (
	// KindSearchResults identifies external preview search results.
	KindSearchResults Kind = "search.results"
	// KindPreviewStarted identifies the start of a preview clip.
	KindPreviewStarted Kind = "search.preview_started"
	// KindPreviewLinkOffered identifies a link offered in place of a preview.
	KindPreviewLinkOffered Kind = "search.link_offered"
)

// Track is one search result.
type Track struct {
	Name       string
	Artists    string
	PreviewURL string
	SpotifyURL string
}

// Playable reports whether the track has a preview clip.
func (t Track) Playable() bool { return t.PreviewURL != "" }

// FirstPlayable returns the first track with a preview clip.
func FirstPlayable(tracks []Track) (Track, bool) {
	for _, track := range tracks {
		if track.Playable() {
			return track, true
		}
	}
	return Track{}, false
}

// SearchResults carries search results in backend order.
type SearchResults struct {
	Base
	Tracks []Track
}

// NewSearchResults creates a search results event.
func NewSearchResults(tracks []Track) SearchResults {
	return SearchResults{Base: NewBase(KindSearchResults), Tracks: tracks}
}

// PreviewStarted carries the track whose preview began playing.
type PreviewStarted struct {
	Base
	Track Track
}

// NewPreviewStarted creates a preview started event.
func NewPreviewStarted(track Track) PreviewStarted {
	return PreviewStarted{Base: NewBase(KindPreviewStarted), Track: track}
}

// PreviewLinkOffered carries a track that can only be opened externally.
type PreviewLinkOffered struct {
	Base
	Track Track
}

// NewPreviewLinkOffered creates a link offered event.
func NewPreviewLinkOffered(track Track) PreviewLinkOffered {
	return PreviewLinkOffered{Base: NewBase(KindPreviewLinkOffered), Track: track}
}
