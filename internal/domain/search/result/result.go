package result

import "time"

// Result is a single ranked hit with the metadata shown to the user.
type Result struct {
	id           string
	score        float64
	title        string
	description  string
	location     string
	thumbnailURL string
	videoURL     string
}

// New creates a search result.
func New(id string, score float64, title, description, location, thumbnailURL, videoURL string) Result {
	return Result{
		id: id, score: score, title: title, description: description,
		location: location, thumbnailURL: thumbnailURL, videoURL: videoURL,
	}
}

// ID returns the item identifier.
func (r *Result) ID() string { return r.id }

// Score returns the aggregated similarity score. Informational once reranked.
func (r *Result) Score() float64 { return r.score }

// Title returns the item title.
func (r *Result) Title() string { return r.title }

// Description returns the item description.
func (r *Result) Description() string { return r.description }

// Location returns the item location label.
func (r *Result) Location() string { return r.location }

// ThumbnailURL returns the thumbnail location.
func (r *Result) ThumbnailURL() string { return r.thumbnailURL }

// VideoURL returns the media location.
func (r *Result) VideoURL() string { return r.videoURL }

// Stage names reported in Set.Fallbacks.
const (
	StageExpand = "expand"
	StageRerank = "rerank"
)

// Set is the immutable outcome of one search call.
type Set struct {
	searchID  string
	query     string
	location  string
	results   []Result
	fallbacks []string
	createdAt time.Time
}

// NewSet creates a result set.
func NewSet(searchID, query, location string, results []Result, fallbacks []string, createdAt time.Time) Set {
	return Set{
		searchID:  searchID,
		query:     query,
		location:  location,
		results:   results,
		fallbacks: fallbacks,
		createdAt: createdAt,
	}
}

// SearchID returns the identifier feedback is keyed on.
func (s *Set) SearchID() string { return s.searchID }

// Query returns the original query.
func (s *Set) Query() string { return s.query }

// Location returns the applied location filter.
func (s *Set) Location() string { return s.location }

// Results returns the ranked results.
func (s *Set) Results() []Result { return s.results }

// Fallbacks returns the stages that degraded to their fallback path.
func (s *Set) Fallbacks() []string { return s.fallbacks }

// CreatedAt returns when the search completed.
func (s *Set) CreatedAt() time.Time { return s.createdAt }

// IDs returns result ids in ranked order.
func (s *Set) IDs() []string {
	ids := make([]string, len(s.results))
	for i := range s.results {
		ids[i] = s.results[i].id
	}
	return ids
}

// Len returns the number of results.
func (s *Set) Len() int { return len(s.results) }
