package vidsearch

import "time"

// Item is a video to add to the corpus. ID and Title are required.
type Item struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	Description  string `json:"description" yaml:"description"`
	Location     string `json:"location" yaml:"location"`
	ThumbnailURL string `json:"thumbnail_url,omitempty" yaml:"thumbnail_url"`
	VideoURL     string `json:"video_url,omitempty" yaml:"video_url"`
	UserID       string `json:"user_id,omitempty" yaml:"user_id"`
}

// PutResult is the outcome of one item in a PutItems call.
type PutResult struct {
	ID  string
	OK  bool
	Err error
}

// SearchOptions narrows a search. Zero values use the defaults
// (no location filter, 5 results, top 5 per variant).
type SearchOptions struct {
	Location string
	Limit    int
	TopK     int
}

// SearchResult is a single ranked hit.
type SearchResult struct {
	ID           string  `json:"id"`
	Score        float64 `json:"score"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Location     string  `json:"location"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	VideoURL     string  `json:"video_url,omitempty"`
}

// SearchResponse is the outcome of one search.
// Fallbacks names the stages ("expand", "rerank") that degraded.
type SearchResponse struct {
	SearchID  string         `json:"search_id"`
	Query     string         `json:"query"`
	Location  string         `json:"location,omitempty"`
	Results   []SearchResult `json:"results"`
	Fallbacks []string       `json:"fallbacks"`
	CreatedAt time.Time      `json:"created_at"`
}

// Feedback is a user's verdict on a search.
type Feedback struct {
	ID        string
	SearchID  string
	UserID    string
	Helpful   bool
	ItemIDs   []string
	CreatedAt time.Time
}
