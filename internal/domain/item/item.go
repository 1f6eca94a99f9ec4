package item

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Item is a corpus entry (a video with text metadata). Immutable value object.
// The pipeline only reads items; they are written by the catalog ingest.
type Item struct {
	id           string
	title        string
	description  string
	location     string
	locationKey  string
	embedding    []float32
	thumbnailURL string
	videoURL     string
	userID       string
	createdAt    time.Time
}

// Draft is an unembedded item as supplied by an uploader or a seed file.
type Draft struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	Description  string `json:"description" yaml:"description"`
	Location     string `json:"location" yaml:"location"`
	ThumbnailURL string `json:"thumbnail_url,omitempty" yaml:"thumbnail_url"`
	VideoURL     string `json:"video_url,omitempty" yaml:"video_url"`
	UserID       string `json:"user_id,omitempty" yaml:"user_id"`
}

// New validates a draft and creates an Item with the given embedding.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Title is required.
func New(d Draft, embedding []float32, createdAt time.Time) (Item, error) {
	if d.ID == "" {
		return Item{}, fmt.Errorf("item ID is required")
	}
	if len(d.ID) > 256 {
		return Item{}, fmt.Errorf("item ID too long (max 256)")
	}
	if !idRegex.MatchString(d.ID) {
		return Item{}, fmt.Errorf("item ID must be alphanumeric with underscores and hyphens")
	}
	if strings.TrimSpace(d.Title) == "" {
		return Item{}, fmt.Errorf("title is required")
	}

	return Item{
		id:           d.ID,
		title:        d.Title,
		description:  d.Description,
		location:     d.Location,
		locationKey:  NormalizeLocation(d.Location),
		embedding:    embedding,
		thumbnailURL: d.ThumbnailURL,
		videoURL:     d.VideoURL,
		userID:       d.UserID,
		createdAt:    createdAt.UTC(),
	}, nil
}

// Reconstruct creates an Item without validation (storage hydration).
func Reconstruct(
	id, title, description, location, locationKey string,
	embedding []float32, thumbnailURL, videoURL, userID string, createdAt time.Time,
) Item {
	return Item{
		id: id, title: title, description: description,
		location: location, locationKey: locationKey, embedding: embedding,
		thumbnailURL: thumbnailURL, videoURL: videoURL, userID: userID, createdAt: createdAt,
	}
}

// ID returns the item identifier.
func (i *Item) ID() string { return i.id }

// Title returns the item title.
func (i *Item) Title() string { return i.title }

// Description returns the item description.
func (i *Item) Description() string { return i.description }

// Location returns the free-text location label.
func (i *Item) Location() string { return i.location }

// LocationKey returns the normalized location used for filtering.
func (i *Item) LocationKey() string { return i.locationKey }

// Embedding returns the precomputed embedding (nil if absent).
func (i *Item) Embedding() []float32 { return i.embedding }

// ThumbnailURL returns the thumbnail location.
func (i *Item) ThumbnailURL() string { return i.thumbnailURL }

// VideoURL returns the media location.
func (i *Item) VideoURL() string { return i.videoURL }

// UserID returns the uploader.
func (i *Item) UserID() string { return i.userID }

// CreatedAt returns the creation time.
func (i *Item) CreatedAt() time.Time { return i.createdAt }

// HasEmbedding reports whether the item can take part in retrieval.
func (i *Item) HasEmbedding() bool { return len(i.embedding) > 0 }

// MatchesLocation reports whether the item passes a location filter.
// An empty filter matches everything.
func (i *Item) MatchesLocation(filter string) bool {
	key := NormalizeLocation(filter)
	return key == "" || i.locationKey == key
}

// EmbeddingText is the text embedded for an item at ingest time.
func EmbeddingText(d Draft) string {
	return strings.Join([]string{d.Title, d.Location, d.ID, d.Description}, " | ")
}

// NormalizeLocation lowercases and collapses whitespace so "New  York " == "new york".
func NormalizeLocation(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
