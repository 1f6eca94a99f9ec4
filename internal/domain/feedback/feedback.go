package feedback

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is one user judgment on a completed search. Immutable, append-only.
type Record struct {
	id        string
	searchID  string
	userID    string
	helpful   bool
	itemIDs   []string
	createdAt time.Time
}

// New validates and creates a feedback record with a fresh id.
// itemIDs are the exact ids shown to the user; they may be empty
// when the search log entry is gone.
func New(searchID, userID string, helpful bool, itemIDs []string, createdAt time.Time) (Record, error) {
	if searchID == "" {
		return Record{}, fmt.Errorf("search ID is required")
	}
	if userID == "" {
		return Record{}, fmt.Errorf("user ID is required")
	}
	ids := make([]string, len(itemIDs))
	copy(ids, itemIDs)

	return Record{
		id:        uuid.NewString(),
		searchID:  searchID,
		userID:    userID,
		helpful:   helpful,
		itemIDs:   ids,
		createdAt: createdAt.UTC(),
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id, searchID, userID string, helpful bool, itemIDs []string, createdAt time.Time) Record {
	return Record{
		id: id, searchID: searchID, userID: userID,
		helpful: helpful, itemIDs: itemIDs, createdAt: createdAt,
	}
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// SearchID returns the judged search.
func (r *Record) SearchID() string { return r.searchID }

// UserID returns the judging user.
func (r *Record) UserID() string { return r.userID }

// Helpful returns the judgment.
func (r *Record) Helpful() bool { return r.helpful }

// ItemIDs returns the ids shown when the judgment was made.
func (r *Record) ItemIDs() []string { return r.itemIDs }

// CreatedAt returns the record timestamp (UTC).
func (r *Record) CreatedAt() time.Time { return r.createdAt }
