package feedback

import (
	"time"

	domfb "github.com/kailas-cloud/vidsearch/internal/domain/feedback"
)

// recordDTO is the JSON shape of a stored feedback record.
type recordDTO struct {
	ID        string    `json:"id"`
	SearchID  string    `json:"search_id"`
	UserID    string    `json:"user_id"`
	Helpful   bool      `json:"helpful"`
	ItemIDs   []string  `json:"item_ids"`
	CreatedAt time.Time `json:"created_at"`
}

func toDTO(r *domfb.Record) recordDTO {
	ids := r.ItemIDs()
	if ids == nil {
		ids = []string{}
	}
	return recordDTO{
		ID:        r.ID(),
		SearchID:  r.SearchID(),
		UserID:    r.UserID(),
		Helpful:   r.Helpful(),
		ItemIDs:   ids,
		CreatedAt: r.CreatedAt(),
	}
}

func (d recordDTO) toDomain() domfb.Record {
	return domfb.Reconstruct(d.ID, d.SearchID, d.UserID, d.Helpful, d.ItemIDs, d.CreatedAt)
}
