package feedback

import (
	"context"

	domfb "github.com/kailas-cloud/vidsearch/internal/domain/feedback"
)

// Repository is the append-only feedback log.
type Repository interface {
	Append(ctx context.Context, rec *domfb.Record) error
	List(ctx context.Context, searchID string) ([]domfb.Record, error)
}

// ShownItems resolves the ids a search showed.
type ShownItems interface {
	ItemIDs(ctx context.Context, searchID string) ([]string, error)
}
