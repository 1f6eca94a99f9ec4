package catalog

import (
	"context"

	"github.com/kailas-cloud/vidsearch/internal/domain/item"
)

// Writer stores embedded items. PutMany is the normal path; Put is used to
// retry items one at a time after a batch write fails.
type Writer interface {
	Put(ctx context.Context, it *item.Item) error
	PutMany(ctx context.Context, items []item.Item) error
}
