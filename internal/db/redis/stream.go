package redis

import (
	"context"
	"sort"
	"strconv"

	"github.com/kailas-cloud/vidsearch/internal/db"
)

// XAdd appends an entry to a stream with an auto-generated id.
// maxLen > 0 applies approximate trimming (MAXLEN ~ n).
func (s *Store) XAdd(ctx context.Context, key string, maxLen int64, fields map[string]string) error {
	args := make([]string, 0, 4+2*len(fields))
	if maxLen > 0 {
		args = append(args, "MAXLEN", "~", strconv.FormatInt(maxLen, 10))
	}
	args = append(args, "*")

	// Stable field order keeps entries diffable.
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		args = append(args, k, fields[k])
	}

	cmd := s.b().Arbitrary("XADD").Keys(key).Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpXAdd, Err: err}
	}
	return nil
}
