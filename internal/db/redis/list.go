package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vidsearch/internal/db"
)

// RPushAtomic appends to several lists inside MULTI/EXEC, sent as one DoMulti
// pipeline. In cluster mode every key must hash to the same slot.
func (s *Store) RPushAtomic(ctx context.Context, pushes []db.ListPush) error {
	cmds := make(rueidis.Commands, 0, len(pushes)+2)
	cmds = append(cmds, s.b().Multi().Build())
	for _, p := range pushes {
		if len(p.Values) == 0 {
			continue
		}
		elems := make([]string, len(p.Values))
		for i, v := range p.Values {
			elems[i] = string(v)
		}
		cmds = append(cmds, s.b().Rpush().Key(p.Key).Element(elems...).Build())
	}
	if len(cmds) == 1 {
		return nil
	}
	cmds = append(cmds, s.b().Exec().Build())

	results := s.client.DoMulti(ctx, cmds...)
	for _, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpRPush, Err: err}
		}
	}
	// Commands that fail after queuing report inside the EXEC reply.
	replies, err := results[len(results)-1].ToArray()
	if err != nil {
		return &db.Error{Op: db.OpRPush, Err: fmt.Errorf("exec: %w", err)}
	}
	for i := range replies {
		if err := replies[i].Error(); err != nil {
			return &db.Error{Op: db.OpRPush, Err: err}
		}
	}
	return nil
}

// LRange returns list elements between start and stop (inclusive, negative = from tail).
// A missing key yields an empty slice.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	cmd := s.b().Lrange().Key(key).Start(start).Stop(stop).Build()
	vals, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}
