package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	bbolt "go.etcd.io/bbolt"

	"github.com/kailas-cloud/vidsearch/internal/db"
)

// Lists and streams are nested buckets keyed by a big-endian sequence,
// so cursor order is insertion order.

func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

// RPushAtomic appends to several lists in a single bbolt transaction.
func (s *Store) RPushAtomic(_ context.Context, pushes []db.ListPush) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, p := range pushes {
			if len(p.Values) == 0 {
				continue
			}
			b, err := tx.Bucket(bucketLists).CreateBucketIfNotExists([]byte(p.Key))
			if err != nil {
				return err
			}
			for _, v := range p.Values {
				n, err := b.NextSequence()
				if err != nil {
					return err
				}
				if err := b.Put(seqKey(n), v); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return wrap(db.OpRPush, err)
}

// LRange returns elements between start and stop inclusive; negative indexes count from the tail.
func (s *Store) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	var all [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLists).Bucket([]byte(key))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			cp := make([]byte, len(v))
			copy(cp, v)
			all = append(all, cp)
			return nil
		})
	})
	if err != nil {
		return nil, wrap(db.OpLRange, err)
	}

	n := int64(len(all))
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return [][]byte{}, nil
	}
	return all[start : stop+1], nil
}

// XAdd appends a stream entry and trims the oldest entries beyond maxLen.
func (s *Store) XAdd(_ context.Context, key string, maxLen int64, fields map[string]string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketStreams).CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return err
		}
		n, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := encodeFields(fields)
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(n), data); err != nil {
			return err
		}
		if maxLen <= 0 {
			return nil
		}
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for i := 0; i < len(keys)-int(maxLen); i++ {
			if err := b.Delete(keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(db.OpXAdd, err)
}

func encodeFields(fields map[string]string) ([]byte, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode stream entry: %w", err)
	}
	return data, nil
}
