package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/kailas-cloud/vidsearch/internal/db"
)

// entry is a KV value with an optional absolute expiry (unix millis, 0 = none).
type entry struct {
	Value     []byte `json:"v"`
	ExpiresAt int64  `json:"e,omitempty"`
}

func (e entry) expired(now time.Time) bool {
	return e.ExpiresAt > 0 && now.UnixMilli() >= e.ExpiresAt
}

func decodeEntry(raw []byte) (entry, error) {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}

func putEntry(b *bbolt.Bucket, key string, e entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return b.Put([]byte(key), data)
}

// liveEntry loads an entry, treating an expired one as missing.
func (s *Store) liveEntry(b *bbolt.Bucket, key string) (entry, bool, error) {
	raw := b.Get([]byte(key))
	if raw == nil {
		return entry{}, false, nil
	}
	e, err := decodeEntry(raw)
	if err != nil {
		return entry{}, false, err
	}
	if e.expired(s.now()) {
		return entry{}, false, nil
	}
	return e, true, nil
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		e, ok, err := s.liveEntry(tx.Bucket(bucketKV), key)
		if err != nil {
			return err
		}
		if !ok {
			return db.ErrKeyNotFound
		}
		out = e.Value
		return nil
	})
	if err != nil {
		return nil, wrap(db.OpGet, err)
	}
	return out, nil
}

// Set stores a value without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return putEntry(tx.Bucket(bucketKV), key, entry{Value: value})
	})
	return wrap(db.OpSet, err)
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return putEntry(tx.Bucket(bucketKV), key, entry{
			Value:     value,
			ExpiresAt: s.now().Add(ttl).UnixMilli(),
		})
	})
	return wrap(db.OpSet, err)
}

// IncrByTTL adds val to an integer counter and returns the new total. A new
// counter, or one without an expiry, gets ttl; a running one keeps its expiry.
func (s *Store) IncrByTTL(_ context.Context, key string, val int64, ttl time.Duration) (int64, error) {
	var total int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKV)
		e, ok, err := s.liveEntry(b, key)
		if err != nil {
			return err
		}
		if ok {
			total, err = strconv.ParseInt(string(e.Value), 10, 64)
			if err != nil {
				return fmt.Errorf("value is not an integer: %w", err)
			}
		} else {
			e = entry{}
		}
		total += val
		e.Value = []byte(strconv.FormatInt(total, 10))
		if e.ExpiresAt == 0 && ttl > 0 {
			e.ExpiresAt = s.now().Add(ttl).UnixMilli()
		}
		return putEntry(b, key, e)
	})
	if err != nil {
		return 0, wrap(db.OpIncrBy, err)
	}
	return total, nil
}
