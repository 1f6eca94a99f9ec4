package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	bbolt "go.etcd.io/bbolt"

	"github.com/kailas-cloud/vidsearch/internal/db"
)

// HSet merges fields into the hash at key.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return hset(tx.Bucket(bucketHashes), key, fields)
	})
	return wrap(db.OpHSet, err)
}

// HSetMulti stores multiple hashes in one transaction.
func (s *Store) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketHashes)
		for _, it := range items {
			if err := hset(b, it.Key, it.Fields); err != nil {
				return fmt.Errorf("key %s: %w", it.Key, err)
			}
		}
		return nil
	})
	return wrap(db.OpHSet, err)
}

func hset(b *bbolt.Bucket, key string, fields map[string]string) error {
	current, err := decodeHash(b.Get([]byte(key)))
	if err != nil {
		return err
	}
	for k, v := range fields {
		current[k] = v
	}
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode hash: %w", err)
	}
	return b.Put([]byte(key), data)
}

// HGetAll returns all fields of a hash. A missing key yields an empty map, as in Redis.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	var out map[string]string
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = decodeHash(tx.Bucket(bucketHashes).Get([]byte(key)))
		return err
	})
	if err != nil {
		return nil, wrap(db.OpHGetAll, err)
	}
	return out, nil
}

// HGetAllMulti fetches multiple hashes from one read transaction.
func (s *Store) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]map[string]string, len(keys))
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketHashes)
		for i, key := range keys {
			m, err := decodeHash(b.Get([]byte(key)))
			if err != nil {
				return fmt.Errorf("key %s: %w", key, err)
			}
			out[i] = m
		}
		return nil
	})
	if err != nil {
		return nil, wrap(db.OpHGetAll, err)
	}
	return out, nil
}

// Del deletes a key from every keyspace.
func (s *Store) Del(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		k := []byte(key)
		if err := tx.Bucket(bucketHashes).Delete(k); err != nil {
			return err
		}
		if err := tx.Bucket(bucketKV).Delete(k); err != nil {
			return err
		}
		for _, name := range [][]byte{bucketLists, bucketStreams} {
			parent := tx.Bucket(name)
			if parent.Bucket(k) != nil {
				if err := parent.DeleteBucket(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return wrap(db.OpDel, err)
}

// Exists checks whether a hash, live value, list or stream exists at key.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		k := []byte(key)
		if tx.Bucket(bucketHashes).Get(k) != nil ||
			tx.Bucket(bucketLists).Bucket(k) != nil ||
			tx.Bucket(bucketStreams).Bucket(k) != nil {
			found = true
			return nil
		}
		if raw := tx.Bucket(bucketKV).Get(k); raw != nil {
			e, err := decodeEntry(raw)
			if err != nil {
				return err
			}
			found = !e.expired(s.now())
		}
		return nil
	})
	if err != nil {
		return false, wrap(db.OpExists, err)
	}
	return found, nil
}

// Scan returns hash keys matching a glob pattern (e.g. "vidsearch:item:*").
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, &db.Error{Op: db.OpScan, Err: fmt.Errorf("invalid pattern %q", pattern)}
	}
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHashes).ForEach(func(k, _ []byte) error {
			ok, err := doublestar.Match(pattern, string(k))
			if err != nil {
				return err
			}
			if ok {
				keys = append(keys, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrap(db.OpScan, err)
	}
	return keys, nil
}

func decodeHash(raw []byte) (map[string]string, error) {
	m := make(map[string]string)
	if raw == nil {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode hash: %w", err)
	}
	return m, nil
}
