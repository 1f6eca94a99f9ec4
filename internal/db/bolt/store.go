package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/kailas-cloud/vidsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

var (
	bucketHashes  = []byte("hashes")
	bucketKV      = []byte("kv")
	bucketLists   = []byte("lists")
	bucketStreams = []byte("streams")
)

// Config holds the embedded database settings.
type Config struct {
	Path    string
	Timeout time.Duration // file lock timeout
}

// Store implements db.Store on a single bbolt file for single-node deployments
// and the operator CLI. Key semantics mirror the Redis store.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewStore opens (or creates) the database file and its buckets.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}

	bdb, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketHashes, bucketKV, bucketLists, bucketStreams} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return &Store{db: bdb, now: time.Now}, nil
}

// Ping checks that the file is open and readable.
func (s *Store) Ping(_ context.Context) error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketKV) == nil {
			return errors.New("kv bucket missing")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
			return fmt.Errorf("ping: %w", db.ErrClosed)
		}
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close closes the database file.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady returns immediately: an opened bolt file is ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		return err
	}
	return &db.Error{Op: op, Err: err}
}
