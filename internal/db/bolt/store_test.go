package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bbolt "go.etcd.io/bbolt"

	"github.com/kailas-cloud/vidsearch/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "data", "vidsearch.db")})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestNewStore_RequiresPath(t *testing.T) {
	_, err := NewStore(Config{})
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.WaitForReady(context.Background(), time.Second))
}

func TestPing_Closed(t *testing.T) {
	s, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "closed.db")})
	require.NoError(t, err)
	s.Close()
	err = s.Ping(context.Background())
	require.ErrorIs(t, err, db.ErrClosed)
}

func TestHash_SetMergeGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.HSet(ctx, "vidsearch:item:v1", map[string]string{"title": "Sunset hike", "location_key": "sf"}))
	require.NoError(t, s.HSet(ctx, "vidsearch:item:v1", map[string]string{"title": "Sunset hike 2"}))

	got, err := s.HGetAll(ctx, "vidsearch:item:v1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"title": "Sunset hike 2", "location_key": "sf"}, got)

	missing, err := s.HGetAll(ctx, "vidsearch:item:nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestHash_MultiAndScan(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.HSetMulti(ctx, []db.HashSetItem{
		{Key: "vidsearch:item:a", Fields: map[string]string{"title": "A"}},
		{Key: "vidsearch:item:b", Fields: map[string]string{"title": "B"}},
		{Key: "vidsearch:other:c", Fields: map[string]string{"title": "C"}},
	}))

	keys, err := s.Scan(ctx, "vidsearch:item:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"vidsearch:item:a", "vidsearch:item:b"}, keys)

	maps, err := s.HGetAllMulti(ctx, []string{"vidsearch:item:b", "vidsearch:item:x"})
	require.NoError(t, err)
	require.Len(t, maps, 2)
	assert.Equal(t, "B", maps[0]["title"])
	assert.Empty(t, maps[1])
}

func TestScan_InvalidPattern(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Scan(context.Background(), "vidsearch:[")
	var dbErr *db.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, db.OpScan, dbErr.Op)
}

func TestDelExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.HSet(ctx, "h", map[string]string{"a": "1"}))
	require.NoError(t, s.RPushAtomic(ctx, []db.ListPush{{Key: "l", Values: [][]byte{[]byte("x")}}}))
	require.NoError(t, s.Set(ctx, "k", []byte("v")))

	for _, key := range []string{"h", "l", "k"} {
		ok, err := s.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)

		require.NoError(t, s.Del(ctx, key))
		ok, err = s.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestKV_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestKV_TTLExpires(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.SetWithTTL(ctx, "vidsearch:search:s1", []byte("{}"), time.Minute))
	got, err := s.Get(ctx, "vidsearch:search:s1")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), got)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "vidsearch:search:s1")
	require.ErrorIs(t, err, db.ErrKeyNotFound)

	ok, err := s.Exists(ctx, "vidsearch:search:s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKV_IncrByTTLKeepsFirstExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	total, err := s.IncrByTTL(ctx, "budget", 10, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 10, total)

	now = now.Add(30 * time.Minute)
	total, err = s.IncrByTTL(ctx, "budget", 5, 48*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 15, total)

	// The hour from the first increment has passed; the 48h ttl was not applied.
	now = now.Add(31 * time.Minute)
	_, err = s.Get(ctx, "budget")
	require.ErrorIs(t, err, db.ErrKeyNotFound)

	total, err = s.IncrByTTL(ctx, "budget", 3, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestKV_IncrByTTLAddsExpiryToPlainKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "counter", []byte("7")))
	total, err := s.IncrByTTL(ctx, "counter", 1, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 8, total)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "counter")
	require.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestKV_IncrByTTLNonInteger(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Set(ctx, "k", []byte("abc")))

	_, err := s.IncrByTTL(ctx, "k", 1, time.Hour)
	var dbErr *db.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, db.OpIncrBy, dbErr.Op)
}

func TestList_RPushAtomicLRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	push := func(vals ...string) []db.ListPush {
		p := db.ListPush{Key: "vidsearch:{feedback}:s1"}
		for _, v := range vals {
			p.Values = append(p.Values, []byte(v))
		}
		return []db.ListPush{p}
	}
	require.NoError(t, s.RPushAtomic(ctx, push("a", "b")))
	require.NoError(t, s.RPushAtomic(ctx, push("c")))
	require.NoError(t, s.RPushAtomic(ctx, push()))

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{"all", 0, -1, []string{"a", "b", "c"}},
		{"head", 0, 1, []string{"a", "b"}},
		{"tail", -2, -1, []string{"b", "c"}},
		{"past end", 1, 10, []string{"b", "c"}},
		{"empty range", 2, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.LRange(ctx, "vidsearch:{feedback}:s1", tt.start, tt.stop)
			require.NoError(t, err)
			var strs []string
			for _, v := range got {
				strs = append(strs, string(v))
			}
			assert.Equal(t, tt.want, strs)
		})
	}

	empty, err := s.LRange(ctx, "vidsearch:{feedback}:none", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestList_RPushAtomicWritesEveryList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RPushAtomic(ctx, []db.ListPush{
		{Key: "vidsearch:{feedback}:s1", Values: [][]byte{[]byte("x")}},
		{Key: "vidsearch:{feedback}:all", Values: [][]byte{[]byte("x")}},
	}))

	for _, key := range []string{"vidsearch:{feedback}:s1", "vidsearch:{feedback}:all"} {
		got, err := s.LRange(ctx, key, 0, -1)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("x")}, got, key)
	}
}

func TestList_RPushAtomicClosedStoreWritesNothing(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "closed.db")})
	require.NoError(t, err)
	s.Close()

	err = s.RPushAtomic(ctx, []db.ListPush{
		{Key: "vidsearch:{feedback}:s1", Values: [][]byte{[]byte("x")}},
		{Key: "vidsearch:{feedback}:all", Values: [][]byte{[]byte("x")}},
	})
	var dbErr *db.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, db.OpRPush, dbErr.Op)
}

func TestStream_XAddTrims(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.XAdd(ctx, "vidsearch:traces", 3, map[string]string{"span": "{}"}))
	}

	ok, err := s.Exists(ctx, "vidsearch:traces")
	require.NoError(t, err)
	require.True(t, ok)

	var n int
	err = s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketStreams).Bucket([]byte("vidsearch:traces")).Stats().KeyN
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
