package budget

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/vidsearch/internal/db"
	"github.com/kailas-cloud/vidsearch/internal/db/bolt"
	domusage "github.com/kailas-cloud/vidsearch/internal/domain/usage"
)

type mockStore struct {
	getFn  func(ctx context.Context, key string) ([]byte, error)
	incrFn func(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) IncrByTTL(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error) {
	if m.incrFn != nil {
		return m.incrFn(ctx, key, val, ttl)
	}
	return val, nil
}

var may1 = time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC)

func TestKey(t *testing.T) {
	if got := Key("openai", domusage.PeriodDay, may1); got != "vidsearch:budget:openai:daily:2026-05-01" {
		t.Errorf("daily key = %q", got)
	}
	if got := Key("openai", domusage.PeriodMonth, may1); got != "vidsearch:budget:openai:monthly:2026-05" {
		t.Errorf("monthly key = %q", got)
	}
	// Windows are UTC: 01:00 on May 2nd in +02:00 is still May 1st.
	local := time.Date(2026, 5, 2, 1, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	if got := Key("openai", domusage.PeriodDay, local); got != "vidsearch:budget:openai:daily:2026-05-01" {
		t.Errorf("daily key for non-UTC time = %q", got)
	}
}

func TestAdd_UsesPeriodTTL(t *testing.T) {
	tests := []struct {
		period  domusage.Period
		wantKey string
		wantTTL time.Duration
	}{
		{domusage.PeriodDay, "vidsearch:budget:openai:daily:2026-05-01", 48 * time.Hour},
		{domusage.PeriodMonth, "vidsearch:budget:openai:monthly:2026-05", 62 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			var gotKey string
			var gotTTL time.Duration
			ms := &mockStore{incrFn: func(_ context.Context, key string, val int64, ttl time.Duration) (int64, error) {
				gotKey, gotTTL = key, ttl
				return 100 + val, nil
			}}
			s := New(ms, 48*time.Hour, 62*24*time.Hour)

			total, err := s.Add(context.Background(), "openai", tt.period, may1, 10)
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
			if total != 110 {
				t.Errorf("total = %d, want 110", total)
			}
			if gotKey != tt.wantKey || gotTTL != tt.wantTTL {
				t.Errorf("key=%s ttl=%v, want %s %v", gotKey, gotTTL, tt.wantKey, tt.wantTTL)
			}
		})
	}
}

func TestAdd_Error(t *testing.T) {
	boom := errors.New("boom")
	s := New(&mockStore{incrFn: func(context.Context, string, int64, time.Duration) (int64, error) {
		return 0, boom
	}}, time.Hour, time.Hour)

	if _, err := s.Add(context.Background(), "openai", domusage.PeriodDay, may1, 1); !errors.Is(err, boom) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	s := New(&mockStore{}, time.Hour, time.Hour)
	v, err := s.Load(context.Background(), "openai", domusage.PeriodDay, may1)
	if err != nil || v != 0 {
		t.Fatalf("missing counter: v=%d err=%v", v, err)
	}

	s = New(&mockStore{getFn: func(context.Context, string) ([]byte, error) { return []byte("1234"), nil }}, time.Hour, time.Hour)
	v, err = s.Load(context.Background(), "openai", domusage.PeriodMonth, may1)
	if err != nil || v != 1234 {
		t.Fatalf("v=%d err=%v", v, err)
	}

	s = New(&mockStore{getFn: func(context.Context, string) ([]byte, error) { return []byte("x"), nil }}, time.Hour, time.Hour)
	if _, err := s.Load(context.Background(), "openai", domusage.PeriodDay, may1); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStore_BoltCountersAreSharedPerWindow(t *testing.T) {
	ctx := context.Background()
	bs, err := bolt.NewStore(bolt.Config{Path: filepath.Join(t.TempDir(), "budget.db")})
	if err != nil {
		t.Fatalf("bolt: %v", err)
	}
	t.Cleanup(bs.Close)

	// Two trackers sharing one store see each other's spend.
	a := New(bs, 48*time.Hour, 62*24*time.Hour)
	b := New(bs, 48*time.Hour, 62*24*time.Hour)
	if _, err := a.Add(ctx, "openai", domusage.PeriodDay, may1, 30); err != nil {
		t.Fatalf("Add: %v", err)
	}
	total, err := b.Add(ctx, "openai", domusage.PeriodDay, may1, 12)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if total != 42 {
		t.Errorf("total = %d, want 42", total)
	}

	next, err := a.Load(ctx, "openai", domusage.PeriodDay, may1.Add(time.Hour))
	if err != nil || next != 0 {
		t.Errorf("next day: v=%d err=%v", next, err)
	}
	month, err := a.Load(ctx, "openai", domusage.PeriodMonth, may1)
	if err != nil || month != 0 {
		t.Errorf("month counter is separate: v=%d err=%v", month, err)
	}
}
