package request

import (
	"strings"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("hiking spots", "", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "hiking spots" {
		t.Errorf("Query() = %q", r.Query())
	}
	if r.TopK() != DefaultTopK {
		t.Errorf("TopK() = %d, want %d", r.TopK(), DefaultTopK)
	}
	if r.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", r.Limit(), DefaultLimit)
	}
	if r.Location() != "" {
		t.Errorf("Location() = %q", r.Location())
	}
}

func TestNew_TrimsInput(t *testing.T) {
	r, err := New("  tacos  ", " Austin ", 3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "tacos" {
		t.Errorf("Query() = %q", r.Query())
	}
	if r.Location() != "Austin" {
		t.Errorf("Location() = %q", r.Location())
	}
	if r.TopK() != 3 || r.Limit() != 2 {
		t.Errorf("TopK()=%d Limit()=%d", r.TopK(), r.Limit())
	}
}

func TestNew_LimitNotClampedToTopK(t *testing.T) {
	r, err := New("q", "", 5, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != 20 {
		t.Errorf("Limit() = %d, want 20", r.Limit())
	}
}

func TestNew_Caps(t *testing.T) {
	r, err := New("q", "", 1000, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TopK() != MaxTopK {
		t.Errorf("TopK() = %d, want %d", r.TopK(), MaxTopK)
	}
	if r.Limit() != MaxLimit {
		t.Errorf("Limit() = %d, want %d", r.Limit(), MaxLimit)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		topK, limit int
	}{
		{"empty", "", 0, 0},
		{"whitespace", "   ", 0, 0},
		{"too long", strings.Repeat("a", MaxQueryLength+1), 0, 0},
		{"negative limit", "q", 0, -1},
		{"negative topK", "q", -1, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.query, "", tc.topK, tc.limit); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
