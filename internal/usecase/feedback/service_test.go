package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	domfb "github.com/kailas-cloud/vidsearch/internal/domain/feedback"
)

type memRepo struct {
	records   []domfb.Record
	appendErr error
	listErr   error
}

func (m *memRepo) Append(_ context.Context, rec *domfb.Record) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *memRepo) List(_ context.Context, searchID string) ([]domfb.Record, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domfb.Record
	for _, r := range m.records {
		if r.SearchID() == searchID {
			out = append(out, r)
		}
	}
	return out, nil
}

type shownFunc func(ctx context.Context, searchID string) ([]string, error)

func (f shownFunc) ItemIDs(ctx context.Context, searchID string) ([]string, error) {
	return f(ctx, searchID)
}

func shownIDs(ids ...string) ShownItems {
	return shownFunc(func(context.Context, string) ([]string, error) { return ids, nil })
}

func TestSubmit_ResolvesShownItems(t *testing.T) {
	repo := &memRepo{}
	svc := New(repo, shownIDs("v2", "v1"), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)) }

	rec, err := svc.Submit(context.Background(), "s1", "u1", true)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID())
	assert.Equal(t, []string{"v2", "v1"}, rec.ItemIDs())
	assert.True(t, rec.Helpful())
	assert.Equal(t, time.UTC, rec.CreatedAt().Location())
	require.Len(t, repo.records, 1)
}

func TestSubmit_AppendsEveryJudgment(t *testing.T) {
	repo := &memRepo{}
	svc := New(repo, shownIDs("a"), zap.NewNop())

	r1, err := svc.Submit(context.Background(), "s1", "u1", true)
	require.NoError(t, err)
	r2, err := svc.Submit(context.Background(), "s1", "u1", false)
	require.NoError(t, err)

	assert.NotEqual(t, r1.ID(), r2.ID())
	list, err := svc.List(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Helpful())
	assert.False(t, list[1].Helpful())
}

func TestSubmit_MissingSearchLogStillRecords(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	repo := &memRepo{}
	shown := shownFunc(func(context.Context, string) ([]string, error) { return nil, domain.ErrNotFound })

	rec, err := New(repo, shown, zap.New(core)).Submit(context.Background(), "expired", "u1", true)

	require.NoError(t, err)
	assert.Empty(t, rec.ItemIDs())
	assert.Len(t, repo.records, 1)
	assert.Equal(t, 1, logs.Len())
}

func TestSubmit_SearchLogErrorStillRecords(t *testing.T) {
	repo := &memRepo{}
	shown := shownFunc(func(context.Context, string) ([]string, error) { return nil, errors.New("timeout") })

	_, err := New(repo, shown, zap.NewNop()).Submit(context.Background(), "s1", "u1", false)

	require.NoError(t, err)
	assert.Len(t, repo.records, 1)
}

func TestSubmit_Invalid(t *testing.T) {
	called := false
	shown := shownFunc(func(context.Context, string) ([]string, error) { called = true; return nil, nil })
	svc := New(&memRepo{}, shown, zap.NewNop())

	_, err := svc.Submit(context.Background(), "", "u1", true)
	assert.ErrorIs(t, err, domain.ErrInvalidFeedback)

	_, err = svc.Submit(context.Background(), "s1", "", true)
	assert.ErrorIs(t, err, domain.ErrInvalidFeedback)
	assert.False(t, called)
}

func TestSubmit_StoreFailure(t *testing.T) {
	repo := &memRepo{appendErr: errors.New("READONLY")}

	_, err := New(repo, nil, zap.NewNop()).Submit(context.Background(), "s1", "u1", true)

	assert.ErrorIs(t, err, domain.ErrFeedbackStore)
}

func TestList_Errors(t *testing.T) {
	svc := New(&memRepo{listErr: errors.New("down")}, nil, zap.NewNop())

	_, err := svc.List(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrFeedbackStore)

	_, err = svc.List(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidFeedback)
}
