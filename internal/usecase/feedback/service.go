// Package feedback records user judgments on completed searches.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	domfb "github.com/kailas-cloud/vidsearch/internal/domain/feedback"
	"github.com/kailas-cloud/vidsearch/internal/logger"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
)

// Service appends and lists feedback records.
type Service struct {
	repo   Repository
	shown  ShownItems
	logger *zap.Logger
	now    func() time.Time
}

// New creates a feedback service. shown may be nil.
func New(repo Repository, shown ShownItems, logger *zap.Logger) *Service {
	return &Service{repo: repo, shown: shown, logger: logger, now: time.Now}
}

// Submit appends one judgment. The shown item ids come from the search log;
// an expired or missing entry still records the judgment with no ids.
// Every call appends a new record.
func (s *Service) Submit(ctx context.Context, searchID, userID string, helpful bool) (domfb.Record, error) {
	log := logger.FromContextOr(ctx, s.logger).With(zap.String("search_id", searchID))

	var itemIDs []string
	if searchID != "" && userID != "" {
		itemIDs = s.resolve(ctx, log, searchID)
	}

	rec, err := domfb.New(searchID, userID, helpful, itemIDs, s.now())
	if err != nil {
		return domfb.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidFeedback, err)
	}

	if err := s.repo.Append(ctx, &rec); err != nil {
		log.Error("Feedback append failed", zap.Error(err))
		return domfb.Record{}, fmt.Errorf("%w: %w", domain.ErrFeedbackStore, err)
	}

	metrics.FeedbackTotal.WithLabelValues(strconv.FormatBool(helpful)).Inc()
	log.Info("Feedback recorded",
		zap.String("feedback_id", rec.ID()),
		zap.Bool("helpful", helpful),
		zap.Int("items", len(itemIDs)),
	)
	return rec, nil
}

// List returns the records for one search in append order.
func (s *Service) List(ctx context.Context, searchID string) ([]domfb.Record, error) {
	if searchID == "" {
		return nil, fmt.Errorf("%w: search ID is required", domain.ErrInvalidFeedback)
	}
	recs, err := s.repo.List(ctx, searchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFeedbackStore, err)
	}
	return recs, nil
}

func (s *Service) resolve(ctx context.Context, log *zap.Logger, searchID string) []string {
	if s.shown == nil {
		return nil
	}
	ids, err := s.shown.ItemIDs(ctx, searchID)
	switch {
	case err == nil:
		return ids
	case errors.Is(err, domain.ErrNotFound):
		log.Warn("Search log entry missing, recording feedback without item ids")
	default:
		log.Warn("Search log lookup failed, recording feedback without item ids", zap.Error(err))
	}
	return nil
}
