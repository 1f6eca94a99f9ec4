package health

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names in Report.Checks.
const (
	ComponentDatabase   = "database"
	ComponentEmbedding  = "embedding"
	ComponentGeneration = "generation"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	embedding  ProviderChecker
	generation ProviderChecker
}

// New creates a Service. embedding and generation can be nil.
func New(db DBPinger, embedding, generation ProviderChecker) *Service {
	return &Service{db: db, embedding: embedding, generation: generation}
}

// Check runs health checks against all components.
// A failing provider only degrades the service: search falls back without it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	log := logger.FromContext(ctx)

	checks[ComponentDatabase] = result(log, ComponentDatabase, s.db.Ping(ctx))
	if s.embedding != nil {
		checks[ComponentEmbedding] = result(log, ComponentEmbedding, s.embedding.HealthCheck(ctx))
	}
	if s.generation != nil {
		checks[ComponentGeneration] = result(log, ComponentGeneration, s.generation.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(log *zap.Logger, component string, err error) CheckResult {
	if err != nil {
		log.Warn("Health check failed", zap.String("component", component), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
