// Package service composes the analyzers behind a cached, instrumented
// facade. Handlers talk to AnalysisService only; they never reach into the
// analysis package directly.
package service

import (
	"context"
	"sort"
	"time"

	"github.com/faultmap/faultmap-backend/internal/analysis"
	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/models"
	"github.com/faultmap/faultmap-backend/internal/pkg/analysiscache"
	"github.com/faultmap/faultmap-backend/internal/pkg/metrics"
	"github.com/faultmap/faultmap-backend/internal/pkg/tracing"
)

// AnalysisService is the application-facing analysis API.
type AnalysisService interface {
	Risk(ctx context.Context, resourceID string) (*models.RiskAssessment, error)
	BlastRadius(ctx context.Context, resourceID string, maxDepth int) (*models.BlastRadiusResult, error)
	Downstream(ctx context.Context, resourceID string) (*models.DownstreamImpactAnalysis, error)
	Upstream(ctx context.Context, resourceID string) (*models.UpstreamDependencyHealth, error)
	Simulate(ctx context.Context, resourceID string, scenario models.ScenarioType, seed *int64) (*models.FailureScenario, error)
	WhatIf(ctx context.Context, resourceID string, scenario models.ScenarioType, seed *int64) (*models.WhatIfAnalysis, error)
	SPOFScan(ctx context.Context, dependentsThreshold int) ([]models.SPOFCandidate, error)
	RiskSummary(ctx context.Context, topN int) (*models.RiskSummary, error)

	// InvalidateTopology drops every cached result; called by the discovery
	// watcher when a new graph version is published.
	InvalidateTopology()
}

// Analyzers bundles the computation stack the service drives.
type Analyzers struct {
	Scorer    *analysis.RiskScorer
	Blast     *analysis.BlastRadiusCalculator
	Impact    *analysis.ImpactCategorizer
	Health    *analysis.DependencyHealthAnalyzer
	Simulator *analysis.FailureSimulator
	SPOF      *analysis.SPOFDetector
	WhatIf    *analysis.WhatIfOrchestrator
}

type analysisService struct {
	gateway  graph.QueryGateway
	an       Analyzers
	cache    *analysiscache.Cache
	timeout  time.Duration
	topRisks int
}

// NewAnalysisService builds the facade. timeout bounds each operation end to
// end; <= 0 disables the bound.
func NewAnalysisService(gw graph.QueryGateway, an Analyzers, cache *analysiscache.Cache, timeout time.Duration) AnalysisService {
	return &analysisService{
		gateway:  gw,
		an:       an,
		cache:    cache,
		timeout:  timeout,
		topRisks: 10,
	}
}

func (s *analysisService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// cached runs compute through the (operation, resource, graph version) cache
// and records the operation latency. Results are only cached on success.
func cached[T any](ctx context.Context, s *analysisService, op, resourceID string, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	version, err := s.gateway.Version(ctx)
	if err != nil {
		version = "" // uncacheable, still computable
	}
	if version != "" {
		if v, ok := s.cache.Get(op, resourceID, version); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}

	ctx, span := tracing.StartSpan(ctx, "analysis."+op)
	defer span.End()
	start := time.Now()
	result, err := compute(ctx)
	metrics.AnalysisDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return zero, err
	}
	if version != "" {
		s.cache.Set(op, resourceID, version, result)
	}
	return result, nil
}

func (s *analysisService) Risk(ctx context.Context, resourceID string) (*models.RiskAssessment, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return cached(ctx, s, "risk", resourceID, func(ctx context.Context) (*models.RiskAssessment, error) {
		return s.an.Scorer.Assess(ctx, resourceID)
	})
}

func (s *analysisService) BlastRadius(ctx context.Context, resourceID string, maxDepth int) (*models.BlastRadiusResult, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	// Non-default depths bypass the cache: the key is per resource, not per
	// (resource, depth).
	if maxDepth > 0 {
		return s.an.Blast.Compute(ctx, resourceID, maxDepth, 0)
	}
	return cached(ctx, s, "blast-radius", resourceID, func(ctx context.Context) (*models.BlastRadiusResult, error) {
		return s.an.Blast.Compute(ctx, resourceID, 0, 0)
	})
}

func (s *analysisService) Downstream(ctx context.Context, resourceID string) (*models.DownstreamImpactAnalysis, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return cached(ctx, s, "downstream", resourceID, func(ctx context.Context) (*models.DownstreamImpactAnalysis, error) {
		return s.an.Impact.Analyze(ctx, resourceID)
	})
}

func (s *analysisService) Upstream(ctx context.Context, resourceID string) (*models.UpstreamDependencyHealth, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return cached(ctx, s, "upstream", resourceID, func(ctx context.Context) (*models.UpstreamDependencyHealth, error) {
		return s.an.Health.Analyze(ctx, resourceID)
	})
}

func (s *analysisService) Simulate(ctx context.Context, resourceID string, scenario models.ScenarioType, seed *int64) (*models.FailureScenario, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	// Simulations are cheap on top of a cached blast radius and the seed
	// changes the result, so they are never cached themselves.
	ctx, span := tracing.StartSpan(ctx, "analysis.simulate")
	defer span.End()
	start := time.Now()
	result, err := s.an.Simulator.Simulate(ctx, resourceID, scenario, seed)
	metrics.AnalysisDurationSeconds.WithLabelValues("simulate").Observe(time.Since(start).Seconds())
	return result, err
}

func (s *analysisService) WhatIf(ctx context.Context, resourceID string, scenario models.ScenarioType, seed *int64) (*models.WhatIfAnalysis, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	ctx, span := tracing.StartSpan(ctx, "analysis.what-if")
	defer span.End()
	start := time.Now()
	result, err := s.an.WhatIf.Analyze(ctx, resourceID, scenario, seed)
	metrics.AnalysisDurationSeconds.WithLabelValues("what-if").Observe(time.Since(start).Seconds())
	return result, err
}

func (s *analysisService) SPOFScan(ctx context.Context, dependentsThreshold int) ([]models.SPOFCandidate, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if dependentsThreshold > 0 {
		return s.an.SPOF.Scan(ctx, dependentsThreshold)
	}
	return cached(ctx, s, "spof-scan", "", func(ctx context.Context) ([]models.SPOFCandidate, error) {
		return s.an.SPOF.Scan(ctx, 0)
	})
}

func (s *analysisService) RiskSummary(ctx context.Context, topN int) (*models.RiskSummary, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if topN <= 0 {
		topN = s.topRisks
	}
	summary, err := cached(ctx, s, "risk-summary", "", func(ctx context.Context) (*models.RiskSummary, error) {
		return s.buildRiskSummary(ctx)
	})
	if err != nil {
		return nil, err
	}
	if len(summary.TopRisks) > topN {
		trimmed := *summary
		trimmed.TopRisks = summary.TopRisks[:topN]
		return &trimmed, nil
	}
	return summary, nil
}

func (s *analysisService) buildRiskSummary(ctx context.Context) (*models.RiskSummary, error) {
	nodes, err := s.gateway.ListNodes(ctx, nil)
	if err != nil {
		return nil, err
	}

	summary := &models.RiskSummary{
		TotalResources: len(nodes),
		GeneratedAt:    time.Now().UTC(),
	}
	assessments := make([]models.RiskAssessment, 0, len(nodes))
	for _, node := range nodes {
		a, err := s.an.Scorer.Assess(ctx, node.ID)
		if err != nil {
			if graph.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		assessments = append(assessments, *a)
		switch a.RiskLevel {
		case models.RiskLevelCritical:
			summary.Critical++
		case models.RiskLevelHigh:
			summary.High++
		case models.RiskLevelMedium:
			summary.Medium++
		default:
			summary.Low++
		}
	}

	sort.Slice(assessments, func(i, j int) bool {
		if assessments[i].RiskScore != assessments[j].RiskScore {
			return assessments[i].RiskScore > assessments[j].RiskScore
		}
		return assessments[i].ResourceID < assessments[j].ResourceID
	})
	summary.TopRisks = assessments
	return summary, nil
}

func (s *analysisService) InvalidateTopology() {
	s.cache.InvalidateAll()
}
