package analysis

import (
	"context"
	"sort"

	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/models"
)

// DependencyHealthAnalyzer scores how risk-free the upstream dependencies of a
// resource are. A resource with no dependencies is perfectly healthy by
// definition.
type DependencyHealthAnalyzer struct {
	gateway graph.QueryGateway
	scorer  *RiskScorer
	spof    *SPOFDetector
	cfg     Config
}

func NewDependencyHealthAnalyzer(gw graph.QueryGateway, scorer *RiskScorer, spof *SPOFDetector, cfg Config) *DependencyHealthAnalyzer {
	return &DependencyHealthAnalyzer{gateway: gw, scorer: scorer, spof: spof, cfg: cfg}
}

const (
	unhealthyBelow = 50
	highRiskAt     = 75
)

// Analyze walks the upstream closure and aggregates per-dependency risk into a
// single 0-100 health score.
func (a *DependencyHealthAnalyzer) Analyze(ctx context.Context, resourceID string) (*models.UpstreamDependencyHealth, error) {
	if _, err := a.gateway.GetNode(ctx, resourceID); err != nil {
		return nil, err
	}
	upstream, err := a.gateway.GetUpstream(ctx, resourceID, a.cfg.UpstreamDepth)
	if err != nil {
		return nil, err
	}

	result := &models.UpstreamDependencyHealth{
		ResourceID:            resourceID,
		DependencyHealthScore: 100,
		Dependencies:          make([]models.DependencyStatus, 0, len(upstream)),
		UnhealthyDependencies: []string{},
		HighRiskDependencies:  []string{},
	}
	if len(upstream) == 0 {
		return result, nil
	}

	var weightedDeficit, totalWeight float64
	var spofCount int
	for _, dep := range upstream {
		assessment, err := a.scorer.Assess(ctx, dep.Node.ID)
		if err != nil {
			return nil, err
		}
		isSPOF, err := a.spof.IsSPOF(ctx, dep.Node)
		if err != nil {
			return nil, err
		}
		if isSPOF {
			spofCount++
		}

		health := 100 - assessment.RiskScore
		status := models.DependencyStatus{
			ID:           dep.Node.ID,
			Name:         dep.Node.Name,
			ResourceType: dep.Node.ResourceType,
			Distance:     dep.Distance,
			Strength:     dep.Edge.Strength,
			RiskScore:    assessment.RiskScore,
			Health:       health,
			IsSPOF:       isSPOF,
		}
		result.Dependencies = append(result.Dependencies, status)

		// Distant dependencies matter less; edge strength says how hard the
		// resource leans on this dependency.
		weight := dep.Edge.Strength / float64(dep.Distance)
		weightedDeficit += weight * (100 - health)
		totalWeight += weight

		if health < unhealthyBelow {
			result.UnhealthyDependencies = append(result.UnhealthyDependencies, dep.Node.ID)
		}
		if assessment.RiskScore >= highRiskAt {
			result.HighRiskDependencies = append(result.HighRiskDependencies, dep.Node.ID)
		}
	}

	score := 100.0
	if totalWeight > 0 {
		score = 100 - weightedDeficit/totalWeight
	}
	score -= float64(spofCount) * a.cfg.SPOFPenalty
	result.DependencyHealthScore = clamp(score, 0, 100)

	sort.Strings(result.UnhealthyDependencies)
	sort.Strings(result.HighRiskDependencies)
	return result, nil
}
