package analysis

import (
	"context"
	"fmt"

	"github.com/faultmap/faultmap-backend/internal/models"
)

// ImpactCategorizer turns a raw blast radius into a business-facing report:
// who is affected grouped by category, which critical services are at risk,
// and roughly how many users notice.
type ImpactCategorizer struct {
	blast  *BlastRadiusCalculator
	scorer *RiskScorer
	cfg    Config
}

func NewImpactCategorizer(blast *BlastRadiusCalculator, scorer *RiskScorer, cfg Config) *ImpactCategorizer {
	return &ImpactCategorizer{blast: blast, scorer: scorer, cfg: cfg}
}

// Analyze computes the downstream impact analysis for one resource.
func (c *ImpactCategorizer) Analyze(ctx context.Context, resourceID string) (*models.DownstreamImpactAnalysis, error) {
	radius, err := c.blast.Compute(ctx, resourceID, 0, 0)
	if err != nil {
		return nil, err
	}

	result := &models.DownstreamImpactAnalysis{
		ResourceID:               resourceID,
		BlastRadius:              radius,
		AffectedByCategory:       map[models.Category][]models.AffectedResource{},
		CriticalServicesAffected: []models.AffectedResource{},
		ClientAppsAffected:       []models.AffectedResource{},
	}

	all := make([]models.AffectedResource, 0, radius.TotalAffected)
	all = append(all, radius.DirectlyAffected...)
	all = append(all, radius.IndirectlyAffected...)

	users := 0
	for _, r := range all {
		result.AffectedByCategory[r.Category] = append(result.AffectedByCategory[r.Category], r)
		users += c.cfg.UsersPerResource[r.Category]

		switch r.Category {
		case models.CategoryClientApp:
			result.ClientAppsAffected = append(result.ClientAppsAffected, r)
		case models.CategoryBackendService, models.CategoryDataStore:
			assessment, err := c.scorer.Assess(ctx, r.ID)
			if err != nil {
				return nil, err
			}
			if assessment.RiskScore >= c.cfg.Thresholds.High {
				result.CriticalServicesAffected = append(result.CriticalServicesAffected, r)
			}
		}
	}
	result.EstimatedUsersAffected = users
	result.Summary = impactSummary(radius, result)
	return result, nil
}

func impactSummary(radius *models.BlastRadiusResult, r *models.DownstreamImpactAnalysis) string {
	if radius.TotalAffected == 0 {
		return fmt.Sprintf("Failure of %s is contained: nothing depends on it", radius.ResourceID)
	}
	s := fmt.Sprintf("Failure of %s affects %d resources (%d directly) with %s user impact",
		radius.ResourceID, radius.TotalAffected, len(radius.DirectlyAffected), radius.UserImpact)
	if n := len(r.CriticalServicesAffected); n > 0 {
		s += fmt.Sprintf("; %d critical services are in the blast radius", n)
	}
	if n := len(r.ClientAppsAffected); n > 0 {
		s += fmt.Sprintf("; %d client applications reach end users", n)
	}
	return s
}
