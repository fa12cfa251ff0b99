package analysis

import (
	"context"
	"sort"

	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/models"
)

// SPOFDetector flags resources whose failure has no safety net: enough direct
// dependents and no redundant peer serving them.
type SPOFDetector struct {
	gateway graph.QueryGateway
	blast   *BlastRadiusCalculator
	scorer  *RiskScorer
	cfg     Config
}

// NewSPOFDetector wires the detector.
func NewSPOFDetector(gw graph.QueryGateway, blast *BlastRadiusCalculator, scorer *RiskScorer, cfg Config) *SPOFDetector {
	return &SPOFDetector{gateway: gw, blast: blast, scorer: scorer, cfg: cfg}
}

// IsSPOF checks one resource: at least the threshold of direct dependents and
// no redundancy. A node with zero dependents is never a SPOF.
func (d *SPOFDetector) IsSPOF(ctx context.Context, node models.ResourceNode) (bool, error) {
	direct, err := d.gateway.GetDownstream(ctx, node.ID, 1)
	if err != nil {
		return false, err
	}
	if len(direct) < d.cfg.SPOFDependentsThreshold {
		return false, nil
	}
	redundant, err := hasRedundancy(ctx, d.gateway, node, direct)
	if err != nil {
		return false, err
	}
	return !redundant, nil
}

// Scan iterates every node in the graph and returns SPOF candidates ranked by
// risk score descending, dependents count descending, then resource id
// ascending. The ordering is fully deterministic on an unchanged snapshot.
func (d *SPOFDetector) Scan(ctx context.Context, dependentsThreshold int) ([]models.SPOFCandidate, error) {
	if dependentsThreshold <= 0 {
		dependentsThreshold = d.cfg.SPOFDependentsThreshold
	}

	nodes, err := d.gateway.ListNodes(ctx, nil)
	if err != nil {
		return nil, err
	}

	candidates := []models.SPOFCandidate{}
	for _, node := range nodes {
		direct, err := d.gateway.GetDownstream(ctx, node.ID, 1)
		if err != nil {
			if graph.IsNotFound(err) {
				continue // node vanished between list and walk
			}
			return nil, err
		}
		if len(direct) < dependentsThreshold {
			continue
		}
		redundant, err := hasRedundancy(ctx, d.gateway, node, direct)
		if err != nil {
			return nil, err
		}
		if redundant {
			continue
		}

		radius, err := d.blast.Compute(ctx, node.ID, 0, 0)
		if err != nil {
			return nil, err
		}
		assessment, err := d.scorer.Assess(ctx, node.ID)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, models.SPOFCandidate{
			ResourceID:      node.ID,
			ResourceType:    node.ResourceType,
			Name:            node.Name,
			DependentsCount: len(direct),
			BlastRadius:     radius.TotalAffected,
			RiskScore:       assessment.RiskScore,
			Recommendations: assessment.Recommendations,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		if a.DependentsCount != b.DependentsCount {
			return a.DependentsCount > b.DependentsCount
		}
		return a.ResourceID < b.ResourceID
	})
	return candidates, nil
}
