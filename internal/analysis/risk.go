package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/faultmap/faultmap-backend/internal/deploymeta"
	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/models"
)

// RiskScorer combines dependency counts, criticality, failure history,
// change recency, and redundancy into a bounded 0-100 score.
type RiskScorer struct {
	gateway    graph.QueryGateway
	classifier *Classifier
	blast      *BlastRadiusCalculator
	meta       deploymeta.Provider
	cfg        Config
	now        func() time.Time
}

// NewRiskScorer wires the scorer. meta may be nil (neutral history factors).
func NewRiskScorer(gw graph.QueryGateway, classifier *Classifier, blast *BlastRadiusCalculator, meta deploymeta.Provider, cfg Config) *RiskScorer {
	if meta == nil {
		meta = deploymeta.Noop{}
	}
	return &RiskScorer{
		gateway:    gw,
		classifier: classifier,
		blast:      blast,
		meta:       meta,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Assess scores one resource. Fails with NotFoundError when the id is absent
// from the graph.
func (r *RiskScorer) Assess(ctx context.Context, resourceID string) (*models.RiskAssessment, error) {
	node, err := r.gateway.GetNode(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	direct, err := r.gateway.GetDownstream(ctx, resourceID, 1)
	if err != nil {
		return nil, err
	}
	upstream, err := r.gateway.GetUpstream(ctx, resourceID, 1)
	if err != nil {
		return nil, err
	}
	depCount := len(direct) + len(upstream)

	criticality, _ := r.classifier.Classify(*node)

	failureRate, err := r.meta.FailureRate(ctx, resourceID)
	if err != nil {
		failureRate = 0 // history is best-effort, never fatal
	}
	lastChanged, changeKnown, err := r.meta.LastChangedAt(ctx, resourceID)
	if err != nil {
		changeKnown = false
	}

	redundant, err := hasRedundancy(ctx, r.gateway, *node, direct)
	if err != nil {
		return nil, err
	}

	radius, err := r.blast.Compute(ctx, resourceID, 0, 0)
	if err != nil {
		return nil, err
	}

	factors := models.RiskFactors{
		DependencyCount: depCount,
		Criticality:     criticality,
		IsSPOF:          len(direct) >= r.cfg.SPOFDependentsThreshold && !redundant,
		HasRedundancy:   redundant,
		BlastRadiusSize: radius.TotalAffected,
		UserImpact:      radius.UserImpact,
	}

	score := r.score(depCount, criticality, failureRate, lastChanged, changeKnown, redundant)

	return &models.RiskAssessment{
		ResourceID:      resourceID,
		RiskScore:       score,
		RiskLevel:       r.cfg.Thresholds.Level(score),
		Factors:         factors,
		Recommendations: r.recommend(factors, failureRate, changeKnown),
		AssessedAt:      r.now().UTC(),
	}, nil
}

// score applies the documented weighted formula and clamps to [0,100].
func (r *RiskScorer) score(depCount int, criticality, failureRate float64, lastChanged time.Time, changeKnown, redundant bool) float64 {
	w := r.cfg.Weights

	depNorm := float64(depCount)
	if sat := float64(r.cfg.DepCountSaturation); depNorm > sat {
		depNorm = sat
	}
	depNorm = depNorm / float64(r.cfg.DepCountSaturation) * 100

	// Stability grows with time since the last change; unknown history is
	// neutral (factor 0), it neither raises nor lowers the score.
	timeFactor := 0.0
	if changeKnown {
		days := r.now().UTC().Sub(lastChanged).Hours() / 24
		horizon := float64(r.cfg.StabilityHorizonDays)
		timeFactor = clamp(days, 0, horizon) / horizon * 100
	}

	redundancyFactor := 0.0
	if redundant {
		redundancyFactor = 100
	}

	score := depNorm*w.DependencyCount +
		criticality*w.Criticality +
		failureRate*100*w.FailureRate -
		timeFactor*w.Stability -
		redundancyFactor*w.Redundancy
	return clamp(score, 0, 100)
}

// recommend builds the ordered recommendation list from the factor triggers.
func (r *RiskScorer) recommend(f models.RiskFactors, failureRate float64, changeKnown bool) []string {
	var recs []string
	if f.IsSPOF {
		recs = append(recs, "Resource is a single point of failure; add a redundant instance or failover path")
	}
	if f.BlastRadiusSize >= 10 {
		recs = append(recs, fmt.Sprintf("Failure would cascade to %d resources; consider isolating dependents behind a bulkhead or queue", f.BlastRadiusSize))
	}
	if !f.HasRedundancy && f.DependencyCount > 0 {
		recs = append(recs, "No redundant peer serves the same dependents; provision a standby of the same resource type")
	}
	if failureRate > 0.2 {
		recs = append(recs, fmt.Sprintf("Historical failure rate is %.0f%%; stabilize deployments before adding dependents", failureRate*100))
	}
	if !changeKnown {
		recs = append(recs, "No deployment metadata recorded; connect the deployment feed so change recency can inform scoring")
	}
	return recs
}
