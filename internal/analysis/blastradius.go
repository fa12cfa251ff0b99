package analysis

import (
	"context"

	"github.com/faultmap/faultmap-backend/internal/deploymeta"
	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/models"
	"github.com/faultmap/faultmap-backend/internal/pkg/metrics"
)

// BlastRadiusCalculator computes the set of resources affected when one
// resource fails, walking "who depends on me" edges breadth-first.
type BlastRadiusCalculator struct {
	gateway    graph.QueryGateway
	classifier *Classifier
	meta       deploymeta.Provider
	cfg        Config
}

// NewBlastRadiusCalculator wires the calculator. meta may be nil; downtime
// estimates then come from the category table alone.
func NewBlastRadiusCalculator(gw graph.QueryGateway, classifier *Classifier, meta deploymeta.Provider, cfg Config) *BlastRadiusCalculator {
	if meta == nil {
		meta = deploymeta.Noop{}
	}
	return &BlastRadiusCalculator{gateway: gw, classifier: classifier, meta: meta, cfg: cfg}
}

// Compute walks downstream from resourceID. maxDepth/maxVisited <= 0 fall
// back to the configured limits. Hitting the visit cap truncates the result,
// it never fails; an unknown resource id fails with NotFoundError.
func (b *BlastRadiusCalculator) Compute(ctx context.Context, resourceID string, maxDepth, maxVisited int) (*models.BlastRadiusResult, error) {
	if maxDepth <= 0 {
		maxDepth = b.cfg.MaxDepth
	}
	if maxVisited <= 0 {
		maxVisited = b.cfg.MaxVisited
	}

	origin, err := b.gateway.GetNode(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	neighbors, err := b.gateway.GetDownstream(ctx, resourceID, maxDepth)
	if err != nil {
		return nil, err
	}

	result := &models.BlastRadiusResult{
		ResourceID:       resourceID,
		AffectedServices: map[string]int{},
	}
	if len(neighbors) > maxVisited {
		neighbors = neighbors[:maxVisited]
		result.Truncated = true
		metrics.TraversalTruncatedTotal.Inc()
	}

	// Parent pointers from the discovery edges drive critical-path
	// reconstruction; cumulative strength accrues along the BFS tree.
	parent := map[string]string{}
	cumStrength := map[string]float64{resourceID: 0}
	bfsOrder := map[string]int{}

	for i, n := range neighbors {
		cat := b.classifier.Category(n.Node)
		affected := models.AffectedResource{
			ID:           n.Node.ID,
			Name:         n.Node.Name,
			ResourceType: n.Node.ResourceType,
			Category:     cat,
			Distance:     n.Distance,
		}
		if n.Distance == 1 {
			result.DirectlyAffected = append(result.DirectlyAffected, affected)
		} else {
			result.IndirectlyAffected = append(result.IndirectlyAffected, affected)
		}
		result.AffectedServices[n.Node.ResourceType]++

		// Downstream edges run dependent -> dependency, so the edge target is
		// the node one hop closer to the origin.
		p := n.Edge.TargetID
		parent[n.Node.ID] = p
		cumStrength[n.Node.ID] = cumStrength[p] + n.Edge.Strength
		bfsOrder[n.Node.ID] = i
	}
	result.TotalAffected = len(result.DirectlyAffected) + len(result.IndirectlyAffected)
	result.UserImpact = userImpact(result.TotalAffected, result.UserFacingCount())
	result.CriticalPath = criticalPath(resourceID, neighbors, parent, cumStrength, bfsOrder)
	result.EstimatedDowntimeSeconds = b.estimateDowntime(ctx, *origin, result.UserImpact)
	return result, nil
}

// criticalPath picks the affected node with the largest (distance, cumulative
// strength) key, earliest BFS discovery breaking ties, and walks parent
// pointers back to the origin.
func criticalPath(originID string, neighbors []graph.Neighbor, parent map[string]string, cumStrength map[string]float64, bfsOrder map[string]int) []string {
	if len(neighbors) == 0 {
		return []string{originID}
	}

	best := ""
	bestDist := -1
	bestStrength := -1.0
	for _, n := range neighbors {
		id := n.Node.ID
		switch {
		case n.Distance > bestDist:
		case n.Distance == bestDist && cumStrength[id] > bestStrength:
		case n.Distance == bestDist && cumStrength[id] == bestStrength && bfsOrder[id] < bfsOrder[best]:
		default:
			continue
		}
		best = id
		bestDist = n.Distance
		bestStrength = cumStrength[id]
	}

	// Walk back to the origin. The visited set guards against a corrupt
	// parent chain ever looping.
	var reversed []string
	seen := map[string]bool{}
	for cur := best; cur != "" && !seen[cur]; cur = parent[cur] {
		seen[cur] = true
		reversed = append(reversed, cur)
		if cur == originID {
			break
		}
	}

	path := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}

// userImpact buckets affected counts into an impact level. The user-facing
// count takes precedence when it alone crosses a threshold.
func userImpact(total, userFacing int) models.ImpactLevel {
	byTotal := models.ImpactMinimal
	switch {
	case total >= 20:
		byTotal = models.ImpactSevere
	case total >= 10:
		byTotal = models.ImpactHigh
	case total >= 3:
		byTotal = models.ImpactMedium
	case total >= 1:
		byTotal = models.ImpactLow
	}

	byUserFacing := models.ImpactMinimal
	switch {
	case userFacing >= 5:
		byUserFacing = models.ImpactHigh
	case userFacing >= 1:
		byUserFacing = models.ImpactMedium
	}

	if impactRank(byUserFacing) > impactRank(byTotal) {
		return byUserFacing
	}
	return byTotal
}

func impactRank(l models.ImpactLevel) int {
	switch l {
	case models.ImpactSevere:
		return 4
	case models.ImpactHigh:
		return 3
	case models.ImpactMedium:
		return 2
	case models.ImpactLow:
		return 1
	default:
		return 0
	}
}

// estimateDowntime multiplies the per-category base (or historical MTTR when
// available) by the severity factor.
func (b *BlastRadiusCalculator) estimateDowntime(ctx context.Context, origin models.ResourceNode, impact models.ImpactLevel) int {
	_, cat := b.classifier.Classify(origin)
	base, ok := b.cfg.DowntimeByCategory[cat]
	if !ok {
		base = b.cfg.DefaultDowntime
	}
	if mttr, known, err := b.meta.MeanTimeToRecover(ctx, origin.ResourceType); err == nil && known {
		base = int(mttr.Seconds())
	}
	return int(float64(base) * severityFactor(impact))
}
