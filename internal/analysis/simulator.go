package analysis

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/models"
)

// InvalidScenarioError reports an unrecognized scenario type. Validation
// failure, surfaced immediately.
type InvalidScenarioError struct {
	ResourceID string
	Scenario   string
}

func (e *InvalidScenarioError) Error() string {
	return fmt.Sprintf("simulate: unknown scenario type %q for resource %q", e.Scenario, e.ResourceID)
}

// OutcomeStrategy produces the weighted outcome set for a scenario. The
// default is rule-based; a statistical or learned model can be substituted
// without touching any caller.
type OutcomeStrategy interface {
	Outcomes(scenario models.ScenarioType, radius *models.BlastRadiusResult, origin models.ResourceNode, rng *rand.Rand) []models.ScenarioOutcome
}

// FailureSimulator generates probabilistic failure scenarios with recovery
// guidance. All randomness flows through a seeded PRNG, so a fixed seed
// reproduces the exact outcome set; without a seed the PRNG is seeded from
// the (resource, scenario) pair, which keeps repeated calls deterministic on
// an unchanged graph.
type FailureSimulator struct {
	gateway    graph.QueryGateway
	blast      *BlastRadiusCalculator
	classifier *Classifier
	strategy   OutcomeStrategy
	cfg        Config
}

// NewFailureSimulator wires the simulator. strategy may be nil to use the
// rule-based templates.
func NewFailureSimulator(gw graph.QueryGateway, blast *BlastRadiusCalculator, classifier *Classifier, strategy OutcomeStrategy, cfg Config) *FailureSimulator {
	if strategy == nil {
		strategy = &RuleBasedStrategy{}
	}
	return &FailureSimulator{gateway: gw, blast: blast, classifier: classifier, strategy: strategy, cfg: cfg}
}

// maxCascadeDepth caps the reported cascade depth; beyond this the failure is
// considered uncontained regardless of how far the graph goes.
const maxCascadeDepth = 5

// Simulate runs one failure scenario. seed may be nil.
func (s *FailureSimulator) Simulate(ctx context.Context, resourceID string, scenario models.ScenarioType, seed *int64) (*models.FailureScenario, error) {
	if !models.ValidScenario(scenario) {
		return nil, &InvalidScenarioError{ResourceID: resourceID, Scenario: string(scenario)}
	}

	origin, err := s.gateway.GetNode(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	radius, err := s.blast.Compute(ctx, resourceID, 0, 0)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(s.seedFor(resourceID, scenario, seed)))

	cascade := radius.MaxDistance()
	if cascade > maxCascadeDepth {
		cascade = maxCascadeDepth
	}

	_, category := s.classifier.Classify(*origin)
	rollbackSteps, rollbackPossible := s.cfg.RollbackSteps[category]

	return &models.FailureScenario{
		ResourceID:           resourceID,
		ScenarioType:         scenario,
		Outcomes:             s.strategy.Outcomes(scenario, radius, *origin, rng),
		CascadeDepth:         cascade,
		RecoverySteps:        recoverySteps(category, radius.UserImpact, origin.Name),
		MitigationStrategies: mitigationStrategies(category, radius.UserImpact),
		RollbackPossible:     rollbackPossible,
		RollbackSteps:        rollbackSteps,
	}, nil
}

// seedFor derives a stable seed when the caller supplied none.
func (s *FailureSimulator) seedFor(resourceID string, scenario models.ScenarioType, seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	h := fnv.New64a()
	h.Write([]byte(resourceID))
	h.Write([]byte{0})
	h.Write([]byte(scenario))
	return int64(h.Sum64())
}

// outcomeTemplate is one row of the rule table. Probabilities are fixed by
// the template (they must sum to <= 1 per scenario); the PRNG only jitters
// durations and affected percentages.
type outcomeTemplate struct {
	outcomeType string
	probability float64
	durationSec int
	affectedPct float64
	description string // verbs with %s = resource name, %d = affected count
}

var scenarioTemplates = map[models.ScenarioType][]outcomeTemplate{
	models.ScenarioCompleteOutage: {
		{"full_outage", 0.55, 3600, 100, "%s is fully unavailable; all %d affected resources lose service"},
		{"cascading_failure", 0.25, 5400, 100, "Failure of %s cascades beyond direct dependents; %d resources degrade in waves"},
		{"rapid_failover", 0.15, 600, 40, "Standby capacity absorbs the failure of %s; %d resources see a brief disruption"},
	},
	models.ScenarioDegradedPerformance: {
		{"graceful_degradation", 0.50, 1800, 30, "%s slows down but dependents shed load cleanly; %d resources degrade"},
		{"partial_outage", 0.30, 2700, 60, "Latency from %s exhausts downstream timeouts; %d resources partially fail"},
		{"full_cascade", 0.15, 4500, 90, "Back-pressure from %s saturates the dependency chain; %d resources stall"},
	},
	models.ScenarioIntermittentFailure: {
		{"transient_errors", 0.55, 900, 20, "%s flaps; %d resources see sporadic errors absorbed by retries"},
		{"degraded_performance", 0.30, 1800, 45, "Retry storms against %s amplify load; %d resources slow down"},
		{"escalation_to_outage", 0.10, 3600, 85, "Flapping of %s trips circuit breakers; %d resources drop to fallback behavior"},
	},
}

// extendedTail is a rare long-outage outcome appended when the PRNG and the
// blast radius agree the scenario could run away. Its probability keeps the
// per-scenario sum at or below 1.
var extendedTail = outcomeTemplate{
	"extended_outage", 0.05, 14400, 100,
	"Recovery of %s stalls; %d resources remain impacted until manual intervention",
}

// RuleBasedStrategy is the default outcome generator: a static template table
// scaled by blast-radius severity.
type RuleBasedStrategy struct{}

func (RuleBasedStrategy) Outcomes(scenario models.ScenarioType, radius *models.BlastRadiusResult, origin models.ResourceNode, rng *rand.Rand) []models.ScenarioOutcome {
	templates := scenarioTemplates[scenario]
	factor := severityFactor(radius.UserImpact)

	outcomes := make([]models.ScenarioOutcome, 0, len(templates)+1)
	for _, t := range templates {
		outcomes = append(outcomes, materialize(t, radius, origin, factor, rng))
	}
	if radius.TotalAffected >= 10 && rng.Float64() < 0.5 {
		outcomes = append(outcomes, materialize(extendedTail, radius, origin, factor, rng))
	}
	return outcomes
}

func materialize(t outcomeTemplate, radius *models.BlastRadiusResult, origin models.ResourceNode, factor float64, rng *rand.Rand) models.ScenarioOutcome {
	// Jitter within +/-15% keeps repeated runs with one seed identical while
	// avoiding suspiciously round numbers.
	durJitter := 0.85 + 0.3*rng.Float64()
	pctJitter := 0.9 + 0.2*rng.Float64()
	return models.ScenarioOutcome{
		OutcomeType:        t.outcomeType,
		Probability:        t.probability,
		DurationSeconds:    int(float64(t.durationSec) * factor * durJitter),
		AffectedPercentage: clamp(t.affectedPct*pctJitter, 0, 100),
		Description:        fmt.Sprintf(t.description, origin.Name, radius.TotalAffected),
	}
}

// recoverySteps assembles the runbook from category and severity templates.
func recoverySteps(category models.Category, impact models.ImpactLevel, name string) []string {
	steps := []string{
		fmt.Sprintf("Acknowledge the incident and page the team owning %s", name),
	}
	switch category {
	case models.CategoryDataStore:
		steps = append(steps,
			"Promote the replica or restore the most recent snapshot",
			"Verify data integrity before re-enabling writes")
	case models.CategoryUserFacing:
		steps = append(steps,
			"Shift traffic to healthy endpoints or a static fallback",
			"Confirm availability from an external vantage point")
	case models.CategoryBackendService:
		steps = append(steps,
			"Restart or redeploy the service from the last known-good artifact",
			"Drain and replay any queued work that accumulated during the outage")
	case models.CategoryIntegration:
		steps = append(steps,
			"Pause producers and let the dead-letter queue absorb failures",
			"Replay dead-lettered messages once the integration recovers")
	case models.CategoryClientApp:
		steps = append(steps,
			"Publish a hotfix release or re-enable the previous version")
	default:
		steps = append(steps,
			"Replace the failed instance from the baseline image or template")
	}
	steps = append(steps, "Run downstream health checks until every dependent reports healthy")
	if impactRank(impact) >= impactRank(models.ImpactHigh) {
		steps = append(steps, "Engage the incident commander and publish a status-page notice")
	}
	return steps
}

// mitigationStrategies lists preventive measures by category, with an extra
// containment item for high-severity radii.
func mitigationStrategies(category models.Category, impact models.ImpactLevel) []string {
	var strategies []string
	switch category {
	case models.CategoryDataStore:
		strategies = []string{
			"Enable automated failover with a hot replica",
			"Schedule continuous backups with tested restores",
		}
	case models.CategoryUserFacing:
		strategies = []string{
			"Serve through redundant load balancers in separate zones",
			"Pre-provision a static degraded-mode response",
		}
	case models.CategoryBackendService:
		strategies = []string{
			"Add circuit breakers and timeouts on every dependency call",
			"Run at least two instances behind a health-checked balancer",
		}
	case models.CategoryIntegration:
		strategies = []string{
			"Buffer through a durable queue with dead-lettering",
			"Make consumers idempotent so replays are safe",
		}
	case models.CategoryClientApp:
		strategies = []string{
			"Ship releases through staged rollouts with automatic rollback",
			"Cache the last good configuration on the client",
		}
	default:
		strategies = []string{
			"Spread instances across failure domains",
			"Keep infrastructure reproducible from versioned templates",
		}
	}
	if impactRank(impact) >= impactRank(models.ImpactHigh) {
		strategies = append(strategies, "Rehearse this failure in a game day; the blast radius is large enough to warrant a drill")
	}
	return strategies
}
