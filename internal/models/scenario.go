package models

// ScenarioType selects a failure-simulation template.
type ScenarioType string

const (
	ScenarioCompleteOutage      ScenarioType = "complete_outage"
	ScenarioDegradedPerformance ScenarioType = "degraded_performance"
	ScenarioIntermittentFailure ScenarioType = "intermittent_failure"
)

// ValidScenario reports whether t is a recognized scenario type.
func ValidScenario(t ScenarioType) bool {
	switch t {
	case ScenarioCompleteOutage, ScenarioDegradedPerformance, ScenarioIntermittentFailure:
		return true
	}
	return false
}

// ScenarioOutcome is one probabilistic outcome of a simulated failure. The
// probabilities of all outcomes in one scenario sum to at most 1.
type ScenarioOutcome struct {
	OutcomeType        string  `json:"outcome_type"`
	Probability        float64 `json:"probability"`
	DurationSeconds    int     `json:"duration_seconds"`
	AffectedPercentage float64 `json:"affected_percentage"`
	Description        string  `json:"description"`
}

// FailureScenario is a simulated failure with weighted outcomes and recovery
// guidance.
type FailureScenario struct {
	ResourceID           string            `json:"resource_id"`
	ScenarioType         ScenarioType      `json:"scenario_type"`
	Outcomes             []ScenarioOutcome `json:"outcomes"`
	CascadeDepth         int               `json:"cascade_depth"`
	RecoverySteps        []string          `json:"recovery_steps"`
	MitigationStrategies []string          `json:"mitigation_strategies"`
	RollbackPossible     bool              `json:"rollback_possible"`
	RollbackSteps        []string          `json:"rollback_steps,omitempty"`
}
