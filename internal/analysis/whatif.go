package analysis

import (
	"context"

	"github.com/faultmap/faultmap-backend/internal/models"
)

// WhatIfOrchestrator answers "what happens if X fails?" by composing the
// downstream impact, upstream dependency health, and a failure scenario into
// one report with an overall severity.
type WhatIfOrchestrator struct {
	impact    *ImpactCategorizer
	health    *DependencyHealthAnalyzer
	simulator *FailureSimulator
}

func NewWhatIfOrchestrator(impact *ImpactCategorizer, health *DependencyHealthAnalyzer, simulator *FailureSimulator) *WhatIfOrchestrator {
	return &WhatIfOrchestrator{impact: impact, health: health, simulator: simulator}
}

// Analyze runs the composite analysis. seed may be nil.
func (o *WhatIfOrchestrator) Analyze(ctx context.Context, resourceID string, scenario models.ScenarioType, seed *int64) (*models.WhatIfAnalysis, error) {
	sim, err := o.simulator.Simulate(ctx, resourceID, scenario, seed)
	if err != nil {
		return nil, err
	}
	down, err := o.impact.Analyze(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	up, err := o.health.Analyze(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	return &models.WhatIfAnalysis{
		ResourceID:          resourceID,
		ScenarioType:        scenario,
		Downstream:          down,
		Upstream:            up,
		Scenario:            sim,
		Severity:            overallSeverity(down.BlastRadius.TotalAffected, sim.CascadeDepth),
		MitigationAvailable: len(sim.MitigationStrategies) > 0,
		RollbackPossible:    sim.RollbackPossible,
		RollbackSteps:       sim.RollbackSteps,
	}, nil
}

// overallSeverity is monotone in both inputs: a larger blast radius or a
// deeper cascade can only raise the level, never lower it.
func overallSeverity(totalAffected, cascadeDepth int) models.ImpactLevel {
	score := totalAffected + 2*cascadeDepth
	switch {
	case score == 0:
		return models.ImpactMinimal
	case score <= 4:
		return models.ImpactLow
	case score <= 12:
		return models.ImpactMedium
	case score <= 25:
		return models.ImpactHigh
	default:
		return models.ImpactSevere
	}
}
