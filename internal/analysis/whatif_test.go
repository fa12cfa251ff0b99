package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/faultmap/faultmap-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatIfComposesAllParts(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)

	result, err := a.whatif.Analyze(context.Background(), "db-main", models.ScenarioCompleteOutage, nil)
	require.NoError(t, err)

	assert.Equal(t, "db-main", result.ResourceID)
	assert.Equal(t, models.ScenarioCompleteOutage, result.ScenarioType)
	require.NotNil(t, result.Downstream)
	require.NotNil(t, result.Upstream)
	require.NotNil(t, result.Scenario)
	assert.Equal(t, 4, result.Downstream.BlastRadius.TotalAffected)
	assert.True(t, result.MitigationAvailable)
	assert.False(t, result.RollbackPossible)
}

func TestWhatIfInvalidScenario(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)

	_, err := a.whatif.Analyze(context.Background(), "db-main", "meteor_strike", nil)

	var invalid *InvalidScenarioError
	assert.True(t, errors.As(err, &invalid))
}

func TestWhatIfSeverityOrdering(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)
	ctx := context.Background()

	// The database failure reaches four resources over three hops; the
	// client app failure reaches nothing.
	big, err := a.whatif.Analyze(ctx, "db-main", models.ScenarioCompleteOutage, nil)
	require.NoError(t, err)
	small, err := a.whatif.Analyze(ctx, "web-store", models.ScenarioCompleteOutage, nil)
	require.NoError(t, err)

	assert.Greater(t, impactRank(big.Severity), impactRank(small.Severity))
	assert.Equal(t, models.ImpactMinimal, small.Severity)
}

func TestOverallSeverityMonotone(t *testing.T) {
	assert.Equal(t, models.ImpactMinimal, overallSeverity(0, 0))

	prev := overallSeverity(0, 0)
	for affected := 0; affected <= 40; affected++ {
		cur := overallSeverity(affected, 2)
		assert.GreaterOrEqual(t, impactRank(cur), impactRank(prev), "affected=%d", affected)
		prev = cur
	}

	// Deeper cascades never lower the level either.
	for depth := 0; depth <= maxCascadeDepth; depth++ {
		assert.GreaterOrEqual(t,
			impactRank(overallSeverity(8, depth+1)),
			impactRank(overallSeverity(8, depth)),
			"depth=%d", depth)
	}
}

func TestWhatIfDeterministicWithSeed(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)
	seed := int64(7)

	first, err := a.whatif.Analyze(context.Background(), "api-orders", models.ScenarioIntermittentFailure, &seed)
	require.NoError(t, err)
	second, err := a.whatif.Analyze(context.Background(), "api-orders", models.ScenarioIntermittentFailure, &seed)
	require.NoError(t, err)

	assert.Equal(t, first.Scenario, second.Scenario)
	assert.Equal(t, first.Severity, second.Severity)
}
