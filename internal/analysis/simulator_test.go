package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateInvalidScenario(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)

	_, err := a.simulator.Simulate(context.Background(), "db-main", "alien_invasion", nil)

	var invalid *InvalidScenarioError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "alien_invasion", invalid.Scenario)
	assert.Equal(t, "db-main", invalid.ResourceID)
}

func TestSimulateUnknownResource(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)

	_, err := a.simulator.Simulate(context.Background(), "ghost", models.ScenarioCompleteOutage, nil)

	assert.True(t, graph.IsNotFound(err))
}

func TestSimulateOutcomeProbabilitiesSumToAtMostOne(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)

	for _, scenario := range []models.ScenarioType{
		models.ScenarioCompleteOutage,
		models.ScenarioDegradedPerformance,
		models.ScenarioIntermittentFailure,
	} {
		result, err := a.simulator.Simulate(context.Background(), "db-main", scenario, nil)
		require.NoError(t, err)
		require.NotEmpty(t, result.Outcomes, scenario)

		var sum float64
		for _, o := range result.Outcomes {
			assert.Greater(t, o.Probability, 0.0)
			assert.GreaterOrEqual(t, o.AffectedPercentage, 0.0)
			assert.LessOrEqual(t, o.AffectedPercentage, 100.0)
			assert.Greater(t, o.DurationSeconds, 0)
			assert.NotEmpty(t, o.Description)
			sum += o.Probability
		}
		assert.LessOrEqual(t, sum, 1.0, scenario)
	}
}

func TestSimulateSeedReproducible(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)
	seed := int64(42)

	first, err := a.simulator.Simulate(context.Background(), "db-main", models.ScenarioCompleteOutage, &seed)
	require.NoError(t, err)
	second, err := a.simulator.Simulate(context.Background(), "db-main", models.ScenarioCompleteOutage, &seed)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSimulateDefaultSeedDeterministic(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)

	first, err := a.simulator.Simulate(context.Background(), "db-main", models.ScenarioDegradedPerformance, nil)
	require.NoError(t, err)
	second, err := a.simulator.Simulate(context.Background(), "db-main", models.ScenarioDegradedPerformance, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSimulateCascadeDepth(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)

	// db-main's deepest affected resource sits three hops away.
	result, err := a.simulator.Simulate(context.Background(), "db-main", models.ScenarioCompleteOutage, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.CascadeDepth)

	// A leaf cascades nowhere.
	chain := newAnalyzers(chainGraph(), nil)
	leaf, err := chain.simulator.Simulate(context.Background(), "svc-a", models.ScenarioCompleteOutage, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, leaf.CascadeDepth)
}

func TestSimulateCascadeDepthCapped(t *testing.T) {
	// A ten-deep chain must report the cap, not the true depth.
	nodes := make([]models.ResourceNode, 0, 11)
	edges := make([]models.DependencyEdge, 0, 10)
	prev := "svc-0"
	nodes = append(nodes, testNode(prev, "api_service"))
	for i := 1; i <= 10; i++ {
		id := "svc-" + string(rune('0'+i/10)) + string(rune('0'+i%10))
		nodes = append(nodes, testNode(id, "api_service"))
		edges = append(edges, testEdge(prev, id, 0.5))
		prev = id
	}
	a := newAnalyzers(graph.Build(nodes, edges), nil)

	result, err := a.simulator.Simulate(context.Background(), prev, models.ScenarioCompleteOutage, nil)
	require.NoError(t, err)

	assert.Equal(t, maxCascadeDepth, result.CascadeDepth)
}

func TestSimulateRollbackByCategory(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)
	ctx := context.Background()

	// Databases are restored, not rolled back.
	db, err := a.simulator.Simulate(ctx, "db-main", models.ScenarioCompleteOutage, nil)
	require.NoError(t, err)
	assert.False(t, db.RollbackPossible)
	assert.Empty(t, db.RollbackSteps)

	// Backend services roll back to the previous deployment.
	api, err := a.simulator.Simulate(ctx, "api-orders", models.ScenarioCompleteOutage, nil)
	require.NoError(t, err)
	assert.True(t, api.RollbackPossible)
	assert.NotEmpty(t, api.RollbackSteps)
}

func TestSimulateRecoveryGuidance(t *testing.T) {
	a := newAnalyzers(prodGraph(), nil)

	result, err := a.simulator.Simulate(context.Background(), "db-main", models.ScenarioCompleteOutage, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RecoverySteps)
	assert.NotEmpty(t, result.MitigationStrategies)
}
