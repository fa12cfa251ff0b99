package analysis

import (
	"github.com/faultmap/faultmap-backend/internal/deploymeta"
	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/models"
)

func testNode(id, resourceType string) models.ResourceNode {
	return models.ResourceNode{
		ID:            id,
		ResourceType:  resourceType,
		Name:          id,
		CloudProvider: "aws",
		Region:        "us-east-1",
	}
}

func testEdge(source, target string, strength float64) models.DependencyEdge {
	return models.DependencyEdge{
		SourceID:         source,
		TargetID:         target,
		RelationshipType: models.RelationshipDependsOn,
		Strength:         strength,
		Category:         models.EdgeCategoryNetwork,
	}
}

// prodGraph is a small but realistic topology:
//
//	web-store -> lb-edge -> api-orders -> db-main
//	                                   -> queue-events <- worker
//	            api-billing -> db-main
//
// db-main, queue-events, api-orders and lb-edge are all unmitigated single
// points of failure; web-store, worker and api-billing have no dependents.
func prodGraph() *graph.Snapshot {
	return graph.Build(
		[]models.ResourceNode{
			testNode("db-main", "rds_postgres"),
			testNode("api-orders", "api_service"),
			testNode("api-billing", "api_service"),
			testNode("lb-edge", "load_balancer"),
			testNode("web-store", "web_frontend"),
			testNode("queue-events", "sqs_queue"),
			testNode("worker", "worker_service"),
		},
		[]models.DependencyEdge{
			testEdge("api-orders", "db-main", 0.9),
			testEdge("api-billing", "db-main", 0.8),
			testEdge("lb-edge", "api-orders", 1.0),
			testEdge("web-store", "lb-edge", 1.0),
			testEdge("worker", "queue-events", 0.7),
			testEdge("api-orders", "queue-events", 0.5),
		},
	)
}

// twinGraph holds two databases of the same type serving the same dependent,
// so neither is a single point of failure.
func twinGraph() *graph.Snapshot {
	return graph.Build(
		[]models.ResourceNode{
			testNode("db-a", "rds_postgres"),
			testNode("db-b", "rds_postgres"),
			testNode("api-x", "api_service"),
		},
		[]models.DependencyEdge{
			testEdge("api-x", "db-a", 0.9),
			testEdge("api-x", "db-b", 0.9),
		},
	)
}

// chainGraph is the minimal a -> b -> c dependency chain.
func chainGraph() *graph.Snapshot {
	return graph.Build(
		[]models.ResourceNode{
			testNode("svc-a", "api_service"),
			testNode("svc-b", "api_service"),
			testNode("svc-c", "rds_postgres"),
		},
		[]models.DependencyEdge{
			testEdge("svc-a", "svc-b", 0.8),
			testEdge("svc-b", "svc-c", 0.9),
		},
	)
}

// analyzers bundles the full analysis stack over one gateway.
type analyzers struct {
	gw         graph.QueryGateway
	classifier *Classifier
	blast      *BlastRadiusCalculator
	scorer     *RiskScorer
	spof       *SPOFDetector
	health     *DependencyHealthAnalyzer
	impact     *ImpactCategorizer
	simulator  *FailureSimulator
	whatif     *WhatIfOrchestrator
}

func newAnalyzers(gw graph.QueryGateway, meta deploymeta.Provider) *analyzers {
	cfg := DefaultConfig()
	classifier := NewClassifier(cfg)
	blast := NewBlastRadiusCalculator(gw, classifier, meta, cfg)
	scorer := NewRiskScorer(gw, classifier, blast, meta, cfg)
	spof := NewSPOFDetector(gw, blast, scorer, cfg)
	health := NewDependencyHealthAnalyzer(gw, scorer, spof, cfg)
	impact := NewImpactCategorizer(blast, scorer, cfg)
	simulator := NewFailureSimulator(gw, blast, classifier, nil, cfg)
	return &analyzers{
		gw:         gw,
		classifier: classifier,
		blast:      blast,
		scorer:     scorer,
		spof:       spof,
		health:     health,
		impact:     impact,
		simulator:  simulator,
		whatif:     NewWhatIfOrchestrator(impact, health, simulator),
	}
}
