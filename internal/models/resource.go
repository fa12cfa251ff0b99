package models

// Category is the behavioral category of a resource, assigned by the classifier.
type Category string

const (
	CategoryUserFacing     Category = "user_facing"
	CategoryBackendService Category = "backend_service"
	CategoryDataStore      Category = "data_store"
	CategoryInfrastructure Category = "infrastructure"
	CategoryIntegration    Category = "integration"
	CategoryClientApp      Category = "client_app"
)

// EdgeCategory classifies what kind of coupling an edge represents.
type EdgeCategory string

const (
	EdgeCategoryNetwork       EdgeCategory = "network"
	EdgeCategoryData          EdgeCategory = "data"
	EdgeCategoryConfiguration EdgeCategory = "configuration"
	EdgeCategoryCompute       EdgeCategory = "compute"
)

// Relationship types emitted by the discovery service. Open set; these are the
// common ones.
const (
	RelationshipDependsOn = "depends_on"
	RelationshipRoutesTo  = "routes_to"
	RelationshipContains  = "contains"
)

// ResourceNode is one resource in the infrastructure graph. Nodes are created
// and updated by the discovery service only; within a single analysis call the
// node set is an immutable snapshot.
type ResourceNode struct {
	ID            string            `json:"id" db:"id"`
	ResourceType  string            `json:"resource_type" db:"resource_type"`
	Name          string            `json:"name" db:"name"`
	CloudProvider string            `json:"cloud_provider" db:"cloud_provider"`
	Region        string            `json:"region" db:"region"`
	Category      Category          `json:"category,omitempty" db:"category"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// DependencyEdge is a directed edge: Source depends on Target. The graph may
// contain cycles; every traversal must carry a visited set.
type DependencyEdge struct {
	SourceID         string       `json:"source_id" db:"source_id"`
	TargetID         string       `json:"target_id" db:"target_id"`
	RelationshipType string       `json:"relationship_type" db:"relationship_type"`
	Strength         float64      `json:"strength" db:"strength"` // [0,1]
	Category         EdgeCategory `json:"category" db:"category"`
}
