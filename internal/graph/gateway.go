// Package graph provides read-only access to the infrastructure dependency
// graph maintained by the discovery service. Analysis code never mutates the
// graph; every implementation hands out a point-in-time view.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/faultmap/faultmap-backend/internal/models"
)

// Neighbor is one resource reached during a traversal: the node, the edge it
// was discovered through, and its hop distance from the origin. Distance is
// strictly increasing along any traversal path.
type Neighbor struct {
	Node     models.ResourceNode
	Edge     models.DependencyEdge
	Distance int
}

// Filter narrows ListNodes. Zero values match everything.
type Filter struct {
	ResourceType  string
	CloudProvider string
	Region        string
}

// QueryGateway is the read-only boundary to the topology graph.
//
// GetDownstream walks "who depends on me" edges: the resources affected when
// id fails. GetUpstream walks "what do I depend on" edges. Both return
// neighbors in deterministic breadth-first order with first-visit distances,
// are cycle-safe, and stop at maxDepth (0 = implementation cap).
type QueryGateway interface {
	GetNode(ctx context.Context, id string) (*models.ResourceNode, error)
	GetDownstream(ctx context.Context, id string, maxDepth int) ([]Neighbor, error)
	GetUpstream(ctx context.Context, id string, maxDepth int) ([]Neighbor, error)
	ListNodes(ctx context.Context, filter *Filter) ([]models.ResourceNode, error)
	// Version identifies the current graph snapshot; cache keys include it so
	// entries die when the discovery service publishes a new topology.
	Version(ctx context.Context) (string, error)
}

// NotFoundError reports a resource id absent from the graph. Surfaced
// immediately, never retried.
type NotFoundError struct {
	Op         string
	ResourceID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: resource %q not found in graph", e.Op, e.ResourceID)
}

// UnavailableError reports a gateway that could not be reached after retries.
type UnavailableError struct {
	Op         string
	ResourceID string
	Err        error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: graph unavailable (resource %q): %v", e.Op, e.ResourceID, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUnavailable reports whether err is an UnavailableError.
func IsUnavailable(err error) bool {
	var ua *UnavailableError
	return errors.As(err, &ua)
}
