package graph

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/faultmap/faultmap-backend/internal/models"
)

// hardDepthCap bounds traversals when the caller passes maxDepth <= 0, so a
// dense or cyclic graph can never walk unbounded.
const hardDepthCap = 50

// Snapshot is an immutable in-memory copy of the topology graph. Nodes live in
// an arena slice and all adjacency is expressed through integer indices, so
// traversals never chase object pointers and cycles cost nothing extra. Safe
// for concurrent readers; there are no writers after Build.
type Snapshot struct {
	nodes   []models.ResourceNode
	index   map[string]int // id -> arena index
	out     [][]edgeRef    // i depends on out[i] (upstream direction)
	in      [][]edgeRef    // in[i] depend on i (downstream direction)
	edges   []models.DependencyEdge
	version string
}

// edgeRef points at a neighbor node and the edge that connects it.
type edgeRef struct {
	node int
	edge int
}

// Build constructs a snapshot from discovery output. Duplicate node ids and
// duplicate (source, target, relationship) edges are dropped; edges that
// reference unknown nodes are dropped too, mirroring how the discovery feed
// can momentarily race its own node list.
func Build(nodes []models.ResourceNode, edges []models.DependencyEdge) *Snapshot {
	s := &Snapshot{index: make(map[string]int, len(nodes))}
	for _, n := range nodes {
		if _, exists := s.index[n.ID]; exists {
			continue
		}
		s.index[n.ID] = len(s.nodes)
		s.nodes = append(s.nodes, n)
	}
	s.out = make([][]edgeRef, len(s.nodes))
	s.in = make([][]edgeRef, len(s.nodes))

	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		src, ok := s.index[e.SourceID]
		if !ok {
			continue
		}
		dst, ok := s.index[e.TargetID]
		if !ok {
			continue
		}
		key := e.SourceID + "->" + e.TargetID + ":" + e.RelationshipType
		if seen[key] {
			continue
		}
		seen[key] = true
		ei := len(s.edges)
		s.edges = append(s.edges, e)
		s.out[src] = append(s.out[src], edgeRef{node: dst, edge: ei})
		s.in[dst] = append(s.in[dst], edgeRef{node: src, edge: ei})
	}

	// Sort adjacency by neighbor id so breadth-first order is deterministic
	// regardless of discovery feed ordering.
	for i := range s.out {
		s.sortRefs(s.out[i])
		s.sortRefs(s.in[i])
	}
	s.version = s.fingerprint()
	return s
}

func (s *Snapshot) sortRefs(refs []edgeRef) {
	sort.Slice(refs, func(a, b int) bool {
		return s.nodes[refs[a].node].ID < s.nodes[refs[b].node].ID
	})
}

// fingerprint hashes the sorted node and edge sets into a stable version
// string for cache keying.
func (s *Snapshot) fingerprint() string {
	nodeKeys := make([]string, len(s.nodes))
	for i, n := range s.nodes {
		nodeKeys[i] = n.ID + ":" + n.ResourceType
	}
	sort.Strings(nodeKeys)

	edgeKeys := make([]string, len(s.edges))
	for i, e := range s.edges {
		edgeKeys[i] = fmt.Sprintf("%s->%s:%s:%.3f", e.SourceID, e.TargetID, e.RelationshipType, e.Strength)
	}
	sort.Strings(edgeKeys)

	data, _ := json.Marshal(struct {
		Nodes []string
		Edges []string
	}{nodeKeys, edgeKeys})
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// GetNode implements QueryGateway.
func (s *Snapshot) GetNode(_ context.Context, id string) (*models.ResourceNode, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, &NotFoundError{Op: "GetNode", ResourceID: id}
	}
	n := s.nodes[i]
	return &n, nil
}

// GetDownstream implements QueryGateway: resources that (transitively) depend
// on id, in breadth-first order.
func (s *Snapshot) GetDownstream(_ context.Context, id string, maxDepth int) ([]Neighbor, error) {
	return s.walk(id, maxDepth, s.in, "GetDownstream")
}

// GetUpstream implements QueryGateway: resources that id (transitively)
// depends on, in breadth-first order.
func (s *Snapshot) GetUpstream(_ context.Context, id string, maxDepth int) ([]Neighbor, error) {
	return s.walk(id, maxDepth, s.out, "GetUpstream")
}

func (s *Snapshot) walk(id string, maxDepth int, adj [][]edgeRef, op string) ([]Neighbor, error) {
	origin, ok := s.index[id]
	if !ok {
		return nil, &NotFoundError{Op: op, ResourceID: id}
	}
	if maxDepth <= 0 || maxDepth > hardDepthCap {
		maxDepth = hardDepthCap
	}

	visited := make(map[int]bool, 16)
	visited[origin] = true

	var result []Neighbor
	frontier := []int{origin}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []int
		for _, cur := range frontier {
			for _, ref := range adj[cur] {
				if visited[ref.node] {
					continue
				}
				visited[ref.node] = true
				result = append(result, Neighbor{
					Node:     s.nodes[ref.node],
					Edge:     s.edges[ref.edge],
					Distance: depth,
				})
				next = append(next, ref.node)
			}
		}
		frontier = next
	}
	return result, nil
}

// ListNodes implements QueryGateway. Results are ordered by id.
func (s *Snapshot) ListNodes(_ context.Context, filter *Filter) ([]models.ResourceNode, error) {
	result := make([]models.ResourceNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		if filter != nil {
			if filter.ResourceType != "" && n.ResourceType != filter.ResourceType {
				continue
			}
			if filter.CloudProvider != "" && n.CloudProvider != filter.CloudProvider {
				continue
			}
			if filter.Region != "" && n.Region != filter.Region {
				continue
			}
		}
		result = append(result, n)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].ID < result[b].ID })
	return result, nil
}

// Version implements QueryGateway.
func (s *Snapshot) Version(_ context.Context) (string, error) {
	return s.version, nil
}
