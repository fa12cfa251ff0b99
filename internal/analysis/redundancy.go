package analysis

import (
	"context"

	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/models"
)

// hasRedundancy reports whether another node of the same resource type serves
// an overlapping set of direct dependents. A resource with no dependents has
// nothing to be redundant for.
func hasRedundancy(ctx context.Context, gw graph.QueryGateway, node models.ResourceNode, directDependents []graph.Neighbor) (bool, error) {
	if len(directDependents) == 0 {
		return false, nil
	}
	mine := make(map[string]bool, len(directDependents))
	for _, d := range directDependents {
		mine[d.Node.ID] = true
	}

	peers, err := gw.ListNodes(ctx, &graph.Filter{ResourceType: node.ResourceType})
	if err != nil {
		return false, err
	}
	for _, peer := range peers {
		if peer.ID == node.ID {
			continue
		}
		peerDeps, err := gw.GetDownstream(ctx, peer.ID, 1)
		if err != nil {
			if graph.IsNotFound(err) {
				continue // peer vanished between list and walk
			}
			return false, err
		}
		for _, d := range peerDeps {
			if mine[d.Node.ID] {
				return true, nil
			}
		}
	}
	return false, nil
}
