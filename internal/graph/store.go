package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/faultmap/faultmap-backend/internal/models"
	"github.com/faultmap/faultmap-backend/internal/pkg/metrics"
)

// sqlDepthCap bounds recursive closure queries; deeper walks belong in the
// in-memory snapshot, not the database.
const sqlDepthCap = 25

// Store is a QueryGateway over the node/edge tables owned by the discovery
// service. It never writes. Transient connection errors are retried with
// bounded exponential backoff; a resource missing from the graph is surfaced
// immediately as NotFoundError.
type Store struct {
	db         *sqlx.DB
	maxElapsed time.Duration
	tracer     trace.Tracer
}

// NewPostgres opens a Postgres-backed gateway.
func NewPostgres(connectionString string, retryDeadline time.Duration) (*Store, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return newStore(db, retryDeadline), nil
}

// NewSQLite opens a SQLite-backed gateway for single-binary local mode. The
// file is produced by the discovery CLI's export command.
func NewSQLite(path string, retryDeadline time.Duration) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite graph store: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc sqlite: single writer, avoid SQLITE_BUSY
	return newStore(db, retryDeadline), nil
}

func newStore(db *sqlx.DB, retryDeadline time.Duration) *Store {
	if retryDeadline <= 0 {
		retryDeadline = 10 * time.Second
	}
	return &Store{
		db:         db,
		maxElapsed: retryDeadline,
		tracer:     otel.Tracer("faultmap/graph"),
	}
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle so collaborators reading sibling tables (deployment
// stats) can share the connection pool.
func (s *Store) DB() *sqlx.DB { return s.db }

// retry runs fn with bounded exponential backoff. NotFound is permanent;
// anything still failing at the deadline is wrapped as UnavailableError.
func (s *Store) retry(ctx context.Context, op, resourceID string, fn func() error) error {
	bo := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMaxElapsedTime(s.maxElapsed),
	), ctx)

	err := backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if IsNotFound(err) {
			return backoff.Permanent(err)
		}
		metrics.GatewayRetriesTotal.WithLabelValues(op).Inc()
		return err
	}, bo)
	if err == nil || IsNotFound(err) {
		return err
	}
	return &UnavailableError{Op: op, ResourceID: resourceID, Err: err}
}

type nodeRow struct {
	ID            string         `db:"id"`
	ResourceType  string         `db:"resource_type"`
	Name          string         `db:"name"`
	CloudProvider sql.NullString `db:"cloud_provider"`
	Region        sql.NullString `db:"region"`
	Tags          sql.NullString `db:"tags"` // JSON object
}

func (r nodeRow) toModel() models.ResourceNode {
	n := models.ResourceNode{
		ID:            r.ID,
		ResourceType:  r.ResourceType,
		Name:          r.Name,
		CloudProvider: r.CloudProvider.String,
		Region:        r.Region.String,
	}
	if r.Tags.Valid && r.Tags.String != "" {
		// Tags are free-form discovery output; a malformed blob must not fail
		// the whole analysis.
		_ = json.Unmarshal([]byte(r.Tags.String), &n.Tags)
	}
	return n
}

// GetNode implements QueryGateway.
func (s *Store) GetNode(ctx context.Context, id string) (*models.ResourceNode, error) {
	ctx, span := s.tracer.Start(ctx, "graph.GetNode", trace.WithAttributes(attribute.String("resource.id", id)))
	defer span.End()

	var node *models.ResourceNode
	err := s.retry(ctx, "GetNode", id, func() error {
		var row nodeRow
		q := s.db.Rebind(`SELECT id, resource_type, name, cloud_provider, region, tags FROM resource_nodes WHERE id = ?`)
		err := s.db.GetContext(ctx, &row, q, id)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Op: "GetNode", ResourceID: id}
		}
		if err != nil {
			return err
		}
		n := row.toModel()
		node = &n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

type walkRow struct {
	nodeRow
	SourceID         string  `db:"source_id"`
	TargetID         string  `db:"target_id"`
	RelationshipType string  `db:"relationship_type"`
	Strength         float64 `db:"strength"`
	EdgeCategory     string  `db:"edge_category"`
	Distance         int     `db:"distance"`
}

// downstreamQuery walks reverse dependency edges (who depends on me). The
// recursive term is bounded by distance so a cyclic graph terminates, and
// UNION dedupes rows so diamond-shaped graphs do not enumerate every path.
const downstreamQuery = `
WITH RECURSIVE walk(id, source_id, target_id, relationship_type, strength, edge_category, distance) AS (
    SELECT e.source_id, e.source_id, e.target_id, e.relationship_type, e.strength, e.category, 1
    FROM dependency_edges e
    WHERE e.target_id = ?
  UNION
    SELECT e.source_id, e.source_id, e.target_id, e.relationship_type, e.strength, e.category, w.distance + 1
    FROM dependency_edges e
    JOIN walk w ON e.target_id = w.id
    WHERE w.distance < ?
)
SELECT w.id, w.source_id, w.target_id, w.relationship_type, w.strength, w.edge_category, w.distance,
       n.resource_type, n.name, n.cloud_provider, n.region, n.tags
FROM walk w
JOIN resource_nodes n ON n.id = w.id
ORDER BY w.distance, n.id, w.target_id`

const upstreamQuery = `
WITH RECURSIVE walk(id, source_id, target_id, relationship_type, strength, edge_category, distance) AS (
    SELECT e.target_id, e.source_id, e.target_id, e.relationship_type, e.strength, e.category, 1
    FROM dependency_edges e
    WHERE e.source_id = ?
  UNION
    SELECT e.target_id, e.source_id, e.target_id, e.relationship_type, e.strength, e.category, w.distance + 1
    FROM dependency_edges e
    JOIN walk w ON e.source_id = w.id
    WHERE w.distance < ?
)
SELECT w.id, w.source_id, w.target_id, w.relationship_type, w.strength, w.edge_category, w.distance,
       n.resource_type, n.name, n.cloud_provider, n.region, n.tags
FROM walk w
JOIN resource_nodes n ON n.id = w.id
ORDER BY w.distance, n.id, w.source_id`

// GetDownstream implements QueryGateway.
func (s *Store) GetDownstream(ctx context.Context, id string, maxDepth int) ([]Neighbor, error) {
	return s.closure(ctx, "GetDownstream", downstreamQuery, id, maxDepth)
}

// GetUpstream implements QueryGateway.
func (s *Store) GetUpstream(ctx context.Context, id string, maxDepth int) ([]Neighbor, error) {
	return s.closure(ctx, "GetUpstream", upstreamQuery, id, maxDepth)
}

func (s *Store) closure(ctx context.Context, op, query, id string, maxDepth int) ([]Neighbor, error) {
	ctx, span := s.tracer.Start(ctx, "graph."+op, trace.WithAttributes(
		attribute.String("resource.id", id),
		attribute.Int("graph.max_depth", maxDepth),
	))
	defer span.End()

	if maxDepth <= 0 || maxDepth > sqlDepthCap {
		maxDepth = sqlDepthCap
	}

	var neighbors []Neighbor
	err := s.retry(ctx, op, id, func() error {
		// The origin must exist even when it has no edges.
		var exists int
		q := s.db.Rebind(`SELECT COUNT(1) FROM resource_nodes WHERE id = ?`)
		if err := s.db.GetContext(ctx, &exists, q, id); err != nil {
			return err
		}
		if exists == 0 {
			return &NotFoundError{Op: op, ResourceID: id}
		}

		var rows []walkRow
		if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), id, maxDepth); err != nil {
			return err
		}

		// The recursive walk can revisit nodes on cyclic or diamond-shaped
		// graphs; keep the first (minimum-distance, id-ordered) row per node.
		neighbors = neighbors[:0]
		seen := map[string]bool{id: true}
		for _, row := range rows {
			if seen[row.ID] {
				continue
			}
			seen[row.ID] = true
			neighbors = append(neighbors, Neighbor{
				Node: row.toModel(),
				Edge: models.DependencyEdge{
					SourceID:         row.SourceID,
					TargetID:         row.TargetID,
					RelationshipType: row.RelationshipType,
					Strength:         row.Strength,
					Category:         models.EdgeCategory(row.EdgeCategory),
				},
				Distance: row.Distance,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("graph.neighbors", len(neighbors)))
	return neighbors, nil
}

// ListNodes implements QueryGateway.
func (s *Store) ListNodes(ctx context.Context, filter *Filter) ([]models.ResourceNode, error) {
	ctx, span := s.tracer.Start(ctx, "graph.ListNodes")
	defer span.End()

	query := `SELECT id, resource_type, name, cloud_provider, region, tags FROM resource_nodes WHERE 1=1`
	var args []interface{}
	if filter != nil {
		if filter.ResourceType != "" {
			query += ` AND resource_type = ?`
			args = append(args, filter.ResourceType)
		}
		if filter.CloudProvider != "" {
			query += ` AND cloud_provider = ?`
			args = append(args, filter.CloudProvider)
		}
		if filter.Region != "" {
			query += ` AND region = ?`
			args = append(args, filter.Region)
		}
	}
	query += ` ORDER BY id`

	var nodes []models.ResourceNode
	err := s.retry(ctx, "ListNodes", "", func() error {
		var rows []nodeRow
		if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
			return err
		}
		nodes = make([]models.ResourceNode, 0, len(rows))
		for _, row := range rows {
			nodes = append(nodes, row.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// Version implements QueryGateway: the discovery service bumps graph_meta on
// every topology publish.
func (s *Store) Version(ctx context.Context) (string, error) {
	var version string
	err := s.retry(ctx, "Version", "", func() error {
		q := s.db.Rebind(`SELECT version FROM graph_meta ORDER BY updated_at DESC LIMIT 1`)
		err := s.db.GetContext(ctx, &version, q)
		if errors.Is(err, sql.ErrNoRows) {
			version = "unversioned"
			return nil
		}
		return err
	})
	return version, err
}
