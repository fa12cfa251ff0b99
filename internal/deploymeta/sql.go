package deploymeta

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLProvider reads the deployment_stats table maintained by the discovery
// service's CI/CD integration. Missing rows mean "unknown", never an error.
type SQLProvider struct {
	db *sqlx.DB
}

// NewSQLProvider wraps an existing database handle; the graph store and the
// metadata provider share one connection pool.
func NewSQLProvider(db *sqlx.DB) *SQLProvider {
	return &SQLProvider{db: db}
}

func (p *SQLProvider) FailureRate(ctx context.Context, resourceID string) (float64, error) {
	var rate float64
	q := p.db.Rebind(`SELECT failure_rate FROM deployment_stats WHERE resource_id = ?`)
	err := p.db.GetContext(ctx, &rate, q, resourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return rate, nil
}

func (p *SQLProvider) LastChangedAt(ctx context.Context, resourceID string) (time.Time, bool, error) {
	var t time.Time
	q := p.db.Rebind(`SELECT last_changed_at FROM deployment_stats WHERE resource_id = ?`)
	err := p.db.GetContext(ctx, &t, q, resourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return t, !t.IsZero(), nil
}

func (p *SQLProvider) MeanTimeToRecover(ctx context.Context, resourceType string) (time.Duration, bool, error) {
	var seconds int64
	q := p.db.Rebind(`SELECT mttr_seconds FROM recovery_stats WHERE resource_type = ?`)
	err := p.db.GetContext(ctx, &seconds, q, resourceType)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return time.Duration(seconds) * time.Second, seconds > 0, nil
}
