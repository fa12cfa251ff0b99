// Package deploymeta is the optional deployment-metadata collaborator: it
// answers how often a resource has failed, when it last changed, and how long
// recoveries of its type usually take. All answers are best-effort; the risk
// scorer falls back to neutral factors when data is missing.
package deploymeta

import (
	"context"
	"time"
)

// Provider supplies deployment history for risk scoring and downtime
// estimates.
type Provider interface {
	// FailureRate returns a [0,1] historical failure rate; 0 when unknown.
	FailureRate(ctx context.Context, resourceID string) (float64, error)
	// LastChangedAt returns the last change timestamp; ok=false when unknown.
	LastChangedAt(ctx context.Context, resourceID string) (t time.Time, ok bool, err error)
	// MeanTimeToRecover returns the historical MTTR for a resource type;
	// ok=false when no history exists.
	MeanTimeToRecover(ctx context.Context, resourceType string) (d time.Duration, ok bool, err error)
}

// Noop is the default provider: no history, all factors neutral.
type Noop struct{}

func (Noop) FailureRate(context.Context, string) (float64, error) { return 0, nil }

func (Noop) LastChangedAt(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (Noop) MeanTimeToRecover(context.Context, string) (time.Duration, bool, error) {
	return 0, false, nil
}

// Static serves fixed metadata from maps; used by tests and by deployments
// that feed a config file instead of a stats table.
type Static struct {
	FailureRates map[string]float64
	ChangedAt    map[string]time.Time
	MTTR         map[string]time.Duration
}

func (s *Static) FailureRate(_ context.Context, resourceID string) (float64, error) {
	return s.FailureRates[resourceID], nil
}

func (s *Static) LastChangedAt(_ context.Context, resourceID string) (time.Time, bool, error) {
	t, ok := s.ChangedAt[resourceID]
	return t, ok, nil
}

func (s *Static) MeanTimeToRecover(_ context.Context, resourceType string) (time.Duration, bool, error) {
	d, ok := s.MTTR[resourceType]
	return d, ok, nil
}
