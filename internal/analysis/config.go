// Package analysis answers "what happens if X fails": risk scoring, blast
// radius, SPOF detection, failure simulation, and the composed what-if report.
// Every computation is a pure walk over an immutable graph snapshot; all rule
// tables live in Config and are injected at construction time so deployments
// (and tests) can override them per case.
package analysis

import (
	"github.com/faultmap/faultmap-backend/internal/models"
)

// Thresholds maps a 0-100 risk score to a level. Boundaries are inclusive:
// score >= Critical is critical, >= High is high, >= Medium is medium,
// otherwise low.
type Thresholds struct {
	Medium   float64 `mapstructure:"medium"`
	High     float64 `mapstructure:"high"`
	Critical float64 `mapstructure:"critical"`
}

// Level buckets score into a risk level.
func (t Thresholds) Level(score float64) models.RiskLevel {
	switch {
	case score >= t.Critical:
		return models.RiskLevelCritical
	case score >= t.High:
		return models.RiskLevelHigh
	case score >= t.Medium:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

// StandardThresholds is the authoritative level table (25/50/75).
func StandardThresholds() Thresholds { return Thresholds{Medium: 25, High: 50, Critical: 75} }

// LegacyThresholds is the older published table (40/60/80), kept selectable
// for deployments that alert on the historical boundaries.
func LegacyThresholds() Thresholds { return Thresholds{Medium: 40, High: 60, Critical: 80} }

// Weights are the documented risk-formula weights. Positive terms raise risk,
// Stability and Redundancy subtract.
type Weights struct {
	DependencyCount float64 `mapstructure:"dependency_count"`
	Criticality     float64 `mapstructure:"criticality"`
	FailureRate     float64 `mapstructure:"failure_rate"`
	Stability       float64 `mapstructure:"stability"`
	Redundancy      float64 `mapstructure:"redundancy"`
}

// DefaultWeights returns the documented formula weights.
func DefaultWeights() Weights {
	return Weights{
		DependencyCount: 0.25,
		Criticality:     0.30,
		FailureRate:     0.20,
		Stability:       0.10,
		Redundancy:      0.15,
	}
}

// CriticalityRule assigns a base criticality weight and behavioral category to
// resource types whose lowercased name contains one of the keywords. Rules
// are evaluated in order; first match wins, so the more specific rules come
// first.
type CriticalityRule struct {
	Keywords []string
	Weight   float64
	Category models.Category
}

// StandardCriticalityRules is the authoritative base-criticality table.
func StandardCriticalityRules() []CriticalityRule {
	return []CriticalityRule{
		{Keywords: []string{"auth", "secret", "vault", "kms", "iam", "identity"}, Weight: 40, Category: models.CategoryBackendService},
		{Keywords: []string{"database", "db", "rds", "sql", "postgres", "mysql", "mongo", "dynamo", "cassandra"}, Weight: 30, Category: models.CategoryDataStore},
		{Keywords: []string{"cache", "redis", "memcached", "elasticache"}, Weight: 25, Category: models.CategoryDataStore},
		{Keywords: []string{"load_balancer", "loadbalancer", "alb", "nlb", "elb", "gateway", "ingress", "cdn", "cloudfront"}, Weight: 20, Category: models.CategoryUserFacing},
		{Keywords: []string{"queue", "topic", "sns", "sqs", "kafka", "webhook", "eventbridge"}, Weight: 15, Category: models.CategoryIntegration},
		{Keywords: []string{"service", "api", "function", "lambda", "container", "deployment", "pod"}, Weight: 15, Category: models.CategoryBackendService},
		{Keywords: []string{"app", "client", "mobile", "web", "frontend", "spa"}, Weight: 10, Category: models.CategoryClientApp},
		{Keywords: []string{"storage", "bucket", "s3", "volume", "disk", "vm", "instance", "ec2", "node"}, Weight: 10, Category: models.CategoryInfrastructure},
		{Keywords: []string{"vpc", "subnet", "route", "nat", "firewall", "security_group", "dns"}, Weight: 5, Category: models.CategoryInfrastructure},
	}
}

// LegacyCriticalityRules is the older published table; some base figures
// differ. Selectable via configuration, never silently reconciled with the
// standard table.
func LegacyCriticalityRules() []CriticalityRule {
	rules := StandardCriticalityRules()
	for i := range rules {
		switch rules[i].Weight {
		case 40:
			rules[i].Weight = 45 // auth / secret stores
		case 30:
			rules[i].Weight = 35 // databases
		case 20:
			rules[i].Weight = 25 // load balancers / gateways
		}
	}
	return rules
}

// Config carries every rule table and limit the analyzers use. Immutable once
// constructed.
type Config struct {
	Thresholds       Thresholds
	Weights          Weights
	CriticalityRules []CriticalityRule

	// DefaultCriticality is the base weight for unknown resource types.
	DefaultCriticality float64
	DefaultCategory    models.Category

	// DepCountSaturation is where the dependency-count factor tops out; a
	// resource with this many edges scores 100 on that factor.
	DepCountSaturation int

	// MaxDepth / MaxVisited bound downstream traversals. Exceeding MaxVisited
	// truncates the result, it never fails.
	MaxDepth   int
	MaxVisited int

	// UpstreamDepth bounds dependency-health walks.
	UpstreamDepth int

	// SPOFDependentsThreshold is the minimum direct dependents for a SPOF
	// candidate.
	SPOFDependentsThreshold int

	// SPOFPenalty is subtracted from the dependency health score for each
	// upstream dependency that is itself a SPOF.
	SPOFPenalty float64

	// DowntimeByCategory is the base downtime estimate in seconds, scaled by
	// the user-impact severity factor. MTTR history overrides the base.
	DowntimeByCategory map[models.Category]int
	DefaultDowntime    int

	// UsersPerResource is the per-category weight of the estimated-users
	// heuristic: weight x affected count.
	UsersPerResource map[models.Category]int

	// RollbackSteps defines, per category, the rollback runbook. A category
	// without an entry cannot be rolled back (restore procedures are not
	// rollbacks).
	RollbackSteps map[models.Category][]string

	// StabilityHorizonDays is how many days without a change count as fully
	// stable (stability factor 100).
	StabilityHorizonDays int
}

// DefaultConfig returns the production rule tables with the standard
// threshold set.
func DefaultConfig() Config {
	return Config{
		Thresholds:         StandardThresholds(),
		Weights:            DefaultWeights(),
		CriticalityRules:   StandardCriticalityRules(),
		DefaultCriticality: 5,
		DefaultCategory:    models.CategoryInfrastructure,
		DepCountSaturation: 20,
		MaxDepth:           10,
		MaxVisited:         2000,
		UpstreamDepth:      3,

		SPOFDependentsThreshold: 1,
		SPOFPenalty:             10,

		DowntimeByCategory: map[models.Category]int{
			models.CategoryDataStore:      1800,
			models.CategoryBackendService: 900,
			models.CategoryUserFacing:     900,
			models.CategoryIntegration:    600,
			models.CategoryInfrastructure: 1200,
			models.CategoryClientApp:      300,
		},
		DefaultDowntime: 600,

		UsersPerResource: map[models.Category]int{
			models.CategoryUserFacing:     1000,
			models.CategoryClientApp:      500,
			models.CategoryDataStore:      300,
			models.CategoryBackendService: 200,
			models.CategoryIntegration:    150,
			models.CategoryInfrastructure: 100,
		},

		RollbackSteps: map[models.Category][]string{
			models.CategoryBackendService: {
				"Identify the last known-good deployment revision",
				"Redeploy the previous revision behind the existing endpoint",
				"Verify health checks and error rates before restoring full traffic",
			},
			models.CategoryUserFacing: {
				"Shift traffic to the previous routing configuration",
				"Re-point DNS or load balancer targets at the last healthy backend set",
				"Confirm end-to-end availability from an external probe",
			},
			models.CategoryClientApp: {
				"Re-publish the previous client release",
				"Invalidate cached assets so clients pick up the rollback",
			},
		},

		StabilityHorizonDays: 30,
	}
}

// severityFactor scales downtime estimates by user impact.
func severityFactor(impact models.ImpactLevel) float64 {
	switch impact {
	case models.ImpactSevere:
		return 2.0
	case models.ImpactHigh:
		return 1.5
	case models.ImpactMedium:
		return 1.0
	case models.ImpactLow:
		return 0.75
	default:
		return 0.5
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
