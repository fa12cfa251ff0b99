package models

import "time"

// RiskLevel buckets a 0-100 risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// RiskFactors are the inputs that produced a risk score. Field names are part
// of the API contract.
type RiskFactors struct {
	DependencyCount int         `json:"dependency_count"`
	Criticality     float64     `json:"criticality"`
	IsSPOF          bool        `json:"is_spof"`
	HasRedundancy   bool        `json:"has_redundancy"`
	BlastRadiusSize int         `json:"blast_radius_size"`
	UserImpact      ImpactLevel `json:"user_impact"`
}

// RiskAssessment is the result of assessing one resource. Computed fresh per
// request; never persisted.
type RiskAssessment struct {
	ResourceID      string      `json:"resource_id"`
	RiskScore       float64     `json:"risk_score"` // clamped to [0,100]
	RiskLevel       RiskLevel   `json:"risk_level"`
	Factors         RiskFactors `json:"factors"`
	Recommendations []string    `json:"recommendations"`
	AssessedAt      time.Time   `json:"assessed_at"`
}

// SPOFCandidate is one entry of a full-graph single-point-of-failure scan.
type SPOFCandidate struct {
	ResourceID      string   `json:"resource_id"`
	ResourceType    string   `json:"resource_type"`
	Name            string   `json:"name"`
	DependentsCount int      `json:"dependents_count"`
	BlastRadius     int      `json:"blast_radius"`
	RiskScore       float64  `json:"risk_score"`
	Recommendations []string `json:"recommendations"`
}

// RiskSummary aggregates a full-graph scan into per-level counts.
type RiskSummary struct {
	TotalResources int              `json:"total_resources"`
	Critical       int              `json:"critical"`
	High           int              `json:"high"`
	Medium         int              `json:"medium"`
	Low            int              `json:"low"`
	TopRisks       []RiskAssessment `json:"top_risks"`
	GeneratedAt    time.Time        `json:"generated_at"`
}
