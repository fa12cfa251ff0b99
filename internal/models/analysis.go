package models

// DownstreamImpactAnalysis groups a blast radius by business-meaning category
// and estimates user impact.
type DownstreamImpactAnalysis struct {
	ResourceID               string                          `json:"resource_id"`
	BlastRadius              *BlastRadiusResult              `json:"blast_radius"`
	AffectedByCategory       map[Category][]AffectedResource `json:"affected_by_category"`
	CriticalServicesAffected []AffectedResource              `json:"critical_services_affected"`
	ClientAppsAffected       []AffectedResource              `json:"client_apps_affected"`
	EstimatedUsersAffected   int                             `json:"estimated_users_affected"`
	Summary                  string                          `json:"summary"`
}

// DependencyStatus describes one upstream dependency of a resource.
type DependencyStatus struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ResourceType string  `json:"resource_type"`
	Distance     int     `json:"distance"`
	Strength     float64 `json:"strength"`
	RiskScore    float64 `json:"risk_score"`
	Health       float64 `json:"health"` // 0-100, higher is healthier
	IsSPOF       bool    `json:"is_spof"`
}

// UpstreamDependencyHealth scores how risk-free the dependencies of a resource
// are.
type UpstreamDependencyHealth struct {
	ResourceID            string             `json:"resource_id"`
	DependencyHealthScore float64            `json:"dependency_health_score"` // 0-100
	Dependencies          []DependencyStatus `json:"dependencies"`
	UnhealthyDependencies []string           `json:"unhealthy_dependencies"`  // health < 50
	HighRiskDependencies  []string           `json:"high_risk_dependencies"`  // risk >= 75
}

// WhatIfAnalysis is the composite downstream + upstream + scenario report.
type WhatIfAnalysis struct {
	ResourceID          string                    `json:"resource_id"`
	ScenarioType        ScenarioType              `json:"scenario_type"`
	Downstream          *DownstreamImpactAnalysis `json:"downstream"`
	Upstream            *UpstreamDependencyHealth `json:"upstream"`
	Scenario            *FailureScenario          `json:"scenario"`
	Severity            ImpactLevel               `json:"severity"`
	MitigationAvailable bool                      `json:"mitigation_available"`
	RollbackPossible    bool                      `json:"rollback_possible"`
	RollbackSteps       []string                  `json:"rollback_steps,omitempty"`
}
