package models

// ImpactLevel grades how strongly users feel a failure.
type ImpactLevel string

const (
	ImpactMinimal ImpactLevel = "minimal"
	ImpactLow     ImpactLevel = "low"
	ImpactMedium  ImpactLevel = "medium"
	ImpactHigh    ImpactLevel = "high"
	ImpactSevere  ImpactLevel = "severe"
)

// AffectedResource is one resource inside a blast radius. Distance is the hop
// count from the failing resource (1 = direct dependent).
type AffectedResource struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ResourceType string   `json:"resource_type"`
	Category     Category `json:"category"`
	Distance     int      `json:"distance"`
}

// BlastRadiusResult is the set of resources transitively affected when the
// given resource fails, partitioned by hop distance.
type BlastRadiusResult struct {
	ResourceID               string             `json:"resource_id"`
	DirectlyAffected         []AffectedResource `json:"directly_affected"`
	IndirectlyAffected       []AffectedResource `json:"indirectly_affected"`
	CriticalPath             []string           `json:"critical_path"`
	TotalAffected            int                `json:"total_affected"`
	UserImpact               ImpactLevel        `json:"user_impact"`
	EstimatedDowntimeSeconds int                `json:"estimated_downtime_seconds"`
	AffectedServices         map[string]int     `json:"affected_services"` // counts by resource_type
	Truncated                bool               `json:"truncated"`
}

// MaxDistance returns the largest hop distance in the result, 0 when nothing
// is affected.
func (r *BlastRadiusResult) MaxDistance() int {
	max := 0
	if len(r.DirectlyAffected) > 0 {
		max = 1
	}
	for _, a := range r.IndirectlyAffected {
		if a.Distance > max {
			max = a.Distance
		}
	}
	return max
}

// UserFacingCount counts affected resources classified as user facing.
func (r *BlastRadiusResult) UserFacingCount() int {
	n := 0
	for _, a := range r.DirectlyAffected {
		if a.Category == CategoryUserFacing {
			n++
		}
	}
	for _, a := range r.IndirectlyAffected {
		if a.Category == CategoryUserFacing {
			n++
		}
	}
	return n
}
