package analysis

import (
	"strings"

	"github.com/faultmap/faultmap-backend/internal/models"
)

// Classifier maps a resource type to a base criticality weight and a
// behavioral category. Pure lookup, no side effects.
type Classifier struct {
	rules           []CriticalityRule
	defaultWeight   float64
	defaultCategory models.Category
}

// NewClassifier builds a classifier from the injected rule table.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		rules:           cfg.CriticalityRules,
		defaultWeight:   cfg.DefaultCriticality,
		defaultCategory: cfg.DefaultCategory,
	}
}

// Classify returns the base criticality and category for a resource. An
// explicit "category" tag always wins over the type-derived category; the
// "criticality" tag is not honored — weights come from the table only, so two
// resources of the same type can never disagree on base criticality.
func (c *Classifier) Classify(node models.ResourceNode) (float64, models.Category) {
	weight := c.defaultWeight
	category := c.defaultCategory

	needle := strings.ToLower(node.ResourceType)
	for _, rule := range c.rules {
		if matchesAny(needle, rule.Keywords) {
			weight = rule.Weight
			category = rule.Category
			break
		}
	}

	if tag, ok := node.Tags["category"]; ok {
		if override, valid := parseCategory(tag); valid {
			category = override
		}
	}
	return weight, category
}

// Category returns only the behavioral category.
func (c *Classifier) Category(node models.ResourceNode) models.Category {
	_, cat := c.Classify(node)
	return cat
}

func matchesAny(needle string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(needle, kw) {
			return true
		}
	}
	return false
}

func parseCategory(s string) (models.Category, bool) {
	switch models.Category(strings.ToLower(strings.TrimSpace(s))) {
	case models.CategoryUserFacing:
		return models.CategoryUserFacing, true
	case models.CategoryBackendService:
		return models.CategoryBackendService, true
	case models.CategoryDataStore:
		return models.CategoryDataStore, true
	case models.CategoryInfrastructure:
		return models.CategoryInfrastructure, true
	case models.CategoryIntegration:
		return models.CategoryIntegration, true
	case models.CategoryClientApp:
		return models.CategoryClientApp, true
	}
	return "", false
}
