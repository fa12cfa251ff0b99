package validate

import (
	"strings"
	"testing"
)

func TestResourceID(t *testing.T) {
	valid := []string{
		"db-main",
		"api_orders",
		"arn:aws:rds:us-east-1:123456789012:db/orders",
		"gcp.project.instance",
		"a",
		strings.Repeat("x", ResourceIDMaxLen),
	}
	for _, id := range valid {
		if !ResourceID(id) {
			t.Errorf("ResourceID(%q) = false, want true", id)
		}
	}

	invalid := []string{
		"",
		"has space",
		"semi;colon",
		"query?string",
		"percent%20encoded",
		"newline\n",
		strings.Repeat("x", ResourceIDMaxLen+1),
	}
	for _, id := range invalid {
		if ResourceID(id) {
			t.Errorf("ResourceID(%q) = true, want false", id)
		}
	}
}
