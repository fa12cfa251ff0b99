// Package validate provides input validation for API path parameters.
package validate

// ResourceIDMaxLen bounds resource ids; discovery emits ARN-like ids that can
// get long but never this long.
const ResourceIDMaxLen = 256

// ResourceID validates a resource id from the request path: printable id
// characters only (alphanumeric plus - _ . : /), 1 to ResourceIDMaxLen chars.
// Anything else is rejected before it reaches the graph layer.
func ResourceID(id string) bool {
	if id == "" || len(id) > ResourceIDMaxLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ':' || r == '/':
		default:
			return false
		}
	}
	return true
}
