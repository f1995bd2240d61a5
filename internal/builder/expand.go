package builder

import (
	"path"
	"regexp"
	"strings"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
)

// Wildcard is the route pattern that expands to every registered GET route.
const Wildcard = "*"

var (
	paramSegment = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)
	patternParts = regexp.MustCompile(`^(.*?)/?\{([a-zA-Z_][a-zA-Z0-9_]*)\}(.*)$`)
)

// routePattern is a parsed parameterized route, e.g. blog/{slug}.
type routePattern struct {
	prefix   string
	param    string
	trailing string
}

func paramCount(pattern string) int {
	return len(paramSegment.FindAllString(pattern, -1))
}

func hasAlternation(pattern string) bool {
	return strings.ContainsAny(pattern, "(|)")
}

// parseRoutePattern splits a single-parameter pattern into the content node
// prefix, the parameter name and any trailing text after the parameter.
func parseRoutePattern(pattern string) (routePattern, bool) {
	m := patternParts.FindStringSubmatch(pattern)
	if m == nil {
		return routePattern{}, false
	}
	return routePattern{prefix: m[1], param: m[2], trailing: m[3]}, true
}

// substitute builds the concrete route for one parameter value.
func (rp routePattern) substitute(pattern, value string) string {
	return strings.Replace(pattern, "{"+rp.param+"}", value, 1)
}

// paramValue projects the route parameter from a child page. The slug and
// uid parameters map to the last segment of the page id; anything else reads
// the equally named content field, falling back to the slug when the field
// is empty.
func paramValue(p content.Page, name string) string {
	slug := path.Base(p.ID())
	switch name {
	case "slug", "uid":
		return slug
	}
	if v := p.Field(name); v != "" {
		return v
	}
	return slug
}
