package content

import (
	"io"
	"strings"
)

// HandlerFunc produces the response body for a matched route. Handlers may
// either return the body or write it to w; a non-empty return value takes
// precedence over anything written.
type HandlerFunc func(ctx RequestContext, w io.Writer) (string, error)

// Route is one registered entry of the routing table. A route either carries
// a handler or names a redirect target.
type Route struct {
	Method   string
	Pattern  string
	Handler  HandlerFunc
	Redirect string
	Code     int
}

// IsRedirect reports whether the route redirects instead of rendering.
func (r Route) IsRedirect() bool { return r.Redirect != "" }

// Match is the result of resolving a URI against the table.
type Match struct {
	Route  Route
	Params map[string]string
}

// Routes is an ordered routing table. Earlier registrations win.
type Routes struct {
	list []Route
}

func NewRoutes() *Routes {
	return &Routes{}
}

// Add registers a route. The method defaults to GET and redirect routes
// default to status 301.
func (rs *Routes) Add(r Route) {
	if r.Method == "" {
		r.Method = "GET"
	}
	if r.IsRedirect() && r.Code == 0 {
		r.Code = 301
	}
	r.Pattern = strings.Trim(r.Pattern, "/")
	rs.list = append(rs.list, r)
}

// Len returns the number of registered routes.
func (rs *Routes) Len() int { return len(rs.list) }

// Patterns returns the registered patterns for the given method, in
// registration order.
func (rs *Routes) Patterns(method string) []string {
	out := make([]string, 0, len(rs.list))
	for _, r := range rs.list {
		if strings.EqualFold(r.Method, method) {
			out = append(out, r.Pattern)
		}
	}
	return out
}

// Match resolves method and URI to the first matching route. Pattern
// segments of the form {name} capture a single URI segment into
// Match.Params.
func (rs *Routes) Match(method, uri string) (Match, bool) {
	if method == "" {
		method = "GET"
	}
	uri = strings.Trim(uri, "/")
	for _, r := range rs.list {
		if !strings.EqualFold(r.Method, method) {
			continue
		}
		if params, ok := matchPattern(r.Pattern, uri); ok {
			return Match{Route: r, Params: params}, true
		}
	}
	return Match{}, false
}

func matchPattern(pattern, uri string) (map[string]string, bool) {
	if pattern == uri {
		return nil, true
	}
	if !strings.Contains(pattern, "{") {
		return nil, false
	}

	pSegs := strings.Split(pattern, "/")
	uSegs := strings.Split(uri, "/")
	if len(pSegs) != len(uSegs) {
		return nil, false
	}

	var params map[string]string
	for i, ps := range pSegs {
		us := uSegs[i]
		if strings.HasPrefix(ps, "{") && strings.HasSuffix(ps, "}") && len(ps) > 2 {
			if us == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string, 1)
			}
			params[ps[1:len(ps)-1]] = us
			continue
		}
		if ps != us {
			return nil, false
		}
	}
	return params, true
}
