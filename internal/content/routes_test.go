package content

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler(body string) HandlerFunc {
	return func(_ RequestContext, _ io.Writer) (string, error) {
		return body, nil
	}
}

func TestRoutesMatch(t *testing.T) {
	rs := NewRoutes()
	rs.Add(Route{Pattern: "sitemap.xml", Handler: testHandler("sitemap")})
	rs.Add(Route{Pattern: "blog/{slug}", Handler: testHandler("post")})
	rs.Add(Route{Pattern: "old-blog", Redirect: "blog"})
	rs.Add(Route{Method: "POST", Pattern: "api/build", Handler: testHandler("api")})

	tests := []struct {
		name       string
		method     string
		uri        string
		wantOK     bool
		wantParams map[string]string
	}{
		{name: "literal", method: "GET", uri: "sitemap.xml", wantOK: true},
		{name: "leading slash trimmed", method: "GET", uri: "/sitemap.xml", wantOK: true},
		{name: "param capture", method: "GET", uri: "blog/hello", wantOK: true, wantParams: map[string]string{"slug": "hello"}},
		{name: "param needs segment", method: "GET", uri: "blog", wantOK: false},
		{name: "param single segment only", method: "GET", uri: "blog/a/b", wantOK: false},
		{name: "default method is GET", method: "", uri: "sitemap.xml", wantOK: true},
		{name: "method mismatch", method: "GET", uri: "api/build", wantOK: false},
		{name: "post route", method: "POST", uri: "api/build", wantOK: true},
		{name: "unknown", method: "GET", uri: "nope", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := rs.Match(tt.method, tt.uri)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantParams != nil {
				assert.Equal(t, tt.wantParams, m.Params)
			}
		})
	}
}

func TestRoutesMatchOrder(t *testing.T) {
	rs := NewRoutes()
	rs.Add(Route{Pattern: "docs/{page}", Handler: testHandler("generic")})
	rs.Add(Route{Pattern: "docs/special", Handler: testHandler("special")})

	m, ok := rs.Match("GET", "docs/special")
	require.True(t, ok)

	body, err := m.Route.Handler(NewRequestContext("docs/special", ""), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "generic", body, "earlier registration wins")
}

func TestRoutesRedirectDefaults(t *testing.T) {
	rs := NewRoutes()
	rs.Add(Route{Pattern: "/old/", Redirect: "/new"})

	m, ok := rs.Match("GET", "old")
	require.True(t, ok)
	assert.True(t, m.Route.IsRedirect())
	assert.Equal(t, 301, m.Route.Code)
	assert.Equal(t, "old", m.Route.Pattern)
}

func TestRoutesPatterns(t *testing.T) {
	rs := NewRoutes()
	rs.Add(Route{Pattern: "a", Handler: testHandler("")})
	rs.Add(Route{Method: "POST", Pattern: "b", Handler: testHandler("")})
	rs.Add(Route{Pattern: "c/{id}", Handler: testHandler("")})

	assert.Equal(t, []string{"a", "c/{id}"}, rs.Patterns("GET"))
	assert.Equal(t, []string{"b"}, rs.Patterns("POST"))
	assert.Empty(t, rs.Patterns("DELETE"))
}
