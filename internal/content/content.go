// Package content defines the boundary between the build orchestrator and
// the content engine that stores and renders pages. The builder only ever
// sees these interfaces; internal/kirby provides the filesystem-backed
// implementation.
package content

import "time"

// RequestContext identifies one render or route invocation. It replaces a
// mutable "current page / current language" global: every call that depends
// on the active URI or language receives its own immutable context.
type RequestContext struct {
	URI      string
	Language string
	Method   string
}

// NewRequestContext returns a GET context for the given URI and language.
func NewRequestContext(uri, language string) RequestContext {
	return RequestContext{URI: uri, Language: language, Method: "GET"}
}

// Language describes one language of a multilingual site.
type Language struct {
	Code    string
	Name    string
	Default bool
}

// File is a non-content file attached to a page.
type File struct {
	Name     string
	Path     string
	Size     int64
	Modified time.Time
}

// Page is one node of the content tree.
type Page interface {
	// ID returns the logical URI of the page, for example "blog/post-1".
	// The home page has a non-empty ID but a URL of "/".
	ID() string

	// URL returns the site-relative URL path for the page in the given
	// language, always beginning with "/". Language may be empty on
	// single-language sites.
	URL(language string) string

	// Title returns the page title in the site's default language.
	Title() string

	// Template names the template the page renders with.
	Template() string

	// ContentPath returns the path of the backing content file for the
	// given language, or the empty string when the page has none.
	ContentPath(language string) string

	// Modified returns the content modification time across the page's
	// content files.
	Modified() time.Time

	// Visible reports whether the page carries a sort index and should be
	// listed in navigation and route expansion.
	Visible() bool

	// Children returns the page's direct child pages in sort order.
	Children() []Page

	// Files returns the page's attached files.
	Files() []File

	// Field returns the value of a named content field, or the empty
	// string when the field is absent.
	Field(name string) string
}

// Site is the content engine seen by the builder.
type Site interface {
	// Home returns the root page the site serves at "/".
	Home() Page

	// Pages returns every page of the site in depth-first order,
	// starting with the home page.
	Pages() []Page

	// Find resolves a logical URI to a page, or nil when absent.
	Find(uri string) Page

	// Languages lists the site's languages, default first. Empty for
	// single-language sites.
	Languages() []Language

	// Render produces the page's output text for the context's language.
	Render(ctx RequestContext, page Page) (string, error)

	// Routes returns the site's registered route table.
	Routes() *Routes
}

// VisibleChildren filters a page's children down to the visible ones.
func VisibleChildren(p Page) []Page {
	var out []Page
	for _, c := range p.Children() {
		if c.Visible() {
			out = append(out, c)
		}
	}
	return out
}
