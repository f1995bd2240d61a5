package builder

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
)

// Asset maps a source file or directory (relative to the project root) to a
// destination below the output root.
type Asset struct {
	Source string
	Dest   string
}

// FilterFunc decides whether a page is built. It returns false plus a
// human-readable reason to skip the page with status "ignore".
type FilterFunc func(p content.Page) (bool, string)

// Config is the resolved build configuration. It is constructed once per
// Builder and read-only afterwards.
type Config struct {
	// OutputRoot is the export directory. Relative paths are resolved
	// against the current working directory during New.
	OutputRoot string

	// ProjectRoot anchors relative asset sources.
	ProjectRoot string

	// BaseURL is the final site base URL, "/" for root-relative links or
	// one of the sentinels "" and "./" for page-relative links.
	BaseURL string

	// Suffix is the output filename suffix, "/index.html" style for
	// directory output or an extension like ".html".
	Suffix string

	UglyURLs     bool
	WithFiles    bool
	RedirectMaps bool

	// Routes lists the route patterns to build. The "*" wildcard expands
	// to every registered GET pattern.
	Routes []string

	// Exclude drops pages and routes from the build. Entries ending in
	// "/" match as prefixes, every other entry matches exactly.
	Exclude []string

	Assets []Asset

	// Languages are the language codes to build each page in. A single
	// empty code builds non-multilingual sites.
	Languages []string

	// Filter overrides the default page inclusion predicate.
	Filter FilterFunc
}

func (c *Config) normalize() error {
	if c.OutputRoot == "" {
		return fmt.Errorf("output root is required")
	}
	abs, err := filepath.Abs(c.OutputRoot)
	if err != nil {
		return fmt.Errorf("resolving output root: %w", err)
	}
	c.OutputRoot = filepath.Clean(abs)

	if c.ProjectRoot == "" {
		c.ProjectRoot = "."
	}
	// An empty BaseURL is the relative-URL sentinel, not an unset value.
	if c.Suffix == "" {
		c.Suffix = "/index.html"
	}
	if len(c.Routes) == 0 {
		c.Routes = []string{Wildcard}
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{""}
	}
	return nil
}

func (c *Config) relativeURLs() bool {
	return c.BaseURL == "" || c.BaseURL == "./"
}

// extension returns the effective output extension for page and route
// destinations.
func (c *Config) extension() string {
	if c.UglyURLs && strings.HasPrefix(c.Suffix, "/") {
		return ".html"
	}
	return c.Suffix
}

// indexFile returns the filename the site root resolves to, relative to the
// output root.
func (c *Config) indexFile() string {
	if strings.HasPrefix(c.Suffix, "/") {
		return strings.TrimPrefix(c.Suffix, "/")
	}
	return "index" + c.extension()
}

// excludedURI reports whether uri matches an exclusion entry.
func (c *Config) excludedURI(uri string) bool {
	uri = strings.Trim(uri, "/")
	for _, e := range c.Exclude {
		if strings.HasSuffix(e, "/") {
			if strings.HasPrefix(uri, e) || uri == strings.TrimSuffix(e, "/") {
				return true
			}
			continue
		}
		if uri == e {
			return true
		}
	}
	return false
}
