// Package kirby loads a Kirby-style content tree from disk and renders it
// through Go HTML templates. Every directory below content/ is a page, a
// numeric prefix on the directory name marks the page visible and orders it
// among its siblings, and <template>.txt files carry the page fields. The
// package implements content.Site for the build orchestrator.
package kirby

import (
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
	"github.com/mogelbrod/kirby-staticbuilder/internal/logfields"
)

// Redirect maps an incoming URI to a target, registered as a redirect route.
type Redirect struct {
	From string
	To   string
	Code int
}

// Config controls how a site is opened.
type Config struct {
	// SiteDir holds the templates/ directory. Empty disables file
	// templates; rendering then uses the built-in page shell.
	SiteDir string

	// Home is the id of the page served at "/".
	Home string

	// Languages lists the site languages, default first. Empty opens a
	// single-language site.
	Languages []content.Language

	// Redirects are registered as redirect routes.
	Redirects []Redirect

	// ModTime overrides file modification lookups, for example with git
	// commit times. Returning false falls back to the filesystem mtime.
	ModTime func(path string) (time.Time, bool)

	Logger *slog.Logger
}

// Site is a loaded content tree. It is read-only after Open.
type Site struct {
	root      string
	cfg       Config
	logger    *slog.Logger
	info      *Info
	home      *Page
	top       []*Page
	index     map[string]*Page
	routes    *content.Routes
	templates *template.Template
	langTag   language.Tag
}

// Open reads the content tree below root/content and prepares the template
// set. A missing content directory or home page is a bootstrap error.
func Open(root string, cfg Config) (*Site, error) {
	if cfg.Home == "" {
		cfg.Home = "home"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	contentDir := filepath.Join(root, "content")
	if _, err := os.Stat(contentDir); err != nil {
		return nil, fmt.Errorf("content directory: %w", err)
	}

	s := &Site{
		root:    root,
		cfg:     cfg,
		logger:  logger,
		index:   make(map[string]*Page),
		langTag: language.Make(defaultLanguage(cfg.Languages)),
	}
	s.info = loadInfo(filepath.Join(contentDir, "site.txt"))

	top, err := s.scanChildren(contentDir, "")
	if err != nil {
		return nil, err
	}
	s.top = top

	home, ok := s.index[cfg.Home]
	if !ok {
		return nil, fmt.Errorf("home page %q not found under %s", cfg.Home, contentDir)
	}
	home.home = true
	s.home = home

	if cfg.SiteDir != "" {
		tpl, err := s.loadTemplates(cfg.SiteDir)
		if err != nil {
			return nil, err
		}
		s.templates = tpl
	}
	s.registerRoutes()

	logger.Debug("content tree loaded",
		logfields.Path(contentDir),
		logfields.Count(len(s.index)))
	return s, nil
}

func defaultLanguage(langs []content.Language) string {
	for _, l := range langs {
		if l.Default {
			return l.Code
		}
	}
	if len(langs) > 0 {
		return langs[0].Code
	}
	return ""
}

// Home returns the page served at "/".
func (s *Site) Home() content.Page { return s.home }

// Pages returns every page depth-first, home subtree first.
func (s *Site) Pages() []content.Page {
	var out []content.Page
	var walk func(p *Page)
	walk = func(p *Page) {
		out = append(out, p)
		for _, c := range p.children {
			walk(c)
		}
	}
	walk(s.home)
	for _, p := range s.top {
		if p == s.home {
			continue
		}
		walk(p)
	}
	return out
}

// Find resolves a clean page id like "blog/post-1", or nil when absent.
func (s *Site) Find(uri string) content.Page {
	p, ok := s.index[strings.Trim(uri, "/")]
	if !ok {
		return nil
	}
	return p
}

// Languages lists the configured site languages, default first.
func (s *Site) Languages() []content.Language { return s.cfg.Languages }

// Routes returns the registered route table.
func (s *Site) Routes() *content.Routes { return s.routes }

func (s *Site) defaultLanguage() string { return defaultLanguage(s.cfg.Languages) }

func (s *Site) modTime(path string, fallback time.Time) time.Time {
	if s.cfg.ModTime != nil {
		if t, ok := s.cfg.ModTime(path); ok {
			return t
		}
	}
	return fallback
}

// Info carries the site-wide fields read from content/site.txt.
type Info struct {
	fields map[string]string
}

func loadInfo(path string) *Info {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Info{fields: map[string]string{}}
	}
	return &Info{fields: ParseFields(data)}
}

// Title returns the site title field.
func (i *Info) Title() string { return i.fields["title"] }

// Field returns a named site field, or the empty string when absent.
func (i *Info) Field(name string) string { return i.fields[strings.ToLower(name)] }
