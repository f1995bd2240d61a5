package kirby

import (
	"strings"
	"time"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
)

// Page is one directory of the content tree.
type Page struct {
	site     *Site
	id       string
	slug     string
	dir      string
	num      int
	visible  bool
	home     bool
	template string
	content  map[string]*contentFile
	children []*Page
	files    []content.File
}

// contentFile is one parsed <template>.txt, keyed by language on the page.
type contentFile struct {
	path     string
	modified time.Time
	fields   map[string]string
}

// ID returns the clean page id, sort prefixes stripped, e.g. "blog/post-1".
func (p *Page) ID() string { return p.id }

// URL returns the site-relative URL path for the given language. The home
// page maps to "/".
func (p *Page) URL(lang string) string {
	base := "/" + p.id
	if p.home {
		base = "/"
	}
	if lang == "" {
		return base
	}
	if base == "/" {
		return "/" + lang
	}
	return "/" + lang + base
}

// Title returns the title field in the default language, falling back to a
// title-cased slug.
func (p *Page) Title() string {
	if cf := p.contentFor(""); cf != nil {
		if t := cf.fields["title"]; t != "" {
			return t
		}
	}
	return p.site.caser().String(strings.ReplaceAll(p.slug, "-", " "))
}

// Template names the template the page renders with.
func (p *Page) Template() string { return p.template }

// ContentPath returns the backing content file for the given language. An
// untranslated page falls back to the default language file; pages without
// any content file return the empty string.
func (p *Page) ContentPath(lang string) string {
	if cf := p.contentFor(lang); cf != nil {
		return cf.path
	}
	return ""
}

// Modified returns the newest modification time across the page's content
// files.
func (p *Page) Modified() time.Time {
	var max time.Time
	for _, cf := range p.content {
		if cf.modified.After(max) {
			max = cf.modified
		}
	}
	return max
}

// Visible reports whether the page directory carries a sort prefix.
func (p *Page) Visible() bool { return p.visible }

// Children returns the direct child pages, visible ones first in sort
// order.
func (p *Page) Children() []content.Page {
	out := make([]content.Page, len(p.children))
	for i, c := range p.children {
		out[i] = c
	}
	return out
}

// Files returns the page's attached files.
func (p *Page) Files() []content.File { return p.files }

// Field returns a named content field in the default language, or the
// empty string when absent.
func (p *Page) Field(name string) string {
	cf := p.contentFor("")
	if cf == nil {
		return ""
	}
	return cf.fields[strings.ToLower(name)]
}

func (p *Page) contentFor(lang string) *contentFile {
	if cf := p.content[lang]; cf != nil {
		return cf
	}
	if cf := p.content[p.site.defaultLanguage()]; cf != nil {
		return cf
	}
	return p.content[""]
}
