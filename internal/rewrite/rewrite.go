// Package rewrite converts the internal URL placeholder embedded in rendered
// text into its final form: absolute, root-relative, or page-relative, with
// optional explicit file extensions for ugly-URL output. The rewriter never
// parses markup; it is a restricted substitution over the placeholder token.
package rewrite

import (
	"path"
	"regexp"
	"strings"

	"github.com/mogelbrod/kirby-staticbuilder/internal/urlpath"
)

// Placeholder is the sentinel URL prefix the renderer uses as the site base
// URL, so that rendered links can be located and rewritten afterwards. The
// .invalid TLD is reserved and can never collide with a real site.
const Placeholder = "http://staticbuilder.invalid"

// placeholderURL matches the placeholder plus the path portion that follows
// it, stopping at whitespace, quotes, angle brackets and query or fragment
// separators so that malformed or already-escaped content is left alone.
var placeholderURL = regexp.MustCompile(regexp.QuoteMeta(Placeholder) + `([^\s"'<>#?]*)`)

// Rewriter rewrites placeholder URLs for one build configuration. It is
// stateless per call and safe for concurrent use.
type Rewriter struct {
	baseURL   string
	extension string
	indexFile string
	relative  bool
	ugly      bool
}

// New returns a rewriter. extension is the effective output extension
// (".html" in ugly-URL mode, a "/index.html" style suffix otherwise);
// relative selects page-relative links and ugly selects explicit file
// extensions.
func New(baseURL, extension string, relative, ugly bool) *Rewriter {
	// Placeholder paths start with "/", so a trailing slash on the base URL
	// would double up.
	if baseURL != "./" {
		baseURL = strings.TrimSuffix(baseURL, "/")
	}
	indexFile := extension
	if !strings.HasPrefix(indexFile, "/") {
		indexFile = "/index" + extension
	}
	return &Rewriter{
		baseURL:   baseURL,
		extension: extension,
		indexFile: indexFile,
		relative:  relative,
		ugly:      ugly,
	}
}

// Rewrite transforms every placeholder URL in text. pageURL is the
// site-relative URL of the page the text belongs to; it anchors relative
// link computation. Text without placeholder occurrences passes through
// unchanged, so rewriting is idempotent.
func (rw *Rewriter) Rewrite(text, pageURL string) string {
	if rw.relative || rw.ugly {
		from := rw.appendExtension(pageURL)
		text = placeholderURL.ReplaceAllStringFunc(text, func(match string) string {
			p := match[len(Placeholder):]
			if rw.ugly {
				p = rw.appendExtension(p)
			}
			if rw.relative {
				return urlpath.Relative(from, p)
			}
			return Placeholder + p
		})
	}
	return strings.ReplaceAll(text, Placeholder, rw.baseURL)
}

// appendExtension gives a URL path an explicit filename: the root becomes
// the index file and extensionless paths not ending in a separator get the
// configured extension. Paths already carrying an extension are returned
// unchanged.
func (rw *Rewriter) appendExtension(p string) string {
	if p == "" || p == "/" {
		return rw.indexFile
	}
	if path.Ext(p) == "" && !strings.HasSuffix(p, "/") {
		return p + rw.extension
	}
	return p
}
