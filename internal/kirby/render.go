package kirby

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
	"github.com/mogelbrod/kirby-staticbuilder/internal/rewrite"
)

// templateExt is the filename suffix of site templates.
const templateExt = ".html.tmpl"

// builtinTemplate renders pages on sites without a template directory.
const builtinTemplate = `<!doctype html>
<html{{with .Ctx.Language}} lang="{{.}}"{{end}}>
<head>
<meta charset="utf-8">
<title>{{.Page.Title}}{{with .Site.Title}} &middot; {{.}}{{end}}</title>
</head>
<body>
<nav><a href="{{url ""}}">{{.Site.Title}}</a></nav>
<main>
<h1>{{.Page.Title}}</h1>
{{markdown (.Page.Field "text")}}
</main>
</body>
</html>
`

// renderData is the root object site templates execute against.
type renderData struct {
	Site *Info
	Page content.Page
	Ctx  content.RequestContext
}

// Render executes the page's template for the context's language. Links
// emitted through the url func carry the placeholder base and are rewritten
// by the builder afterwards.
func (s *Site) Render(ctx content.RequestContext, p content.Page) (string, error) {
	tpl, err := s.templateFor(p.Template(), ctx)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, renderData{Site: s.info, Page: p, Ctx: ctx}); err != nil {
		return "", fmt.Errorf("rendering page %s: %w", p.ID(), err)
	}
	return buf.String(), nil
}

// loadTemplates parses siteDir/templates at startup. The set is parsed with
// stand-in funcs and cloned per render so url can close over the request
// language.
func (s *Site) loadTemplates(siteDir string) (*template.Template, error) {
	pattern := filepath.Join(siteDir, "templates", "*"+templateExt)
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil, nil
	}
	tpl := template.New("site").Funcs(s.renderFuncs(content.RequestContext{}))
	tpl, err = tpl.ParseGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return tpl, nil
}

// templateFor resolves the template for a page: the named site template,
// then default, then the built-in shell.
func (s *Site) templateFor(name string, ctx content.RequestContext) (*template.Template, error) {
	if s.templates != nil {
		set, err := s.templates.Clone()
		if err != nil {
			return nil, err
		}
		set = set.Funcs(s.renderFuncs(ctx))
		if t := set.Lookup(name + templateExt); t != nil {
			return t, nil
		}
		if t := set.Lookup("default" + templateExt); t != nil {
			return t, nil
		}
	}
	return template.New("builtin").Funcs(s.renderFuncs(ctx)).Parse(builtinTemplate)
}

func (s *Site) renderFuncs(ctx content.RequestContext) template.FuncMap {
	return template.FuncMap{
		"url":      func(p string) string { return s.placeholderURL(ctx, p) },
		"markdown": renderMarkdown,
		"title":    s.caser().String,
	}
}

// placeholderURL builds a site URL on the placeholder base, prefixed with
// the active language.
func (s *Site) placeholderURL(ctx content.RequestContext, p string) string {
	p = strings.Trim(p, "/")
	prefix := ""
	if ctx.Language != "" {
		prefix = "/" + ctx.Language
	}
	if p == "" {
		if prefix == "" {
			return rewrite.Placeholder + "/"
		}
		return rewrite.Placeholder + prefix
	}
	return rewrite.Placeholder + prefix + "/" + p
}

func renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// caser returns a fresh title caser for the site's default language. Casers
// carry transform state and must not be shared across renders.
func (s *Site) caser() cases.Caser {
	return cases.Title(s.langTag)
}
