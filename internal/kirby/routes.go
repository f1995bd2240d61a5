package kirby

import (
	"fmt"
	"io"
	"strings"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
	"github.com/mogelbrod/kirby-staticbuilder/internal/rewrite"
)

func (s *Site) registerRoutes() {
	s.routes = content.NewRoutes()
	for _, r := range s.cfg.Redirects {
		s.routes.Add(content.Route{Pattern: r.From, Redirect: r.To, Code: r.Code})
	}
	s.routes.Add(content.Route{Pattern: "sitemap.xml", Handler: s.sitemap})
}

// sitemap lists the home page and every visible page. URLs carry the
// placeholder base so the builder rewrites them like page output.
func (s *Site) sitemap(ctx content.RequestContext, w io.Writer) (string, error) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	var walk func(p *Page)
	walk = func(p *Page) {
		if p.home || p.visible {
			fmt.Fprintf(&b, "  <url><loc>%s%s</loc></url>\n",
				rewrite.Placeholder, p.URL(ctx.Language))
		}
		for _, c := range p.children {
			walk(c)
		}
	}
	walk(s.home)
	for _, p := range s.top {
		if p != s.home {
			walk(p)
		}
	}
	b.WriteString("</urlset>\n")
	return b.String(), nil
}
