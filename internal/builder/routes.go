package builder

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
)

func (b *Builder) buildRoutes() error {
	for _, pattern := range b.cfg.Routes {
		if err := b.buildRoutePattern(pattern); err != nil {
			return err
		}
	}
	return nil
}

// buildRoutePattern recurses from patterns to concrete routes: the wildcard
// expands to every registered GET pattern, a single bracketed parameter
// expands against a page's visible children, and everything concrete is
// built. Patterns with multiple parameters or alternation are skipped, never
// partially matched.
func (b *Builder) buildRoutePattern(pattern string) error {
	pattern = strings.Trim(pattern, "/")
	if pattern == Wildcard {
		for _, p := range b.site.Routes().Patterns("GET") {
			if err := b.buildRoutePattern(p); err != nil {
				return err
			}
		}
		return nil
	}
	// Excluded routes never appear as items.
	if b.cfg.excludedURI(pattern) {
		return nil
	}
	if hasAlternation(pattern) {
		b.log(Item{
			Type:   TypeRoute,
			URI:    pattern,
			Source: pattern,
			Status: StatusIgnore,
			Reason: "route patterns with alternation are not supported",
		})
		return nil
	}
	switch n := paramCount(pattern); {
	case n > 1:
		b.log(Item{
			Type:   TypeRoute,
			URI:    pattern,
			Source: pattern,
			Status: StatusIgnore,
			Reason: "route patterns with multiple parameters are not supported",
		})
		return nil
	case n == 1:
		return b.expandRoutePattern(pattern)
	}
	return b.buildConcreteRoute(pattern)
}

// expandRoutePattern resolves the pattern's prefix to a content node and
// substitutes one concrete route per visible child.
func (b *Builder) expandRoutePattern(pattern string) error {
	rp, ok := parseRoutePattern(pattern)
	if !ok {
		b.log(Item{
			Type:   TypeRoute,
			URI:    pattern,
			Source: pattern,
			Status: StatusInvalid,
			Reason: "malformed route pattern",
		})
		return nil
	}
	parent := b.site.Find(strings.Trim(rp.prefix, "/"))
	if parent == nil {
		b.log(Item{
			Type:   TypeRoute,
			URI:    pattern,
			Source: pattern,
			Status: StatusInvalid,
			Reason: fmt.Sprintf("no page matches prefix %q", rp.prefix),
		})
		return nil
	}
	for _, child := range content.VisibleChildren(parent) {
		value := paramValue(child, rp.param)
		if value == "" {
			continue
		}
		if err := b.buildRoutePattern(rp.substitute(pattern, value)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildConcreteRoute(uri string) error {
	item := Item{Type: TypeRoute, URI: uri, Source: uri}

	// Colons are routing syntax on some hosts and unsafe in filenames.
	dest, ok := b.destForURL("/" + strings.ReplaceAll(uri, ":", "-"))
	item.Dest = b.relDest(dest)
	if !ok {
		item.Status, item.Reason = StatusIgnore, ReasonOutsideRoot
		b.log(item)
		return nil
	}

	m, found := b.site.Routes().Match("GET", uri)
	if !found {
		item.Status = StatusInvalid
		item.Reason = "no registered route matches"
		b.log(item)
		return nil
	}

	if m.Route.IsRedirect() {
		item.Type = TypeRedirect
		item.Redirect = m.Route.Redirect
		item.Code = m.Route.Code
		item.Dest = ""
		if b.cfg.RedirectMaps {
			item.Status = StatusIncluded
		} else {
			item.Status, item.Reason = StatusIgnore, "redirect maps are disabled"
		}
		b.log(item)
		return nil
	}

	if b.summary.Mode == ModeReport {
		item.Status, item.Size = classify(dest, b.summary.MaxModified())
		b.log(item)
		return nil
	}

	body, err := b.execRoute(m, uri)
	if err != nil {
		return err
	}
	body = b.rewriter.Rewrite(body, "/"+uri)

	if werr := writeFile(dest, []byte(body)); werr != nil {
		item.Status, item.Reason = StatusFailed, werr.Error()
		b.log(item)
		return nil
	}
	item.Status = StatusGenerated
	item.Size = sizeOf(int64(len(body)))
	b.log(item)
	return nil
}

// execRoute runs the matched handler supervised. The handler may write to
// the buffer or return the body; an explicit return value wins.
func (b *Builder) execRoute(m content.Match, uri string) (body string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{URI: uri, Err: fmt.Errorf("route handler panicked: %v", r)}
		}
	}()
	var buf bytes.Buffer
	rctx := content.RequestContext{URI: uri, Language: b.cfg.Languages[0], Method: "GET"}
	ret, rerr := m.Route.Handler(rctx, &buf)
	if rerr != nil {
		return "", &RenderError{URI: uri, Err: rerr}
	}
	if ret != "" {
		return ret, nil
	}
	return buf.String(), nil
}
