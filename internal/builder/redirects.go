package builder

import (
	"fmt"
	"path/filepath"
	"strings"
)

// The two redirect map artifacts, named for the web server syntax they use.
const (
	NginxMapFile  = "redirects.nginx.map"
	ApacheMapFile = "redirects.apache.conf"
)

// buildRedirectMaps synthesizes the redirect map files from the redirect
// items accumulated so far. It runs after routes so every redirect has been
// seen, and before assets so asset mtimes cannot mask map staleness.
func (b *Builder) buildRedirectMaps() {
	if !b.cfg.RedirectMaps {
		return
	}

	var redirects []Item
	for _, it := range b.summary.Items {
		if it.Type == TypeRedirect && it.Status == StatusIncluded {
			redirects = append(redirects, it)
		}
	}

	b.buildRedirectMap(NginxMapFile, nginxMap(redirects))
	b.buildRedirectMap(ApacheMapFile, apacheMap(redirects))
}

func (b *Builder) buildRedirectMap(name, body string) {
	dest := filepath.Join(b.cfg.OutputRoot, name)
	item := Item{
		Type:   TypeRedirectsMap,
		URI:    name,
		Source: "redirects",
		Dest:   b.relDest(dest),
	}
	if !containedIn(b.cfg.OutputRoot, dest) {
		item.Status, item.Reason = StatusIgnore, ReasonOutsideRoot
		b.log(item)
		return
	}

	if b.summary.Mode == ModeReport {
		item.Status, item.Size = classify(dest, b.summary.MaxModified())
		b.log(item)
		return
	}

	if err := writeFile(dest, []byte(body)); err != nil {
		item.Status, item.Reason = StatusFailed, err.Error()
		b.log(item)
		return
	}
	item.Status = StatusGenerated
	item.Size = sizeOf(int64(len(body)))
	b.log(item)
}

// nginxMap renders map-block entries, one "source target;" pair per line.
func nginxMap(redirects []Item) string {
	var sb strings.Builder
	for _, r := range redirects {
		fmt.Fprintf(&sb, "%s %s;\n", redirectFrom(r.URI), redirectTarget(r.Redirect))
	}
	return sb.String()
}

// apacheMap renders one Redirect directive per line.
func apacheMap(redirects []Item) string {
	var sb strings.Builder
	for _, r := range redirects {
		code := r.Code
		if code == 0 {
			code = 301
		}
		fmt.Fprintf(&sb, "Redirect %d %s %s\n", code, redirectFrom(r.URI), redirectTarget(r.Redirect))
	}
	return sb.String()
}

func redirectFrom(uri string) string {
	return "/" + strings.Trim(uri, "/")
}

func redirectTarget(t string) string {
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") || strings.HasPrefix(t, "/") {
		return t
	}
	return "/" + t
}
