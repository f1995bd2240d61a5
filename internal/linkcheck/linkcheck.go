// Package linkcheck verifies an exported site tree offline: it parses the
// written HTML files and resolves every internal reference against the
// files that actually exist below the output root.
package linkcheck

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/mogelbrod/kirby-staticbuilder/internal/logfields"
)

// Link is one reference extracted from an HTML document.
type Link struct {
	URL       string
	Tag       string
	Attribute string
}

// Broken is one internal link whose target does not exist in the tree.
type Broken struct {
	File   string `json:"file"`
	URL    string `json:"url"`
	Tag    string `json:"tag"`
	Reason string `json:"reason"`
}

// Checker walks one output tree.
type Checker struct {
	root   string
	logger *slog.Logger
}

func New(root string, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{root: root, logger: logger}
}

// Run parses every .html file below the root and returns the broken
// internal links, in walk order.
func (c *Checker) Run() ([]Broken, error) {
	var broken []Broken
	files := 0
	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		files++
		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return err
		}
		b, err := c.checkFile(p, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		broken = append(broken, b...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking output tree: %w", err)
	}
	c.logger.Info("verification finished",
		logfields.Path(c.root),
		logfields.Count(files),
		slog.Int("broken", len(broken)))
	return broken, nil
}

func (c *Checker) checkFile(abs, rel string) ([]Broken, error) {
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	links, err := ExtractLinks(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rel, err)
	}

	var broken []Broken
	for _, l := range links {
		if reason, ok := c.resolve(rel, l.URL); !ok {
			broken = append(broken, Broken{File: rel, URL: l.URL, Tag: l.Tag, Reason: reason})
		}
	}
	return broken, nil
}

// resolve reports whether an internal link target exists. External links,
// anchors and non-path schemes are treated as resolvable.
func (c *Checker) resolve(fromRel, raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "unparsable URL", false
	}
	if u.Scheme != "" || u.Host != "" {
		return "", true
	}
	target := u.Path
	if target == "" {
		// fragment or query-only reference into the same document
		return "", true
	}

	// Joining against "/" pins the resolution below the root: rooted
	// Clean swallows any leading "..".
	if !strings.HasPrefix(target, "/") {
		target = path.Join("/", path.Dir(fromRel), target)
	}
	target = strings.TrimPrefix(path.Clean(target), "/")

	for _, candidate := range targetCandidates(target) {
		if _, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(candidate))); err == nil {
			return "", true
		}
	}
	return "target not found", false
}

// targetCandidates lists the files a URL path may resolve to: the path
// itself, or its directory index.
func targetCandidates(target string) []string {
	if target == "" {
		return []string{"index.html"}
	}
	return []string{target, path.Join(target, "index.html")}
}

// ExtractLinks parses an HTML document and collects its link-carrying
// attributes.
func ExtractLinks(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var links []Link
	add := func(n *html.Node, attr string) {
		if v := getAttr(n, attr); v != "" {
			links = append(links, Link{URL: v, Tag: n.Data, Attribute: attr})
		}
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a", "link":
				add(n, "href")
			case "img", "script", "iframe", "source":
				add(n, "src")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links, nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
