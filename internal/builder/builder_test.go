package builder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
	"github.com/mogelbrod/kirby-staticbuilder/internal/rewrite"
)

type testPage struct {
	id          string
	title       string
	template    string
	contentPath string
	modified    time.Time
	visible     bool
	children    []*testPage
	files       []content.File
	fields      map[string]string
}

func (p *testPage) ID() string       { return p.id }
func (p *testPage) Title() string    { return p.title }
func (p *testPage) Template() string { return p.template }
func (p *testPage) Visible() bool    { return p.visible }

func (p *testPage) URL(lang string) string {
	base := ""
	if p.id != "home" {
		base = "/" + p.id
	}
	if lang != "" {
		return "/" + lang + base
	}
	if base == "" {
		return "/"
	}
	return base
}

func (p *testPage) ContentPath(string) string { return p.contentPath }
func (p *testPage) Modified() time.Time       { return p.modified }
func (p *testPage) Files() []content.File     { return p.files }

func (p *testPage) Children() []content.Page {
	out := make([]content.Page, len(p.children))
	for i, c := range p.children {
		out[i] = c
	}
	return out
}

func (p *testPage) Field(name string) string { return p.fields[name] }

type testSite struct {
	home     *testPage
	routes   *content.Routes
	langs    []content.Language
	renderFn func(content.RequestContext, content.Page) (string, error)
}

func (s *testSite) Home() content.Page { return s.home }

func (s *testSite) Pages() []content.Page {
	var out []content.Page
	var walk func(p *testPage)
	walk = func(p *testPage) {
		out = append(out, p)
		for _, c := range p.children {
			walk(c)
		}
	}
	walk(s.home)
	return out
}

func (s *testSite) Find(uri string) content.Page {
	if uri == "" || uri == s.home.id {
		return s.home
	}
	var found *testPage
	var walk func(p *testPage)
	walk = func(p *testPage) {
		if p.id == uri {
			found = p
			return
		}
		for _, c := range p.children {
			walk(c)
		}
	}
	walk(s.home)
	if found == nil {
		return nil
	}
	return found
}

func (s *testSite) Languages() []content.Language { return s.langs }

func (s *testSite) Render(ctx content.RequestContext, p content.Page) (string, error) {
	if s.renderFn != nil {
		return s.renderFn(ctx, p)
	}
	return fmt.Sprintf(
		`<html><head><title>%s</title></head><body><a href="%s/">home</a></body></html>`,
		p.Title(), rewrite.Placeholder), nil
}

func (s *testSite) Routes() *content.Routes {
	if s.routes == nil {
		s.routes = content.NewRoutes()
	}
	return s.routes
}

// newTestSite builds a two-page site (home plus about) with one attached
// file per page, backed by real files under a temp project root.
func newTestSite(t *testing.T) (*testSite, string) {
	t.Helper()
	project := t.TempDir()
	past := time.Now().Add(-time.Hour)

	mkContent := func(page, contentName, fileName string) (string, content.File) {
		dir := filepath.Join(project, "content", page)
		require.NoError(t, os.MkdirAll(dir, 0755))
		cp := filepath.Join(dir, contentName)
		require.NoError(t, os.WriteFile(cp, []byte("Title: "+page+"\n"), 0644))
		fp := filepath.Join(dir, fileName)
		require.NoError(t, os.WriteFile(fp, []byte("attachment for "+page), 0644))
		info, err := os.Stat(fp)
		require.NoError(t, err)
		return cp, content.File{Name: fileName, Path: fp, Size: info.Size(), Modified: past}
	}

	homeContent, homeFile := mkContent("home", "default.txt", "brochure.pdf")
	aboutContent, aboutFile := mkContent("about", "default.txt", "team.jpg")

	about := &testPage{
		id:          "about",
		title:       "About",
		template:    "default",
		contentPath: aboutContent,
		modified:    past,
		visible:     true,
		files:       []content.File{aboutFile},
	}
	home := &testPage{
		id:          "home",
		title:       "Home",
		template:    "default",
		contentPath: homeContent,
		modified:    past,
		visible:     true,
		children:    []*testPage{about},
		files:       []content.File{homeFile},
	}
	return &testSite{home: home}, project
}

func newTestBuilder(t *testing.T, site *testSite, project string, mutate func(*Config)) *Builder {
	t.Helper()
	cfg := Config{
		OutputRoot:  filepath.Join(t.TempDir(), "static"),
		ProjectRoot: project,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	b, err := New(site, cfg)
	require.NoError(t, err)
	return b
}

func itemsWith(s *Summary, typ Type, status Status) []Item {
	var out []Item
	for _, it := range s.Items {
		if it.Type == typ && it.Status == status {
			out = append(out, it)
		}
	}
	return out
}

func TestWriteRunTwoPagesTwoLanguages(t *testing.T) {
	site, project := newTestSite(t)
	b := newTestBuilder(t, site, project, func(c *Config) {
		c.Languages = []string{"en", "de"}
		c.WithFiles = true
	})

	sum, err := b.Run(RunOptions{Mode: ModeWrite})
	require.NoError(t, err)

	pages := itemsWith(sum, TypePage, StatusGenerated)
	files := itemsWith(sum, TypeFile, StatusGenerated)
	assert.Len(t, pages, 4, "2 pages x 2 languages")
	assert.Len(t, files, 2, "attached files are copied once per page")

	root := b.cfg.OutputRoot
	for _, rel := range []string{
		"en/index.html",
		"de/index.html",
		"en/about/index.html",
		"de/about/index.html",
		"en/brochure.pdf",
		"en/about/team.jpg",
	} {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}

	data, err := os.ReadFile(filepath.Join(root, "en", "index.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), rewrite.Placeholder)
	assert.Contains(t, string(data), `href="/"`)

	for _, it := range pages {
		require.NotNil(t, it.Size)
		assert.Positive(t, *it.Size)
	}
	assert.Equal(t, []string{"brochure.pdf"}, pages[0].Files)
}

func TestReportRunWritesNothing(t *testing.T) {
	site, project := newTestSite(t)
	b := newTestBuilder(t, site, project, func(c *Config) {
		c.WithFiles = true
	})

	sum, err := b.Run(RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, ModeReport, sum.Mode)

	for _, it := range sum.Items {
		assert.Equal(t, StatusMissing, it.Status, "%s %s", it.Type, it.URI)
		assert.Nil(t, it.Size)
	}

	entries, err := os.ReadDir(b.cfg.OutputRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "report mode must not write")
}

func TestReportAfterWriteIsUpToDate(t *testing.T) {
	site, project := newTestSite(t)
	b := newTestBuilder(t, site, project, nil)

	_, err := b.Run(RunOptions{Mode: ModeWrite})
	require.NoError(t, err)

	sum, err := b.Run(RunOptions{})
	require.NoError(t, err)
	for _, it := range itemsWith(sum, TypePage, StatusUpToDate) {
		require.NotNil(t, it.Size)
	}
	assert.Len(t, itemsWith(sum, TypePage, StatusUpToDate), 2)

	// Newer content flips the classification.
	site.home.modified = time.Now().Add(time.Hour)
	sum, err = b.Run(RunOptions{})
	require.NoError(t, err)
	assert.Len(t, itemsWith(sum, TypePage, StatusOutdated), 1)
	assert.Len(t, itemsWith(sum, TypePage, StatusUpToDate), 1)
}

func TestExcludedPagesNeverAppear(t *testing.T) {
	site, project := newTestSite(t)
	b := newTestBuilder(t, site, project, func(c *Config) {
		c.Exclude = []string{"about"}
	})

	sum, err := b.Run(RunOptions{Mode: ModeWrite})
	require.NoError(t, err)

	for _, it := range sum.Items {
		assert.NotEqual(t, "about", it.URI)
	}
}

func TestPageWithoutContentFileIsIgnored(t *testing.T) {
	site, project := newTestSite(t)
	site.home.children = append(site.home.children, &testPage{
		id:       "draft",
		title:    "Draft",
		template: "default",
		visible:  true,
	})
	b := newTestBuilder(t, site, project, nil)

	sum, err := b.Run(RunOptions{Mode: ModeWrite})
	require.NoError(t, err)

	ignored := itemsWith(sum, TypePage, StatusIgnore)
	require.Len(t, ignored, 1)
	assert.Equal(t, "draft", ignored[0].URI)
	assert.Equal(t, "page has no content file", ignored[0].Reason)
}

func TestModuleTemplateIsIgnored(t *testing.T) {
	site, project := newTestSite(t)
	site.about().template = "module.gallery"
	b := newTestBuilder(t, site, project, nil)

	sum, err := b.Run(RunOptions{Mode: ModeWrite})
	require.NoError(t, err)

	ignored := itemsWith(sum, TypePage, StatusIgnore)
	require.Len(t, ignored, 1)
	assert.Contains(t, ignored[0].Reason, "reserved for modules")
}

func TestCustomFilterOverridesDefault(t *testing.T) {
	site, project := newTestSite(t)
	b := newTestBuilder(t, site, project, func(c *Config) {
		c.Filter = func(p content.Page) (bool, string) {
			if p.ID() == "home" {
				return true, ""
			}
			return false, "editorial hold"
		}
	})

	sum, err := b.Run(RunOptions{Mode: ModeWrite})
	require.NoError(t, err)

	ignored := itemsWith(sum, TypePage, StatusIgnore)
	require.Len(t, ignored, 1)
	assert.Equal(t, "editorial hold", ignored[0].Reason)
	assert.Len(t, itemsWith(sum, TypePage, StatusGenerated), 1)
}

func TestContainmentViolationDowngradesToIgnore(t *testing.T) {
	site, project := newTestSite(t)
	site.home.children = append(site.home.children, &testPage{
		id:          "../evil",
		title:       "Evil",
		template:    "default",
		contentPath: site.home.contentPath,
		modified:    time.Now(),
		visible:     true,
	})
	b := newTestBuilder(t, site, project, nil)

	sum, err := b.Run(RunOptions{Mode: ModeWrite})
	require.NoError(t, err)

	ignored := itemsWith(sum, TypePage, StatusIgnore)
	require.Len(t, ignored, 1)
	assert.Equal(t, ReasonOutsideRoot, ignored[0].Reason)

	_, err = os.Stat(filepath.Join(filepath.Dir(b.cfg.OutputRoot), "evil"))
	assert.True(t, os.IsNotExist(err), "nothing may be written outside the output root")
}

func TestUnknownPageArgumentIsMissing(t *testing.T) {
	site, project := newTestSite(t)
	b := newTestBuilder(t, site, project, nil)

	sum, err := b.Run(RunOptions{Mode: ModeWrite, Pages: []string{"nope"}})
	require.NoError(t, err)

	require.Len(t, sum.Items, 1)
	assert.Equal(t, StatusMissing, sum.Items[0].Status)
	assert.Equal(t, "nope", sum.Items[0].URI)
	assert.True(t, sum.HasStatus(StatusMissing))
}

func TestRestrictedRunSkipsRoutesAndFlush(t *testing.T) {
	site, project := newTestSite(t)
	site.Routes().Add(content.Route{Pattern: "sitemap.xml", Handler: func(content.RequestContext, io.Writer) (string, error) {
		return "<urlset/>", nil
	}})
	b := newTestBuilder(t, site, project, nil)

	stray := filepath.Join(b.cfg.OutputRoot, "stray.txt")
	require.NoError(t, os.WriteFile(stray, []byte("keep"), 0644))

	sum, err := b.Run(RunOptions{Mode: ModeWrite, Pages: []string{"about"}})
	require.NoError(t, err)

	assert.Empty(t, itemsWith(sum, TypeRoute, StatusGenerated))
	_, err = os.Stat(stray)
	assert.NoError(t, err, "restricted runs must not flush the output directory")
}

func TestFullWriteRunFlushesOutput(t *testing.T) {
	site, project := newTestSite(t)
	b := newTestBuilder(t, site, project, nil)

	stray := filepath.Join(b.cfg.OutputRoot, "stray.txt")
	require.NoError(t, os.WriteFile(stray, []byte("old"), 0644))

	_, err := b.Run(RunOptions{Mode: ModeWrite})
	require.NoError(t, err)

	_, err = os.Stat(stray)
	assert.True(t, os.IsNotExist(err), "full write runs empty the output directory first")
}

func TestRenderErrorAbortsRun(t *testing.T) {
	site, project := newTestSite(t)
	site.renderFn = func(_ content.RequestContext, p content.Page) (string, error) {
		if p.ID() == "about" {
			return "", fmt.Errorf("template exploded")
		}
		return "<html/>", nil
	}
	b := newTestBuilder(t, site, project, nil)

	sum, err := b.Run(RunOptions{Mode: ModeWrite})
	require.Error(t, err)

	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "about", rerr.URI)

	for _, it := range sum.Items {
		assert.NotEqual(t, "about", it.URI, "no item is appended for the failed page")
	}
}

func TestRenderPanicBecomesRenderError(t *testing.T) {
	site, project := newTestSite(t)
	site.renderFn = func(_ content.RequestContext, p content.Page) (string, error) {
		panic("boom")
	}
	b := newTestBuilder(t, site, project, nil)

	_, err := b.Run(RunOptions{Mode: ModeWrite})
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Error(), "panicked")
}

func (s *testSite) about() *testPage { return s.home.children[0] }
