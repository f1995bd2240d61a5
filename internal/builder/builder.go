// Package builder drives static exports: it walks the site's pages and
// routes, renders them through the host content engine, rewrites internal
// links, and writes the results below the output root. Runs come in two
// modes: report classifies every item without writing, write produces the
// export tree. Every decision is emitted as an Item through the run summary
// and the registered observers.
package builder

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
	"github.com/mogelbrod/kirby-staticbuilder/internal/logfields"
	"github.com/mogelbrod/kirby-staticbuilder/internal/metrics"
	"github.com/mogelbrod/kirby-staticbuilder/internal/rewrite"
	"github.com/mogelbrod/kirby-staticbuilder/internal/urlpath"
)

// Builder exports one site. It is not safe for concurrent runs; watch mode
// serializes rebuilds.
type Builder struct {
	site     content.Site
	cfg      Config
	logger   *slog.Logger
	recorder metrics.Recorder
	rewriter *rewrite.Rewriter
	sink     *sink
	summary  *Summary
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger items and run progress are logged to.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// New resolves the configuration and prepares the output root. The root is
// created if absent; an unwritable root is a fatal configuration error.
func New(site content.Site, cfg Config, opts ...Option) (*Builder, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := ensureWritable(cfg.OutputRoot); err != nil {
		return nil, err
	}
	b := &Builder{
		site:     site,
		cfg:      cfg,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		rewriter: rewrite.New(cfg.BaseURL, cfg.extension(), cfg.relativeURLs(), cfg.UglyURLs),
		sink:     newSink(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func ensureWritable(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("creating output folder: %w", err)
	}
	probe := filepath.Join(root, ".staticbuilder-probe")
	if err := os.WriteFile(probe, nil, 0644); err != nil {
		return fmt.Errorf("output folder %s is not writable: %w", root, err)
	}
	return os.Remove(probe)
}

// OnItem registers an observer receiving every item of subsequent runs, in
// registration order. The returned function unsubscribes it.
func (b *Builder) OnItem(fn Observer) func() {
	return b.sink.subscribe(fn)
}

// RunOptions selects the mode and scope of one run.
type RunOptions struct {
	Mode Mode
	// Pages restricts the run to the given page ids. An empty list builds
	// the whole site including routes, assets and redirect maps.
	Pages []string
}

// Run executes one build. The returned summary holds every produced item
// even when the run aborts on a render error. A full-site write run empties
// the output directory before writing.
func (b *Builder) Run(opts RunOptions) (*Summary, error) {
	if opts.Mode == "" {
		opts.Mode = ModeReport
	}
	summary := newSummary(opts.Mode)
	b.summary = summary
	b.sink.reset(summary)
	start := time.Now()

	b.logger.Info("run started",
		logfields.RunID(summary.RunID),
		logfields.Mode(string(opts.Mode)),
		logfields.Count(len(opts.Pages)))

	full := len(opts.Pages) == 0
	if opts.Mode == ModeWrite && full {
		if err := b.flushOutput(); err != nil {
			return summary, fmt.Errorf("emptying output folder: %w", err)
		}
	}

	err := b.buildPages(opts)
	if err == nil && full {
		err = b.buildRoutes()
		if err == nil {
			b.buildRedirectMaps()
			b.buildAssets()
		}
	}

	summary.Duration = time.Since(start)
	b.recorder.ObserveRunDuration(string(opts.Mode), summary.Duration)
	b.recorder.SetLastRunItems(len(summary.Items))
	if err != nil {
		b.recorder.IncRunOutcome("failed")
		b.logger.Error("run aborted",
			logfields.RunID(summary.RunID),
			logfields.Error(err))
		return summary, err
	}
	b.recorder.IncRunOutcome(runOutcome(summary))

	b.logger.Info("run finished",
		logfields.RunID(summary.RunID),
		logfields.Mode(string(opts.Mode)),
		logfields.Count(len(summary.Items)),
		logfields.DurationMS(float64(summary.Duration.Milliseconds())))
	return summary, nil
}

func runOutcome(s *Summary) string {
	switch {
	case s.HasStatus(StatusFailed):
		return "failed"
	case s.HasStatus(StatusMissing):
		return "missing"
	default:
		return "ok"
	}
}

func (b *Builder) buildPages(opts RunOptions) error {
	if len(opts.Pages) > 0 {
		for _, id := range opts.Pages {
			id = strings.Trim(id, "/")
			p := b.site.Find(id)
			if p == nil {
				b.log(Item{Type: TypePage, URI: id, Status: StatusMissing, Reason: "page not found"})
				continue
			}
			if err := b.buildPage(p); err != nil {
				return err
			}
		}
		return nil
	}
	for _, p := range b.site.Pages() {
		if err := b.buildPage(p); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildPage(p content.Page) error {
	uri := p.ID()
	// Dynamic URIs and excluded pages never appear as items.
	if strings.ContainsAny(uri, "{}()*") {
		return nil
	}
	if b.cfg.excludedURI(uri) {
		return nil
	}

	if ok, reason := b.includePage(p); !ok {
		b.log(Item{
			Type:   TypePage,
			URI:    uri,
			Source: b.pageSource(p),
			Title:  p.Title(),
			Status: StatusIgnore,
			Reason: reason,
		})
		return nil
	}

	for i, lang := range b.cfg.Languages {
		if err := b.buildPageLanguage(p, lang, i == 0); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) includePage(p content.Page) (bool, string) {
	if b.cfg.Filter != nil {
		return b.cfg.Filter(p)
	}
	return defaultFilter(p)
}

// defaultFilter drops pages without a backing content file and pages whose
// template is reserved for structural module use.
func defaultFilter(p content.Page) (bool, string) {
	if p.ContentPath("") == "" {
		return false, "page has no content file"
	}
	if t := p.Template(); t == "module" || strings.HasPrefix(t, "module.") {
		return false, fmt.Sprintf("template %s is reserved for modules", t)
	}
	return true, ""
}

func (b *Builder) buildPageLanguage(p content.Page, lang string, first bool) error {
	urlPath := p.URL(lang)
	item := Item{
		Type:     TypePage,
		URI:      p.ID(),
		Source:   b.pageSource(p),
		Title:    p.Title(),
		Language: lang,
	}

	dest, ok := b.destForURL(urlPath)
	item.Dest = b.relDest(dest)
	if !ok {
		item.Status, item.Reason = StatusIgnore, ReasonOutsideRoot
		b.log(item)
		return nil
	}

	b.summary.observeModified(p.Modified())

	if b.summary.Mode == ModeReport {
		item.Status, item.Size = classify(dest, p.Modified())
		b.log(item)
		if first && b.cfg.WithFiles {
			b.reportPageFiles(p, urlPath)
		}
		return nil
	}

	rctx := content.NewRequestContext(strings.Trim(urlPath, "/"), lang)
	text, err := b.render(rctx, p)
	if err != nil {
		return err
	}
	text = b.rewriter.Rewrite(text, urlPath)

	if werr := writeFile(dest, []byte(text)); werr != nil {
		item.Status, item.Reason = StatusFailed, werr.Error()
		b.log(item)
		return nil
	}
	item.Status = StatusGenerated
	item.Size = sizeOf(int64(len(text)))

	var fileItems []Item
	if first && b.cfg.WithFiles {
		item.Files, fileItems = b.copyPageFiles(p, urlPath)
	}
	b.log(item)
	for _, fi := range fileItems {
		b.log(fi)
	}
	return nil
}

// render calls into the host renderer, converting errors and panics into a
// RenderError naming the page. A render failure abandons the run; no item is
// appended for the failed page.
func (b *Builder) render(rctx content.RequestContext, p content.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{URI: p.ID(), Err: fmt.Errorf("renderer panicked: %v", r)}
		}
	}()
	text, rerr := b.site.Render(rctx, p)
	if rerr != nil {
		return "", &RenderError{URI: p.ID(), Err: rerr}
	}
	return text, nil
}

// destForURL resolves a site-relative URL path to an absolute destination
// below the output root: the site root maps to the index file, paths that
// already carry an extension keep it, everything else gets the configured
// suffix. The second return value is the containment verdict.
func (b *Builder) destForURL(urlPath string) (string, bool) {
	rel := strings.Trim(urlpath.Normalize(urlPath), "/")
	switch {
	case rel == "":
		rel = b.cfg.indexFile()
	case path.Ext(rel) != "":
		// explicit filename, keep as-is
	default:
		rel += b.cfg.extension()
	}
	abs := filepath.Join(b.cfg.OutputRoot, filepath.FromSlash(rel))
	return abs, containedIn(b.cfg.OutputRoot, abs)
}

// relDest renders a destination root-relative for display.
func (b *Builder) relDest(abs string) string {
	if rel, err := filepath.Rel(b.cfg.OutputRoot, abs); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(abs)
}

func (b *Builder) pageSource(p content.Page) string {
	cp := p.ContentPath("")
	if cp == "" {
		return ""
	}
	return b.relSource(cp)
}

// flushOutput empties the output directory without removing the directory
// itself.
func (b *Builder) flushOutput() error {
	entries, err := os.ReadDir(b.cfg.OutputRoot)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := filepath.Join(b.cfg.OutputRoot, e.Name())
		if !containedIn(b.cfg.OutputRoot, p) {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return nil
}

// log funnels every item through metrics, the debug log and the sink.
func (b *Builder) log(item Item) Item {
	b.recorder.IncItem(string(item.Type), string(item.Status))
	b.logger.Debug("item",
		logfields.ItemType(string(item.Type)),
		logfields.ItemStatus(string(item.Status)),
		logfields.Item(item.URI),
		logfields.Target(item.Dest))
	return b.sink.log(item)
}
