package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/mogelbrod/kirby-staticbuilder/internal/builder"
	"github.com/mogelbrod/kirby-staticbuilder/internal/config"
	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
	"github.com/mogelbrod/kirby-staticbuilder/internal/gitinfo"
	"github.com/mogelbrod/kirby-staticbuilder/internal/history"
	"github.com/mogelbrod/kirby-staticbuilder/internal/kirby"
	"github.com/mogelbrod/kirby-staticbuilder/internal/linkcheck"
	"github.com/mogelbrod/kirby-staticbuilder/internal/logfields"
	"github.com/mogelbrod/kirby-staticbuilder/internal/metrics"
	"github.com/mogelbrod/kirby-staticbuilder/internal/notify"
	"github.com/mogelbrod/kirby-staticbuilder/internal/version"
	"github.com/mogelbrod/kirby-staticbuilder/internal/watch"
)

var CLI struct {
	Kirby   string           `help:"Site installation root containing the content folder" default:"."`
	Site    string           `help:"Site folder holding templates and staticbuilder.yml, or false to run without it"`
	JSON    bool             `name:"json" help:"Print items as a JSON array instead of one line each"`
	Quiet   bool             `help:"Suppress per-item output"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print the version and exit"`

	Build struct {
		Pages []string `arg:"" optional:"" help:"Page ids to restrict the build to"`
	} `cmd:"" help:"Render the site into the output folder"`

	List struct {
		Pages []string `arg:"" optional:"" help:"Page ids to restrict the report to"`
	} `cmd:"" help:"Report what a build would produce without writing anything"`

	Watch struct {
		Every       time.Duration `help:"Also rebuild on this interval"`
		MetricsAddr string        `help:"Serve Prometheus metrics on this address"`
	} `cmd:"" help:"Rebuild whenever content, templates or configuration change"`

	Verify struct {
	} `cmd:"" help:"Check the exported tree for broken internal links"`

	History struct {
		Limit int    `default:"10" help:"Number of runs to list"`
		Run   string `help:"Show the items of one recorded run instead"`
	} `cmd:"" help:"List recorded runs"`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Write an example staticbuilder.yml"`
}

// stdout carries per-item lines and JSON payloads; logs go to stderr.
var stdout io.Writer = os.Stdout

func main() {
	ctx := kong.Parse(&CLI, kong.Vars{"version": version.Version})

	level := slog.LevelInfo
	if CLI.Verbose {
		level = slog.LevelDebug
	} else if CLI.Quiet {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	os.Exit(run(ctx.Command()))
}

func run(command string) int {
	switch command {
	case "build", "build <pages>":
		return runBuild(builder.ModeWrite, CLI.Build.Pages)
	case "list", "list <pages>":
		return runBuild(builder.ModeReport, CLI.List.Pages)
	case "watch":
		return runWatch()
	case "verify":
		return runVerify()
	case "history":
		return runHistory()
	case "init":
		return runInit()
	}
	return 1
}

// siteDir resolves the --site flag: the literal "false" disables the site
// folder entirely, empty falls back to <kirby>/site.
func siteDir() (string, bool) {
	switch CLI.Site {
	case "false":
		return "", false
	case "":
		return filepath.Join(CLI.Kirby, "site"), true
	}
	return CLI.Site, true
}

// loadConfig locates and loads staticbuilder.yml. A site folder without a
// configuration file runs on defaults; only an unreadable or invalid file is
// an error.
func loadConfig() (*config.Config, string, error) {
	dir, enabled := siteDir()
	if !enabled {
		return config.Default(), "", nil
	}
	if _, err := os.Stat(dir); err != nil {
		if CLI.Site != "" {
			return nil, "", fmt.Errorf("site folder %s: %w", dir, err)
		}
		// The default <kirby>/site simply not existing is a bare
		// content-only installation.
		return config.Default(), "", nil
	}
	path := filepath.Join(dir, config.DefaultFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return config.Default(), dir, nil
		}
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, dir, nil
}

func openSite(cfg *config.Config, dir string, logger *slog.Logger) (*kirby.Site, error) {
	kcfg := kirby.Config{
		SiteDir:   dir,
		Languages: siteLanguages(cfg),
		Redirects: siteRedirects(cfg),
		Logger:    logger,
	}
	if cfg.Git.Enabled {
		times, err := gitinfo.Load(CLI.Kirby)
		if err != nil {
			logger.Warn("git modification times unavailable, falling back to filesystem",
				logfields.Error(err))
		} else {
			kcfg.ModTime = times.ModTime
		}
	}
	return kirby.Open(CLI.Kirby, kcfg)
}

func siteLanguages(cfg *config.Config) []content.Language {
	langs := make([]content.Language, 0, len(cfg.Languages))
	for i, code := range cfg.Languages {
		langs = append(langs, content.Language{Code: code, Default: i == 0})
	}
	return langs
}

func siteRedirects(cfg *config.Config) []kirby.Redirect {
	redirects := make([]kirby.Redirect, 0, len(cfg.Redirects))
	for _, r := range cfg.Redirects {
		redirects = append(redirects, kirby.Redirect{From: r.From, To: r.To, Code: r.Code})
	}
	return redirects
}

func outputRoot(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Output.Folder) {
		return cfg.Output.Folder
	}
	return filepath.Join(CLI.Kirby, cfg.Output.Folder)
}

func newBuilder(site *kirby.Site, cfg *config.Config, logger *slog.Logger, rec metrics.Recorder) (*builder.Builder, error) {
	assets := make([]builder.Asset, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		assets = append(assets, builder.Asset{Source: a.Source, Dest: a.Dest})
	}
	bcfg := builder.Config{
		OutputRoot:   outputRoot(cfg),
		ProjectRoot:  CLI.Kirby,
		BaseURL:      cfg.BaseURL,
		Suffix:       cfg.Suffix,
		UglyURLs:     cfg.UglyURLs,
		WithFiles:    cfg.WithFiles,
		RedirectMaps: cfg.RedirectMaps,
		Routes:       cfg.Routes.Build,
		Exclude:      cfg.Routes.Exclude,
		Assets:       assets,
		Languages:    cfg.LanguageCodes(),
	}
	return builder.New(site, bcfg, builder.WithLogger(logger), builder.WithRecorder(rec))
}

func runBuild(mode builder.Mode, pages []string) int {
	logger := slog.Default()

	cfg, dir, err := loadConfig()
	if err != nil {
		logger.Error("loading configuration failed", logfields.Error(err))
		return 1
	}
	site, err := openSite(cfg, dir, logger)
	if err != nil {
		logger.Error("opening site failed", logfields.Error(err))
		return 1
	}
	b, err := newBuilder(site, cfg, logger, metrics.NoopRecorder{})
	if err != nil {
		logger.Error("preparing build failed", logfields.Error(err))
		return 1
	}

	pub := connectNotify(cfg, logger)
	if pub != nil {
		defer pub.Close()
		b.OnItem(pub.Observer())
	}
	if !CLI.Quiet && !CLI.JSON {
		b.OnItem(printItem)
	}

	sum, runErr := b.Run(builder.RunOptions{Mode: mode, Pages: pages})
	recordRun(cfg, sum, logger)
	if pub != nil {
		if err := pub.PublishRun(sum); err != nil {
			logger.Warn("publishing run summary failed", logfields.Error(err))
		}
	}
	if CLI.JSON {
		printJSON(sum.Items)
	}
	if runErr != nil {
		logger.Error("build failed", logfields.Error(runErr))
		return 1
	}
	if sum.HasStatus(builder.StatusMissing) {
		return 2
	}
	return 0
}

func runWatch() int {
	logger := slog.Default()

	cfg, dir, err := loadConfig()
	if err != nil {
		logger.Error("loading configuration failed", logfields.Error(err))
		return 1
	}

	rec := metrics.Recorder(metrics.NoopRecorder{})
	addr := CLI.Watch.MetricsAddr
	if addr == "" {
		addr = cfg.Watch.MetricsAddr
	}
	if addr != "" {
		reg := prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		go func() {
			logger.Info("serving metrics", logfields.Path(addr))
			if err := http.ListenAndServe(addr, metrics.HTTPHandler(reg)); err != nil {
				logger.Error("metrics endpoint failed", logfields.Error(err))
			}
		}()
	}

	pub := connectNotify(cfg, logger)
	if pub != nil {
		defer pub.Close()
	}

	// Configuration is re-read before every rebuild so edits to
	// staticbuilder.yml take effect; the watched paths stay as resolved at
	// startup.
	rebuild := func(trigger string) error {
		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}
		site, err := openSite(cfg, dir, logger)
		if err != nil {
			return err
		}
		b, err := newBuilder(site, cfg, logger, rec)
		if err != nil {
			return err
		}
		if pub != nil {
			defer b.OnItem(pub.Observer())()
		}
		sum, err := b.Run(builder.RunOptions{Mode: builder.ModeWrite})
		recordRun(cfg, sum, logger)
		if pub != nil {
			if perr := pub.PublishRun(sum); perr != nil {
				logger.Warn("publishing run summary failed", logfields.Error(perr))
			}
		}
		return err
	}

	every := CLI.Watch.Every
	if every == 0 {
		every = cfg.Watch.Every
	}

	dirs := []string{filepath.Join(CLI.Kirby, "content")}
	var files []string
	if dir != "" {
		dirs = append(dirs, filepath.Join(dir, "templates"))
		files = append(files, filepath.Join(dir, config.DefaultFile))
	}
	for _, a := range cfg.Assets {
		dirs = append(dirs, filepath.Join(CLI.Kirby, a.Source))
	}

	w, err := watch.New(watch.Config{
		Dirs:     dirs,
		Files:    files,
		Ignore:   []string{outputRoot(cfg)},
		Debounce: cfg.Watch.Debounce,
		Every:    every,
		Logger:   logger,
		Recorder: rec,
	}, rebuild)
	if err != nil {
		logger.Error("starting watch mode failed", logfields.Error(err))
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		logger.Error("watch mode failed", logfields.Error(err))
		return 1
	}
	return 0
}

func runVerify() int {
	logger := slog.Default()

	cfg, _, err := loadConfig()
	if err != nil {
		logger.Error("loading configuration failed", logfields.Error(err))
		return 1
	}

	broken, err := linkcheck.New(outputRoot(cfg), logger).Run()
	if err != nil {
		logger.Error("verification failed", logfields.Error(err))
		return 1
	}
	if CLI.JSON {
		printJSON(broken)
	} else if !CLI.Quiet {
		for _, b := range broken {
			fmt.Fprintf(stdout, "%s: %s <%s> %s\n", b.File, b.URL, b.Tag, b.Reason)
		}
	}
	if len(broken) > 0 {
		return 2
	}
	return 0
}

func runHistory() int {
	logger := slog.Default()

	cfg, _, err := loadConfig()
	if err != nil {
		logger.Error("loading configuration failed", logfields.Error(err))
		return 1
	}
	if cfg.History.Path == "" {
		logger.Error("run history is not configured, set history.path in staticbuilder.yml")
		return 1
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Error("opening history failed", logfields.Error(err))
		return 1
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if CLI.History.Run != "" {
		items, err := store.Items(ctx, CLI.History.Run)
		if err != nil {
			logger.Error("reading run items failed", logfields.Error(err))
			return 1
		}
		if CLI.JSON {
			printJSON(items)
		} else {
			for _, it := range items {
				printItem(it)
			}
		}
		return 0
	}

	runs, err := store.Recent(ctx, CLI.History.Limit)
	if err != nil {
		logger.Error("reading history failed", logfields.Error(err))
		return 1
	}
	if CLI.JSON {
		printJSON(runs)
		return 0
	}
	for _, r := range runs {
		fmt.Fprintf(stdout, "%s  %-6s  %4d items  %8s  %s  %s\n",
			r.Started.Local().Format("2006-01-02 15:04:05"), r.Mode, r.Items,
			r.Duration.Round(time.Millisecond), formatCounts(r.Counts), r.ID)
	}
	return 0
}

func runInit() int {
	logger := slog.Default()

	dir, enabled := siteDir()
	if !enabled {
		logger.Error("cannot initialize a configuration with --site=false")
		return 1
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("creating site folder failed", logfields.Error(err))
		return 1
	}
	path := filepath.Join(dir, config.DefaultFile)
	if err := config.Init(path, CLI.Init.Force); err != nil {
		logger.Error("writing configuration failed", logfields.Error(err))
		return 1
	}
	logger.Info("configuration written", logfields.Path(path))
	return 0
}

func connectNotify(cfg *config.Config, logger *slog.Logger) *notify.Publisher {
	if cfg.Notify.URL == "" {
		return nil
	}
	pub, err := notify.Connect(cfg.Notify.URL, cfg.Notify.Subject, logger)
	if err != nil {
		logger.Warn("notifications disabled", logfields.Error(err))
		return nil
	}
	return pub
}

// recordRun appends the summary to the history database when configured.
// History failures never fail a build.
func recordRun(cfg *config.Config, sum *builder.Summary, logger *slog.Logger) {
	if cfg.History.Path == "" || sum == nil {
		return
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("history store unavailable", logfields.Error(err))
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Record(ctx, sum); err != nil {
		logger.Warn("recording run failed", logfields.Error(err))
	}
}

func printItem(it builder.Item) {
	line := fmt.Sprintf("%-9s  %-13s  %s", it.Status, it.Type, itemName(it))
	if it.Redirect != "" {
		line += " -> " + it.Redirect
	} else if it.Dest != "" && it.Dest != itemName(it) {
		line += " -> " + it.Dest
	}
	if it.Size != nil {
		line += fmt.Sprintf(" (%d bytes)", *it.Size)
	}
	if it.Reason != "" {
		line += " [" + it.Reason + "]"
	}
	fmt.Fprintln(stdout, line)
}

func itemName(it builder.Item) string {
	switch {
	case it.URI != "":
		return it.URI
	case it.Source != "":
		return it.Source
	}
	return it.Dest
}

func printJSON(v any) {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encoding JSON output failed", logfields.Error(err))
	}
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
