package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the site configuration file looked up under the
// installation root when --site is not given.
const DefaultFile = "staticbuilder.yml"

// Config represents the site configuration file. It is loaded once at
// startup and read-only afterwards.
type Config struct {
	Output       OutputConfig  `yaml:"output"`
	BaseURL      string        `yaml:"base_url"`
	Suffix       string        `yaml:"suffix"`
	UglyURLs     bool          `yaml:"ugly_urls"`
	WithFiles    bool          `yaml:"with_files"`
	RedirectMaps bool          `yaml:"redirect_maps"`
	Routes       RoutesConfig  `yaml:"routes"`
	Assets       []Asset       `yaml:"assets"`
	Languages    []string      `yaml:"languages"`
	Redirects    []Redirect    `yaml:"redirects"`
	History      HistoryConfig `yaml:"history"`
	Notify       NotifyConfig  `yaml:"notify"`
	Git          GitConfig     `yaml:"git"`
	Watch        WatchConfig   `yaml:"watch"`
}

// OutputConfig locates the export tree.
type OutputConfig struct {
	Folder string `yaml:"folder"`
}

// RoutesConfig selects which registered routes are built.
type RoutesConfig struct {
	Build   []string `yaml:"build,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Asset maps a source file or directory to a destination below the output
// root. In YAML an asset is either a plain path string (copied to the same
// relative path) or a {source, dest} mapping.
type Asset struct {
	Source string `yaml:"source"`
	Dest   string `yaml:"dest,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (a *Asset) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		a.Source = value.Value
		a.Dest = value.Value
		return nil
	}
	type plain Asset
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	if p.Dest == "" {
		p.Dest = p.Source
	}
	*a = Asset(p)
	return nil
}

// Redirect declares a redirecting route, e.g. a moved page.
type Redirect struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Code int    `yaml:"code,omitempty"`
}

// HistoryConfig enables the run history database when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig enables NATS event publishing when URL is set.
type NotifyConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// GitConfig switches page modification times from filesystem mtimes to git
// last-commit times.
type GitConfig struct {
	Enabled bool `yaml:"enabled"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce    time.Duration `yaml:"debounce,omitempty"`
	Every       time.Duration `yaml:"every,omitempty"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty"`
}

// Default returns a configuration with every default applied, as used when
// config loading is disabled via --site=false.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates the configuration file. Variables from a .env
// file next to the working directory are loaded first and the raw YAML is
// environment-expanded, so values like ${STATICBUILDER_OUT} work. Unknown
// keys are rejected.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Output.Folder == "" {
		c.Output.Folder = "static"
	}
	if c.BaseURL == "" {
		c.BaseURL = "/"
	}
	if c.Suffix == "" {
		if c.UglyURLs {
			c.Suffix = ".html"
		} else {
			c.Suffix = "/index.html"
		}
	}
	if len(c.Routes.Build) == 0 {
		c.Routes.Build = []string{"*"}
	}
	if c.Notify.URL != "" && c.Notify.Subject == "" {
		c.Notify.Subject = "staticbuilder"
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
}

// Validate checks the configuration for fatal errors.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Suffix, "/") && !strings.HasPrefix(c.Suffix, ".") {
		return fmt.Errorf("invalid suffix %q: must start with / or .", c.Suffix)
	}
	if err := validateBaseURL(c.BaseURL); err != nil {
		return err
	}
	for _, code := range c.Languages {
		if _, err := language.Parse(code); err != nil {
			return fmt.Errorf("invalid language code %q: %w", code, err)
		}
	}
	for _, r := range c.Redirects {
		if r.From == "" || r.To == "" {
			return fmt.Errorf("redirect needs both from and to (got from=%q to=%q)", r.From, r.To)
		}
	}
	for _, a := range c.Assets {
		if a.Source == "" {
			return errors.New("asset entry needs a source path")
		}
	}
	return nil
}

// validateBaseURL accepts "/", the relative sentinels "" and "./", or an
// absolute http(s) URL.
func validateBaseURL(u string) error {
	switch u {
	case "", "./", "/":
		return nil
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return nil
	}
	return fmt.Errorf("invalid base_url %q: must be /, ./ or an absolute http(s) URL", u)
}

// RelativeURLs reports whether the base URL is a relative-URL sentinel.
func (c *Config) RelativeURLs() bool {
	return c.BaseURL == "" || c.BaseURL == "./"
}

// Extension returns the effective output extension. With ugly URLs and the
// default directory suffix the extension collapses to ".html".
func (c *Config) Extension() string {
	if c.UglyURLs && strings.HasPrefix(c.Suffix, "/") {
		return ".html"
	}
	return c.Suffix
}

// LanguageCodes returns the configured language codes, or the single empty
// code for non-multilingual sites.
func (c *Config) LanguageCodes() []string {
	if len(c.Languages) == 0 {
		return []string{""}
	}
	return c.Languages
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Output:       OutputConfig{Folder: "static"},
		BaseURL:      "/",
		WithFiles:    true,
		RedirectMaps: false,
		Routes: RoutesConfig{
			Build:   []string{"*"},
			Exclude: []string{"api/"},
		},
		Assets: []Asset{
			{Source: "assets", Dest: "assets"},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
