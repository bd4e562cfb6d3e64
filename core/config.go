package core

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type SessionConfig struct {
	Secret string `yaml:"secret"`
	MaxAge int    `yaml:"maxAge"`
}

type Config struct {
	Environment      string        `yaml:"environment"`
	TemplatesDir     string        `yaml:"templatesDir"`
	Template         string        `yaml:"template"`
	ViewsDir         string        `yaml:"viewsDir"`
	Entrypoint       string        `yaml:"entrypoint"`
	Stylesheets      []string      `yaml:"stylesheets"`
	AssetsPrefix     string        `yaml:"assetsPrefix"`
	Manifest         string        `yaml:"manifest"`
	Version          string        `yaml:"version"`
	UseFlashMessages bool          `yaml:"useFlashMessages"`
	UseFlashErrors   bool          `yaml:"useFlashErrors"`
	Session          SessionConfig `yaml:"session"`
	Metrics          bool          `yaml:"metrics"`
	DebugHeaders     bool          `yaml:"debugHeaders"`
	DebugLogs        bool          `yaml:"debugLogs"`
}

func DefaultConfig() Config {
	return Config{
		Environment:      EnvDevelopment,
		TemplatesDir:     "templates",
		Template:         "app.html",
		ViewsDir:         "views",
		Entrypoint:       "main.js",
		AssetsPrefix:     "/src",
		UseFlashMessages: true,
		UseFlashErrors:   true,
		Session: SessionConfig{
			Secret: "secret_key",
			MaxAge: 14 * 24 * 60 * 60,
		},
	}
}

var LoadConfig = func(path string) Config {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	// Booleans absent from the file keep their defaults because Unmarshal
	// only touches keys that are present.
	_ = yaml.Unmarshal(data, &cfg)
	cfg.fillDefaults()

	return cfg
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Environment == "" {
		c.Environment = def.Environment
	}
	if c.TemplatesDir == "" {
		c.TemplatesDir = def.TemplatesDir
	}
	if c.Template == "" {
		c.Template = def.Template
	}
	if c.ViewsDir == "" {
		c.ViewsDir = def.ViewsDir
	}
	if c.Entrypoint == "" {
		c.Entrypoint = def.Entrypoint
	}
	if c.AssetsPrefix == "" {
		c.AssetsPrefix = def.AssetsPrefix
	}
	if c.Session.Secret == "" {
		c.Session.Secret = def.Session.Secret
	}
	if c.Session.MaxAge <= 0 {
		c.Session.MaxAge = def.Session.MaxAge
	}
}

func (c Config) IsDev() bool {
	return c.Environment == EnvDevelopment
}

// AssetDir is the directory served under the asset prefix: unbundled
// sources in development, build output otherwise.
func (c Config) AssetDir() string {
	if c.IsDev() {
		return c.SourceDir()
	}
	return c.DistDir()
}

func (c Config) SourceDir() string {
	return filepath.Join(c.ViewsDir, "src")
}

func (c Config) DistDir() string {
	return filepath.Join(c.ViewsDir, "dist")
}

// BuildEntries lists the assets the page references by name; these get
// fingerprinted file names on build.
func (c Config) BuildEntries() []string {
	entries := make([]string, 0, len(c.Stylesheets)+1)
	entries = append(entries, c.Entrypoint)
	return append(entries, c.Stylesheets...)
}

func (c Config) ManifestPath() string {
	if c.Manifest != "" {
		return c.Manifest
	}
	return filepath.Join(c.DistDir(), "manifest.json")
}
