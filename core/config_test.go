package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromValidFile(t *testing.T) {
	tmp := t.TempDir()

	configYAML := `
environment: production
templatesDir: ./tpl
viewsDir: ./ui
entrypoint: app.js
stylesheets:
  - assets/site.css
manifest: ./ui/dist/manifest.json
useFlashMessages: false
session:
  secret: s3cr3t
  maxAge: 60
metrics: true
debugHeaders: true
debugLogs: true
`
	configPath := filepath.Join(tmp, "pagebridge.config.yml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg := LoadConfig(configPath)

	if cfg.Environment != EnvProduction {
		t.Errorf("expected production, got %q", cfg.Environment)
	}
	if cfg.TemplatesDir != "./tpl" || cfg.ViewsDir != "./ui" {
		t.Errorf("unexpected dirs: %q %q", cfg.TemplatesDir, cfg.ViewsDir)
	}
	if cfg.Entrypoint != "app.js" {
		t.Errorf("expected entrypoint app.js, got %q", cfg.Entrypoint)
	}
	if len(cfg.Stylesheets) != 1 || cfg.Stylesheets[0] != "assets/site.css" {
		t.Errorf("unexpected stylesheets: %v", cfg.Stylesheets)
	}
	if cfg.UseFlashMessages {
		t.Error("expected UseFlashMessages to be false")
	}
	if !cfg.UseFlashErrors {
		t.Error("expected UseFlashErrors to keep its default of true")
	}
	if cfg.Session.Secret != "s3cr3t" || cfg.Session.MaxAge != 60 {
		t.Errorf("unexpected session config: %+v", cfg.Session)
	}
	if !cfg.Metrics || !cfg.DebugHeaders || !cfg.DebugLogs {
		t.Error("expected metrics and debug flags to be true")
	}
	if cfg.ManifestPath() != "./ui/dist/manifest.json" {
		t.Errorf("unexpected manifest path %q", cfg.ManifestPath())
	}
}

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg := LoadConfig("nonexistent.yml")

	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected development, got %q", cfg.Environment)
	}
	if cfg.Entrypoint != "main.js" {
		t.Errorf("expected main.js, got %q", cfg.Entrypoint)
	}
	if cfg.AssetsPrefix != "/src" {
		t.Errorf("expected /src, got %q", cfg.AssetsPrefix)
	}
	if !cfg.UseFlashMessages || !cfg.UseFlashErrors {
		t.Error("expected flash messages and errors on by default")
	}
	if cfg.Metrics || cfg.DebugHeaders || cfg.DebugLogs {
		t.Error("expected metrics and debug flags off by default")
	}
}

func TestLoadConfigBackfillsEmptyFields(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "pagebridge.config.yml")
	_ = os.WriteFile(configPath, []byte("environment: \"\"\nentrypoint: \"\"\nsession:\n  maxAge: -1\n"), 0644)

	cfg := LoadConfig(configPath)

	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected fallback environment, got %q", cfg.Environment)
	}
	if cfg.Entrypoint != "main.js" {
		t.Errorf("expected fallback entrypoint, got %q", cfg.Entrypoint)
	}
	if cfg.Session.MaxAge <= 0 || cfg.Session.Secret == "" {
		t.Errorf("expected session defaults, got %+v", cfg.Session)
	}
}

func TestConfigAssetDirFollowsEnvironment(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.AssetDir(); got != filepath.Join("views", "src") {
		t.Errorf("development: got %q", got)
	}

	cfg.Environment = EnvProduction
	if got := cfg.AssetDir(); got != filepath.Join("views", "dist") {
		t.Errorf("production: got %q", got)
	}
	if got := cfg.ManifestPath(); got != filepath.Join("views", "dist", "manifest.json") {
		t.Errorf("manifest: got %q", got)
	}
}
