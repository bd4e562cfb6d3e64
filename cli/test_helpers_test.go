package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-barry/pagebridge/core"
)

func captureOutput(f func()) string {
	orig := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func overrideLoadConfig(t *testing.T, cfg core.Config) {
	t.Helper()
	orig := core.LoadConfig
	core.LoadConfig = func(_ string) core.Config {
		return cfg
	}
	t.Cleanup(func() { core.LoadConfig = orig })
}

// writeProject creates files below a temp root and returns a config
// pointing at it.
func writeProject(t *testing.T, files map[string]string) core.Config {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := core.DefaultConfig()
	cfg.TemplatesDir = filepath.Join(root, "templates")
	cfg.ViewsDir = filepath.Join(root, "views")
	return cfg
}
