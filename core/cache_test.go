package core

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteGzipRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	gzPath := filepath.Join(tmpDir, "main.js.gz")
	content := []byte("console.log('hello')")

	if err := WriteGzip(gzPath, content); err != nil {
		t.Fatalf("WriteGzip failed: %v", err)
	}

	f, err := os.Open(gzPath)
	if err != nil {
		t.Fatalf("Failed to open gzip file: %v", err)
	}
	defer f.Close()

	gzReader, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("Failed to create gzip reader: %v", err)
	}
	defer gzReader.Close()

	unzipped, err := io.ReadAll(gzReader)
	if err != nil {
		t.Fatalf("Failed to read from gzip reader: %v", err)
	}
	if !bytes.Equal(unzipped, content) {
		t.Errorf("Gzipped content does not match original")
	}
}

func TestWriteGzip_FailsForMissingDir(t *testing.T) {
	if err := WriteGzip(filepath.Join(t.TempDir(), "missing", "x.gz"), []byte("x")); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}

func TestPrecompressed(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "app.css")
	_ = os.WriteFile(file, []byte("body{}"), 0644)

	req := httptest.NewRequest(http.MethodGet, "/src/app.css", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	if _, ok := Precompressed(req, file); ok {
		t.Error("expected no sibling before the .gz exists")
	}

	_ = WriteGzip(file+".gz", []byte("body{}"))
	gz, ok := Precompressed(req, file)
	if !ok || gz != file+".gz" {
		t.Errorf("expected gzip sibling, got %q %v", gz, ok)
	}

	req.Header.Set("Accept-Encoding", "br")
	if _, ok := Precompressed(req, file); ok {
		t.Error("expected no sibling when gzip is not accepted")
	}
}

func TestAcceptsGzip(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	if !AcceptsGzip(req) {
		t.Error("expected true for Accept-Encoding with gzip")
	}

	req.Header.Set("Accept-Encoding", "br")
	if AcceptsGzip(req) {
		t.Error("expected false for Accept-Encoding without gzip")
	}
}
