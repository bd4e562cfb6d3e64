package core

import (
	"compress/gzip"
	"net/http"
	"os"
	"strings"
)

// WriteGzip stores a gzip-compressed copy of data at path.
func WriteGzip(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		return err
	}
	return gz.Close()
}

// Precompressed returns the .gz sibling of file when the client accepts
// gzip and the sibling exists.
func Precompressed(r *http.Request, file string) (string, bool) {
	if !AcceptsGzip(r) {
		return "", false
	}
	gz := file + ".gz"
	info, err := os.Stat(gz)
	if err != nil || info.IsDir() {
		return "", false
	}
	return gz, true
}

func AcceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}
