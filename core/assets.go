package core

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	minjs "github.com/tdewolff/minify/v2/js"
)

const versionLength = 12

// Versioner reports the version token of the client assets.
type Versioner interface {
	Version() string
}

type staticVersion string

func (v staticVersion) Version() string { return string(v) }

// StaticVersion always reports v.
func StaticVersion(v string) Versioner { return staticVersion(v) }

type dirVersion struct {
	dir string
}

// DirVersion hashes the directory on every call, so edits to the
// sources show up without a restart.
func DirVersion(dir string) Versioner { return dirVersion{dir: dir} }

func (d dirVersion) Version() string {
	v, err := HashDir(d.dir)
	if err != nil {
		return ""
	}
	return v
}

// NewVersioner picks the version source for cfg.
func NewVersioner(cfg Config) Versioner {
	if cfg.Version != "" {
		return StaticVersion(cfg.Version)
	}
	if cfg.IsDev() {
		return DirVersion(cfg.AssetDir())
	}
	data, err := os.ReadFile(cfg.ManifestPath())
	if err != nil {
		return StaticVersion("")
	}
	return StaticVersion(hashBytes(data))
}

func hashBytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])[:versionLength]
}

// HashDir returns a content hash over every regular file below dir,
// covering both relative paths and contents.
func HashDir(dir string) (string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	h := md5.New()
	for _, file := range files {
		rel, _ := filepath.Rel(dir, file)
		content, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00%d\x00", filepath.ToSlash(rel), len(content))
		h.Write(content)
	}
	return hex.EncodeToString(h.Sum(nil))[:versionLength], nil
}

type ManifestEntry struct {
	File string `json:"file"`
	Src  string `json:"src,omitempty"`
}

type Manifest map[string]ManifestEntry

func LoadManifest(p string) (Manifest, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", p, err)
	}
	return m, nil
}

func (m Manifest) Resolve(name string) string {
	if entry, ok := m[name]; ok && entry.File != "" {
		return entry.File
	}
	return name
}

// Resolver maps a logical asset name to the URL the page should load.
type Resolver interface {
	Asset(name string) string
}

type manifestResolver struct {
	manifest Manifest
	prefix   string
}

func NewManifestResolver(m Manifest, prefix string) Resolver {
	return &manifestResolver{manifest: m, prefix: prefix}
}

func (r *manifestResolver) Asset(name string) string {
	return joinURL(r.prefix, r.manifest.Resolve(name))
}

type passthroughResolver struct {
	prefix string
}

func NewPassthroughResolver(prefix string) Resolver {
	return &passthroughResolver{prefix: prefix}
}

func (p *passthroughResolver) Asset(name string) string {
	return joinURL(p.prefix, name)
}

func joinURL(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(name, "/")
}

// NewResolver returns a passthrough resolver in development and a
// manifest resolver otherwise. A missing manifest falls back to
// passthrough and reports the error.
func NewResolver(cfg Config) (Resolver, error) {
	if cfg.IsDev() {
		return NewPassthroughResolver(cfg.AssetsPrefix), nil
	}
	m, err := LoadManifest(cfg.ManifestPath())
	if err != nil {
		return NewPassthroughResolver(cfg.AssetsPrefix), err
	}
	return NewManifestResolver(m, cfg.AssetsPrefix), nil
}

type BuildResult struct {
	Manifest Manifest
	Minified int
	Copied   int
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	m.AddFunc("application/javascript", minjs.Minify)
	return m
}

// MinifyAsset minifies a .js or .css source. Other extensions are
// returned unchanged with ok == false.
func MinifyAsset(m *minify.M, ext string, src []byte) (out []byte, ok bool, err error) {
	var mediatype string
	switch ext {
	case ".css":
		mediatype = "text/css"
	case ".js", ".mjs":
		mediatype = "application/javascript"
	default:
		return src, false, nil
	}

	var buf bytes.Buffer
	if err := m.Minify(mediatype, &buf, bytes.NewReader(src)); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

// Build writes a production copy of srcDir into distDir. Scripts and
// stylesheets are minified with gzip siblings; only the names listed in
// entries get content-hashed file names, so relative imports and url()
// references between the other files keep resolving. Everything else is
// copied, and manifest.json maps the source names to their output names.
func Build(srcDir, distDir string, entries []string) (BuildResult, error) {
	result := BuildResult{Manifest: Manifest{}}
	m := newMinifier()

	fingerprint := make(map[string]bool, len(entries))
	for _, e := range entries {
		fingerprint[strings.TrimPrefix(path.Clean(filepath.ToSlash(e)), "/")] = true
	}

	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		original, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		ext := path.Ext(rel)
		if strings.Contains(path.Base(rel), ".min.") {
			return copyAsset(distDir, rel, original, &result)
		}

		minified, ok, err := MinifyAsset(m, ext, original)
		if err != nil {
			return fmt.Errorf("minify %s: %w", rel, err)
		}
		if !ok {
			return copyAsset(distDir, rel, original, &result)
		}

		out := rel
		if fingerprint[rel] {
			out = fmt.Sprintf("%s.%s%s", strings.TrimSuffix(rel, ext), hashBytes(minified)[:8], ext)
		}
		if err := writeAsset(distDir, out, minified, true); err != nil {
			return err
		}
		result.Manifest[rel] = ManifestEntry{File: out, Src: rel}
		result.Minified++
		return nil
	})
	if err != nil {
		return result, err
	}

	data, err := json.MarshalIndent(result.Manifest, "", "  ")
	if err != nil {
		return result, err
	}
	if err := os.MkdirAll(distDir, os.ModePerm); err != nil {
		return result, err
	}
	if err := os.WriteFile(filepath.Join(distDir, "manifest.json"), data, 0644); err != nil {
		return result, fmt.Errorf("write manifest: %w", err)
	}

	return result, nil
}

var fingerprintPattern = regexp.MustCompile(`\.[0-9a-f]{8}\.[A-Za-z0-9]+$`)

// IsFingerprinted reports whether name carries a content hash written by
// Build, which makes it safe to cache forever.
func IsFingerprinted(name string) bool {
	return fingerprintPattern.MatchString(name)
}

func copyAsset(distDir, rel string, data []byte, result *BuildResult) error {
	if err := writeAsset(distDir, rel, data, false); err != nil {
		return err
	}
	result.Manifest[rel] = ManifestEntry{File: rel, Src: rel}
	result.Copied++
	return nil
}

func writeAsset(distDir, rel string, data []byte, compress bool) error {
	target := filepath.Join(distDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return err
	}
	if compress {
		return WriteGzip(target+".gz", data)
	}
	return nil
}
