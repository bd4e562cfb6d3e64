package pagebridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/go-barry/pagebridge/core"
	"github.com/go-barry/pagebridge/routes"
)

const (
	ConfigFile = "pagebridge.config.yml"

	cacheNoStore    = "no-store"
	cacheRevalidate = "no-cache"
	cacheImmutable  = "public, max-age=31536000, immutable"
)

type RuntimeConfig struct {
	// Env overrides the environment from the config file when set.
	Env        string
	ConfigPath string
	Port       int
}

type Server struct {
	Addr     string
	Handler  http.Handler
	Config   core.Config
	Reloader core.LiveReloaderInterface
}

var ListenAndServe = func(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

var Exit = os.Exit

// Close releases what the handler holds, such as the session store.
func (s *Server) Close() error {
	if closer, ok := s.Handler.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func loadRuntimeConfig(cfg RuntimeConfig) core.Config {
	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = ConfigFile
	}
	config := core.LoadConfig(configPath)
	if cfg.Env != "" {
		config.Environment = cfg.Env
	}
	return config
}

func BuildServer(cfg RuntimeConfig) (*Server, error) {
	config := loadRuntimeConfig(cfg)
	dev := config.IsDev()
	assetDir := config.AssetDir()

	var reloader core.LiveReloaderInterface
	if dev {
		reloader = core.NewLiveReloader()
	}

	handler, err := core.NewRouter(config, core.RuntimeContext{
		Env:         config.Environment,
		EnableWatch: dev,
		Reloader:    reloader,
		Static: func(r chi.Router) {
			setupStaticRoutes(r, config.AssetsPrefix, assetDir, dev)
		},
		Pages: routes.Register,
	})
	if err != nil {
		return nil, err
	}

	return &Server{
		Addr:     fmt.Sprintf(":%d", cfg.Port),
		Handler:  handler,
		Config:   config,
		Reloader: reloader,
	}, nil
}

var Start = func(cfg RuntimeConfig) {
	srv, err := BuildServer(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ Server failed:", err)
		Exit(1)
		return
	}

	defer srv.Close()

	fmt.Println("Starting pagebridge in", srv.Config.Environment, "mode...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if srv.Reloader != nil {
		logger := core.NewLogger(srv.Config, os.Stderr)
		go func() {
			err := core.Watch(ctx, srv.Config.AssetDir(), 100*time.Millisecond, logger, srv.Reloader.BroadcastReload)
			if err != nil {
				logger.Warn("live reload disabled", "error", err)
			}
		}()
	}

	fmt.Printf("✅ pagebridge running at http://localhost%s\n", srv.Addr)
	if err := ListenAndServe(srv.Addr, srv.Handler); err != nil && err != http.ErrServerClosed {
		fmt.Fprintln(os.Stderr, "❌ Server failed:", err)
		_ = srv.Close()
		Exit(1)
	}
}

// setupStaticRoutes mounts the view directory under prefix and its
// assets/ subdirectory under /assets.
func setupStaticRoutes(r chi.Router, prefix, dir string, dev bool) {
	prefix = "/" + strings.Trim(prefix, "/") + "/"
	r.Handle(prefix+"*", makeStaticHandler(prefix, dir, dev))
	r.Handle("/assets/*", makeStaticHandler("/assets/", filepath.Join(dir, "assets"), dev))
}

func makeStaticHandler(prefix, dir string, dev bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		rel, err := staticRelPath(prefix, r.URL.Path)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		file := filepath.Join(dir, filepath.FromSlash(rel))
		if info, err := os.Stat(file); err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		if dev {
			serveFile(w, r, file, file, cacheNoStore)
			return
		}

		cacheControl := cacheRevalidate
		if core.IsFingerprinted(rel) {
			cacheControl = cacheImmutable
		}
		if gz, ok := core.Precompressed(r, file); ok {
			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Set("Vary", "Accept-Encoding")
			serveFile(w, r, file, gz, cacheControl)
			return
		}

		serveFile(w, r, file, file, cacheControl)
	})
}

// staticRelPath returns the slash-separated path below prefix, refusing
// anything that could escape the served directory.
func staticRelPath(prefix, urlPath string) (string, error) {
	rel := strings.TrimPrefix(urlPath, prefix)
	if rel == "" || rel == urlPath && prefix != "/" {
		return "", core.ErrBadPath
	}
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") || strings.HasPrefix(rel, "/") {
		return "", core.ErrBadPath
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", core.ErrBadPath
		}
	}
	clean := path.Clean(rel)
	if filepath.IsAbs(filepath.FromSlash(clean)) {
		return "", core.ErrBadPath
	}
	return clean, nil
}

// serveFile writes the contents of body with the headers of name. It
// uses ServeContent so paths ending in index.html are not redirected.
func serveFile(w http.ResponseWriter, r *http.Request, name, body, cacheControl string) {
	f, err := os.Open(body)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", detectMimeType(name))
	w.Header().Set("Cache-Control", cacheControl)
	http.ServeContent(w, r, filepath.Base(name), info.ModTime(), f)
}

func detectMimeType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".css":
		return "text/css; charset=utf-8"
	case ".js", ".mjs":
		return "text/javascript; charset=utf-8"
	case ".json", ".map":
		return "application/json"
	case ".html":
		return "text/html; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".ico":
		return "image/x-icon"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	default:
		return "application/octet-stream"
	}
}
