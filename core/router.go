package core

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RuntimeContext struct {
	Env         string
	EnableWatch bool
	Reloader    LiveReloaderInterface
	Logger      *slog.Logger
	Metrics     *Metrics
	Store       Store

	// Static mounts asset routes outside the session middleware.
	Static func(r chi.Router)
	// Pages mounts application routes with sessions attached.
	Pages func(r chi.Router, b *Bridge)
}

type Router struct {
	chi.Router
	Bridge *Bridge
	Store  Store
}

// Close stops the session store's background cleanup.
func (r *Router) Close() error {
	if r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

var NewRouter = func(config Config, rt RuntimeContext) (http.Handler, error) {
	return BuildRouter(config, rt)
}

func BuildRouter(config Config, rt RuntimeContext) (*Router, error) {
	logger := rt.Logger
	if logger == nil {
		logger = NewLogger(config, os.Stderr)
	}
	metrics := rt.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	store := rt.Store
	if store == nil {
		store = NewMemoryStore(time.Duration(config.Session.MaxAge)*time.Second, time.Minute)
	}

	resolver, err := NewResolver(config)
	if err != nil {
		logger.Warn("manifest unavailable, serving unhashed asset names", "manifest", config.ManifestPath(), "error", err)
	}

	renderer, err := NewRenderer(config.TemplatesDir, resolver, config.IsDev())
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	bridge := NewBridge(BridgeOptions{
		Config:    config,
		Renderer:  renderer,
		Versioner: NewVersioner(config),
		Resolver:  resolver,
		Logger:    logger,
		Metrics:   metrics,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	if config.Metrics {
		r.Handle("/metrics", metrics.Handler())
	}

	if rt.EnableWatch && rt.Reloader != nil {
		r.HandleFunc(ReloadPath, rt.Reloader.Handler)
	}

	if rt.Static != nil {
		rt.Static(r)
	}

	signer := NewCookieSigner(config.Session.Secret)
	r.Group(func(r chi.Router) {
		r.Use(Sessions(store, signer, config.Session.MaxAge))
		if rt.Pages != nil {
			rt.Pages(r, bridge)
		}
	})

	return &Router{Router: r, Bridge: bridge, Store: store}, nil
}
