package core

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"dario.cat/mergo"
	"github.com/segmentio/encoding/json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderInertia          = "X-Inertia"
	HeaderVersion          = "X-Inertia-Version"
	HeaderLocation         = "X-Inertia-Location"
	HeaderPartialData      = "X-Inertia-Partial-Data"
	HeaderPartialComponent = "X-Inertia-Partial-Component"
	HeaderErrorBag         = "X-Inertia-Error-Bag"

	sessionMessagesKey = "_messages"
	sessionErrorsKey   = "_errors"

	ModeFull    = "full"
	ModePartial = "partial"

	tracerName = "github.com/go-barry/pagebridge"
)

type Props map[string]any

// Page is the payload the client-side router consumes, either as the
// JSON body of a partial render or embedded in the shell document.
type Page struct {
	Component string `json:"component"`
	Props     Props  `json:"props"`
	URL       string `json:"url"`
	Version   string `json:"version"`
}

// LazyProp is only evaluated on a partial reload that asks for it by name.
type LazyProp struct {
	fn func() any
}

func Lazy(fn func() any) LazyProp {
	return LazyProp{fn: fn}
}

type FlashMessage struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

type BridgeOptions struct {
	Config    Config
	Renderer  *Renderer
	Versioner Versioner
	Resolver  Resolver
	Logger    *slog.Logger
	Metrics   *Metrics
}

// Bridge holds everything a render needs. It is built once at startup
// and shared by all handlers.
type Bridge struct {
	cfg       Config
	renderer  *Renderer
	versioner Versioner
	resolver  Resolver
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer

	mu     sync.RWMutex
	shared Props
}

func NewBridge(opts BridgeOptions) *Bridge {
	b := &Bridge{
		cfg:       opts.Config,
		renderer:  opts.Renderer,
		versioner: opts.Versioner,
		resolver:  opts.Resolver,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		tracer:    otel.Tracer(tracerName),
		shared:    Props{},
	}
	if b.versioner == nil {
		b.versioner = NewVersioner(opts.Config)
	}
	if b.resolver == nil {
		b.resolver = NewPassthroughResolver(opts.Config.AssetsPrefix)
	}
	if b.logger == nil {
		b.logger = slog.Default().With("component", "pagebridge")
	}
	return b
}

func (b *Bridge) Config() Config {
	return b.cfg
}

func (b *Bridge) Version() string {
	return b.versioner.Version()
}

// Share registers a prop included in every render.
func (b *Bridge) Share(key string, value any) {
	b.mu.Lock()
	b.shared[key] = value
	b.mu.Unlock()
}

func (b *Bridge) sharedProps() Props {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(Props, len(b.shared))
	for k, v := range b.shared {
		out[k] = v
	}
	return out
}

// Ctx is built per request from the request and its session.
type Ctx struct {
	W       http.ResponseWriter
	R       *http.Request
	Session *Session

	bridge *Bridge
	shared Props
}

func (b *Bridge) NewCtx(w http.ResponseWriter, r *http.Request) *Ctx {
	return &Ctx{
		W:       w,
		R:       r,
		Session: SessionFrom(r.Context()),
		bridge:  b,
		shared:  Props{},
	}
}

func (c *Ctx) IsInertia() bool {
	return c.R.Header.Get(HeaderInertia) == "true"
}

// Share adds a prop to every render made with this context.
func (c *Ctx) Share(key string, value any) {
	c.shared[key] = value
}

func (c *Ctx) Flash(message, category string) {
	if c.Session == nil {
		return
	}
	c.Session.Update(func(values map[string]any) {
		pending, _ := values[sessionMessagesKey].([]FlashMessage)
		values[sessionMessagesKey] = append(pending, FlashMessage{Message: message, Category: category})
	})
}

func (c *Ctx) Render(component string, props Props) error {
	ctx, span := c.bridge.tracer.Start(c.R.Context(), "pagebridge.render",
		trace.WithAttributes(attribute.String("component", component)))
	defer span.End()
	c.R = c.R.WithContext(ctx)

	version := c.bridge.Version()
	inertia := c.IsInertia()
	stale := c.R.Header.Get(HeaderVersion) != version

	if inertia && stale && c.R.Method != http.MethodGet {
		c.bridge.metrics.observeConflict()
		span.SetAttributes(attribute.String("mode", "conflict"))
		return &VersionConflictError{URL: requestURL(c.R)}
	}

	resolved, err := c.resolveProps(component, props)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("merge shared props: %w", err)
	}
	page := Page{
		Component: component,
		Props:     resolved,
		URL:       c.R.URL.RequestURI(),
		Version:   version,
	}

	mode := ModeFull
	if inertia && !stale {
		mode = ModePartial
	}
	span.SetAttributes(attribute.String("mode", mode))

	if c.bridge.cfg.DebugHeaders {
		c.W.Header().Set("X-Pagebridge-Component", component)
		c.W.Header().Set("X-Pagebridge-Mode", mode)
	}
	c.W.Header().Add("Vary", HeaderInertia)

	if mode == ModePartial {
		err = c.writePartial(page)
	} else {
		err = c.writeFull(page)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.bridge.metrics.observeRender(component, mode)
	c.bridge.logger.Debug("render", "component", component, "mode", mode, "version", version)
	return nil
}

func (c *Ctx) writePartial(page Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	c.W.Header().Set(HeaderInertia, "true")
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(http.StatusOK)
	_, err = c.W.Write(data)
	return err
}

func (c *Ctx) writeFull(page Page) error {
	if c.bridge.renderer == nil {
		return fmt.Errorf("no template renderer configured")
	}
	data, err := ShellFor(c.bridge.cfg, c.bridge.resolver, page)
	if err != nil {
		return err
	}
	c.W.Header().Set("Content-Type", "text/html; charset=utf-8")
	return c.bridge.renderer.Render(c.W, c.bridge.cfg.Template, data)
}

var mergeProps = func(dst *Props, src Props) error {
	return mergo.Merge(dst, src)
}

func (c *Ctx) resolveProps(component string, props Props) (Props, error) {
	// Request-level shared props win over bridge-level ones and nested
	// maps are combined. The bridge map is only ever a merge source.
	merged := Props{}
	if err := mergeProps(&merged, c.shared); err != nil {
		return nil, err
	}
	if err := mergeProps(&merged, c.bridge.sharedProps()); err != nil {
		return nil, err
	}
	for k, v := range props {
		merged[k] = v
	}

	only := c.partialKeys(component)
	out := make(Props, len(merged))
	for k, v := range merged {
		if only != nil {
			if _, ok := only[k]; !ok {
				continue
			}
		}
		switch val := v.(type) {
		case LazyProp:
			if only == nil {
				continue
			}
			out[k] = val.fn()
		case func() any:
			out[k] = val()
		default:
			out[k] = v
		}
	}

	if c.bridge.cfg.UseFlashMessages {
		out["messages"] = c.popMessages()
	}
	if c.bridge.cfg.UseFlashErrors {
		out["errors"] = c.popErrors()
	}
	return out, nil
}

// partialKeys returns the requested prop names of a partial reload for
// component, or nil when the request is not one.
func (c *Ctx) partialKeys(component string) map[string]struct{} {
	if !c.IsInertia() || c.R.Header.Get(HeaderPartialComponent) != component {
		return nil
	}
	keys := map[string]struct{}{}
	for _, k := range strings.Split(c.R.Header.Get(HeaderPartialData), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys[k] = struct{}{}
		}
	}
	return keys
}

func (c *Ctx) popMessages() []FlashMessage {
	if c.Session == nil {
		return []FlashMessage{}
	}
	v, _ := c.Session.Pop(sessionMessagesKey)
	msgs, ok := v.([]FlashMessage)
	if !ok || msgs == nil {
		return []FlashMessage{}
	}
	return msgs
}

func (c *Ctx) popErrors() map[string]any {
	if c.Session == nil {
		return map[string]any{}
	}
	v, _ := c.Session.Pop(sessionErrorsKey)
	errs, ok := v.(map[string]any)
	if !ok || errs == nil {
		return map[string]any{}
	}
	return errs
}

func (c *Ctx) JSON(status int, v any) error {
	return WriteJSON(c.W, status, v)
}

// Redirect sends a 302, upgraded to 303 for mutating Inertia requests so
// the client follows it with a GET.
func (c *Ctx) Redirect(url string) error {
	status := http.StatusFound
	if c.IsInertia() {
		switch c.R.Method {
		case http.MethodPut, http.MethodPatch, http.MethodDelete:
			status = http.StatusSeeOther
		}
	}
	http.Redirect(c.W, c.R, url, status)
	return nil
}

func (c *Ctx) Back() error {
	return c.Redirect(backURL(c.R))
}

// Location forces a full page visit to url, even for Inertia requests.
func (c *Ctx) Location(url string) error {
	if c.IsInertia() {
		c.W.Header().Set(HeaderLocation, url)
		c.W.WriteHeader(http.StatusConflict)
		return nil
	}
	http.Redirect(c.W, c.R, url, http.StatusFound)
	return nil
}

type Validator interface {
	Validate() ValidationErrors
}

// Bind decodes the JSON request body into dst and runs its Validate
// method when it has one.
func (c *Ctx) Bind(dst any) error {
	if c.R.Body == nil || c.R.Body == http.NoBody {
		return ValidationErrors{"body": "request body is empty"}
	}
	if err := json.NewDecoder(c.R.Body).Decode(dst); err != nil {
		return ValidationErrors{"body": "invalid JSON: " + err.Error()}
	}
	if v, ok := dst.(Validator); ok {
		if errs := v.Validate(); len(errs) > 0 {
			return errs
		}
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func backURL(r *http.Request) string {
	if ref := r.Referer(); ref != "" {
		return ref
	}
	return "/"
}
