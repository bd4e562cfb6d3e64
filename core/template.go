package core

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/sprig/v3"
	"github.com/segmentio/encoding/json"
)

const PageScriptID = "app-page"

const liveReloadSnippet = `<script>(function(){var p=location.protocol==="https:"?"wss://":"ws://";var ws=new WebSocket(p+location.host+"/__reload");ws.onmessage=function(e){if(e.data==="reload"){location.reload()}}})();</script>`

// ShellData is what the shell template sees.
type ShellData struct {
	Page      Page
	Component string
	Env       string
	Head      template.HTML
	Body      template.HTML
}

type Renderer struct {
	dir    string
	reload bool
	funcs  template.FuncMap
	mu     sync.RWMutex
	tmpl   *template.Template
	parsed bool
}

// NewRenderer parses every *.html file in dir. With reload set the
// templates are parsed again on every render.
func NewRenderer(dir string, resolve Resolver, reload bool) (*Renderer, error) {
	r := &Renderer{
		dir:    dir,
		reload: reload,
		funcs:  TemplateFuncs(resolve),
	}

	if !reload {
		if _, err := r.load(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func TemplateFuncs(resolve Resolver) template.FuncMap {
	funcs := sprig.HtmlFuncMap()
	funcs["asset"] = func(name string) string {
		if resolve == nil {
			return name
		}
		return resolve.Asset(name)
	}
	funcs["safeHTML"] = func(s interface{}) template.HTML {
		switch val := s.(type) {
		case template.HTML:
			return val
		case string:
			return template.HTML(val)
		default:
			return ""
		}
	}
	return funcs
}

func (r *Renderer) load() (*template.Template, error) {
	pattern := filepath.Join(r.dir, "*.html")
	tmpl, err := template.New("").Funcs(r.funcs).ParseGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", pattern, err)
	}

	r.mu.Lock()
	r.tmpl = tmpl
	r.parsed = true
	r.mu.Unlock()
	return tmpl, nil
}

func (r *Renderer) templates() (*template.Template, error) {
	if r.reload {
		return r.load()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.parsed {
		return nil, fmt.Errorf("templates in %s not loaded", r.dir)
	}
	return r.tmpl, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, err := r.templates()
	if err != nil {
		return err
	}

	// Render into a buffer so a failed template does not leave a
	// half-written response behind.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// EncodePage serialises the page object for the bootstrap script.
// Indented output keeps the "key": "value" spacing of the client payload.
func EncodePage(page Page) ([]byte, error) {
	return json.MarshalIndent(page, "", "  ")
}

// ShellFor builds the template data embedding page for a full render.
func ShellFor(cfg Config, resolve Resolver, page Page) (ShellData, error) {
	encoded, err := EncodePage(page)
	if err != nil {
		return ShellData{}, fmt.Errorf("encode page: %w", err)
	}

	var head strings.Builder
	for _, css := range cfg.Stylesheets {
		fmt.Fprintf(&head, `<link rel="stylesheet" href="%s">`, template.HTMLEscapeString(resolve.Asset(css)))
		head.WriteString("\n")
	}

	var body strings.Builder
	body.WriteString(`<div id="app"></div>`)
	body.WriteString("\n")
	fmt.Fprintf(&body, `<script id="%s" type="application/json">%s</script>`, PageScriptID, encoded)
	body.WriteString("\n")
	fmt.Fprintf(&body, `<script type="module" src="%s"></script>`, template.HTMLEscapeString(resolve.Asset(cfg.Entrypoint)))
	if cfg.IsDev() {
		body.WriteString("\n")
		body.WriteString(liveReloadSnippet)
	}

	return ShellData{
		Page:      page,
		Component: page.Component,
		Env:       cfg.Environment,
		Head:      template.HTML(head.String()),
		Body:      template.HTML(body.String()),
	}, nil
}
