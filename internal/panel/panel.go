package panel

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
)

//go:embed web/*
var content embed.FS

const pageTemplate = "index.html.tmpl"

// Options configure the maintenance page.
type Options struct {
	Dir     string // serve assets from disk when set and present
	APIBase string
	WSPath  string
	Version string
}

type pageData struct {
	APIBase string
	WSPath  string
	Version string
}

// Handler serves the maintenance page and its static assets.
type Handler struct {
	assets fs.FS
	live   bool // re-parse the page template on every request
	page   *template.Template
	files  http.Handler
	data   pageData
}

// New builds the page handler. Assets come from opts.Dir when it names an
// existing directory and from the embedded copy otherwise.
func New(opts Options) (*Handler, error) {
	h := &Handler{
		data: pageData{
			APIBase: opts.APIBase,
			WSPath:  opts.WSPath,
			Version: opts.Version,
		},
	}
	if h.data.APIBase == "" {
		h.data.APIBase = "/api/v1"
	}
	if h.data.WSPath == "" {
		h.data.WSPath = "/ws"
	}

	if opts.Dir != "" {
		if info, err := os.Stat(opts.Dir); err == nil && info.IsDir() {
			h.assets = os.DirFS(opts.Dir)
			h.live = true
		}
	}
	if h.assets == nil {
		sub, err := fs.Sub(content, "web")
		if err != nil {
			return nil, fmt.Errorf("loading embedded assets: %w", err)
		}
		h.assets = sub
	}

	page, err := h.parse()
	if err != nil {
		return nil, err
	}
	h.page = page
	h.files = http.FileServerFS(h.assets)

	return h, nil
}

func (h *Handler) parse() (*template.Template, error) {
	page, err := template.ParseFS(h.assets, pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageTemplate, err)
	}
	return page, nil
}

// ServeHTTP renders the page for the root and for any extensionless path,
// and serves static files otherwise.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, must-revalidate")

	upath := path.Clean("/" + r.URL.Path)
	if upath == "/" || upath == "/index.html" || path.Ext(upath) == "" {
		h.renderPage(w)
		return
	}
	if upath == "/"+pageTemplate {
		http.NotFound(w, r)
		return
	}

	h.files.ServeHTTP(w, r)
}

func (h *Handler) renderPage(w http.ResponseWriter) {
	page := h.page
	if h.live {
		p, err := h.parse()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		page = p
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, h.data); err != nil {
		http.Error(w, "rendering page failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w) //nolint:errcheck // client may have gone away
}
