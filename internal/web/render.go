package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates
var embeddedTemplates embed.FS

// Templates is the embedded template tree rooted at "templates".
func Templates() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// PageRenderer renders named page templates.
type PageRenderer interface {
	Render(w http.ResponseWriter, templateName string, data any) error
	RenderError(w http.ResponseWriter, code int, message string)
}

// Renderer renders HTML pages. Every page is parsed together with base.html,
// which defines the "base" layout and expects the page to define "content".
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses base.html and every other .html file in fsys. Template
// names are slash-separated paths relative to the root, e.g. "notes/list.html".
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template)}

	baseContent, err := fs.ReadFile(fsys, "base.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read base template: %w", err)
	}

	funcMap := createFuncMap()
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == "base.html" || path.Ext(p) != ".html" {
			return nil
		}

		pageContent, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", p, err)
		}

		tmpl, err := template.New("base").Funcs(funcMap).Parse(string(baseContent))
		if err != nil {
			return fmt.Errorf("failed to parse base template for %s: %w", p, err)
		}
		if _, err := tmpl.Parse(string(pageContent)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", p, err)
		}
		r.templates[p] = tmpl
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if len(r.templates) == 0 {
		return nil, fmt.Errorf("no templates found")
	}
	return r, nil
}

// Render executes the named template with data and writes it with status 200.
// Nothing is written when execution fails.
func (r *Renderer) Render(w http.ResponseWriter, templateName string, data any) error {
	return r.render(w, http.StatusOK, templateName, data)
}

// RenderError renders error.html with the given HTTP status code and message.
func (r *Renderer) RenderError(w http.ResponseWriter, code int, message string) {
	data := ErrorPageData{
		PageData:  PageData{Title: http.StatusText(code)},
		Code:      code,
		ErrorText: message,
	}
	if err := r.render(w, code, "error.html", data); err != nil {
		http.Error(w, fmt.Sprintf("Error %d: %s", code, message), code)
	}
}

func (r *Renderer) render(w http.ResponseWriter, status int, templateName string, data any) error {
	tmpl, ok := r.templates[templateName]
	if !ok {
		return fmt.Errorf("template %q not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", templateName, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func createFuncMap() template.FuncMap {
	return template.FuncMap{
		"formatTime": formatTime,
		"truncate":   truncate,
		"markdown":   renderMarkdown,
		"url":        Reverse,
	}
}

// formatTime formats a time.Time as a date string, e.g. "02.01.2006 15:04".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006 15:04")
}

// truncate truncates a string to n characters, adding "..." if truncated.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}

var markdownPolicy = bluemonday.UGCPolicy()

// renderMarkdown converts note text to sanitized HTML.
func renderMarkdown(s string) template.HTML {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(s))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	htmlContent := markdown.Render(doc, renderer)

	return template.HTML(markdownPolicy.SanitizeBytes(htmlContent))
}
