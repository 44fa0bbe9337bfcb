package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/app.css static/app.js
var staticFS embed.FS

var templateFuncs = template.FuncMap{
	"money": func(f float64) string {
		return fmt.Sprintf("%.2f", f)
	},
	"number": func(f float64) string {
		return fmt.Sprintf("%g", f)
	},
}

// pages holds one template set per screen, each combined with the layout
var pages = map[string]*template.Template{
	"upload":  parsePage("upload.html"),
	"review":  parsePage("review.html"),
	"history": parsePage("history.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.New(name).Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name))
}

// getStaticFS returns the embedded static assets rooted at static/
func getStaticFS() fs.FS {
	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return fsys
}

// render executes a page with the given status
func render(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("Error rendering page", "page", page, "error", err)
	}
}
