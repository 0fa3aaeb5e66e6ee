package httpapi

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed web/templates/*.html web/static/*
var webFS embed.FS

func mustParsePages() *template.Template {
	return template.Must(template.ParseFS(webFS, "web/templates/*.html"))
}

func staticHandler() http.Handler {
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(static)))
}

type indexPage struct {
	Driver string
}

func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := r.pages.ExecuteTemplate(w, "index.html", indexPage{Driver: r.speaker.Backend().Name()}); err != nil {
		r.logger.Printf("pages: render index: %v", err)
		captureError(req, err, "pages: render index")
	}
}
