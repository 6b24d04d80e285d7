// Package ui embeds the static bill simulator page.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
)

//go:embed static/*
var content embed.FS

// Handler serves the embedded assets under /. HTML pages are marked no-cache.
func Handler() http.Handler {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	files := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ext := path.Ext(r.URL.Path); ext == "" || ext == ".html" {
			w.Header().Set("Cache-Control", "no-cache")
		}
		files.ServeHTTP(w, r)
	})
}
