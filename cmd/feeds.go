package main

import (
	"net/http"
)

func (app *application) rssHandler(w http.ResponseWriter, r *http.Request) {
	body, err := app.core.RSS(r.Context())
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}
	app.writeFeed(w, "application/rss+xml; charset=utf-8", body)
}

func (app *application) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	body, err := app.core.Sitemap(r.Context())
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}
	app.writeFeed(w, "application/xml; charset=utf-8", body)
}

func (app *application) robotsHandler(w http.ResponseWriter, r *http.Request) {
	app.writeFeed(w, "text/plain; charset=utf-8", []byte(app.core.Robots()))
}

func (app *application) writeFeed(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		app.logger.Error(err.Error())
	}
}
