package main

import (
	"net/http"
)

func (app *application) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := app.core.ListCategories(r.Context())
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"categories": categories}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) listTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := app.core.ListTags(r.Context())
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"tags": tags}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) searchHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := app.core.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"posts": posts}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}
