package main

import (
	"errors"
	"net/http"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/core"
)

// multipartOverhead leaves room for boundaries and part headers around the
// file itself.
const multipartOverhead = 64 << 10

func (app *application) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, core.MaxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxBytesError *http.MaxBytesError
		message := "request must be a multipart form with a file field"
		if errors.As(err, &maxBytesError) {
			message = "file must not be larger than 5 MB"
		}
		app.badRequestResponse(w, r, &AppError{
			ErrorStack:   xerrors.New(err),
			ErrorDetails: map[string]string{"file": message},
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		app.badRequestResponse(w, r, &AppError{
			ErrorStack:   xerrors.New(err),
			ErrorDetails: map[string]string{"file": "must be provided"},
		})
		return
	}
	defer file.Close()

	stored, err := app.core.UploadImage(r.Context(), auth.CurrentUser(r), core.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusCreated, envelope{
		"url":  stored.URL,
		"path": stored.Path,
		"size": stored.Size,
		"type": stored.Type,
	}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) listUploadsHandler(w http.ResponseWriter, r *http.Request) {
	files, err := app.core.ListUploads(r.Context(), auth.CurrentUser(r), r.URL.Query().Get("prefix"))
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"files": files}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) deleteUploadHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.core.DeleteUpload(r.Context(), auth.CurrentUser(r), r.URL.Query().Get("path")); err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"success": true}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}
