package controllers

import (
	"net/http"

	"github.com/angelmondragon/library-backend/api/responses"
	"github.com/angelmondragon/library-backend/api/validators"
	"github.com/angelmondragon/library-backend/internal/books"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

const maxAuthorQueryLen = 50

type createBookRequest struct {
	Title  string  `json:"title" validate:"required,notblank,min=1,max=100"`
	Author string  `json:"author" validate:"required,notblank,min=2,max=50"`
	Genre  *string `json:"genre,omitempty" validate:"omitempty,max=30"`
}

func (r createBookRequest) toInput() books.CreateBookInput {
	return books.CreateBookInput{Title: r.Title, Author: r.Author, Genre: r.Genre}
}

// CreateBook adds a catalog entry.
func CreateBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "book service unavailable"))
			return
		}

		var payload createBookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.CreateBook(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

func GetBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "book service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.GetBook(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, book)
	}
}

// ListBooks filters by ?author= fragment; an empty fragment lists the catalog.
func ListBooks(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "book service unavailable"))
			return
		}

		author := validators.ParseQueryString(r, "author", maxAuthorQueryLen)
		list, err := svc.SearchByAuthor(r.Context(), author)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// DeleteBook removes a book along with its reservations.
func DeleteBook(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "book service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteBook(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteNoContent(w)
	}
}
