package book

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/Phelioume11/SymfonProject/internal/api"
	"github.com/Phelioume11/SymfonProject/internal/api/auth"
	"github.com/Phelioume11/SymfonProject/internal/assets"
	"github.com/Phelioume11/SymfonProject/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	List(w http.ResponseWriter, r *http.Request)
	MyBooks(w http.ResponseWriter, r *http.Request)
	Show(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Genres(w http.ResponseWriter, r *http.Request)
	ServeCover(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	bookService BookService
	store       *assets.Store
	logger      *slog.Logger
	maxUpload   int64
}

// NewHandlerImpl creates a new book HandlerImpl instance.
func NewHandlerImpl(bookService BookService, store *assets.Store, maxUpload int64, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		bookService: bookService,
		store:       store,
		logger:      logger,
		maxUpload:   maxUpload,
	}
}

// List returns the public catalogue index, filtered by the optional
// genre and q query parameters.
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "List"))

	filter := filterFromQuery(r)
	books, err := h.bookService.List(ctx, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list books", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list books")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, ListBooksResponse{
		Books:  books,
		Genres: types.Genres,
		Genre:  filter.Genre,
		Query:  filter.Query,
	})
}

// MyBooks returns the authenticated actor's own records.
func (h *HandlerImpl) MyBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "MyBooks"))

	actor, ok := auth.GetActorFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	filter := filterFromQuery(r)
	books, err := h.bookService.ListByOwner(ctx, actor.ID, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list own books", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list books")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, ListBooksResponse{
		Books:  books,
		Genres: types.Genres,
		Genre:  filter.Genre,
		Query:  filter.Query,
	})
}

// Show returns a single record by slug. can_edit reflects the optional
// authenticated actor.
func (h *HandlerImpl) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Show"))

	slug := chi.URLParam(r, "slug")
	bookRecord, err := h.bookService.GetBySlug(ctx, slug)
	if err != nil {
		h.respondServiceError(w, r, l, err)
		return
	}

	canEdit := false
	if actor, ok := auth.GetActorFromContext(ctx); ok {
		canEdit = actor.IsAdmin() || actor.ID == bookRecord.UserID
	}

	api.WriteJSONResponse(w, r, http.StatusOK, BookResponse{Book: *bookRecord, CanEdit: canEdit})
}

// Create makes a new record from a multipart form (fields title, author,
// description, genre; optional cover file part).
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Create"))

	actor, ok := auth.GetActorFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.parseForm(w, r); err != nil {
		h.respondFormError(w, r, err)
		return
	}

	params := types.CreateBookParams{
		Title:  r.FormValue("title"),
		Author: r.FormValue("author"),
		Genre:  r.FormValue("genre"),
	}
	if desc := r.FormValue("description"); desc != "" {
		params.Description = &desc
	}

	upload, err := readUpload(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Failed to read cover upload")
		return
	}

	created, err := h.bookService.Create(ctx, actor, params, upload)
	if err != nil {
		h.respondServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, BookResponse{Book: *created, CanEdit: true})
}

// Update edits the record addressed by slug. Only fields present in the
// multipart form are changed.
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Update"))

	actor, ok := auth.GetActorFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.parseForm(w, r); err != nil {
		h.respondFormError(w, r, err)
		return
	}

	var params types.UpdateBookParams
	for field, dst := range map[string]**string{
		"title":       &params.Title,
		"author":      &params.Author,
		"description": &params.Description,
		"genre":       &params.Genre,
	} {
		if values, present := r.MultipartForm.Value[field]; present && len(values) > 0 {
			v := values[0]
			*dst = &v
		}
	}

	upload, err := readUpload(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Failed to read cover upload")
		return
	}

	updated, err := h.bookService.Update(ctx, actor, chi.URLParam(r, "slug"), params, upload)
	if err != nil {
		h.respondServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, BookResponse{Book: *updated, CanEdit: true})
}

// Delete removes the record addressed by slug, including its cover asset.
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Delete"))

	actor, ok := auth.GetActorFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.bookService.Delete(ctx, actor, chi.URLParam(r, "slug")); err != nil {
		h.respondServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// Genres returns the fixed genre enumeration.
func (h *HandlerImpl) Genres(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, GenresResponse{Genres: types.Genres})
}

// ServeCover streams a stored cover file.
func (h *HandlerImpl) ServeCover(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(chi.URLParam(r, "filename"))
	if !h.store.Exists(name) {
		api.ErrorResponse(w, r, http.StatusNotFound, "Cover not found")
		return
	}
	http.ServeFile(w, r, h.store.Path(name))
}

func (h *HandlerImpl) respondServiceError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, types.ErrValidation):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "You may not modify this book")
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Book not found")
	case errors.Is(err, types.ErrConflict):
		api.ErrorResponse(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrStorage):
		l.ErrorContext(ctx, "Asset store failure", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to store cover image")
	default:
		l.ErrorContext(ctx, "Unexpected service error", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// parseForm caps the request body at the configured upload limit before
// parsing. Without the reader cap, oversized parts would spill to temp
// files and still be accepted.
func (h *HandlerImpl) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	return r.ParseMultipartForm(h.maxUpload)
}

func (h *HandlerImpl) respondFormError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesError *http.MaxBytesError
	if errors.As(err, &maxBytesError) {
		api.ErrorResponse(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body must not be larger than %d bytes", maxBytesError.Limit))
		return
	}
	api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid multipart form")
}

func filterFromQuery(r *http.Request) types.BookFilter {
	return types.BookFilter{
		Genre: r.URL.Query().Get("genre"),
		Query: r.URL.Query().Get("q"),
	}
}

// readUpload extracts the optional cover file part.
func readUpload(r *http.Request) (*types.FileUpload, error) {
	file, header, err := r.FormFile("cover")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &types.FileUpload{Data: data, Filename: header.Filename}, nil
}
