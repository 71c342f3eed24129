package book

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/api/auth"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

type BookHandler struct {
	bookService BookService
	logger      *slog.Logger
}

func NewBookHandler(bookService BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		logger:      logger,
	}
}

func (h *BookHandler) userID(w http.ResponseWriter, r *http.Request, l *slog.Logger) (uuid.UUID, bool) {
	userIDStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		l.ErrorContext(r.Context(), "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.ErrorContext(r.Context(), "Invalid user ID format", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

// bookID reads the {bookID} path param. Malformed ids are reported as not found.
func (h *BookHandler) bookID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "Book not found")
		return uuid.Nil, false
	}
	return id, true
}

func views(books []types.Book) []types.BookView {
	out := make([]types.BookView, 0, len(books))
	for _, b := range books {
		out = append(out, types.NewBookView(b))
	}
	return out
}

// ListBooks godoc
// @Summary      List books
// @Description  Returns every book owned by the caller.
// @Tags         Books
// @Produce      json
// @Success      200 {array} types.BookView
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /books [get]
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "ListBooks"))
	userID, ok := h.userID(w, r, l)
	if !ok {
		return
	}

	books, err := h.bookService.ListBooks(r.Context(), userID)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, views(books))
}

// CreateBook godoc
// @Summary      Create book
// @Tags         Books
// @Accept       json
// @Produce      json
// @Param        book body types.BookInput true "New book"
// @Success      201 {object} types.BookView
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /books [post]
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "CreateBook"))
	userID, ok := h.userID(w, r, l)
	if !ok {
		return
	}

	var input types.BookInput
	if err := api.DecodeJSONBody(w, r, &input); err != nil {
		l.WarnContext(r.Context(), "Failed to decode request", slog.Any("error", err))
		api.HandleServiceError(w, r, l, err)
		return
	}

	book, err := h.bookService.CreateBook(r.Context(), userID, input)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, types.NewBookView(*book))
}

// GetBook godoc
// @Summary      Get book
// @Tags         Books
// @Produce      json
// @Param        bookID path string true "Book ID"
// @Success      200 {object} types.BookView
// @Failure      404 {object} types.Response "Book not found"
// @Security     BearerAuth
// @Router       /books/{bookID} [get]
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "GetBook"))
	userID, ok := h.userID(w, r, l)
	if !ok {
		return
	}
	bookID, ok := h.bookID(w, r)
	if !ok {
		return
	}

	book, err := h.bookService.GetBook(r.Context(), userID, bookID)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.NewBookView(*book))
}

// UpdateBook godoc
// @Summary      Update book
// @Description  Applies the supplied fields. id, user_id and timestamps in the body are ignored.
// @Tags         Books
// @Accept       json
// @Produce      json
// @Param        bookID path string true "Book ID"
// @Param        book body types.UpdateBookParams true "Fields to change"
// @Success      200 {object} types.BookView
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      404 {object} types.Response "Book not found"
// @Security     BearerAuth
// @Router       /books/{bookID} [put]
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "UpdateBook"))
	userID, ok := h.userID(w, r, l)
	if !ok {
		return
	}
	bookID, ok := h.bookID(w, r)
	if !ok {
		return
	}

	var req types.UpdateBookRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(r.Context(), "Failed to decode request", slog.Any("error", err))
		api.HandleServiceError(w, r, l, err)
		return
	}

	book, err := h.bookService.UpdateBook(r.Context(), userID, bookID, req.UpdateBookParams)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.NewBookView(*book))
}

// DeleteBook godoc
// @Summary      Delete book
// @Description  Deleting an already deleted book returns 404.
// @Tags         Books
// @Param        bookID path string true "Book ID"
// @Success      204
// @Failure      404 {object} types.Response "Book not found"
// @Security     BearerAuth
// @Router       /books/{bookID} [delete]
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "DeleteBook"))
	userID, ok := h.userID(w, r, l)
	if !ok {
		return
	}
	bookID, ok := h.bookID(w, r)
	if !ok {
		return
	}

	if err := h.bookService.DeleteBook(r.Context(), userID, bookID); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// Categories godoc
// @Summary      Book categories
// @Description  The fixed set of categories a book may use.
// @Tags         Books
// @Produce      json
// @Success      200 {array} string
// @Security     BearerAuth
// @Router       /books/categories [get]
func (h *BookHandler) Categories(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, h.bookService.Categories())
}
