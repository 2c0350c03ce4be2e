package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// DeleteBookResponse is sent once a book was removed.
type DeleteBookResponse struct {
	ID string `json:"id"`
}

// CreateBook godoc
//
//	@Summary	Create a book
//	@Tags		books
//	@Accept		json
//	@Produce	json
//	@Param		book	body		BookPayload	true	"book to create"
//	@Success	200		{object}	Book
//	@Failure	400		{object}	APIError
//	@Failure	500		{object}	APIError
//	@Router		/book [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	var payload BookPayload
	if err := DecodeBookRequestBody(r, &payload); err != nil {
		return err
	}
	if err := ValidateBookPayload(payload); err != nil {
		return err
	}

	book, err := api.bookService.Add(r.Context(), payload.Book())
	if err != nil {
		return err
	}

	logger := api.GetLoggerFromContext(r.Context())
	logger.Info("success to create book", zap.String("book.id", book.ID))
	if err = WriteResponse(r.Context(), w, http.StatusOK, book); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
	return nil
}

// GetAllBooks godoc
//
//	@Summary	List all books
//	@Tags		books
//	@Produce	json
//	@Success	200	{array}		Book
//	@Failure	500	{object}	APIError
//	@Router		/book [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	books, err := api.bookService.GetAll(r.Context())
	if err != nil {
		return err
	}

	logger := api.GetLoggerFromContext(r.Context())
	logger.Info("success to get all books", zap.Int("books.total", len(books)))
	if err = WriteResponse(r.Context(), w, http.StatusOK, books); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
	return nil
}

// UpdateBook godoc
//
//	@Summary	Edit a book
//	@Tags		books
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string		true	"book id"
//	@Param		book	body		BookUpdate	true	"fields to change"
//	@Success	200		{object}	Book
//	@Failure	400		{object}	APIError
//	@Failure	404		{object}	APIError
//	@Failure	500		{object}	APIError
//	@Router		/book/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id := ps.ByName("id")
	// malformed ids cannot match any stored book.
	if !api.idsHandler.IsValid(id, BookIDPrefix) {
		return ErrBookNotFound
	}

	var update BookUpdate
	if err := DecodeBookRequestBody(r, &update); err != nil {
		return err
	}
	if err := ValidateBookPayload(update); err != nil {
		return err
	}

	book, err := api.bookService.Update(r.Context(), id, update)
	if err != nil {
		return err
	}

	logger := api.GetLoggerFromContext(r.Context())
	logger.Info("success to update book", zap.String("book.id", id))
	if err = WriteResponse(r.Context(), w, http.StatusOK, book); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
	return nil
}

// DeleteOneBook godoc
//
//	@Summary	Delete a book
//	@Tags		books
//	@Produce	json
//	@Param		id	path		string	true	"book id"
//	@Success	200	{object}	DeleteBookResponse
//	@Failure	404	{object}	APIError
//	@Failure	500	{object}	APIError
//	@Router		/book/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id := ps.ByName("id")
	if !api.idsHandler.IsValid(id, BookIDPrefix) {
		return ErrBookNotFound
	}

	if err := api.bookService.Delete(r.Context(), id); err != nil {
		return err
	}

	logger := api.GetLoggerFromContext(r.Context())
	logger.Info("success to delete book", zap.String("book.id", id))
	if err := WriteResponse(r.Context(), w, http.StatusOK, DeleteBookResponse{ID: id}); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
	return nil
}
