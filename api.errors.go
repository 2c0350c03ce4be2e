package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// ErrHandle is a route handler which reports its failure instead of
// writing it. The returned error is turned into a response by Handle.
type ErrHandle func(http.ResponseWriter, *http.Request, httprouter.Params) error

// Handle adapts an ErrHandle into an httprouter.Handle. It is the single
// place where book handler failures become error responses. The action
// describes the operation in messages, e.g. "create the book".
func (api *APIHandler) Handle(action string, h ErrHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		err := h(w, r, ps)
		if err == nil {
			return
		}
		api.TranslateError(w, r, ps, action, err)
	}
}

// TranslateError maps err to its status code and sends the json error body.
func (api *APIHandler) TranslateError(w http.ResponseWriter, r *http.Request, ps httprouter.Params, action string, err error) {
	ctx := r.Context()
	requestID := GetValueFromContext(ctx, RequestIDContextKey)
	logger := api.GetLoggerFromContext(ctx)
	if id := ps.ByName("id"); id != "" {
		logger = logger.With(zap.String("book.id", id))
	}

	if ctx.Err() != nil {
		// the timeout handler or the client already ended the exchange.
		logger.Warn("request ended before completion", zap.String("action", action), zap.Error(err))
		_ = checkRequestContext(ctx, w)
		return
	}

	var errResp *APIError
	var verr *ValidationError
	var serr *StorageError
	switch {
	case errors.As(err, &verr):
		logger.Error("failed to "+action, zap.Error(err))
		errResp = NewAPIError(requestID, http.StatusBadRequest, "failed to "+action, verr.Reason)
	case errors.Is(err, ErrBookNotFound):
		logger.Error("book does not exist")
		errResp = NewAPIError(requestID, http.StatusNotFound, "book does not exist", EmptyData)
	case errors.As(err, &serr):
		logger.Error("failed to "+action, zap.String("storage.backend", serr.Backend), zap.String("storage.op", serr.Op), zap.Error(err))
		errResp = NewAPIError(requestID, http.StatusInternalServerError, "failed to "+action, EmptyData)
	default:
		logger.Error("failed to "+action, zap.Error(err))
		errResp = NewAPIError(requestID, http.StatusInternalServerError, "failed to "+action, EmptyData)
	}

	if werr := WriteErrorResponse(ctx, w, errResp); werr != nil {
		logger.Error("failed to send error response", zap.Error(werr))
	}
}

// NotFound serves the json body of requests which match no route.
func (api *APIHandler) NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
		if requestID == "" && api.idsHandler != nil {
			requestID = api.idsHandler.Generate(RequestIDPrefix)
		}
		resp := NotFoundResponse{
			RequestID: requestID,
			Message:   "route does not exist",
			Path:      r.Method + " " + r.URL.Path,
		}
		if err := writeJSON(w, http.StatusNotFound, resp); err != nil {
			api.logger.Error("failed to send not found response", zap.String("request.id", requestID), zap.Error(err))
		}
	})
}
