package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupBookRoutes injects the public and book related endpoints.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))
	router.POST("/book", m.public(api.Handle("create the book", api.CreateBook)))
	router.GET("/book", m.public(api.Handle("get all books", api.GetAllBooks)))
	router.PUT("/book/:id", m.public(api.Handle("update the book", api.UpdateBook)))
	router.DELETE("/book/:id", m.public(api.Handle("delete the book", api.DeleteOneBook)))
	return router
}
