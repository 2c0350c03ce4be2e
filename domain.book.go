package main

import (
	"context"
	"math"
	"time"
)

// MaxNumPages is the largest page count every storage backend can hold.
const MaxNumPages = math.MaxInt64

// Book represents a book entity.
type Book struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Author   string    `json:"author"`
	NumPages uint      `json:"num_pages"`
	AddedAt  time.Time `json:"added_at"`
	Tags     []string  `json:"tags"`
}

// BookPayload is the payload of a creation request. The identifier
// and the creation time are assigned by the service so any value the
// client sends for them is dropped at decoding.
type BookPayload struct {
	Name     string   `json:"name" validate:"required"`
	Author   string   `json:"author"`
	NumPages uint     `json:"num_pages" validate:"max=9223372036854775807"`
	Tags     []string `json:"tags"`
}

// Book returns the book described by the payload.
func (p BookPayload) Book() Book {
	return Book{Name: p.Name, Author: p.Author, NumPages: p.NumPages, Tags: p.Tags}
}

// BookUpdate is the payload of an edit request. Only
// non-nil fields are applied to the stored book.
type BookUpdate struct {
	Name     *string   `json:"name" validate:"omitnil,min=1"`
	Author   *string   `json:"author"`
	NumPages *uint     `json:"num_pages" validate:"omitnil,max=9223372036854775807"`
	Tags     *[]string `json:"tags"`
}

// Apply returns a copy of book with the update fields set. The
// identifier and the creation time are never modified.
func (u BookUpdate) Apply(book Book) Book {
	if u.Name != nil {
		book.Name = *u.Name
	}
	if u.Author != nil {
		book.Author = *u.Author
	}
	if u.NumPages != nil {
		book.NumPages = *u.NumPages
	}
	if u.Tags != nil {
		book.Tags = append([]string{}, (*u.Tags)...)
	}
	if book.Tags == nil {
		book.Tags = []string{}
	}
	return book
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	Add(ctx context.Context, id string, book Book) error
	GetOne(ctx context.Context, id string) (Book, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, book Book) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
}
