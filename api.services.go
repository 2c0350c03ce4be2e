package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	Add(ctx context.Context, book Book) (Book, error)
	GetOne(ctx context.Context, id string) (Book, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, update BookUpdate) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
}

// BookService is the only path from the handlers to the storage.
// Every successful mutation is pushed to the replication queue.
type BookService struct {
	logger  *zap.Logger
	clock   Clocker
	ids     UIDHandler
	storage BookStorage
	queue   Queuer
}

func NewBookService(logger *zap.Logger, clock Clocker, ids UIDHandler, storage BookStorage, queue Queuer) BookServiceProvider {
	if queue == nil {
		queue = noopQueue{}
	}
	return &BookService{
		logger:  logger,
		clock:   clock,
		ids:     ids,
		storage: storage,
		queue:   queue,
	}
}

// Add assigns the identifier and the creation time then persists the book.
// Any id or added_at value provided by the caller is overwritten.
func (bs *BookService) Add(ctx context.Context, book Book) (Book, error) {
	book.ID = bs.ids.Generate(BookIDPrefix)
	// mongodb keeps milliseconds, so every backend stores the same value.
	book.AddedAt = bs.clock.Now().UTC().Truncate(time.Millisecond)
	if book.Tags == nil {
		book.Tags = []string{}
	}
	if err := bs.storage.Add(ctx, book.ID, book); err != nil {
		return book, err
	}
	bs.push(ctx, CreateQueue, book)
	return book, nil
}

func (bs *BookService) GetOne(ctx context.Context, id string) (Book, error) {
	return bs.storage.GetOne(ctx, id)
}

func (bs *BookService) Delete(ctx context.Context, id string) error {
	if err := bs.storage.Delete(ctx, id); err != nil {
		return err
	}
	bs.push(ctx, DeleteQueue, Book{ID: id})
	return nil
}

// Update merges the provided fields into the stored book. It fails
// with ErrBookNotFound when no book matches the id.
func (bs *BookService) Update(ctx context.Context, id string, update BookUpdate) (Book, error) {
	current, err := bs.storage.GetOne(ctx, id)
	if err != nil {
		return Book{}, err
	}
	book, err := bs.storage.Update(ctx, id, update.Apply(current))
	if err != nil {
		return Book{}, err
	}
	bs.push(ctx, UpdateQueue, book)
	return book, nil
}

func (bs *BookService) GetAll(ctx context.Context) ([]Book, error) {
	books, err := bs.storage.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

func (bs *BookService) push(ctx context.Context, qid string, book Book) {
	if err := bs.queue.Push(ctx, qid, book); err != nil {
		bs.logger.Error("service: failed to push book to queue", zap.String("qid", qid), zap.String("book.id", book.ID), zap.Error(err))
	}
}
