package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const createBooksTable = `
CREATE TABLE IF NOT EXISTS books (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	author     TEXT NOT NULL DEFAULT '',
	num_pages  BIGINT NOT NULL DEFAULT 0 CHECK (num_pages >= 0),
	added_at   TIMESTAMPTZ NOT NULL,
	tags       TEXT[] NOT NULL DEFAULT '{}'
)`

type postgresBookStorage struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, pool *pgxpool.Pool) BookStorage {
	return &postgresBookStorage{
		logger: logger,
		pool:   pool,
	}
}

// GetPostgresPool opens a connection pool, checks the server
// is reachable and ensures the books table exists.
func GetPostgresPool(ctx context.Context, config *Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if config.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = config.Postgres.MaxConns
	}
	if config.Postgres.MinConns > 0 {
		poolConfig.MinConns = config.Postgres.MinConns
	}
	if config.Postgres.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.Postgres.MaxConnLifetime
	}
	if config.Postgres.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = config.Postgres.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("test connection failed: %w", err)
	}
	if _, err = pool.Exec(ctx, createBooksTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create books table: %w", err)
	}
	return pool, nil
}

// Add inserts a new book record.
func (ps *postgresBookStorage) Add(ctx context.Context, id string, book Book) error {
	_, err := ps.pool.Exec(ctx,
		`INSERT INTO books (id, name, author, num_pages, added_at, tags) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, book.Name, book.Author, int64(book.NumPages), book.AddedAt, tagsOrEmpty(book.Tags),
	)
	if err != nil {
		return NewStorageError(PostgresDriver, "insert", err)
	}
	return nil
}

// GetOne retrieves a book record based on its ID.
func (ps *postgresBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT id, name, author, num_pages, added_at, tags FROM books WHERE id = $1`, id)
	book, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, NewStorageError(PostgresDriver, "select", err)
	}
	return book, nil
}

// Delete removes a book record based on its ID.
func (ps *postgresBookStorage) Delete(ctx context.Context, id string) error {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return NewStorageError(PostgresDriver, "delete", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Update overwrites the content fields of an existing record. The
// creation time column is never part of the statement.
func (ps *postgresBookStorage) Update(ctx context.Context, id string, book Book) (Book, error) {
	tag, err := ps.pool.Exec(ctx,
		`UPDATE books SET name = $2, author = $3, num_pages = $4, tags = $5 WHERE id = $1`,
		id, book.Name, book.Author, int64(book.NumPages), tagsOrEmpty(book.Tags),
	)
	if err != nil {
		return book, NewStorageError(PostgresDriver, "update", err)
	}
	if tag.RowsAffected() == 0 {
		return book, ErrBookNotFound
	}
	return book, nil
}

// GetAll retrieves all books stored in the books table.
func (ps *postgresBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	rows, err := ps.pool.Query(ctx, `SELECT id, name, author, num_pages, added_at, tags FROM books`)
	if err != nil {
		return nil, NewStorageError(PostgresDriver, "select", err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, NewStorageError(PostgresDriver, "scan", err)
		}
		books = append(books, book)
	}
	if err = rows.Err(); err != nil {
		return nil, NewStorageError(PostgresDriver, "rows", err)
	}
	return books, nil
}

func scanBook(row pgx.Row) (Book, error) {
	var book Book
	var numPages int64
	err := row.Scan(&book.ID, &book.Name, &book.Author, &numPages, &book.AddedAt, &book.Tags)
	if err != nil {
		return Book{}, err
	}
	book.NumPages = uint(numPages)
	book.AddedAt = book.AddedAt.UTC()
	book.Tags = tagsOrEmpty(book.Tags)
	return book, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
