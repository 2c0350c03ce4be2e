package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.BoltDB.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the database folder, %v", err)
	}
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) BookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close() error {
	return bs.client.Close()
}

func (bs *boltBookStorage) bucket(tx *bolt.Tx) *bolt.Bucket {
	return tx.Bucket([]byte(bs.config.BucketName))
}

// Add inserts a new book record into boltdb store.
func (bs *boltBookStorage) Add(_ context.Context, id string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return NewStorageError(BoltDriver, "encode", err)
	}
	err = bs.client.Update(func(tx *bolt.Tx) error {
		return bs.bucket(tx).Put([]byte(id), bookBytes)
	})
	if err != nil {
		return NewStorageError(BoltDriver, "put", err)
	}
	return nil
}

// GetOne retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	var book Book
	// initialize a readable transaction.
	tx, err := bs.client.Begin(false)
	if err != nil {
		return book, NewStorageError(BoltDriver, "begin", err)
	}
	defer tx.Rollback()

	result := bs.bucket(tx).Get([]byte(id))
	if result == nil {
		return book, ErrBookNotFound
	}
	if err = json.Unmarshal(result, &book); err != nil {
		return Book{}, NewStorageError(BoltDriver, "decode", err)
	}
	return book, nil
}

// Delete removes a book record based on its ID from boltdb store.
func (bs *boltBookStorage) Delete(_ context.Context, id string) error {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		if b.Get([]byte(id)) == nil {
			return ErrBookNotFound
		}
		return b.Delete([]byte(id))
	})
	if err == ErrBookNotFound {
		return err
	}
	if err != nil {
		return NewStorageError(BoltDriver, "delete", err)
	}
	return nil
}

// Update replaces existing book record data. The existence check and
// the write happen into the same read-write transaction.
func (bs *boltBookStorage) Update(_ context.Context, id string, book Book) (Book, error) {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return book, NewStorageError(BoltDriver, "encode", err)
	}
	err = bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		if b.Get([]byte(id)) == nil {
			return ErrBookNotFound
		}
		return b.Put([]byte(id), bookBytes)
	})
	if err == ErrBookNotFound {
		return book, err
	}
	if err != nil {
		return book, NewStorageError(BoltDriver, "put", err)
	}
	return book, nil
}

// GetAll retrieves a list of all books stored in the bolt database.
func (bs *boltBookStorage) GetAll(_ context.Context) ([]Book, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, NewStorageError(BoltDriver, "begin", err)
	}
	defer tx.Rollback()

	// Create a cursor on the books' bucket.
	c := bs.bucket(tx).Cursor()

	books := []Book{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var book Book
		if err = json.Unmarshal(v, &book); err != nil {
			return nil, NewStorageError(BoltDriver, "decode", err)
		}
		books = append(books, book)
	}
	return books, nil
}
