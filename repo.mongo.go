package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// mongoBook is the stored form of a book. The page count is kept
// as a signed 64 bits integer which is the widest bson integer.
type mongoBook struct {
	ID       string    `bson:"_id"`
	Name     string    `bson:"name"`
	Author   string    `bson:"author"`
	NumPages int64     `bson:"num_pages"`
	AddedAt  time.Time `bson:"added_at"`
	Tags     []string  `bson:"tags"`
}

func (mb mongoBook) book() Book {
	return Book{
		ID:       mb.ID,
		Name:     mb.Name,
		Author:   mb.Author,
		NumPages: uint(mb.NumPages),
		AddedAt:  mb.AddedAt.UTC(),
		Tags:     tagsOrEmpty(mb.Tags),
	}
}

type mongoBookStorage struct {
	logger     *zap.Logger
	collection *mongo.Collection
}

// NewMongoBookStorage provides an instance of mongodb-based book storage.
func NewMongoBookStorage(logger *zap.Logger, config *MongoConfig, client *mongo.Client) BookStorage {
	return &mongoBookStorage{
		logger:     logger,
		collection: client.Database(config.Database).Collection(config.Collection),
	}
}

// GetMongoClient connects to the mongodb server and checks it answers.
func GetMongoClient(ctx context.Context, config *Config) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(config.Mongo.URI)
	if config.Mongo.ConnectTimeout > 0 {
		opts.SetConnectTimeout(config.Mongo.ConnectTimeout).SetServerSelectionTimeout(config.Mongo.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("test connection failed: %w", err)
	}
	return client, nil
}

// Add inserts a new book record.
func (ms *mongoBookStorage) Add(ctx context.Context, id string, book Book) error {
	_, err := ms.collection.InsertOne(ctx, mongoBook{
		ID:       id,
		Name:     book.Name,
		Author:   book.Author,
		NumPages: int64(book.NumPages),
		AddedAt:  book.AddedAt,
		Tags:     tagsOrEmpty(book.Tags),
	})
	if err != nil {
		return NewStorageError(MongoDriver, "insert", err)
	}
	return nil
}

// GetOne retrieves a book record based on its ID.
func (ms *mongoBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	var mb mongoBook
	err := ms.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&mb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, NewStorageError(MongoDriver, "find", err)
	}
	return mb.book(), nil
}

// Delete removes a book record based on its ID.
func (ms *mongoBookStorage) Delete(ctx context.Context, id string) error {
	res, err := ms.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return NewStorageError(MongoDriver, "delete", err)
	}
	if res.DeletedCount == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Update sets the content fields of an existing record. The
// creation time field is never part of the update document.
func (ms *mongoBookStorage) Update(ctx context.Context, id string, book Book) (Book, error) {
	res, err := ms.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":      book.Name,
		"author":    book.Author,
		"num_pages": int64(book.NumPages),
		"tags":      tagsOrEmpty(book.Tags),
	}})
	if err != nil {
		return book, NewStorageError(MongoDriver, "update", err)
	}
	if res.MatchedCount == 0 {
		return book, ErrBookNotFound
	}
	return book, nil
}

// GetAll retrieves all books stored in the collection.
func (ms *mongoBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	cursor, err := ms.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, NewStorageError(MongoDriver, "find", err)
	}

	var docs []mongoBook
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, NewStorageError(MongoDriver, "cursor", err)
	}

	books := make([]Book, 0, len(docs))
	for _, mb := range docs {
		books = append(books, mb.book())
	}
	return books, nil
}
