package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs.
const (
	CreateQueue = "books:creation"
	UpdateQueue = "books:updating"
	DeleteQueue = "books:deletion"
)

// queuePopTimeout bounds each BLPOP so a cancelled context is noticed
// even when no book is ever pushed.
const queuePopTimeout = time.Second

var (
	_ Queuer = (*redisQueue)(nil)
	_ Queuer = noopQueue{}
)

// Queuer describes a queue.
type Queuer interface {
	Push(ctx context.Context, qid string, book Book) error
	Pop(ctx context.Context, qids ...string) (string, Book, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client}
}

// Push enqueues a book onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, bookBytes).Err()
}

// Pop blocks until a book is available on one of the queue ids
// then returns it with the id of the queue it came from. It
// returns the context error once ctx is done.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	var book Book
	for {
		if err := ctx.Err(); err != nil {
			return "", book, err
		}

		infos, err := q.client.BLPop(ctx, queuePopTimeout, qids...).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", book, err
		}

		if err = json.Unmarshal([]byte(infos[1]), &book); err != nil {
			return "", book, err
		}
		return infos[0], book, nil
	}
}

// noopQueue is used when replication is disabled.
type noopQueue struct{}

func (noopQueue) Push(context.Context, string, Book) error { return nil }

func (noopQueue) Pop(ctx context.Context, _ ...string) (string, Book, error) {
	<-ctx.Done()
	return "", Book{}, ctx.Err()
}
