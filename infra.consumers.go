package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// boltDBConsumer replays book mutations from the queues onto the
// boltdb replica. Updates and deletions of unknown books are skipped:
// creations are always popped first, so an unknown id on the update
// queue was already deleted and must not come back.
type boltDBConsumer struct {
	logger *zap.Logger
	queue  Queuer
	repo   BookStorage
}

func NewBoltDBConsumer(logger *zap.Logger, q Queuer, repo BookStorage) Consumer {
	return &boltDBConsumer{logger, q, repo}
}

func (bc *boltDBConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, book, err := bc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			bc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			bc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			continue
		}

		bc.apply(ctx, qid, book)
	}
}

func (bc *boltDBConsumer) apply(ctx context.Context, qid string, book Book) {
	switch qid {
	case CreateQueue:
		if err := bc.repo.Add(ctx, book.ID, book); err != nil {
			bc.logger.Error("consumer: failed to create", zap.String("book.id", book.ID), zap.Error(err))
		}
	case UpdateQueue:
		_, err := bc.repo.Update(ctx, book.ID, book)
		switch {
		case errors.Is(err, ErrBookNotFound):
			bc.logger.Warn("consumer: skip update of unknown book", zap.String("book.id", book.ID))
		case err != nil:
			bc.logger.Error("consumer: failed to update", zap.String("book.id", book.ID), zap.Error(err))
		}
	case DeleteQueue:
		err := bc.repo.Delete(ctx, book.ID)
		if err != nil && !errors.Is(err, ErrBookNotFound) {
			bc.logger.Error("consumer: failed to delete", zap.String("book.id", book.ID), zap.Error(err))
		}
	default:
		bc.logger.Warn("consumer: received book on unknown queue id", zap.String("qid", qid), zap.String("book.id", book.ID))
	}
}
