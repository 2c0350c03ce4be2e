package main

import (
	"context"
	"sort"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	AddFunc    func(ctx context.Context, id string, book Book) error
	GetOneFunc func(ctx context.Context, id string) (Book, error)
	DeleteFunc func(ctx context.Context, id string) error
	UpdateFunc func(ctx context.Context, id string, book Book) (Book, error)
	GetAllFunc func(ctx context.Context) ([]Book, error)
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, id string, book Book) error {
	return m.AddFunc(ctx, id, book)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, id string, book Book) (Book, error) {
	return m.UpdateFunc(ctx, id, book)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// memBookStorage is an in-memory BookStorage with the same
// not found semantics as the real backends.
type memBookStorage struct {
	mu    sync.Mutex
	books map[string]Book
}

func newMemBookStorage() *memBookStorage {
	return &memBookStorage{books: make(map[string]Book)}
}

func (m *memBookStorage) Add(_ context.Context, id string, book Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[id] = book
	return nil
}

func (m *memBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

func (m *memBookStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return ErrBookNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *memBookStorage) Update(_ context.Context, id string, book Book) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return book, ErrBookNotFound
	}
	m.books[id] = book
	return book, nil
}

func (m *memBookStorage) GetAll(_ context.Context) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	books := []Book{}
	for _, book := range m.books {
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

// pushed is a book recorded by MockQueuer with its queue id.
type pushed struct {
	qid  string
	book Book
}

// MockQueuer records pushed books and replays them on Pop.
type MockQueuer struct {
	mu       sync.Mutex
	PushErr  error
	Pushed   []pushed
	popIndex int
}

func (mq *MockQueuer) Push(_ context.Context, qid string, book Book) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.PushErr != nil {
		return mq.PushErr
	}
	mq.Pushed = append(mq.Pushed, pushed{qid, book})
	return nil
}

// Pop returns the recorded books in order then blocks until ctx is done.
func (mq *MockQueuer) Pop(ctx context.Context, _ ...string) (string, Book, error) {
	mq.mu.Lock()
	if mq.popIndex < len(mq.Pushed) {
		p := mq.Pushed[mq.popIndex]
		mq.popIndex++
		mq.mu.Unlock()
		return p.qid, p.book, nil
	}
	mq.mu.Unlock()
	<-ctx.Done()
	return "", Book{}, ctx.Err()
}

func (mq *MockQueuer) records() []pushed {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return append([]pushed{}, mq.Pushed...)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}
