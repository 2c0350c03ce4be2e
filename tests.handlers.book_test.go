package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBookID = "b:cb8f2136-fae4-4200-85d9-3533c7f8c70d"

// newTestAPI builds an api handler over the given storage with a fixed clock.
func newTestAPI(storage BookStorage, queue Queuer) *APIHandler {
	clock := NewMockClocker()
	ids := NewIDsHandler()
	bs := NewBookService(zap.NewNop(), clock, ids, storage, queue)
	return NewAPIHandler(zap.NewNop(), &Config{}, &Statistics{started: clock.Now()}, clock, ids, bs)
}

func serve(h httprouter.Handle, method, target, body string, ps httprouter.Params) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h(w, req, ps)
	return w
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

// TestCreateBookHandler ensures api handler can create a book.
func TestCreateBookHandler(t *testing.T) {
	t.Run("should pass: valid payload", func(t *testing.T) {
		storage := newMemBookStorage()
		queue := &MockQueuer{}
		api := newTestAPI(storage, queue)
		h := api.Handle("create the book", api.CreateBook)

		w := serve(h, http.MethodPost, "/book", `{"name":"Dune","author":"Frank Herbert","num_pages":412,"tags":["scifi"]}`, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"))

		var book Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.True(t, strings.HasPrefix(book.ID, "b:"))
		assert.Equal(t, "Dune", book.Name)
		assert.Equal(t, "Frank Herbert", book.Author)
		assert.Equal(t, uint(412), book.NumPages)
		assert.Equal(t, []string{"scifi"}, book.Tags)
		assert.True(t, NewMockClocker().Now().Equal(book.AddedAt))

		stored, err := storage.GetOne(context.Background(), book.ID)
		assert.NoError(t, err)
		assert.Equal(t, "Dune", stored.Name)

		records := queue.records()
		require.Len(t, records, 1)
		assert.Equal(t, CreateQueue, records[0].qid)
	})

	t.Run("should pass: client id and added_at are ignored", func(t *testing.T) {
		api := newTestAPI(newMemBookStorage(), nil)
		h := api.Handle("create the book", api.CreateBook)

		w := serve(h, http.MethodPost, "/book", `{"id":"b:mine","name":"Dune","added_at":"1999-01-01T00:00:00Z"}`, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var book Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.NotEqual(t, "b:mine", book.ID)
		assert.True(t, NewMockClocker().Now().Equal(book.AddedAt))
		assert.Equal(t, []string{}, book.Tags)
	})

	t.Run("should pass: unparsable id and added_at are ignored", func(t *testing.T) {
		storage := newMemBookStorage()
		api := newTestAPI(storage, nil)
		h := api.Handle("create the book", api.CreateBook)

		w := serve(h, http.MethodPost, "/book", `{"id":42,"name":"Dune","added_at":"yesterday"}`, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var book Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.True(t, strings.HasPrefix(book.ID, "b:"))
		assert.True(t, NewMockClocker().Now().Equal(book.AddedAt))
	})

	t.Run("should pass: page count beyond 32 bits", func(t *testing.T) {
		storage := newMemBookStorage()
		api := newTestAPI(storage, nil)
		h := api.Handle("create the book", api.CreateBook)

		w := serve(h, http.MethodPost, "/book", `{"name":"Dune","num_pages":3000000000}`, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var book Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.Equal(t, uint(3000000000), book.NumPages)
	})

	testCases := []struct {
		name   string
		body   string
		reason string
	}{
		{"missing name", `{"author":"Frank Herbert"}`, "name is required"},
		{"too many pages", `{"name":"Dune","num_pages":9223372036854775808}`, "num_pages must not exceed 9223372036854775807"},
		{"empty name", `{"name":""}`, "name is required"},
		{"negative pages", `{"name":"Dune","num_pages":-1}`, "malformed json body"},
		{"malformed json", `{"name":`, "malformed json body"},
		{"empty body", "", "request body is empty"},
	}

	for _, tc := range testCases {
		t.Run("should fail: "+tc.name, func(t *testing.T) {
			storage := newMemBookStorage()
			api := newTestAPI(storage, nil)
			h := api.Handle("create the book", api.CreateBook)

			w := serve(h, http.MethodPost, "/book", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			apiErr := decodeAPIError(t, w)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, "failed to create the book", apiErr.Message)
			assert.Equal(t, tc.reason, apiErr.Data)

			books, err := storage.GetAll(context.Background())
			assert.NoError(t, err)
			assert.Empty(t, books)
		})
	}

	t.Run("should fail: storage insertion failure", func(t *testing.T) {
		mockRepo := &MockBookStorage{
			AddFunc: func(ctx context.Context, id string, book Book) error {
				return NewStorageError(RedisDriver, "hset", errors.New("connection refused"))
			},
		}
		api := newTestAPI(mockRepo, nil)
		h := api.Handle("create the book", api.CreateBook)

		w := serve(h, http.MethodPost, "/book", `{"name":"Dune"}`, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		apiErr := decodeAPIError(t, w)
		assert.Equal(t, "failed to create the book", apiErr.Message)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

// TestGetAllBooksHandler ensures api handler can list books.
func TestGetAllBooksHandler(t *testing.T) {
	t.Run("should pass: empty store", func(t *testing.T) {
		api := newTestAPI(newMemBookStorage(), nil)
		w := serve(api.Handle("get all books", api.GetAllBooks), http.MethodGet, "/book", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("should pass: stored books", func(t *testing.T) {
		storage := newMemBookStorage()
		_ = storage.Add(context.Background(), "b:1", Book{ID: "b:1", Name: "Dune", Tags: []string{}})
		_ = storage.Add(context.Background(), "b:2", Book{ID: "b:2", Name: "Emma", Tags: []string{}})
		api := newTestAPI(storage, nil)

		w := serve(api.Handle("get all books", api.GetAllBooks), http.MethodGet, "/book", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var books []Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &books))
		require.Len(t, books, 2)
		assert.Equal(t, "Dune", books[0].Name)
		assert.Equal(t, "Emma", books[1].Name)
	})

	t.Run("should fail: storage failure", func(t *testing.T) {
		mockRepo := &MockBookStorage{
			GetAllFunc: func(ctx context.Context) ([]Book, error) {
				return nil, NewStorageError(PostgresDriver, "select", errors.New("broken pipe"))
			},
		}
		api := newTestAPI(mockRepo, nil)
		w := serve(api.Handle("get all books", api.GetAllBooks), http.MethodGet, "/book", "", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to get all books", decodeAPIError(t, w).Message)
	})
}

// TestUpdateBookHandler ensures api handler can edit a book.
func TestUpdateBookHandler(t *testing.T) {
	original := Book{
		ID:       testBookID,
		Name:     "Dune",
		Author:   "Frank Herbert",
		NumPages: 412,
		AddedAt:  NewMockClocker().Now(),
		Tags:     []string{"scifi"},
	}
	ps := httprouter.Params{{Key: "id", Value: testBookID}}

	t.Run("should pass: partial update", func(t *testing.T) {
		storage := newMemBookStorage()
		_ = storage.Add(context.Background(), testBookID, original)
		queue := &MockQueuer{}
		api := newTestAPI(storage, queue)
		h := api.Handle("update the book", api.UpdateBook)

		w := serve(h, http.MethodPut, "/book/"+testBookID, `{"num_pages":500,"id":"b:other","added_at":"1999-01-01T00:00:00Z"}`, ps)
		assert.Equal(t, http.StatusOK, w.Code)

		var book Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.Equal(t, testBookID, book.ID)
		assert.Equal(t, "Dune", book.Name)
		assert.Equal(t, "Frank Herbert", book.Author)
		assert.Equal(t, uint(500), book.NumPages)
		assert.Equal(t, []string{"scifi"}, book.Tags)
		assert.True(t, original.AddedAt.Equal(book.AddedAt))

		stored, err := storage.GetOne(context.Background(), testBookID)
		assert.NoError(t, err)
		assert.Equal(t, uint(500), stored.NumPages)

		records := queue.records()
		require.Len(t, records, 1)
		assert.Equal(t, UpdateQueue, records[0].qid)
	})

	t.Run("should pass: tags can be cleared", func(t *testing.T) {
		storage := newMemBookStorage()
		_ = storage.Add(context.Background(), testBookID, original)
		api := newTestAPI(storage, nil)

		w := serve(api.Handle("update the book", api.UpdateBook), http.MethodPut, "/book/"+testBookID, `{"tags":[]}`, ps)
		assert.Equal(t, http.StatusOK, w.Code)
		var book Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.Equal(t, []string{}, book.Tags)
	})

	t.Run("should fail: non existent book", func(t *testing.T) {
		api := newTestAPI(newMemBookStorage(), nil)
		w := serve(api.Handle("update the book", api.UpdateBook), http.MethodPut, "/book/"+testBookID, `{"name":"Emma"}`, ps)
		assert.Equal(t, http.StatusNotFound, w.Code)
		apiErr := decodeAPIError(t, w)
		assert.Equal(t, "book does not exist", apiErr.Message)
	})

	t.Run("should fail: malformed id", func(t *testing.T) {
		api := newTestAPI(newMemBookStorage(), nil)
		bad := httprouter.Params{{Key: "id", Value: "not-an-id"}}
		w := serve(api.Handle("update the book", api.UpdateBook), http.MethodPut, "/book/not-an-id", `{"name":"Emma"}`, bad)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should fail: empty name", func(t *testing.T) {
		storage := newMemBookStorage()
		_ = storage.Add(context.Background(), testBookID, original)
		api := newTestAPI(storage, nil)

		w := serve(api.Handle("update the book", api.UpdateBook), http.MethodPut, "/book/"+testBookID, `{"name":""}`, ps)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		apiErr := decodeAPIError(t, w)
		assert.Equal(t, "failed to update the book", apiErr.Message)
		assert.Equal(t, "name must not be empty", apiErr.Data)

		stored, _ := storage.GetOne(context.Background(), testBookID)
		assert.Equal(t, "Dune", stored.Name)
	})

	t.Run("should fail: too many pages", func(t *testing.T) {
		storage := newMemBookStorage()
		_ = storage.Add(context.Background(), testBookID, original)
		api := newTestAPI(storage, nil)

		w := serve(api.Handle("update the book", api.UpdateBook), http.MethodPut, "/book/"+testBookID, `{"num_pages":18446744073709551615}`, ps)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "num_pages must not exceed 9223372036854775807", decodeAPIError(t, w).Data)

		stored, _ := storage.GetOne(context.Background(), testBookID)
		assert.Equal(t, uint(412), stored.NumPages)
	})

	t.Run("should fail: malformed json", func(t *testing.T) {
		storage := newMemBookStorage()
		_ = storage.Add(context.Background(), testBookID, original)
		api := newTestAPI(storage, nil)

		w := serve(api.Handle("update the book", api.UpdateBook), http.MethodPut, "/book/"+testBookID, `{"num_pages":"many"}`, ps)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should fail: storage failure", func(t *testing.T) {
		mockRepo := &MockBookStorage{
			GetOneFunc: func(ctx context.Context, id string) (Book, error) {
				return original, nil
			},
			UpdateFunc: func(ctx context.Context, id string, book Book) (Book, error) {
				return book, NewStorageError(BoltDriver, "put", errors.New("disk full"))
			},
		}
		api := newTestAPI(mockRepo, nil)
		w := serve(api.Handle("update the book", api.UpdateBook), http.MethodPut, "/book/"+testBookID, `{"name":"Emma"}`, ps)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to update the book", decodeAPIError(t, w).Message)
	})
}

// TestDeleteOneBookHandler ensures api handler can delete a book.
func TestDeleteOneBookHandler(t *testing.T) {
	ps := httprouter.Params{{Key: "id", Value: testBookID}}

	t.Run("should pass: existent book", func(t *testing.T) {
		storage := newMemBookStorage()
		_ = storage.Add(context.Background(), testBookID, Book{ID: testBookID, Name: "Dune"})
		queue := &MockQueuer{}
		api := newTestAPI(storage, queue)

		w := serve(api.Handle("delete the book", api.DeleteOneBook), http.MethodDelete, "/book/"+testBookID, "", ps)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"`+testBookID+`"}`, w.Body.String())

		_, err := storage.GetOne(context.Background(), testBookID)
		assert.ErrorIs(t, err, ErrBookNotFound)

		records := queue.records()
		require.Len(t, records, 1)
		assert.Equal(t, DeleteQueue, records[0].qid)
		assert.Equal(t, testBookID, records[0].book.ID)
	})

	t.Run("should fail: non existent book", func(t *testing.T) {
		queue := &MockQueuer{}
		api := newTestAPI(newMemBookStorage(), queue)
		w := serve(api.Handle("delete the book", api.DeleteOneBook), http.MethodDelete, "/book/"+testBookID, "", ps)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "book does not exist", decodeAPIError(t, w).Message)
		assert.Empty(t, queue.records())
	})

	t.Run("should fail: storage failure", func(t *testing.T) {
		mockRepo := &MockBookStorage{
			DeleteFunc: func(ctx context.Context, id string) error {
				return NewStorageError(RedisDriver, "hdel", errors.New("i/o timeout"))
			},
		}
		api := newTestAPI(mockRepo, nil)
		w := serve(api.Handle("delete the book", api.DeleteOneBook), http.MethodDelete, "/book/"+testBookID, "", ps)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to delete the book", decodeAPIError(t, w).Message)
	})
}
