package qa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		q := r.URL.Query()
		json.NewEncoder(w).Encode(SearchResponse{
			Q: q.Get("q"),
			K: 2,
			Results: []SearchResult{
				{StoredFilename: "a.txt", ChunkID: 3, Score: 0.8, Text: "aldehyde protons appear near 9-10 ppm"},
			},
		})
	})
	mux.HandleFunc("/ask", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req AskRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(AskResponse{
			Answer:   "echo: " + req.Question,
			Contexts: []Context{{StoredFilename: "a.txt", ChunkID: req.TopK, Score: 0.5, Snippet: "..."}},
		})
	})
	mux.HandleFunc("/uploads", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(UploadList{Count: 1, Items: []Upload{{StoredFilename: "a.txt", Bytes: 42}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAsk(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL+"/", time.Second, 3, nil)

	resp, err := c.Ask(context.Background(), "where do aldehydes show up?", 0)
	require.NoError(t, err)
	assert.Equal(t, "echo: where do aldehydes show up?", resp.Answer)
	require.Len(t, resp.Contexts, 1)
	assert.Equal(t, 3, resp.Contexts[0].ChunkID, "default top_k is sent")
}

func TestSearch(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL, time.Second, 0, nil)
	resp, err := c.Search(context.Background(), "aldehyde & ppm", 2)
	require.NoError(t, err)
	assert.Equal(t, "aldehyde & ppm", resp.Q)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 0.8, resp.Results[0].Score)
}

func TestHealthAndUploads(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL, time.Second, 0, nil)
	require.NoError(t, c.Health(context.Background()))

	list, err := c.Uploads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, int64(42), list.Items[0].Bytes)
}

func TestEmptyQuestion(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second, 0, nil)
	_, err := c.Ask(context.Background(), "  ", 0)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	_, err = c.Search(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0, nil)
	_, err := c.Ask(context.Background(), "q", 1)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Contains(t, se.Body, "boom")
}

func TestUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"degraded"}`))
	}))
	defer srv.Close()
	assert.Error(t, NewClient(srv.URL, time.Second, 0, nil).Health(context.Background()))
}
