package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tradecheck/internal/resilience"
)

func TestEmbed_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req EmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jina-embeddings-v3", req.Model)
		assert.Equal(t, []string{"frozen chicken", "steel frames"}, req.Input)
		assert.Equal(t, TaskRetrievalQuery, req.Task)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(EmbedResponse{
			Model: req.Model,
			Data: []EmbeddingData{
				{Index: 0, Embedding: []float32{0.1, 0.2}},
				{Index: 1, Embedding: []float32{0.3, 0.4}},
			},
			Usage: EmbedUsage{TotalTokens: 9, PromptTokens: 9},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.Embed(context.Background(), EmbedRequest{
		Model: "jina-embeddings-v3",
		Input: []string{"frozen chicken", "steel frames"},
		Task:  TaskRetrievalQuery,
	})

	require.NoError(t, err)
	require.Len(t, got.Data, 2)
	assert.Equal(t, []float32{0.3, 0.4}, got.Data[1].Embedding)
	assert.Equal(t, 9, got.Usage.TotalTokens)
}

func TestEmbed_EmptyInputSkipsRequest(t *testing.T) {
	t.Parallel()

	client := NewClient("test-key", WithBaseURL("http://127.0.0.1:0"))
	got, err := client.Embed(context.Background(), EmbedRequest{Model: "m"})
	require.NoError(t, err)
	assert.Empty(t, got.Data)
}

func TestEmbed_TransientStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":"rate limit"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Embed(context.Background(), EmbedRequest{Model: "m", Input: []string{"x"}})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "429")
}

func TestEmbed_PermanentStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.Embed(context.Background(), EmbedRequest{Model: "m", Input: []string{"x"}})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestEmbed_CountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(EmbedResponse{Data: []EmbeddingData{{Index: 0}}})
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.Embed(context.Background(), EmbedRequest{Model: "m", Input: []string{"a", "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 embeddings for 2 inputs")
}

func TestEmbed_BadJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.Embed(context.Background(), EmbedRequest{Model: "m", Input: []string{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
