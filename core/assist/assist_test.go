package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggest(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotQuery = req.Query

		json.NewEncoder(w).Encode(map[string]string{"command": "ls -la"})
	}))
	defer srv.Close()

	client := New(srv.URL, 100)
	got, err := client.Suggest(context.Background(), "list all files")
	require.NoError(t, err)

	assert.Equal(t, "ls -la", got)
	assert.Equal(t, "list all files", gotQuery)
}

func TestSuggestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 100).Suggest(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestSuggestEmptyCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"command": ""})
	}))
	defer srv.Close()

	_, err := New(srv.URL, 100).Suggest(context.Background(), "q")
	assert.Error(t, err)
}

func TestSuggestBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 100).Suggest(context.Background(), "q")
	assert.Error(t, err)
}
