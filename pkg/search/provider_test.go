package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTavilyProviderSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.APIKey != "tv-key" || req.Query != "eth merge" || req.MaxResults != 3 {
			t.Errorf("request = %+v", req)
		}
		fmt.Fprint(w, `{"results": [{"title": "Merge", "url": "https://a.example", "content": " recap "}]}`)
	}))
	defer server.Close()

	provider, err := NewTavilyProvider("tv-key", server.URL)
	if err != nil {
		t.Fatalf("NewTavilyProvider: %v", err)
	}
	results, err := provider.Search(context.Background(), "eth merge", Options{Limit: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Snippet != "recap" || results[0].URL != "https://a.example" {
		t.Errorf("results = %+v", results)
	}
}

func TestTavilyProviderRequiresKey(t *testing.T) {
	if _, err := NewTavilyProvider("  ", ""); err == nil {
		t.Fatal("empty api key accepted")
	}
}

func TestBraveProviderSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "br-key" {
			t.Errorf("token header = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "eth merge" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("count"); got != "2" {
			t.Errorf("count = %q", got)
		}
		fmt.Fprint(w, `{"web": {"results": [{"title": "Merge", "url": "https://b.example", "description": "done"}]}}`)
	}))
	defer server.Close()

	provider, err := NewBraveProvider("br-key", server.URL)
	if err != nil {
		t.Fatalf("NewBraveProvider: %v", err)
	}
	results, err := provider.Search(context.Background(), "eth merge", Options{Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Snippet != "done" {
		t.Errorf("results = %+v", results)
	}
}

func TestProviderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider, _ := NewTavilyProvider("bad-key", server.URL)
	if _, err := provider.Search(context.Background(), "q", Options{}); err == nil {
		t.Fatal("401 did not surface as error")
	}
}

func TestNewProviderSelection(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "tavily", APIKey: "k"}); err != nil {
		t.Errorf("tavily: %v", err)
	}
	if _, err := NewProvider(Config{Provider: "brave", APIKey: "k"}); err != nil {
		t.Errorf("brave: %v", err)
	}
	if _, err := NewProvider(Config{Provider: "bing", APIKey: "k"}); err == nil {
		t.Error("unknown provider accepted")
	}
}
