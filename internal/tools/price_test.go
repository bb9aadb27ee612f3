package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"throp/pkg/logging"
)

func TestPriceLookupFetchesQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/simple/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "bitcoin" {
			t.Errorf("ids = %q", got)
		}
		fmt.Fprint(w, `{"bitcoin": {"usd": 97432.51, "usd_24h_change": -2.35, "usd_24h_vol": 42100000000}}`)
	}))
	defer server.Close()

	tool := NewPriceLookup(server.URL, logging.NewTestLogger())
	res := tool.Search(context.Background(), "yo what's the BTC price rn?")
	if len(res.Facts) != 1 {
		t.Fatalf("facts = %v", res.Facts)
	}
	if !strings.Contains(res.Facts[0], "$97432.51") || !strings.Contains(res.Facts[0], "down 2.4%") {
		t.Errorf("fact = %q", res.Facts[0])
	}
	if !strings.Contains(res.Facts[0], "on $42.1B volume") {
		t.Errorf("fact %q missing volume", res.Facts[0])
	}
	if len(res.Sources) != 1 || res.Sources[0] != "https://www.coingecko.com/en/coins/bitcoin" {
		t.Errorf("sources = %v", res.Sources)
	}
}

func TestPriceLookupCachesQuotes(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, `{"ethereum": {"usd": 4200, "usd_24h_change": 1.0}}`)
	}))
	defer server.Close()

	tool := NewPriceLookup(server.URL, logging.NewTestLogger())
	tool.Search(context.Background(), "eth price")
	tool.Search(context.Background(), "is ethereum pumping")
	if requests.Load() != 1 {
		t.Errorf("API saw %d requests, want 1 (same asset cached)", requests.Load())
	}
}

func TestPriceLookupUnknownAsset(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	tool := NewPriceLookup(server.URL, logging.NewTestLogger())
	if res := tool.Search(context.Background(), "what's the weather like"); !res.Empty() {
		t.Errorf("result = %+v, want empty", res)
	}
	if requests.Load() != 0 {
		t.Errorf("API called for a question with no asset")
	}
}

func TestPriceLookupSwallowsAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	tool := NewPriceLookup(server.URL, logging.NewTestLogger())
	if res := tool.Search(context.Background(), "doge price"); !res.Empty() {
		t.Errorf("result = %+v, want empty", res)
	}
}

func TestMatchAsset(t *testing.T) {
	cases := map[string]string{
		"price of $SOL today?":   "solana",
		"is Bitcoin dead":        "bitcoin",
		"pepe to the moon":       "pepe",
		"how are you doing":      "",
		"polygon fees are cheap": "matic-network",
	}
	for query, want := range cases {
		if got := matchAsset(query); got != want {
			t.Errorf("matchAsset(%q) = %q, want %q", query, got, want)
		}
	}
}
