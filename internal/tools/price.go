package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	failsafe "github.com/failsafe-go/failsafe-go"

	"throp/pkg/cache"
	"throp/pkg/clients"
	"throp/pkg/logging"
)

const (
	defaultPriceAPIURL = "https://api.coingecko.com"
	priceCacheTTL      = 5 * time.Minute
	priceTimeout       = 15 * time.Second
)

// assetIDs maps the tickers and names people actually type to the price
// API's asset identifiers.
var assetIDs = map[string]string{
	"btc": "bitcoin", "bitcoin": "bitcoin",
	"eth": "ethereum", "ethereum": "ethereum",
	"sol": "solana", "solana": "solana",
	"doge": "dogecoin", "dogecoin": "dogecoin",
	"ada": "cardano", "cardano": "cardano",
	"xrp": "ripple", "ripple": "ripple",
	"bnb": "binancecoin",
	"dot": "polkadot", "polkadot": "polkadot",
	"link": "chainlink", "chainlink": "chainlink",
	"avax": "avalanche-2", "avalanche": "avalanche-2",
	"ltc": "litecoin", "litecoin": "litecoin",
	"pepe": "pepe",
	"shib": "shiba-inu",
	"matic": "matic-network", "polygon": "matic-network",
}

// PriceLookup fetches spot prices for crypto assets named in a question.
type PriceLookup struct {
	apiURL     string
	httpClient *http.Client
	executor   failsafe.Executor[*http.Response]
	cache      *cache.Cache
	timeout    time.Duration
	logger     logging.Logger
}

func NewPriceLookup(apiURL string, logger logging.Logger) *PriceLookup {
	if apiURL == "" {
		apiURL = defaultPriceAPIURL
	}
	return &PriceLookup{
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: priceTimeout},
		executor: clients.NewHTTPExecutor(clients.HTTPExecutorConfig{
			MaxRetries:         2,
			BaseDelay:          200 * time.Millisecond,
			MaxDelay:           2 * time.Second,
			WithCircuitBreaker: true,
			Logger:             logger,
		}),
		cache:   cache.New(cache.Options{TTL: priceCacheTTL, MaxEntries: 128}),
		timeout: priceTimeout,
		logger:  logger,
	}
}

func (t *PriceLookup) Name() string { return "price_lookup" }

func (t *PriceLookup) Search(ctx context.Context, query string) Result {
	assetID := matchAsset(query)
	if assetID == "" {
		return Result{}
	}

	if cached, ok := t.cache.Peek(assetID); ok {
		toolCacheHits.WithLabelValues(t.Name()).Inc()
		return cached.(Result)
	}

	val, ok, _ := t.cache.Get(ctx, assetID, func(ctx context.Context, _ string) (interface{}, bool, error) {
		quoteCtx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		quote, err := t.fetchQuote(quoteCtx, assetID)
		if err != nil {
			t.logger.WithError(err).WithField("asset", assetID).Warn("Price lookup failed")
			toolCallsTotal.WithLabelValues(t.Name(), "failure").Inc()
			return nil, false, nil
		}
		toolCallsTotal.WithLabelValues(t.Name(), "success").Inc()
		return Result{
			Facts:   []string{quote.String()},
			Sources: []string{"https://www.coingecko.com/en/coins/" + assetID},
		}, true, nil
	})
	if !ok {
		return Result{}
	}
	return val.(Result)
}

// matchAsset scans the question for a known ticker or asset name. First
// match wins.
func matchAsset(query string) string {
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, "?.,!$()")
		if id, ok := assetIDs[word]; ok {
			return id
		}
	}
	return ""
}

type priceQuote struct {
	Asset     string
	USD       float64
	Change24h float64
	Volume24h float64
}

func (q priceQuote) String() string {
	direction := "up"
	if q.Change24h < 0 {
		direction = "down"
	}
	s := fmt.Sprintf("%s is trading at $%s, %s %.1f%% in the last 24h",
		q.Asset, formatPrice(q.USD), direction, abs(q.Change24h))
	if q.Volume24h > 0 {
		s += fmt.Sprintf(" on $%s volume", formatVolume(q.Volume24h))
	}
	return s
}

func (t *PriceLookup) fetchQuote(ctx context.Context, assetID string) (priceQuote, error) {
	params := url.Values{}
	params.Set("ids", assetID)
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")
	params.Set("include_24hr_vol", "true")

	endpoint := fmt.Sprintf("%s/api/v3/simple/price?%s", t.apiURL, params.Encode())

	resp, err := clients.ExecuteHTTP(ctx, t.executor, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return t.httpClient.Do(req)
	})
	if err != nil {
		return priceQuote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return priceQuote{}, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var payload map[string]struct {
		USD       float64 `json:"usd"`
		Change24h float64 `json:"usd_24h_change"`
		Volume24h float64 `json:"usd_24h_vol"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return priceQuote{}, fmt.Errorf("failed to decode price response: %w", err)
	}
	entry, ok := payload[assetID]
	if !ok {
		return priceQuote{}, fmt.Errorf("price API returned no data for %s", assetID)
	}
	return priceQuote{Asset: assetID, USD: entry.USD, Change24h: entry.Change24h, Volume24h: entry.Volume24h}, nil
}

func formatPrice(v float64) string {
	if v >= 1 {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.6f", v)
}

// formatVolume compresses large dollar volumes to 42.1B / 987.3M style.
func formatVolume(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
