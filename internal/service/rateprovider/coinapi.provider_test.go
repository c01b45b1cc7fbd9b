package rateprovider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/krobus00/deelrate-service/internal/config"
	"github.com/krobus00/deelrate-service/internal/entity"
	"github.com/krobus00/deelrate-service/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

const testAPIKey = "test-key"

func newTestProvider(t *testing.T, handler http.HandlerFunc, cfg config.CoinAPIConfig) (*CoinAPIProvider, *metrics.ExchangeMetrics) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	if cfg.RequestPerSecond == 0 {
		cfg.RequestPerSecond = 1000
	}
	if cfg.Burst == 0 {
		cfg.Burst = 100
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Millisecond
	}

	m := metrics.NewExchangeMetrics(prometheus.NewRegistry())
	return NewCoinAPIProvider(cfg, server.Client(), m), m
}

func TestCoinAPIProvider_FetchRate(t *testing.T) {
	var gotPath, gotKey string
	provider, m := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-CoinAPI-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"time":"2026-03-01T09:00:00Z","asset_id_base":"BTC","asset_id_quote":"USD","rate":50123.45}`))
	}, config.CoinAPIConfig{})

	quote, err := provider.FetchRate(context.Background(), "BTC", "USD")
	if err != nil {
		t.Fatalf("FetchRate: %v", err)
	}

	if gotPath != "/v1/exchangerate/BTC/USD" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != testAPIKey {
		t.Errorf("api key header = %q", gotKey)
	}
	if quote.BaseAsset != "BTC" || quote.QuoteAsset != "USD" {
		t.Errorf("assets = %s/%s", quote.BaseAsset, quote.QuoteAsset)
	}
	if !quote.Rate.Equal(decimal.RequireFromString("50123.45")) {
		t.Errorf("rate = %s", quote.Rate)
	}
	if !quote.Timestamp.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %s", quote.Timestamp)
	}
	if got := testutil.ToFloat64(m.RateProviderRequests.WithLabelValues("coinapi", "success")); got != 1 {
		t.Errorf("success requests = %v, want 1", got)
	}
}

func TestCoinAPIProvider_Statuses(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantErr   error
		wantAnErr bool
		wantCalls int32
	}{
		{name: "not found is not retried", statuses: []int{http.StatusNotFound}, wantErr: entity.ErrRateQuoteNotFound, wantCalls: 1},
		{name: "bad request is not retried", statuses: []int{http.StatusBadRequest}, wantAnErr: true, wantCalls: 1},
		{name: "server errors are retried", statuses: []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusOK}, wantCalls: 3},
		{name: "rate limit is retried", statuses: []int{http.StatusTooManyRequests, http.StatusOK}, wantCalls: 2},
		{name: "retries run out", statuses: []int{http.StatusServiceUnavailable}, wantAnErr: true, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				n := int(calls.Add(1)) - 1
				status := tt.statuses[min(n, len(tt.statuses)-1)]
				if status != http.StatusOK {
					http.Error(w, "upstream says no", status)
					return
				}
				_, _ = w.Write([]byte(`{"time":"2026-03-01T09:00:00Z","asset_id_base":"ETH","asset_id_quote":"EUR","rate":"3000"}`))
			}, config.CoinAPIConfig{MaxRetries: 2, BreakerFailures: 100})

			quote, err := provider.FetchRate(context.Background(), "ETH", "EUR")
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			case tt.wantAnErr:
				if err == nil {
					t.Fatal("expected an error")
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !quote.Rate.Equal(decimal.NewFromInt(3000)) {
					t.Errorf("rate = %s", quote.Rate)
				}
			}

			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestCoinAPIProvider_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	provider, m := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, config.CoinAPIConfig{MaxRetries: 1, BreakerFailures: 2, BreakerTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		if _, err := provider.FetchRate(context.Background(), "BTC", "USD"); err == nil {
			t.Fatalf("attempt %d: expected an error", i)
		}
	}
	callsBeforeOpen := calls.Load()

	_, err := provider.FetchRate(context.Background(), "BTC", "USD")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected an open breaker, got %v", err)
	}
	if calls.Load() != callsBeforeOpen {
		t.Error("an open breaker must not reach the upstream")
	}
	if got := testutil.ToFloat64(m.RateProviderRequests.WithLabelValues("coinapi", "circuit_open")); got != 1 {
		t.Errorf("circuit_open requests = %v, want 1", got)
	}
}

func TestCoinAPIProvider_NotFoundKeepsBreakerClosed(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, config.CoinAPIConfig{BreakerFailures: 1})

	for i := 0; i < 3; i++ {
		_, err := provider.FetchRate(context.Background(), "BTC", "XYZ")
		if !errors.Is(err, entity.ErrRateQuoteNotFound) {
			t.Fatalf("attempt %d: expected ErrRateQuoteNotFound, got %v", i, err)
		}
	}
}

func TestCoinAPIProvider_ContextCancelled(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, config.CoinAPIConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.FetchRate(ctx, "BTC", "USD")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
