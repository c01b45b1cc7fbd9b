package rateprovider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/deelrate-service/internal/config"
	"github.com/krobus00/deelrate-service/internal/entity"
	"github.com/krobus00/deelrate-service/internal/infrastructure/metrics"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	coinAPIProviderName = "coinapi"
	coinAPIKeyHeader    = "X-CoinAPI-Key"

	defaultCoinAPIBaseURL         = "https://rest.coinapi.io"
	defaultCoinAPITimeout         = 10 * time.Second
	defaultCoinAPIRequestPerSec   = 5.0
	defaultCoinAPIBurst           = 1
	defaultCoinAPIMaxRetries      = 3
	defaultCoinAPIRetryBackoff    = 200 * time.Millisecond
	defaultCoinAPIBreakerFailures = 5
	defaultCoinAPIBreakerTimeout  = 30 * time.Second
	maxCoinAPIErrorBody           = 512
)

type coinAPIExchangeRateResponse struct {
	Time         time.Time       `json:"time"`
	AssetIDBase  string          `json:"asset_id_base"`
	AssetIDQuote string          `json:"asset_id_quote"`
	Rate         decimal.Decimal `json:"rate"`
}

// CoinAPIProvider fetches rates from CoinAPI. Each request waits on a rate limiter, is retried
// with exponential backoff on transport errors, 429 and 5xx, and runs behind a circuit breaker.
type CoinAPIProvider struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker
	maxRetries   uint64
	retryBackoff time.Duration
	metrics      *metrics.ExchangeMetrics
}

func NewCoinAPIProvider(cfg config.CoinAPIConfig, client *http.Client, m *metrics.ExchangeMetrics) *CoinAPIProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultCoinAPIBaseURL
	}

	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultCoinAPITimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	requestPerSecond := cfg.RequestPerSecond
	if requestPerSecond <= 0 {
		requestPerSecond = defaultCoinAPIRequestPerSec
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultCoinAPIBurst
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultCoinAPIMaxRetries
	}

	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultCoinAPIRetryBackoff
	}

	breakerFailures := cfg.BreakerFailures
	if breakerFailures == 0 {
		breakerFailures = defaultCoinAPIBreakerFailures
	}

	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = defaultCoinAPIBreakerTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    coinAPIProviderName,
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, entity.ErrRateQuoteNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("rate provider circuit breaker state changed")
		},
	})

	return &CoinAPIProvider{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		client:       client,
		limiter:      rate.NewLimiter(rate.Limit(requestPerSecond), burst),
		breaker:      breaker,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		metrics:      m,
	}
}

func (p *CoinAPIProvider) FetchRate(ctx context.Context, baseCurrency, quoteCurrency string) (*entity.RateQuote, error) {
	started := time.Now()
	defer func() {
		p.metrics.RateProviderDuration.WithLabelValues(coinAPIProviderName).Observe(time.Since(started).Seconds())
	}()

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetchWithRetry(ctx, baseCurrency, quoteCurrency)
	})
	if err != nil {
		p.metrics.RateProviderRequests.WithLabelValues(coinAPIProviderName, outcomeOf(err)).Inc()
		return nil, err
	}

	p.metrics.RateProviderRequests.WithLabelValues(coinAPIProviderName, "success").Inc()
	return result.(*entity.RateQuote), nil
}

func (p *CoinAPIProvider) fetchWithRetry(ctx context.Context, baseCurrency, quoteCurrency string) (*entity.RateQuote, error) {
	backoff := retry.WithMaxRetries(p.maxRetries, retry.NewExponential(p.retryBackoff))

	var quote *entity.RateQuote
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		var err error
		quote, err = p.fetch(ctx, baseCurrency, quoteCurrency)
		return err
	})
	if err != nil {
		return nil, err
	}

	return quote, nil
}

func (p *CoinAPIProvider) fetch(ctx context.Context, baseCurrency, quoteCurrency string) (*entity.RateQuote, error) {
	endpoint := fmt.Sprintf("%s/v1/exchangerate/%s/%s", p.baseURL, url.PathEscape(baseCurrency), url.PathEscape(quoteCurrency))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create coinapi request: %w", err)
	}
	req.Header.Set(coinAPIKeyHeader, p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, retry.RetryableError(fmt.Errorf("request coinapi %s/%s: %w", baseCurrency, quoteCurrency, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, entity.ErrRateQuoteNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, retry.RetryableError(statusError(resp))
	default:
		return nil, statusError(resp)
	}

	var body coinAPIExchangeRateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode coinapi response: %w", err)
	}

	return &entity.RateQuote{
		BaseAsset:  body.AssetIDBase,
		QuoteAsset: body.AssetIDQuote,
		Rate:       body.Rate,
		Timestamp:  body.Time,
	}, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxCoinAPIErrorBody))
	return fmt.Errorf("coinapi returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, entity.ErrRateQuoteNotFound):
		return "not_found"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	default:
		return "error"
	}
}
