package rate

import (
	"context"
	"errors"
	"time"

	"github.com/krobus00/deelrate-service/internal/entity"
	"github.com/krobus00/deelrate-service/internal/infrastructure/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RateCacheTTL is how long a fetched rate is served from cache.
const RateCacheTTL = time.Minute

type RateService struct {
	provider       entity.RateProvider
	cache          RateCacheStore
	metrics        *metrics.ExchangeMetrics
	maxConcurrency int
}

func NewRateService(provider entity.RateProvider, cache RateCacheStore, m *metrics.ExchangeMetrics, maxConcurrency int) *RateService {
	return &RateService{
		provider:       provider,
		cache:          cache,
		metrics:        m,
		maxConcurrency: maxConcurrency,
	}
}

func (s *RateService) GetRate(ctx context.Context, pair entity.CurrencyPair) (entity.ExchangeRate, error) {
	if pair.IsEmpty() {
		return entity.ExchangeRate{}, entity.ErrCurrencyPairRequired
	}
	if err := ctx.Err(); err != nil {
		return entity.ExchangeRate{}, entity.ErrRateProviderFailure.Withf("failed to fetch rate for %s", pair).Wrap(err)
	}

	logger := logrus.WithField("pair", pair.String())
	key := pair.CacheKey()

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warnf("rate cache lookup failed: %v", err)
	}
	if ok {
		s.metrics.RateCacheLookupsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	s.metrics.RateCacheLookupsTotal.WithLabelValues("miss").Inc()

	quote, err := s.provider.FetchRate(ctx, pair.Base, pair.Quote)
	if err != nil {
		if errors.Is(err, entity.ErrRateQuoteNotFound) {
			return entity.ExchangeRate{}, entity.ErrRateNotFound.Withf("no exchange rate found for %s", pair)
		}
		logger.Error(err)
		return entity.ExchangeRate{}, entity.ErrRateProviderFailure.Withf("failed to fetch rate for %s", pair).Wrap(err)
	}
	if quote == nil {
		return entity.ExchangeRate{}, entity.ErrRateNotFound.Withf("no exchange rate found for %s", pair)
	}

	if _, ok := entity.ParseCryptoType(quote.BaseAsset); !ok {
		return entity.ExchangeRate{}, entity.ErrRateInvalidCurrency.Withf("unknown base currency %q in rate response for %s", quote.BaseAsset, pair)
	}
	if !entity.IsKnownCurrency(quote.QuoteAsset) {
		return entity.ExchangeRate{}, entity.ErrRateInvalidCurrency.Withf("unknown quote currency %q in rate response for %s", quote.QuoteAsset, pair)
	}

	rate, err := entity.NewExchangeRate(pair, quote.Rate, quote.Timestamp)
	if err != nil {
		return entity.ExchangeRate{}, err
	}

	if err := s.cache.Set(ctx, key, rate, RateCacheTTL); err != nil {
		logger.Warnf("rate cache store failed: %v", err)
	}

	return rate, nil
}

// GetRates fetches every distinct pair concurrently. Failed pairs are left out of the
// result; an error is returned only when no pair succeeded, and it is the error of the
// first failed pair in input order.
func (s *RateService) GetRates(ctx context.Context, pairs []entity.CurrencyPair) ([]entity.ExchangeRate, error) {
	pairs = distinctPairs(pairs)
	if len(pairs) == 0 {
		return nil, entity.ErrCurrencyPairsRequired
	}

	rates := make([]entity.ExchangeRate, len(pairs))
	errs := make([]error, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}

	for i, pair := range pairs {
		g.Go(func() error {
			rates[i], errs[i] = s.GetRate(gctx, pair)
			return nil
		})
	}
	_ = g.Wait()

	result := make([]entity.ExchangeRate, 0, len(pairs))
	var firstErr error
	for i := range pairs {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		result = append(result, rates[i])
	}

	if len(result) == 0 {
		return nil, firstErr
	}

	if firstErr != nil {
		s.metrics.RateBatchPartialTotal.Inc()
		for i, err := range errs {
			if err != nil {
				logrus.WithField("pair", pairs[i].String()).Warnf("rate dropped from batch: %v", err)
			}
		}
	}

	return result, nil
}

// GetRatesByBase returns the rates of base against every other supported crypto currency.
func (s *RateService) GetRatesByBase(ctx context.Context, base string) ([]entity.ExchangeRate, error) {
	baseType, ok := entity.ParseCryptoType(base)
	if !ok {
		return nil, entity.ErrUnsupportedCurrency.Withf("unsupported base currency %q", base)
	}

	var pairs []entity.CurrencyPair
	for _, quote := range entity.CryptoTypes() {
		if quote == baseType {
			continue
		}
		pairs = append(pairs, entity.NewCurrencyPair(string(baseType), string(quote)))
	}

	return s.GetRates(ctx, pairs)
}

// GetSupportedCurrencyPairs lists every crypto currency against every other crypto
// currency and every fiat currency.
func (s *RateService) GetSupportedCurrencyPairs() []entity.CurrencyPair {
	cryptoTypes := entity.CryptoTypes()
	fiatTypes := entity.FiatTypes()

	pairs := make([]entity.CurrencyPair, 0, len(cryptoTypes)*(len(cryptoTypes)-1+len(fiatTypes)))
	for _, base := range cryptoTypes {
		for _, quote := range cryptoTypes {
			if quote == base {
				continue
			}
			pairs = append(pairs, entity.NewCurrencyPair(string(base), string(quote)))
		}
		for _, quote := range fiatTypes {
			pairs = append(pairs, entity.NewCurrencyPair(string(base), string(quote)))
		}
	}

	return pairs
}

func distinctPairs(pairs []entity.CurrencyPair) []entity.CurrencyPair {
	seen := make(map[entity.CurrencyPair]struct{}, len(pairs))
	out := make([]entity.CurrencyPair, 0, len(pairs))
	for _, pair := range pairs {
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		out = append(out, pair)
	}

	return out
}
