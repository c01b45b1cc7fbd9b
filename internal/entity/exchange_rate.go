package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateQuoteNotFound is returned by a RateProvider when the upstream has no rate for a pair.
var ErrRateQuoteNotFound = errors.New("rate quote not found")

type CurrencyPair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

func NewCurrencyPair(base, quote string) CurrencyPair {
	return CurrencyPair{
		Base:  strings.ToUpper(strings.TrimSpace(base)),
		Quote: strings.ToUpper(strings.TrimSpace(quote)),
	}
}

// ParseCurrencyPair parses "BASE/QUOTE".
func ParseCurrencyPair(raw string) (CurrencyPair, error) {
	base, quote, ok := strings.Cut(raw, "/")
	if !ok {
		return CurrencyPair{}, ErrCurrencyPairRequired.Withf("invalid currency pair %q, expected BASE/QUOTE", raw)
	}

	pair := NewCurrencyPair(base, quote)
	if pair.IsEmpty() {
		return CurrencyPair{}, ErrCurrencyPairRequired.Withf("invalid currency pair %q, expected BASE/QUOTE", raw)
	}

	return pair, nil
}

func (p CurrencyPair) IsEmpty() bool {
	return p.Base == "" || p.Quote == ""
}

func (p CurrencyPair) String() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}

// CacheKey is the key rates for this pair are cached under.
func (p CurrencyPair) CacheKey() string {
	return fmt.Sprintf("ExchangeRate_%s_%s", p.Base, p.Quote)
}

// ExchangeRate is a strictly positive point-in-time rate: one unit of Base costs Rate units of Quote.
type ExchangeRate struct {
	pair      CurrencyPair
	rate      decimal.Decimal
	timestamp time.Time
}

func NewExchangeRate(pair CurrencyPair, rate decimal.Decimal, timestamp time.Time) (ExchangeRate, error) {
	if !rate.IsPositive() {
		return ExchangeRate{}, ErrInvalidExchangeRateValue
	}

	return ExchangeRate{pair: pair, rate: rate, timestamp: timestamp}, nil
}

func (r ExchangeRate) Pair() CurrencyPair {
	return r.pair
}

func (r ExchangeRate) Rate() decimal.Decimal {
	return r.rate
}

func (r ExchangeRate) Timestamp() time.Time {
	return r.timestamp
}

// RateQuote is the raw answer of a rate provider.
type RateQuote struct {
	BaseAsset  string
	QuoteAsset string
	Rate       decimal.Decimal
	Timestamp  time.Time
}

type RateProvider interface {
	FetchRate(ctx context.Context, baseCurrency, quoteCurrency string) (*RateQuote, error)
}
