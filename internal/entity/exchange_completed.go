package entity

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeCompleted is the immutable record of a finished exchange. AmountFrom is always the
// crypto value and AmountTo the fiat amount, whatever the order type.
type ExchangeCompleted struct {
	OrderID     string          `db:"order_id" json:"order_id"`
	UserID      string          `db:"user_id" json:"user_id"`
	OrderType   OrderType       `db:"order_type" json:"order_type"`
	CryptoType  CryptoType      `db:"crypto_type" json:"crypto_type"`
	FiatType    FiatType        `db:"fiat_type" json:"fiat_type"`
	AmountFrom  decimal.Decimal `db:"amount_from" json:"amount_from"`
	AmountTo    decimal.Decimal `db:"amount_to" json:"amount_to"`
	Rate        decimal.Decimal `db:"rate" json:"rate"`
	CompletedAt time.Time       `db:"completed_at" json:"completed_at"`
}

func (e ExchangeCompleted) TableName() string {
	return "exchange_completions"
}

type ExchangeCompletedEvent struct {
	RetryCount int               `json:"retry"`
	Data       ExchangeCompleted `json:"data"`
}

type ExchangeCompletedPublisher interface {
	PublishExchangeCompleted(ctx context.Context, completed ExchangeCompleted) error
}

// ExchangeCompletionRepository is the append-only ledger of completed exchanges.
type ExchangeCompletionRepository interface {
	// Append stores completed once; replays of the same order id are ignored.
	Append(ctx context.Context, completed ExchangeCompleted) (bool, error)
	GetByOrderID(ctx context.Context, orderID string) (*ExchangeCompleted, error)
}
