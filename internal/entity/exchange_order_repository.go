package entity

import "context"

// ExchangeOrderRepository is the system of record for exchange orders. Update must fail with
// ErrExchangeOrderConflict when the stored version differs from the order's version, and
// advance the order's version with MarkExchangeOrderPersisted when it succeeds. Get, Update
// and Delete report ErrExchangeOrderNotFound for ids that are not order ids.
type ExchangeOrderRepository interface {
	Save(ctx context.Context, order *ExchangeOrder) error
	Get(ctx context.Context, id string) (*ExchangeOrder, error)
	GetByUser(ctx context.Context, userID string) ([]*ExchangeOrder, error)
	GetByStatus(ctx context.Context, status ExchangeOrderStatus) ([]*ExchangeOrder, error)
	GetCompleted(ctx context.Context) ([]*ExchangeOrder, error)
	Update(ctx context.Context, order *ExchangeOrder) error
	Delete(ctx context.Context, id string) error
}
