package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/deelrate-service/internal/entity"
)

type ExchangeCompletionRepository struct {
	db *sqlx.DB
}

func NewExchangeCompletionRepository(db *sqlx.DB) *ExchangeCompletionRepository {
	return &ExchangeCompletionRepository{db: db}
}

// Append inserts completed and reports whether a new row was written. A completion already
// recorded for the same order is left untouched.
func (r *ExchangeCompletionRepository) Append(ctx context.Context, completed entity.ExchangeCompleted) (bool, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(completed.TableName()).
		Columns(
			"order_id",
			"user_id",
			"order_type",
			"crypto_type",
			"fiat_type",
			"amount_from",
			"amount_to",
			"rate",
			"completed_at",
		).
		Values(
			completed.OrderID,
			completed.UserID,
			completed.OrderType,
			completed.CryptoType,
			completed.FiatType,
			completed.AmountFrom,
			completed.AmountTo,
			completed.Rate,
			completed.CompletedAt,
		).
		Suffix("ON CONFLICT (order_id) DO NOTHING")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *ExchangeCompletionRepository) GetByOrderID(ctx context.Context, orderID string) (*entity.ExchangeCompleted, error) {
	if !entity.IsExchangeOrderID(orderID) {
		return nil, entity.ErrExchangeOrderNotFound
	}

	var completed entity.ExchangeCompleted
	err := r.db.GetContext(ctx, &completed, "SELECT order_id, user_id, order_type, crypto_type, fiat_type, amount_from, amount_to, rate, completed_at FROM exchange_completions WHERE order_id = $1", orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, entity.ErrExchangeOrderNotFound
		}
		return nil, err
	}

	return &completed, nil
}
