package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/deelrate-service/internal/entity"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation           = "23505"
	pqInvalidTextRepresentation = "22P02"
)

var exchangeOrderColumns = []string{
	"id",
	"user_id",
	"order_type",
	"crypto_type",
	"fiat_type",
	"crypto_amount",
	"fiat_amount",
	"status",
	"destination_type",
	"destination_wallet",
	"destination_account_number",
	"destination_account_name",
	"destination_bank_name",
	"deposit_type",
	"deposit_wallet",
	"deposit_account_number",
	"deposit_account_name",
	"deposit_bank_name",
	"completion_rate",
	"created_at",
	"updated_at",
	"completed_at",
	"version",
}

type ExchangeOrderRepository struct {
	db *sqlx.DB
}

func NewExchangeOrderRepository(db *sqlx.DB) *ExchangeOrderRepository {
	return &ExchangeOrderRepository{db: db}
}

func (r *ExchangeOrderRepository) Save(ctx context.Context, order *entity.ExchangeOrder) error {
	s := order.Snapshot()

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(s.TableName()).
		Columns(exchangeOrderColumns...).
		Values(
			s.ID,
			s.UserID,
			s.OrderType,
			s.CryptoType,
			s.FiatType,
			s.CryptoAmount,
			s.FiatAmount,
			s.Status,
			s.DestinationType,
			s.DestinationWallet,
			s.DestinationAccountNumber,
			s.DestinationAccountName,
			s.DestinationBankName,
			s.DepositType,
			s.DepositWallet,
			s.DepositAccountNumber,
			s.DepositAccountName,
			s.DepositBankName,
			s.CompletionRate,
			s.CreatedAt,
			s.UpdatedAt,
			s.CompletedAt,
			s.Version,
		)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return entity.ErrExchangeOrderExists
		}
		return err
	}

	return nil
}

func (r *ExchangeOrderRepository) Get(ctx context.Context, id string) (*entity.ExchangeOrder, error) {
	if !entity.IsExchangeOrderID(id) {
		return nil, entity.ErrExchangeOrderNotFound
	}

	query, args, err := r.selectBuilder().
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var snapshot entity.ExchangeOrderSnapshot
	err = r.db.GetContext(ctx, &snapshot, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, entity.ErrExchangeOrderNotFound
		}
		return nil, err
	}

	order, err := entity.RehydrateExchangeOrder(snapshot)
	if err != nil {
		return nil, entity.ErrExchangeOrderCorrupt.Wrap(err)
	}

	return order, nil
}

func (r *ExchangeOrderRepository) GetByUser(ctx context.Context, userID string) ([]*entity.ExchangeOrder, error) {
	return r.list(ctx, r.selectBuilder().Where(sq.Eq{"user_id": userID}))
}

func (r *ExchangeOrderRepository) GetByStatus(ctx context.Context, status entity.ExchangeOrderStatus) ([]*entity.ExchangeOrder, error) {
	return r.list(ctx, r.selectBuilder().Where(sq.Eq{"status": status}))
}

func (r *ExchangeOrderRepository) GetCompleted(ctx context.Context) ([]*entity.ExchangeOrder, error) {
	return r.GetByStatus(ctx, entity.ExchangeOrderStatusCompleted)
}

// Update writes the mutable columns of order when the stored version still matches
// order.Version(), and bumps both the stored and the in-memory version.
func (r *ExchangeOrderRepository) Update(ctx context.Context, order *entity.ExchangeOrder) error {
	if !entity.IsExchangeOrderID(order.ID()) {
		return entity.ErrExchangeOrderNotFound
	}

	s := order.Snapshot()

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update(s.TableName()).
		Set("status", s.Status).
		Set("crypto_amount", s.CryptoAmount).
		Set("fiat_amount", s.FiatAmount).
		Set("completion_rate", s.CompletionRate).
		Set("completed_at", s.CompletedAt).
		Set("updated_at", s.UpdatedAt).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": s.ID, "version": s.Version})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return entity.ErrExchangeOrderNotFound
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		entity.MarkExchangeOrderPersisted(order)
		return nil
	}

	exists, err := r.exists(ctx, s.ID)
	if err != nil {
		return err
	}
	if !exists {
		return entity.ErrExchangeOrderNotFound
	}

	return entity.ErrExchangeOrderConflict
}

func (r *ExchangeOrderRepository) Delete(ctx context.Context, id string) error {
	if !entity.IsExchangeOrderID(id) {
		return entity.ErrExchangeOrderNotFound
	}

	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Delete(entity.ExchangeOrderSnapshot{}.TableName()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return entity.ErrExchangeOrderNotFound
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return entity.ErrExchangeOrderNotFound
	}

	return nil
}

func (r *ExchangeOrderRepository) selectBuilder() sq.SelectBuilder {
	return sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(exchangeOrderColumns...).
		From(entity.ExchangeOrderSnapshot{}.TableName())
}

func (r *ExchangeOrderRepository) list(ctx context.Context, queryBuilder sq.SelectBuilder) ([]*entity.ExchangeOrder, error) {
	query, args, err := queryBuilder.OrderBy("created_at desc").ToSql()
	if err != nil {
		return nil, err
	}

	var snapshots []entity.ExchangeOrderSnapshot
	err = r.db.SelectContext(ctx, &snapshots, query, args...)
	if err != nil {
		return nil, err
	}

	orders := make([]*entity.ExchangeOrder, 0, len(snapshots))
	for _, snapshot := range snapshots {
		order, err := entity.RehydrateExchangeOrder(snapshot)
		if err != nil {
			return nil, entity.ErrExchangeOrderCorrupt.Wrap(err)
		}
		orders = append(orders, order)
	}

	return orders, nil
}

func (r *ExchangeOrderRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM exchange_orders WHERE id = $1)", id)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// isInvalidID matches postgres rejecting a value that does not parse as the id column type.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation
}
