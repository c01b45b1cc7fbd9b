package exchangeorder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krobus00/deelrate-service/internal/entity"
	"github.com/krobus00/deelrate-service/internal/infrastructure/metrics"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type RateResolver interface {
	GetRate(ctx context.Context, pair entity.CurrencyPair) (entity.ExchangeRate, error)
}

type DepositAddressResolver interface {
	DepositAddressFor(orderType entity.OrderType, cryptoType entity.CryptoType, fiatType entity.FiatType) (entity.DestinationAddress, error)
}

type CreateExchangeOrderInput struct {
	UserID          string
	OrderType       entity.OrderType
	CryptoType      entity.CryptoType
	FiatType        entity.FiatType
	CryptoAmount    *entity.CryptoAmount
	FiatAmount      *entity.FiatAmount
	UserDestination entity.DestinationAddress
}

// SystemConfirmPaymentInput carries what the platform received. When Rate is nil the current
// rate of the order's crypto/fiat pair is resolved.
type SystemConfirmPaymentInput struct {
	ActualFiat   *entity.FiatAmount
	ActualCrypto *entity.CryptoAmount
	Rate         *decimal.Decimal
}

type ExchangeOrderService struct {
	orderRepo        entity.ExchangeOrderRepository
	rates            RateResolver
	depositAddresses DepositAddressResolver
	publisher        entity.ExchangeCompletedPublisher
	locks            OrderLockStore
	lockTTL          time.Duration
	metrics          *metrics.ExchangeMetrics
}

func NewExchangeOrderService(
	orderRepo entity.ExchangeOrderRepository,
	rates RateResolver,
	depositAddresses DepositAddressResolver,
	publisher entity.ExchangeCompletedPublisher,
	locks OrderLockStore,
	lockTTL time.Duration,
	m *metrics.ExchangeMetrics,
) *ExchangeOrderService {
	if lockTTL <= 0 {
		lockTTL = defaultOrderLockTTL
	}

	return &ExchangeOrderService{
		orderRepo:        orderRepo,
		rates:            rates,
		depositAddresses: depositAddresses,
		publisher:        publisher,
		locks:            locks,
		lockTTL:          lockTTL,
		metrics:          m,
	}
}

func (s *ExchangeOrderService) CreateOrder(ctx context.Context, input CreateExchangeOrderInput) (*entity.ExchangeOrder, error) {
	fiatType := input.FiatType
	if input.OrderType == entity.OrderTypeBuy && input.FiatAmount != nil {
		fiatType = input.FiatAmount.FiatType()
	}

	// Validation errors of the order itself take precedence over a missing deposit address.
	deposit, depositErr := s.depositAddresses.DepositAddressFor(input.OrderType, input.CryptoType, fiatType)

	order, err := entity.InitiateExchangeOrder(entity.InitiateExchangeOrderParams{
		UserID:          input.UserID,
		OrderType:       input.OrderType,
		CryptoType:      input.CryptoType,
		FiatType:        input.FiatType,
		CryptoAmount:    input.CryptoAmount,
		FiatAmount:      input.FiatAmount,
		UserDestination: input.UserDestination,
		SystemDeposit:   deposit,
	})
	if err != nil {
		if depositErr != nil && errors.Is(err, entity.ErrOrderInvalidDepositAddress) {
			err = depositErr
		}
		s.metrics.OrderErrorsTotal.WithLabelValues("INITIATE", string(entity.ErrorKindOf(err))).Inc()
		return nil, err
	}

	err = s.orderRepo.Save(ctx, order)
	if err != nil {
		logrus.WithField("order_id", order.ID()).Error(err)
		return nil, storageError(err)
	}

	s.metrics.OrdersInitiatedTotal.WithLabelValues(string(order.OrderType()), string(order.CryptoType()), string(order.FiatType())).Inc()
	logrus.WithFields(logrus.Fields{
		"order_id":   order.ID(),
		"user_id":    order.UserID(),
		"order_type": order.OrderType(),
	}).Info("exchange order initiated")

	return order, nil
}

func (s *ExchangeOrderService) GetOrder(ctx context.Context, id string) (*entity.ExchangeOrder, error) {
	id = strings.TrimSpace(id)
	if !entity.IsExchangeOrderID(id) {
		return nil, entity.ErrExchangeOrderNotFound
	}

	order, err := s.orderRepo.Get(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}

	return order, nil
}

func (s *ExchangeOrderService) ListUserOrders(ctx context.Context, userID string) ([]*entity.ExchangeOrder, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, entity.ErrOrderInvalidUserID
	}

	orders, err := s.orderRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}

	return orders, nil
}

func (s *ExchangeOrderService) ListOrdersByStatus(ctx context.Context, status entity.ExchangeOrderStatus) ([]*entity.ExchangeOrder, error) {
	if !status.IsValid() {
		return nil, entity.ErrOrderInvalidStatus
	}

	orders, err := s.orderRepo.GetByStatus(ctx, status)
	if err != nil {
		return nil, storageError(err)
	}

	return orders, nil
}

func (s *ExchangeOrderService) MarkPaymentPending(ctx context.Context, id string) (*entity.ExchangeOrder, error) {
	return s.mutate(ctx, id, entity.OperationMarkPaymentPending, func(_ context.Context, order *entity.ExchangeOrder) error {
		return order.MarkPaymentPending()
	})
}

func (s *ExchangeOrderService) SystemConfirmPayment(ctx context.Context, id string, input SystemConfirmPaymentInput) (*entity.ExchangeOrder, error) {
	return s.mutate(ctx, id, entity.OperationSystemConfirmPayment, func(ctx context.Context, order *entity.ExchangeOrder) error {
		var rate decimal.Decimal
		switch {
		case input.Rate != nil:
			rate = *input.Rate
		case order.Status() == entity.ExchangeOrderStatusPaymentPending:
			pair := entity.NewCurrencyPair(string(order.CryptoType()), string(order.FiatType()))
			exchangeRate, err := s.rates.GetRate(ctx, pair)
			if err != nil {
				return err
			}
			rate = exchangeRate.Rate()
		}

		return order.SystemConfirmPayment(input.ActualFiat, input.ActualCrypto, rate)
	})
}

func (s *ExchangeOrderService) UserConfirmPayment(ctx context.Context, id string) (*entity.ExchangeOrder, error) {
	return s.mutate(ctx, id, entity.OperationUserConfirmPayment, func(_ context.Context, order *entity.ExchangeOrder) error {
		return order.UserConfirmPayment()
	})
}

// CompleteExchange completes the order and publishes its completion record. The order stays
// completed when publishing fails; the failure is only logged.
func (s *ExchangeOrderService) CompleteExchange(ctx context.Context, id string) (*entity.ExchangeOrder, *entity.ExchangeCompleted, error) {
	var completed *entity.ExchangeCompleted
	order, err := s.mutate(ctx, id, entity.OperationCompleteExchange, func(_ context.Context, order *entity.ExchangeOrder) error {
		var err error
		completed, err = order.CompleteExchange()
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.metrics.CompletedVolumeTotal.WithLabelValues(string(completed.OrderType), string(completed.FiatType)).Add(completed.AmountTo.InexactFloat64())

	err = s.publisher.PublishExchangeCompleted(ctx, *completed)
	if err != nil {
		logrus.WithField("order_id", completed.OrderID).Errorf("failed to publish exchange completed: %v", err)
	}

	return order, completed, nil
}

func (s *ExchangeOrderService) Cancel(ctx context.Context, id string) (*entity.ExchangeOrder, error) {
	return s.mutate(ctx, id, entity.OperationCancel, func(_ context.Context, order *entity.ExchangeOrder) error {
		return order.Cancel()
	})
}

// mutate loads order id under its processing lock, applies fn and persists the result.
func (s *ExchangeOrderService) mutate(ctx context.Context, id string, op entity.ExchangeOrderOperation, fn func(ctx context.Context, order *entity.ExchangeOrder) error) (*entity.ExchangeOrder, error) {
	id = strings.TrimSpace(id)
	if !entity.IsExchangeOrderID(id) {
		return nil, entity.ErrExchangeOrderNotFound
	}

	logger := logrus.WithFields(logrus.Fields{
		"order_id":  id,
		"operation": op,
	})

	owner := uuid.NewString()
	acquired, err := s.locks.AcquireProcessingLock(ctx, id, owner, s.lockTTL)
	if err != nil {
		logger.Error(err)
		return nil, storageError(err)
	}
	if !acquired {
		s.metrics.OrderErrorsTotal.WithLabelValues(string(op), string(entity.ErrorKindConflict)).Inc()
		return nil, entity.ErrExchangeOrderBusy
	}
	defer func() {
		err := s.locks.ReleaseProcessingLock(context.WithoutCancel(ctx), id, owner)
		if err != nil {
			logger.Warnf("failed to release processing lock: %v", err)
		}
	}()

	order, err := s.orderRepo.Get(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}

	err = fn(ctx, order)
	if err != nil {
		s.metrics.OrderErrorsTotal.WithLabelValues(string(op), string(entity.ErrorKindOf(err))).Inc()
		return nil, err
	}

	err = s.orderRepo.Update(ctx, order)
	if err != nil {
		logger.Error(err)
		return nil, storageError(err)
	}

	s.metrics.OrderTransitionsTotal.WithLabelValues(string(op), string(order.Status())).Inc()
	logger.WithField("status", order.Status()).Info("exchange order updated")

	return order, nil
}

// storageError passes domain errors through and wraps anything else as a failure.
func storageError(err error) error {
	var domainErr *entity.Error
	if errors.As(err, &domainErr) {
		return err
	}

	return entity.ErrExchangeOrderStorage.Wrap(err)
}
