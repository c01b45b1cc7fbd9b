package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderType string
type ExchangeOrderStatus string
type ExchangeOrderOperation string

const (
	OrderTypeBuy  OrderType = "BUY"
	OrderTypeSell OrderType = "SELL"

	ExchangeOrderStatusInitiated              ExchangeOrderStatus = "INITIATED"
	ExchangeOrderStatusPaymentPending         ExchangeOrderStatus = "PAYMENT_PENDING"
	ExchangeOrderStatusSystemConfirmedPayment ExchangeOrderStatus = "SYSTEM_CONFIRMED_PAYMENT"
	ExchangeOrderStatusUserConfirmPayment     ExchangeOrderStatus = "USER_CONFIRM_PAYMENT"
	ExchangeOrderStatusCompleted              ExchangeOrderStatus = "COMPLETED"
	ExchangeOrderStatusCancelled              ExchangeOrderStatus = "CANCELLED"

	OperationMarkPaymentPending   ExchangeOrderOperation = "MARK_PAYMENT_PENDING"
	OperationSystemConfirmPayment ExchangeOrderOperation = "SYSTEM_CONFIRM_PAYMENT"
	OperationUserConfirmPayment   ExchangeOrderOperation = "USER_CONFIRM_PAYMENT"
	OperationCompleteExchange     ExchangeOrderOperation = "COMPLETE_EXCHANGE"
	OperationCancel               ExchangeOrderOperation = "CANCEL"
)

var exchangeOrderOperations = []ExchangeOrderOperation{
	OperationMarkPaymentPending,
	OperationSystemConfirmPayment,
	OperationUserConfirmPayment,
	OperationCompleteExchange,
	OperationCancel,
}

// [status][operation] = next status
var exchangeOrderTransitions = map[ExchangeOrderStatus]map[ExchangeOrderOperation]ExchangeOrderStatus{
	ExchangeOrderStatusInitiated: {
		OperationMarkPaymentPending: ExchangeOrderStatusPaymentPending,
		OperationCancel:             ExchangeOrderStatusCancelled,
	},
	ExchangeOrderStatusPaymentPending: {
		OperationSystemConfirmPayment: ExchangeOrderStatusSystemConfirmedPayment,
		OperationCancel:               ExchangeOrderStatusCancelled,
	},
	ExchangeOrderStatusSystemConfirmedPayment: {
		OperationUserConfirmPayment: ExchangeOrderStatusUserConfirmPayment,
		OperationCancel:             ExchangeOrderStatusCancelled,
	},
	ExchangeOrderStatusUserConfirmPayment: {
		OperationCompleteExchange: ExchangeOrderStatusCompleted,
		OperationCancel:           ExchangeOrderStatusCancelled,
	},
	ExchangeOrderStatusCompleted: {},
	ExchangeOrderStatusCancelled: {},
}

var exchangeOrderRejections = map[ExchangeOrderOperation]*Error{
	OperationMarkPaymentPending:   ErrOrderNotInitiated,
	OperationSystemConfirmPayment: ErrOrderNotPaymentPending,
	OperationUserConfirmPayment:   ErrOrderNotSystemConfirmed,
	OperationCompleteExchange:     ErrOrderNotUserConfirmed,
}

func (t OrderType) IsValid() bool {
	return t == OrderTypeBuy || t == OrderTypeSell
}

func ParseOrderType(raw string) (OrderType, bool) {
	t := OrderType(strings.ToUpper(strings.TrimSpace(raw)))
	return t, t.IsValid()
}

func (s ExchangeOrderStatus) IsValid() bool {
	_, ok := exchangeOrderTransitions[s]
	return ok
}

func (s ExchangeOrderStatus) IsTerminal() bool {
	return s == ExchangeOrderStatusCompleted || s == ExchangeOrderStatusCancelled
}

func ParseExchangeOrderStatus(raw string) (ExchangeOrderStatus, bool) {
	s := ExchangeOrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// AllowedOperations lists the operations accepted in status, in lifecycle order.
func AllowedOperations(status ExchangeOrderStatus) []ExchangeOrderOperation {
	var ops []ExchangeOrderOperation
	for _, op := range exchangeOrderOperations {
		if _, ok := exchangeOrderTransitions[status][op]; ok {
			ops = append(ops, op)
		}
	}

	return ops
}

// NextExchangeOrderStatus returns the status reached by applying op in status.
func NextExchangeOrderStatus(status ExchangeOrderStatus, op ExchangeOrderOperation) (ExchangeOrderStatus, bool) {
	next, ok := exchangeOrderTransitions[status][op]
	return next, ok
}

type InitiateExchangeOrderParams struct {
	UserID          string
	OrderType       OrderType
	CryptoType      CryptoType
	FiatType        FiatType
	CryptoAmount    *CryptoAmount
	FiatAmount      *FiatAmount
	UserDestination DestinationAddress
	SystemDeposit   DestinationAddress
}

// ExchangeOrder is the aggregate for one crypto/fiat exchange. Mutations must be serialized
// per order id by the caller.
type ExchangeOrder struct {
	id              string
	userID          string
	orderType       OrderType
	cryptoType      CryptoType
	fiatType        FiatType
	cryptoAmount    *CryptoAmount
	fiatAmount      *FiatAmount
	status          ExchangeOrderStatus
	userDestination DestinationAddress
	systemDeposit   DestinationAddress
	createdAt       time.Time
	updatedAt       time.Time
	completedAt     *time.Time
	completion      *ExchangeCompleted
	version         int64
}

// InitiateExchangeOrder validates params and returns a new order in INITIATED.
// A buy order carries the fiat amount to pay, a sell order the crypto amount to send.
func InitiateExchangeOrder(params InitiateExchangeOrderParams) (*ExchangeOrder, error) {
	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		return nil, ErrOrderInvalidUserID
	}
	if !params.OrderType.IsValid() {
		return nil, ErrOrderInvalidType
	}
	if !params.CryptoType.IsValid() {
		return nil, ErrOrderInvalidCryptoType
	}

	fiatType := params.FiatType

	switch params.OrderType {
	case OrderTypeBuy:
		if params.FiatAmount == nil {
			return nil, ErrOrderMissingFiatAmount
		}
		if params.CryptoAmount != nil {
			return nil, ErrOrderUnexpectedCryptoAmount
		}
		if fiatType != "" && fiatType != params.FiatAmount.FiatType() {
			return nil, ErrOrderFiatTypeMismatch
		}
		fiatType = params.FiatAmount.FiatType()

		if !params.UserDestination.IsCryptoWallet() {
			return nil, ErrOrderInvalidDestination
		}
		if !params.SystemDeposit.IsFiatAccount() {
			return nil, ErrOrderInvalidDepositAddress
		}
	case OrderTypeSell:
		if params.CryptoAmount == nil {
			return nil, ErrOrderMissingCryptoAmount
		}
		if params.FiatAmount != nil {
			return nil, ErrOrderUnexpectedFiatAmount
		}
		if params.CryptoAmount.Currency() != params.CryptoType {
			return nil, ErrOrderCryptoTypeMismatch
		}
		if !fiatType.IsValid() {
			return nil, ErrOrderInvalidFiatType
		}

		if !params.UserDestination.IsFiatAccount() {
			return nil, ErrOrderInvalidDestination
		}
		if !params.SystemDeposit.IsCryptoWallet() {
			return nil, ErrOrderInvalidDepositAddress
		}
	}

	now := time.Now().UTC()

	return &ExchangeOrder{
		id:              uuid.NewString(),
		userID:          userID,
		orderType:       params.OrderType,
		cryptoType:      params.CryptoType,
		fiatType:        fiatType,
		cryptoAmount:    params.CryptoAmount,
		fiatAmount:      params.FiatAmount,
		status:          ExchangeOrderStatusInitiated,
		userDestination: params.UserDestination,
		systemDeposit:   params.SystemDeposit,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

func (o *ExchangeOrder) MarkPaymentPending() error {
	next, err := o.transition(OperationMarkPaymentPending)
	if err != nil {
		return err
	}

	o.moveTo(next)
	return nil
}

// SystemConfirmPayment reconciles the received amount against the order and fills in the
// counter amount using rate. Buy orders need actualFiat, sell orders need actualCrypto.
func (o *ExchangeOrder) SystemConfirmPayment(actualFiat *FiatAmount, actualCrypto *CryptoAmount, rate decimal.Decimal) error {
	next, err := o.transition(OperationSystemConfirmPayment)
	if err != nil {
		return err
	}
	if !rate.IsPositive() {
		return ErrOrderInvalidRate
	}

	switch o.orderType {
	case OrderTypeBuy:
		if actualFiat == nil {
			return ErrOrderMissingFiatReceived
		}
		if o.fiatAmount == nil || !o.fiatAmount.ApproxEqual(*actualFiat) {
			return ErrOrderFiatMismatch
		}

		cryptoAmount, err := NewCryptoAmount(actualFiat.Amount().Div(rate), o.cryptoType)
		if err != nil {
			return err
		}
		o.cryptoAmount = &cryptoAmount
	case OrderTypeSell:
		if actualCrypto == nil {
			return ErrOrderMissingCryptoReceived
		}
		if o.cryptoAmount == nil || !o.cryptoAmount.ApproxEqual(*actualCrypto) {
			return ErrOrderCryptoMismatch
		}

		fiatAmount, err := NewFiatAmount(o.fiatType, actualCrypto.Value().Mul(rate))
		if err != nil {
			return err
		}
		o.fiatAmount = &fiatAmount
	}

	o.moveTo(next)
	return nil
}

func (o *ExchangeOrder) UserConfirmPayment() error {
	next, err := o.transition(OperationUserConfirmPayment)
	if err != nil {
		return err
	}
	if o.cryptoAmount == nil || o.fiatAmount == nil {
		return ErrOrderIncompleteAmounts
	}

	o.moveTo(next)
	return nil
}

// CompleteExchange finishes the order and returns its completion record. The record is
// also kept on the order.
func (o *ExchangeOrder) CompleteExchange() (*ExchangeCompleted, error) {
	next, err := o.transition(OperationCompleteExchange)
	if err != nil {
		return nil, err
	}
	if o.cryptoAmount == nil || o.fiatAmount == nil {
		return nil, ErrOrderIncompleteAmounts
	}

	var rate decimal.Decimal
	switch o.orderType {
	case OrderTypeBuy:
		rate = o.fiatAmount.Amount().Div(o.cryptoAmount.Value())
	case OrderTypeSell:
		rate = o.cryptoAmount.Value().Div(o.fiatAmount.Amount())
	}

	o.moveTo(next)
	completedAt := o.updatedAt
	o.completedAt = &completedAt
	o.completion = &ExchangeCompleted{
		OrderID:     o.id,
		UserID:      o.userID,
		OrderType:   o.orderType,
		CryptoType:  o.cryptoType,
		FiatType:    o.fiatType,
		AmountFrom:  o.cryptoAmount.Value(),
		AmountTo:    o.fiatAmount.Amount(),
		Rate:        rate,
		CompletedAt: completedAt,
	}

	completion := *o.completion
	return &completion, nil
}

func (o *ExchangeOrder) Cancel() error {
	next, err := o.transition(OperationCancel)
	if err != nil {
		return err
	}

	o.moveTo(next)
	return nil
}

func (o *ExchangeOrder) transition(op ExchangeOrderOperation) (ExchangeOrderStatus, error) {
	next, ok := NextExchangeOrderStatus(o.status, op)
	if ok {
		return next, nil
	}

	switch {
	case o.status == ExchangeOrderStatusCancelled && op == OperationCancel:
		return "", ErrOrderAlreadyCancelled
	case o.status == ExchangeOrderStatusCompleted && op == OperationCancel:
		return "", ErrOrderAlreadyCompleted
	}

	if rejection, ok := exchangeOrderRejections[op]; ok {
		return "", rejection
	}

	return "", ErrOrderInvalidStatus
}

func (o *ExchangeOrder) moveTo(status ExchangeOrderStatus) {
	o.status = status
	o.updatedAt = time.Now().UTC()
}

func (o *ExchangeOrder) ID() string {
	return o.id
}

func (o *ExchangeOrder) UserID() string {
	return o.userID
}

func (o *ExchangeOrder) OrderType() OrderType {
	return o.orderType
}

func (o *ExchangeOrder) CryptoType() CryptoType {
	return o.cryptoType
}

func (o *ExchangeOrder) FiatType() FiatType {
	return o.fiatType
}

// CryptoAmount returns nil until the crypto side is known.
func (o *ExchangeOrder) CryptoAmount() *CryptoAmount {
	if o.cryptoAmount == nil {
		return nil
	}

	amount := *o.cryptoAmount
	return &amount
}

// FiatAmount returns nil until the fiat side is known.
func (o *ExchangeOrder) FiatAmount() *FiatAmount {
	if o.fiatAmount == nil {
		return nil
	}

	amount := *o.fiatAmount
	return &amount
}

func (o *ExchangeOrder) Status() ExchangeOrderStatus {
	return o.status
}

func (o *ExchangeOrder) UserDestination() DestinationAddress {
	return o.userDestination
}

func (o *ExchangeOrder) SystemDeposit() DestinationAddress {
	return o.systemDeposit
}

func (o *ExchangeOrder) CreatedAt() time.Time {
	return o.createdAt
}

func (o *ExchangeOrder) UpdatedAt() time.Time {
	return o.updatedAt
}

func (o *ExchangeOrder) CompletedAt() *time.Time {
	if o.completedAt == nil {
		return nil
	}

	completedAt := *o.completedAt
	return &completedAt
}

func (o *ExchangeOrder) Completion() *ExchangeCompleted {
	if o.completion == nil {
		return nil
	}

	completion := *o.completion
	return &completion
}

// Version is the optimistic concurrency counter as last read from storage.
func (o *ExchangeOrder) Version() int64 {
	return o.version
}

// IsExchangeOrderID reports whether id has the canonical form of an order id. Anything else
// can never name a stored order.
func IsExchangeOrderID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}

func (o *ExchangeOrder) AllowedOperations() []ExchangeOrderOperation {
	return AllowedOperations(o.status)
}
