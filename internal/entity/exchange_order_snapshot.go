package entity

import (
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// ExchangeOrderSnapshot is the flat, storable form of an ExchangeOrder. Only repository
// adapters should build orders from it.
type ExchangeOrderSnapshot struct {
	ID                       string              `db:"id" json:"id"`
	UserID                   string              `db:"user_id" json:"user_id"`
	OrderType                OrderType           `db:"order_type" json:"order_type"`
	CryptoType               CryptoType          `db:"crypto_type" json:"crypto_type"`
	FiatType                 FiatType            `db:"fiat_type" json:"fiat_type"`
	CryptoAmount             decimal.NullDecimal `db:"crypto_amount" json:"crypto_amount"`
	FiatAmount               decimal.NullDecimal `db:"fiat_amount" json:"fiat_amount"`
	Status                   ExchangeOrderStatus `db:"status" json:"status"`
	DestinationType          AddressType         `db:"destination_type" json:"destination_type"`
	DestinationWallet        null.String         `db:"destination_wallet" json:"destination_wallet"`
	DestinationAccountNumber null.String         `db:"destination_account_number" json:"destination_account_number"`
	DestinationAccountName   null.String         `db:"destination_account_name" json:"destination_account_name"`
	DestinationBankName      null.String         `db:"destination_bank_name" json:"destination_bank_name"`
	DepositType              AddressType         `db:"deposit_type" json:"deposit_type"`
	DepositWallet            null.String         `db:"deposit_wallet" json:"deposit_wallet"`
	DepositAccountNumber     null.String         `db:"deposit_account_number" json:"deposit_account_number"`
	DepositAccountName       null.String         `db:"deposit_account_name" json:"deposit_account_name"`
	DepositBankName          null.String         `db:"deposit_bank_name" json:"deposit_bank_name"`
	CompletionRate           decimal.NullDecimal `db:"completion_rate" json:"completion_rate"`
	CreatedAt                time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time           `db:"updated_at" json:"updated_at"`
	CompletedAt              null.Time           `db:"completed_at" json:"completed_at"`
	Version                  int64               `db:"version" json:"version"`
}

func (s ExchangeOrderSnapshot) TableName() string {
	return "exchange_orders"
}

func (o *ExchangeOrder) Snapshot() ExchangeOrderSnapshot {
	s := ExchangeOrderSnapshot{
		ID:         o.id,
		UserID:     o.userID,
		OrderType:  o.orderType,
		CryptoType: o.cryptoType,
		FiatType:   o.fiatType,
		Status:     o.status,
		CreatedAt:  o.createdAt,
		UpdatedAt:  o.updatedAt,
		Version:    o.version,
	}

	if o.cryptoAmount != nil {
		s.CryptoAmount = decimal.NewNullDecimal(o.cryptoAmount.Value())
	}
	if o.fiatAmount != nil {
		s.FiatAmount = decimal.NewNullDecimal(o.fiatAmount.Amount())
	}
	if o.completion != nil {
		s.CompletionRate = decimal.NewNullDecimal(o.completion.Rate)
	}
	if o.completedAt != nil {
		s.CompletedAt = null.TimeFrom(*o.completedAt)
	}

	s.DestinationType, s.DestinationWallet, s.DestinationAccountNumber, s.DestinationAccountName, s.DestinationBankName = addressColumns(o.userDestination)
	s.DepositType, s.DepositWallet, s.DepositAccountNumber, s.DepositAccountName, s.DepositBankName = addressColumns(o.systemDeposit)

	return s
}

// MarkExchangeOrderPersisted advances o to the version stored by a successful Update, so the
// same order can be written again without a reload.
func MarkExchangeOrderPersisted(o *ExchangeOrder) {
	o.version++
}

// RehydrateExchangeOrder rebuilds an order from storage, re-validating every value.
func RehydrateExchangeOrder(s ExchangeOrderSnapshot) (*ExchangeOrder, error) {
	if s.ID == "" || s.UserID == "" {
		return nil, ErrOrderInvalidUserID.Withf("stored order %q has no id or user id", s.ID)
	}
	if !s.OrderType.IsValid() {
		return nil, ErrOrderInvalidType
	}
	if !s.CryptoType.IsValid() {
		return nil, ErrOrderInvalidCryptoType
	}
	if !s.FiatType.IsValid() {
		return nil, ErrOrderInvalidFiatType
	}
	if !s.Status.IsValid() {
		return nil, ErrOrderInvalidStatus.Withf("unknown stored status %q", s.Status)
	}

	o := &ExchangeOrder{
		id:         s.ID,
		userID:     s.UserID,
		orderType:  s.OrderType,
		cryptoType: s.CryptoType,
		fiatType:   s.FiatType,
		status:     s.Status,
		createdAt:  s.CreatedAt,
		updatedAt:  s.UpdatedAt,
		version:    s.Version,
	}

	if s.CryptoAmount.Valid {
		amount, err := NewCryptoAmount(s.CryptoAmount.Decimal, s.CryptoType)
		if err != nil {
			return nil, err
		}
		o.cryptoAmount = &amount
	}
	if s.FiatAmount.Valid {
		amount, err := NewFiatAmount(s.FiatType, s.FiatAmount.Decimal)
		if err != nil {
			return nil, err
		}
		o.fiatAmount = &amount
	}

	var err error
	o.userDestination, err = rehydrateAddress(s.DestinationType, s.DestinationWallet, s.DestinationAccountNumber, s.DestinationAccountName, s.DestinationBankName)
	if err != nil {
		return nil, err
	}
	o.systemDeposit, err = rehydrateAddress(s.DepositType, s.DepositWallet, s.DepositAccountNumber, s.DepositAccountName, s.DepositBankName)
	if err != nil {
		return nil, err
	}

	if s.CompletedAt.Valid {
		completedAt := s.CompletedAt.Time
		o.completedAt = &completedAt
	}

	if s.Status == ExchangeOrderStatusCompleted {
		if o.cryptoAmount == nil || o.fiatAmount == nil || !s.CompletionRate.Valid || o.completedAt == nil {
			return nil, ErrOrderIncompleteAmounts.Withf("completed order %s is missing completion data", s.ID)
		}

		o.completion = &ExchangeCompleted{
			OrderID:     o.id,
			UserID:      o.userID,
			OrderType:   o.orderType,
			CryptoType:  o.cryptoType,
			FiatType:    o.fiatType,
			AmountFrom:  o.cryptoAmount.Value(),
			AmountTo:    o.fiatAmount.Amount(),
			Rate:        s.CompletionRate.Decimal,
			CompletedAt: *o.completedAt,
		}
	}

	return o, nil
}

func addressColumns(a DestinationAddress) (AddressType, null.String, null.String, null.String, null.String) {
	switch a.Type() {
	case AddressTypeCryptoWallet:
		return a.Type(), null.StringFrom(a.Wallet()), null.String{}, null.String{}, null.String{}
	case AddressTypeFiatAccount:
		return a.Type(), null.String{}, null.StringFrom(a.AccountNumber()), null.StringFrom(a.AccountName()), null.StringFrom(a.BankName())
	default:
		return a.Type(), null.String{}, null.String{}, null.String{}, null.String{}
	}
}

func rehydrateAddress(addressType AddressType, wallet, accountNumber, accountName, bankName null.String) (DestinationAddress, error) {
	switch addressType {
	case AddressTypeCryptoWallet:
		return NewCryptoAddress(wallet.ValueOrZero())
	case AddressTypeFiatAccount:
		return NewFiatAccount(accountNumber.ValueOrZero(), accountName.ValueOrZero(), bankName.ValueOrZero())
	default:
		return DestinationAddress{}, ErrUnknownDestinationType.Withf("unknown address type %q", addressType)
	}
}
