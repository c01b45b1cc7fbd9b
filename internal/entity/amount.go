package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	fiatTolerance   = decimal.RequireFromString("0.01")
	cryptoTolerance = decimal.RequireFromString("0.00000001")
)

// CryptoAmount is a positive quantity of a crypto currency. The zero value is not valid;
// use NewCryptoAmount.
type CryptoAmount struct {
	value    decimal.Decimal
	currency CryptoType
}

func NewCryptoAmount(value decimal.Decimal, currency CryptoType) (CryptoAmount, error) {
	if !value.IsPositive() {
		return CryptoAmount{}, ErrInvalidCryptoAmount
	}
	if currency == "" {
		return CryptoAmount{}, ErrMissingCryptoType
	}
	if !currency.IsValid() {
		return CryptoAmount{}, ErrUnsupportedCurrency.Withf("unsupported crypto currency %q", currency)
	}

	return CryptoAmount{value: value, currency: currency}, nil
}

func (a CryptoAmount) Value() decimal.Decimal {
	return a.value
}

func (a CryptoAmount) Currency() CryptoType {
	return a.currency
}

func (a CryptoAmount) Equal(other CryptoAmount) bool {
	return a.currency == other.currency && a.value.Equal(other.value)
}

// ApproxEqual reports whether other has the same currency and differs by less than 1e-8.
func (a CryptoAmount) ApproxEqual(other CryptoAmount) bool {
	if a.currency != other.currency {
		return false
	}

	return a.value.Sub(other.value).Abs().LessThan(cryptoTolerance)
}

func (a CryptoAmount) String() string {
	return fmt.Sprintf("%s %s", a.value.String(), a.currency)
}

// FiatAmount is a positive quantity of a fiat currency. The zero value is not valid;
// use NewFiatAmount.
type FiatAmount struct {
	fiatType FiatType
	amount   decimal.Decimal
}

func NewFiatAmount(fiatType FiatType, amount decimal.Decimal) (FiatAmount, error) {
	if !amount.IsPositive() {
		return FiatAmount{}, ErrInvalidFiatAmount
	}
	if fiatType == "" {
		return FiatAmount{}, ErrMissingFiatType
	}
	if !fiatType.IsValid() {
		return FiatAmount{}, ErrUnsupportedCurrency.Withf("unsupported fiat type %q", fiatType)
	}

	return FiatAmount{fiatType: fiatType, amount: amount}, nil
}

func (a FiatAmount) FiatType() FiatType {
	return a.fiatType
}

func (a FiatAmount) Amount() decimal.Decimal {
	return a.amount
}

func (a FiatAmount) Equal(other FiatAmount) bool {
	return a.fiatType == other.fiatType && a.amount.Equal(other.amount)
}

// ApproxEqual reports whether other has the same fiat type and differs by less than 0.01.
func (a FiatAmount) ApproxEqual(other FiatAmount) bool {
	if a.fiatType != other.fiatType {
		return false
	}

	return a.amount.Sub(other.amount).Abs().LessThan(fiatTolerance)
}

func (a FiatAmount) String() string {
	return fmt.Sprintf("%s %s", a.amount.StringFixed(2), a.fiatType)
}
