package entity

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "VALIDATION"
	ErrorKindConflict   ErrorKind = "CONFLICT"
	ErrorKindNotFound   ErrorKind = "NOT_FOUND"
	ErrorKindFailure    ErrorKind = "FAILURE"
)

// Error is the tagged error returned by every domain and service operation.
// Two errors match with errors.Is when their codes are equal.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return e.Code == t.Code
}

// Withf returns a copy of e with a formatted message, keeping kind and code.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: cause}
}

func NewValidationError(code, message string) *Error {
	return &Error{Kind: ErrorKindValidation, Code: code, Message: message}
}

func NewConflictError(code, message string) *Error {
	return &Error{Kind: ErrorKindConflict, Code: code, Message: message}
}

func NewNotFoundError(code, message string) *Error {
	return &Error{Kind: ErrorKindNotFound, Code: code, Message: message}
}

func NewFailureError(code, message string, cause error) *Error {
	return &Error{Kind: ErrorKindFailure, Code: code, Message: message, Err: cause}
}

// ErrorKindOf reports the kind of err. Errors that are not *Error are treated as failures.
func ErrorKindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ErrorKindFailure
}

// ErrorCodeOf returns the code of err, or an empty string if err is not an *Error.
func ErrorCodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ""
}

var (
	ErrInvalidCryptoAmount = NewValidationError("CryptoAmount.Invalid", "crypto amount must be greater than 0")
	ErrMissingCryptoType   = NewValidationError("CryptoAmount.MissingCurrency", "crypto currency must be specified")
	ErrInvalidFiatAmount   = NewValidationError("FiatAmount.Invalid", "fiat amount must be greater than 0")
	ErrMissingFiatType     = NewValidationError("FiatAmount.MissingFiatType", "fiat type must be specified")

	ErrEmptyWalletAddress       = NewValidationError("DestinationAddress.EmptyWallet", "wallet address can't be empty")
	ErrInvalidWalletAddress     = NewValidationError("DestinationAddress.InvalidWallet", "wallet address must be between 26 and 62 characters")
	ErrInvalidAccountNumber     = NewValidationError("DestinationAddress.InvalidAccountNumber", "account number must be exactly 10 digits")
	ErrEmptyAccountName         = NewValidationError("DestinationAddress.EmptyAccountName", "account name can't be empty")
	ErrEmptyBankName            = NewValidationError("DestinationAddress.EmptyBankName", "bank name can't be empty")
	ErrUnknownDestinationType   = NewValidationError("DestinationAddress.UnknownType", "unknown destination address type")
	ErrInvalidExchangeRateValue = NewConflictError("Rate.Invalid", "rate must be greater than 0")

	ErrOrderInvalidUserID          = NewValidationError("ExchangeOrder.InvalidUserId", "user id must not be empty")
	ErrOrderInvalidType            = NewValidationError("ExchangeOrder.InvalidType", "invalid exchange order type")
	ErrOrderInvalidCryptoType      = NewValidationError("ExchangeOrder.InvalidCryptoType", "invalid cryptocurrency type")
	ErrOrderInvalidFiatType        = NewValidationError("ExchangeOrder.InvalidFiatType", "invalid fiat type")
	ErrOrderMissingFiatAmount      = NewValidationError("ExchangeOrder.MissingFiatAmount", "fiat amount is required for a buy order")
	ErrOrderUnexpectedCryptoAmount = NewValidationError("ExchangeOrder.UnexpectedCryptoAmount", "crypto amount should not be provided for a buy order at initiation")
	ErrOrderMissingCryptoAmount    = NewValidationError("ExchangeOrder.MissingCryptoAmount", "crypto amount is required for a sell order")
	ErrOrderUnexpectedFiatAmount   = NewValidationError("ExchangeOrder.UnexpectedFiatAmount", "fiat amount should not be provided for a sell order at initiation")
	ErrOrderCryptoTypeMismatch     = NewValidationError("ExchangeOrder.CryptoTypeMismatch", "crypto amount currency must match the order crypto type")
	ErrOrderFiatTypeMismatch       = NewValidationError("ExchangeOrder.FiatTypeMismatch", "fiat amount type must match the order fiat type")
	ErrOrderInvalidDestination     = NewValidationError("ExchangeOrder.InvalidDestination", "user destination does not match the order type")
	ErrOrderInvalidDepositAddress  = NewValidationError("ExchangeOrder.InvalidDepositAddress", "system deposit address does not match the order type")

	ErrOrderNotInitiated          = NewValidationError("ExchangeOrder.NotInitiated", "order must be in initiated state to mark payment as pending")
	ErrOrderNotPaymentPending     = NewValidationError("ExchangeOrder.NotPaymentPending", "order must be in payment pending state to confirm payment")
	ErrOrderInvalidRate           = NewValidationError("ExchangeOrder.InvalidRate", "rate must be greater than 0")
	ErrOrderMissingFiatReceived   = NewValidationError("ExchangeOrder.MissingFiatReceived", "received fiat amount is required for a buy order")
	ErrOrderMissingCryptoReceived = NewValidationError("ExchangeOrder.MissingCryptoReceived", "received crypto amount is required for a sell order")
	ErrOrderFiatMismatch          = NewValidationError("ExchangeOrder.FiatMismatch", "received fiat amount does not match the order fiat amount")
	ErrOrderCryptoMismatch        = NewValidationError("ExchangeOrder.CryptoMismatch", "received crypto amount does not match the order crypto amount")
	ErrOrderNotSystemConfirmed    = NewValidationError("ExchangeOrder.NotSystemConfirmed", "order must be confirmed by the system before the user confirms payment")
	ErrOrderIncompleteAmounts     = NewValidationError("ExchangeOrder.IncompleteAmounts", "both crypto and fiat amounts must be set")
	ErrOrderNotUserConfirmed      = NewValidationError("ExchangeOrder.NotUserConfirmed", "order must be confirmed by the user to complete")
	ErrOrderAlreadyCancelled      = NewValidationError("ExchangeOrder.AlreadyCancelled", "order is already cancelled")
	ErrOrderAlreadyCompleted      = NewValidationError("ExchangeOrder.AlreadyCompleted", "cannot cancel a completed order")
	ErrOrderInvalidStatus         = NewValidationError("ExchangeOrder.InvalidStatus", "invalid exchange order status")

	ErrExchangeOrderNotFound = NewNotFoundError("ExchangeOrder.NotFound", "exchange order not found")
	ErrExchangeOrderConflict = NewConflictError("ExchangeOrder.ConcurrentUpdate", "exchange order was modified concurrently")
	ErrExchangeOrderBusy     = NewConflictError("ExchangeOrder.Busy", "exchange order is being processed")
	ErrExchangeOrderExists   = NewConflictError("ExchangeOrder.AlreadyExists", "exchange order already exists")
	ErrExchangeOrderCorrupt  = NewFailureError("ExchangeOrder.CorruptRecord", "stored exchange order is invalid", nil)
	ErrExchangeOrderStorage  = NewFailureError("ExchangeOrder.StorageFailure", "exchange order storage failure", nil)

	ErrCurrencyPairRequired  = NewValidationError("CurrencyPair.Required", "currency pair is required")
	ErrCurrencyPairsRequired = NewValidationError("CurrencyPairs.Required", "at least one currency pair is required")
	ErrUnsupportedCurrency   = NewValidationError("Currency.Unsupported", "unsupported currency")
	ErrRateNotFound          = NewNotFoundError("Rate.NotFound", "no exchange rate found")
	ErrRateInvalidCurrency   = NewValidationError("Rate.InvalidCurrency", "invalid currency type in rate response")
	ErrRateProviderFailure   = NewFailureError("Rate.ProviderFailure", "failed to fetch rate", nil)

	ErrDepositAddressNotFound = NewNotFoundError("DepositAddress.NotFound", "no system deposit address configured")
)
