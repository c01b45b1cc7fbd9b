package entity

import (
	"strings"
)

type AddressType string

const (
	AddressTypeCryptoWallet AddressType = "CRYPTO_WALLET"
	AddressTypeFiatAccount  AddressType = "FIAT_ACCOUNT"
)

const (
	minWalletLength     = 26
	maxWalletLength     = 62
	accountNumberLength = 10
)

// DestinationAddress is either a crypto wallet or a fiat bank account. The variant is part of
// its identity: a wallet never equals an account.
type DestinationAddress struct {
	addressType   AddressType
	wallet        string
	accountNumber string
	accountName   string
	bankName      string
}

func NewCryptoAddress(wallet string) (DestinationAddress, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return DestinationAddress{}, ErrEmptyWalletAddress
	}
	if len(wallet) < minWalletLength || len(wallet) > maxWalletLength {
		return DestinationAddress{}, ErrInvalidWalletAddress
	}

	return DestinationAddress{
		addressType: AddressTypeCryptoWallet,
		wallet:      wallet,
	}, nil
}

func NewFiatAccount(accountNumber, accountName, bankName string) (DestinationAddress, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	accountName = strings.TrimSpace(accountName)
	bankName = strings.TrimSpace(bankName)

	if !isAccountNumber(accountNumber) {
		return DestinationAddress{}, ErrInvalidAccountNumber
	}
	if accountName == "" {
		return DestinationAddress{}, ErrEmptyAccountName
	}
	if bankName == "" {
		return DestinationAddress{}, ErrEmptyBankName
	}

	return DestinationAddress{
		addressType:   AddressTypeFiatAccount,
		accountNumber: accountNumber,
		accountName:   accountName,
		bankName:      bankName,
	}, nil
}

func isAccountNumber(s string) bool {
	if len(s) != accountNumberLength {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func (a DestinationAddress) Type() AddressType {
	return a.addressType
}

func (a DestinationAddress) IsZero() bool {
	return a.addressType == ""
}

func (a DestinationAddress) IsCryptoWallet() bool {
	return a.addressType == AddressTypeCryptoWallet
}

func (a DestinationAddress) IsFiatAccount() bool {
	return a.addressType == AddressTypeFiatAccount
}

func (a DestinationAddress) Wallet() string {
	return a.wallet
}

func (a DestinationAddress) AccountNumber() string {
	return a.accountNumber
}

func (a DestinationAddress) AccountName() string {
	return a.accountName
}

func (a DestinationAddress) BankName() string {
	return a.bankName
}

func (a DestinationAddress) Equal(other DestinationAddress) bool {
	if a.addressType != other.addressType {
		return false
	}

	if a.addressType == AddressTypeFiatAccount {
		return a.accountNumber == other.accountNumber &&
			a.accountName == other.accountName &&
			a.bankName == other.bankName
	}

	return a.wallet == other.wallet
}

func (a DestinationAddress) String() string {
	switch a.addressType {
	case AddressTypeCryptoWallet:
		return a.wallet
	case AddressTypeFiatAccount:
		return a.accountNumber + " (" + a.accountName + ", " + a.bankName + ")"
	default:
		return ""
	}
}
