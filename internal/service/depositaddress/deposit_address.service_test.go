package depositaddress

import (
	"errors"
	"testing"

	"github.com/krobus00/deelrate-service/internal/config"
	"github.com/krobus00/deelrate-service/internal/entity"
)

const testWallet = "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"

func testDepositConfig() config.DepositAddressesConfig {
	return config.DepositAddressesConfig{
		Crypto: map[string]string{
			"btc": testWallet,
		},
		Fiat: map[string]config.BankAccountConfig{
			"USD": {AccountNumber: "0123456789", AccountName: "Deelrate Treasury", BankName: "First Bank"},
		},
	}
}

func TestNewDepositAddressService_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DepositAddressesConfig
	}{
		{
			name: "unknown crypto type",
			cfg:  config.DepositAddressesConfig{Crypto: map[string]string{"LTC": testWallet}},
		},
		{
			name: "short wallet",
			cfg:  config.DepositAddressesConfig{Crypto: map[string]string{"BTC": "abc"}},
		},
		{
			name: "unknown fiat type",
			cfg: config.DepositAddressesConfig{Fiat: map[string]config.BankAccountConfig{
				"JPY": {AccountNumber: "0123456789", AccountName: "Treasury", BankName: "Bank"},
			}},
		},
		{
			name: "bad account number",
			cfg: config.DepositAddressesConfig{Fiat: map[string]config.BankAccountConfig{
				"USD": {AccountNumber: "123", AccountName: "Treasury", BankName: "Bank"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDepositAddressService(tt.cfg); err == nil {
				t.Fatal("expected a configuration error")
			}
		})
	}
}

func TestDepositAddressService_DepositAddressFor(t *testing.T) {
	svc, err := NewDepositAddressService(testDepositConfig())
	if err != nil {
		t.Fatalf("NewDepositAddressService: %v", err)
	}

	tests := []struct {
		name       string
		orderType  entity.OrderType
		cryptoType entity.CryptoType
		fiatType   entity.FiatType
		wantType   entity.AddressType
		wantErr    error
	}{
		{name: "buy pays into the fiat account", orderType: entity.OrderTypeBuy, cryptoType: entity.CryptoTypeETH, fiatType: entity.FiatTypeUSD, wantType: entity.AddressTypeFiatAccount},
		{name: "sell pays into the crypto wallet", orderType: entity.OrderTypeSell, cryptoType: entity.CryptoTypeBTC, fiatType: entity.FiatTypeNGN, wantType: entity.AddressTypeCryptoWallet},
		{name: "buy without account", orderType: entity.OrderTypeBuy, fiatType: entity.FiatTypeEUR, wantErr: entity.ErrDepositAddressNotFound},
		{name: "sell without wallet", orderType: entity.OrderTypeSell, cryptoType: entity.CryptoTypeSOL, wantErr: entity.ErrDepositAddressNotFound},
		{name: "unknown order type", orderType: "SWAP", wantErr: entity.ErrOrderInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			address, err := svc.DepositAddressFor(tt.orderType, tt.cryptoType, tt.fiatType)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if address.Type() != tt.wantType {
				t.Errorf("type = %s, want %s", address.Type(), tt.wantType)
			}
		})
	}
}
