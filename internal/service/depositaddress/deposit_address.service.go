package depositaddress

import (
	"fmt"
	"strings"

	"github.com/krobus00/deelrate-service/internal/config"
	"github.com/krobus00/deelrate-service/internal/entity"
)

// DepositAddressService resolves the platform addresses users pay into: one wallet per crypto
// type and one bank account per fiat type.
type DepositAddressService struct {
	wallets  map[entity.CryptoType]entity.DestinationAddress
	accounts map[entity.FiatType]entity.DestinationAddress
}

func NewDepositAddressService(cfg config.DepositAddressesConfig) (*DepositAddressService, error) {
	s := &DepositAddressService{
		wallets:  make(map[entity.CryptoType]entity.DestinationAddress),
		accounts: make(map[entity.FiatType]entity.DestinationAddress),
	}

	for rawType, wallet := range cfg.Crypto {
		cryptoType, ok := entity.ParseCryptoType(rawType)
		if !ok {
			return nil, fmt.Errorf("deposit address: unsupported crypto type %q", rawType)
		}

		address, err := entity.NewCryptoAddress(wallet)
		if err != nil {
			return nil, fmt.Errorf("deposit address for %s: %w", cryptoType, err)
		}
		s.wallets[cryptoType] = address
	}

	for rawType, account := range cfg.Fiat {
		fiatType, ok := entity.ParseFiatType(rawType)
		if !ok {
			return nil, fmt.Errorf("deposit address: unsupported fiat type %q", rawType)
		}

		address, err := entity.NewFiatAccount(account.AccountNumber, account.AccountName, account.BankName)
		if err != nil {
			return nil, fmt.Errorf("deposit address for %s: %w", fiatType, err)
		}
		s.accounts[fiatType] = address
	}

	return s, nil
}

// DepositAddressFor returns where the user of an order must send funds: a bank account in
// the fiat currency for a buy, a wallet for the crypto currency for a sell.
func (s *DepositAddressService) DepositAddressFor(orderType entity.OrderType, cryptoType entity.CryptoType, fiatType entity.FiatType) (entity.DestinationAddress, error) {
	switch orderType {
	case entity.OrderTypeBuy:
		address, ok := s.accounts[fiatType]
		if !ok {
			return entity.DestinationAddress{}, entity.ErrDepositAddressNotFound.Withf("no deposit account configured for %s", strings.ToUpper(string(fiatType)))
		}
		return address, nil
	case entity.OrderTypeSell:
		address, ok := s.wallets[cryptoType]
		if !ok {
			return entity.DestinationAddress{}, entity.ErrDepositAddressNotFound.Withf("no deposit wallet configured for %s", strings.ToUpper(string(cryptoType)))
		}
		return address, nil
	default:
		return entity.DestinationAddress{}, entity.ErrOrderInvalidType
	}
}
