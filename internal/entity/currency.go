package entity

import "strings"

type CryptoType string
type FiatType string

const (
	CryptoTypeBTC  CryptoType = "BTC"
	CryptoTypeETH  CryptoType = "ETH"
	CryptoTypeUSDT CryptoType = "USDT"
	CryptoTypeUSDC CryptoType = "USDC"
	CryptoTypeBUSD CryptoType = "BUSD"
	CryptoTypeBNB  CryptoType = "BNB"
	CryptoTypeADA  CryptoType = "ADA"
	CryptoTypeDOGE CryptoType = "DOGE"
	CryptoTypeXRP  CryptoType = "XRP"
	CryptoTypeSOL  CryptoType = "SOL"

	FiatTypeEUR FiatType = "EUR"
	FiatTypeUSD FiatType = "USD"
	FiatTypeNGN FiatType = "NGN"
)

var (
	cryptoTypes = []CryptoType{
		CryptoTypeBTC,
		CryptoTypeETH,
		CryptoTypeUSDT,
		CryptoTypeUSDC,
		CryptoTypeBUSD,
		CryptoTypeBNB,
		CryptoTypeADA,
		CryptoTypeDOGE,
		CryptoTypeXRP,
		CryptoTypeSOL,
	}

	fiatTypes = []FiatType{
		FiatTypeEUR,
		FiatTypeUSD,
		FiatTypeNGN,
	}
)

// CryptoTypes returns every supported crypto type in declaration order.
func CryptoTypes() []CryptoType {
	out := make([]CryptoType, len(cryptoTypes))
	copy(out, cryptoTypes)
	return out
}

// FiatTypes returns every supported fiat type in declaration order.
func FiatTypes() []FiatType {
	out := make([]FiatType, len(fiatTypes))
	copy(out, fiatTypes)
	return out
}

func (c CryptoType) IsValid() bool {
	for _, v := range cryptoTypes {
		if v == c {
			return true
		}
	}

	return false
}

func (f FiatType) IsValid() bool {
	for _, v := range fiatTypes {
		if v == f {
			return true
		}
	}

	return false
}

func ParseCryptoType(raw string) (CryptoType, bool) {
	c := CryptoType(strings.ToUpper(strings.TrimSpace(raw)))
	return c, c.IsValid()
}

func ParseFiatType(raw string) (FiatType, bool) {
	f := FiatType(strings.ToUpper(strings.TrimSpace(raw)))
	return f, f.IsValid()
}

// IsKnownCurrency reports whether code is a supported crypto or fiat currency.
func IsKnownCurrency(code string) bool {
	if _, ok := ParseCryptoType(code); ok {
		return true
	}

	_, ok := ParseFiatType(code)
	return ok
}
