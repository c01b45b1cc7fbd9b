package entity

import (
	"errors"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

func TestRehydrateExchangeOrder_RoundTrip(t *testing.T) {
	order := mustInitiate(t, newSellParams(t))
	crypto := mustCryptoAmount(t, "0.5", CryptoTypeBTC)

	if err := order.MarkPaymentPending(); err != nil {
		t.Fatal(err)
	}
	if err := order.SystemConfirmPayment(nil, &crypto, decimal.NewFromInt(40000)); err != nil {
		t.Fatal(err)
	}
	if err := order.UserConfirmPayment(); err != nil {
		t.Fatal(err)
	}
	completed, err := order.CompleteExchange()
	if err != nil {
		t.Fatal(err)
	}

	snapshot := order.Snapshot()
	if snapshot.DestinationType != AddressTypeFiatAccount || snapshot.DestinationWallet.Valid {
		t.Errorf("unexpected destination columns %+v", snapshot)
	}
	if snapshot.DepositType != AddressTypeCryptoWallet || snapshot.DepositWallet.ValueOrZero() != testWallet {
		t.Errorf("unexpected deposit columns %+v", snapshot)
	}

	restored, err := RehydrateExchangeOrder(snapshot)
	if err != nil {
		t.Fatalf("RehydrateExchangeOrder: %v", err)
	}

	if restored.ID() != order.ID() || restored.Status() != ExchangeOrderStatusCompleted {
		t.Errorf("restored %s in %s", restored.ID(), restored.Status())
	}
	if !restored.UserDestination().Equal(order.UserDestination()) || !restored.SystemDeposit().Equal(order.SystemDeposit()) {
		t.Error("addresses changed across a round trip")
	}
	if !restored.FiatAmount().Equal(*order.FiatAmount()) || !restored.CryptoAmount().Equal(*order.CryptoAmount()) {
		t.Error("amounts changed across a round trip")
	}
	if restored.Completion() == nil || !restored.Completion().Rate.Equal(completed.Rate) {
		t.Errorf("completion = %+v, want rate %s", restored.Completion(), completed.Rate)
	}
}

func TestRehydrateExchangeOrder_Invalid(t *testing.T) {
	valid := func(t *testing.T) ExchangeOrderSnapshot {
		return mustInitiate(t, newBuyParams(t)).Snapshot()
	}

	tests := []struct {
		name   string
		mutate func(s *ExchangeOrderSnapshot)
		want   error
	}{
		{
			name:   "unknown status",
			mutate: func(s *ExchangeOrderSnapshot) { s.Status = "SHIPPED" },
			want:   ErrOrderInvalidStatus,
		},
		{
			name:   "unknown fiat type",
			mutate: func(s *ExchangeOrderSnapshot) { s.FiatType = "JPY" },
			want:   ErrOrderInvalidFiatType,
		},
		{
			name:   "non positive amount",
			mutate: func(s *ExchangeOrderSnapshot) { s.FiatAmount = decimal.NewNullDecimal(decimal.Zero) },
			want:   ErrInvalidFiatAmount,
		},
		{
			name:   "unknown address type",
			mutate: func(s *ExchangeOrderSnapshot) { s.DestinationType = "PAYPAL" },
			want:   ErrUnknownDestinationType,
		},
		{
			name:   "invalid wallet",
			mutate: func(s *ExchangeOrderSnapshot) { s.DestinationWallet = null.StringFrom("short") },
			want:   ErrInvalidWalletAddress,
		},
		{
			name:   "completed without completion data",
			mutate: func(s *ExchangeOrderSnapshot) { s.Status = ExchangeOrderStatusCompleted },
			want:   ErrOrderIncompleteAmounts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := valid(t)
			tt.mutate(&snapshot)

			_, err := RehydrateExchangeOrder(snapshot)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
