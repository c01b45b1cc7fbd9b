package entity

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func newBuyParams(t *testing.T) InitiateExchangeOrderParams {
	t.Helper()
	fiat := mustFiatAmount(t, FiatTypeUSD, "100")
	return InitiateExchangeOrderParams{
		UserID:          "user-1",
		OrderType:       OrderTypeBuy,
		CryptoType:      CryptoTypeBTC,
		FiatAmount:      &fiat,
		UserDestination: mustCryptoAddress(t, testWallet),
		SystemDeposit:   mustFiatAccount(t),
	}
}

func newSellParams(t *testing.T) InitiateExchangeOrderParams {
	t.Helper()
	crypto := mustCryptoAmount(t, "0.5", CryptoTypeBTC)
	return InitiateExchangeOrderParams{
		UserID:          "user-1",
		OrderType:       OrderTypeSell,
		CryptoType:      CryptoTypeBTC,
		FiatType:        FiatTypeUSD,
		CryptoAmount:    &crypto,
		UserDestination: mustFiatAccount(t),
		SystemDeposit:   mustCryptoAddress(t, testWallet),
	}
}

func mustInitiate(t *testing.T, params InitiateExchangeOrderParams) *ExchangeOrder {
	t.Helper()
	order, err := InitiateExchangeOrder(params)
	if err != nil {
		t.Fatalf("InitiateExchangeOrder: %v", err)
	}
	return order
}

func TestInitiateExchangeOrder(t *testing.T) {
	eth := mustCryptoAmount(t, "1", CryptoTypeETH)
	btc := mustCryptoAmount(t, "1", CryptoTypeBTC)
	usd := mustFiatAmount(t, FiatTypeUSD, "10")

	tests := []struct {
		name    string
		params  func(t *testing.T) InitiateExchangeOrderParams
		wantErr error
	}{
		{
			name:   "valid buy",
			params: newBuyParams,
		},
		{
			name:   "valid sell",
			params: newSellParams,
		},
		{
			name: "blank user id",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newBuyParams(t)
				p.UserID = "  "
				return p
			},
			wantErr: ErrOrderInvalidUserID,
		},
		{
			name: "invalid order type",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newBuyParams(t)
				p.OrderType = "SWAP"
				return p
			},
			wantErr: ErrOrderInvalidType,
		},
		{
			name: "invalid crypto type",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newBuyParams(t)
				p.CryptoType = "LTC"
				return p
			},
			wantErr: ErrOrderInvalidCryptoType,
		},
		{
			name: "buy without fiat amount",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newBuyParams(t)
				p.FiatAmount = nil
				return p
			},
			wantErr: ErrOrderMissingFiatAmount,
		},
		{
			name: "buy with crypto amount",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newBuyParams(t)
				p.CryptoAmount = &btc
				return p
			},
			wantErr: ErrOrderUnexpectedCryptoAmount,
		},
		{
			name: "buy with mismatched fiat type",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newBuyParams(t)
				p.FiatType = FiatTypeEUR
				return p
			},
			wantErr: ErrOrderFiatTypeMismatch,
		},
		{
			name: "buy paying out to a bank account",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newBuyParams(t)
				p.UserDestination = mustFiatAccount(t)
				return p
			},
			wantErr: ErrOrderInvalidDestination,
		},
		{
			name: "buy with wallet deposit",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newBuyParams(t)
				p.SystemDeposit = mustCryptoAddress(t, testWallet)
				return p
			},
			wantErr: ErrOrderInvalidDepositAddress,
		},
		{
			name: "sell without crypto amount",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newSellParams(t)
				p.CryptoAmount = nil
				return p
			},
			wantErr: ErrOrderMissingCryptoAmount,
		},
		{
			name: "sell with fiat amount",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newSellParams(t)
				p.FiatAmount = &usd
				return p
			},
			wantErr: ErrOrderUnexpectedFiatAmount,
		},
		{
			name: "sell with mismatched crypto currency",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newSellParams(t)
				p.CryptoAmount = &eth
				return p
			},
			wantErr: ErrOrderCryptoTypeMismatch,
		},
		{
			name: "sell without fiat type",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newSellParams(t)
				p.FiatType = ""
				return p
			},
			wantErr: ErrOrderInvalidFiatType,
		},
		{
			name: "sell paying out to a wallet",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newSellParams(t)
				p.UserDestination = mustCryptoAddress(t, testWallet)
				return p
			},
			wantErr: ErrOrderInvalidDestination,
		},
		{
			name: "sell with bank deposit",
			params: func(t *testing.T) InitiateExchangeOrderParams {
				p := newSellParams(t)
				p.SystemDeposit = mustFiatAccount(t)
				return p
			},
			wantErr: ErrOrderInvalidDepositAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := InitiateExchangeOrder(tt.params(t))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if ErrorKindOf(err) != ErrorKindValidation {
					t.Errorf("expected validation kind, got %s", ErrorKindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if order.ID() == "" {
				t.Error("expected a generated id")
			}
			if order.Status() != ExchangeOrderStatusInitiated {
				t.Errorf("status = %s, want INITIATED", order.Status())
			}
			if !order.CreatedAt().Equal(order.UpdatedAt()) {
				t.Error("createdAt and updatedAt must match at initiation")
			}
			if order.FiatType() != FiatTypeUSD {
				t.Errorf("fiat type = %s, want USD", order.FiatType())
			}
		})
	}
}

func TestExchangeOrder_BuyLifecycle(t *testing.T) {
	order := mustInitiate(t, newBuyParams(t))

	if err := order.MarkPaymentPending(); err != nil {
		t.Fatalf("MarkPaymentPending: %v", err)
	}

	received := mustFiatAmount(t, FiatTypeUSD, "100.005")
	if err := order.SystemConfirmPayment(&received, nil, decimal.NewFromInt(50000)); err != nil {
		t.Fatalf("SystemConfirmPayment: %v", err)
	}
	if order.Status() != ExchangeOrderStatusSystemConfirmedPayment {
		t.Fatalf("status = %s", order.Status())
	}
	if got := order.CryptoAmount(); got == nil || !got.Value().Equal(decimal.RequireFromString("0.0020001")) {
		t.Fatalf("crypto amount = %v, want 0.0020001 BTC", got)
	}

	if err := order.UserConfirmPayment(); err != nil {
		t.Fatalf("UserConfirmPayment: %v", err)
	}

	completed, err := order.CompleteExchange()
	if err != nil {
		t.Fatalf("CompleteExchange: %v", err)
	}
	if order.Status() != ExchangeOrderStatusCompleted {
		t.Fatalf("status = %s", order.Status())
	}
	if completed.OrderID != order.ID() || completed.UserID != "user-1" || completed.OrderType != OrderTypeBuy {
		t.Errorf("unexpected completion identity %+v", completed)
	}
	if !completed.AmountFrom.Equal(order.CryptoAmount().Value()) || !completed.AmountTo.Equal(decimal.NewFromInt(100)) {
		t.Errorf("amounts = %s -> %s", completed.AmountFrom, completed.AmountTo)
	}
	wantRate := decimal.NewFromInt(100).Div(decimal.RequireFromString("0.0020001"))
	if !completed.Rate.Equal(wantRate) {
		t.Errorf("rate = %s, want %s", completed.Rate, wantRate)
	}
	if order.CompletedAt() == nil || !order.CompletedAt().Equal(completed.CompletedAt) {
		t.Error("completedAt must be set to the completion time")
	}
	if order.Completion() == nil || order.Completion().OrderID != order.ID() {
		t.Error("completion must be kept on the order")
	}
	if len(order.AllowedOperations()) != 0 {
		t.Errorf("completed order allows %v", order.AllowedOperations())
	}
}

func TestExchangeOrder_SellLifecycle(t *testing.T) {
	order := mustInitiate(t, newSellParams(t))

	if err := order.MarkPaymentPending(); err != nil {
		t.Fatalf("MarkPaymentPending: %v", err)
	}

	received := mustCryptoAmount(t, "0.5", CryptoTypeBTC)
	if err := order.SystemConfirmPayment(nil, &received, decimal.NewFromInt(40000)); err != nil {
		t.Fatalf("SystemConfirmPayment: %v", err)
	}
	if got := order.FiatAmount(); got == nil || !got.Amount().Equal(decimal.NewFromInt(20000)) || got.FiatType() != FiatTypeUSD {
		t.Fatalf("fiat amount = %v, want 20000 USD", got)
	}

	if err := order.UserConfirmPayment(); err != nil {
		t.Fatalf("UserConfirmPayment: %v", err)
	}

	completed, err := order.CompleteExchange()
	if err != nil {
		t.Fatalf("CompleteExchange: %v", err)
	}
	if !completed.AmountFrom.Equal(decimal.RequireFromString("0.5")) || !completed.AmountTo.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("amounts = %s -> %s", completed.AmountFrom, completed.AmountTo)
	}
	if !completed.Rate.Equal(decimal.RequireFromString("0.000025")) {
		t.Errorf("rate = %s, want 0.000025", completed.Rate)
	}
}

func TestExchangeOrder_SystemConfirmPaymentRejections(t *testing.T) {
	usd := mustFiatAmount(t, FiatTypeUSD, "100")
	offBy := mustFiatAmount(t, FiatTypeUSD, "100.01")
	btc := mustCryptoAmount(t, "0.5", CryptoTypeBTC)
	lessBTC := mustCryptoAmount(t, "0.49", CryptoTypeBTC)

	tests := []struct {
		name   string
		params func(t *testing.T) InitiateExchangeOrderParams
		fiat   *FiatAmount
		crypto *CryptoAmount
		rate   decimal.Decimal
		want   error
	}{
		{name: "buy zero rate", params: newBuyParams, fiat: &usd, rate: decimal.Zero, want: ErrOrderInvalidRate},
		{name: "sell zero rate", params: newSellParams, crypto: &btc, rate: decimal.Zero, want: ErrOrderInvalidRate},
		{name: "buy negative rate", params: newBuyParams, fiat: &usd, rate: decimal.NewFromInt(-1), want: ErrOrderInvalidRate},
		{name: "buy missing fiat", params: newBuyParams, rate: decimal.NewFromInt(1), want: ErrOrderMissingFiatReceived},
		{name: "buy fiat mismatch", params: newBuyParams, fiat: &offBy, rate: decimal.NewFromInt(1), want: ErrOrderFiatMismatch},
		{name: "sell missing crypto", params: newSellParams, rate: decimal.NewFromInt(1), want: ErrOrderMissingCryptoReceived},
		{name: "sell crypto mismatch", params: newSellParams, crypto: &lessBTC, rate: decimal.NewFromInt(1), want: ErrOrderCryptoMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := mustInitiate(t, tt.params(t))
			if err := order.MarkPaymentPending(); err != nil {
				t.Fatalf("MarkPaymentPending: %v", err)
			}

			err := order.SystemConfirmPayment(tt.fiat, tt.crypto, tt.rate)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if order.Status() != ExchangeOrderStatusPaymentPending {
				t.Errorf("rejected confirmation changed status to %s", order.Status())
			}
		})
	}
}

func TestExchangeOrder_StatusChecksComeFirst(t *testing.T) {
	order := mustInitiate(t, newBuyParams(t))

	// zero rate in the wrong status reports the status problem
	err := order.SystemConfirmPayment(nil, nil, decimal.Zero)
	if !errors.Is(err, ErrOrderNotPaymentPending) {
		t.Fatalf("expected ErrOrderNotPaymentPending, got %v", err)
	}

	if _, err := order.CompleteExchange(); !errors.Is(err, ErrOrderNotUserConfirmed) {
		t.Fatalf("expected ErrOrderNotUserConfirmed, got %v", err)
	}
	if err := order.UserConfirmPayment(); !errors.Is(err, ErrOrderNotSystemConfirmed) {
		t.Fatalf("expected ErrOrderNotSystemConfirmed, got %v", err)
	}
	if order.Status() != ExchangeOrderStatusInitiated {
		t.Errorf("status = %s, want INITIATED", order.Status())
	}
}

func TestExchangeOrder_Transitions(t *testing.T) {
	statuses := []ExchangeOrderStatus{
		ExchangeOrderStatusInitiated,
		ExchangeOrderStatusPaymentPending,
		ExchangeOrderStatusSystemConfirmedPayment,
		ExchangeOrderStatusUserConfirmPayment,
		ExchangeOrderStatusCompleted,
		ExchangeOrderStatusCancelled,
	}

	tests := []struct {
		status ExchangeOrderStatus
		want   []ExchangeOrderOperation
	}{
		{status: ExchangeOrderStatusInitiated, want: []ExchangeOrderOperation{OperationMarkPaymentPending, OperationCancel}},
		{status: ExchangeOrderStatusPaymentPending, want: []ExchangeOrderOperation{OperationSystemConfirmPayment, OperationCancel}},
		{status: ExchangeOrderStatusSystemConfirmedPayment, want: []ExchangeOrderOperation{OperationUserConfirmPayment, OperationCancel}},
		{status: ExchangeOrderStatusUserConfirmPayment, want: []ExchangeOrderOperation{OperationCompleteExchange, OperationCancel}},
		{status: ExchangeOrderStatusCompleted},
		{status: ExchangeOrderStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got := AllowedOperations(tt.status)
			if len(got) != len(tt.want) {
				t.Fatalf("AllowedOperations = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("AllowedOperations = %v, want %v", got, tt.want)
				}
			}
		})
	}

	for _, status := range statuses {
		if !status.IsValid() {
			t.Errorf("%s must be valid", status)
		}
	}
	if ExchangeOrderStatus("SHIPPED").IsValid() {
		t.Error("unknown status must be invalid")
	}
	if !ExchangeOrderStatusCompleted.IsTerminal() || !ExchangeOrderStatusCancelled.IsTerminal() || ExchangeOrderStatusInitiated.IsTerminal() {
		t.Error("only COMPLETED and CANCELLED are terminal")
	}
}

func TestExchangeOrder_Cancel(t *testing.T) {
	advance := []func(t *testing.T, o *ExchangeOrder){
		func(t *testing.T, o *ExchangeOrder) {},
		func(t *testing.T, o *ExchangeOrder) {
			if err := o.MarkPaymentPending(); err != nil {
				t.Fatal(err)
			}
		},
		func(t *testing.T, o *ExchangeOrder) {
			if err := o.MarkPaymentPending(); err != nil {
				t.Fatal(err)
			}
			fiat := mustFiatAmount(t, FiatTypeUSD, "100")
			if err := o.SystemConfirmPayment(&fiat, nil, decimal.NewFromInt(50000)); err != nil {
				t.Fatal(err)
			}
		},
	}

	for i, fn := range advance {
		order := mustInitiate(t, newBuyParams(t))
		fn(t, order)

		if err := order.Cancel(); err != nil {
			t.Fatalf("step %d: Cancel: %v", i, err)
		}
		if order.Status() != ExchangeOrderStatusCancelled {
			t.Fatalf("step %d: status = %s", i, order.Status())
		}
		if err := order.Cancel(); !errors.Is(err, ErrOrderAlreadyCancelled) {
			t.Fatalf("step %d: second Cancel expected ErrOrderAlreadyCancelled, got %v", i, err)
		}
		if err := order.MarkPaymentPending(); !errors.Is(err, ErrOrderNotInitiated) {
			t.Fatalf("step %d: cancelled order accepted MarkPaymentPending: %v", i, err)
		}
	}
}

func TestExchangeOrder_CancelCompleted(t *testing.T) {
	order := mustInitiate(t, newSellParams(t))
	crypto := mustCryptoAmount(t, "0.5", CryptoTypeBTC)

	steps := []func() error{
		order.MarkPaymentPending,
		func() error { return order.SystemConfirmPayment(nil, &crypto, decimal.NewFromInt(40000)) },
		order.UserConfirmPayment,
		func() error {
			_, err := order.CompleteExchange()
			return err
		},
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if err := order.Cancel(); !errors.Is(err, ErrOrderAlreadyCompleted) {
		t.Fatalf("expected ErrOrderAlreadyCompleted, got %v", err)
	}
	if _, err := order.CompleteExchange(); !errors.Is(err, ErrOrderNotUserConfirmed) {
		t.Fatalf("expected ErrOrderNotUserConfirmed, got %v", err)
	}
}

func TestExchangeOrder_GettersReturnCopies(t *testing.T) {
	order := mustInitiate(t, newBuyParams(t))

	fiat := order.FiatAmount()
	*fiat = mustFiatAmount(t, FiatTypeEUR, "1")

	if order.FiatAmount().FiatType() != FiatTypeUSD {
		t.Error("mutating a returned amount must not change the order")
	}
	if order.CryptoAmount() != nil {
		t.Error("buy order has no crypto amount before confirmation")
	}
}
