package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/guregu/null/v6"
	"github.com/krobus00/deelrate-service/internal/entity"
	"github.com/krobus00/deelrate-service/internal/service/exchangeorder"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxRequestBodyBytes = 1 << 20

type ExchangeOrderService interface {
	CreateOrder(ctx context.Context, input exchangeorder.CreateExchangeOrderInput) (*entity.ExchangeOrder, error)
	GetOrder(ctx context.Context, id string) (*entity.ExchangeOrder, error)
	ListUserOrders(ctx context.Context, userID string) ([]*entity.ExchangeOrder, error)
	ListOrdersByStatus(ctx context.Context, status entity.ExchangeOrderStatus) ([]*entity.ExchangeOrder, error)
	MarkPaymentPending(ctx context.Context, id string) (*entity.ExchangeOrder, error)
	SystemConfirmPayment(ctx context.Context, id string, input exchangeorder.SystemConfirmPaymentInput) (*entity.ExchangeOrder, error)
	UserConfirmPayment(ctx context.Context, id string) (*entity.ExchangeOrder, error)
	CompleteExchange(ctx context.Context, id string) (*entity.ExchangeOrder, *entity.ExchangeCompleted, error)
	Cancel(ctx context.Context, id string) (*entity.ExchangeOrder, error)
}

type RateService interface {
	GetRate(ctx context.Context, pair entity.CurrencyPair) (entity.ExchangeRate, error)
	GetRates(ctx context.Context, pairs []entity.CurrencyPair) ([]entity.ExchangeRate, error)
	GetRatesByBase(ctx context.Context, base string) ([]entity.ExchangeRate, error)
	GetSupportedCurrencyPairs() []entity.CurrencyPair
}

type DestinationAddressRequest struct {
	Type          string `json:"type"`
	Wallet        string `json:"wallet"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
}

type CreateExchangeOrderRequest struct {
	UserID       string                    `json:"user_id"`
	OrderType    string                    `json:"order_type"`
	CryptoType   string                    `json:"crypto_type"`
	FiatType     string                    `json:"fiat_type"`
	CryptoAmount null.String               `json:"crypto_amount"`
	FiatAmount   null.String               `json:"fiat_amount"`
	Destination  DestinationAddressRequest `json:"destination"`
}

type SystemConfirmPaymentRequest struct {
	FiatType     string      `json:"fiat_type"`
	FiatAmount   null.String `json:"fiat_amount"`
	CryptoType   string      `json:"crypto_type"`
	CryptoAmount null.String `json:"crypto_amount"`
	Rate         null.String `json:"rate"`
}

type DestinationAddressResponse struct {
	Type          string  `json:"type"`
	Wallet        *string `json:"wallet,omitempty"`
	AccountNumber *string `json:"account_number,omitempty"`
	AccountName   *string `json:"account_name,omitempty"`
	BankName      *string `json:"bank_name,omitempty"`
}

type ExchangeCompletedResponse struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	OrderType   string `json:"order_type"`
	CryptoType  string `json:"crypto_type"`
	FiatType    string `json:"fiat_type"`
	AmountFrom  string `json:"amount_from"`
	AmountTo    string `json:"amount_to"`
	Rate        string `json:"rate"`
	CompletedAt int64  `json:"completed_at"`
}

type ExchangeOrderResponse struct {
	ID                string                     `json:"id"`
	UserID            string                     `json:"user_id"`
	OrderType         string                     `json:"order_type"`
	CryptoType        string                     `json:"crypto_type"`
	FiatType          string                     `json:"fiat_type"`
	CryptoAmount      *string                    `json:"crypto_amount"`
	FiatAmount        *string                    `json:"fiat_amount"`
	Status            string                     `json:"status"`
	UserDestination   DestinationAddressResponse `json:"user_destination"`
	SystemDeposit     DestinationAddressResponse `json:"system_deposit"`
	AllowedOperations []string                   `json:"allowed_operations"`
	CreatedAt         int64                      `json:"created_at"`
	UpdatedAt         int64                      `json:"updated_at"`
	CompletedAt       *int64                     `json:"completed_at,omitempty"`
	Completion        *ExchangeCompletedResponse `json:"completion,omitempty"`
}

type ExchangeRateResponse struct {
	Base      string `json:"base"`
	Quote     string `json:"quote"`
	Pair      string `json:"pair"`
	Rate      string `json:"rate"`
	Timestamp int64  `json:"timestamp"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

type Handler struct {
	orderService ExchangeOrderService
	rateService  RateService
}

func NewExchangeHTTPHandler(orderService ExchangeOrderService, rateService RateService) *Handler {
	return &Handler{
		orderService: orderService,
		rateService:  rateService,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /exchange/v1/orders", h.CreateOrder)
	mux.HandleFunc("GET /exchange/v1/orders", h.ListOrdersByStatus)
	mux.HandleFunc("GET /exchange/v1/orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /exchange/v1/users/{userID}/orders", h.ListUserOrders)
	mux.HandleFunc("POST /exchange/v1/orders/{id}/payment-pending", h.MarkPaymentPending)
	mux.HandleFunc("POST /exchange/v1/orders/{id}/system-confirm", h.SystemConfirmPayment)
	mux.HandleFunc("POST /exchange/v1/orders/{id}/user-confirm", h.UserConfirmPayment)
	mux.HandleFunc("POST /exchange/v1/orders/{id}/complete", h.CompleteExchange)
	mux.HandleFunc("POST /exchange/v1/orders/{id}/cancel", h.CancelOrder)

	mux.HandleFunc("GET /exchange/v1/rates", h.GetRates)
	mux.HandleFunc("GET /exchange/v1/rates/{base}", h.GetRatesByBase)
	mux.HandleFunc("GET /exchange/v1/rates/{base}/{quote}", h.GetRate)
	mux.HandleFunc("GET /exchange/v1/currency-pairs", h.GetSupportedCurrencyPairs)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateExchangeOrderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	input, err := mapCreateRequestToInput(&req)
	if err != nil {
		writeError(w, err)
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapOrderToHTTPResponse(order))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToHTTPResponse(order))
}

func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListUserOrders(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": mapOrdersToHTTPResponse(orders)})
}

// ListOrdersByStatus serves ?status=PAYMENT_PENDING for back-office reconciliation.
func (h *Handler) ListOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	status, _ := entity.ParseExchangeOrderStatus(r.URL.Query().Get("status"))

	orders, err := h.orderService.ListOrdersByStatus(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": mapOrdersToHTTPResponse(orders)})
}

func (h *Handler) MarkPaymentPending(w http.ResponseWriter, r *http.Request) {
	h.writeOrderResult(w)(h.orderService.MarkPaymentPending(r.Context(), r.PathValue("id")))
}

func (h *Handler) SystemConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req SystemConfirmPaymentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	input, err := mapSystemConfirmRequestToInput(&req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeOrderResult(w)(h.orderService.SystemConfirmPayment(r.Context(), r.PathValue("id"), input))
}

func (h *Handler) UserConfirmPayment(w http.ResponseWriter, r *http.Request) {
	h.writeOrderResult(w)(h.orderService.UserConfirmPayment(r.Context(), r.PathValue("id")))
}

func (h *Handler) CompleteExchange(w http.ResponseWriter, r *http.Request) {
	order, _, err := h.orderService.CompleteExchange(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToHTTPResponse(order))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.writeOrderResult(w)(h.orderService.Cancel(r.Context(), r.PathValue("id")))
}

func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	pair := entity.NewCurrencyPair(r.PathValue("base"), r.PathValue("quote"))

	rate, err := h.rateService.GetRate(r.Context(), pair)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapRateToHTTPResponse(rate))
}

// GetRates serves ?pairs=BTC/USD,ETH/EUR. Pairs that could not be fetched are omitted.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	var pairs []entity.CurrencyPair
	for _, raw := range strings.Split(r.URL.Query().Get("pairs"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		pair, err := entity.ParseCurrencyPair(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		pairs = append(pairs, pair)
	}

	rates, err := h.rateService.GetRates(r.Context(), pairs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rates": mapRatesToHTTPResponse(rates)})
}

func (h *Handler) GetRatesByBase(w http.ResponseWriter, r *http.Request) {
	rates, err := h.rateService.GetRatesByBase(r.Context(), r.PathValue("base"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rates": mapRatesToHTTPResponse(rates)})
}

func (h *Handler) GetSupportedCurrencyPairs(w http.ResponseWriter, _ *http.Request) {
	pairs := h.rateService.GetSupportedCurrencyPairs()

	resp := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		resp = append(resp, pair.String())
	}

	writeJSON(w, http.StatusOK, map[string]any{"pairs": resp})
}

func (h *Handler) writeOrderResult(w http.ResponseWriter) func(*entity.ExchangeOrder, error) {
	return func(order *entity.ExchangeOrder, err error) {
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, mapOrderToHTTPResponse(order))
	}
}

func mapCreateRequestToInput(req *CreateExchangeOrderRequest) (exchangeorder.CreateExchangeOrderInput, error) {
	orderType, _ := entity.ParseOrderType(req.OrderType)
	cryptoType, _ := entity.ParseCryptoType(req.CryptoType)
	fiatType, _ := entity.ParseFiatType(req.FiatType)

	input := exchangeorder.CreateExchangeOrderInput{
		UserID:     req.UserID,
		OrderType:  orderType,
		CryptoType: cryptoType,
		FiatType:   fiatType,
	}

	if req.CryptoAmount.Valid {
		amount, err := parseCryptoAmount(req.CryptoAmount.String, cryptoType)
		if err != nil {
			return exchangeorder.CreateExchangeOrderInput{}, err
		}
		input.CryptoAmount = &amount
	}

	if req.FiatAmount.Valid {
		amount, err := parseFiatAmount(req.FiatAmount.String, fiatType)
		if err != nil {
			return exchangeorder.CreateExchangeOrderInput{}, err
		}
		input.FiatAmount = &amount
	}

	destination, err := mapDestinationRequest(req.Destination)
	if err != nil {
		return exchangeorder.CreateExchangeOrderInput{}, err
	}
	input.UserDestination = destination

	return input, nil
}

func mapSystemConfirmRequestToInput(req *SystemConfirmPaymentRequest) (exchangeorder.SystemConfirmPaymentInput, error) {
	var input exchangeorder.SystemConfirmPaymentInput

	if req.FiatAmount.Valid {
		fiatType, _ := entity.ParseFiatType(req.FiatType)
		amount, err := parseFiatAmount(req.FiatAmount.String, fiatType)
		if err != nil {
			return exchangeorder.SystemConfirmPaymentInput{}, err
		}
		input.ActualFiat = &amount
	}

	if req.CryptoAmount.Valid {
		cryptoType, _ := entity.ParseCryptoType(req.CryptoType)
		amount, err := parseCryptoAmount(req.CryptoAmount.String, cryptoType)
		if err != nil {
			return exchangeorder.SystemConfirmPaymentInput{}, err
		}
		input.ActualCrypto = &amount
	}

	if req.Rate.Valid {
		rate, err := decimal.NewFromString(strings.TrimSpace(req.Rate.String))
		if err != nil {
			return exchangeorder.SystemConfirmPaymentInput{}, entity.ErrOrderInvalidRate.Withf("invalid rate %q", req.Rate.String)
		}
		input.Rate = &rate
	}

	return input, nil
}

func parseCryptoAmount(raw string, cryptoType entity.CryptoType) (entity.CryptoAmount, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return entity.CryptoAmount{}, entity.ErrInvalidCryptoAmount.Withf("invalid crypto amount %q", raw)
	}

	return entity.NewCryptoAmount(value, cryptoType)
}

func parseFiatAmount(raw string, fiatType entity.FiatType) (entity.FiatAmount, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return entity.FiatAmount{}, entity.ErrInvalidFiatAmount.Withf("invalid fiat amount %q", raw)
	}

	return entity.NewFiatAmount(fiatType, value)
}

func mapDestinationRequest(req DestinationAddressRequest) (entity.DestinationAddress, error) {
	switch entity.AddressType(strings.ToUpper(strings.TrimSpace(req.Type))) {
	case entity.AddressTypeCryptoWallet:
		return entity.NewCryptoAddress(req.Wallet)
	case entity.AddressTypeFiatAccount:
		return entity.NewFiatAccount(req.AccountNumber, req.AccountName, req.BankName)
	default:
		return entity.DestinationAddress{}, entity.ErrUnknownDestinationType
	}
}

func mapOrderToHTTPResponse(order *entity.ExchangeOrder) *ExchangeOrderResponse {
	cryptoAmount := order.CryptoAmount()
	fiatAmount := order.FiatAmount()

	var completedAt *int64
	if t := order.CompletedAt(); t != nil {
		completedAt = null.IntFrom(t.UnixMilli()).Ptr()
	}

	operations := order.AllowedOperations()
	allowed := make([]string, 0, len(operations))
	for _, op := range operations {
		allowed = append(allowed, string(op))
	}

	resp := &ExchangeOrderResponse{
		ID:                order.ID(),
		UserID:            order.UserID(),
		OrderType:         string(order.OrderType()),
		CryptoType:        string(order.CryptoType()),
		FiatType:          string(order.FiatType()),
		Status:            string(order.Status()),
		UserDestination:   mapDestinationToHTTPResponse(order.UserDestination()),
		SystemDeposit:     mapDestinationToHTTPResponse(order.SystemDeposit()),
		AllowedOperations: allowed,
		CreatedAt:         order.CreatedAt().UnixMilli(),
		UpdatedAt:         order.UpdatedAt().UnixMilli(),
		CompletedAt:       completedAt,
	}

	if cryptoAmount != nil {
		resp.CryptoAmount = null.StringFrom(cryptoAmount.Value().String()).Ptr()
	}
	if fiatAmount != nil {
		resp.FiatAmount = null.StringFrom(fiatAmount.Amount().String()).Ptr()
	}

	if completion := order.Completion(); completion != nil {
		resp.Completion = &ExchangeCompletedResponse{
			OrderID:     completion.OrderID,
			UserID:      completion.UserID,
			OrderType:   string(completion.OrderType),
			CryptoType:  string(completion.CryptoType),
			FiatType:    string(completion.FiatType),
			AmountFrom:  completion.AmountFrom.String(),
			AmountTo:    completion.AmountTo.String(),
			Rate:        completion.Rate.String(),
			CompletedAt: completion.CompletedAt.UnixMilli(),
		}
	}

	return resp
}

func mapOrdersToHTTPResponse(orders []*entity.ExchangeOrder) []*ExchangeOrderResponse {
	resp := make([]*ExchangeOrderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, mapOrderToHTTPResponse(order))
	}

	return resp
}

func mapDestinationToHTTPResponse(address entity.DestinationAddress) DestinationAddressResponse {
	return DestinationAddressResponse{
		Type:          string(address.Type()),
		Wallet:        null.NewString(address.Wallet(), address.IsCryptoWallet()).Ptr(),
		AccountNumber: null.NewString(address.AccountNumber(), address.IsFiatAccount()).Ptr(),
		AccountName:   null.NewString(address.AccountName(), address.IsFiatAccount()).Ptr(),
		BankName:      null.NewString(address.BankName(), address.IsFiatAccount()).Ptr(),
	}
}

func mapRateToHTTPResponse(rate entity.ExchangeRate) ExchangeRateResponse {
	return ExchangeRateResponse{
		Base:      rate.Pair().Base,
		Quote:     rate.Pair().Quote,
		Pair:      rate.Pair().String(),
		Rate:      rate.Rate().String(),
		Timestamp: rate.Timestamp().UnixMilli(),
	}
}

func mapRatesToHTTPResponse(rates []entity.ExchangeRate) []ExchangeRateResponse {
	resp := make([]ExchangeRateResponse, 0, len(rates))
	for _, rate := range rates {
		resp = append(resp, mapRateToHTTPResponse(rate))
	}

	return resp
}

// StatusCodeFromError maps an error kind to its HTTP status.
func StatusCodeFromError(err error) int {
	switch entity.ErrorKindOf(err) {
	case entity.ErrorKindValidation:
		return http.StatusBadRequest
	case entity.ErrorKindConflict:
		return http.StatusConflict
	case entity.ErrorKindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := StatusCodeFromError(err)

	var domainErr *entity.Error
	if !errors.As(err, &domainErr) {
		logrus.Error(err)
		writeJSON(w, code, ErrorResponse{Error: "internal server error"})
		return
	}

	message := domainErr.Message
	if domainErr.Kind == entity.ErrorKindFailure {
		logrus.WithField("code", domainErr.Code).Error(err)
	}

	writeJSON(w, code, ErrorResponse{
		Error: message,
		Code:  domainErr.Code,
		Kind:  string(domainErr.Kind),
	})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(dst)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json body"})
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
