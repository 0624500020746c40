package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Nzyazin/momopay/internal/core/models"
	"github.com/Nzyazin/momopay/internal/core/usecase"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPayments struct{ mock.Mock }

func (m *mockPayments) InitiatePayment(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*models.PaymentResult)
	return res, args.Error(1)
}

func (m *mockPayments) GetStatus(ctx context.Context, referenceID string) (*models.PaymentStatus, error) {
	args := m.Called(ctx, referenceID)
	res, _ := args.Get(0).(*models.PaymentStatus)
	return res, args.Error(1)
}

type mockTransactions struct{ mock.Mock }

func (m *mockTransactions) List(ctx context.Context, skip, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, skip, limit)
	res, _ := args.Get(0).([]models.Transaction)
	return res, args.Error(1)
}

func (m *mockTransactions) GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	args := m.Called(ctx, externalID)
	res, _ := args.Get(0).(*models.Transaction)
	return res, args.Error(1)
}

type mockSystem struct{ mock.Mock }

func (m *mockSystem) CheckProvider(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSystem) ConfigSummary() usecase.ConfigSummary {
	return m.Called().Get(0).(usecase.ConfigSummary)
}

type fixture struct {
	router       *mux.Router
	payments     *mockPayments
	transactions *mockTransactions
	system       *mockSystem
}

func newFixture() *fixture {
	f := &fixture{
		router:       mux.NewRouter(),
		payments:     &mockPayments{},
		transactions: &mockTransactions{},
		system:       &mockSystem{},
	}
	log := zap.NewNop()
	NewPaymentHandler(f.payments, log).RegisterRoutes(f.router)
	NewTransactionHandler(f.transactions, log).RegisterRoutes(f.router)
	NewSystemHandler(f.system, log).RegisterRoutes(f.router)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRequestPaymentAccepted(t *testing.T) {
	f := newFixture()
	f.payments.On("InitiatePayment", mock.Anything, mock.MatchedBy(func(req models.PaymentRequest) bool {
		return req.Amount.Equal(decimal.RequireFromString("10")) && req.Currency == "GHS" && req.PayerPhoneNumber == "233500000001"
	})).Return(&models.PaymentResult{
		ReferenceID: "ref-1",
		ExternalID:  "ext-1",
		Status:      models.StatusPending,
		Amount:      decimal.RequireFromString("10"),
		Currency:    "GHS",
	}, nil)

	rec := f.do(http.MethodPost, "/payment/request", `{"amount":"10.00","currency":"GHS","payer_phone_number":"233500000001"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Payment request initiated successfully", body["message"])
	assert.Equal(t, "ref-1", body["reference_id"])
	assert.Equal(t, "PENDING", body["status"])
	assert.Equal(t, "10.00", body["amount"])
	f.payments.AssertExpectations(t)
}

func TestRequestPaymentAcceptsNumericAmount(t *testing.T) {
	f := newFixture()
	f.payments.On("InitiatePayment", mock.Anything, mock.Anything).Return(&models.PaymentResult{
		ReferenceID: "ref-1", Status: models.StatusPending, Amount: decimal.RequireFromString("25.5"), Currency: "GHS",
	}, nil)

	rec := f.do(http.MethodPost, "/payment/request", `{"amount":25.5,"payer_phone_number":"233500000001"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "25.50", decodeBody(t, rec)["amount"])
}

func TestRequestPaymentBadBody(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/payment/request", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/payment/request", `{"amount":"1","payer_phone_number":233}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.payments.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything)
}

func TestRequestPaymentIgnoresUnknownFields(t *testing.T) {
	f := newFixture()
	f.payments.On("InitiatePayment", mock.Anything, mock.MatchedBy(func(req models.PaymentRequest) bool {
		return req.PayerPhoneNumber == "233500000001"
	})).Return(&models.PaymentResult{
		ReferenceID: "ref-1", Status: models.StatusPending, Amount: decimal.RequireFromString("5"), Currency: "GHS",
	}, nil)

	rec := f.do(http.MethodPost, "/payment/request", `{"amount":"5.00","payer_phone_number":"233500000001","channel":"ussd"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	f.payments.AssertExpectations(t)
}

func TestRequestPaymentErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &usecase.Error{Kind: usecase.KindValidation, Message: "bad amount"}, http.StatusBadRequest},
		{"rejected", &usecase.Error{Kind: usecase.KindUpstreamRejected, StatusCode: http.StatusConflict, Message: "MTN Momo API Error: dup"}, http.StatusConflict},
		{"rejected odd status", &usecase.Error{Kind: usecase.KindUpstreamRejected, StatusCode: http.StatusOK, Message: "MTN Momo API Error"}, http.StatusBadGateway},
		{"token", &usecase.Error{Kind: usecase.KindUpstreamAuth, Message: "Failed to get access token", Err: errors.New("401")}, http.StatusInternalServerError},
		{"transport", &usecase.Error{Kind: usecase.KindTransport, Message: "Failed to initiate payment", Err: errors.New("timeout")}, http.StatusInternalServerError},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.payments.On("InitiatePayment", mock.Anything, mock.Anything).Return(nil, tc.err)

			rec := f.do(http.MethodPost, "/payment/request", `{"amount":"10.00","payer_phone_number":"233500000001"}`)
			assert.Equal(t, tc.code, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["detail"])
		})
	}
}

func TestGetPaymentStatus(t *testing.T) {
	f := newFixture()
	fin := "F123"
	f.payments.On("GetStatus", mock.Anything, "ref-1").Return(&models.PaymentStatus{
		ReferenceID:            "ref-1",
		Status:                 models.StatusSuccessful,
		Amount:                 decimal.RequireFromString("10"),
		Currency:               "GHS",
		FinancialTransactionID: &fin,
	}, nil)
	f.payments.On("GetStatus", mock.Anything, "unknown").Return(nil,
		&usecase.Error{Kind: usecase.KindNotFound, Message: "Payment transaction not found"})

	rec := f.do(http.MethodGet, "/payment/status/ref-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "SUCCESSFUL", body["status"])
	assert.Equal(t, "F123", body["financial_transaction_id"])

	rec = f.do(http.MethodGet, "/payment/status/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Payment transaction not found", decodeBody(t, rec)["detail"])
}

func TestListTransactions(t *testing.T) {
	f := newFixture()
	now := time.Now().UTC()
	f.transactions.On("List", mock.Anything, 0, 1).Return([]models.Transaction{{
		ID:              uuid.New(),
		MomoReferenceID: "ref-1",
		Amount:          decimal.RequireFromString("10"),
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}}, nil)
	f.transactions.On("List", mock.Anything, 0, 100).Return([]models.Transaction{}, nil)

	rec := f.do(http.MethodGet, "/transactions?skip=0&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "ref-1", rows[0]["momo_reference_id"])
	assert.Equal(t, "10.00", rows[0]["amount"])
	assert.Nil(t, rows[0]["financial_transaction_id"])

	rec = f.do(http.MethodGet, "/transactions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(http.MethodGet, "/transactions?limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(http.MethodGet, "/transactions?skip=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTransactionByExternalID(t *testing.T) {
	f := newFixture()
	f.transactions.On("GetByExternalID", mock.Anything, "order-1").Return(&models.Transaction{
		MomoReferenceID: "ref-1",
		ExternalID:      "order-1",
		Amount:          decimal.RequireFromString("10"),
		Status:          models.StatusFailed,
	}, nil)
	f.transactions.On("GetByExternalID", mock.Anything, "missing").Return(nil,
		&usecase.Error{Kind: usecase.KindNotFound, Message: "Transaction not found"})

	rec := f.do(http.MethodGet, "/transactions/order-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FAILED", decodeBody(t, rec)["status"])

	rec = f.do(http.MethodGet, "/transactions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSystemEndpoints(t *testing.T) {
	f := newFixture()
	masked := "0f1e2d3c..."
	f.system.On("ConfigSummary").Return(usecase.ConfigSummary{
		APIUserID:         &masked,
		TargetEnvironment: "sandbox",
		BaseURL:           "https://sandbox.momodeveloper.mtn.com",
		ConfigLoaded:      true,
	})
	f.system.On("CheckProvider", mock.Anything).Return(nil).Once()
	f.system.On("CheckProvider", mock.Anything).Return(&usecase.Error{
		Kind: usecase.KindUpstreamAuth, Message: "Service unhealthy", Err: errors.New("momo api returned 401"),
	}).Once()

	rec := f.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MTN Momo Payment API is running!", decodeBody(t, rec)["message"])

	rec = f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])

	rec = f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["detail"], "401")

	rec = f.do(http.MethodGet, "/config/test", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "0f1e2d3c...", body["api_user_id"])
	assert.Equal(t, true, body["config_loaded"])
}
