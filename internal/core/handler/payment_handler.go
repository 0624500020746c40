package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/internal/core/models"
	"github.com/Nzyazin/momopay/internal/core/usecase"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

type PaymentHandler struct {
	usecase usecase.PaymentUsecase
	log     logger.Logger
}

type PaymentResponse struct {
	Message     string                   `json:"message"`
	ReferenceID string                   `json:"reference_id"`
	ExternalID  string                   `json:"external_id"`
	Status      models.TransactionStatus `json:"status"`
	Amount      string                   `json:"amount"`
	Currency    string                   `json:"currency"`
}

type PaymentStatusResponse struct {
	ReferenceID            string                   `json:"reference_id"`
	Status                 models.TransactionStatus `json:"status"`
	Amount                 string                   `json:"amount"`
	Currency               string                   `json:"currency"`
	FinancialTransactionID *string                  `json:"financial_transaction_id"`
}

func NewPaymentHandler(usecase usecase.PaymentUsecase, log logger.Logger) *PaymentHandler {
	return &PaymentHandler{usecase: usecase, log: log}
}

func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/payment/request", h.RequestPayment).Methods(http.MethodPost)
	router.HandleFunc("/payment/status/{reference_id}", h.GetPaymentStatus).Methods(http.MethodGet)
}

func (h *PaymentHandler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.usecase.InitiatePayment(r.Context(), *req)
	if err != nil {
		respondWithUsecaseError(w, h.log, r, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, PaymentResponse{
		Message:     "Payment request initiated successfully",
		ReferenceID: result.ReferenceID,
		ExternalID:  result.ExternalID,
		Status:      result.Status,
		Amount:      result.Amount.StringFixed(2),
		Currency:    result.Currency,
	})
}

func (h *PaymentHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*models.PaymentRequest, error) {
	var req models.PaymentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Failed to decode request body", logger.ErrorField("error", err))
		return nil, fmt.Errorf("invalid request payload: %v", err)
	}
	return &req, nil
}

func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	referenceID := mux.Vars(r)["reference_id"]

	status, err := h.usecase.GetStatus(r.Context(), referenceID)
	if err != nil {
		respondWithUsecaseError(w, h.log, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, PaymentStatusResponse{
		ReferenceID:            status.ReferenceID,
		Status:                 status.Status,
		Amount:                 status.Amount.StringFixed(2),
		Currency:               status.Currency,
		FinancialTransactionID: status.FinancialTransactionID,
	})
}
