package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/internal/core/models"
	"github.com/Nzyazin/momopay/internal/core/usecase"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	defaultSkip  = 0
	defaultLimit = 100
)

type TransactionHandler struct {
	usecase usecase.TransactionUsecase
	log     logger.Logger
}

type TransactionResponse struct {
	ID                     uuid.UUID                `json:"id"`
	MomoReferenceID        string                   `json:"momo_reference_id"`
	ExternalID             string                   `json:"external_id"`
	Amount                 string                   `json:"amount"`
	Currency               string                   `json:"currency"`
	PayerPhoneNumber       string                   `json:"payer_phone_number"`
	Status                 models.TransactionStatus `json:"status"`
	FinancialTransactionID *string                  `json:"financial_transaction_id"`
	PayerMessage           string                   `json:"payer_message"`
	PayeeNote              string                   `json:"payee_note"`
	CreatedAt              time.Time                `json:"created_at"`
	UpdatedAt              time.Time                `json:"updated_at"`
}

func NewTransactionHandler(usecase usecase.TransactionUsecase, log logger.Logger) *TransactionHandler {
	return &TransactionHandler{usecase: usecase, log: log}
}

func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	router.HandleFunc("/transactions/{external_id}", h.GetTransaction).Methods(http.MethodGet)
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", defaultSkip)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := h.usecase.List(r.Context(), skip, limit)
	if err != nil {
		respondWithUsecaseError(w, h.log, r, err)
		return
	}

	out := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, toTransactionResponse(&txs[i]))
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.usecase.GetByExternalID(r.Context(), mux.Vars(r)["external_id"])
	if err != nil {
		respondWithUsecaseError(w, h.log, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func toTransactionResponse(tx *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                     tx.ID,
		MomoReferenceID:        tx.MomoReferenceID,
		ExternalID:             tx.ExternalID,
		Amount:                 tx.Amount.StringFixed(2),
		Currency:               tx.Currency,
		PayerPhoneNumber:       tx.PayerPhoneNumber,
		Status:                 tx.Status,
		FinancialTransactionID: tx.FinancialTransactionID,
		PayerMessage:           tx.PayerMessage,
		PayeeNote:              tx.PayeeNote,
		CreatedAt:              tx.CreatedAt,
		UpdatedAt:              tx.UpdatedAt,
	}
}

func queryInt(r *http.Request, key string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &queryError{key: key, value: raw}
	}
	return v, nil
}

type queryError struct {
	key, value string
}

func (e *queryError) Error() string {
	return "invalid " + e.key + " value: " + e.value
}
