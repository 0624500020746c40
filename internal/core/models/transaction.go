package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is one payment attempt submitted to the provider.
type Transaction struct {
	ID                     uuid.UUID         `json:"id" db:"id"`
	MomoReferenceID        string            `json:"momo_reference_id" db:"momo_reference_id"`
	ExternalID             string            `json:"external_id" db:"external_id"`
	Amount                 decimal.Decimal   `json:"amount" db:"amount"`
	Currency               string            `json:"currency" db:"currency"`
	PayerPhoneNumber       string            `json:"payer_phone_number" db:"payer_phone_number"`
	Status                 TransactionStatus `json:"status" db:"status"`
	FinancialTransactionID *string           `json:"financial_transaction_id" db:"financial_transaction_id"`
	PayerMessage           string            `json:"payer_message" db:"payer_message"`
	PayeeNote              string            `json:"payee_note" db:"payee_note"`
	CreatedAt              time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at" db:"updated_at"`
}

// FinancialTransactionIDValue returns the provider's financial id or "".
func (t *Transaction) FinancialTransactionIDValue() string {
	if t.FinancialTransactionID == nil {
		return ""
	}
	return *t.FinancialTransactionID
}
