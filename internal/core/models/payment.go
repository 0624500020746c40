package models

import "github.com/shopspring/decimal"

// PaymentRequest is the caller's request to collect money from a payer.
type PaymentRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency,omitempty"`
	ExternalID       string          `json:"external_id,omitempty"`
	PayerPhoneNumber string          `json:"payer_phone_number"`
	PayerMessage     string          `json:"payer_message,omitempty"`
	PayeeNote        string          `json:"payee_note,omitempty"`
}

type PaymentResult struct {
	ReferenceID string
	ExternalID  string
	Status      TransactionStatus
	Amount      decimal.Decimal
	Currency    string
}

type PaymentStatus struct {
	ReferenceID            string
	Status                 TransactionStatus
	Amount                 decimal.Decimal
	Currency               string
	FinancialTransactionID *string
}
