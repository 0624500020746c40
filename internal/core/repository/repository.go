package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Nzyazin/momopay/internal/core/models"
)

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrDuplicateReference = errors.New("momo reference id already exists")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByReferenceID(ctx context.Context, referenceID string) (*models.Transaction, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)
	List(ctx context.Context, offset, limit int) ([]models.Transaction, error)
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error)
	// UpdateStatus moves the transaction from status `from` to `to` only if it is
	// still in `from`. financialTransactionID must be set iff `to` is SUCCESSFUL.
	UpdateStatus(ctx context.Context, referenceID string, from, to models.TransactionStatus, financialTransactionID *string) (*models.Transaction, error)
}

// CheckUpdate validates a status change against the transition graph and the
// financial transaction id rule before it reaches the store.
func CheckUpdate(from, to models.TransactionStatus, financialTransactionID *string) error {
	if !from.CanTransition(to) {
		return ErrInvalidTransition
	}
	hasFinancialID := financialTransactionID != nil && *financialTransactionID != ""
	if (to == models.StatusSuccessful) != hasFinancialID {
		return ErrInvalidTransition
	}
	return nil
}
