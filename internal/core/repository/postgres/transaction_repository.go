package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/internal/core/models"
	"github.com/Nzyazin/momopay/internal/core/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const transactionColumns = `id, momo_reference_id, external_id, amount, currency, payer_phone_number,
	status, financial_transaction_id, payer_message, payee_note, created_at, updated_at`

type postgresTransactionRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresTransactionRepo(db *sqlx.DB, log logger.Logger) repository.TransactionRepository {
	return &postgresTransactionRepo{
		db:  db,
		log: log,
	}
}

func (r *postgresTransactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	const query = `INSERT INTO transactions
		(id, momo_reference_id, external_id, amount, currency, payer_phone_number,
		 status, financial_transaction_id, payer_message, payee_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		tx.ID,
		tx.MomoReferenceID,
		tx.ExternalID,
		tx.Amount,
		tx.Currency,
		tx.PayerPhoneNumber,
		tx.Status,
		tx.FinancialTransactionID,
		tx.PayerMessage,
		tx.PayeeNote,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", repository.ErrDuplicateReference, tx.MomoReferenceID)
		}
		r.log.Error("Error inserting transaction",
			logger.StringField("reference_id", tx.MomoReferenceID),
			logger.ErrorField("error", err))
		return fmt.Errorf("create transaction: %w", err)
	}

	return nil
}

func (r *postgresTransactionRepo) GetByReferenceID(ctx context.Context, referenceID string) (*models.Transaction, error) {
	var tx models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE momo_reference_id = $1`
	if err := r.db.GetContext(ctx, &tx, query, referenceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: reference id %s", repository.ErrNotFound, referenceID)
		}
		return nil, fmt.Errorf("get transaction by reference id: %w", err)
	}

	return &tx, nil
}

func (r *postgresTransactionRepo) GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	var tx models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_id = $1
		ORDER BY created_at DESC, momo_reference_id DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &tx, query, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: external id %s", repository.ErrNotFound, externalID)
		}
		return nil, fmt.Errorf("get transaction by external id: %w", err)
	}

	return &tx, nil
}

func (r *postgresTransactionRepo) List(ctx context.Context, offset, limit int) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transactions
		ORDER BY created_at ASC, momo_reference_id ASC OFFSET $1 LIMIT $2`
	if err := r.db.SelectContext(ctx, &txs, query, offset, limit); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return txs, nil
}

func (r *postgresTransactionRepo) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC LIMIT $3`
	if err := r.db.SelectContext(ctx, &txs, query, models.StatusPending, olderThan, limit); err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}

	return txs, nil
}

func (r *postgresTransactionRepo) UpdateStatus(ctx context.Context, referenceID string, from, to models.TransactionStatus, financialTransactionID *string) (*models.Transaction, error) {
	if err := repository.CheckUpdate(from, to, financialTransactionID); err != nil {
		return nil, fmt.Errorf("%w: %s -> %s", err, from, to)
	}

	var tx models.Transaction
	query := `UPDATE transactions
		SET status = $1, financial_transaction_id = $2, updated_at = NOW()
		WHERE momo_reference_id = $3 AND status = $4
		RETURNING ` + transactionColumns
	err := r.db.GetContext(ctx, &tx, query, to, financialTransactionID, referenceID, from)
	if err == nil {
		return &tx, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update transaction status: %w", err)
	}

	// Nothing matched: either the row is gone or someone else moved it first.
	current, getErr := r.GetByReferenceID(ctx, referenceID)
	if getErr != nil {
		return nil, getErr
	}
	r.log.Warn("Status changed concurrently",
		logger.StringField("reference_id", referenceID),
		logger.StringField("expected", string(from)),
		logger.StringField("actual", string(current.Status)),
		logger.StringField("target", string(to)))
	return current, fmt.Errorf("%w: expected %s, found %s", repository.ErrInvalidTransition, from, current.Status)
}
