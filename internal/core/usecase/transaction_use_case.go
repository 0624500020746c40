package usecase

import (
	"context"
	"errors"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/internal/core/models"
	"github.com/Nzyazin/momopay/internal/core/repository"
)

type TransactionUsecase interface {
	List(ctx context.Context, skip, limit int) ([]models.Transaction, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)
}

type transactionUsecase struct {
	repo repository.TransactionRepository
	log  logger.Logger
}

func NewTransactionUsecase(repo repository.TransactionRepository, log logger.Logger) TransactionUsecase {
	return &transactionUsecase{repo: repo, log: log}
}

func (uc *transactionUsecase) List(ctx context.Context, skip, limit int) ([]models.Transaction, error) {
	if skip < 0 || limit < 0 {
		return nil, validationError(ErrInvalidPagination)
	}

	txs, err := uc.repo.List(ctx, skip, limit)
	if err != nil {
		uc.log.Error("Listing transactions failed", logger.ErrorField("error", err))
		return nil, &Error{Kind: KindInternal, Message: "Failed to list transactions", Err: err}
	}
	return txs, nil
}

func (uc *transactionUsecase) GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	tx, err := uc.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &Error{Kind: KindNotFound, Message: "Transaction not found", Err: err}
		}
		uc.log.Error("Transaction lookup failed",
			logger.StringField("external_id", externalID),
			logger.ErrorField("error", err))
		return nil, &Error{Kind: KindInternal, Message: "Failed to fetch transaction", Err: err}
	}
	return tx, nil
}
