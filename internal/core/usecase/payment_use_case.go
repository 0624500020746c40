package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/internal/core/metrics"
	"github.com/Nzyazin/momopay/internal/core/models"
	"github.com/Nzyazin/momopay/internal/core/repository"
	"github.com/Nzyazin/momopay/internal/integrations/momo"
	"github.com/Nzyazin/momopay/pkg/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPayerMessage = "Payment for services"
	defaultPayeeNote    = "Thank you for your business"
	partyIDTypeMSISDN   = "MSISDN"
)

// maxAmount is the largest value the amount column (NUMERIC(12,2)) can hold.
var maxAmount = decimal.New(1, 10).Sub(decimal.New(1, -2))

var (
	phoneRegexp    = regexp.MustCompile(`^\+?\d{5,15}$`)
	currencyRegexp = regexp.MustCompile(`^[A-Z]{3,10}$`)
)

type PaymentUsecase interface {
	InitiatePayment(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error)
	GetStatus(ctx context.Context, referenceID string) (*models.PaymentStatus, error)
}

type paymentUsecase struct {
	repo     repository.TransactionRepository
	provider Provider
	cfg      config.MomoConfig
	metrics  *metrics.Metrics
	log      logger.Logger
}

func NewPaymentUsecase(repo repository.TransactionRepository, provider Provider, cfg config.MomoConfig, m *metrics.Metrics, log logger.Logger) PaymentUsecase {
	return &paymentUsecase{
		repo:     repo,
		provider: provider,
		cfg:      cfg,
		metrics:  m,
		log:      log,
	}
}

// InitiatePayment records the attempt, submits it to the provider and stores the
// outcome. The recorded transaction never stays INITIATED once this returns,
// unless the store itself is unavailable.
func (uc *paymentUsecase) InitiatePayment(ctx context.Context, req models.PaymentRequest) (result *models.PaymentResult, err error) {
	req, err = uc.normalize(req)
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:               uuid.New(),
		MomoReferenceID:  uuid.NewString(),
		ExternalID:       req.ExternalID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		PayerPhoneNumber: req.PayerPhoneNumber,
		Status:           models.StatusInitiated,
		PayerMessage:     req.PayerMessage,
		PayeeNote:        req.PayeeNote,
	}

	uc.log.Info("Starting payment",
		logger.StringField("reference_id", tx.MomoReferenceID),
		logger.StringField("external_id", tx.ExternalID),
		logger.StringField("amount", tx.Amount.StringFixed(2)),
		logger.StringField("currency", tx.Currency))

	if err := uc.repo.Create(ctx, tx); err != nil {
		uc.log.Error("Failed to record transaction",
			logger.StringField("reference_id", tx.MomoReferenceID),
			logger.ErrorField("error", err))
		return nil, &Error{Kind: KindInternal, Message: "Failed to record transaction", Err: err}
	}

	defer func() {
		if rec := recover(); rec != nil {
			uc.finalize(ctx, tx, models.StatusError)
			panic(rec)
		}
	}()

	status, submitErr := uc.submit(ctx, tx)
	if finalizeErr := uc.finalize(ctx, tx, status); finalizeErr != nil && submitErr == nil {
		return nil, &Error{Kind: KindInternal, Message: "Failed to record payment outcome", Err: finalizeErr}
	}
	if submitErr != nil {
		return nil, submitErr
	}

	return &models.PaymentResult{
		ReferenceID: tx.MomoReferenceID,
		ExternalID:  tx.ExternalID,
		Status:      tx.Status,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
	}, nil
}

func (uc *paymentUsecase) normalize(req models.PaymentRequest) (models.PaymentRequest, error) {
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) || req.Amount.GreaterThan(maxAmount) {
		return req, validationError(ErrInvalidAmount)
	}

	req.PayerPhoneNumber = strings.TrimSpace(req.PayerPhoneNumber)
	if !phoneRegexp.MatchString(req.PayerPhoneNumber) {
		return req, validationError(ErrInvalidPhoneNumber)
	}

	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = uc.cfg.DefaultCurrency
	}
	if !currencyRegexp.MatchString(req.Currency) {
		return req, validationError(ErrInvalidCurrency)
	}

	req.ExternalID = strings.TrimSpace(req.ExternalID)
	if req.ExternalID == "" {
		req.ExternalID = uuid.NewString()
	}
	if req.PayerMessage == "" {
		req.PayerMessage = defaultPayerMessage
	}
	if req.PayeeNote == "" {
		req.PayeeNote = defaultPayeeNote
	}

	return req, nil
}

// submit performs the provider calls and returns the status the transaction
// must end in, plus the error to hand back to the caller.
func (uc *paymentUsecase) submit(ctx context.Context, tx *models.Transaction) (models.TransactionStatus, error) {
	token, err := uc.accessToken(ctx)
	if err != nil {
		return models.StatusError, err
	}

	payload := momo.RequestToPay{
		Amount:     tx.Amount.StringFixed(2),
		Currency:   tx.Currency,
		ExternalID: tx.ExternalID,
		Payer: momo.Party{
			PartyIDType: partyIDTypeMSISDN,
			PartyID:     uc.payerID(tx.PayerPhoneNumber),
		},
		PayerMessage: tx.PayerMessage,
		PayeeNote:    tx.PayeeNote,
	}

	err = uc.provider.RequestToPay(ctx, token, tx.MomoReferenceID, payload)
	if err == nil {
		return models.StatusPending, nil
	}

	var apiErr *momo.APIError
	if errors.As(err, &apiErr) {
		uc.log.Warn("Provider rejected payment",
			logger.StringField("reference_id", tx.MomoReferenceID),
			logger.IntField("provider_status", apiErr.StatusCode),
			logger.StringField("provider_body", apiErr.Body))
		return models.StatusFailed, &Error{
			Kind:       KindUpstreamRejected,
			StatusCode: apiErr.StatusCode,
			Message:    "MTN Momo API Error: " + apiErr.Body,
			Err:        err,
		}
	}

	uc.log.Error("Payment submission failed",
		logger.StringField("reference_id", tx.MomoReferenceID),
		logger.ErrorField("error", err))
	return models.StatusError, &Error{Kind: KindTransport, Message: "Failed to initiate payment", Err: err}
}

// payerID picks the party id sent to the provider. Sandbox only knows its own test numbers.
func (uc *paymentUsecase) payerID(phone string) string {
	if uc.cfg.IsSandbox() {
		return uc.cfg.SandboxMSISDN
	}
	return phone
}

// finalize stores the attempt's outcome. It ignores caller cancellation so that an
// abandoned request still leaves a final status behind.
func (uc *paymentUsecase) finalize(ctx context.Context, tx *models.Transaction, status models.TransactionStatus) error {
	uc.metrics.PaymentRequests.WithLabelValues(string(status)).Inc()

	updated, err := uc.repo.UpdateStatus(context.WithoutCancel(ctx), tx.MomoReferenceID, tx.Status, status, nil)
	if err != nil {
		uc.log.Error("Failed to store payment outcome",
			logger.StringField("reference_id", tx.MomoReferenceID),
			logger.StringField("status", string(status)),
			logger.ErrorField("error", err))
		return err
	}

	*tx = *updated
	uc.log.Info("Payment finished",
		logger.StringField("reference_id", tx.MomoReferenceID),
		logger.StringField("status", string(tx.Status)))
	return nil
}

func (uc *paymentUsecase) accessToken(ctx context.Context) (string, error) {
	token, err := uc.provider.AccessToken(ctx)
	if err != nil {
		uc.metrics.TokenRequests.WithLabelValues("error").Inc()
		uc.log.Error("Access token request failed", logger.ErrorField("error", err))
		return "", &Error{Kind: KindUpstreamAuth, Message: "Failed to get access token", Err: err}
	}
	uc.metrics.TokenRequests.WithLabelValues("ok").Inc()
	return token, nil
}

// GetStatus returns the stored status, asking the provider first while it is PENDING.
func (uc *paymentUsecase) GetStatus(ctx context.Context, referenceID string) (*models.PaymentStatus, error) {
	tx, err := uc.repo.GetByReferenceID(ctx, referenceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &Error{Kind: KindNotFound, Message: "Payment transaction not found", Err: err}
		}
		return nil, &Error{Kind: KindInternal, Message: "Error fetching payment status", Err: err}
	}

	if tx.Status == models.StatusPending {
		tx, err = uc.refresh(ctx, tx)
		if err != nil {
			uc.metrics.StatusRefreshes.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	return &models.PaymentStatus{
		ReferenceID:            tx.MomoReferenceID,
		Status:                 tx.Status,
		Amount:                 tx.Amount,
		Currency:               tx.Currency,
		FinancialTransactionID: tx.FinancialTransactionID,
	}, nil
}

func (uc *paymentUsecase) refresh(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	token, err := uc.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	remote, err := uc.provider.RequestToPayStatus(ctx, token, tx.MomoReferenceID)
	if err != nil {
		if errors.Is(err, momo.ErrNotFound) {
			return nil, &Error{Kind: KindNotFound, Message: "Payment transaction not found", Err: err}
		}
		uc.log.Error("Provider status lookup failed",
			logger.StringField("reference_id", tx.MomoReferenceID),
			logger.ErrorField("error", err))
		return nil, &Error{Kind: KindTransport, Message: "Error fetching payment status", Err: err}
	}

	next, ok := models.ParseProviderStatus(remote.Status)
	if !ok {
		return nil, &Error{Kind: KindTransport, Message: "Error fetching payment status: unknown provider status " + remote.Status}
	}
	if next == models.StatusPending {
		uc.metrics.StatusRefreshes.WithLabelValues(string(next)).Inc()
		return tx, nil
	}

	var financialID *string
	if next == models.StatusSuccessful {
		if remote.FinancialTransactionID == "" {
			return nil, &Error{Kind: KindTransport, Message: "Error fetching payment status: provider reported success without financial transaction id"}
		}
		financialID = &remote.FinancialTransactionID
	}

	updated, err := uc.repo.UpdateStatus(ctx, tx.MomoReferenceID, models.StatusPending, next, financialID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) && updated != nil {
			// Another reconciler finished it first; its result wins.
			return updated, nil
		}
		return nil, &Error{Kind: KindInternal, Message: "Error fetching payment status", Err: err}
	}

	uc.metrics.StatusRefreshes.WithLabelValues(string(next)).Inc()
	uc.log.Info("Payment status updated",
		logger.StringField("reference_id", updated.MomoReferenceID),
		logger.StringField("status", string(updated.Status)))
	return updated, nil
}
