package usecase_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Nzyazin/momopay/internal/core/models"
	"github.com/Nzyazin/momopay/internal/core/repository"
	"github.com/Nzyazin/momopay/internal/integrations/momo"
)

type memoryRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.Transaction
	clock   time.Time
	updates int
	failOn  models.TransactionStatus
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		rows:  map[string]*models.Transaction{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memoryRepo) Create(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[tx.MomoReferenceID]; ok {
		return repository.ErrDuplicateReference
	}
	now := r.tick()
	tx.CreatedAt, tx.UpdatedAt = now, now
	cp := *tx
	r.rows[tx.MomoReferenceID] = &cp
	return nil
}

func (r *memoryRepo) GetByReferenceID(ctx context.Context, referenceID string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[referenceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, referenceID)
	}
	cp := *tx
	return &cp, nil
}

func (r *memoryRepo) GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	var found *models.Transaction
	for _, tx := range r.sorted() {
		if tx.ExternalID == externalID {
			cp := tx
			found = &cp
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *memoryRepo) List(ctx context.Context, offset, limit int) ([]models.Transaction, error) {
	all := r.sorted()
	if offset >= len(all) {
		return []models.Transaction{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryRepo) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error) {
	out := []models.Transaction{}
	for _, tx := range r.sorted() {
		if tx.Status == models.StatusPending && tx.CreatedAt.Before(olderThan) && len(out) < limit {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, referenceID string, from, to models.TransactionStatus, fin *string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if to == r.failOn && to != "" {
		return nil, fmt.Errorf("store unavailable")
	}
	if err := repository.CheckUpdate(from, to, fin); err != nil {
		return nil, err
	}
	tx, ok := r.rows[referenceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if tx.Status != from {
		cp := *tx
		return &cp, repository.ErrInvalidTransition
	}
	tx.Status = to
	tx.FinancialTransactionID = fin
	tx.UpdatedAt = r.tick()
	r.updates++
	cp := *tx
	return &cp, nil
}

func (r *memoryRepo) sorted() []models.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Transaction, 0, len(r.rows))
	for _, tx := range r.rows {
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *memoryRepo) only() models.Transaction {
	all := r.sorted()
	if len(all) != 1 {
		panic(fmt.Sprintf("expected exactly one transaction, got %d", len(all)))
	}
	return all[0]
}

type fakeProvider struct {
	mu sync.Mutex

	tokenErr   error
	submitErr  error
	status     *momo.RequestToPayStatus
	statusErr  error
	panicOnPay bool

	tokenCalls  int
	submitCalls int
	statusCalls int
	lastRef     string
	lastPayload momo.RequestToPay
}

func (p *fakeProvider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenCalls++
	if p.tokenErr != nil {
		return "", p.tokenErr
	}
	return "token", nil
}

func (p *fakeProvider) RequestToPay(ctx context.Context, token, referenceID string, payload momo.RequestToPay) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitCalls++
	p.lastRef = referenceID
	p.lastPayload = payload
	if p.panicOnPay {
		panic("provider blew up")
	}
	return p.submitErr
}

func (p *fakeProvider) RequestToPayStatus(ctx context.Context, token, referenceID string) (*momo.RequestToPayStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusCalls++
	if p.statusErr != nil {
		return nil, p.statusErr
	}
	return p.status, nil
}
