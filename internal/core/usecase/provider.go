package usecase

import (
	"context"

	"github.com/Nzyazin/momopay/internal/integrations/momo"
)

// Provider is the subset of the Mobile Money API the usecases need.
type Provider interface {
	AccessToken(ctx context.Context) (string, error)
	RequestToPay(ctx context.Context, token, referenceID string, payload momo.RequestToPay) error
	RequestToPayStatus(ctx context.Context, token, referenceID string) (*momo.RequestToPayStatus, error)
}
