package usecase

import (
	"context"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/pkg/config"
)

const maskedPrefixLen = 8

// ConfigSummary is a credential-safe view of the provider configuration.
type ConfigSummary struct {
	APIUserID         *string
	TargetEnvironment string
	BaseURL           string
	ConfigLoaded      bool
}

type SystemUsecase interface {
	CheckProvider(ctx context.Context) error
	ConfigSummary() ConfigSummary
}

type systemUsecase struct {
	provider Provider
	cfg      config.MomoConfig
	log      logger.Logger
}

func NewSystemUsecase(provider Provider, cfg config.MomoConfig, log logger.Logger) SystemUsecase {
	return &systemUsecase{provider: provider, cfg: cfg, log: log}
}

// CheckProvider fetches a token to prove the credentials and the provider work.
func (uc *systemUsecase) CheckProvider(ctx context.Context) error {
	if _, err := uc.provider.AccessToken(ctx); err != nil {
		uc.log.Warn("Health check failed", logger.ErrorField("error", err))
		return &Error{Kind: KindUpstreamAuth, Message: "Service unhealthy", Err: err}
	}
	return nil
}

func (uc *systemUsecase) ConfigSummary() ConfigSummary {
	var userID *string
	if uc.cfg.APIUserID != "" {
		masked := uc.cfg.APIUserID
		if len(masked) > maskedPrefixLen {
			masked = masked[:maskedPrefixLen]
		}
		masked += "..."
		userID = &masked
	}

	return ConfigSummary{
		APIUserID:         userID,
		TargetEnvironment: uc.cfg.TargetEnvironment,
		BaseURL:           uc.cfg.BaseURL,
		ConfigLoaded:      uc.cfg.Complete(),
	}
}
