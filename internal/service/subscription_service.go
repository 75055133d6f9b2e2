package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	appErrors "github.com/alabenkhlifa/opauto-core/pkg/errors"
)

// SubscriptionService answers whether the active tier still has headroom for
// a countable resource. Limits are compared, never reserved; callers check
// immediately before creating.
type SubscriptionService struct {
	tier   models.SubscriptionTier
	limits models.TierLimits
	logger *zap.Logger
}

// NewSubscriptionService resolves the limits for the configured tier. Unknown
// tiers fall back to solo, the most restrictive plan.
func NewSubscriptionService(tier models.SubscriptionTier, logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	limits, ok := models.DefaultTierLimits[tier]
	if !ok {
		logger.Warn("unknown subscription tier, falling back to solo", zap.String("tier", string(tier)))
		tier = models.TierSolo
		limits = models.DefaultTierLimits[models.TierSolo]
	}
	return &SubscriptionService{tier: tier, limits: limits, logger: logger}
}

// Tier returns the active tier.
func (s *SubscriptionService) Tier() models.SubscriptionTier {
	return s.tier
}

// Limits returns the active caps.
func (s *SubscriptionService) Limits() models.TierLimits {
	return s.limits
}

// Allow returns nil when one more unit of resource fits under the tier cap,
// or a LIMIT_EXCEEDED error otherwise.
func (s *SubscriptionService) Allow(resource models.LimitedResource, current int) error {
	limit := s.limits.Limit(resource)
	if limit == models.Unlimited || current < limit {
		return nil
	}
	s.logger.Debug("tier limit reached",
		zap.String("tier", string(s.tier)),
		zap.String("resource", string(resource)),
		zap.Int("limit", limit),
	)
	return appErrors.Clone(appErrors.ErrLimitExceeded,
		fmt.Sprintf("%s tier allows at most %d %s", s.tier, limit, resource))
}

// Remaining reports how many more units of resource the tier allows, or
// Unlimited.
func (s *SubscriptionService) Remaining(resource models.LimitedResource, current int) int {
	limit := s.limits.Limit(resource)
	if limit == models.Unlimited {
		return models.Unlimited
	}
	remaining := limit - current
	if remaining < 0 {
		return 0
	}
	return remaining
}
