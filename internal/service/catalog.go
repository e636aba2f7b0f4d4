package service

import (
	"context"
	"fmt"

	"app/internal/model"
)

// PlanCatalog supplies the subscription plan limits consumed by the quota
// gate. The catalog is external and read-only; this subsystem never writes
// to it.
type PlanCatalog interface {
	LimitsFor(ctx context.Context, userID string) (*model.PlanLimits, error)
}

// Built-in tiers for the static catalog.
var (
	freeTierLimits = model.PlanLimits{
		PlanID:       "free",
		PlanName:     "Free",
		StudyPlans:   3,
		AIRequests:   10,
		FileUploads:  5,
		StudyGroups:  1,
		StorageLimit: "50MB",
	}

	proTierLimits = model.PlanLimits{
		PlanID:       "pro",
		PlanName:     "Pro",
		StudyPlans:   model.Unlimited,
		AIRequests:   500,
		FileUploads:  model.Unlimited,
		StudyGroups:  model.Unlimited,
		StorageLimit: "5GB",
	}
)

// staticCatalog resolves every user to one configured tier. It stands in
// for the remote billing catalog when the agent runs without one.
type staticCatalog struct {
	limits model.PlanLimits
}

// NewStaticCatalog returns a PlanCatalog pinned to the named tier
// ("free" or "pro").
func NewStaticCatalog(tier string) (PlanCatalog, error) {
	switch tier {
	case "", "free":
		return &staticCatalog{limits: freeTierLimits}, nil
	case "pro":
		return &staticCatalog{limits: proTierLimits}, nil
	default:
		return nil, fmt.Errorf("unknown subscription tier %q", tier)
	}
}

// LimitsFor implements PlanCatalog.
func (c *staticCatalog) LimitsFor(_ context.Context, _ string) (*model.PlanLimits, error) {
	limits := c.limits
	return &limits, nil
}
