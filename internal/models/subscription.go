package models

// SubscriptionTier identifies a billing plan.
type SubscriptionTier string

const (
	TierSolo         SubscriptionTier = "solo"
	TierStarter      SubscriptionTier = "starter"
	TierProfessional SubscriptionTier = "professional"
)

// Unlimited marks a limit with no cap.
const Unlimited = -1

// LimitedResource names a countable resource gated per tier.
type LimitedResource string

const (
	ResourceUsers         LimitedResource = "users"
	ResourceParts         LimitedResource = "parts"
	ResourceOpenApprovals LimitedResource = "open_approvals"
)

// TierLimits holds the numeric caps of one tier.
type TierLimits struct {
	MaxUsers         int `json:"max_users"`
	MaxParts         int `json:"max_parts"`
	MaxOpenApprovals int `json:"max_open_approvals"`
}

// Limit returns the cap for a resource.
func (l TierLimits) Limit(resource LimitedResource) int {
	switch resource {
	case ResourceUsers:
		return l.MaxUsers
	case ResourceParts:
		return l.MaxParts
	case ResourceOpenApprovals:
		return l.MaxOpenApprovals
	default:
		return Unlimited
	}
}

// DefaultTierLimits maps each tier to its caps.
var DefaultTierLimits = map[SubscriptionTier]TierLimits{
	TierSolo:         {MaxUsers: 2, MaxParts: 50, MaxOpenApprovals: 25},
	TierStarter:      {MaxUsers: 5, MaxParts: 200, MaxOpenApprovals: 100},
	TierProfessional: {MaxUsers: Unlimited, MaxParts: Unlimited, MaxOpenApprovals: Unlimited},
}
