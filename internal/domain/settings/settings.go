// Package settings exposes the read-only platform settings that tune the
// settlement and payout pipeline. Values live in a single database row so the
// product team can adjust them without a deploy.
package settings

import (
	"context"
	"time"
)

// Settings holds the operational knobs read by the reconciliation components
type Settings struct {
	SettlementDelay time.Duration // maturity delay before a completed contribution settles
	TransferFeeBps  int           // payout transfer fee, basis points (display only)
	PlatformFeeBps  int           // platform charge added on top of a contribution
	MinimumPayout   int64         // minimum withdrawable balance, minor units
}

// Repository reads the platform settings
type Repository interface {
	Get(ctx context.Context) (*Settings, error)
}

// Defaults returns the seed values used when no settings row exists yet
func Defaults() *Settings {
	return &Settings{
		SettlementDelay: 2 * time.Minute,
		TransferFeeBps:  100,
		PlatformFeeBps:  195,
		MinimumPayout:   1000,
	}
}
