package usecase

import (
	"time"

	"wifi-loyalty-portal/internal/config"
)

// Policy collects the business thresholds the use cases share.
type Policy struct {
	SiteName string
	Location *time.Location // calendar days (staff limit, voucher abuse) are computed here

	MaxCodeAttempts int
	StaffWiFiHours  int
	TierRewardHours int
	TierRewardValue float64

	FailedLoginThreshold int
	FailedLoginWindow    time.Duration
	DailyRedeemThreshold int

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func DefaultPolicy() Policy {
	return Policy{
		SiteName:             "WiFi Portal",
		Location:             time.UTC,
		MaxCodeAttempts:      5,
		StaffWiFiHours:       24,
		TierRewardHours:      30 * 24,
		FailedLoginThreshold: 10,
		FailedLoginWindow:    time.Hour,
		DailyRedeemThreshold: 5,
	}
}

// PolicyFromConfig derives a Policy from the loaded configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	p := DefaultPolicy()
	p.SiteName = cfg.Site.Name
	if cfg.Site.Location != nil {
		p.Location = cfg.Site.Location
	}
	p.MaxCodeAttempts = cfg.Vouchers.MaxCodeGenAttempts
	p.StaffWiFiHours = cfg.Vouchers.StaffWiFiHours
	p.TierRewardHours = cfg.Vouchers.TierRewardHours
	p.TierRewardValue = cfg.Vouchers.TierRewardValue
	p.FailedLoginThreshold = cfg.Audit.FailedLoginThreshold
	p.FailedLoginWindow = cfg.Audit.FailedLoginWindow
	p.DailyRedeemThreshold = cfg.Audit.DailyRedeemThreshold
	return p
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}
