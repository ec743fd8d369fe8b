package model

import (
	"strings"
	"time"

	"wifi-loyalty-portal/internal/domain"
)

type VoucherType string

const (
	VoucherTypeLoyaltyReward VoucherType = "loyalty_reward"
	VoucherTypePremiumWiFi   VoucherType = "premium_wifi"
	VoucherTypeStaffWiFi     VoucherType = "staff_wifi"
	VoucherTypeOther         VoucherType = "other"
)

// Prefix returns the two-letter tag that starts every code of this type.
func (t VoucherType) Prefix() string {
	switch t {
	case VoucherTypeLoyaltyReward:
		return "LR"
	case VoucherTypePremiumWiFi:
		return "PW"
	case VoucherTypeStaffWiFi:
		return "SW"
	default:
		return "OT"
	}
}

func (t VoucherType) Valid() bool {
	switch t {
	case VoucherTypeLoyaltyReward, VoucherTypePremiumWiFi, VoucherTypeStaffWiFi, VoucherTypeOther:
		return true
	}
	return false
}

// CountsAsVisit reports whether redeeming a voucher of this type completes a customer visit.
func (t VoucherType) CountsAsVisit() bool { return t == VoucherTypeLoyaltyReward }

type VoucherStatus string

const (
	VoucherStatusActive    VoucherStatus = "active"
	VoucherStatusRedeemed  VoucherStatus = "redeemed"
	VoucherStatusExpired   VoucherStatus = "expired"
	VoucherStatusCancelled VoucherStatus = "cancelled"
)

func (s VoucherStatus) Valid() bool {
	switch s {
	case VoucherStatusActive, VoucherStatusRedeemed, VoucherStatusExpired, VoucherStatusCancelled:
		return true
	}
	return false
}

// Voucher is a single-use code issued to a customer or an anonymous bearer.
// Code, Type and ExpiresAt never change after creation; RedeemedAt/RedeemedBy are written once.
type Voucher struct {
	ID          string
	Code        string
	Type        VoucherType
	Title       string
	Description string
	OwnerID     *string // nil for anonymous premium/staff vouchers
	IssuedBy    *string // staff member that issued a staff_wifi voucher
	Value       float64
	Status      VoucherStatus
	ExpiresAt   time.Time
	CreatedAt   time.Time
	RedeemedAt  *time.Time
	RedeemedBy  *string

	QRPNG      []byte
	BarcodePNG []byte
}

// VoucherDraft carries the caller-supplied fields of a voucher that has not been stored yet.
type VoucherDraft struct {
	OwnerID       *string
	IssuedBy      *string
	Type          VoucherType
	Title         string
	Description   string
	Value         float64
	ValidityHours int
}

func (d VoucherDraft) Validate() error {
	if !d.Type.Valid() {
		return domain.ErrInvalidArgument
	}
	if strings.TrimSpace(d.Title) == "" {
		return domain.ErrInvalidArgument
	}
	if d.Value < 0 || d.ValidityHours < 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

// NewVoucher builds an active voucher from a draft. A zero validity window yields a voucher
// that is already expired at creation time.
func NewVoucher(id, code string, d VoucherDraft, now time.Time) (*Voucher, error) {
	if id == "" || code == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &Voucher{
		ID:          id,
		Code:        code,
		Type:        d.Type,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		OwnerID:     d.OwnerID,
		IssuedBy:    d.IssuedBy,
		Value:       d.Value,
		Status:      VoucherStatusActive,
		ExpiresAt:   now.Add(time.Duration(d.ValidityHours) * time.Hour),
		CreatedAt:   now,
	}, nil
}

// IsExpiredAt derives expiry from ExpiresAt regardless of the stored status.
func (v *Voucher) IsExpiredAt(now time.Time) bool {
	return v.Status == VoucherStatusExpired || !now.Before(v.ExpiresAt)
}

// CheckRedeemable returns the rejection reason for redeeming v at now, or nil.
func (v *Voucher) CheckRedeemable(now time.Time) error {
	switch v.Status {
	case VoucherStatusRedeemed:
		return domain.ErrAlreadyRedeemed
	case VoucherStatusCancelled:
		return domain.ErrNotActive
	case VoucherStatusExpired:
		return domain.ErrExpired
	}
	if !now.Before(v.ExpiresAt) {
		return domain.ErrExpired
	}
	return nil
}

// NormalizeCode upper-cases and trims a manually entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
