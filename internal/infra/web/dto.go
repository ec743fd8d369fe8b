package web

import (
	"time"

	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/usecase"
)

type loginRequest struct {
	// credentials are checked by the use case so that empty ones are audited too
	Email    string `json:"email" validate:"max=254"`
	Password string `json:"password" validate:"max=1024"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Staff     staffResponse `json:"staff"`
}

type registerCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

type createVoucherRequest struct {
	OwnerID       *string           `json:"owner_id" validate:"omitempty,uuid"`
	Type          model.VoucherType `json:"type" validate:"required,oneof=loyalty_reward premium_wifi staff_wifi other"`
	Title         string            `json:"title" validate:"required,max=120"`
	Description   string            `json:"description" validate:"max=500"`
	Value         float64           `json:"value" validate:"gte=0"`
	ValidityHours int               `json:"validity_hours" validate:"gte=0,lte=8760"`
}

type redeemRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type setStatusRequest struct {
	Status model.VoucherStatus `json:"status" validate:"required,oneof=active redeemed expired cancelled"`
}

type createStaffRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email,max=254"`
	Password string          `json:"password" validate:"required,min=8,max=256"`
	Role     model.StaffRole `json:"role" validate:"required,oneof=staff manager admin"`
}

type overrideRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type cleanupRequest struct {
	RetentionDays int `json:"retention_days" validate:"gte=0,lte=3650"`
}

type voucherResponse struct {
	ID          string              `json:"id"`
	Code        string              `json:"code"`
	Type        model.VoucherType   `json:"type"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	OwnerID     *string             `json:"owner_id,omitempty"`
	IssuedBy    *string             `json:"issued_by,omitempty"`
	Value       float64             `json:"value"`
	Status      model.VoucherStatus `json:"status"`
	ExpiresAt   time.Time           `json:"expires_at"`
	CreatedAt   time.Time           `json:"created_at"`
	RedeemedAt  *time.Time          `json:"redeemed_at,omitempty"`
	RedeemedBy  *string             `json:"redeemed_by,omitempty"`
	QRURL       string              `json:"qr_url"`
	BarcodeURL  string              `json:"barcode_url"`
}

func toVoucherResponse(v *model.Voucher) voucherResponse {
	return voucherResponse{
		ID:          v.ID,
		Code:        v.Code,
		Type:        v.Type,
		Title:       v.Title,
		Description: v.Description,
		OwnerID:     v.OwnerID,
		IssuedBy:    v.IssuedBy,
		Value:       v.Value,
		Status:      v.Status,
		ExpiresAt:   v.ExpiresAt,
		CreatedAt:   v.CreatedAt,
		RedeemedAt:  v.RedeemedAt,
		RedeemedBy:  v.RedeemedBy,
		QRURL:       "/api/v1/vouchers/" + v.Code + "/qr.png",
		BarcodeURL:  "/api/v1/vouchers/" + v.Code + "/barcode.png",
	}
}

func toVoucherList(vs []*model.Voucher) []voucherResponse {
	out := make([]voucherResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, toVoucherResponse(v))
	}
	return out
}

type customerResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	VisitCount  int        `json:"visit_count"`
	LoyaltyTier model.Tier `json:"loyalty_tier"`
	LastVisitAt *time.Time `json:"last_visit_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toCustomerResponse(c *model.Customer) customerResponse {
	return customerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		VisitCount:  c.VisitCount,
		LoyaltyTier: c.LoyaltyTier,
		LastVisitAt: c.LastVisitAt,
		CreatedAt:   c.CreatedAt,
	}
}

// staffResponse never carries the password hash.
type staffResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      model.StaffRole `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

func toStaffResponse(s *model.Staff) staffResponse {
	return staffResponse{ID: s.ID, Name: s.Name, Email: s.Email, Role: s.Role, CreatedAt: s.CreatedAt}
}

type redeemResponse struct {
	Voucher    voucherResponse      `json:"voucher"`
	Visit      *usecase.VisitResult `json:"visit,omitempty"`
	TierReward *voucherResponse     `json:"tier_reward,omitempty"`
}

func toRedeemResponse(res *usecase.RedeemResult) redeemResponse {
	out := redeemResponse{Voucher: toVoucherResponse(res.Voucher), Visit: res.Visit}
	if res.TierReward != nil {
		r := toVoucherResponse(res.TierReward)
		out.TierReward = &r
	}
	return out
}

type visitResponse struct {
	Visit      *usecase.VisitResult `json:"visit"`
	TierReward *voucherResponse     `json:"tier_reward,omitempty"`
}

func toVisitResponse(out *usecase.VisitOutcome) visitResponse {
	res := visitResponse{Visit: out.Visit}
	if out.TierReward != nil {
		r := toVoucherResponse(out.TierReward)
		res.TierReward = &r
	}
	return res
}

type auditPage struct {
	Events     []*model.AuditEvent `json:"events"`
	Pagination model.Pagination    `json:"pagination"`
}
