package model

import (
	"fmt"
	"time"

	"wifi-loyalty-portal/internal/domain"
)

type ActorKind string

const (
	ActorSystem   ActorKind = "system"
	ActorStaff    ActorKind = "staff"
	ActorCustomer ActorKind = "customer"
	ActorGuest    ActorKind = "guest"
)

// Actor identifies who performed an operation and from where.
type Actor struct {
	Kind   ActorKind
	ID     string
	Origin string // client address; empty when unknown
}

func SystemActor() Actor { return Actor{Kind: ActorSystem} }

// Audit actions.
const (
	ActionLoginFailed          = "login_failed"
	ActionLoginSuccess         = "login_success"
	ActionCustomerSignup       = "customer_signup"
	ActionVisitRecorded        = "visit_recorded"
	ActionVoucherCreated       = "voucher_created"
	ActionVoucherRedeemed      = "voucher_redeemed"
	ActionVoucherRejected      = "voucher_redeem_rejected"
	ActionVoucherStatusChanged = "voucher_status_changed"
	ActionStaffCreated         = "staff_created"
	ActionStaffVoucherIssued   = "staff_voucher_issued"
	ActionStaffLimitOverride   = "staff_daily_limit_override"
	ActionSecurityAlert        = "security_alert"
	ActionRetentionCleanup     = "audit_retention_cleanup"
)

// Security alert subtypes, stored in details.alert_type.
const (
	AlertBruteForce   = "brute_force_attempt"
	AlertVoucherAbuse = "voucher_abuse"
)

// AuditEvent is an append-only log entry. ID is a ULID so IDs sort by time.
type AuditEvent struct {
	ID        string    `json:"id"`
	ActorKind ActorKind `json:"actor_kind"`
	ActorID   *string   `json:"actor_id,omitempty"`
	Action    string    `json:"action"`
	Resource  *string   `json:"resource,omitempty"`
	Details   Value     `json:"details"`
	Origin    *string   `json:"origin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditFilter narrows an audit query. Zero fields are ignored.
type AuditFilter struct {
	ActorKind ActorKind
	ActorID   string
	Action    string
	Resource  string
	Origin    string
	From      *time.Time
	To        *time.Time
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// OriginCount is one row of the failed-login leaderboard.
type OriginCount struct {
	Origin string `json:"origin"`
	Count  int    `json:"count"`
}

type SecuritySummary struct {
	Days           int            `json:"days"`
	Since          time.Time      `json:"since"`
	TotalEvents    int            `json:"total_events"`
	ActionCounts   map[string]int `json:"action_counts"`
	AlertCounts    map[string]int `json:"alert_counts"`
	FailedLogins   int            `json:"failed_logins"`
	Redemptions    int            `json:"redemptions"`
	Rejections     int            `json:"rejections"`
	LimitOverrides int            `json:"limit_overrides"`
}

type SecurityReport struct {
	Summary               SecuritySummary `json:"summary"`
	Alerts                []*AuditEvent   `json:"alerts"`
	TopFailedLoginOrigins []OriginCount   `json:"top_failed_login_origins"`
}

type fieldSpec struct {
	key      string
	kind     ValueKind
	optional bool
}

// detailSchemas lists the detail fields each known action must carry.
var detailSchemas = map[string][]fieldSpec{
	ActionLoginFailed:     {{key: "email", kind: KindString}, {key: "reason", kind: KindString, optional: true}},
	ActionLoginSuccess:    {{key: "email", kind: KindString}},
	ActionCustomerSignup:  {{key: "email", kind: KindString}},
	ActionVisitRecorded:   {{key: "visit_count", kind: KindNumber}, {key: "tier", kind: KindString}, {key: "tier_changed", kind: KindBool}},
	ActionVoucherCreated:  {{key: "code", kind: KindString}, {key: "voucher_type", kind: KindString}, {key: "customer_id", kind: KindString, optional: true}},
	ActionVoucherRedeemed: {{key: "code", kind: KindString}, {key: "voucher_type", kind: KindString}, {key: "customer_id", kind: KindString, optional: true}},
	ActionVoucherRejected: {{key: "code", kind: KindString}, {key: "reason", kind: KindString}},
	ActionVoucherStatusChanged: {
		{key: "from", kind: KindString}, {key: "to", kind: KindString},
	},
	ActionStaffCreated:       {{key: "email", kind: KindString}, {key: "role", kind: KindString}},
	ActionStaffVoucherIssued: {{key: "code", kind: KindString}, {key: "date", kind: KindString}},
	ActionStaffLimitOverride: {{key: "staff_id", kind: KindString}, {key: "reason", kind: KindString}},
	ActionSecurityAlert: {
		{key: "alert_type", kind: KindString}, {key: "subject", kind: KindString},
		{key: "count", kind: KindNumber}, {key: "window_start", kind: KindString},
	},
	ActionRetentionCleanup: {{key: "deleted", kind: KindNumber}, {key: "retention_days", kind: KindNumber}},
}

// ValidateDetails checks details against the schema registered for action.
// Actions without a schema accept null or any object.
func ValidateDetails(action string, details Value) error {
	schema, ok := detailSchemas[action]
	if !ok {
		if details.IsNull() || details.Kind() == KindObject {
			return nil
		}
		return fmt.Errorf("%w: details for %q must be an object", domain.ErrInvalidArgument, action)
	}
	if details.Kind() != KindObject {
		return fmt.Errorf("%w: details for %q must be an object", domain.ErrInvalidArgument, action)
	}
	for _, f := range schema {
		v, present := details.Get(f.key)
		if !present || v.IsNull() {
			if f.optional {
				continue
			}
			return fmt.Errorf("%w: %s requires details.%s", domain.ErrInvalidArgument, action, f.key)
		}
		if v.Kind() != f.kind {
			return fmt.Errorf("%w: %s details.%s must be %s, got %s", domain.ErrInvalidArgument, action, f.key, f.kind, v.Kind())
		}
	}
	return nil
}
