package model

import (
	"strings"
	"time"

	"wifi-loyalty-portal/internal/domain"

	"github.com/google/uuid"
)

type StaffRole string

const (
	StaffRoleStaff   StaffRole = "staff"
	StaffRoleManager StaffRole = "manager"
	StaffRoleAdmin   StaffRole = "admin"
)

func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleStaff, StaffRoleManager, StaffRoleAdmin:
		return true
	}
	return false
}

// CanOverride reports whether the role may reset another member's daily voucher flag.
func (r StaffRole) CanOverride() bool {
	return r == StaffRoleManager || r == StaffRoleAdmin
}

// Staff is a member of the venue team. At most one staff_wifi voucher may be issued
// to a member per calendar day unless a manager resets DailyVoucherUsed.
type Staff struct {
	ID               string
	Name             string
	Email            string
	Role             StaffRole
	PasswordHash     string
	DailyVoucherUsed bool
	LastVoucherDate  *time.Time // date only, midnight UTC
	CreatedAt        time.Time
}

func NewStaff(id, name, email string, role StaffRole, passwordHash string) (*Staff, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || !role.Valid() || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Staff{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}, nil
}

// CalendarDate truncates t to its calendar date in loc and returns it as midnight UTC,
// which is how dates are stored and compared.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns local midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DailyLimitReached reports whether the member already used today's voucher.
func (s *Staff) DailyLimitReached(today time.Time) bool {
	if !s.DailyVoucherUsed || s.LastVoucherDate == nil {
		return false
	}
	return s.LastVoucherDate.Format("2006-01-02") == today.Format("2006-01-02")
}
