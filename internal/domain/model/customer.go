package model

import (
	"net/mail"
	"strings"
	"time"

	"wifi-loyalty-portal/internal/domain"

	"github.com/google/uuid"
)

// Tier is a loyalty tier. It is always derived from a visit count, never set on its own.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

type tierThreshold struct {
	tier     Tier
	minCount int
}

// ascending; TierFor walks it from the top.
var tierTable = []tierThreshold{
	{TierBronze, 0},
	{TierSilver, 5},
	{TierGold, 15},
	{TierPlatinum, 30},
}

// TierFor returns the tier whose threshold is the greatest one not exceeding count.
func TierFor(count int) Tier {
	for i := len(tierTable) - 1; i >= 0; i-- {
		if count >= tierTable[i].minCount {
			return tierTable[i].tier
		}
	}
	return TierBronze
}

// TierThreshold returns the visit count at which t starts.
func TierThreshold(t Tier) int {
	for _, th := range tierTable {
		if th.tier == t {
			return th.minCount
		}
	}
	return 0
}

// Next returns the tier above t. The top tier has none.
func (t Tier) Next() (Tier, bool) {
	for i, th := range tierTable {
		if th.tier == t && i+1 < len(tierTable) {
			return tierTable[i+1].tier, true
		}
	}
	return "", false
}

func (t Tier) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// Customer is the loyalty subject created by the captive-portal signup.
type Customer struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	VisitCount  int
	LoyaltyTier Tier
	LastVisitAt *time.Time
	CreatedAt   time.Time
}

func NewCustomer(id, name, email, phone string) (*Customer, error) {
	if id == "" {
		id = uuid.NewString()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidArgument
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidArgument
	}
	return &Customer{
		ID:          id,
		Name:        name,
		Email:       email,
		Phone:       strings.TrimSpace(phone),
		VisitCount:  0,
		LoyaltyTier: TierFor(0),
		CreatedAt:   time.Now(),
	}, nil
}
