package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"wifi-loyalty-portal/internal/domain/model"

	"github.com/golang-jwt/jwt/v5"
)

const tokenCookie = "portal_token"

// StaffClaims is the payload of a staff session token.
type StaffClaims struct {
	StaffID string          `json:"sid"`
	Role    model.StaffRole `json:"role"`
	jwt.RegisteredClaims
}

type AuthManager struct {
	secret       []byte
	secureCookie bool
	ttl          time.Duration
	now          func() time.Time
}

func NewAuthManager(secret string, secureCookie bool, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthManager{secret: []byte(secret), secureCookie: secureCookie, ttl: ttl, now: time.Now}
}

// Mint signs a token for s. When w is non-nil the token is also set as an HttpOnly cookie.
func (a *AuthManager) Mint(w http.ResponseWriter, s *model.Staff) (string, time.Time, error) {
	now := a.now().UTC()
	exp := now.Add(a.ttl)
	claims := StaffClaims{
		StaffID: s.ID,
		Role:    s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	if w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     tokenCookie,
			Value:    signed,
			Path:     "/",
			Expires:  exp,
			HttpOnly: true,
			Secure:   a.secureCookie,
			SameSite: http.SameSiteStrictMode,
		})
	}
	return signed, exp, nil
}

// ParseFromRequest reads the token from the Authorization header, then the cookie.
func (a *AuthManager) ParseFromRequest(r *http.Request) (*StaffClaims, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return nil, errors.New("unsupported authorization scheme")
		}
		return a.parse(strings.TrimSpace(raw))
	}
	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
		return a.parse(c.Value)
	}
	return nil, errors.New("missing token")
}

func (a *AuthManager) parse(raw string) (*StaffClaims, error) {
	claims := &StaffClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.StaffID == "" || !claims.Role.Valid() {
		return nil, errors.New("incomplete claims")
	}
	return claims, nil
}

type claimsKey struct{}

func withClaims(ctx context.Context, c *StaffClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the authenticated staff claims, or nil on public routes.
func ClaimsFrom(ctx context.Context) *StaffClaims {
	c, _ := ctx.Value(claimsKey{}).(*StaffClaims)
	return c
}

var roleRank = map[model.StaffRole]int{
	model.StaffRoleStaff:   1,
	model.StaffRoleManager: 2,
	model.StaffRoleAdmin:   3,
}

func roleAtLeast(have, want model.StaffRole) bool {
	return roleRank[have] >= roleRank[want]
}
