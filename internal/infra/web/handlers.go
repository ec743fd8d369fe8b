package web

import (
	"fmt"
	"net/http"
	"strings"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/infra/logging"
	"wifi-loyalty-portal/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// actorFrom builds the audit actor: the authenticated staff member, or a guest on public routes.
func actorFrom(r *http.Request) model.Actor {
	origin := logging.Origin(r.Context())
	if c := ClaimsFrom(r.Context()); c != nil {
		return model.Actor{Kind: model.ActorStaff, ID: c.StaffID, Origin: origin}
	}
	return model.Actor{Kind: model.ActorGuest, Origin: origin}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health(r.Context()); err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	staff, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password, logging.Origin(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	token, exp, err := s.tokens.Mint(w, staff)
	if err != nil {
		s.fail(w, r, fmt.Errorf("mint token: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, Staff: toStaffResponse(staff)})
}

// --- customers ---

func (s *Server) handleRegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req registerCustomerRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.deps.Loyalty.RegisterCustomer(r.Context(), req.Name, req.Email, req.Phone, actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerResponse(c))
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Loyalty.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(c))
}

func (s *Server) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Redemption.CompleteVisit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVisitResponse(out))
}

func (s *Server) handleListCustomerVouchers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var status *string
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &status); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}
	var filter *model.VoucherStatus
	if status != nil {
		st := model.VoucherStatus(strings.ToLower(*status))
		if !st.Valid() {
			s.fail(w, r, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, *status))
			return
		}
		filter = &st
	}

	if _, err := s.deps.Loyalty.GetCustomer(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	vs, err := s.deps.Vouchers.ListByOwner(r.Context(), id, filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoucherList(vs))
}

// --- vouchers ---

func (s *Server) handleCreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req createVoucherRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.deps.Vouchers.Create(r.Context(), model.VoucherDraft{
		OwnerID:       req.OwnerID,
		Type:          req.Type,
		Title:         req.Title,
		Description:   req.Description,
		Value:         req.Value,
		ValidityHours: req.ValidityHours,
	}, actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVoucherResponse(v))
}

func (s *Server) handleLookupVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Vouchers.Lookup(r.Context(), chi.URLParam(r, "voucher"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoucherResponse(v))
}

type voucherImage int

const (
	imageQR voucherImage = iota
	imageBarcode
)

func (s *Server) handleVoucherImage(kind voucherImage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.deps.Vouchers.Lookup(r.Context(), chi.URLParam(r, "voucher"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		img := v.QRPNG
		if kind == imageBarcode {
			img = v.BarcodePNG
		}
		if len(img) == 0 {
			writeError(w, http.StatusNotFound, "image not available", "not_found")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=300")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img)
	}
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.Redemption.Redeem(r.Context(), req.Code, actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRedeemResponse(res))
}

func (s *Server) handleSetVoucherStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.deps.Vouchers.SetStatus(r.Context(), chi.URLParam(r, "voucher"), req.Status, actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoucherResponse(v))
}

// --- staff ---

func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.deps.Auth.CreateStaff(r.Context(), usecase.NewStaffInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}, actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStaffResponse(st))
}

func (s *Server) handleIssueStaffVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Staff.IssueStaffVoucher(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVoucherResponse(v))
}

func (s *Server) handleResetDailyLimit(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	actor := actorFrom(r)
	if err := s.deps.Staff.OverrideDailyLimit(r.Context(), chi.URLParam(r, "id"), actor.ID, req.Reason, actor.Origin); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
