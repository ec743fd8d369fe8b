package web

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"

	"github.com/oapi-codegen/runtime"
)

type auditQueryParams struct {
	Page      *int
	Limit     *int
	Action    *string
	ActorID   *string
	ActorKind *string
	Resource  *string
	Origin    *string
	From      *time.Time
	To        *time.Time
}

func bindAuditQuery(q url.Values) (auditQueryParams, error) {
	var p auditQueryParams
	binds := []struct {
		name string
		dest any
	}{
		{"page", &p.Page},
		{"limit", &p.Limit},
		{"action", &p.Action},
		{"actor_id", &p.ActorID},
		{"actor_kind", &p.ActorKind},
		{"resource", &p.Resource},
		{"origin", &p.Origin},
		{"from", &p.From},
		{"to", &p.To},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return p, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
	}
	return p, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	p, err := bindAuditQuery(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	filter := model.AuditFilter{
		ActorKind: model.ActorKind(deref(p.ActorKind)),
		ActorID:   deref(p.ActorID),
		Action:    deref(p.Action),
		Resource:  deref(p.Resource),
		Origin:    deref(p.Origin),
		From:      p.From,
		To:        p.To,
	}
	events, page, err := s.deps.Audit.Query(r.Context(), filter, deref(p.Page), deref(p.Limit))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if events == nil {
		events = []*model.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, auditPage{Events: events, Pagination: page})
}

func (s *Server) handleSecurityReport(w http.ResponseWriter, r *http.Request) {
	var days *int
	if err := runtime.BindQueryParameter("form", true, false, "days", r.URL.Query(), &days); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}
	report, err := s.deps.Audit.SecurityReport(r.Context(), deref(days))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAuditCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	days := req.RetentionDays
	if days == 0 {
		days = s.cfg.Audit.RetentionDays
	}
	n, err := s.deps.Audit.Cleanup(r.Context(), days, actorFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n, "retention_days": days})
}
