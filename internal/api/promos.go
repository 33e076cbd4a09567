package api

import (
	"net/http"
	"time"

	"github.com/safar/license-store/internal/store"
	"github.com/shopspring/decimal"
)

type promoRequest struct {
	Code      string          `json:"code"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	MaxUses   *int            `json:"max_uses"`
	ExpiresAt *time.Time      `json:"expires_at"`
	IsActive  *bool           `json:"is_active"`
}

func (p promoRequest) input() store.PromoInput {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return store.PromoInput{
		Code:      p.Code,
		Type:      p.Type,
		Value:     p.Value,
		MaxUses:   p.MaxUses,
		ExpiresAt: p.ExpiresAt,
		IsActive:  active,
	}
}

func (s *Server) validatePromo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code      string          `json:"code"`
		CartTotal decimal.Decimal `json:"cartTotal"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	discount, err := s.svc.Promos.Validate(r.Context(), req.Code, req.CartTotal)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, discount)
}

func (s *Server) listPromos(w http.ResponseWriter, r *http.Request) {
	promos, err := s.svc.Promos.List(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, promos)
}

func (s *Server) createPromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	promo, err := s.svc.Promos.Create(r.Context(), req.input())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, promo)
}

func (s *Server) updatePromo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	var req promoRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	promo, err := s.svc.Promos.Update(r.Context(), id, req.input())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, promo)
}

func (s *Server) deletePromo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if err := s.svc.Promos.Delete(r.Context(), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondMessage(w, http.StatusOK, "Promo code deleted")
}
