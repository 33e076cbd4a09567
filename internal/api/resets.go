package api

import (
	"net/http"

	"github.com/safar/license-store/internal/service"
)

func (s *Server) createReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
		OrderID   string `json:"orderId"`
		Username  string `json:"username"`
		Password  string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	productID, err := parseUUID("productId", req.ProductID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	orderID, err := parseUUID("orderId", req.OrderID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	created, err := s.svc.Resets.Create(r.Context(), currentUser(r), service.ResetRequest{
		ProductID: productID,
		OrderID:   orderID,
		Username:  req.Username,
		Password:  req.Password,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) listMyResets(w http.ResponseWriter, r *http.Request) {
	requests, err := s.svc.Resets.ListMine(r.Context(), currentUser(r).ID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, requests)
}

func (s *Server) listAllResets(w http.ResponseWriter, r *http.Request) {
	requests, err := s.svc.Resets.ListAll(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, requests)
}

func (s *Server) resolveReset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	var req struct {
		Status        string `json:"status"`
		AdminResponse string `json:"adminResponse"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	resolved, err := s.svc.Resets.Resolve(r.Context(), id, req.Status, req.AdminResponse)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resolved)
}
