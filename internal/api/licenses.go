package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/store"
)

func optionalUUID(field, value string) (*uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	id, err := parseUUID(field, value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *Server) listLicenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	productID, err := optionalUUID("productId", q.Get("productId"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	filter := store.LicenseFilter{
		ProductID: productID,
		Plan:      models.Plan(q.Get("plan")),
		Status:    q.Get("status"),
	}

	page, err := s.svc.Licenses.List(r.Context(), filter, queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, page)
}

// addLicenses accepts keys either as a JSON array or as newline separated
// text in "keysText".
func (s *Server) addLicenses(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string   `json:"productId"`
		Plan      string   `json:"plan"`
		Keys      []string `json:"keys"`
		KeysText  string   `json:"keysText"`
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

	keys := req.Keys
	if req.KeysText != "" {
		keys = append(keys, strings.Split(req.KeysText, "\n")...)
	}

	result, err := s.svc.Licenses.BulkAdd(r.Context(), productID, models.Plan(req.Plan), keys)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) deleteUnusedLicenses(w http.ResponseWriter, r *http.Request) {
	productID, err := optionalUUID("productId", r.URL.Query().Get("productId"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	n, err := s.svc.Licenses.DeleteUnused(r.Context(), productID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) deleteLicense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if err := s.svc.Licenses.Delete(r.Context(), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondMessage(w, http.StatusOK, "License key deleted")
}
