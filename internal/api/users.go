package api

import (
	"net/http"
)

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Users.Get(r.Context(), currentUser(r).ID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Currency string `json:"currency"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	current := currentUser(r)
	if req.Name == "" {
		req.Name = current.FullName
	}
	if req.Currency == "" {
		req.Currency = current.Currency
	}

	user, err := s.svc.Users.UpdateProfile(r.Context(), current.ID, req.Name, req.Currency)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Users.List(r.Context(), queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, page)
}
