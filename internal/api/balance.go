package api

import (
	"net/http"

	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/service"
	"github.com/shopspring/decimal"
)

func (s *Server) createTopUp(w http.ResponseWriter, r *http.Request) {
	var (
		req struct {
			Amount        decimal.Decimal `json:"amount"`
			Currency      string          `json:"currency"`
			PaymentMethod string          `json:"paymentMethod"`
			TransactionID string          `json:"transactionId"`
		}
		proof *service.File
	)

	if isMultipart(r) {
		if err := s.parseMultipart(w, r); err != nil {
			s.respondErr(w, r, err)
			return
		}

		amount, err := formDecimal(r, "amount")
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		req.Amount = amount
		req.Currency = r.FormValue("currency")
		req.PaymentMethod = r.FormValue("paymentMethod")
		req.TransactionID = r.FormValue("transactionId")

		file, closeFn, err := s.formFile(r, "paymentScreenshot")
		defer closeFn()
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		proof = file
	} else if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	user := currentUser(r)
	topUp, err := s.svc.TopUps.Create(r.Context(), user.ID, service.TopUpRequest{
		Amount:        req.Amount,
		Currency:      currencyOr(req.Currency, user.Currency),
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		Proof:         proof,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, topUp)
}

func (s *Server) listMyTopUps(w http.ResponseWriter, r *http.Request) {
	requests, err := s.svc.TopUps.ListMine(r.Context(), currentUser(r).ID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, requests)
}

func (s *Server) listAllTopUps(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.TopUps.ListAll(r.Context(), r.URL.Query().Get("status"), queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, page)
}

func (s *Server) approveTopUp(w http.ResponseWriter, r *http.Request) {
	s.processTopUp(w, r, models.RequestStatusApproved)
}

func (s *Server) rejectTopUp(w http.ResponseWriter, r *http.Request) {
	s.processTopUp(w, r, models.RequestStatusRejected)
}

func (s *Server) processTopUp(w http.ResponseWriter, r *http.Request, status string) {
	id, err := pathID(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	topUp, err := s.svc.TopUps.Process(r.Context(), id, status)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, topUp)
}
