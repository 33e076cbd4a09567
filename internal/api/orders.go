package api

import (
	"net/http"
	"strings"

	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/service"
)

type orderRequest struct {
	ProductID     string `json:"productId"`
	Plan          string `json:"plan"`
	PromoCode     string `json:"promoCode"`
	TransactionID string `json:"transactionId"`
}

func (s *Server) createManualOrder(w http.ResponseWriter, r *http.Request) {
	var (
		req   orderRequest
		proof *service.File
	)

	if isMultipart(r) {
		if err := s.parseMultipart(w, r); err != nil {
			s.respondErr(w, r, err)
			return
		}
		req = orderRequest{
			ProductID:     r.FormValue("productId"),
			Plan:          r.FormValue("plan"),
			PromoCode:     r.FormValue("promoCode"),
			TransactionID: r.FormValue("transactionId"),
		}

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

	productID, err := parseUUID("productId", req.ProductID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	user := currentUser(r)
	order, err := s.svc.Orders.CreateManual(r.Context(), user.ID, service.ManualOrderRequest{
		ProductID:     productID,
		Plan:          models.Plan(req.Plan),
		Currency:      user.Currency,
		PromoCode:     req.PromoCode,
		TransactionID: req.TransactionID,
		Proof:         proof,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, order)
}

func currencyOr(requested, fallback string) string {
	if c := strings.TrimSpace(requested); c != "" {
		return c
	}
	return fallback
}

// purchaseWithWallet honours an Idempotency-Key header: a retry with the same
// key returns the order created by the first request.
func (s *Server) purchaseWithWallet(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	productID, err := parseUUID("productId", req.ProductID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	user := currentUser(r)
	ctx := r.Context()

	var key string
	if header := strings.TrimSpace(r.Header.Get("Idempotency-Key")); header != "" {
		key = user.ID.String() + ":" + header

		var cached models.Order
		found, err := s.idem.Begin(ctx, key, &cached)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		if found {
			s.respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	order, err := s.svc.Orders.PurchaseWithWallet(ctx, user.ID, service.WalletPurchaseRequest{
		ProductID: productID,
		Plan:      models.Plan(req.Plan),
		Currency:  user.Currency,
		PromoCode: req.PromoCode,
	})
	if err != nil {
		if key != "" {
			if abortErr := s.idem.Abort(ctx, key); abortErr != nil {
				s.logger.WithError(abortErr).Warn("failed to release idempotency key")
			}
		}
		s.respondErr(w, r, err)
		return
	}

	if key != "" {
		if err := s.idem.Complete(ctx, key, order); err != nil {
			s.logger.WithError(err).Warn("failed to store idempotent result")
		}
	}

	s.respondJSON(w, http.StatusCreated, order)
}

func (s *Server) claimTrial(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	productID, err := parseUUID("productId", req.ProductID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	order, err := s.svc.Orders.ClaimTrial(r.Context(), currentUser(r).ID, productID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, order)
}

func (s *Server) listMyOrders(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Orders.ListMine(r.Context(), currentUser(r).ID, r.URL.Query().Get("cursor"), queryInt(r, "limit"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, page)
}

func (s *Server) listAllOrders(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Orders.ListAll(r.Context(), r.URL.Query().Get("status"), queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, page)
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	order, err := s.svc.Orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, order)
}
