package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/service"
	"github.com/safar/license-store/internal/store"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	Name              string                `json:"name"`
	Description       string                `json:"description"`
	ImageURL          string                `json:"image_url"`
	DownloadLink      string                `json:"download_link"`
	TutorialVideoLink string                `json:"tutorial_video_link"`
	ActivationProcess string                `json:"activation_process"`
	Price1Day         decimal.Decimal       `json:"price_1_day"`
	Price7Days        decimal.Decimal       `json:"price_7_days"`
	Price30Days       decimal.Decimal       `json:"price_30_days"`
	PriceLifetime     decimal.Decimal       `json:"price_lifetime"`
	CurrencyPrices    models.CurrencyPrices `json:"currency_prices"`
	TrialEnabled      bool                  `json:"trial_enabled"`
	TrialPlan         models.Plan           `json:"trial_plan"`
	Version           int                   `json:"version"`
}

func (p productRequest) input() store.ProductInput {
	return store.ProductInput{
		Name:              p.Name,
		Description:       p.Description,
		ImageURL:          p.ImageURL,
		DownloadLink:      p.DownloadLink,
		TutorialVideoLink: p.TutorialVideoLink,
		ActivationProcess: p.ActivationProcess,
		Price1Day:         p.Price1Day,
		Price7Days:        p.Price7Days,
		Price30Days:       p.Price30Days,
		PriceLifetime:     p.PriceLifetime,
		CurrencyPrices:    p.CurrencyPrices,
		TrialEnabled:      p.TrialEnabled,
		TrialPlan:         p.TrialPlan,
	}
}

func formDecimal(r *http.Request, field string) (decimal.Decimal, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, database.NewValidationError(field, "must be a number")
	}
	return d, nil
}

// readProduct accepts either a JSON body or a multipart form with an optional
// "image" file.
func (s *Server) readProduct(w http.ResponseWriter, r *http.Request) (productRequest, *service.File, func(), error) {
	var req productRequest
	noop := func() {}

	if !isMultipart(r) {
		return req, nil, noop, decodeJSON(r, &req)
	}

	if err := s.parseMultipart(w, r); err != nil {
		return req, nil, noop, err
	}

	req.Name = r.FormValue("name")
	req.Description = r.FormValue("description")
	req.ImageURL = r.FormValue("image_url")
	req.DownloadLink = r.FormValue("download_link")
	req.TutorialVideoLink = r.FormValue("tutorial_video_link")
	req.ActivationProcess = r.FormValue("activation_process")
	req.TrialEnabled, _ = strconv.ParseBool(r.FormValue("trial_enabled"))
	req.TrialPlan = models.Plan(r.FormValue("trial_plan"))
	req.Version, _ = strconv.Atoi(r.FormValue("version"))

	var err error
	if req.Price1Day, err = formDecimal(r, "price_1_day"); err != nil {
		return req, nil, noop, err
	}
	if req.Price7Days, err = formDecimal(r, "price_7_days"); err != nil {
		return req, nil, noop, err
	}
	if req.Price30Days, err = formDecimal(r, "price_30_days"); err != nil {
		return req, nil, noop, err
	}
	if req.PriceLifetime, err = formDecimal(r, "price_lifetime"); err != nil {
		return req, nil, noop, err
	}

	if raw := r.FormValue("currency_prices"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.CurrencyPrices); err != nil {
			return req, nil, noop, database.NewValidationError("currency_prices", "must be a JSON object")
		}
	}

	image, closeFn, err := s.formFile(r, "image")
	return req, image, closeFn, err
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Products.List(r.Context(), queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, page)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	product, err := s.svc.Products.Get(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, product)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	req, image, closeFn, err := s.readProduct(w, r)
	defer closeFn()
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	product, err := s.svc.Products.Create(r.Context(), req.input(), image)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, product)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	req, image, closeFn, err := s.readProduct(w, r)
	defer closeFn()
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if req.Version < 1 {
		s.respondErr(w, r, database.NewValidationError("version", "is required"))
		return
	}

	product, err := s.svc.Products.Update(r.Context(), id, req.Version, req.input(), image)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, product)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if err := s.svc.Products.Delete(r.Context(), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondMessage(w, http.StatusOK, "Product deleted")
}
