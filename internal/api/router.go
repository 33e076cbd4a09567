// Package api exposes the store over HTTP under /api.
package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/license-store/internal/auth"
	"github.com/safar/license-store/internal/cache"
	"github.com/safar/license-store/internal/ratelimit"
	"github.com/safar/license-store/internal/service"
	"github.com/sirupsen/logrus"
)

const defaultMaxUpload = 10 << 20

type Config struct {
	DB             *sql.DB
	Services       *service.Services
	Verifier       auth.Verifier
	Idempotency    cache.Idempotency
	Limiter        *ratelimit.Limiter
	Logger         *logrus.Logger
	UploadDir      string
	MaxUploadBytes int64
}

type Server struct {
	db        *sql.DB
	svc       *service.Services
	verifier  auth.Verifier
	idem      cache.Idempotency
	limiter   *ratelimit.Limiter
	logger    *logrus.Logger
	maxUpload int64
}

func NewRouter(cfg Config) http.Handler {
	s := &Server{
		db:        cfg.DB,
		svc:       cfg.Services,
		verifier:  cfg.Verifier,
		idem:      cfg.Idempotency,
		limiter:   cfg.Limiter,
		logger:    cfg.Logger,
		maxUpload: cfg.MaxUploadBytes,
	}
	if s.idem == nil {
		s.idem = cache.Disabled{}
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	if cfg.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Get("/{id}", s.getProduct)

			r.Group(func(r chi.Router) {
				r.Use(s.authenticate, s.requireAdmin)
				r.Post("/", s.createProduct)
				r.Put("/{id}", s.updateProduct)
				r.Delete("/{id}", s.deleteProduct)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", s.getMe)
				r.Patch("/me", s.updateMe)
				r.With(s.requireAdmin).Get("/", s.listUsers)
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(s.rateLimit).Post("/", s.createManualOrder)
				r.With(s.rateLimit).Post("/wallet", s.purchaseWithWallet)
				r.With(s.rateLimit).Post("/claim-trial", s.claimTrial)
				r.Get("/my-orders", s.listMyOrders)

				r.Group(func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Get("/admin/all", s.listAllOrders)
					r.Patch("/{id}/status", s.updateOrderStatus)
				})
			})

			r.Route("/licenses", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/", s.listLicenses)
				r.Post("/", s.addLicenses)
				r.Delete("/unused", s.deleteUnusedLicenses)
				r.Delete("/{id}", s.deleteLicense)
			})

			r.Route("/promos", func(r chi.Router) {
				r.Post("/validate", s.validatePromo)

				r.Group(func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Get("/", s.listPromos)
					r.Post("/", s.createPromo)
					r.Put("/{id}", s.updatePromo)
					r.Delete("/{id}", s.deletePromo)
				})
			})

			r.Route("/balance", func(r chi.Router) {
				r.With(s.rateLimit).Post("/", s.createTopUp)
				r.Get("/my-requests", s.listMyTopUps)

				r.Group(func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Get("/admin/all", s.listAllTopUps)
					r.Patch("/{id}/approve", s.approveTopUp)
					r.Patch("/{id}/reject", s.rejectTopUp)
				})
			})

			r.Route("/resets", func(r chi.Router) {
				r.Post("/", s.createReset)
				r.Get("/my-requests", s.listMyResets)

				r.Group(func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Get("/admin/all", s.listAllResets)
					r.Patch("/{id}", s.resolveReset)
				})
			})
		})
	})

	return r
}
