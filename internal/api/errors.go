package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/safar/license-store/internal/auth"
	"github.com/safar/license-store/internal/cache"
	"github.com/safar/license-store/internal/database"
	"github.com/sirupsen/logrus"
)

var badRequest = []error{
	database.ErrInsufficientBalance,
	database.ErrInvalidAmount,
	database.ErrInvalidPlan,
	database.ErrPromoExpired,
	database.ErrPromoLimitReached,
	database.ErrTrialNotAvailable,
	database.ErrTrialAlreadyClaimed,
	database.ErrInvalidTransition,
	database.ErrRequestAlreadyProcessed,
	database.ErrLicenseAssigned,
	database.ErrProductInUse,
	database.ErrPromoCodeExists,
}

var notFound = []error{
	database.ErrUserNotFound,
	database.ErrProductNotFound,
	database.ErrOrderNotFound,
	database.ErrLicenseNotFound,
	database.ErrPromoIDNotFound,
	database.ErrTopUpNotFound,
	database.ErrResetNotFound,
}

// errorStatus maps err to the HTTP status and the message shown to clients.
func errorStatus(err error) (int, string) {
	var verr *database.ValidationError
	var stock *database.OutOfStockError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.As(err, &stock):
		return http.StatusBadRequest, fmt.Sprintf("Out of Stock! No unused keys found for %s.", stock.Plan)
	case errors.Is(err, database.ErrOutOfStock):
		return http.StatusBadRequest, "Out of Stock!"
	case errors.Is(err, database.ErrPromoNotFound):
		return http.StatusBadRequest, "Invalid or inactive promo code"
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, database.ErrOrderNotOwned):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, database.ErrOptimisticLockFailed):
		return http.StatusConflict, "resource was modified concurrently, reload and retry"
	case errors.Is(err, database.ErrLockTimeout), errors.Is(err, cache.ErrInFlight):
		return http.StatusConflict, err.Error()
	}

	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			return http.StatusNotFound, target.Error()
		}
	}

	return http.StatusInternalServerError, "internal server error"
}

func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)

	entry := s.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	}).WithError(err)

	switch {
	case status >= http.StatusInternalServerError:
		entry.Error("request failed")
	case status != http.StatusUnauthorized:
		entry.Info("request rejected")
	}

	s.respondError(w, status, message)
}
