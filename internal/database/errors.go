package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

const (
	codeUniqueViolation       = "23505"
	codeForeignKeyViolation   = "23503"
	codeCheckViolation        = "23514"
	codeInsufficientPrivilege = "42501"
	codeUndefinedFunction     = "42883"
	codeLockNotAvailable      = "55P03"
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case codeLockNotAvailable:
			return ErrorClassTransient
		case codeUniqueViolation, codeForeignKeyViolation, "23502", codeCheckViolation:
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

func IsUniqueViolation(err error) bool     { return hasCode(err, codeUniqueViolation) }
func IsForeignKeyViolation(err error) bool { return hasCode(err, codeForeignKeyViolation) }
func IsCheckViolation(err error) bool      { return hasCode(err, codeCheckViolation) }
func IsLockNotAvailable(err error) bool    { return hasCode(err, codeLockNotAvailable) }

// IsPermissionDenied reports whether a call was refused by the database's
// privilege layer or targeted a function that does not exist for this role.
func IsPermissionDenied(err error) bool {
	return hasCode(err, codeInsufficientPrivilege) || hasCode(err, codeUndefinedFunction)
}

// ConstraintName returns the violated constraint, if the driver reported one.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrLicenseNotFound      = errors.New("license key not found")
	ErrPromoNotFound        = errors.New("promo code not found or inactive")
	ErrPromoIDNotFound      = errors.New("promo not found")
	ErrTopUpNotFound        = errors.New("top-up request not found")
	ErrResetNotFound        = errors.New("credential request not found")
	ErrOptimisticLockFailed = errors.New("optimistic lock failed")
	ErrLockTimeout          = errors.New("lock timeout")

	ErrOutOfStock              = errors.New("out of stock")
	ErrInsufficientBalance     = errors.New("insufficient wallet balance")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInvalidPlan             = errors.New("invalid plan")
	ErrPromoExpired            = errors.New("promo code has expired")
	ErrPromoLimitReached       = errors.New("promo code usage limit reached")
	ErrTrialNotAvailable       = errors.New("free trial not available for this product")
	ErrTrialAlreadyClaimed     = errors.New("free trial already claimed")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrRequestAlreadyProcessed = errors.New("request already processed")
	ErrLicenseAssigned         = errors.New("license key already assigned")
	ErrProductInUse            = errors.New("product has associated orders or licenses")
	ErrPromoCodeExists         = errors.New("promo code already exists")
	ErrOrderNotOwned           = errors.New("order does not belong to user")
)

// OutOfStockError carries the plan that ran dry. It matches ErrOutOfStock
// with errors.Is.
type OutOfStockError struct {
	Plan string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: no unused keys for plan %s", e.Plan)
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
