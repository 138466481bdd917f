package apierr

import "errors"

const (
	CodeUnauthorized      = "unauthorized"
	CodeInvalidCredential = "invalid_credentials"
	CodeRefreshFailed     = "refresh_failed"
	CodeValidationFailed  = "validation_failed"
	CodeInvalidRequest    = "invalid_request"
	CodeInsufficientStock = "insufficient_stock"
	CodeProductNotFound   = "product_not_found"
	CodeItemNotFound      = "item_not_found"
	CodeUnavailable       = "service_unavailable"
	CodeTransport         = "transport"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRenewalToken   = errors.New("no renewal token stored")
	ErrProductNotInCart = errors.New("product is not in the cart")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
)
