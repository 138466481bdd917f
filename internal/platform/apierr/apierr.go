package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by how callers are expected to react to it.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindValidation
	KindStockConflict
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindStockConflict:
		return "stock_conflict"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind   Kind
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error from a remote status and code. The kind follows the status
// unless the code names a stock conflict explicitly.
func New(status int, code string, err error) *Error {
	return &Error{Kind: kindFor(status, code), Status: status, Code: code, Err: err}
}

func Auth(err error) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Code: CodeUnauthorized, Err: err}
}

func Validation(code string, err error) *Error {
	if code == "" {
		code = CodeValidationFailed
	}
	return &Error{Kind: KindValidation, Status: http.StatusUnprocessableEntity, Code: code, Err: err}
}

func StockConflict(code string, err error) *Error {
	if code == "" {
		code = CodeInsufficientStock
	}
	return &Error{Kind: KindStockConflict, Status: http.StatusConflict, Code: code, Err: err}
}

func Transport(err error) *Error {
	return &Error{Kind: KindTransport, Code: CodeTransport, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return KindUnknown
}

func IsAuth(err error) bool          { return KindOf(err) == KindAuth }
func IsValidation(err error) bool    { return KindOf(err) == KindValidation }
func IsStockConflict(err error) bool { return KindOf(err) == KindStockConflict }
func IsTransport(err error) bool     { return KindOf(err) == KindTransport }

// IsBusiness reports whether err is an expected outcome that callers resolve into a
// failed result instead of treating as drift.
func IsBusiness(err error) bool {
	k := KindOf(err)
	return k == KindValidation || k == KindStockConflict
}

func kindFor(status int, code string) Kind {
	if code == CodeInsufficientStock {
		return KindStockConflict
	}
	switch status {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusConflict:
		return KindStockConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindUnknown
	}
}
