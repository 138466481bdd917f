package domain

import (
	"github.com/Jenaru0/dela-storefront/internal/domain/auth"
	"github.com/Jenaru0/dela-storefront/internal/domain/commerce"
)

type (
	State        = auth.State
	User         = auth.User
	TokenPair    = auth.TokenPair
	Session      = auth.Session
	Credentials  = auth.Credentials
	Registration = auth.Registration

	Product  = commerce.Product
	CartLine = commerce.CartLine
	Cart     = commerce.Cart
	Result   = commerce.Result
)

const (
	StateUninitialized = auth.StateUninitialized
	StateVerifying     = auth.StateVerifying
	StateAuthenticated = auth.StateAuthenticated
	StateRenewing      = auth.StateRenewing
	StateAnonymous     = auth.StateAnonymous
)

var (
	Succeeded       = commerce.Succeeded
	Failed          = commerce.Failed
	LineFromProduct = commerce.LineFromProduct
)
