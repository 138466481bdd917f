package session

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
)

var ErrSubjectMismatch = errors.New("access token subject does not match the cached user")

// CheckConsistency verifies that a JWT access token was issued for the cached
// user. The signature is not checked here; the server does that on every call.
// Opaque tokens and tokens without a subject are accepted as is.
func CheckConsistency(sess types.Session) error {
	if sess.AccessToken == "" || sess.User == nil {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(sess.AccessToken, claims); err != nil {
		return nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil
	}
	if sub != sess.User.ID {
		return ErrSubjectMismatch
	}
	return nil
}
