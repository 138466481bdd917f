package storefront

import (
	"context"
	"errors"
	"net/http"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
)

type loginResponse struct {
	types.TokenPair
	User types.User `json:"user"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

type renewalRequest struct {
	RenewalToken string `json:"refresh_token"`
}

func (c *Client) Login(ctx context.Context, creds types.Credentials) (types.Session, error) {
	var out loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", creds, &out); err != nil {
		return types.Session{}, err
	}
	u := out.User
	return types.Session{
		AccessToken:  out.AccessToken,
		RenewalToken: out.RenewalToken,
		User:         &u,
	}, nil
}

func (c *Client) Logout(ctx context.Context, accessToken, renewalToken string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", accessToken, renewalRequest{RenewalToken: renewalToken}, nil)
}

// Verify reports (false, nil) when the server rejects the token with a 4xx.
// Timeouts, throttling, 5xx and transport failures are errors: they carry no
// verdict on the token.
func (c *Client) Verify(ctx context.Context, accessToken string) (bool, error) {
	var out verifyResponse
	err := c.doJSON(ctx, http.MethodGet, "/auth/verify", accessToken, nil, &out)
	if rejectsToken(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Valid, nil
}

func rejectsToken(err error) bool {
	var herr *HTTPError
	if !errors.As(err, &herr) {
		return false
	}
	switch herr.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return herr.StatusCode >= 400 && herr.StatusCode < 500
}

func (c *Client) Renew(ctx context.Context, renewalToken string) (types.TokenPair, error) {
	var out types.TokenPair
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", "", renewalRequest{RenewalToken: renewalToken}, &out); err != nil {
		return types.TokenPair{}, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, reg types.Registration) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/register", "", reg, nil)
}
