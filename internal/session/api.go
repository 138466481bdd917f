package session

import (
	"context"
	"time"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/storage"
)

// AuthAPI is the remote authentication surface.
//
// Verify distinguishes an explicit rejection (false, nil) from a failure to get
// an answer at all (non-nil error).
type AuthAPI interface {
	Login(ctx context.Context, creds types.Credentials) (types.Session, error)
	Logout(ctx context.Context, accessToken, renewalToken string) error
	Verify(ctx context.Context, accessToken string) (bool, error)
	Renew(ctx context.Context, renewalToken string) (types.TokenPair, error)
	Register(ctx context.Context, reg types.Registration) error
}

// Watcher delivers storage changes made by other browsing contexts.
type Watcher interface {
	Watch(ctx context.Context, fn func(storage.Change)) (func(), error)
}

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
