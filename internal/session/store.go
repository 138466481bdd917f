package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
)

const (
	KeyAccessToken  = "access_token"
	KeyRenewalToken = "refresh_token"
	KeyUser         = "user"
)

// KV is the slice of client-persisted storage the store needs. storage.View
// satisfies it.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is the only component that reads or writes the persisted session keys.
type Store struct {
	kv  KV
	log *logger.Logger
}

func NewStore(log *logger.Logger, kv KV) *Store {
	return &Store{kv: kv, log: logger.OrNop(log).With("component", "SessionStore")}
}

// Get returns whatever is persisted. A malformed user snapshot, or one that does
// not match the access token, is treated as absent and cleared.
func (s *Store) Get(ctx context.Context) types.Session {
	access, _, err := s.kv.Get(ctx, KeyAccessToken)
	if err != nil {
		s.log.Warn("read access token failed", "error", err)
		return types.Session{}
	}
	renewal, _, err := s.kv.Get(ctx, KeyRenewalToken)
	if err != nil {
		s.log.Warn("read renewal token failed", "error", err)
		return types.Session{}
	}
	rawUser, hasUser, err := s.kv.Get(ctx, KeyUser)
	if err != nil {
		s.log.Warn("read user snapshot failed", "error", err)
		return types.Session{}
	}

	sess := types.Session{AccessToken: access, RenewalToken: renewal}
	if hasUser {
		var u types.User
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil || !u.Valid() {
			s.discard(ctx, "malformed user snapshot", err)
			return types.Session{}
		}
		sess.User = &u
	}
	if err := CheckConsistency(sess); err != nil {
		s.discard(ctx, "inconsistent session", err)
		return types.Session{}
	}
	return sess
}

// Set persists a complete session. The access token is written last so that any
// context observing it finds the matching renewal token and user already stored.
func (s *Store) Set(ctx context.Context, sess types.Session) error {
	if !sess.Authenticated() {
		return errors.New("refusing to store an incomplete session")
	}
	if err := CheckConsistency(sess); err != nil {
		return err
	}
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, KeyUser, string(rawUser)); err != nil {
		return fmt.Errorf("store user snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, KeyRenewalToken, sess.RenewalToken); err != nil {
		return fmt.Errorf("store renewal token: %w", err)
	}
	if err := s.kv.Set(ctx, KeyAccessToken, sess.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	return nil
}

// Clear removes all three keys, access token first.
func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyAccessToken, KeyRenewalToken, KeyUser} {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) discard(ctx context.Context, reason string, cause error) {
	s.log.Warn("discarding stored session", "reason", reason, "error", cause)
	if err := s.Clear(ctx); err != nil {
		s.log.Error("clear corrupted session failed", "error", err)
	}
}
