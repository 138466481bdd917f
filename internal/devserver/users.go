package devserver

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
)

const customerRole = 2

var (
	errInvalidCredential = errors.New("invalid email or password")
	errEmailTaken        = errors.New("email already registered")
)

type userRecord struct {
	user         types.User
	passwordHash []byte
	firstName    string
	lastName     string
}

type userStore struct {
	mu      sync.RWMutex
	cost    int
	byEmail map[string]*userRecord
	byID    map[string]*userRecord
}

func newUserStore(cost int) *userStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &userStore{
		cost:    cost,
		byEmail: map[string]*userRecord{},
		byID:    map[string]*userRecord{},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(reg types.Registration) error {
	email := normalizeEmail(reg.Email)
	if email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("email %q is not valid", reg.Email)
	}
	if len(reg.Password) < 6 {
		return errors.New("password must have at least 6 characters")
	}
	if strings.TrimSpace(reg.FirstName) == "" || strings.TrimSpace(reg.LastName) == "" {
		return errors.New("first and last name are required")
	}
	return nil
}

func (s *userStore) register(reg types.Registration) (types.User, error) {
	if err := validateRegistration(reg); err != nil {
		return types.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := normalizeEmail(reg.Email)
	if _, ok := s.byEmail[email]; ok {
		return types.User{}, errEmailTaken
	}
	rec := &userRecord{
		user:         types.User{ID: uuid.New().String(), Email: email, RoleID: customerRole},
		passwordHash: hash,
		firstName:    strings.TrimSpace(reg.FirstName),
		lastName:     strings.TrimSpace(reg.LastName),
	}
	s.byEmail[email] = rec
	s.byID[rec.user.ID] = rec
	return rec.user, nil
}

func (s *userStore) authenticate(creds types.Credentials) (types.User, error) {
	s.mu.RLock()
	rec, ok := s.byEmail[normalizeEmail(creds.Email)]
	s.mu.RUnlock()
	if !ok {
		return types.User{}, errInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(creds.Password)); err != nil {
		return types.User{}, errInvalidCredential
	}
	return rec.user, nil
}

func (s *userStore) get(id string) (types.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return types.User{}, false
	}
	return rec.user, true
}
