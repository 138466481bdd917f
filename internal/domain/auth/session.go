package auth

import "strings"

// State is the lifecycle position of a browsing context's session.
type State int

const (
	StateUninitialized State = iota
	StateVerifying
	StateAuthenticated
	StateRenewing
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	case StateRenewing:
		return "renewing"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// User is the snapshot cached next to the tokens.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	RoleID int    `json:"role_id"`
}

func (u *User) Valid() bool {
	return u != nil && strings.TrimSpace(u.ID) != "" && strings.TrimSpace(u.Email) != ""
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RenewalToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// Session is the locally cached authentication state. It is authenticated only
// when both tokens and a well-formed user are present.
type Session struct {
	AccessToken  string
	RenewalToken string
	User         *User
}

func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.RenewalToken != "" && s.User.Valid()
}

// Empty reports whether nothing at all is cached.
func (s Session) Empty() bool {
	return s.AccessToken == "" && s.RenewalToken == "" && s.User == nil
}

// WithTokens returns a copy carrying a renewed pair. An empty renewal token in
// the pair keeps the current one.
func (s Session) WithTokens(p TokenPair) Session {
	out := s
	out.AccessToken = p.AccessToken
	if p.RenewalToken != "" {
		out.RenewalToken = p.RenewalToken
	}
	return out
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
