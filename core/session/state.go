package session

import "strings"

type Status int

const (
	StatusLoading Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Identity describes the authenticated visitor.
type Identity struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
}

// HasRolePrefix reports whether any of the identity roles starts with one of the given prefixes (eg. "admin:").
func (id Identity) HasRolePrefix(prefixes ...string) bool {
	for _, role := range id.Roles {
		for _, prefix := range prefixes {
			if strings.HasPrefix(role, prefix) {
				return true
			}
		}
	}
	return false
}

func (id Identity) equal(other Identity) bool {
	if id.ID != other.ID || id.Username != other.Username || id.Email != other.Email || id.Name != other.Name {
		return false
	}
	if len(id.Roles) != len(other.Roles) {
		return false
	}
	for i := range id.Roles {
		if id.Roles[i] != other.Roles[i] {
			return false
		}
	}
	return true
}

// State is one of Loading, Unauthenticated or Authenticated(token, identity).
// An authenticated State always carries a non-empty token.
type State struct {
	status   Status
	token    string
	identity Identity
}

// Loading is the state of a session that has not been hydrated yet.
func Loading() State { return State{status: StatusLoading} }

func Unauthenticated() State { return State{status: StatusUnauthenticated} }

// Authenticated returns an authenticated State, or Unauthenticated when token is empty.
func Authenticated(token string, id Identity) State {
	if token == "" {
		return Unauthenticated()
	}
	return State{status: StatusAuthenticated, token: token, identity: id}
}

func (s State) Status() Status        { return s.status }
func (s State) IsLoading() bool       { return s.status == StatusLoading }
func (s State) IsAuthenticated() bool { return s.status == StatusAuthenticated }
func (s State) Token() string         { return s.token }
func (s State) Identity() Identity    { return s.identity }

func (s State) Equal(other State) bool {
	return s.status == other.status && s.token == other.token && s.identity.equal(other.identity)
}

func (s State) String() string {
	if s.IsAuthenticated() {
		return s.status.String() + "(" + s.identity.ID + ")"
	}
	return s.status.String()
}
