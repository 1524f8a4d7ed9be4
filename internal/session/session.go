// Package session holds the authenticated user a cart store acts for.
package session

import (
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

// Session is fixed at construction; a store never looks the user up again.
type Session struct {
	user          domain.User
	authenticated bool
}

func Anonymous() Session {
	return Session{}
}

func New(user domain.User) Session {
	return Session{user: user, authenticated: true}
}

func (s Session) User() (domain.User, bool) {
	return s.user, s.authenticated
}

// RequireUser returns domain.ErrUnauthenticated for an anonymous session.
func (s Session) RequireUser() (domain.User, error) {
	if !s.authenticated {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return s.user, nil
}
