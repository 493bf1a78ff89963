package auth

import "slices"

// Identity is the authenticated principal for a single request. It is built
// fresh on every authentication and never cached.
type Identity struct {
	UserID  int64    `json:"user_id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Hash    string   `json:"hash,omitempty"`
	IsAdmin bool     `json:"is_admin"`
	Roles   []string `json:"roles"`
}

// HasRole reports whether role is part of the identity role list.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// IdentityRecord is the external identity store representation of a user.
type IdentityRecord struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Hash    string   `json:"hash,omitempty"`
	IsAdmin bool     `json:"is_admin"`
	Active  bool     `json:"active"`
	Roles   []string `json:"roles,omitempty"`
}
