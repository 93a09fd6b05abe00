package progress

import (
	"errors"
	"strings"
)

// ErrNoIdentity is returned by remote operations attempted in local-only mode.
var ErrNoIdentity = errors.New("no identity: local-only mode")

// Identity is what the authentication collaborator reports about the user.
type Identity struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email"`
}

// Known reports whether remote operations are possible for this identity.
func (i Identity) Known() bool {
	return i.Authenticated && NormalizeEmail(i.Email) != ""
}

// NormalizeEmail lower-cases and trims an email so it can be used as a user key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
