package users

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
)

// Admin addresses a tenant's administrator. It is either a PersistedAdmin
// backed by a users row or an EphemeralAdmin that only carries an address
// for a notification and must never be written back.
type Admin interface {
	Email() string
	Name() string
	admin()
}

// PersistedAdmin wraps a stored ADMIN user.
type PersistedAdmin struct {
	User *models.User
}

func (p PersistedAdmin) Email() string {
	if p.User == nil {
		return ""
	}
	return p.User.Email
}

func (p PersistedAdmin) Name() string {
	if p.User == nil {
		return ""
	}
	return p.User.Name
}

// ID returns the stored user id.
func (p PersistedAdmin) ID() uuid.UUID {
	if p.User == nil {
		return uuid.Nil
	}
	return p.User.ID
}

func (PersistedAdmin) admin() {}

// EphemeralAdmin is an in-memory recipient synthesized when no admin exists yet.
type EphemeralAdmin struct {
	Address     string
	DisplayName string
}

func (e EphemeralAdmin) Email() string { return e.Address }
func (e EphemeralAdmin) Name() string  { return e.DisplayName }
func (EphemeralAdmin) admin()          {}

// NewPersisted returns nil for a nil user so callers can chain lookups.
func NewPersisted(user *models.User) Admin {
	if user == nil {
		return nil
	}
	return PersistedAdmin{User: user}
}

// NewEphemeral returns nil when no address is known.
func NewEphemeral(email, name string) Admin {
	email = NormalizeEmail(email)
	if email == "" {
		return nil
	}
	return EphemeralAdmin{Address: email, DisplayName: name}
}

// IsPersisted reports whether a is backed by a stored user.
func IsPersisted(a Admin) bool {
	p, ok := a.(PersistedAdmin)
	return ok && p.User != nil
}

// PlaceholderEmail derives a deterministic admin address from a tenant
// subdomain or name when no real contact is known.
func PlaceholderEmail(seed, domain string) string {
	local := slug.Make(seed)
	if local == "" {
		local = "tenant"
	}
	return fmt.Sprintf("admin@%s.%s", local, domain)
}
