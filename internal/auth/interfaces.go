package auth

import (
	"context"

	"github.com/calum/gatehouse/internal/database/models"
	"github.com/google/uuid"
)

// NewAccount carries everything the provisioner needs to create an
// organization together with its owning user.
type NewAccount struct {
	Provider     Provider
	Email        string
	PasswordHash string // already hashed; empty for federated accounts
	Name         string
	Company      string
	ExternalID   string
	Activated    bool
}

// UserDirectory resolves existing user records. Lookups scoped by
// provider so a local account and a federated account may share an
// email address without colliding.
type UserDirectory interface {
	UserByEmail(ctx context.Context, provider Provider, email string) (*models.User, error)
	UserByExternalID(ctx context.Context, provider Provider, externalID string) (*models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// OrganizationProvisioner creates an organization and its first user
// in a single transaction. Implementations must be all-or-nothing;
// the duplicate-email race between concurrent registrations is closed
// by the storage layer's uniqueness constraint, not by the Router.
type OrganizationProvisioner interface {
	CreateOrgAndUser(ctx context.Context, acct NewAccount) (*models.User, error)
}

// Notifier delivers transactional email. Implementations decide the
// transport; the Router only composes the message.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// CredentialVerifier hashes and checks local-provider passwords.
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Compare(password, hash string) bool
}

// TokenIssuer produces a signed session token for an authenticated user.
type TokenIssuer interface {
	IssueToken(user *models.User) (string, error)
}

// Compile-time interface satisfaction checks
var (
	_ CredentialVerifier = (*BcryptVerifier)(nil)
	_ TokenIssuer        = (*JWTService)(nil)
)
