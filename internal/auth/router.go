package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/calum/gatehouse/internal/database/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid user name or password")
	ErrNotActivated       = errors.New("user is not activated")
	ErrMissingIdentity    = errors.New("federated request carries no identity")
)

const activationSubject = "Activate your account"

// Request is the provider-tagged payload for a single auth attempt.
// Local flows read Email/Password/Name/Company; federated flows read
// Identity, which the caller obtains from a federation client before
// routing.
type Request struct {
	Email    string
	Password string
	Name     string
	Company  string
	Identity *Identity
}

// Session is the result of a completed flow.
type Session struct {
	Token string
	User  *models.User
}

// Router is the provider-routing decision engine. Given a provider tag
// and the caller's intent it runs exactly one of three flows: local
// register, local login, or federated login-or-register. Each call is
// request-scoped; the Router holds no mutable state and never retries
// a collaborator.
type Router struct {
	users    UserDirectory
	orgs     OrganizationProvisioner
	notifier Notifier
	creds    CredentialVerifier
	tokens   TokenIssuer

	publicURL string
	// requireActivation gates local login on the activation flag.
	// Off by default: accounts are usable immediately and the emailed
	// link only flips the flag.
	requireActivation bool
}

type RouterConfig struct {
	Users             UserDirectory
	Orgs              OrganizationProvisioner
	Notifier          Notifier
	Credentials       CredentialVerifier
	Tokens            TokenIssuer
	PublicURL         string
	RequireActivation bool
}

func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		users:             cfg.Users,
		orgs:              cfg.Orgs,
		notifier:          cfg.Notifier,
		creds:             cfg.Credentials,
		tokens:            cfg.Tokens,
		publicURL:         cfg.PublicURL,
		requireActivation: cfg.RequireActivation,
	}
}

// Route dispatches on provider and intent. Side effects per call: at
// most one organization+user creation, at most one email send, exactly
// one token on success.
func (r *Router) Route(ctx context.Context, provider Provider, intent Intent, req Request) (*Session, error) {
	if provider.Federated() {
		if req.Identity == nil {
			return nil, ErrMissingIdentity
		}
		return r.loginOrRegister(ctx, *req.Identity)
	}

	if intent == IntentRegister {
		return r.registerLocal(ctx, req)
	}
	return r.loginLocal(ctx, req)
}

func (r *Router) registerLocal(ctx context.Context, req Request) (*Session, error) {
	existing, err := r.users.UserByEmail(ctx, ProviderLocal, req.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := r.creds.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := r.orgs.CreateOrgAndUser(ctx, NewAccount{
		Provider:     ProviderLocal,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Company:      req.Company,
	})
	if err != nil {
		return nil, fmt.Errorf("provisioning organization: %w", err)
	}

	// The account is durable at this point; an email failure surfaces
	// to the caller but does not roll anything back.
	link := fmt.Sprintf("%s/api/v1/auth/activate/%s", r.publicURL, user.ID)
	body := fmt.Sprintf(
		`<p>Welcome! Click <a href="%s">here</a> to activate your account.</p>`, link)
	if err := r.notifier.SendEmail(ctx, user.Email, activationSubject, body); err != nil {
		return nil, fmt.Errorf("sending activation email: %w", err)
	}

	return r.issue(user)
}

func (r *Router) loginLocal(ctx context.Context, req Request) (*Session, error) {
	user, err := r.users.UserByEmail(ctx, ProviderLocal, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Unknown email and wrong password are indistinguishable
			// to the caller, so accounts cannot be enumerated.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !r.creds.Compare(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if r.requireActivation && !user.Activated {
		return nil, ErrNotActivated
	}

	return r.issue(user)
}

// loginOrRegister resolves a federated identity to a user, creating
// the account and its organization on first sighting. Federated
// accounts are pre-activated and get no activation email. Repeated
// calls with the same identity resolve to the same user.
func (r *Router) loginOrRegister(ctx context.Context, id Identity) (*Session, error) {
	user, err := r.users.UserByExternalID(ctx, id.Provider, id.ExternalID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		user, err = r.orgs.CreateOrgAndUser(ctx, NewAccount{
			Provider:   id.Provider,
			Email:      id.Email,
			Name:       id.Name,
			ExternalID: id.ExternalID,
			Activated:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("provisioning organization: %w", err)
		}
	}

	return r.issue(user)
}

func (r *Router) issue(user *models.User) (*Session, error) {
	token, err := r.tokens.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}
