package auth

import "fmt"

// Provider identifies the authentication method behind a request.
// The set is closed: adding a provider means adding a constant here,
// a federation client, and nothing else.
type Provider int

const (
	ProviderLocal Provider = iota
	ProviderGoogle
	ProviderGitHub
)

func (p Provider) String() string {
	switch p {
	case ProviderLocal:
		return "local"
	case ProviderGoogle:
		return "google"
	case ProviderGitHub:
		return "github"
	default:
		return "unknown"
	}
}

// Federated reports whether the provider is an external identity
// provider rather than the built-in email/password one.
func (p Provider) Federated() bool {
	return p != ProviderLocal
}

func ParseProvider(s string) (Provider, error) {
	switch s {
	case "local":
		return ProviderLocal, nil
	case "google":
		return ProviderGoogle, nil
	case "github":
		return ProviderGitHub, nil
	default:
		return ProviderLocal, fmt.Errorf("unknown provider %q", s)
	}
}

// Intent is the caller's declared purpose for a local-provider request.
// It is an explicit input rather than something inferred from request
// shape, so register-vs-login routing is never ambiguous.
type Intent int

const (
	IntentRegister Intent = iota
	IntentLogin
)

func (i Intent) String() string {
	if i == IntentRegister {
		return "register"
	}
	return "login"
}

// Identity is a normalized external identity returned by a federation
// client. It contains facts only; all account decisions happen in the
// Router.
type Identity struct {
	Provider   Provider
	ExternalID string // provider-scoped unique subject
	Email      string
	Name       string
}
