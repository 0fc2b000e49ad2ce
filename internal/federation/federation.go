// Package federation holds the OAuth clients for the external identity
// providers. Clients return normalized identity facts only; account
// decisions stay in the auth router.
package federation

import (
	"context"
	"fmt"

	"github.com/calum/gatehouse/internal/auth"
)

// Client is the contract every federated provider implements.
type Client interface {
	// Provider returns the tag this client serves.
	Provider() auth.Provider

	// AuthCodeURL returns the provider's authorization URL for the
	// given anti-CSRF state.
	AuthCodeURL(state string) string

	// Exchange trades the authorization code for a verified identity.
	Exchange(ctx context.Context, code string) (*auth.Identity, error)
}

// Registry looks up federation clients by provider tag.
type Registry struct {
	clients map[auth.Provider]Client
}

func NewRegistry(clients ...Client) *Registry {
	m := make(map[auth.Provider]Client, len(clients))
	for _, c := range clients {
		m[c.Provider()] = c
	}
	return &Registry{clients: m}
}

func (r *Registry) Get(p auth.Provider) (Client, error) {
	c, ok := r.clients[p]
	if !ok {
		return nil, fmt.Errorf("provider %s is not configured", p)
	}
	return c, nil
}
