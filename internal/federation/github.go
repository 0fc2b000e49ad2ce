package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/calum/gatehouse/internal/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPIBase = "https://api.github.com"

// GitHubClient authenticates through GitHub's OAuth flow. GitHub is
// plain OAuth2, not OIDC, so the identity comes from the user API
// rather than an ID token.
type GitHubClient struct {
	oauth   *oauth2.Config
	apiBase string
}

func NewGitHubClient(clientID, clientSecret, redirectURL string) (*GitHubClient, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	return &GitHubClient{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: githubAPIBase,
	}, nil
}

func (c *GitHubClient) Provider() auth.Provider {
	return auth.ProviderGitHub
}

func (c *GitHubClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

func (c *GitHubClient) Exchange(ctx context.Context, code string) (*auth.Identity, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging github code: %w", err)
	}

	client := c.oauth.Client(ctx, token)

	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.getJSON(ctx, client, "/user", &profile); err != nil {
		return nil, fmt.Errorf("fetching github profile: %w", err)
	}

	email := profile.Email
	if email == "" {
		email, err = c.primaryEmail(ctx, client)
		if err != nil {
			return nil, err
		}
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return &auth.Identity{
		Provider:   auth.ProviderGitHub,
		ExternalID: strconv.FormatInt(profile.ID, 10),
		Email:      email,
		Name:       name,
	}, nil
}

// primaryEmail covers profiles that keep their address private; the
// user:email scope still exposes it through the emails endpoint.
func (c *GitHubClient) primaryEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := c.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return "", fmt.Errorf("fetching github emails: %w", err)
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", errors.New("github account has no verified primary email")
}

func (c *GitHubClient) getJSON(ctx context.Context, client *http.Client, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api returned %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
