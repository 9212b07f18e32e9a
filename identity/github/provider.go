// Package github implements identity.Provider against GitHub's OAuth web flow
// and REST user API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v80/github"
	"github.com/jrsteele09/go-keygrant/identity"
	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

const userAgent = "go-keygrant"

var _ identity.Provider = (*Provider)(nil)

// Options configures a Provider. ClientID and ClientSecret are the OAuth app
// credentials; EnterpriseURL, when set, points both the web flow and the API
// at a GitHub Enterprise Server instance.
type Options struct {
	ClientID      string
	ClientSecret  string
	EnterpriseURL string
	HTTPClient    *http.Client
}

// Provider talks to github.com or a GitHub Enterprise Server.
type Provider struct {
	oauth         *oauth2.Config
	enterpriseURL string
	httpClient    *http.Client
}

func New(opts Options) (*Provider, error) {
	if opts.ClientID == "" {
		return nil, apperrors.New("[github New] client id is required")
	}
	if opts.ClientSecret == "" {
		return nil, apperrors.New("[github New] client secret is required")
	}

	endpoint := githuboauth.Endpoint
	enterpriseURL := strings.TrimSuffix(opts.EnterpriseURL, "/")
	if enterpriseURL != "" {
		endpoint = oauth2.Endpoint{
			AuthURL:  enterpriseURL + "/login/oauth/authorize",
			TokenURL: enterpriseURL + "/login/oauth/access_token",
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     endpoint,
			// No scopes: public profile is all that is read.
			Scopes: nil,
		},
		enterpriseURL: enterpriseURL,
		httpClient:    httpClient,
	}, nil
}

// AuthorizationURL builds the github.com/login/oauth/authorize URL.
func (p *Provider) AuthorizationURL(redirectURL string, state string) string {
	cfg := *p.oauth
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state)
}

// Exchange trades a web-flow code for a user access token.
func (p *Provider) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrCodeExchange, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", apperrors.ErrCodeExchange)
	}
	return tok.AccessToken, nil
}

// Resolve fetches the authenticated user for credential.
func (p *Provider) Resolve(ctx context.Context, credential string) (identity.Identity, error) {
	client, err := p.client(credential)
	if err != nil {
		return identity.Identity{}, err
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %v", apperrors.ErrIdentityResolve, err)
	}
	if user.GetID() == 0 || user.GetLogin() == "" {
		return identity.Identity{}, fmt.Errorf("%w: incomplete user record", apperrors.ErrIdentityResolve)
	}

	return identity.Identity{
		ID:          user.GetID(),
		Login:       user.GetLogin(),
		DisplayName: user.GetName(),
	}, nil
}

func (p *Provider) client(credential string) (*gh.Client, error) {
	client := gh.NewClient(p.httpClient).WithAuthToken(credential)
	client.UserAgent = userAgent

	if p.enterpriseURL != "" {
		// uploads are never used, so the base URL doubles as the upload URL.
		var err error
		client, err = client.WithEnterpriseURLs(p.enterpriseURL, p.enterpriseURL)
		if err != nil {
			return nil, fmt.Errorf("creating github enterprise client: %w", err)
		}
	}
	return client, nil
}
