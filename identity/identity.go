// Package identity describes the external identity provider a token is bound
// to. The service only needs three things from it: where to send a browser,
// how to turn a callback code into a credential, and who a credential belongs to.
package identity

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks github.com/jrsteele09/go-keygrant/identity Provider

import (
	"context"
	"slices"
	"strings"
)

// Identity is the subset of a provider account the service persists.
type Identity struct {
	ID          int64
	Login       string
	DisplayName string
}

// Provider is an OAuth identity provider.
type Provider interface {
	// AuthorizationURL is where the browser goes to start the web flow.
	AuthorizationURL(redirectURL string, state string) string
	// Exchange swaps an authorization code for an access credential.
	Exchange(ctx context.Context, code string) (string, error)
	// Resolve looks up the account that owns credential.
	Resolve(ctx context.Context, credential string) (Identity, error)
}

// AllowList restricts which logins may bind tokens. The zero value allows everyone.
type AllowList struct {
	logins []string
}

// NewAllowList builds an allow list from login names. Matching is case-insensitive,
// as GitHub logins are.
func NewAllowList(logins ...string) AllowList {
	var out []string
	for _, l := range logins {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" && !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return AllowList{logins: out}
}

// Empty reports whether the list imposes no restriction.
func (a AllowList) Empty() bool {
	return len(a.logins) == 0
}

// Allows reports whether login may bind a token.
func (a AllowList) Allows(login string) bool {
	if a.Empty() {
		return true
	}
	return slices.Contains(a.logins, strings.ToLower(login))
}

// Logins returns a copy of the allowed logins.
func (a AllowList) Logins() []string {
	return slices.Clone(a.logins)
}
