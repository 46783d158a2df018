// Package oidc verifies bearer tokens issued by the Keycloak realm.
package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/convenios/prioridades/pkg/middleware"
)

var ErrAudience = errors.New("token was not issued for this client")

// Verifier checks signature, issuer and expiry through the provider's JWKS,
// then requires the token to target clientID.
type Verifier struct {
	clientID string
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers issuer and returns a verifier for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	// Keycloak access tokens carry aud "account" and the client in azp, so
	// the audience is checked by forClient instead.
	verifier := provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	return &Verifier{clientID: clientID, verifier: verifier}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	var c struct {
		AuthorizedParty string `json:"azp"`
	}
	if err := idToken.Claims(&c); err != nil {
		return nil, err
	}
	if !forClient(v.clientID, idToken.Audience, c.AuthorizedParty) {
		return nil, ErrAudience
	}
	return idToken, nil
}

func forClient(clientID string, aud []string, azp string) bool {
	if azp == clientID {
		return true
	}
	for _, a := range aud {
		if a == clientID {
			return true
		}
	}
	return false
}
