package oidc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/pkg/logger"
	"github.com/courrier-mf/courrier/pkg/middleware"
)

var ErrNotConfigured = errors.New("keycloak is not configured")

// Verifier checks Keycloak-issued ID tokens for the configured client.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the provider at issuer and verifies tokens for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// NewKeycloakVerifier builds a Verifier for the configured realm. Discovery is
// retried since Keycloak often starts after this service.
func NewKeycloakVerifier(ctx context.Context, cfg config.KeycloakConfig) (*Verifier, error) {
	if cfg.URL == "" {
		return nil, ErrNotConfigured
	}
	var v *Verifier
	err := retry.Do(
		func() error {
			var err error
			v, err = NewVerifier(ctx, cfg.Issuer(), cfg.ClientID)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnf("keycloak discovery attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Verify verifies the raw ID token and returns it as a middleware.Token
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
