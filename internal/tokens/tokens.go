package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/internal/models"
	"github.com/courrier-mf/courrier/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer marks access tokens signed by this service.
const Issuer = "courrier"

// DefaultAccessTTL is used when no access token lifetime is configured.
const DefaultAccessTTL = 15 * time.Minute

var ErrNoSecret = errors.New("JWT secret is not configured")

// GenerateAccessToken creates a signed HS256 access token for the user
func GenerateAccessToken(cfg *config.Config, u *models.User, ttl time.Duration) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      Issuer,
		"sub":      u.ID,
		"uid":      u.ID,
		"jti":      uuid.New().String(),
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// RemainingTTL returns how long a verified token stays valid, for blacklisting
// on logout. Unparseable or expired tokens yield zero.
func RemainingTTL(claims map[string]interface{}, now time.Time) time.Duration {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0
	}
	d := time.Unix(int64(exp), 0).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

type claimsToken struct {
	claims jwt.MapClaims
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Verifier checks access tokens issued by GenerateAccessToken.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

func (v *Verifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	return &claimsToken{claims: claims}, nil
}
