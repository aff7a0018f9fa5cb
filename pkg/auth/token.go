package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/returns-engine/pkg/config"
)

var (
	signingMethod = jwt.SigningMethodHS256

	ErrSecretRequired = errors.New("jwt secret is required")
	ErrTokenExpired   = errors.New("token expired")
)

// MintAccessToken issues a signed JWT for the payload using the configured TTL.
// Production tokens come from the identity service; returnsctl and tests use
// this to produce compatible ones.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkMintConfig(cfg); err != nil {
		return "", err
	}
	if payload.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	registered := jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   payload.UserID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
		ID:        jti,
	}
	if aud := strings.TrimSpace(cfg.Audience); aud != "" {
		registered.Audience = jwt.ClaimStrings{aud}
	}

	signed, err := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID:           payload.UserID,
		Role:             payload.Role,
		Email:            strings.TrimSpace(payload.Email),
		RegisteredClaims: registered,
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func checkMintConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return ErrSecretRequired
	case cfg.Issuer == "":
		return errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return errors.New("jwt expiration minutes must be positive")
	}
	return nil
}

// Verifier checks access tokens against one key, issuer and optional audience.
// It is safe for concurrent use.
type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrSecretRequired
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if aud := strings.TrimSpace(cfg.Audience); aud != "" {
		opts = append(opts, jwt.WithAudience(aud))
	}
	return &Verifier{key: []byte(cfg.Secret), parser: jwt.NewParser(opts...)}, nil
}

// Verify returns the claims of a valid token. Expiry is reported as
// ErrTokenExpired so callers can tell it apart from forgery.
func (v *Verifier) Verify(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, err
	case claims.UserID == uuid.Nil:
		return nil, errors.New("token missing user_id")
	case !claims.Role.IsValid():
		return nil, fmt.Errorf("token carries unknown role %q", claims.Role)
	}
	return claims, nil
}

// ParseAccessToken is a one-shot Verify for callers without a long-lived Verifier.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	v, err := NewVerifier(cfg)
	if err != nil {
		return nil, err
	}
	return v.Verify(tokenString)
}
