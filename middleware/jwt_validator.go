package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	// ErrTokenExpired is returned when the token is well formed but past exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers signature, format and claim validation failures.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenMissingClaim is returned when sub is absent.
	ErrTokenMissingClaim = errors.New("token missing required claim")
	// ErrValidationMethodUnavailable is returned when no configured method applies to the token.
	ErrValidationMethodUnavailable = errors.New("no validation method available for token")
	// ErrJWKSKeyNotFound is returned if the kid is not in the key set.
	ErrJWKSKeyNotFound = errors.New("jwks key not found")
)

// Validator turns an access token into the user it was issued for.
type Validator interface {
	Validate(tokenString string) (*types.User, error)
}

// KeyProvider resolves a signing key by kid.
type KeyProvider interface {
	GetKey(ctx context.Context, kid string) (jwk.Key, error)
}

// JWTValidator accepts HS256 tokens signed with the project secret and
// asymmetric tokens whose kid is published in the JWKS.
type JWTValidator struct {
	keys         KeyProvider
	staticSecret []byte
	timeout      time.Duration
}

var _ Validator = (*JWTValidator)(nil)

// NewJWTValidator builds a validator from auth settings. At least one of the
// JWT secret or the Supabase URL + anon key must be set.
func NewJWTValidator(cfg config.AuthConfig) (*JWTValidator, error) {
	var keys KeyProvider
	if cfg.SupabaseURL != "" && cfg.SupabaseAnonKey != "" {
		jwksURL := strings.TrimRight(cfg.SupabaseURL, "/") + "/auth/v1/.well-known/jwks.json"
		keys = NewJWKSCache(jwksURL, cfg.SupabaseAnonKey, 15*time.Minute)
	}
	return newJWTValidator([]byte(cfg.SupabaseJWTSecret), keys)
}

func newJWTValidator(secret []byte, keys KeyProvider) (*JWTValidator, error) {
	log := logger.GetLogger()
	if len(secret) == 0 && keys == nil {
		return nil, fmt.Errorf("JWT validator configuration error: neither a JWT secret nor a JWKS endpoint is configured")
	}
	if len(secret) == 0 {
		log.Warn("JWT Validator: SUPABASE_JWT_SECRET not set, HS256 validation disabled.")
		secret = nil
	}
	if keys == nil {
		log.Warn("JWT Validator: SUPABASE_URL or SUPABASE_ANON_KEY not set, JWKS validation disabled.")
	}
	return &JWTValidator{keys: keys, staticSecret: secret, timeout: 10 * time.Second}, nil
}

// Validate verifies signature and exp, then maps claims to a User.
func (v *JWTValidator) Validate(tokenString string) (*types.User, error) {
	msg, err := jws.Parse([]byte(tokenString))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return nil, fmt.Errorf("%w: no signature", ErrTokenInvalid)
	}
	headers := sigs[0].ProtectedHeaders()
	alg := headers.Algorithm()

	var token jwt.Token
	switch {
	case alg == jwa.HS256 && v.staticSecret != nil:
		token, err = jwt.Parse([]byte(tokenString), jwt.WithKey(jwa.HS256, v.staticSecret), jwt.WithValidate(true))
	case alg != jwa.HS256 && v.keys != nil:
		kid := headers.KeyID()
		if kid == "" {
			return nil, fmt.Errorf("%w: no kid in header", ErrTokenInvalid)
		}
		ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
		defer cancel()
		key, keyErr := v.keys.GetKey(ctx, kid)
		if keyErr != nil {
			return nil, keyErr
		}
		token, err = jwt.Parse([]byte(tokenString), jwt.WithKey(alg, key), jwt.WithValidate(true))
	default:
		return nil, ErrValidationMethodUnavailable
	}

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return userFromClaims(token)
}

func userFromClaims(token jwt.Token) (*types.User, error) {
	if token.Subject() == "" {
		return nil, fmt.Errorf("%w: sub", ErrTokenMissingClaim)
	}
	user := &types.User{UID: token.Subject()}
	if email, ok := token.Get("email"); ok {
		user.Email, _ = email.(string)
	}
	if raw, ok := token.Get("user_metadata"); ok {
		if meta, ok := raw.(map[string]interface{}); ok {
			user.DisplayName = firstString(meta, "full_name", "name", "username")
			user.PhotoURL = firstString(meta, "avatar_url", "picture")
		}
	}
	return user, nil
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
