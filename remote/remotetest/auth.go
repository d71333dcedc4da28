package remotetest

import (
	"errors"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// Auth validates session bearer tokens. Tests normally use the HS256 shared
// secret; a JWKS can be supplied instead to exercise the RS256 path the
// production gateway uses.
type Auth struct {
	JWKS   *keyfunc.JWKS
	Secret []byte

	parser *jwt.Parser
}

// NewAuth creates an Auth for the given HS256 secret.
func NewAuth(secret []byte) *Auth {
	return &Auth{
		Secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// NewJWKSAuth creates an Auth validating RS256 tokens against the JWKS.
func NewJWKSAuth(jwks *keyfunc.JWKS) *Auth {
	return &Auth{
		JWKS:   jwks,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// UserIDFromAuthHeader extracts the user identifier from the Authorization
// header.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", errMissingAuthorization
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errBadAuthorization
	}

	var token *jwt.Token
	var err error
	if a.JWKS != nil {
		token, err = a.parser.Parse(parts[1], a.JWKS.Keyfunc)
	} else {
		token, err = a.parser.Parse(parts[1], func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.Secret, nil
		})
	}
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

// SignToken mints an HS256 session token for the given user, valid for an
// hour. Only meaningful for secret-based Auth.
func (a *Auth) SignToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}
