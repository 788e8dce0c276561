package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"vip-billing/internal/domain"
	"vip-billing/internal/infra/logging"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Admin  bool
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens issued by the application front end.
type Authenticator struct {
	secret    []byte
	adminRole string
	log       *zerolog.Logger
}

func NewAuthenticator(secret, adminRole string, logger *zerolog.Logger) *Authenticator {
	if adminRole == "" {
		adminRole = "admin"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Authenticator{secret: []byte(secret), adminRole: adminRole, log: logger}
}

// Mint issues a token for userID; used by the seeder and tests.
func (a *Authenticator) Mint(userID string, admin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if admin {
		claims.Role = a.adminRole
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Parse(tok string) (Principal, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return Principal{}, fmt.Errorf("invalid token: %w", domain.ErrAuthentication)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("token without subject: %w", domain.ErrAuthentication)
	}
	return Principal{UserID: claims.Subject, Admin: claims.Role == a.adminRole}, nil
}

// Middleware rejects requests without a valid "Authorization: Bearer <jwt>".
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := bearer(r)
		if err != nil {
			writeError(w, a.log, err)
			return
		}
		p, err := a.Parse(tok)
		if err != nil {
			writeError(w, a.log, err)
			return
		}
		ctx := logging.WithUserID(withPrincipal(r.Context(), p), p.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearer(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		if tok := strings.TrimSpace(hdr[7:]); tok != "" {
			return tok, nil
		}
	}
	return "", errors.Join(errors.New("missing bearer token"), domain.ErrAuthentication)
}
