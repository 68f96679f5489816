package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
)

// actorHeader names the acting profile when no JWT secret is configured.
const actorHeader = "X-Actor-ID"

// AuthConfig enables bearer token verification when Secret is set.
// Issuer and Audience are checked only when non-empty.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type actorKey struct{}

func withActor(ctx context.Context, a ledger.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// actorFrom returns the authenticated actor, or the zero Actor.
func actorFrom(ctx context.Context) ledger.Actor {
	a, _ := ctx.Value(actorKey{}).(ledger.Actor)
	return a
}

// authenticate resolves the caller to a profile and stores the actor in the
// request context. Unknown identities are rejected with 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identify(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		actor, err := s.users.Resolve(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

func (s *Server) identify(r *http.Request) (uuid.UUID, error) {
	if s.auth.Secret == "" {
		raw := strings.TrimSpace(r.Header.Get(actorHeader))
		if raw == "" {
			return uuid.Nil, errs.Wrap(errs.ErrUnauthenticated, "missing "+actorHeader)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, errs.Wrap(errs.ErrUnauthenticated, "invalid "+actorHeader)
		}
		return id, nil
	}
	tok, ok := parseBearerToken(r)
	if !ok {
		return uuid.Nil, errs.Wrap(errs.ErrUnauthenticated, "missing bearer token")
	}
	return verifyToken(s.auth, tok)
}

func parseBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}

// verifyToken checks an HS256 token and returns its subject as a profile id.
func verifyToken(cfg AuthConfig, tok string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		reason := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "token expired"
		}
		return uuid.Nil, errs.Wrap(errs.ErrUnauthenticated, reason)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errs.Wrap(errs.ErrUnauthenticated, "subject is not a profile id")
	}
	return id, nil
}

// IssueToken signs an HS256 token for userID. Used by the dev seed and tests;
// production tokens come from the identity provider.
func IssueToken(cfg AuthConfig, userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}
