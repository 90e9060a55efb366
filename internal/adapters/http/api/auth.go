package api

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/nutrimon/pkg/logger"
)

const (
	issuer     = "nutrimon"
	defaultTTL = 24 * time.Hour
	secretLen  = 32
)

type ctxKey string

const usernameKey ctxKey = "username"

// tokenIssuer signs and verifies HS256 bearer tokens whose subject is the username.
type tokenIssuer struct {
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
	ephemeral bool
}

// newTokenIssuer starts with a random secret that lives as long as the process.
func newTokenIssuer() *tokenIssuer {
	secret := make([]byte, secretLen)
	if _, err := rand.Read(secret); err != nil {
		panic("api: no entropy for token secret: " + err.Error())
	}
	return &tokenIssuer{secret: secret, ttl: defaultTTL, now: time.Now, ephemeral: true}
}

func (t *tokenIssuer) sign(username string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	return signed, exp, err
}

func (t *tokenIssuer) parse(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("no subject")
	}
	return claims.Subject, nil
}

// authMiddleware validates the bearer token and stores the username in the context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			writeError(w, NewKind("auth", ErrUnauthorized, "missing bearer token"))
			return
		}
		username, err := s.tokens.parse(strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			writeError(w, WrapKind("auth", ErrUnauthorized, err))
			return
		}
		ctx := context.WithValue(r.Context(), usernameKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// username returns the authenticated user, empty when absent.
func username(r *http.Request) string {
	v, _ := r.Context().Value(usernameKey).(string)
	return v
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin checks credentials against the users file and returns a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewKind("login", ErrBadRequest, "bad json"))
		return
	}
	name := strings.TrimSpace(req.Username)
	if name == "" || req.Password == "" {
		writeError(w, NewKind("login", ErrBadRequest, "username and password are required"))
		return
	}
	if !s.deps.Authenticate(r.Context(), name, req.Password) {
		s.logger.Info(r.Context(), "login rejected", logger.String("username", name))
		writeError(w, NewKind("login", ErrUnauthorized, "Invalid credentials"))
		return
	}
	token, exp, err := s.tokens.sign(name)
	if err != nil {
		s.logger.Error(r.Context(), "token signing failed", logger.Error(err))
		writeError(w, WrapKind("login", ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Username: name, ExpiresAt: exp})
}
