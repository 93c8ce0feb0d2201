// Package auth provides identity tokens, password hashing and the HTTP middleware that
// resolves the caller's identity from the x-auth-token header.
package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactkeeper/internal/logger"
	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

// TokenHeader is the request header (and gRPC metadata key) carrying the identity token.
const TokenHeader = "x-auth-token"

type tokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key of the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// WithUserID returns a copy of ctx carrying the authenticated user's ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFromContext returns the ID attached by the auth gate, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// Auth is the request gate for protected routes.
type Auth struct {
	tokens tokenVerifier
}

func New(tokens tokenVerifier) *Auth {
	return &Auth{tokens: tokens}
}

// Identify resolves a raw header value to a user ID. It is shared by the HTTP and gRPC gates.
func (a *Auth) Identify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", models.ErrNoToken
	}

	return a.tokens.Verify(tokenString)
}

// AuthenticateUser rejects requests without a valid token with 401 and otherwise
// attaches the user ID to the request context.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := a.Identify(request.Header.Get(TokenHeader))
		if err != nil {
			logger.Log.Debugw("request rejected by auth gate", "uri", request.RequestURI, zap.Error(err))
			writeUnauthorized(response, err)
			return
		}

		h.ServeHTTP(response, request.WithContext(WithUserID(request.Context(), userID)))
	}

	return http.HandlerFunc(middleware)
}

func writeUnauthorized(response http.ResponseWriter, err error) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusUnauthorized)
	if encodeErr := json.NewEncoder(response).Encode(models.MessageResponse{Msg: err.Error()}); encodeErr != nil {
		logger.Log.Debugw("unable to write auth error", zap.Error(encodeErr))
	}
}
