package middleware

import (
	"context"
	"slices"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/villagebank/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// DisplayNameKey is the context key for the authenticated user's name.
	DisplayNameKey contextKey = "display_name"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetDisplayName extracts the user's display name from the context.
func GetDisplayName(ctx context.Context) string {
	name, _ := ctx.Value(DisplayNameKey).(string)
	return name
}

// identityKey holds the *identity slot installed by LoggingInterceptor.
const identityKey contextKey = "identity"

// identity is filled in by auth interceptors running further down the chain,
// so interceptors wrapping them can still see who called.
type identity struct {
	userID string
}

// WithUser returns a context carrying the given identity.
func WithUser(ctx context.Context, userID, displayName string) context.Context {
	if slot, ok := ctx.Value(identityKey).(*identity); ok {
		slot.userID = userID
	}
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, DisplayNameKey, displayName)
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// RequireAuth returns an interceptor that validates bearer tokens and requires
// authentication. Procedures listed in optional get OptionalAuth behaviour
// instead.
func RequireAuth(jwtManager *auth.JWTManager, optional ...string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if slices.Contains(optional, req.Spec().Procedure) {
				return next(optionalIdentity(ctx, jwtManager, req.Header().Get("Authorization")), req)
			}

			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithUser(ctx, claims.UserID, claims.DisplayName), req)
		}
	}
}

// OptionalAuth returns an interceptor that validates bearer tokens if present
// but lets anonymous requests through. Invalid tokens are treated as absent.
func OptionalAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			return next(optionalIdentity(ctx, jwtManager, req.Header().Get("Authorization")), req)
		}
	}
}

func optionalIdentity(ctx context.Context, jwtManager *auth.JWTManager, header string) context.Context {
	tokenString, ok := bearerToken(header)
	if !ok {
		return ctx
	}
	claims, err := jwtManager.Validate(tokenString)
	if err != nil {
		return ctx
	}
	return WithUser(ctx, claims.UserID, claims.DisplayName)
}
