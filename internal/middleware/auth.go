package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"medwise-api/internal/model"
)

type ctxKey string

const identityKey ctxKey = "identity"

const AccessCookie = "access_token"

// Verifier turns an access token into the caller identity.
type Verifier interface {
	Verify(token string) (model.Identity, error)
}

func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller resolved by Identity or Auth.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.UserID != ""
}

func bearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Identity resolves the caller from a bearer token or the access cookie.
// With trustHeaders the legacy role and userId headers are accepted when no
// token is sent. Requests without a valid identity pass through untouched.
func Identity(v Verifier, trustHeaders bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r.Header.Get("Authorization"))
			if raw == "" {
				if c, err := r.Cookie(AccessCookie); err == nil {
					raw = c.Value
				}
			}

			switch {
			case raw != "":
				if id, err := v.Verify(raw); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			case trustHeaders:
				id := model.Identity{UserID: r.Header.Get("userId"), Role: model.Role(r.Header.Get("role"))}
				if id.UserID != "" && id.Role != "" {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity rejects requests Identity could not resolve.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Auth is the gRPC counterpart of Identity plus RequireIdentity. Methods
// listed in public skip it.
func Auth(v Verifier, public ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]bool, len(public))
	for _, m := range public {
		open[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if open[info.FullMethod] {
			return next(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		// token from authorization: Bearer <jwt>
		raw := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			raw = bearer(vals[0])
		}
		if raw == "" {
			return nil, status.Error(codes.Unauthenticated, "no token")
		}

		id, err := v.Verify(raw)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "bad token")
		}
		return next(WithIdentity(ctx, id), req)
	}
}
