package http

import (
	"context"
	"net/http"

	"github.com/MatejStrlek/uni-course-management/internal/auth"
	"github.com/MatejStrlek/uni-course-management/internal/model"
)

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole admits callers whose role subsumes need. Admin passes every
// gate.
func (s *Server) requireRole(need model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			if !auth.RoleAllows(claims.Role, need) {
				writeError(w, http.StatusForbidden, "insufficient_role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// currentUser resolves the authenticated caller to their user record.
func (s *Server) currentUser(r *http.Request) (model.User, error) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		return model.User{}, auth.ErrInvalidToken
	}
	return s.store.UserByUsername(r.Context(), claims.Username)
}
