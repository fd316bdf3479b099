package httpapi

import (
	"context"
	"errors"
	"net/http"

	"arfa/internal/auth"
	"arfa/internal/store"
)

// authMiddleware accepts a bearer JWT, checks the matching session row still
// exists (logout deletes it) and loads the employee so role checks downstream
// are cheap.
func (s server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.jwt.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if _, err := s.st.GetSessionByTokenHash(r.Context(), auth.HashToken(token)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "session expired")
				return
			}
			logError(r.Context(), "session lookup failed", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		emp, err := s.st.GetEmployeeByID(r.Context(), claims.OrgID, claims.EmployeeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			logError(r.Context(), "employee lookup failed", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if emp.Status != "active" {
			writeError(w, http.StatusForbidden, "account disabled")
			return
		}

		ctx := context.WithValue(r.Context(), ctxEmployeeID, emp.ID)
		ctx = context.WithValue(ctx, ctxOrgID, emp.OrgID)
		ctx = context.WithValue(ctx, ctxRoleName, emp.RoleName)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a subtree to the named roles.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[roleFromCtx(r)]; !ok {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
