package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"Takvimwebserver/internal/auth"
	"Takvimwebserver/internal/domain"
)

type authCtxKey int

const authUserKey authCtxKey = iota

// requireAuth is the session gate for API routes. The caller must hold
// both signed proof cookies AND the referenced user must still exist;
// anything less fails closed with a 401.
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.SessionUserID(r, a.cookieCodec)
		if !ok {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		u, err := a.loginSvc.GetUserForSession(r.Context(), userID)
		if err != nil {
			WriteDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), authUserKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func CurrentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(authUserKey).(domain.User)
	return u, ok
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
