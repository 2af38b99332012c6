package middleware

import (
	"net/http"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/auth"
)

const (
	HeaderUserID    = "X-User-Id"
	HeaderUserRole  = "X-User-Role"
	HeaderSessionID = "X-Session-Id"
)

// Identity reads the caller's identity from the headers set by the
// authenticating edge and stores it in the request context. Requests without
// X-User-Id are anonymous; the role header is ignored for them.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id := auth.Identity{Role: auth.RoleCustomer}
		if uid := strings.TrimSpace(r.Header.Get(HeaderUserID)); uid != "" {
			id.UserID = uid
			id.Role = auth.ParseRole(r.Header.Get(HeaderUserRole))
		}
		ctx = auth.WithIdentity(ctx, id)

		if sid := strings.TrimSpace(r.Header.Get(HeaderSessionID)); sid != "" {
			ctx = WithSessionID(ctx, sid)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
