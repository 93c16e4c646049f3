package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/lexora-ai/lexora/internal/api"
	"github.com/lexora-ai/lexora/internal/domain"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// UserLookup resolves request identities against the user store.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// UserAuth resolves the X-User-ID header to a known user and puts the user ID
// on the request context. Requests without a valid user are rejected.
func UserAuth(lookup UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("X-User-ID")
			if header == "" {
				api.Error(w, http.StatusUnauthorized, "missing X-User-ID header")
				return
			}

			userID, err := strconv.ParseInt(header, 10, 64)
			if err != nil || userID <= 0 {
				api.Error(w, http.StatusUnauthorized, "invalid X-User-ID header")
				return
			}

			if _, err := lookup.GetByID(r.Context(), userID); err != nil {
				api.Error(w, http.StatusUnauthorized, "unknown user")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) int64 {
	userID, _ := ctx.Value(UserIDKey).(int64)
	return userID
}
