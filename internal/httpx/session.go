package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

type contextKey string

const (
	sessionCookie = "bookshop_session"
	userHeader    = "X-User-ID"

	contextKeySession contextKey = "session_id"
	contextKeyUser    contextKey = "user_id"
)

// WithSession ensures every request carries a session id, minting a cookie
// on first contact, and lifts the authenticated user id (provided upstream
// by the auth layer via X-User-ID) into the context.
func WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid string
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			sid = c.Value
		} else {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), contextKeySession, sid)
		if raw := r.Header.Get(userHeader); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				ctx = context.WithValue(ctx, contextKeyUser, id)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	sid, _ := r.Context().Value(contextKeySession).(string)
	return sid
}

func userID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(contextKeyUser).(int64)
	return id, ok
}
