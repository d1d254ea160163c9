package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/a3tai/pdf-bookmaker/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const (
	userKey ctxKey = iota
	requestIDKey
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// authenticate attaches the signed-in user, if any, to the request context.
// A bearer token takes precedence over the session cookie.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := s.issuer.Parse(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		id, _ := claims.UserID()
		user, err := s.users.UserByID(r.Context(), id)
		if err != nil {
			s.logger.Debug("token for unknown user", zap.Int64("user_id", id), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// requireUser rejects anonymous requests: API clients get a 401 JSON body,
// browsers are sent to the login page
func (s *Server) requireUser(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) != nil {
			h(w, r)
			return
		}
		if wantsJSON(r) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		setFlash(w, flashError, "Please log in to access this page.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

func currentUser(r *http.Request) *store.User {
	u, _ := r.Context().Value(userKey).(*store.User)
	return u
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
