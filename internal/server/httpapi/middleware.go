package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/google/uuid"
)

type ctxKey int

const (
	accountCtxKey ctxKey = iota
	requestIDCtxKey
)

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware assigns each request a UUID, echoes it in the
// response header and logs the request once served. Client-supplied ids
// are accepted so a caller can correlate across retries.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDCtxKey, id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		s.logger.Debug(ctx, "request served",
			"request_id", id, "method", r.Method, "path", r.URL.Path,
			"duration", time.Since(start).String())
	})
}

// RequestIDFromContext returns the request id set by the middleware, or
// "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

// AccountFromContext returns the authenticated account stored by the
// session middleware, or nil outside the protected route group.
func AccountFromContext(ctx context.Context) *models.Account {
	account, _ := ctx.Value(accountCtxKey).(*models.Account)
	return account
}

// sessionMiddleware authenticates the bearer token and stores the
// account on the request context. All token and account problems come
// back as one generic 401.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}

		account, err := s.accounts.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), accountCtxKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
