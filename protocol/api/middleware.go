package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/guileen/finledger/auth"
	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/logger"
	"github.com/guileen/finledger/types"
)

type ctxKey int

const (
	claimsKey ctxKey = iota
	recordTypeKey
)

// ClaimsFrom returns the authenticated caller of a request that passed
// RequireAuth.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

func recordTypeFrom(ctx context.Context) types.RecordType {
	rt, _ := ctx.Value(recordTypeKey).(types.RecordType)
	return rt
}

// RequestLogger logs one line per request and makes chi's request id
// available to the context-aware logger.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = logger.WithContextValue(ctx, logger.RequestIDKey, id)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.InfoContext(ctx, "http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
		)
	})
}

// RequireAuth rejects requests without a valid bearer token.
func (h *RESTHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token, ok := bearerToken(r)
		if !ok {
			writeError(ctx, w, apperrors.NewUnauthorizedError("api.RequireAuth", "missing bearer token"))
			return
		}
		claims, err := h.auth.Authenticate(token)
		if err != nil {
			writeError(ctx, w, apperrors.NewUnauthorizedError("api.RequireAuth", "invalid or expired token"))
			return
		}
		ctx = context.WithValue(ctx, claimsKey, claims)
		ctx = logger.WithContextValue(ctx, logger.UserIDKey, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// resolveRecordType maps the {type} URL parameter to a record type.
func resolveRecordType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt, ok := types.ParseRecordType(chi.URLParam(r, "type"))
		if !ok {
			writeError(r.Context(), w, apperrors.NewNotFoundError("api.resolveRecordType", "unknown record type"))
			return
		}
		ctx := context.WithValue(r.Context(), recordTypeKey, rt)
		ctx = logger.WithContextValue(ctx, logger.RecordTypeKey, string(rt))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
