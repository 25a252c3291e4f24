package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	apperrors "whatsrelay/internal/errors"
	"whatsrelay/internal/security"
	"whatsrelay/internal/httputil"
	"whatsrelay/internal/service"
)

const (
	APIKeyHeader = "X-Api-Key"
	APIKeyQuery  = "apiKey"
)

// APIKeyAuth accepts the key from the X-Api-Key header or the apiKey query
// parameter. Anything else gets 401.
func APIKeyAuth(expected string, logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(APIKeyHeader)
			if presented == "" {
				presented = r.URL.Query().Get(APIKeyQuery)
			}

			if !security.APIKeyMatches(presented, expected) {
				logger.WithFields(logrus.Fields{
					service.LogFieldRemoteIP: httputil.ClientIP(r),
					service.LogFieldURL:      r.URL.Path,
				}).Warn("Rejected request with invalid API key")
				httputil.WriteError(w, r, apperrors.NewAuthError("invalid or missing API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
