package middleware

import (
	"net/http"

	"github.com/cmoscoso25/flujosdigitales-api/api/responses"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/security"
)

const clientSecretHeader = "X-Client-Secret"

// ClientSecret gates an endpoint behind a pre-shared secret header.
// An empty configured secret leaves the endpoint open.
func ClientSecret(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(clientSecretHeader)
			if !security.SecretsMatch(provided, secret) {
				ctx := r.Context()
				if logg != nil {
					logg.Warn(ctx, "client secret rejected")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "client secret mismatch"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
