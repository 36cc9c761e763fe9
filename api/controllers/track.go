package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cmoscoso25/flujosdigitales-api/api/middleware"
	"github.com/cmoscoso25/flujosdigitales-api/api/responses"
	"github.com/cmoscoso25/flujosdigitales-api/api/validators"
	"github.com/cmoscoso25/flujosdigitales-api/internal/pendingtokens"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

type clickTracker interface {
	Track(ctx context.Context, fingerprint, token string) error
}

type trackClickRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}

type trackClickResponse struct {
	OK bool `json:"ok"`
}

// TrackClick remembers which payment token this visitor just clicked
// through to, so the return flow can recover it if the browser drops
// the token on the way back.
func TrackClick(tracker clickTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if tracker == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pending token tracker unavailable"))
			return
		}

		var req trackClickRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		fingerprint := pendingtokens.Fingerprint(middleware.ClientIP(r), r.UserAgent())
		if err := tracker.Track(ctx, fingerprint, strings.TrimSpace(req.Token)); err != nil {
			// The hint is best effort. The click already happened and the
			// payment page is loading; failing the request helps nobody.
			if logg != nil {
				logg.Warn(logg.WithToken(ctx, req.Token), "pending token not recorded")
			}
		}

		responses.WriteSuccess(w, trackClickResponse{OK: true})
	}
}
