package controllers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/cmoscoso25/flujosdigitales-api/api/responses"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/db/models"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

type downloadOrderFinder interface {
	GetByDownloadToken(ctx context.Context, token string) (*models.Order, error)
}

// DownloadProduct streams the product archive to a buyer holding a
// valid download token. The token is minted when the order is marked
// paid, so an unpaid or unknown token never reaches the file.
func DownloadProduct(orders downloadOrderFinder, filePath string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if orders == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		order, err := orders.GetByDownloadToken(ctx, chi.URLParam(r, "token"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if order.Status != enums.OrderStatusPaid {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "payment not confirmed"))
			return
		}

		if _, err := os.Stat(filePath); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "product file missing"))
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(filePath)))
		http.ServeFile(w, r, filePath)
	}
}
