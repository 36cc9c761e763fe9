package controllers

import (
	"net/http"
	"time"

	"github.com/cmoscoso25/flujosdigitales-api/api/responses"
)

type healthResponse struct {
	OK bool  `json:"ok"`
	TS int64 `json:"ts"`
}

// Health reports liveness with the current server time in epoch millis.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, healthResponse{OK: true, TS: time.Now().UnixMilli()})
	}
}
