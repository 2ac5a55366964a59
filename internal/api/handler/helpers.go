package handler

import (
	"net/http"

	"github.com/rs/zerolog"
)

func zerologFromRequest(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}
