package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-keygrant/api"
	"github.com/jrsteele09/go-keygrant/auth"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func writeOK(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, api.OKResponse{OK: true}, http.StatusOK)
}

func writeGenericError(w http.ResponseWriter, r *http.Request, msg string, status int) {
	writeJSON(w, r, api.ErrorResponse{Type: api.ErrTypeGeneric, Message: msg}, status)
}

// writeError renders a service result. Rejections keep their own status and
// message; anything else is logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rej *auth.Rejection
	if !errors.As(err, &rej) {
		log.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeGenericError(w, r, "internal error", http.StatusInternalServerError)
		return
	}

	switch rej.Kind {
	case auth.KindInvalidToken:
		writeJSON(w, r, api.ErrorResponse{Type: api.ErrTypeInvalidToken}, rej.Kind.StatusCode())
	case auth.KindSession:
		writeJSON(w, r, api.ErrorResponse{Type: api.ErrTypeSession, Message: rej.Message}, rej.Kind.StatusCode())
	default:
		writeGenericError(w, r, rej.Message, rej.Kind.StatusCode())
	}
}
