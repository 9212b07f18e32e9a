package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-keygrant/api"
	"github.com/jrsteele09/go-keygrant/auth"
	"github.com/rs/zerolog/log"
)

const (
	maxSafeInteger  = 1<<53 - 1
	maxGrantBodyLen = 4 << 10
)

// GHLoginHandler serves both halves of the GitHub web flow. Without a code it
// redirects to GitHub with a callback that carries token_id, proof and t
// through; with a code it binds the token.
func (s *Server) GHLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code := q.Get("code")
		tokenID := q.Get("token_id")
		proofSig := q.Get("proof")
		tStr := q.Get("t")

		if tStr == "" {
			writeGenericError(w, r, "missing t", http.StatusBadRequest)
			return
		}
		t, err := strconv.ParseInt(tStr, 10, 64)
		if err != nil || t > maxSafeInteger || t < -maxSafeInteger {
			writeGenericError(w, r, "bad t", http.StatusBadRequest)
			return
		}
		if tokenID == "" {
			writeGenericError(w, r, "missing token_id", http.StatusBadRequest)
			return
		}
		if proofSig == "" {
			writeGenericError(w, r, "missing proof", http.StatusBadRequest)
			return
		}

		if code == "" {
			s.redirectToGitHub(w, r, tokenID, proofSig, tStr)
			return
		}

		if err := s.state.Verify(q.Get("state"), tokenID, tStr); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Str("token_id", tokenID).Msg("oauth state rejected")
			writeGenericError(w, r, "bad state", http.StatusBadRequest)
			return
		}

		_, err = s.auth.InitToken(r.Context(), auth.InitRequest{
			TokenID:     tokenID,
			Proof:       proofSig,
			RequestTime: float64(t),
			Code:        code,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, r)
	}
}

func (s *Server) redirectToGitHub(w http.ResponseWriter, r *http.Request, tokenID, proofSig, tStr string) {
	callback := url.Values{}
	callback.Set("token_id", tokenID)
	callback.Set("proof", proofSig)
	callback.Set("t", tStr)
	redirectURL := s.config.GetBaseURL() + api.RouteGHLogin + "?" + callback.Encode()

	state, err := s.state.Sign(tokenID, tStr)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.Redirect(w, r, s.auth.Provider().AuthorizationURL(redirectURL, state), http.StatusFound)
}

// sessionGrantBody mirrors the /mksession request. Pointers tell a missing
// field apart from a zero value.
type sessionGrantBody struct {
	RequestTime *float64 `json:"request_time"`
	TokenID     *string  `json:"token_id"`
	Proof       *string  `json:"proof_of_grant_request"`
}

func decodeSessionGrant(r io.Reader) (*sessionGrantBody, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var body sessionGrantBody
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid body: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid body: trailing data")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid body: trailing data")
	}

	switch {
	case body.RequestTime == nil:
		return nil, errors.New("missing request_time")
	case body.TokenID == nil:
		return nil, errors.New("missing token_id")
	case body.Proof == nil:
		return nil, errors.New("missing proof_of_grant_request")
	}
	return &body, nil
}

// MkSessionHandler exchanges a grant proof for a session.
func (s *Server) MkSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeSessionGrant(http.MaxBytesReader(w, r.Body, maxGrantBodyLen))
		if err != nil {
			writeGenericError(w, r, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := s.auth.GrantSession(r.Context(), auth.GrantRequest{
			RequestTime: *body.RequestTime,
			TokenID:     *body.TokenID,
			Proof:       *body.Proof,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, r, api.SessionGrantResponse{
			SessionID: res.SessionID,
			Expiry:    res.Expiry.UnixMilli(),
		}, http.StatusOK)
	}
}

// RevokeTokenByIDHandler revokes the token behind the calling session.
func (s *Server) RevokeTokenByIDHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			writeError(w, r, errors.New("session missing from context"))
			return
		}
		if err := s.auth.RevokeToken(r.Context(), session.TokenID); err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, r)
	}
}

// RevokeTokenByGHIDHandler revokes every token bound to the caller's GitHub account.
func (s *Server) RevokeTokenByGHIDHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			writeError(w, r, errors.New("session missing from context"))
			return
		}
		if _, err := s.auth.RevokeIdentity(r.Context(), session.GitHubID); err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, r)
	}
}

func (s *Server) WhoAmIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			writeError(w, r, errors.New("session missing from context"))
			return
		}
		writeJSON(w, r, api.WhoAmIResponse{
			GitHubID:          session.GitHubID,
			GitHubLogin:       session.GitHubLogin,
			GitHubDisplayName: session.GitHubDisplayName,
			TokenID:           session.TokenID.String(),
			Expiry:            session.Expiry.UnixMilli(),
		}, http.StatusOK)
	}
}

func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if s.healthCheck != nil {
			if err := s.healthCheck(r.Context()); err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("UNAVAILABLE"))
				return
			}
		}
		_, _ = w.Write([]byte("OK"))
	}
}
