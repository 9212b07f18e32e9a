package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-keygrant/api"
	"github.com/jrsteele09/go-keygrant/proof"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrInvalidToken   = errors.New("token is unknown or revoked")
	ErrNoSession      = errors.New("no session id configured")
)

type APIError struct {
	StatusCode    int
	CorrelationID string
	Message       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("api error %d: '%s' (correlation: %s)", e.StatusCode, e.Message, e.CorrelationID)
}

// Session is a granted session.
type Session struct {
	ID     string
	Expiry time.Time
}

// Identity is what the server knows about the current session.
type Identity struct {
	GitHubID          int64  `json:"github_id"`
	GitHubLogin       string `json:"github_login"`
	GitHubDisplayName string `json:"github_display_name"`
	TokenID           string `json:"token_id"`
	Expiry            int64  `json:"expiry"`
}

// GrantSession proves possession of k and returns a new session. The client
// keeps the session id for later calls.
func (c *Client) GrantSession(ctx context.Context, k *Keypair) (*Session, error) {
	t := c.requestTime()
	payload := map[string]any{
		"request_time":           t,
		"token_id":               k.TokenID().String(),
		"proof_of_grant_request": k.Sign(proof.ScopeGrantSession, t),
	}

	var result api.SessionGrantResponse
	if err := c.post(ctx, api.RouteMkSession, payload, &result, false); err != nil {
		return nil, err
	}

	c.sessionID = result.SessionID
	return &Session{ID: result.SessionID, Expiry: time.UnixMilli(result.Expiry)}, nil
}

func (c *Client) WhoAmI(ctx context.Context) (*Identity, error) {
	var who Identity
	if err := c.send(ctx, http.MethodGet, api.RouteWhoAmI, nil, &who, true); err != nil {
		return nil, err
	}
	return &who, nil
}

// RevokeSelf revokes the token behind the current session.
func (c *Client) RevokeSelf(ctx context.Context) error {
	return c.post(ctx, api.RouteRevokeTokenByID, nil, nil, true)
}

// RevokeAll revokes every token bound to the current session's GitHub account.
func (c *Client) RevokeAll(ctx context.Context) error {
	return c.post(ctx, api.RouteRevokeTokenByGHID, nil, nil, true)
}

func (c *Client) post(ctx context.Context, route string, payload, result any, withSession bool) error {
	return c.send(ctx, http.MethodPost, route, payload, result, withSession)
}

func (c *Client) send(ctx context.Context, method, route string, payload, result any, withSession bool) error {
	if withSession && c.sessionID == "" {
		return ErrNoSession
	}

	var body io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling payload: %w", err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withSession {
		req.Header.Set(api.HeaderSessionID, c.sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func parseErrorResponse(resp *http.Response) error {
	correlation := resp.Header.Get(api.HeaderCorrelationID)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d and unreadable body: %w", resp.StatusCode, err)
	}

	var errResp api.ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Type != "" {
		switch errResp.Type {
		case api.ErrTypeSession:
			return ErrInvalidSession
		case api.ErrTypeInvalidToken:
			return ErrInvalidToken
		}
		return APIError{StatusCode: resp.StatusCode, CorrelationID: correlation, Message: errResp.Message}
	}
	return fmt.Errorf("api error: *unparsed '%s' (status %d)", string(body), resp.StatusCode)
}
