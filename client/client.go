package client

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-keygrant/api"
	"github.com/jrsteele09/go-keygrant/proof"
)

// Client talks to a keygrant server on behalf of one keypair.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessionID  string
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSession sets the session id sent on session-protected calls.
func WithSession(sessionID string) Option {
	return func(c *Client) {
		c.sessionID = sessionID
	}
}

// WithNowTime sets the clock used for request times.
func WithNowTime(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) requestTime() int64 {
	return c.now().UnixMilli()
}

// LoginURL returns the URL the user opens in a browser to bind k to their
// GitHub account. The embedded proof is only valid inside the server's
// replay window, so the URL should be used right away.
func (c *Client) LoginURL(k *Keypair) string {
	t := c.requestTime()
	q := url.Values{}
	q.Set("token_id", k.TokenID().String())
	q.Set("proof", k.Sign(proof.ScopeInit, t))
	q.Set("t", strconv.FormatInt(t, 10))
	return c.baseURL + api.RouteGHLogin + "?" + q.Encode()
}
