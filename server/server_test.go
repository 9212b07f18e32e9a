package server_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jrsteele09/go-keygrant/api"
	"github.com/jrsteele09/go-keygrant/auth"
	"github.com/jrsteele09/go-keygrant/identity"
	"github.com/jrsteele09/go-keygrant/identity/mocks"
	"github.com/jrsteele09/go-keygrant/internal/config"
	"github.com/jrsteele09/go-keygrant/proof"
	"github.com/jrsteele09/go-keygrant/server"
	fakesessionrepo "github.com/jrsteele09/go-keygrant/sessions/repofakes"
	tokenfakerepo "github.com/jrsteele09/go-keygrant/token/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL    = "https://keys.example.com"
	testCode       = "gh-code"
	testCredential = "gho_credential"
)

var (
	testNow      = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testIdentity = identity.Identity{ID: 1001, Login: "octocat", DisplayName: "The Octocat"}
)

type testFixture struct {
	tokens   *tokenfakerepo.FakeTokenRepo
	provider *mocks.MockProvider
	server   *server.Server
	now      time.Time
}

type testKey struct {
	priv ed25519.PrivateKey
	id   proof.TokenID
}

func newTestKey(t *testing.T) testKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	id, err := proof.TokenIDFromPublicKey(pub)
	require.NoError(t, err)
	return testKey{priv: priv, id: id}
}

func (k testKey) sign(scope string, t int64) string {
	return proof.Sign(k.priv, scope, strconv.FormatInt(t, 10))
}

func setupTestFixture(t *testing.T, env map[string]string, opts ...server.Option) *testFixture {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENV", "TEST")
	t.Setenv("GH_CLIENT_ID", "cid")
	t.Setenv("GH_CLIENT_SECRET", "secret")
	t.Setenv("BASE_URL", testBaseURL)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")
	t.Setenv("STATE_SECRET", "")
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load("")
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	f := &testFixture{
		tokens:   tokenfakerepo.NewFakeTokensRepo(),
		provider: mocks.NewMockProvider(ctrl),
		now:      testNow,
	}
	sessions := fakesessionrepo.NewFakeSessionRepo(f.tokens, time.Hour)

	svc, err := auth.NewService(auth.Repos{Tokens: f.tokens, Sessions: sessions}, f.provider,
		auth.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)

	f.server, err = server.New(cfg, svc, opts...)
	require.NoError(t, err)
	return f
}

func (f *testFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func loginQuery(k testKey, t int64, extra url.Values) string {
	q := url.Values{}
	q.Set("token_id", k.id.String())
	q.Set("proof", k.sign(proof.ScopeInit, t))
	q.Set("t", strconv.FormatInt(t, 10))
	for key, vals := range extra {
		for _, v := range vals {
			q.Add(key, v)
		}
	}
	return api.RouteGHLogin + "?" + q.Encode()
}

// login runs the callback half of the web flow for k.
func (f *testFixture) login(t *testing.T, k testKey, who identity.Identity) {
	t.Helper()
	f.provider.EXPECT().Exchange(gomock.Any(), testCode).Return(testCredential, nil)
	f.provider.EXPECT().Resolve(gomock.Any(), testCredential).Return(who, nil)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, loginQuery(k, f.now.UnixMilli(), url.Values{"code": {testCode}}), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func grantBody(k testKey, t int64) string {
	body, _ := json.Marshal(map[string]any{
		"request_time":           t,
		"token_id":               k.id.String(),
		"proof_of_grant_request": k.sign(proof.ScopeGrantSession, t),
	})
	return string(body)
}

// mkSession grants a session for k and returns its id.
func (f *testFixture) mkSession(t *testing.T, k testKey, who identity.Identity) string {
	t.Helper()
	f.provider.EXPECT().Resolve(gomock.Any(), testCredential).Return(who, nil)

	rec := f.do(t, httptest.NewRequest(http.MethodPost, api.RouteMkSession, strings.NewReader(grantBody(k, f.now.UnixMilli()))))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SessionID string `json:"session_id"`
		Expiry    int64  `json:"expiry"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.SessionID, 32)
	require.Equal(t, f.now.Add(time.Hour).UnixMilli(), resp.Expiry)
	return resp.SessionID
}

func withSession(req *http.Request, sessionID string) *http.Request {
	req.Header.Set(api.HeaderSessionID, sessionID)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestGHLoginValidation(t *testing.T) {
	f := setupTestFixture(t, nil)
	k := newTestKey(t)

	tests := []struct {
		name    string
		query   string
		message string
	}{
		{name: "missing t", query: "token_id=" + k.id.String() + "&proof=x", message: "missing t"},
		{name: "non numeric t", query: "t=12abc&token_id=" + k.id.String() + "&proof=x", message: "bad t"},
		{name: "t beyond safe integer", query: "t=9007199254740992&token_id=" + k.id.String() + "&proof=x", message: "bad t"},
		{name: "missing token id", query: "t=1&proof=x", message: "missing token_id"},
		{name: "missing proof", query: "t=1&token_id=" + k.id.String(), message: "missing proof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, httptest.NewRequest(http.MethodGet, api.RouteGHLogin+"?"+tt.query, nil))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			require.Equal(t, api.ErrTypeGeneric, body.Type)
			require.Equal(t, tt.message, body.Message)
		})
	}
}

func TestGHLoginRedirect(t *testing.T) {
	f := setupTestFixture(t, nil)
	k := newTestKey(t)
	ts := f.now.UnixMilli()

	f.provider.EXPECT().
		AuthorizationURL(gomock.Any(), "").
		DoAndReturn(func(redirectURL, state string) string {
			u, err := url.Parse(redirectURL)
			require.NoError(t, err)
			require.Equal(t, testBaseURL+api.RouteGHLogin, u.Scheme+"://"+u.Host+u.Path)
			require.Equal(t, k.id.String(), u.Query().Get("token_id"))
			require.Equal(t, strconv.FormatInt(ts, 10), u.Query().Get("t"))
			require.NotEmpty(t, u.Query().Get("proof"))
			return "https://github.com/login/oauth/authorize?client_id=cid"
		})

	rec := f.do(t, httptest.NewRequest(http.MethodGet, loginQuery(k, ts, nil), nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://github.com/login/oauth/authorize?client_id=cid", rec.Header().Get("Location"))
}

func TestFullFlow(t *testing.T) {
	f := setupTestFixture(t, nil)
	k := newTestKey(t)

	f.login(t, k, testIdentity)
	sessionID := f.mkSession(t, k, testIdentity)

	rec := f.do(t, withSession(httptest.NewRequest(http.MethodGet, api.RouteWhoAmI, nil), sessionID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{
		"github_id": 1001,
		"github_login": "octocat",
		"github_display_name": "The Octocat",
		"token_id": "`+k.id.String()+`",
		"expiry": `+strconv.FormatInt(f.now.Add(time.Hour).UnixMilli(), 10)+`
	}`, rec.Body.String())

	rec = f.do(t, withSession(httptest.NewRequest(http.MethodPost, api.RouteRevokeTokenByID, nil), sessionID))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = f.do(t, withSession(httptest.NewRequest(http.MethodGet, api.RouteWhoAmI, nil), sessionID))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, api.ErrTypeSession, body.Type)
	require.Equal(t, "bad_session", body.Message)

	// the revoked token can no longer grant sessions
	rec = f.do(t, httptest.NewRequest(http.MethodPost, api.RouteMkSession, strings.NewReader(grantBody(k, f.now.UnixMilli()))))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, api.ErrTypeInvalidToken, decodeError(t, rec).Type)
}

func TestRevokeByGitHubID(t *testing.T) {
	f := setupTestFixture(t, nil)
	laptop, desktop := newTestKey(t), newTestKey(t)

	f.login(t, laptop, testIdentity)
	f.login(t, desktop, testIdentity)
	laptopSession := f.mkSession(t, laptop, testIdentity)
	desktopSession := f.mkSession(t, desktop, testIdentity)

	rec := f.do(t, withSession(httptest.NewRequest(http.MethodPost, api.RouteRevokeTokenByGHID, nil), laptopSession))
	require.Equal(t, http.StatusOK, rec.Code)

	for _, id := range []string{laptopSession, desktopSession} {
		rec = f.do(t, withSession(httptest.NewRequest(http.MethodGet, api.RouteWhoAmI, nil), id))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestSessionHeaders(t *testing.T) {
	f := setupTestFixture(t, nil)
	k := newTestKey(t)
	f.login(t, k, testIdentity)
	sessionID := f.mkSession(t, k, testIdentity)

	t.Run("legacy header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, api.RouteWhoAmI, nil)
		req.Header.Set(api.HeaderLegacySessionID, sessionID)
		rec := f.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, api.RouteWhoAmI, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, api.ErrTypeSession, decodeError(t, rec).Type)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := f.do(t, withSession(httptest.NewRequest(http.MethodPost, api.RouteRevokeTokenByID, nil), strings.Repeat("ab", 16)))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired session", func(t *testing.T) {
		f.now = f.now.Add(2 * time.Hour)
		rec := f.do(t, withSession(httptest.NewRequest(http.MethodGet, api.RouteWhoAmI, nil), sessionID))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestMkSessionBody(t *testing.T) {
	f := setupTestFixture(t, nil)
	k := newTestKey(t)
	f.login(t, k, testIdentity)
	valid := grantBody(k, f.now.UnixMilli())

	tests := []struct {
		name string
		body string
	}{
		{name: "empty", body: ""},
		{name: "not json", body: "token_id=abc"},
		{name: "unknown field", body: strings.TrimSuffix(valid, "}") + `,"extra":1}`},
		{name: "trailing data", body: valid + `{}`},
		{name: "wrong type", body: `{"request_time":"now","token_id":"` + k.id.String() + `","proof_of_grant_request":"x"}`},
		{name: "missing proof", body: `{"request_time":1,"token_id":"` + k.id.String() + `"}`},
		{name: "malformed token id", body: `{"request_time":1,"token_id":"zz","proof_of_grant_request":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, httptest.NewRequest(http.MethodPost, api.RouteMkSession, strings.NewReader(tt.body)))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.Equal(t, api.ErrTypeGeneric, decodeError(t, rec).Type)
		})
	}
}

func TestMkSessionRejections(t *testing.T) {
	f := setupTestFixture(t, nil)
	k := newTestKey(t)
	f.login(t, k, testIdentity)
	ts := f.now.UnixMilli()

	t.Run("stale request time", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodPost, api.RouteMkSession, strings.NewReader(grantBody(k, ts-300001))))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeError(t, rec)
		require.Equal(t, api.ErrTypeGeneric, body.Type)
		require.Equal(t, auth.MsgInvalidProof, body.Message)
	})

	t.Run("signature from another key", func(t *testing.T) {
		other := newTestKey(t)
		body := `{"request_time":` + strconv.FormatInt(ts, 10) + `,"token_id":"` + k.id.String() +
			`","proof_of_grant_request":"` + other.sign(proof.ScopeGrantSession, ts) + `"}`
		rec := f.do(t, httptest.NewRequest(http.MethodPost, api.RouteMkSession, strings.NewReader(body)))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, auth.MsgInvalidProof, decodeError(t, rec).Message)
	})

	t.Run("unbound key", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodPost, api.RouteMkSession, strings.NewReader(grantBody(newTestKey(t), ts))))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"type":"invalid_token"}`, rec.Body.String())
	})

	t.Run("github unavailable", func(t *testing.T) {
		f.provider.EXPECT().Resolve(gomock.Any(), testCredential).Return(identity.Identity{}, errors.New("connection reset"))
		rec := f.do(t, httptest.NewRequest(http.MethodPost, api.RouteMkSession, strings.NewReader(grantBody(k, ts))))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeError(t, rec)
		require.Equal(t, api.ErrTypeGeneric, body.Type)
		require.NotContains(t, body.Message, "connection reset")
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, api.RouteMkSession, nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestGHLoginAllowList(t *testing.T) {
	f := setupTestFixture(t, nil)
	k := newTestKey(t)
	f.provider.EXPECT().Exchange(gomock.Any(), testCode).Return(testCredential, nil)
	f.provider.EXPECT().Resolve(gomock.Any(), testCredential).Return(testIdentity, nil)

	// allow list is enforced by the service; rebuild it with one
	svc, err := auth.NewService(
		auth.Repos{Tokens: f.tokens, Sessions: fakesessionrepo.NewFakeSessionRepo(f.tokens, time.Hour)},
		f.provider,
		auth.WithNowTime(func() time.Time { return f.now }),
		auth.WithAllowList(identity.NewAllowList("hubot")),
	)
	require.NoError(t, err)
	cfg, err := config.Load("")
	require.NoError(t, err)
	srv, err := server.New(cfg, svc)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, loginQuery(k, f.now.UnixMilli(), url.Values{"code": {testCode}}), nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, auth.MsgUserNotAllowed, decodeError(t, rec).Message)
}

func TestGHLoginState(t *testing.T) {
	f := setupTestFixture(t, map[string]string{"STATE_SECRET": "s3cret"})
	k := newTestKey(t)
	ts := f.now.UnixMilli()

	var state string
	f.provider.EXPECT().
		AuthorizationURL(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ string, s string) string {
			state = s
			return "https://github.com/login/oauth/authorize"
		})
	rec := f.do(t, httptest.NewRequest(http.MethodGet, loginQuery(k, ts, nil), nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.NotEmpty(t, state)

	t.Run("missing state", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, loginQuery(k, ts, url.Values{"code": {testCode}}), nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "bad state", decodeError(t, rec).Message)
	})

	t.Run("state for another request time", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, loginQuery(k, ts+1, url.Values{"code": {testCode}, "state": {state}}), nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("matching state", func(t *testing.T) {
		f.provider.EXPECT().Exchange(gomock.Any(), testCode).Return(testCredential, nil)
		f.provider.EXPECT().Resolve(gomock.Any(), testCredential).Return(testIdentity, nil)
		rec := f.do(t, httptest.NewRequest(http.MethodGet, loginQuery(k, ts, url.Values{"code": {testCode}, "state": {state}}), nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestCorrelationID(t *testing.T) {
	f := setupTestFixture(t, nil)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, api.RouteHealthz, nil))
	require.Len(t, rec.Header().Get(api.HeaderCorrelationID), 36)

	req := httptest.NewRequest(http.MethodGet, api.RouteHealthz, nil)
	req.Header.Set(api.HeaderCorrelationID, "abc-123")
	rec = f.do(t, req)
	require.Equal(t, "abc-123", rec.Header().Get(api.HeaderCorrelationID))
}

func TestHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		rec := f.do(t, httptest.NewRequest(http.MethodGet, api.RouteHealthz, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
		require.NotEmpty(t, rec.Header().Get(api.HeaderCorrelationID))
	})

	t.Run("get only", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		rec := f.do(t, httptest.NewRequest(http.MethodPost, api.RouteHealthz, nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("store down", func(t *testing.T) {
		f := setupTestFixture(t, nil, server.WithHealthCheck(func(context.Context) error {
			return errors.New("database is closed")
		}))
		rec := f.do(t, httptest.NewRequest(http.MethodGet, api.RouteHealthz, nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestCors(t *testing.T) {
	f := setupTestFixture(t, nil)

	t.Run("allowed preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, api.RouteMkSession, nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := f.do(t, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), api.HeaderSessionID)
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), api.HeaderLegacySessionID)
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, api.RouteMkSession, nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := f.do(t, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
