package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-keygrant/internal/errors"
	"github.com/jrsteele09/go-keygrant/sessions"
	"github.com/jrsteele09/go-keygrant/token"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo keeps sessions in memory. It consults the token repo on
// every read, the same way the SQL stores join against valid tokens.
type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	tokens   token.Repo
	ttl      time.Duration
	lock     sync.RWMutex
}

func NewFakeSessionRepo(tokens token.Repo, ttl time.Duration) *FakeSessionRepo {
	if ttl <= 0 {
		ttl = sessions.DefaultTTL
	}
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
		tokens:   tokens,
		ttl:      ttl,
	}
}

func (sr *FakeSessionRepo) Create(ctx context.Context, ns sessions.NewSession, now time.Time) (*sessions.Session, error) {
	if _, err := sr.tokens.Get(ctx, ns.TokenID); err != nil {
		return nil, err
	}

	sr.lock.Lock()
	defer sr.lock.Unlock()

	if _, exists := sr.sessions[ns.ID]; exists {
		return nil, apperrors.ErrSessionExists
	}

	s := &sessions.Session{
		ID:                ns.ID,
		TokenID:           ns.TokenID,
		GitHubID:          ns.GitHubID,
		GitHubLogin:       ns.GitHubLogin,
		GitHubDisplayName: ns.GitHubDisplayName,
		Expiry:            now.Add(sr.ttl),
		CreatedAt:         now,
	}
	sr.sessions[s.ID] = s

	out := *s
	return &out, nil
}

func (sr *FakeSessionRepo) GetValid(ctx context.Context, sessionID string, now time.Time) (*sessions.Session, error) {
	sr.lock.RLock()
	s, ok := sr.sessions[sessionID]
	var out sessions.Session
	if ok {
		out = *s
	}
	sr.lock.RUnlock()

	if !ok || out.Expired(now) {
		return nil, apperrors.ErrSessionNotFound
	}
	if _, err := sr.tokens.GetActive(ctx, out.TokenID); err != nil {
		return nil, apperrors.ErrSessionNotFound
	}
	return &out, nil
}

func (sr *FakeSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	var n int64
	for id, s := range sr.sessions {
		if s.Expired(now) {
			delete(sr.sessions, id)
			n++
		}
	}
	return n, nil
}
