package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ashureev/tententen/internal/domain"
	"github.com/ashureev/tententen/internal/insight"
)

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.SessionState
	getErr   error
	upserts  int
	deleted  []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*domain.SessionState)}
}

func (f *fakeRepo) GetSession(ctx context.Context, key string) (*domain.SessionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[key]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (f *fakeRepo) UpsertSession(ctx context.Context, s *domain.SessionState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.sessions[s.Key()] = s.Clone()
	return nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeRepo) GetExpiredSessions(_ context.Context, ttl time.Duration) ([]*domain.SessionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	var out []*domain.SessionState
	for _, s := range f.sessions {
		if s.UpdatedAt.Before(cutoff) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	expired, _ := f.GetExpiredSessions(ctx, ttl)
	for _, s := range expired {
		_ = f.DeleteSession(ctx, s.Key())
	}
	return int64(len(expired)), nil
}

func (f *fakeRepo) PurgeSessions(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.sessions))
	f.sessions = make(map[string]*domain.SessionState)
	return n, nil
}

func (f *fakeRepo) Ping(context.Context) error { return nil }
func (f *fakeRepo) Close() error               { return nil }

func (f *fakeRepo) stored(key string) *domain.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[key]
}

// countingGenerator is an insight.Generator that records every prompt.
type countingGenerator struct {
	mu      sync.Mutex
	prompts []string
	replies []string
	errs    []error
	block   chan struct{}
	// onStart runs when a call begins, before block is waited on.
	onStart func()
}

func (g *countingGenerator) Generate(_ context.Context, req insight.Request) (string, error) {
	if g.onStart != nil {
		g.onStart()
	}
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.prompts)
	g.prompts = append(g.prompts, req.Prompt)

	if n < len(g.errs) && g.errs[n] != nil {
		return "", g.errs[n]
	}
	if n < len(g.replies) {
		return g.replies[n], nil
	}
	return "Your reflections point toward agency. This week, draft the offer reply.", nil
}

func (g *countingGenerator) Close() error { return nil }

func (g *countingGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

var errTransport = errors.New("dial tcp: connection refused")
