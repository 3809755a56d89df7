package insight

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ashureev/tententen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	requests []Request
	reply    string
	err      error
	closed   bool
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeGenerator) Close() error {
	f.closed = true
	return nil
}

func TestRequesterGenerate(t *testing.T) {
	gen := &fakeGenerator{reply: "You value **agency**."}
	r := NewRequester(gen, nil)

	text, err := r.Generate(context.Background(), completedSession())
	require.NoError(t, err)
	assert.Equal(t, "You value **agency**.", text)
	require.Equal(t, 1, gen.calls)
	assert.Equal(t, "anon_1", gen.requests[0].UserID)
	assert.Equal(t, "tab-1", gen.requests[0].SessionID)
	assert.Contains(t, gen.requests[0].Prompt, "Should I take the job?")
}

func TestRequesterIncompleteStateSkipsCall(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	r := NewRequester(gen, nil)

	s := completedSession()
	s.Values = nil
	_, err := r.Generate(context.Background(), s)

	var ierr *domain.IncompleteStateError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, 0, gen.calls)
}

func TestRequesterWrapsTransportError(t *testing.T) {
	transport := errors.New("connection refused")
	gen := &fakeGenerator{err: transport}
	r := NewRequester(gen, nil)

	_, err := r.Generate(context.Background(), completedSession())
	var gerr *domain.GenerationError
	require.True(t, errors.As(err, &gerr))
	assert.ErrorIs(t, err, transport)
	assert.Equal(t, 1, gen.calls)
}

func TestRequesterEmptyReply(t *testing.T) {
	r := NewRequester(&fakeGenerator{reply: "  "}, nil)

	_, err := r.Generate(context.Background(), completedSession())
	assert.ErrorIs(t, err, domain.ErrEmptyInsight)
}

func TestRequesterClose(t *testing.T) {
	gen := &fakeGenerator{}
	require.NoError(t, NewRequester(gen, nil).Close())
	assert.True(t, gen.closed)
}
