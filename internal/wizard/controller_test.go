package wizard

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/tententen/internal/domain"
	"github.com/ashureev/tententen/internal/insight"
	"github.com/ashureev/tententen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser    = "anon_0123456789abcdef0123456789abcdef"
	testSession = "tab-1"
)

func newTestController(gen *countingGenerator, limiter *RateLimiter) (*Controller, *fakeRepo) {
	repo := newFakeRepo()
	return NewController(repo, insight.NewRequester(gen, nil), limiter, nil), repo
}

func jobValues() domain.Values {
	return domain.Values{
		MustHave:   []string{"Scope", "Agency"},
		DontCare:   []string{"Cosmos", "Place"},
		NiceToHave: []string{"Voice", "Belonging"},
	}
}

func jobReflection() domain.Reflection {
	return domain.Reflection{
		TenMinutes: "Nervous but excited.",
		TenMonths:  "Settled into a new routine.",
		TenYears:   "Glad I took the leap.",
	}
}

func walkToReflection(t *testing.T, c *Controller) {
	t.Helper()
	ctx := context.Background()
	s, err := c.Dispatch(ctx, testUser, testSession, domain.SubmitDecision("Should I take the job?"))
	require.NoError(t, err)
	require.Equal(t, domain.PageValues, s.Page)

	s, err = c.Dispatch(ctx, testUser, testSession, domain.SubmitValues(jobValues()))
	require.NoError(t, err)
	require.Equal(t, domain.PageReflection, s.Page)
}

func TestFullWalkGeneratesOnceWithEveryAnswer(t *testing.T) {
	gen := &countingGenerator{}
	c, repo := newTestController(gen, nil)
	walkToReflection(t, c)

	s, err := c.Dispatch(context.Background(), testUser, testSession, domain.SubmitReflection(jobReflection()))
	require.NoError(t, err)
	assert.Equal(t, domain.PageSummary, s.Page)
	assert.NotEmpty(t, s.Insight)

	require.Equal(t, 1, gen.calls())
	for _, want := range []string{
		"Should I take the job?",
		"Scope", "Agency", "Cosmos", "Place", "Voice", "Belonging",
		"Nervous but excited.", "Settled into a new routine.", "Glad I took the leap.",
	} {
		assert.Contains(t, gen.prompts[0], want)
	}

	stored := repo.stored(domain.SessionKey(testUser, testSession))
	require.NotNil(t, stored)
	assert.Equal(t, s.Insight, stored.Insight)
}

func TestRerenderNeverRegenerates(t *testing.T) {
	gen := &countingGenerator{}
	c, _ := newTestController(gen, nil)
	walkToReflection(t, c)
	ctx := context.Background()

	first, err := c.Dispatch(ctx, testUser, testSession, domain.SubmitReflection(jobReflection()))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		s, err := c.State(ctx, testUser, testSession)
		require.NoError(t, err)
		assert.Equal(t, first.Insight, s.Insight)
	}

	s, err := c.Dispatch(ctx, testUser, testSession, domain.GenerateInsight())
	require.NoError(t, err)
	assert.Equal(t, first.Insight, s.Insight)
	assert.Equal(t, 1, gen.calls())
}

func TestStateCreatesFreshSession(t *testing.T) {
	c, repo := newTestController(&countingGenerator{}, nil)

	s, err := c.State(context.Background(), testUser, testSession)
	require.NoError(t, err)
	assert.Equal(t, domain.PageDecision, s.Page)
	assert.Nil(t, s.Values)
	assert.NotNil(t, repo.stored(s.Key()))
}

func TestOneMustHaveStaysOnValues(t *testing.T) {
	c, repo := newTestController(&countingGenerator{}, nil)
	ctx := context.Background()
	_, err := c.Dispatch(ctx, testUser, testSession, domain.SubmitDecision("Should I take the job?"))
	require.NoError(t, err)

	v := jobValues()
	v.MustHave = []string{"Scope"}
	s, err := c.Dispatch(ctx, testUser, testSession, domain.SubmitValues(v))

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, string(domain.CategoryMustHave), verr.Field)
	assert.Equal(t, domain.PageValues, s.Page)
	assert.Nil(t, s.Values)
	assert.Equal(t, domain.PageValues, repo.stored(s.Key()).Page)
}

func TestTransportErrorThenRetry(t *testing.T) {
	gen := &countingGenerator{errs: []error{errTransport}}
	c, repo := newTestController(gen, nil)
	walkToReflection(t, c)
	ctx := context.Background()

	s, err := c.Dispatch(ctx, testUser, testSession, domain.SubmitReflection(jobReflection()))
	var gerr *domain.GenerationError
	require.True(t, errors.As(err, &gerr))
	assert.ErrorIs(t, err, errTransport)
	assert.Equal(t, domain.PageSummary, s.Page)
	assert.Empty(t, s.Insight)

	stored := repo.stored(s.Key())
	assert.Equal(t, domain.PageSummary, stored.Page)
	assert.Empty(t, stored.Insight)

	// Re-rendering after the failure does not retry on its own.
	_, err = c.State(ctx, testUser, testSession)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls())

	s, err = c.Dispatch(ctx, testUser, testSession, domain.GenerateInsight())
	require.NoError(t, err)
	assert.NotEmpty(t, s.Insight)
	assert.Equal(t, 2, gen.calls())
	assert.Equal(t, s.Insight, repo.stored(s.Key()).Insight)
}

func TestEmptyReplyIsGenerationError(t *testing.T) {
	gen := &countingGenerator{replies: []string{"   "}}
	c, _ := newTestController(gen, nil)
	walkToReflection(t, c)

	s, err := c.Dispatch(context.Background(), testUser, testSession, domain.SubmitReflection(jobReflection()))
	assert.ErrorIs(t, err, domain.ErrEmptyInsight)
	assert.Equal(t, domain.PageSummary, s.Page)
	assert.Empty(t, s.Insight)
}

func TestRateLimitedRetry(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	defer limiter.Close()
	gen := &countingGenerator{errs: []error{errTransport}}
	c, _ := newTestController(gen, limiter)
	walkToReflection(t, c)
	ctx := context.Background()

	_, err := c.Dispatch(ctx, testUser, testSession, domain.SubmitReflection(jobReflection()))
	assert.ErrorIs(t, err, errTransport)

	s, err := c.Dispatch(ctx, testUser, testSession, domain.GenerateInsight())
	var gerr *domain.GenerationError
	require.True(t, errors.As(err, &gerr))
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, domain.PageSummary, s.Page)
	assert.Equal(t, 1, gen.calls())
}

func TestConcurrentSubmissionsGenerateOnce(t *testing.T) {
	gen := &countingGenerator{block: make(chan struct{})}
	c, _ := newTestController(gen, nil)
	walkToReflection(t, c)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Dispatch(context.Background(), testUser, testSession, domain.SubmitReflection(jobReflection()))
		}(i)
	}
	close(gen.block)
	wg.Wait()

	assert.Equal(t, 1, gen.calls())
	failures := 0
	for _, err := range errs {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			failures++
		} else {
			assert.NoError(t, err)
		}
	}
	assert.Equal(t, 1, failures)
}

func TestSessionsAreIndependent(t *testing.T) {
	c, _ := newTestController(&countingGenerator{}, nil)
	ctx := context.Background()

	_, err := c.Dispatch(ctx, testUser, "tab-1", domain.SubmitDecision("Move?"))
	require.NoError(t, err)

	other, err := c.State(ctx, testUser, "tab-2")
	require.NoError(t, err)
	assert.Equal(t, domain.PageDecision, other.Page)
	assert.Empty(t, other.Decision)
}

func TestRepositoryErrorPropagates(t *testing.T) {
	c, repo := newTestController(&countingGenerator{}, nil)
	repo.getErr = errors.New("disk I/O error")

	_, err := c.Dispatch(context.Background(), testUser, testSession, domain.SubmitDecision("x"))
	require.Error(t, err)
	var verr *domain.ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestClientGoneDuringGenerationKeepsProgress(t *testing.T) {
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "wizard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &countingGenerator{onStart: cancel}
	c := NewController(repo, insight.NewRequester(gen, nil), nil, nil)
	walkToReflection(t, c)

	s, err := c.Dispatch(reqCtx, testUser, testSession, domain.SubmitReflection(jobReflection()))
	require.NoError(t, err)
	assert.Equal(t, domain.PageSummary, s.Page)

	reloaded, err := c.State(context.Background(), testUser, testSession)
	require.NoError(t, err)
	assert.Equal(t, domain.PageSummary, reloaded.Page)
	require.NotNil(t, reloaded.Reflection)
	assert.Equal(t, jobReflection(), *reloaded.Reflection)
	assert.Equal(t, s.Insight, reloaded.Insight)
	assert.Equal(t, 1, gen.calls())
}

func TestFailedGenerationAfterClientGoneKeepsSummary(t *testing.T) {
	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &countingGenerator{onStart: cancel, errs: []error{errTransport}}
	c, repo := newTestController(gen, nil)
	walkToReflection(t, c)

	_, err := c.Dispatch(reqCtx, testUser, testSession, domain.SubmitReflection(jobReflection()))
	var gerr *domain.GenerationError
	require.True(t, errors.As(err, &gerr))

	stored := repo.stored(domain.SessionKey(testUser, testSession))
	require.NotNil(t, stored)
	assert.Equal(t, domain.PageSummary, stored.Page)
	require.NotNil(t, stored.Reflection)
	assert.Equal(t, jobReflection(), *stored.Reflection)
	assert.Empty(t, stored.Insight)
}

func TestLockEntriesAreReleased(t *testing.T) {
	c, _ := newTestController(&countingGenerator{}, nil)
	walkToReflection(t, c)
	_, err := c.State(context.Background(), testUser, "tab-2")
	require.NoError(t, err)

	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	assert.Empty(t, c.locks)
}

func TestExpireKeepsTouchedSession(t *testing.T) {
	c, repo := newTestController(&countingGenerator{}, nil)
	ctx := context.Background()
	key := domain.SessionKey(testUser, testSession)

	stale := domain.NewSessionState(testUser, testSession, time.Now().Add(-2*time.Hour))
	require.NoError(t, repo.UpsertSession(ctx, stale))
	_, err := c.Dispatch(ctx, testUser, testSession, domain.SubmitDecision("Should I take the job?"))
	require.NoError(t, err)

	removed, err := c.Expire(ctx, testUser, testSession, time.Hour)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NotNil(t, repo.stored(key))

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err = c.Expire(ctx, testUser, testSession, time.Hour)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Nil(t, repo.stored(key))
}

func TestExpireWaitsForInFlightAction(t *testing.T) {
	started := make(chan struct{})
	gen := &countingGenerator{
		block:   make(chan struct{}),
		onStart: func() { close(started) },
	}
	c, repo := newTestController(gen, nil)
	walkToReflection(t, c)

	dispatched := make(chan error, 1)
	go func() {
		_, err := c.Dispatch(context.Background(), testUser, testSession, domain.SubmitReflection(jobReflection()))
		dispatched <- err
	}()
	<-started

	expired := make(chan bool, 1)
	go func() {
		removed, _ := c.Expire(context.Background(), testUser, testSession, time.Hour)
		expired <- removed
	}()

	select {
	case <-expired:
		t.Fatal("session expired while an action was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gen.block)
	require.NoError(t, <-dispatched)
	assert.False(t, <-expired)

	stored := repo.stored(domain.SessionKey(testUser, testSession))
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.Insight)
}
