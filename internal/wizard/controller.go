// Package wizard drives the four-step decision flow for each session.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/tententen/internal/domain"
	"github.com/ashureev/tententen/internal/store"
)

// ErrRateLimited is wrapped in a *domain.GenerationError when a user exceeds
// the generation quota.
var ErrRateLimited = errors.New("too many insight requests, try again shortly")

// InsightRequester produces the insight text for a completed session.
type InsightRequester interface {
	Generate(ctx context.Context, s *domain.SessionState) (string, error)
}

// Controller owns every mutation of wizard sessions. Actions on one session
// are serialized; different sessions proceed independently.
type Controller struct {
	repo      store.Repository
	requester InsightRequester
	limiter   *RateLimiter
	logger    *slog.Logger
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[string]*keyLock
}

// keyLock is a per-session mutex. The entry is removed when no caller holds
// or waits on it.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewController creates a Controller. limiter may be nil to disable the quota.
func NewController(repo store.Repository, requester InsightRequester, limiter *RateLimiter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		repo:      repo,
		requester: requester,
		limiter:   limiter,
		logger:    logger,
		now:       time.Now,
		locks:     make(map[string]*keyLock),
	}
}

func (c *Controller) lock(key string) func() {
	c.locksMu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &keyLock{}
		c.locks[key] = l
	}
	l.refs++
	c.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, key)
		}
		c.locksMu.Unlock()
	}
}

// State returns the current session, creating it on first access.
// It never triggers generation.
func (c *Controller) State(ctx context.Context, userID, sessionID string) (*domain.SessionState, error) {
	unlock := c.lock(domain.SessionKey(userID, sessionID))
	defer unlock()

	return c.load(ctx, userID, sessionID)
}

func (c *Controller) load(ctx context.Context, userID, sessionID string) (*domain.SessionState, error) {
	s, err := c.repo.GetSession(ctx, domain.SessionKey(userID, sessionID))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s != nil {
		return s, nil
	}

	s = domain.NewSessionState(userID, sessionID, c.now())
	if err := c.repo.UpsertSession(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.logger.Info("Wizard session started", "user_id", userID, "session_id", sessionID)
	return s, nil
}

// Dispatch applies action to the session and persists the result.
//
// A *domain.ValidationError is returned together with the unchanged state.
// When the session sits on the summary step without an insight, generation
// runs before Dispatch returns; a failure is reported as *domain.GenerationError
// together with the saved summary state so the caller can offer a retry.
//
// Once the action is accepted, saving and generation no longer follow ctx:
// a client that goes away mid-request must not lose the submitted step.
func (c *Controller) Dispatch(ctx context.Context, userID, sessionID string, action domain.Action) (*domain.SessionState, error) {
	unlock := c.lock(domain.SessionKey(userID, sessionID))
	defer unlock()

	current, err := c.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	next, err := domain.Transition(current, action)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.logger.Debug("Wizard action rejected",
				"user_id", userID,
				"session_id", sessionID,
				"page", current.Page,
				"action", action.Type,
				"field", verr.Field)
			return current, verr
		}
		return current, err
	}

	ctx = context.WithoutCancel(ctx)

	if next.Page != current.Page {
		if err := c.save(ctx, next); err != nil {
			return current, err
		}
		c.logger.Info("Wizard session advanced",
			"user_id", userID,
			"session_id", sessionID,
			"from", current.Page,
			"to", next.Page)
	}

	if !next.NeedsInsight() {
		return next, nil
	}

	if genErr := c.generate(ctx, next); genErr != nil {
		return next, genErr
	}
	if err := c.save(ctx, next); err != nil {
		return next, err
	}
	c.logger.Info("Wizard insight stored",
		"user_id", userID,
		"session_id", sessionID,
		"insight_len", len(next.Insight))
	return next, nil
}

func (c *Controller) save(ctx context.Context, s *domain.SessionState) error {
	s.UpdatedAt = c.now()
	if err := c.repo.UpsertSession(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Expire deletes the session if it has been idle for longer than ttl. It
// waits for any in-flight action on the session and re-checks the idle time,
// so a session touched since it was listed is kept.
func (c *Controller) Expire(ctx context.Context, userID, sessionID string, ttl time.Duration) (bool, error) {
	key := domain.SessionKey(userID, sessionID)
	unlock := c.lock(key)
	defer unlock()

	s, err := c.repo.GetSession(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if s == nil || c.now().Sub(s.UpdatedAt) <= ttl {
		return false, nil
	}
	if err := deleteSessionWithRetry(ctx, c.repo, key); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Controller) generate(ctx context.Context, s *domain.SessionState) error {
	if !c.limiter.Allow(s.UserID) {
		c.logger.Warn("Insight generation rate limited", "user_id", s.UserID, "session_id", s.SessionID)
		return &domain.GenerationError{Err: ErrRateLimited}
	}

	text, err := c.requester.Generate(ctx, s)
	if err != nil {
		var ierr *domain.IncompleteStateError
		if errors.As(err, &ierr) {
			c.logger.Error("Insight requested for incomplete session",
				"user_id", s.UserID,
				"session_id", s.SessionID,
				"missing", ierr.Missing)
		}
		return err
	}

	return s.SetInsight(text)
}
