package domain

import (
	"strings"
	"time"
)

// SessionState is the per-session record of the wizard.
type SessionState struct {
	UserID     string
	SessionID  string
	Page       Page
	Decision   string
	Values     *Values
	Reflection *Reflection
	Insight    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSessionState returns a fresh session positioned on the first step.
func NewSessionState(userID, sessionID string, now time.Time) *SessionState {
	return &SessionState{
		UserID:    userID,
		SessionID: sessionID,
		Page:      PageDecision,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SessionKey joins a user id and a tab session id into the key sessions are stored under.
func SessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// Key returns the storage key of the session.
func (s *SessionState) Key() string {
	return SessionKey(s.UserID, s.SessionID)
}

// HasInsight returns true once the generated insight has been stored.
func (s *SessionState) HasInsight() bool {
	return s.Insight != ""
}

// NeedsInsight returns true when the session sits on the summary step without an insight.
func (s *SessionState) NeedsInsight() bool {
	return s.Page == PageSummary && !s.HasInsight()
}

// SetInsight stores the generated insight. It can only be set once, on the summary step.
func (s *SessionState) SetInsight(text string) error {
	if s.Page != PageSummary {
		return &ValidationError{Page: s.Page, Message: "insight can only be stored on the summary step"}
	}
	if s.HasInsight() {
		return ErrInsightAlreadySet
	}
	if strings.TrimSpace(text) == "" {
		return &GenerationError{Err: ErrEmptyInsight}
	}
	s.Insight = text
	return nil
}

// MissingFields lists the answers that must be present before an insight can be requested.
func (s *SessionState) MissingFields() []string {
	var missing []string
	if !ValidateDecision(s.Decision) {
		missing = append(missing, "decision")
	}
	if s.Values == nil || !ValidateValues(s.Values.MustHave, s.Values.DontCare, s.Values.NiceToHave) {
		missing = append(missing, "values")
	}
	if s.Reflection == nil || !ValidateReflection(s.Reflection.TenMinutes, s.Reflection.TenMonths, s.Reflection.TenYears) {
		missing = append(missing, "reflection")
	}
	return missing
}

// Clone returns a deep copy of the session.
func (s *SessionState) Clone() *SessionState {
	c := *s
	if s.Values != nil {
		v := s.Values.clone()
		c.Values = &v
	}
	if s.Reflection != nil {
		r := *s.Reflection
		c.Reflection = &r
	}
	return &c
}
