package domain

import (
	"fmt"
	"strings"
)

// ActionType names a user action.
type ActionType string

const (
	ActionSubmitDecision   ActionType = "submit_decision"
	ActionSubmitValues     ActionType = "submit_values"
	ActionSubmitReflection ActionType = "submit_reflection"
	ActionGenerateInsight  ActionType = "generate_insight"
)

// Page returns the step on which the action is accepted.
func (t ActionType) Page() Page {
	switch t {
	case ActionSubmitDecision:
		return PageDecision
	case ActionSubmitValues:
		return PageValues
	case ActionSubmitReflection:
		return PageReflection
	case ActionGenerateInsight:
		return PageSummary
	default:
		return ""
	}
}

// Action is one user action against a session.
type Action struct {
	Type       ActionType
	Decision   string
	Values     Values
	Reflection Reflection
}

// SubmitDecision builds the action for the first step.
func SubmitDecision(text string) Action {
	return Action{Type: ActionSubmitDecision, Decision: text}
}

// SubmitValues builds the action for the values step.
func SubmitValues(v Values) Action {
	return Action{Type: ActionSubmitValues, Values: v}
}

// SubmitReflection builds the action for the reflection step.
func SubmitReflection(r Reflection) Action {
	return Action{Type: ActionSubmitReflection, Reflection: r}
}

// GenerateInsight builds the retry action for the summary step.
func GenerateInsight() Action {
	return Action{Type: ActionGenerateInsight}
}

// Transition applies a to s and returns the resulting state. s is never modified.
// When the action cannot be applied, the returned state is an unchanged copy of s
// and the error is a *ValidationError.
//
// Pages only move forward: an action for a step that is already behind the
// session is rejected, so no action can return a session to an earlier page.
func Transition(s *SessionState, a Action) (*SessionState, error) {
	next := s.Clone()

	target := a.Type.Page()
	if target == "" {
		return next, &ValidationError{Page: s.Page, Message: fmt.Sprintf("unknown action %q", a.Type)}
	}
	if target != s.Page {
		return next, stepMismatch(s.Page, target)
	}

	switch a.Type {
	case ActionSubmitDecision:
		if !ValidateDecision(a.Decision) {
			return next, &ValidationError{Page: PageDecision, Field: "decision", Message: "Please describe the decision you're facing."}
		}
		next.Decision = strings.TrimSpace(a.Decision)

	case ActionSubmitValues:
		if verr := checkValues(a.Values); verr != nil {
			return next, verr
		}
		v := a.Values.clone()
		next.Values = &v

	case ActionSubmitReflection:
		r := a.Reflection
		if !ValidateReflection(r.TenMinutes, r.TenMonths, r.TenYears) {
			return next, &ValidationError{
				Page:    PageReflection,
				Field:   firstBlankHorizon(r),
				Message: "Please complete all three reflections before generating insight.",
			}
		}
		trimmed := r.Trimmed()
		next.Reflection = &trimmed

	case ActionGenerateInsight:
		// Generation happens outside the state machine; the page stays on summary.
		return next, nil
	}

	next.Page = s.Page.Next()
	return next, nil
}

func stepMismatch(current, target Page) *ValidationError {
	if target.Index() < current.Index() {
		return &ValidationError{Page: current, Field: "page", Message: fmt.Sprintf("the %s step is already complete", target)}
	}
	return &ValidationError{Page: current, Field: "page", Message: fmt.Sprintf("complete the %s step first", current)}
}

func checkValues(v Values) *ValidationError {
	for _, c := range Categories() {
		picks := v.Get(c)
		for _, p := range picks {
			if !IsCatalogValue(p) {
				return &ValidationError{Page: PageValues, Field: string(c), Message: fmt.Sprintf("%q is not a known value", p)}
			}
		}
		if !isPickSet(picks) {
			return &ValidationError{Page: PageValues, Field: string(c), Message: "Pick exactly two for each category."}
		}
	}
	return nil
}

func firstBlankHorizon(r Reflection) string {
	for _, h := range Horizons() {
		if strings.TrimSpace(r.Get(h)) == "" {
			return string(h)
		}
	}
	return ""
}
