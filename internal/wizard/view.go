package wizard

import (
	"errors"

	"github.com/ashureev/tententen/internal/domain"
)

// Error kinds reported to clients.
const (
	ErrorKindValidation = "validation"
	ErrorKindGeneration = "generation"
)

const generationFailedMessage = "We couldn't generate your insight right now. Please try again."

// ErrorView describes a non-fatal failure shown alongside the current step.
type ErrorView struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// View is the client-facing rendering of a session.
type View struct {
	Page        domain.Page        `json:"page"`
	Step        int                `json:"step"`
	Title       string             `json:"title"`
	Decision    string             `json:"decision"`
	Values      *domain.Values     `json:"values"`
	Reflection  *domain.Reflection `json:"reflection"`
	Insight     string             `json:"insight"`
	InsightHTML string             `json:"insight_html"`
	Error       *ErrorView         `json:"error,omitempty"`
}

// NewView renders s together with the outcome of the last action. render
// converts the insight markdown to HTML and may be nil.
func NewView(s *domain.SessionState, err error, render func(string) string) View {
	v := View{
		Page:       s.Page,
		Step:       s.Page.Index() + 1,
		Title:      s.Page.Title(),
		Decision:   s.Decision,
		Values:     s.Values,
		Reflection: s.Reflection,
		Insight:    s.Insight,
		Error:      DescribeError(err),
	}
	if render != nil && s.Insight != "" {
		v.InsightHTML = render(s.Insight)
	}
	return v
}

// DescribeError converts validation and generation failures into an ErrorView.
// It returns nil for nil and for internal errors, which are not shown to users.
func DescribeError(err error) *ErrorView {
	if err == nil {
		return nil
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return &ErrorView{Kind: ErrorKindValidation, Field: verr.Field, Message: verr.Message}
	}

	var gerr *domain.GenerationError
	if errors.As(err, &gerr) {
		msg := generationFailedMessage
		if errors.Is(err, ErrRateLimited) {
			msg = ErrRateLimited.Error()
		}
		return &ErrorView{Kind: ErrorKindGeneration, Message: msg}
	}

	return nil
}
