package insight

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/tententen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedSession() *domain.SessionState {
	s := domain.NewSessionState("anon_1", "tab-1", time.Unix(1700000000, 0))
	s.Page = domain.PageSummary
	s.Decision = "Should I take the job?"
	s.Values = &domain.Values{
		MustHave:   []string{"Scope", "Agency"},
		DontCare:   []string{"Cosmos", "Place"},
		NiceToHave: []string{"Voice", "Belonging"},
	}
	s.Reflection = &domain.Reflection{
		TenMinutes: "Nervous but excited.",
		TenMonths:  "Settled into a new routine.",
		TenYears:   "Glad I took the leap.",
	}
	return s
}

func TestBuildPromptContainsEveryAnswer(t *testing.T) {
	prompt, err := BuildPrompt(completedSession())
	require.NoError(t, err)

	for _, want := range []string{
		"Should I take the job?",
		"Scope", "Agency", "Cosmos", "Place", "Voice", "Belonging",
		"Nervous but excited.", "Settled into a new routine.", "Glad I took the leap.",
	} {
		assert.Contains(t, prompt, want)
	}
	assert.Contains(t, prompt, "They can't live without: Scope, Agency\n")
	assert.Contains(t, prompt, "They don't care about: Cosmos, Place\n")
	assert.Contains(t, prompt, "They find these nice to have: Voice, Belonging\n")
	assert.Contains(t, prompt, "- 10 Months: Settled into a new routine.\n")
	assert.True(t, strings.HasSuffix(prompt, "one concrete action they can take this week."))
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	a, err := BuildPrompt(completedSession())
	require.NoError(t, err)
	b, err := BuildPrompt(completedSession())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildPromptIncompleteState(t *testing.T) {
	s := completedSession()
	s.Reflection = nil
	s.Decision = "  "

	_, err := BuildPrompt(s)
	var ierr *domain.IncompleteStateError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, []string{"decision", "reflection"}, ierr.Missing)

	_, err = BuildPrompt(nil)
	assert.True(t, errors.As(err, &ierr))
}
