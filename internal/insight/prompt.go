package insight

import (
	"fmt"
	"strings"

	"github.com/ashureev/tententen/internal/domain"
)

const promptTemplate = `The user is making this decision: %s
They can't live without: %s
They don't care about: %s
They find these nice to have: %s

Reflections:
- %s: %s
- %s: %s
- %s: %s

Provide a warm and motivating summary of how these reflections align with their values, and one concrete action they can take this week.`

// BuildPrompt renders the insight prompt for a session. It fails with
// *domain.IncompleteStateError when a step's answers are missing.
func BuildPrompt(s *domain.SessionState) (string, error) {
	if s == nil {
		return "", &domain.IncompleteStateError{Missing: []string{"session"}}
	}
	if missing := s.MissingFields(); len(missing) > 0 {
		return "", &domain.IncompleteStateError{Missing: missing}
	}

	r := s.Reflection
	return fmt.Sprintf(promptTemplate,
		s.Decision,
		strings.Join(s.Values.MustHave, ", "),
		strings.Join(s.Values.DontCare, ", "),
		strings.Join(s.Values.NiceToHave, ", "),
		domain.HorizonTenMinutes.Label(), r.TenMinutes,
		domain.HorizonTenMonths.Label(), r.TenMonths,
		domain.HorizonTenYears.Label(), r.TenYears,
	), nil
}
