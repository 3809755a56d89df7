// Package domain contains the core types of the 10-10-10 decision wizard
// and the state machine that moves a session through its steps.
package domain

import "fmt"

// Page identifies one step of the wizard.
type Page string

const (
	PageDecision   Page = "decision"
	PageValues     Page = "values"
	PageReflection Page = "reflection"
	PageSummary    Page = "summary"
)

var pageOrder = []Page{PageDecision, PageValues, PageReflection, PageSummary}

// Pages returns the wizard steps in the order they are visited.
func Pages() []Page {
	out := make([]Page, len(pageOrder))
	copy(out, pageOrder)
	return out
}

// ParsePage converts a stored page name back into a Page.
func ParsePage(s string) (Page, error) {
	p := Page(s)
	if p.Index() < 0 {
		return "", fmt.Errorf("unknown page %q", s)
	}
	return p, nil
}

// Index returns the position of the page in the wizard, or -1 for an unknown page.
func (p Page) Index() int {
	for i, candidate := range pageOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Next returns the page that follows p. Summary is terminal and returns itself.
func (p Page) Next() Page {
	i := p.Index()
	if i < 0 || i == len(pageOrder)-1 {
		return p
	}
	return pageOrder[i+1]
}

// Title returns the heading shown for the page.
func (p Page) Title() string {
	switch p {
	case PageDecision:
		return "Step 1: What's the decision you're facing?"
	case PageValues:
		return "Step 2: Know Your Values"
	case PageReflection:
		return "Step 3: Reflect with 10-10-10"
	case PageSummary:
		return "Step 4: Insight Summary"
	default:
		return ""
	}
}
