package wizard

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/tententen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViewRendersInsight(t *testing.T) {
	s := domain.NewSessionState(testUser, testSession, time.Now())
	s.Page = domain.PageSummary
	s.Insight = "**yes**"

	v := NewView(s, nil, strings.ToUpper)
	assert.Equal(t, 4, v.Step)
	assert.Equal(t, domain.PageSummary.Title(), v.Title)
	assert.Equal(t, "**YES**", v.InsightHTML)
	assert.Nil(t, v.Error)
}

func TestDescribeError(t *testing.T) {
	verr := DescribeError(&domain.ValidationError{Page: domain.PageDecision, Field: "decision", Message: "required"})
	require.NotNil(t, verr)
	assert.Equal(t, ErrorKindValidation, verr.Kind)
	assert.Equal(t, "decision", verr.Field)

	gerr := DescribeError(&domain.GenerationError{Err: errTransport})
	require.NotNil(t, gerr)
	assert.Equal(t, ErrorKindGeneration, gerr.Kind)
	assert.NotContains(t, gerr.Message, "connection refused")

	limited := DescribeError(&domain.GenerationError{Err: ErrRateLimited})
	require.NotNil(t, limited)
	assert.Equal(t, ErrRateLimited.Error(), limited.Message)

	assert.Nil(t, DescribeError(nil))
	assert.Nil(t, DescribeError(errors.New("disk full")))
}
