package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"UPSTREAM_URL", "PROVIDER", "AUTH_MODE", "GEMINI_API_KEY", "GOOGLE_API_KEY", "PACE_TOKEN", "CATALOG_PATH"} {
		t.Setenv(key, "")
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cleanEnv(t)

	var out, errOut bytes.Buffer
	cmd := NewApp().RootCommand()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--plain"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestChatPromptsForProfileAndEnds(t *testing.T) {
	out, err := run(t, "Asha\n17\nHigh School\nI like robots\n/end\n", "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "Name: ")
	assert.Contains(t, out, "Education level: ")
	assert.Contains(t, out, "Hi Asha!")
	assert.Contains(t, out, `you said "I like robots"`)
	assert.Contains(t, out, "Session ended (user_requested)")
	assert.Contains(t, out, "## Summary")
}

func TestChatEndsAtEndOfInput(t *testing.T) {
	out, err := run(t, "hello\n/time\n", "chat", "--name", "Ravi", "--age", "20", "--education", "Undergraduate", "--stream", "design")
	require.NoError(t, err)

	assert.NotContains(t, out, "Name: ")
	assert.Contains(t, out, "interested in design")
	assert.Contains(t, out, `you said "hello"`)
	assert.Contains(t, out, "1 turns so far")
	assert.Contains(t, out, "Session ended (user_requested)")
}

func TestChatMissingProfile(t *testing.T) {
	_, err := run(t, "Asha\n", "chat")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidProfile)
}

func TestInvalidProvider(t *testing.T) {
	_, err := run(t, "", "--provider", "bogus", "careers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown PROVIDER")
}

func TestOpportunitiesSearch(t *testing.T) {
	out, err := run(t, "", "opportunities", "search", "Google")
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Google Software Engineering Internship")
	assert.Contains(t, out, "Page 1")

	out, err = run(t, "", "opp", "search", "no-such-listing-anywhere")
	require.NoError(t, err)
	assert.Contains(t, out, "No opportunities found.")

	_, err = run(t, "", "opportunities", "search", "--sort", "sideways")
	require.Error(t, err)
}

func TestOpportunityShow(t *testing.T) {
	out, err := run(t, "", "opportunities", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "# Google Software Engineering Internship")
	assert.Contains(t, out, "**Google**")

	_, err = run(t, "", "opportunities", "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCareers(t *testing.T) {
	out, err := run(t, "", "careers", "--answer", "favorite_subject=computer")
	require.NoError(t, err)
	assert.Contains(t, out, "Software Engineer")
	assert.Contains(t, out, "# Learning path")
	assert.Contains(t, out, "1. **")
}

func TestOpportunityMarkdown(t *testing.T) {
	md := opportunityMarkdown(domain.Opportunity{
		Title:       "Data Fellowship",
		Type:        domain.OpportunityFellowship,
		Description: "Short",
		Remote:      true,
		Deadline:    "2026-12-01",
	})
	assert.Contains(t, md, "# Data Fellowship")
	assert.Contains(t, md, "**Fellowship**")
	assert.Contains(t, md, "- **Location:** (remote)")
	assert.Contains(t, md, "- **Deadline:** 2026-12-01")
	assert.NotContains(t, md, "Apply")
}
