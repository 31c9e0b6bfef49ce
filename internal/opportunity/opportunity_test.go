package opportunity

import (
	"testing"
	"time"

	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(items []domain.Opportunity) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	items := []domain.Opportunity{
		{ID: "1", Title: "Backend Job", Type: "JOB"},
		{ID: "2", Title: "ML Hackathon", Type: "HACKATHON"},
	}

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "text only", query: Query{Text: "job"}, want: []string{"1"}},
		{name: "facet only", query: Query{Type: "HACKATHON"}, want: []string{"2"}},
		{name: "no match", query: Query{Text: "xyz"}, want: []string{}},
		{name: "empty query matches all", query: Query{}, want: []string{"1", "2"}},
		{name: "all facet is unset", query: Query{Type: "all"}, want: []string{"1", "2"}},
		{name: "facet ignores case", query: Query{Type: "hackathon"}, want: []string{"2"}},
		{name: "trimmed text", query: Query{Text: "  ML "}, want: []string{"2"}},
		{name: "intersection", query: Query{Text: "job", Type: "HACKATHON"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(items, tt.query))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterMatchesCompany(t *testing.T) {
	items := []domain.Opportunity{
		{ID: "1", Title: "Intern", Company: "Acme Robotics"},
		{ID: "2", Title: "Intern", Company: "Globex"},
	}
	assert.Equal(t, []string{"1"}, ids(Filter(items, Query{Text: "acme"})))
}

var catalog = []domain.Opportunity{
	{ID: "a", Title: "Data Science Internship", Company: "Acme", Type: domain.OpportunityInternship,
		EducationLevel: []string{"College"}, Domain: []string{"Data"}, Location: "Bangalore", Country: "India",
		Deadline: "2025-03-01", PostedAt: "2025-01-10", Tags: []string{"python"}, Source: "unstop"},
	{ID: "b", Title: "Design Sprint", Company: "Globex", Type: domain.OpportunityCompetition,
		Domain: []string{"Design"}, Location: "Remote", Remote: true,
		Deadline: "2025-02-01", PostedAt: "2025-01-20"},
	{ID: "c", Title: "STEM Scholarship", Company: "Initech", Type: domain.OpportunityScholarship,
		EducationLevel: []string{"School"}, Location: "Delhi", Country: "India",
		PostedAt: "2024-12-01"},
	{ID: "d", Title: "Backend Job", Company: "Hooli", Type: domain.OpportunityJob,
		EducationLevel: []string{"Graduate"}, Domain: []string{"Software"}, Location: "Berlin", Country: "Germany",
		Deadline: "2024-12-15", Remote: true},
}

func TestSearchFilters(t *testing.T) {
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  backend.SearchRequest
		want []string
	}{
		{name: "everything", req: backend.SearchRequest{}, want: []string{"a", "b", "c", "d"}},
		{name: "tag match", req: backend.SearchRequest{Q: "PYTHON"}, want: []string{"a"}},
		{name: "type", req: backend.SearchRequest{Type: "internship"}, want: []string{"a"}},
		{name: "type all", req: backend.SearchRequest{Type: "All"}, want: []string{"a", "b", "c", "d"}},
		{name: "education open when unlisted", req: backend.SearchRequest{EducationLevel: "School"}, want: []string{"b", "c"}},
		{name: "education auto", req: backend.SearchRequest{EducationLevel: "Auto"}, want: []string{"a", "b", "c", "d"}},
		{name: "domain", req: backend.SearchRequest{Domain: "design"}, want: []string{"b"}},
		{name: "remote", req: backend.SearchRequest{Location: "Remote"}, want: []string{"b", "d"}},
		{name: "country", req: backend.SearchRequest{Location: "india"}, want: []string{"a", "c"}},
		{name: "deadline before", req: backend.SearchRequest{DeadlineBefore: "2025-02-01"}, want: []string{"b", "d"}},
		{name: "source", req: backend.SearchRequest{Source: "UNSTOP"}, want: []string{"a"}},
		{name: "deadline soon", req: backend.SearchRequest{Sort: SortDeadlineSoon}, want: []string{"b", "a", "d", "c"}},
		{name: "newest", req: backend.SearchRequest{Sort: SortNewest}, want: []string{"b", "a", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Search(catalog, tt.req, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(resp.Items))
			assert.Equal(t, len(tt.want), resp.Total)
		})
	}
}

func TestSearchPaging(t *testing.T) {
	now := time.Now()

	resp, err := Search(catalog, backend.SearchRequest{Page: 2, PageSize: 3}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids(resp.Items))
	assert.Equal(t, 4, resp.Total)
	assert.Equal(t, 2, resp.Page)

	resp, err = Search(catalog, backend.SearchRequest{Page: 9}, now)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, DefaultPageSize, resp.PageSize)

	resp, err = Search(catalog, backend.SearchRequest{PageSize: 1000}, now)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, resp.PageSize)
}

func TestSearchRejectsBadParams(t *testing.T) {
	_, err := Search(catalog, backend.SearchRequest{DeadlineBefore: "next week"}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = Search(catalog, backend.SearchRequest{Sort: "rating"}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRecentAndLookup(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, ids(Recent(catalog, 2)))

	item, ok := Lookup(catalog, "c")
	require.True(t, ok)
	assert.Equal(t, "STEM Scholarship", item.Title)

	_, ok = Lookup(catalog, "zzz")
	assert.False(t, ok)
}
