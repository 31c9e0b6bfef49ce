// Package opportunity filters, sorts and pages opportunity listings.
package opportunity

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/domain"
)

// Sort orders accepted by Search.
const (
	SortRelevance    = "relevance"
	SortDeadlineSoon = "deadline_soon"
	SortNewest       = "newest"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidRequest is returned for malformed search parameters.
var ErrInvalidRequest = errors.New("invalid search request")

// Query is the free-text plus type facet filter used by the opportunity list.
type Query struct {
	Text string
	Type string
}

// Filter returns the items whose title or company contains the query text and
// whose type equals the facet. Matching ignores case; input order is kept.
func Filter(items []domain.Opportunity, q Query) []domain.Opportunity {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	facet := strings.TrimSpace(q.Type)

	out := make([]domain.Opportunity, 0, len(items))
	for _, item := range items {
		if text != "" &&
			!strings.Contains(strings.ToLower(item.Title), text) &&
			!strings.Contains(strings.ToLower(item.Company), text) {
			continue
		}
		if !facetUnset(facet) && !strings.EqualFold(string(item.Type), facet) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Search applies the full search contract to an in-memory listing.
func Search(items []domain.Opportunity, req backend.SearchRequest, now time.Time) (*backend.SearchResponse, error) {
	page, size := req.Page, req.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	var before time.Time
	if v := strings.TrimSpace(req.DeadlineBefore); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return nil, fmt.Errorf("%w: deadline_before must be YYYY-MM-DD", ErrInvalidRequest)
		}
		before = t
	}

	sortBy := strings.ToLower(strings.TrimSpace(req.Sort))
	switch sortBy {
	case "", SortRelevance, SortDeadlineSoon, SortNewest:
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidRequest, req.Sort)
	}

	q := strings.ToLower(strings.TrimSpace(req.Q))
	matched := make([]domain.Opportunity, 0, len(items))
	for _, item := range items {
		if q != "" && !matchesText(item, q) {
			continue
		}
		if !facetUnset(req.Type) && !strings.EqualFold(string(item.Type), strings.TrimSpace(req.Type)) {
			continue
		}
		if !levelUnset(req.EducationLevel) && !matchesAny(item.EducationLevel, req.EducationLevel, true) {
			continue
		}
		if !facetUnset(req.Domain) && !matchesAny(item.Domain, req.Domain, false) {
			continue
		}
		if !facetUnset(req.Location) && !matchesLocation(item, req.Location) {
			continue
		}
		if !facetUnset(req.Source) && !strings.EqualFold(item.Source, strings.TrimSpace(req.Source)) {
			continue
		}
		if !before.IsZero() {
			d, ok := item.DeadlineTime()
			if !ok || d.After(before) {
				continue
			}
		}
		matched = append(matched, item)
	}

	switch sortBy {
	case SortDeadlineSoon:
		sortByDeadline(matched, now)
	case SortNewest:
		sortByPosted(matched)
	}

	total := len(matched)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := min(start+size, total)

	return &backend.SearchResponse{
		Total:    total,
		Page:     page,
		PageSize: size,
		Items:    slices.Clone(matched[start:end]),
	}, nil
}

// Recent returns up to n items in newest-first order.
func Recent(items []domain.Opportunity, n int) []domain.Opportunity {
	out := slices.Clone(items)
	sortByPosted(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Lookup finds an item by ID.
func Lookup(items []domain.Opportunity, id string) (domain.Opportunity, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.Opportunity{}, false
}

func facetUnset(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

func levelUnset(v string) bool {
	return facetUnset(v) || strings.EqualFold(strings.TrimSpace(v), "auto")
}

func matchesText(item domain.Opportunity, q string) bool {
	if strings.Contains(strings.ToLower(item.Title), q) ||
		strings.Contains(strings.ToLower(item.Company), q) ||
		strings.Contains(strings.ToLower(item.Description), q) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// matchesAny reports whether want equals one of values. When openIfEmpty is
// set, an item with no values matches everything.
func matchesAny(values []string, want string, openIfEmpty bool) bool {
	if len(values) == 0 {
		return openIfEmpty
	}
	want = strings.TrimSpace(want)
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func matchesLocation(item domain.Opportunity, loc string) bool {
	loc = strings.ToLower(strings.TrimSpace(loc))
	if loc == "remote" && (item.Remote || strings.Contains(strings.ToLower(item.Location), "remote")) {
		return true
	}
	return strings.Contains(strings.ToLower(item.Location), loc) ||
		strings.Contains(strings.ToLower(item.Country), loc)
}

// sortByDeadline puts upcoming deadlines first (soonest first), then past
// deadlines, then items without a deadline.
func sortByDeadline(items []domain.Opportunity, now time.Time) {
	today := now.Truncate(24 * time.Hour)
	rank := func(o domain.Opportunity) (int, time.Time) {
		d, ok := o.DeadlineTime()
		switch {
		case !ok:
			return 2, time.Time{}
		case d.Before(today):
			return 1, d
		default:
			return 0, d
		}
	}
	slices.SortStableFunc(items, func(a, b domain.Opportunity) int {
		ra, da := rank(a)
		rb, db := rank(b)
		if ra != rb {
			return ra - rb
		}
		return da.Compare(db)
	})
}

// sortByPosted orders by posting time, newest first, undated last.
func sortByPosted(items []domain.Opportunity) {
	slices.SortStableFunc(items, func(a, b domain.Opportunity) int {
		pa, okA := a.PostedTime()
		pb, okB := b.PostedTime()
		switch {
		case okA && okB:
			return pb.Compare(pa)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
}
