package domain

import (
	"strings"
	"time"
)

// OpportunityType enumerates the kinds of listed opportunities.
type OpportunityType string

const (
	OpportunityInternship  OpportunityType = "Internship"
	OpportunityJob         OpportunityType = "Job"
	OpportunityCompetition OpportunityType = "Competition"
	OpportunityScholarship OpportunityType = "Scholarship"
	OpportunityFellowship  OpportunityType = "Fellowship"
	OpportunityHackathon   OpportunityType = "Hackathon"
	OpportunityOther       OpportunityType = "Other"
)

// Opportunity is a listed internship, job, competition or similar.
type Opportunity struct {
	ID              string          `json:"id" yaml:"id"`
	Title           string          `json:"title" yaml:"title"`
	Company         string          `json:"company,omitempty" yaml:"company"`
	Type            OpportunityType `json:"type" yaml:"type"`
	EducationLevel  []string        `json:"education_level,omitempty" yaml:"education_level"`
	Domain          []string        `json:"domain,omitempty" yaml:"domain"`
	SkillsRequired  []string        `json:"skills_required,omitempty" yaml:"skills_required"`
	Location        string          `json:"location,omitempty" yaml:"location"`
	Country         string          `json:"country,omitempty" yaml:"country"`
	Remote          bool            `json:"remote,omitempty" yaml:"remote"`
	Description     string          `json:"description,omitempty" yaml:"description"`
	FullDescription string          `json:"full_description,omitempty" yaml:"full_description"`
	Deadline        string          `json:"deadline,omitempty" yaml:"deadline"`
	ApplyLink       string          `json:"apply_link,omitempty" yaml:"apply_link"`
	Source          string          `json:"source,omitempty" yaml:"source"`
	Tags            []string        `json:"tags,omitempty" yaml:"tags"`
	PostedAt        string          `json:"posted_at,omitempty" yaml:"posted_at"`
	FetchedAt       string          `json:"fetched_at,omitempty" yaml:"fetched_at"`
}

// DeadlineTime parses Deadline as an ISO date or timestamp.
func (o Opportunity) DeadlineTime() (time.Time, bool) {
	return parseISO(o.Deadline)
}

// PostedTime parses PostedAt as an ISO date or timestamp.
func (o Opportunity) PostedTime() (time.Time, bool) {
	return parseISO(o.PostedAt)
}

func parseISO(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
