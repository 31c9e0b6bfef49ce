package backend

import (
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
)

// HistoryTurn is one transcript entry sent with a counseling request.
type HistoryTurn struct {
	Sender    domain.Sender `json:"sender"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
}

// UserProfile is the profile shape accepted by POST /counselling.
type UserProfile struct {
	Name             string `json:"name,omitempty"`
	Age              string `json:"age,omitempty"`
	EducationLevel   string `json:"education_level,omitempty"`
	StreamOfInterest string `json:"stream_of_interest,omitempty"`
}

// ProfileFromDomain converts an intake profile to the wire shape.
func ProfileFromDomain(p domain.Profile) *UserProfile {
	return &UserProfile{
		Name:             p.Name,
		Age:              p.Age,
		EducationLevel:   p.EducationLevel,
		StreamOfInterest: p.StreamOfInterest,
	}
}

// Domain converts the wire profile back to an intake profile.
func (p *UserProfile) Domain() domain.Profile {
	if p == nil {
		return domain.Profile{}
	}
	return domain.Profile{
		Name:             p.Name,
		Age:              p.Age,
		EducationLevel:   p.EducationLevel,
		StreamOfInterest: p.StreamOfInterest,
	}
}

// CounselingRequest is the body of POST /counselling.
type CounselingRequest struct {
	UserMessage         string        `json:"user_message"`
	SessionID           string        `json:"session_id,omitempty"`
	ConversationHistory []HistoryTurn `json:"conversation_history,omitempty"`
	UserProfile         *UserProfile  `json:"user_profile,omitempty"`
}

// CounselingResponse is the body returned by POST /counselling.
type CounselingResponse struct {
	Success          bool   `json:"success"`
	Text             string `json:"text,omitempty"`
	Answer           string `json:"answer"`
	FollowUpQuestion string `json:"follow_up_question"`
	Raw              any    `json:"raw,omitempty"`
}

// Reply returns the display text, preferring Text over Answer.
func (r *CounselingResponse) Reply() string {
	if r == nil {
		return ""
	}
	if r.Text != "" {
		return r.Text
	}
	return r.Answer
}

// SearchRequest is the body of POST /api/opportunities/search.
type SearchRequest struct {
	Q              string `json:"q,omitempty"`
	Type           string `json:"type,omitempty"`
	EducationLevel string `json:"education_level,omitempty"`
	Domain         string `json:"domain,omitempty"`
	Location       string `json:"location,omitempty"`
	DeadlineBefore string `json:"deadline_before,omitempty"`
	Sort           string `json:"sort,omitempty"`
	Page           int    `json:"page,omitempty"`
	PageSize       int    `json:"page_size,omitempty"`
	Source         string `json:"source,omitempty"`
}

// SearchResponse is the body returned by the search endpoint. Total is -1
// when the count is approximate.
type SearchResponse struct {
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Items    []domain.Opportunity `json:"items"`
	Partial  bool                 `json:"partial"`
	Cached   bool                 `json:"cached"`
}

// SaveOpportunityRequest is the body of POST /api/users/{uid}/saved_opportunities.
type SaveOpportunityRequest struct {
	OpportunityID string `json:"opportunityId"`
}

// SuccessResponse is the generic {success} acknowledgement.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// RecommendedResponse is the body returned by GET /api/users/{uid}/recommended.
type RecommendedResponse struct {
	Success bool                 `json:"success"`
	Items   []domain.Opportunity `json:"items"`
}
