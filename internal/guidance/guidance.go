// Package guidance implements the rule-based career guidance features:
// career recommendations, learning paths, skill gaps and mentor matching.
package guidance

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Rahul-s27/Pace/internal/domain"
)

// MaxRecommendations caps the careers returned by Recommend.
const MaxRecommendations = 3

// Recommend returns the careers whose triggers match the questionnaire answers
// or the profile's stream, in catalog order. When nothing matches, the
// fallback careers are returned instead.
func Recommend(careers []domain.Career, profile domain.Profile, answers map[string]string) []domain.Career {
	var out []domain.Career
	for _, c := range careers {
		if c.Fallback {
			continue
		}
		if triggered(c, profile, answers) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		for _, c := range careers {
			if c.Fallback {
				out = append(out, c)
			}
		}
	}
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

func triggered(c domain.Career, profile domain.Profile, answers map[string]string) bool {
	for key, values := range c.Triggers {
		answer := strings.TrimSpace(answers[key])
		if answer == "" {
			continue
		}
		for _, v := range values {
			if strings.EqualFold(answer, v) {
				return true
			}
		}
	}
	stream := strings.TrimSpace(profile.StreamOfInterest)
	if stream == "" {
		return false
	}
	for _, s := range c.Streams {
		if strings.EqualFold(stream, s) {
			return true
		}
	}
	return false
}

// LearningPath returns the base path renumbered from 1.
func LearningPath(steps []domain.LearningStep) []domain.LearningStep {
	out := slices.Clone(steps)
	slices.SortStableFunc(out, func(a, b domain.LearningStep) int { return a.Step - b.Step })
	for i := range out {
		out[i].Step = i + 1
	}
	return out
}

// PathwaysFor returns pathways tagged with the stream, or all of them when the
// stream is empty or nothing is tagged with it.
func PathwaysFor(pathways []domain.Pathway, stream string) []domain.Pathway {
	stream = strings.TrimSpace(stream)
	if stream == "" {
		return pathways
	}
	var out []domain.Pathway
	for _, p := range pathways {
		for _, s := range p.Streams {
			if strings.EqualFold(s, stream) {
				out = append(out, p)
				break
			}
		}
	}
	if len(out) == 0 {
		return pathways
	}
	return out
}

// GapStatus classifies how far a skill is from its target.
type GapStatus string

const (
	GapExcellent        GapStatus = "excellent"
	GapGood             GapStatus = "good"
	GapNeedsImprovement GapStatus = "needs-improvement"
	GapCritical         GapStatus = "critical"
)

// StatusFor maps a skill gap to its status.
func StatusFor(s domain.Skill) GapStatus {
	gap := s.Gap()
	switch {
	case gap <= 10:
		return GapExcellent
	case gap <= 25:
		return GapGood
	case gap <= 50:
		return GapNeedsImprovement
	default:
		return GapCritical
	}
}

// SkillReport is one skill annotated with its gap.
type SkillReport struct {
	domain.Skill
	Gap    int       `json:"gap"`
	Status GapStatus `json:"status"`
}

// GapReport summarizes the learner's skills.
type GapReport struct {
	OverallProgress float64                  `json:"overallProgress"`
	Categories      map[string][]SkillReport `json:"categories"`
	TopPriority     []SkillReport            `json:"topPriority"`
}

// Analyze builds the full skill gap report.
func Analyze(skills []domain.Skill) GapReport {
	report := GapReport{
		OverallProgress: OverallProgress(skills),
		Categories:      make(map[string][]SkillReport),
	}
	for _, s := range skills {
		report.Categories[s.Category] = append(report.Categories[s.Category], reportFor(s))
	}
	for _, s := range TopPriority(skills, 5) {
		report.TopPriority = append(report.TopPriority, reportFor(s))
	}
	return report
}

func reportFor(s domain.Skill) SkillReport {
	return SkillReport{Skill: s, Gap: s.Gap(), Status: StatusFor(s)}
}

// OverallProgress is 100 minus the total gap as a percentage of the total
// required level, floored at zero.
func OverallProgress(skills []domain.Skill) float64 {
	var gap, required int
	for _, s := range skills {
		gap += s.Gap()
		required += s.RequiredLevel
	}
	if required == 0 {
		return 100
	}
	return math.Max(0, 100-float64(gap)/float64(required)*100)
}

// TopPriority returns up to n High importance skills, largest gap first.
func TopPriority(skills []domain.Skill, n int) []domain.Skill {
	var out []domain.Skill
	for _, s := range skills {
		if strings.EqualFold(s.Importance, "High") {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Skill) int { return b.Gap() - a.Gap() })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MentorFilter narrows the mentor list. Empty or "all" fields are unset.
type MentorFilter struct {
	Query        string `json:"query"`
	Availability string `json:"availability"`
	Expertise    string `json:"expertise"`
	Experience   string `json:"experience"` // junior or senior
	Rating       string `json:"rating"`     // minimum rating
	Location     string `json:"location"`
}

// MatchMentors filters mentors and orders them by match score, best first.
func MatchMentors(mentors []domain.Mentor, f MentorFilter) []domain.Mentor {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	minRating := -1.0
	if !unset(f.Rating) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(f.Rating), 64); err == nil {
			minRating = v
		}
	}

	out := make([]domain.Mentor, 0, len(mentors))
	for _, m := range mentors {
		if q != "" && !mentorMatchesText(m, q) {
			continue
		}
		if !unset(f.Availability) && !strings.EqualFold(m.Availability, strings.TrimSpace(f.Availability)) {
			continue
		}
		if !unset(f.Expertise) && !slices.Contains(m.Expertise, strings.TrimSpace(f.Expertise)) {
			continue
		}
		if !unset(f.Experience) && !matchesExperience(m.Experience, f.Experience) {
			continue
		}
		if m.Rating < minRating {
			continue
		}
		if !unset(f.Location) && !strings.Contains(strings.ToLower(m.Location), strings.ToLower(strings.TrimSpace(f.Location))) {
			continue
		}
		out = append(out, m)
	}

	slices.SortStableFunc(out, func(a, b domain.Mentor) int { return b.MatchScore - a.MatchScore })
	return out
}

func unset(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

func mentorMatchesText(m domain.Mentor, q string) bool {
	if strings.Contains(strings.ToLower(m.Name), q) ||
		strings.Contains(strings.ToLower(m.Title), q) ||
		strings.Contains(strings.ToLower(m.Company), q) {
		return true
	}
	for _, e := range m.Expertise {
		if strings.Contains(strings.ToLower(e), q) {
			return true
		}
	}
	return false
}

func matchesExperience(experience, level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "junior":
		return strings.Contains(experience, "3-5")
	case "senior":
		return strings.Contains(experience, "5+") ||
			strings.Contains(experience, "8+") ||
			strings.Contains(experience, "10+")
	default:
		return false
	}
}

// RecommendOpportunities ranks opportunities for a profile: listings open to the
// learner's education level come first, then those in the learner's stream.
// Ties keep the input order.
func RecommendOpportunities(items []domain.Opportunity, profile domain.Profile, n int) []domain.Opportunity {
	level := strings.TrimSpace(profile.EducationLevel)
	stream := strings.TrimSpace(profile.StreamOfInterest)

	score := func(o domain.Opportunity) int {
		s := 0
		if level != "" && containsFold(o.EducationLevel, level) {
			s += 2
		}
		if stream != "" && (containsFold(o.Domain, stream) || containsFold(o.Tags, stream)) {
			s++
		}
		return s
	}

	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b domain.Opportunity) int { return score(b) - score(a) })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
