package guidance

import (
	"fmt"
	"strings"
)

// MentorFallbackText answers a mentor question that could not be handled.
const MentorFallbackText = "I'm here to help! Could you please rephrase your question or provide more details?"

const mentorDefaultAnswer = "That's an interesting perspective! Could you tell me more about your specific situation or goals? " +
	"This will help me provide more targeted advice."

// mentorRules are checked in order; the first rule with a keyword contained
// in the question answers it.
var mentorRules = []struct {
	keywords []string
	answer   string
}{
	{
		keywords: []string{"skill", "learn"},
		answer: "Focus on building both technical and soft skills. For technical skills, consider learning programming languages " +
			"like Python or JavaScript, and tools like Git and cloud platforms. For soft skills, work on communication, " +
			"problem-solving, and collaboration. I recommend starting with one technical skill and mastering it before moving to the next.",
	},
	{
		keywords: []string{"resume", "cv"},
		answer: "Your resume should be tailored to each job application. Use action verbs, quantify your achievements, and " +
			"highlight relevant projects. Make sure it's ATS-friendly with clear formatting.",
	},
	{
		keywords: []string{"interview", "prepare"},
		answer: "Interview preparation involves researching the company, practicing common questions, and preparing examples " +
			"using the STAR method. For technical roles, practice coding problems and system design. Mock interviews can be very helpful.",
	},
	{
		keywords: []string{"trend", "industry"},
		answer: "Current industry trends include AI/ML integration, remote work adoption, sustainability focus, and digital " +
			"transformation. Cybersecurity, data science, and cloud computing are particularly hot areas. Companies are also " +
			"valuing soft skills more than ever.",
	},
	{
		keywords: []string{"degree", "education"},
		answer: "Whether to pursue further education depends on your career goals and current situation. For some roles, " +
			"experience and certifications may be more valuable than additional degrees. Consider your financial situation, " +
			"time commitment, and whether the degree will directly advance your career goals.",
	},
}

// MentorAnswer answers a free-form mentor question by keyword.
func MentorAnswer(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return MentorFallbackText
	}
	for _, rule := range mentorRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.answer
			}
		}
	}
	return mentorDefaultAnswer
}

// MentorWelcome is the opening message of the mentor chat.
func MentorWelcome(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s! 👋 I'm your AI Career Mentor. I'm here to provide personalized guidance, answer your "+
		"questions, and help you navigate your career journey.\n\n"+
		"What would you like to explore today? You can ask me about:\n"+
		"• Career advice and planning\n"+
		"• Skill development recommendations\n"+
		"• Industry insights and trends\n"+
		"• Interview preparation\n"+
		"• Resume and portfolio feedback\n"+
		"• Learning resources and courses", name)
}
