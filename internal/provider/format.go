package provider

import (
	"encoding/json"
	"strings"
)

// ServiceFallbackText is returned by the /counselling endpoint when reply
// generation fails, so callers always receive displayable text.
const ServiceFallbackText = "I'm here to support you. Based on what you've shared, here are a few next steps you might consider:\n\n" +
	"• Write down your top 2–3 goals for the next 3 months.\n" +
	"• Identify one small task you can complete this week toward each goal.\n" +
	"• Reflect on what resources or support you need to move forward.\n\n" +
	"Next step: " + ServiceFallbackFollowUp

// ServiceFallbackFollowUp is the follow-up question paired with ServiceFallbackText.
const ServiceFallbackFollowUp = "Would you like to focus on skills, opportunities, or planning your next actions?"

// Reply is a structured mentor answer.
type Reply struct {
	Answer    string   `json:"answer"`
	FollowUp  string   `json:"follow_up_question"`
	KeyPoints []string `json:"key_points"`
}

// ParseReply decodes a model answer. Models sometimes wrap the answer in a
// JSON object; plain text is returned as the answer unchanged.
func ParseReply(raw string) Reply {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		var r Reply
		if err := json.Unmarshal([]byte(text), &r); err == nil {
			r.Answer = strings.TrimSpace(r.Answer)
			r.FollowUp = strings.TrimSpace(r.FollowUp)
			return r
		}
	}
	return Reply{Answer: text}
}

// Text renders the reply for display: normalized paragraphs, an optional key
// points block and a trailing "Next step:" paragraph.
func (r Reply) Text() string {
	var b strings.Builder
	b.WriteString(NormalizeParagraphs(r.Answer))

	var bullets []string
	for _, pt := range r.KeyPoints {
		if pt = strings.TrimSpace(pt); pt != "" {
			bullets = append(bullets, "• "+pt)
		}
	}
	if len(bullets) > 0 {
		b.WriteString("\n\nKey points:\n")
		b.WriteString(strings.Join(bullets, "\n"))
	}
	if r.FollowUp != "" {
		b.WriteString("\n\nNext step: ")
		b.WriteString(r.FollowUp)
	}
	return strings.TrimSpace(b.String())
}

// FormatReply parses and renders a raw model answer.
func FormatReply(raw string) string {
	return ParseReply(raw).Text()
}

// NormalizeParagraphs puts every non-blank line in its own paragraph.
func NormalizeParagraphs(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n\n")
}
