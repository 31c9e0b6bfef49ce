package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/session"
	"google.golang.org/genai"
)

const (
	geminiTemperature     float32 = 0.45
	geminiMaxOutputTokens int32   = 1536
	geminiHistoryTurns            = 5
)

const counselingInstruction = `You are an adaptive counselling assistant specializing in career guidance and personal development. Your role is to:

1. Provide clear, supportive, and detailed answers to the user's questions or concerns
2. Structure your reply as:
   - 1-2 short introductory paragraphs
   - 3-7 concise bullet points (use bullets, not dashes or numbers)
   - 1 unique, context-aware follow-up question (never generic)
3. Never use JSON, code blocks, or any markup. Output only plain text suitable for direct display in a chat UI.
4. Maintain a professional yet empathetic counselling tone
5. Guide the user step-by-step toward deeper understanding

Important guidelines:
- Be empathetic and non-judgmental
- Ask open-ended questions that encourage self-reflection
- Build on previous conversation context
- Focus on career guidance, personal development, and educational pathways
- Keep responses conversational yet professional
- Aim for a thorough response (8-12 sentences + bullets) with concrete, actionable suggestions where appropriate
- Do NOT use any generic or repeated follow-up questions. Every follow-up must be tailored to the user's message and your answer, and always appear as the last paragraph prefixed with 'Next step:'`

const replyGuidance = `Reply in plain text ONLY (no JSON, no code blocks). Use:
- 1-2 short introductory paragraphs
- 3-7 concise bullet points (use bullets, not dashes or numbers)
- End with a unique, context-aware follow-up question as the last paragraph, prefixed with 'Next step:'`

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates replies directly with the Gemini API.
type Gemini struct {
	models contentGenerator
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("google API key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGemini(client.Models, model, logger), nil
}

func newGemini(models contentGenerator, model string, logger *slog.Logger) *Gemini {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{models: models, model: model, logger: logger}
}

// Respond implements session.ResponseProvider.
func (g *Gemini) Respond(ctx context.Context, req session.Request) (string, error) {
	temperature := geminiTemperature
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(counselingInstruction, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   geminiMaxOutputTokens,
	}
	contents := []*genai.Content{genai.NewContentFromText(BuildPrompt(req), genai.RoleUser)}

	result, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Error("Gemini request failed", "error", err, "session_id", req.SessionID)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(responseText(result))
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	g.logger.Debug("Gemini response received", "content_length", len(text), "session_id", req.SessionID)
	return FormatReply(text), nil
}

// BuildPrompt renders the profile, recent history and current message.
func BuildPrompt(req session.Request) string {
	var b strings.Builder

	if ctx := profileContext(req.Profile); ctx != "" {
		b.WriteString(ctx)
		b.WriteString("\n")
	}

	history := req.History
	if len(history) > geminiHistoryTurns {
		history = history[len(history)-geminiHistoryTurns:]
	}
	if len(history) > 0 {
		b.WriteString("Recent Conversation:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Sender, t.Content)
		}
	}

	fmt.Fprintf(&b, "User's current message: %s\n\n", req.UserMessage)
	b.WriteString(replyGuidance)
	return b.String()
}

func profileContext(p domain.Profile) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, "Name: "+p.Name)
	}
	if p.Age != "" {
		parts = append(parts, "Age: "+p.Age)
	}
	if p.EducationLevel != "" {
		parts = append(parts, "Education Level: "+p.EducationLevel)
	}
	if p.StreamOfInterest != "" {
		parts = append(parts, "Stream of Interest: "+p.StreamOfInterest)
	}
	if len(parts) == 0 {
		return ""
	}
	return "User Profile: " + strings.Join(parts, ", ")
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" || part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
