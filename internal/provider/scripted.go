package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/session"
)

// scriptedFollowUps are asked in order, one per completed turn.
var scriptedFollowUps = []string{
	"What kind of problems do you enjoy solving, even when nobody asks you to?",
	"Do you picture yourself working more with people, with data, or with your hands?",
	"Which school subjects or projects made you proudest, and why?",
	"How do you feel about further study after your current level: excited, unsure, or hesitant?",
	"Are there any careers you've already ruled out? What put you off them?",
	"What matters most to you in a future job: stability, creativity, impact, or income?",
	"Who in your life has a career you admire, and what stands out about it?",
	"If you could try one role for a week, which would you pick?",
}

// Scripted is an offline provider that cycles through canned counseling
// questions. It never fails.
type Scripted struct{}

// NewScripted creates the offline provider.
func NewScripted() *Scripted { return &Scripted{} }

// Respond implements session.ResponseProvider.
func (Scripted) Respond(ctx context.Context, req session.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	turn := 0
	for _, t := range req.History {
		if t.Sender == domain.SenderUser {
			turn++
		}
	}
	if turn > 0 {
		turn--
	}
	followUp := scriptedFollowUps[turn%len(scriptedFollowUps)]

	ack := "Thanks for sharing that."
	if msg := strings.TrimSpace(req.UserMessage); msg != "" {
		ack = fmt.Sprintf("Thanks for sharing that you said %q.", truncate(msg, 80))
	}
	intro := ack + " Reflecting on answers like this is how a clear direction starts to form."
	if req.Profile.StreamOfInterest != "" {
		intro += fmt.Sprintf(" Let's keep connecting it to your interest in %s.", req.Profile.StreamOfInterest)
	}

	return Reply{Answer: intro, FollowUp: followUp}.Text(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
