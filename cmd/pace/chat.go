package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/provider"
	"github.com/Rahul-s27/Pace/internal/session"
	"github.com/spf13/cobra"
)

const cliUserID = "cli"

func (a *App) chatCommand() *cobra.Command {
	var profile domain.Profile

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a counseling session",
		Long: `Start a timed counseling session. Type a message and press enter to send it.

Commands:
  /time   show the time left
  /end    end the session and print the summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewScanner(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			if err := promptProfile(in, out, &profile); err != nil {
				return err
			}
			return a.runChat(cmd.Context(), in, out, profile)
		},
	}

	cmd.Flags().StringVar(&profile.Name, "name", "", "Your name")
	cmd.Flags().StringVar(&profile.Age, "age", "", "Your age")
	cmd.Flags().StringVar(&profile.EducationLevel, "education", "", "Current education level")
	cmd.Flags().StringVar(&profile.StreamOfInterest, "stream", "", "Stream of interest (optional)")
	return cmd
}

// promptProfile asks for each required field the flags left empty.
func promptProfile(in *bufio.Scanner, out io.Writer, p *domain.Profile) error {
	fields := []struct {
		label string
		value *string
	}{
		{"Name", &p.Name},
		{"Age", &p.Age},
		{"Education level", &p.EducationLevel},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.value) != "" {
			continue
		}
		fmt.Fprintf(out, "%s: ", f.label)
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w: missing %s", domain.ErrInvalidProfile, strings.ToLower(f.label))
		}
		*f.value = in.Text()
	}
	return p.Normalized().Validate()
}

func (a *App) runChat(ctx context.Context, in *bufio.Scanner, out io.Writer, profile domain.Profile) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var counselor provider.Counselor
	if a.cfg.UpstreamURL != "" {
		counselor = backend.NewClient(a.cfg.UpstreamURL, a.cfg.Timeout.Upstream, a.logger)
	}
	source, err := provider.NewSource(ctx, a.cfg, counselor, a.logger)
	if err != nil {
		return err
	}

	sess, err := session.Start(profile, session.Options{
		UserID: cliUserID,
		Config: session.Config{
			Budget:          a.cfg.Session.Budget,
			TickInterval:    a.cfg.Session.TickInterval,
			TurnThreshold:   a.cfg.Session.TurnThreshold,
			GraceDelay:      a.cfg.Session.GraceDelay,
			ResponseTimeout: a.cfg.Session.ResponseTimeout,
		},
		Provider: source(a.Token),
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	events, unsubscribe := sess.Subscribe(64)
	defer unsubscribe()

	snap, err := sess.Snapshot(ctx)
	if err != nil {
		return err
	}
	r := a.renderer()
	for _, msg := range snap.Messages {
		printMessage(out, r, msg)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		for in.Scan() {
			select {
			case lines <- in.Text():
			case <-sess.Done():
				return
			}
		}
	}()

	c := &chat{sess: sess, out: out}
	for {
		select {
		case <-ctx.Done():
			_, _ = sess.End(context.Background(), session.EndUserRequested)
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case session.EventMessage:
				if ev.Message == nil || ev.Message.Sender != domain.SenderMentor {
					continue
				}
				printMessage(out, r, *ev.Message)
				c.pending = false
				if err := c.drain(ctx); err != nil {
					return err
				}
			case session.EventEnded:
				fmt.Fprintf(out, "\nSession ended (%s).\n", ev.Reason)
				if ev.Summary != "" {
					render(out, r, "## Summary\n\n"+ev.Summary)
				}
				return nil
			}

		case line, ok := <-lines:
			if !ok {
				lines = nil
				c.eof = true
			} else {
				c.queue = append(c.queue, line)
			}
			if err := c.drain(ctx); err != nil {
				return err
			}
		}
	}
}

// chat sequences terminal input against the one-reply-at-a-time session.
// Lines typed while a reply is pending are held until it arrives.
type chat struct {
	sess    *session.Session
	out     io.Writer
	queue   []string
	pending bool
	eof     bool
}

func (c *chat) drain(ctx context.Context) error {
	for !c.pending && len(c.queue) > 0 {
		line := strings.TrimSpace(c.queue[0])
		c.queue = c.queue[1:]

		switch line {
		case "":
			continue
		case "/end", "/quit", "/exit":
			return c.end(ctx)
		case "/time":
			snap, err := c.sess.Snapshot(ctx)
			if err != nil {
				return err
			}
			left := time.Duration(snap.RemainingSeconds) * time.Second
			fmt.Fprintf(c.out, "%s left, %d turns so far.\n", left, snap.Turns)
			continue
		}

		_, ok, err := c.sess.Submit(ctx, line)
		switch {
		case errors.Is(err, session.ErrSessionEnded), errors.Is(err, session.ErrClosed):
			return nil
		case errors.Is(err, session.ErrAwaitingResponse):
			c.queue = append([]string{line}, c.queue...)
			c.pending = true
		case err != nil:
			return err
		case ok:
			c.pending = true
		}
	}
	if c.eof && !c.pending && len(c.queue) == 0 {
		return c.end(ctx)
	}
	return nil
}

func (c *chat) end(ctx context.Context) error {
	c.queue = nil
	_, err := c.sess.End(ctx, session.EndUserRequested)
	if errors.Is(err, session.ErrClosed) {
		return nil
	}
	return err
}

func printMessage(w io.Writer, r renderer, msg domain.Message) {
	if msg.Sender == domain.SenderUser {
		fmt.Fprintf(w, "> %s\n", msg.Content)
		return
	}
	render(w, r, provider.NormalizeParagraphs(msg.Content))
}
