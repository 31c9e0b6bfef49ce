package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Rahul-s27/Pace/internal/config"
	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// App holds the global CLI flags and the resolved configuration.
type App struct {
	Provider    string
	UpstreamURL string
	Token       string
	CatalogPath string
	Plain       bool
	Verbose     bool
	Timeout     time.Duration

	cfg    *config.Config
	logger *slog.Logger
}

// NewApp creates the CLI application.
func NewApp() *App {
	return &App{}
}

// RootCommand builds the command tree.
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pace",
		Short: "Career counseling in your terminal",
		Long: `pace runs a timed counseling session with an AI mentor and lets you
search internships, scholarships and other opportunities.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.Provider, "provider", "", "Response provider: upstream, gemini or scripted (default from PROVIDER)")
	root.PersistentFlags().StringVar(&a.UpstreamURL, "upstream", "", "Backend base URL (default from UPSTREAM_URL)")
	root.PersistentFlags().StringVar(&a.Token, "token", os.Getenv("PACE_TOKEN"), "Bearer token for the backend")
	root.PersistentFlags().StringVar(&a.CatalogPath, "catalog", "", "Catalog YAML file (default: embedded catalog)")
	root.PersistentFlags().BoolVar(&a.Plain, "plain", false, "Print replies without Markdown styling")
	root.PersistentFlags().BoolVarP(&a.Verbose, "verbose", "v", false, "Verbose logging")
	root.PersistentFlags().DurationVar(&a.Timeout, "timeout", 30*time.Second, "Backend request timeout")

	root.AddCommand(a.chatCommand())
	root.AddCommand(a.opportunitiesCommand())
	root.AddCommand(a.careersCommand())
	return root
}

func (a *App) setup(stderr io.Writer) error {
	level := slog.LevelWarn
	if a.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if err := godotenv.Load(); err != nil {
		a.logger.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.UpstreamURL != "" {
		cfg.UpstreamURL = a.UpstreamURL
		if a.Provider == "" {
			cfg.Provider = config.ProviderUpstream
		}
	}
	if a.Provider != "" {
		cfg.Provider = a.Provider
	}
	if a.CatalogPath != "" {
		cfg.CatalogPath = a.CatalogPath
	}
	cfg.Timeout.Upstream = a.Timeout
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// renderer turns Markdown into terminal output.
type renderer interface {
	Render(in string) (string, error)
}

type plainRenderer struct{}

func (plainRenderer) Render(in string) (string, error) { return in + "\n", nil }

func (a *App) renderer() renderer {
	if a.Plain {
		return plainRenderer{}
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		a.logger.Debug("Falling back to plain output", "error", err)
		return plainRenderer{}
	}
	return r
}

func render(w io.Writer, r renderer, markdown string) {
	out, err := r.Render(markdown)
	if err != nil {
		out = markdown + "\n"
	}
	fmt.Fprint(w, out)
}
