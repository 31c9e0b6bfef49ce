package main

import (
	"fmt"
	"strings"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/guidance"
	"github.com/spf13/cobra"
)

func (a *App) careersCommand() *cobra.Command {
	var (
		stream  string
		answers map[string]string
	)

	cmd := &cobra.Command{
		Use:   "careers",
		Short: "Recommend careers from questionnaire answers",
		Example: `  pace careers --answer favorite_subject=computer --answer work_environment=remote
  pace careers --stream arts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.catalog()
			if err != nil {
				return err
			}
			profile := domain.Profile{StreamOfInterest: stream}
			careers := guidance.Recommend(c.Careers, profile, answers)
			path := guidance.LearningPath(c.LearningPath)
			render(cmd.OutOrStdout(), a.renderer(), careersMarkdown(careers, path))
			return nil
		},
	}

	cmd.Flags().StringVar(&stream, "stream", "", "Stream of interest")
	cmd.Flags().StringToStringVar(&answers, "answer", nil, "Questionnaire answer as key=value (repeatable)")
	return cmd
}

func careersMarkdown(careers []domain.Career, path []domain.LearningStep) string {
	var b strings.Builder
	b.WriteString("# Recommended careers\n\n")
	for _, c := range careers {
		fmt.Fprintf(&b, "## %s (%d%% match)\n\n%s\n\n", c.Title, c.Match, c.Description)
		if c.SalaryRange != "" {
			fmt.Fprintf(&b, "- **Salary:** %s\n", c.SalaryRange)
		}
		if c.Growth != "" {
			fmt.Fprintf(&b, "- **Growth:** %s\n", c.Growth)
		}
		if len(c.Skills) > 0 {
			fmt.Fprintf(&b, "- **Skills:** %s\n", strings.Join(c.Skills, ", "))
		}
		b.WriteString("\n")
	}

	if len(path) > 0 {
		b.WriteString("# Learning path\n\n")
		for _, s := range path {
			fmt.Fprintf(&b, "%d. **%s** (%s): %s\n", s.Step, s.Title, s.Timeframe, s.Description)
		}
	}
	return b.String()
}
