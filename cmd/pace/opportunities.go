package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/catalog"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/opportunity"
	"github.com/spf13/cobra"
)

func (a *App) opportunitiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "opportunities",
		Aliases: []string{"opp"},
		Short:   "Search and inspect opportunities",
	}
	cmd.AddCommand(a.opportunitySearchCommand())
	cmd.AddCommand(a.opportunityShowCommand())
	return cmd
}

func (a *App) opportunitySearchCommand() *cobra.Command {
	var req backend.SearchRequest

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search internships, scholarships and other opportunities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Q = args[0]
			}
			resp, err := a.searchOpportunities(cmd.Context(), req)
			if err != nil {
				return err
			}
			printOpportunities(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Type, "type", "", "Opportunity type, e.g. Internship or Scholarship")
	f.StringVar(&req.EducationLevel, "level", "", "Education level")
	f.StringVar(&req.Domain, "domain", "", "Domain, e.g. Technology")
	f.StringVar(&req.Location, "location", "", "Location or country")
	f.StringVar(&req.DeadlineBefore, "deadline-before", "", "Only deadlines on or before YYYY-MM-DD")
	f.StringVar(&req.Sort, "sort", "", "relevance, deadline_soon or newest")
	f.StringVar(&req.Source, "source", "", "Listing source")
	f.IntVar(&req.Page, "page", 1, "Page number")
	f.IntVar(&req.PageSize, "page-size", opportunity.DefaultPageSize, "Results per page")
	return cmd
}

func (a *App) opportunityShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opp, err := a.getOpportunity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			render(cmd.OutOrStdout(), a.renderer(), opportunityMarkdown(opp))
			return nil
		},
	}
}

// upstream returns a backend client when both a URL and a token are known.
func (a *App) upstream() *backend.Client {
	if a.cfg.UpstreamURL == "" || a.Token == "" {
		return nil
	}
	return backend.NewClient(a.cfg.UpstreamURL, a.cfg.Timeout.Upstream, a.logger)
}

func (a *App) catalog() (*catalog.Catalog, error) {
	if a.cfg.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(a.cfg.CatalogPath)
}

func (a *App) searchOpportunities(ctx context.Context, req backend.SearchRequest) (*backend.SearchResponse, error) {
	if client := a.upstream(); client != nil {
		resp, err := client.SearchOpportunities(ctx, a.Token, req)
		if err == nil {
			return resp, nil
		}
		a.logger.Warn("Upstream search failed, using local catalog", "error", err)
	}
	c, err := a.catalog()
	if err != nil {
		return nil, err
	}
	return opportunity.Search(c.Opportunities, req, time.Now())
}

func (a *App) getOpportunity(ctx context.Context, id string) (domain.Opportunity, error) {
	if client := a.upstream(); client != nil {
		opp, err := client.GetOpportunity(ctx, a.Token, id)
		if err == nil {
			return *opp, nil
		}
		a.logger.Warn("Upstream lookup failed, using local catalog", "id", id, "error", err)
	}
	c, err := a.catalog()
	if err != nil {
		return domain.Opportunity{}, err
	}
	opp, ok := opportunity.Lookup(c.Opportunities, id)
	if !ok {
		return domain.Opportunity{}, fmt.Errorf("opportunity %q not found", id)
	}
	return opp, nil
}

func printOpportunities(w io.Writer, resp *backend.SearchResponse) {
	if len(resp.Items) == 0 {
		fmt.Fprintln(w, "No opportunities found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tLOCATION\tDEADLINE")
	for _, o := range resp.Items {
		loc := o.Location
		if o.Remote && loc == "" {
			loc = "Remote"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.ID, o.Title, o.Type, orDash(loc), orDash(o.Deadline))
	}
	_ = tw.Flush()

	total := fmt.Sprint(resp.Total)
	if resp.Total < 0 {
		total = "many"
	}
	fmt.Fprintf(w, "\nPage %d, %d shown of %s.\n", resp.Page, len(resp.Items), total)
}

func opportunityMarkdown(o domain.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", o.Title)
	if o.Company != "" {
		fmt.Fprintf(&b, "**%s** · %s\n\n", o.Company, o.Type)
	} else {
		fmt.Fprintf(&b, "**%s**\n\n", o.Type)
	}

	desc := o.FullDescription
	if desc == "" {
		desc = o.Description
	}
	if desc != "" {
		b.WriteString(desc + "\n\n")
	}

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "- **%s:** %s\n", label, value)
		}
	}
	loc := o.Location
	if o.Remote {
		loc = strings.TrimSpace(loc + " (remote)")
	}
	field("Location", loc)
	field("Deadline", o.Deadline)
	field("Education", strings.Join(o.EducationLevel, ", "))
	field("Domain", strings.Join(o.Domain, ", "))
	field("Skills", strings.Join(o.SkillsRequired, ", "))
	field("Apply", o.ApplyLink)
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
