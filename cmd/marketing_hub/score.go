package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/jonathan/marketing-hub/internal/scoring"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score and rank leads in a lead file",
	Long:  "Compute the 0-100 lead score for every lead in a file and print them best first with their tier and per-category breakdown.",
	RunE:  runScore,
}

var (
	scoreInput string
	scoreTier  string
	scoreJSON  bool
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreInput, "input", "i", "", "Path to a YAML or JSON lead file (required)")
	scoreCmd.Flags().StringVar(&scoreTier, "tier", "", "Only print leads in this tier (Hot, Warm, Cold, Low)")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print results as JSON")

	if err := scoreCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	tier, err := parseTier(scoreTier)
	if err != nil {
		return err
	}

	leads, err := loadLeads(scoreInput)
	if err != nil {
		return err
	}

	ranked := scoring.Rank(leads)
	if tier != "" {
		ranked = slices.DeleteFunc(ranked, func(s scoring.Scored) bool { return s.Tier != tier })
	}

	out := cmd.OutOrStdout()
	if scoreJSON {
		return writeJSON(out, ranked)
	}
	return printScores(out, ranked)
}

// parseTier accepts a tier name in any case. Empty means no filter.
func parseTier(raw string) (scoring.Tier, error) {
	if raw == "" {
		return "", nil
	}
	for _, t := range scoring.Tiers {
		if strings.EqualFold(raw, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tier %q: must be one of Hot, Warm, Cold, Low", raw)
}

func printScores(w io.Writer, ranked []scoring.Scored) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tCOMPANY\tSCORE\tTIER\tCONTACT\tSIZE\tSERVICE\tREGION\tENGAGEMENT")
	for _, s := range ranked {
		b := s.Breakdown
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
			s.Lead.ID, s.Lead.CompanyName, s.Score, s.Tier,
			b.Contact, b.Size, b.Service, b.Region, b.Engagement)
	}
	return tw.Flush()
}
