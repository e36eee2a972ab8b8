package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/marketing-hub/internal/dedupe"
	"github.com/jonathan/marketing-hub/internal/types"
	"github.com/spf13/cobra"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find duplicate leads in a lead file",
	Long: `Group leads that likely describe the same company. Leads are compared pairwise and
grouped when their confidence reaches 70. --min-confidence only hides weaker groups
from the output; it does not change how groups are formed.`,
	RunE: runDedupe,
}

var (
	dedupeInput         string
	dedupeMinConfidence int
	dedupeJSON          bool
)

func init() {
	dedupeCmd.Flags().StringVarP(&dedupeInput, "input", "i", "", "Path to a YAML or JSON lead file (required)")
	dedupeCmd.Flags().IntVar(&dedupeMinConfidence, "min-confidence", dedupe.Threshold, "Only print groups at or above this confidence")
	dedupeCmd.Flags().BoolVar(&dedupeJSON, "json", false, "Print groups as JSON")

	if err := dedupeCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(dedupeCmd)
}

func runDedupe(cmd *cobra.Command, _ []string) error {
	if dedupeMinConfidence < 0 || dedupeMinConfidence > 100 {
		return fmt.Errorf("--min-confidence must be between 0 and 100, got %d", dedupeMinConfidence)
	}

	leads, err := loadLeads(dedupeInput)
	if err != nil {
		return err
	}

	groups := filterGroups(dedupe.Detect(leads), dedupeMinConfidence)

	out := cmd.OutOrStdout()
	if dedupeJSON {
		if groups == nil {
			groups = []*dedupe.Group{}
		}
		return writeJSON(out, groups)
	}
	printGroups(out, groups, len(leads))
	return nil
}

func filterGroups(groups []*dedupe.Group, minConfidence int) []*dedupe.Group {
	var kept []*dedupe.Group
	for _, g := range groups {
		if g.Confidence >= minConfidence {
			kept = append(kept, g)
		}
	}
	return kept
}

func printGroups(w io.Writer, groups []*dedupe.Group, scanned int) {
	_, _ = fmt.Fprintf(w, "Found %d duplicate group(s) among %d leads\n", len(groups), scanned)
	for i, g := range groups {
		_, _ = fmt.Fprintf(w, "\nGroup %d: %s match, %d%% confidence\n", i+1, g.MatchType, g.Confidence)
		for j, l := range g.Leads {
			marker := " "
			if j == 0 {
				marker = "*"
			}
			_, _ = fmt.Fprintf(w, "  %s %s  %s%s\n", marker, l.ID, l.CompanyName, contactSuffix(l))
		}
		_, _ = fmt.Fprintf(w, "  Reasons: %s\n", strings.Join(g.Reasons, ", "))
	}
}

func contactSuffix(l *types.Lead) string {
	if l.Email == "" {
		return ""
	}
	return " <" + l.Email + ">"
}
