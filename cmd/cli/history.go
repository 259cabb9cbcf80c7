package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/wire"
)

var (
	historyLimit int
	outputJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List past reviews, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reviewer, cleanup, err := wire.InitializeReviewer()
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer cleanup()

		if !reviewer.Config.Database.Enabled() {
			warnColor.Println("No history database configured; only reviews from this process are kept.")
		}

		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid review id %q", args[0])
			}
			rev, err := reviewer.Store.GetReview(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printReview(rev)
		}

		reviews, err := reviewer.Store.ListReviews(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list reviews: %w", err)
		}
		return printHistory(reviews)
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of reviews to list")
	historyCmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func printHistory(reviews []core.Review) error {
	if outputJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(reviews)
	}
	if len(reviews) == 0 {
		infoColor.Println("No reviews yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tSOURCE\tTARGET\tPROVIDER\tSTATUS")
	for _, r := range reviews {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Source, target(r), r.Provider, r.Status)
	}
	return w.Flush()
}

func printReview(r *core.Review) error {
	if outputJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	}
	titleColor.Printf("Review %d: %s\n", r.ID, target(*r))
	dimColor.Printf("%s · %s · %s · %s\n\n", r.Provider, r.Model, r.Status, r.CreatedAt.Local().Format(time.DateTime))
	printMarkdown(r.ReviewContent)
	return nil
}

func target(r core.Review) string {
	switch {
	case r.PRNumber > 0:
		return fmt.Sprintf("%s#%d", r.RepoFullName, r.PRNumber)
	case r.RepoFullName != "" && r.HeadSHA != "":
		return r.RepoFullName + "@" + truncateSHA(r.HeadSHA)
	case r.RepoFullName != "":
		return r.RepoFullName
	default:
		return "-"
	}
}
