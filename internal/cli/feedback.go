package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	feedbackSearchID string
	feedbackUser     string
	feedbackHelpful  bool
	feedbackList     bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Rate a search or list its ratings",
	Long: `Record whether a search was helpful. The videos shown by the search
are attached to the record automatically.

Examples:
  vidsearchctl feedback --search-id 6f1c... --user u-1 --helpful
  vidsearchctl feedback --search-id 6f1c... --list`,
	RunE: runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.Flags().StringVar(&feedbackSearchID, "search-id", "", "search to rate (required)")
	feedbackCmd.Flags().StringVar(&feedbackUser, "user", "", "user submitting the rating")
	feedbackCmd.Flags().BoolVar(&feedbackHelpful, "helpful", false, "mark the search as helpful")
	feedbackCmd.Flags().BoolVar(&feedbackList, "list", false, "list existing ratings instead")
	_ = feedbackCmd.MarkFlagRequired("search-id")
}

func runFeedback(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	if feedbackList {
		records, err := client.Feedback(ctx, feedbackSearchID)
		if err != nil {
			return fmt.Errorf("list feedback: %w", err)
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "No feedback yet.")
			return nil
		}
		for _, r := range records {
			fmt.Fprintf(out, "%s  %-12s %s  %v\n",
				r.CreatedAt.Format("2006-01-02 15:04:05"), r.UserID, verdict(r.Helpful), r.ItemIDs)
		}
		return nil
	}

	if feedbackUser == "" {
		return fmt.Errorf("--user is required when submitting feedback")
	}
	fb, err := client.SubmitFeedback(ctx, feedbackSearchID, feedbackUser, feedbackHelpful)
	if err != nil {
		return fmt.Errorf("submit feedback: %w", err)
	}
	fmt.Fprintf(out, "Recorded %s feedback %s for %d videos\n", verdict(fb.Helpful), fb.ID, len(fb.ItemIDs))
	return nil
}

func verdict(helpful bool) string {
	if helpful {
		return color.GreenString("helpful")
	}
	return color.RedString("not helpful")
}
