package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	vidsearch "github.com/kailas-cloud/vidsearch/pkg/sdk"
)

var (
	searchQuery    string
	searchLocation string
	searchLimit    int
	searchTopK     int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a semantic search",
	Long: `Run the full search pipeline and print the ranked videos.

Examples:
  vidsearchctl search -q "old trams on steep streets"
  vidsearchctl search -q "sunset over water" --location Lisbon --limit 3 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().StringVarP(&searchLocation, "location", "l", "", "restrict results to a location")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "number of results (default 5)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "candidates per query variant (default 5)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	_ = searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.Search(ctx, searchQuery, vidsearch.SearchOptions{
		Location: searchLocation,
		Limit:    searchLimit,
		TopK:     searchTopK,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResults(cmd.OutOrStdout(), res)
	return nil
}

func printResults(w io.Writer, res vidsearch.SearchResponse) {
	if len(res.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
	} else {
		fmt.Fprintf(w, "Found %d results for: %s\n\n", len(res.Results), res.Query)
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	for i, r := range res.Results {
		fmt.Fprintf(w, "%s %s %s\n",
			color.CyanString("[%d]", i+1),
			bold.Sprint(r.Title),
			dim.Sprintf("(%s, score %.3f)", r.ID, r.Score),
		)
		if r.Location != "" {
			fmt.Fprintf(w, "    %s\n", r.Location)
		}
		if r.Description != "" {
			fmt.Fprintf(w, "    %s\n", truncate(r.Description, 160))
		}
		if r.VideoURL != "" {
			fmt.Fprintf(w, "    %s\n", r.VideoURL)
		}
	}

	if len(res.Fallbacks) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", color.YellowString("degraded:"), strings.Join(res.Fallbacks, ", "))
	}
	fmt.Fprintf(w, "\nsearch id: %s\n", res.SearchID)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
