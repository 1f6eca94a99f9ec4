package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	vidsearch "github.com/kailas-cloud/vidsearch/pkg/sdk"
)

var seedCmd = &cobra.Command{
	Use:   "seed <pattern>...",
	Short: "Load catalog files into the corpus",
	Long: `Load videos from YAML or JSON catalog files. Patterns support ** globs.
Each file holds either a list of items or a document with an "items" key.

Examples:
  vidsearchctl seed catalog.yaml
  vidsearchctl seed 'catalog/**/*.{yaml,json}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	files, err := expandPatterns(args)
	if err != nil {
		return err
	}
	items, err := loadItems(files)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No items found.")
		return nil
	}

	ctx := cmd.Context()
	client, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Seeding %d items from %d files...\n", len(items), len(files))

	bar := newSeedBar(len(items))
	var barMu sync.Mutex
	start := time.Now()

	results := client.PutItems(ctx, items, func(vidsearch.PutResult) {
		barMu.Lock()
		defer barMu.Unlock()
		_ = bar.Add(1)
	})

	failed := failures(results)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nSeeding complete in %s:\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "  Stored: %s\n", color.GreenString("%d", len(results)-len(failed)))
	if len(failed) == 0 {
		return nil
	}

	fmt.Fprintf(out, "  Failed: %s\n", color.RedString("%d", len(failed)))
	for _, r := range failed {
		fmt.Fprintf(out, "  - %s: %v\n", r.ID, r.Err)
	}
	return fmt.Errorf("%d of %d items failed", len(failed), len(results))
}

func newSeedBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func failures(results []vidsearch.PutResult) []vidsearch.PutResult {
	var out []vidsearch.PutResult
	for _, r := range results {
		if !r.OK {
			out = append(out, r)
		}
	}
	return out
}
