package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	vidsearch "github.com/kailas-cloud/vidsearch/pkg/sdk"
)

var statusMonth bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store health and token usage",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusMonth, "month", false, "report monthly instead of daily usage")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	h := client.Health(ctx)
	fmt.Fprintf(out, "status: %s\n", colorStatus(h.Status))
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-12s %s\n", name, colorStatus(h.Checks[name]))
	}

	period := vidsearch.PeriodDay
	if statusMonth {
		period = vidsearch.PeriodMonth
	}
	u := client.Usage(ctx, period)
	fmt.Fprintf(out, "\nusage (%s, %s): %d tokens", u.Period, u.Provider, u.Budget.TokensUsed)
	if u.Budget.TokensLimit > 0 {
		fmt.Fprintf(out, " of %d", u.Budget.TokensLimit)
	}
	fmt.Fprintln(out)
	ops := make([]string, 0, len(u.Budget.TokensByOperation))
	for op := range u.Budget.TokensByOperation {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(out, "  %-12s %d\n", op, u.Budget.TokensByOperation[op])
	}
	if u.Budget.IsExhausted {
		fmt.Fprintln(out, color.RedString("budget exhausted until %s", u.Budget.ResetsAt.Format("2006-01-02 15:04")))
	}
	return nil
}

func colorStatus(s string) string {
	if s == "ok" {
		return color.GreenString(s)
	}
	return color.YellowString(s)
}
