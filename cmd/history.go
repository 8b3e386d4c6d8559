package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"squish/internal/history"
	"squish/internal/tui"
	"squish/pkg/imgutil"
)

var (
	historyDB    string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or the files of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(historyDB)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			outcomes, err := store.Outcomes(cmd.Context(), id)
			if err != nil {
				return err
			}
			t := newTable("#", "File", "Status", "Param", "Before", "After", "Error")
			for _, o := range outcomes {
				param := "-"
				if o.HasParam {
					param = strconv.Itoa(o.Param)
				}
				t.Row(strconv.Itoa(o.Index+1), o.RelPath, o.Status, param,
					imgutil.HumanBytes(o.OriginalBytes), imgutil.HumanBytes(o.FinalBytes), o.Error)
			}
			fmt.Fprintln(os.Stdout, t.String())
			return nil
		}

		runs, err := store.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stdout, "No runs recorded.")
			return nil
		}
		t := newTable("Run", "Started", "Target", "Format", "Files", "Failed", "Skipped", "Missed", "Before", "After")
		for _, r := range runs {
			started := r.Started.Format("2006-01-02 15:04")
			if r.Cancelled {
				started += " (cancelled)"
			}
			t.Row(strconv.FormatInt(r.ID, 10), started, imgutil.HumanBytes(r.TargetBytes), r.OutputFormat,
				strconv.Itoa(r.Summary.Total), strconv.Itoa(r.Summary.Failed), strconv.Itoa(r.Summary.Skipped),
				strconv.Itoa(r.Summary.TargetMissed),
				imgutil.HumanBytes(r.Summary.BytesBefore), imgutil.HumanBytes(r.Summary.BytesAfter))
		}
		fmt.Fprintln(os.Stdout, t.String())
		return nil
	},
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(tui.ColorDim)).
		Headers(headers...)
}

func init() {
	historyCmd.Flags().StringVar(&historyDB, "db", history.DefaultPath(), "history database path (env "+history.EnvPath+")")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")

	rootCmd.AddCommand(historyCmd)
}
