package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"squish/internal/processor"
	"squish/internal/tui"
	"squish/pkg/imgutil"
)

var planTarget targetFlags

var planCmd = &cobra.Command{
	Use:   "plan [flags] [input]",
	Short: "Show what compress would do without writing anything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := planTarget.spec()
		if err != nil {
			return err
		}
		entries, err := processor.Walk(inputArg(args), planTarget.output)
		if err != nil {
			return err
		}

		items, err := processor.Plan(entries, processor.DefaultOptions(spec, planTarget.output))
		if err != nil {
			return err
		}

		counts := map[processor.Action]int{}
		for i, item := range items {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			counts[item.Action]++
			fmt.Fprintf(os.Stdout, "%s %s\n",
				planFileStyle.Render(item.Entry.RelPath),
				planDimStyle.Render(imgutil.HumanBytes(item.Bytes)),
			)
			switch item.Action {
			case processor.ActionCopy:
				fmt.Fprintf(os.Stdout, "  %s %s\n", planCopyStyle.Render("copy"), planDimStyle.Render("-> "+item.OutputPath))
			case processor.ActionCompress:
				fmt.Fprintf(os.Stdout, "  %s %s\n",
					planCompressStyle.Render(fmt.Sprintf("compress as %s [%d..%d]", item.Format, item.Lo, item.Hi)),
					planDimStyle.Render("-> "+item.OutputPath),
				)
			default:
				fmt.Fprintf(os.Stdout, "  %s %s\n", planFailStyle.Render("fail ("+item.ErrorKind+")"), planDimStyle.Render(item.Err.Error()))
			}
		}

		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout, tui.RenderSummary([]tui.SummaryRow{
			{Label: "Files", Value: fmt.Sprintf("%d", len(items))},
			{Label: "Copy", Value: fmt.Sprintf("%d", counts[processor.ActionCopy])},
			{Label: "Compress", Value: fmt.Sprintf("%d", counts[processor.ActionCompress])},
			{Label: "Fail", Value: fmt.Sprintf("%d", counts[processor.ActionFail])},
		}))
		return nil
	},
}

var (
	planFileStyle     = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	planCopyStyle     = lipgloss.NewStyle().Foreground(tui.ColorSuccess)
	planCompressStyle = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	planFailStyle     = lipgloss.NewStyle().Foreground(tui.ColorError)
	planDimStyle      = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	planTarget.register(planCmd)
	rootCmd.AddCommand(planCmd)
}
