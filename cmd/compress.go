package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"squish/internal/codec"
	"squish/internal/history"
	"squish/internal/processor"
	"squish/internal/report"
	"squish/internal/tui"
)

var (
	compressTarget     targetFlags
	compressWorkers    int
	compressNoOrient   bool
	compressTune       float64
	compressWebPMethod int
	compressLogDir     string
	compressLogFile    string
	compressNoReport   bool
	compressNoProgress bool
	compressHistory    bool
	compressHistoryDB  string
)

var compressCmd = &cobra.Command{
	Use:   "compress [flags] [input]",
	Short: "Compress every image under input to the target size",
	Long: "compress walks input (default \"in\"), copies files already within the target and " +
		"re-encodes the rest at the highest quality that fits. A text log and an .xlsx sheet " +
		"are written to the log folder.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := compressTarget.spec()
		if err != nil {
			return err
		}

		input := inputArg(args)
		entries, err := processor.Walk(input, compressTarget.output)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintf(os.Stdout, "No supported image files found in %q.\n", input)
			return nil
		}

		opts := processor.DefaultOptions(spec, compressTarget.output)
		opts.Workers = compressWorkers
		opts.AutoOrient = !compressNoOrient
		opts.TuneThreshold = compressTune
		opts.WebPMethod = compressWebPMethod
		opts.Control = &processor.Controller{}
		opts.Logger = &log.Logger

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var sink processor.ProgressFunc
		var uiDone <-chan struct{}
		updates := make(chan processor.ProgressUpdate, 64)
		if !compressNoProgress {
			sink = processor.SendTo(updates)
			program := tea.NewProgram(tui.NewModel(updates, len(entries), cancel, opts.Control))
			uiDone = showProgress(program, updates)
		}

		result, err := processor.Run(ctx, entries, opts, sink)
		close(updates)
		if uiDone != nil {
			<-uiDone
		}
		if err != nil {
			return err
		}

		var logPath, xlsxPath string
		if !compressNoReport {
			if logPath, xlsxPath, err = writeReports(result); err != nil {
				return err
			}
		}

		if compressHistory {
			store, err := history.Open(compressHistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()
			id, err := store.SaveReport(context.WithoutCancel(ctx), result)
			if err != nil {
				return err
			}
			log.Info().Int64("run", id).Str("db", compressHistoryDB).Msg("run recorded")
		}

		fmt.Fprintln(os.Stdout, tui.RenderSummary(tui.ReportRows(result)))
		outPath := compressTarget.output
		if abs, absErr := filepath.Abs(outPath); absErr == nil {
			outPath = abs
		}
		fmt.Fprintf(os.Stdout, "Compressed files written to: %s\n", outPath)
		if logPath != "" {
			fmt.Fprintf(os.Stdout, "Log written to: %s and %s\n", logPath, xlsxPath)
		}
		return nil
	},
}

type progressView interface {
	Run() (tea.Model, error)
}

// showProgress runs view until it quits. Whatever the view leaves unread is
// drained so the batch never blocks on a dead UI.
func showProgress(view progressView, updates <-chan processor.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := view.Run(); err != nil {
			log.Error().Err(err).Msg("progress view failed")
		}
		for range updates {
		}
	}()
	return done
}

func writeReports(result processor.BatchReport) (string, string, error) {
	logPath, xlsxPath := report.Paths(compressLogDir, compressLogFile)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return "", "", err
	}

	f, err := os.Create(logPath)
	if err != nil {
		return "", "", err
	}
	if err := report.WriteLog(f, result); err != nil {
		_ = f.Close()
		return "", "", err
	}
	if err := f.Close(); err != nil {
		return "", "", err
	}

	if err := report.WriteXLSX(xlsxPath, result); err != nil {
		return "", "", err
	}
	return logPath, xlsxPath, nil
}

func init() {
	compressTarget.register(compressCmd)
	compressCmd.Flags().IntVarP(&compressWorkers, "workers", "w", 1, "images processed in parallel")
	compressCmd.Flags().IntVar(&compressWebPMethod, "webp-method", codec.DefaultWebPMethod, "WEBP encoder effort for the quality search, 0 (fast) to 6 (smallest)")
	compressCmd.Flags().BoolVar(&compressNoOrient, "no-orient", false, "do not apply EXIF orientation before encoding")
	compressCmd.Flags().Float64Var(&compressTune, "tune-threshold", processor.DefaultTuneThreshold, "tune the WEBP method only while the result is below this fraction of the target (negative disables)")
	compressCmd.Flags().StringVar(&compressLogDir, "log-dir", report.DefaultLogDir, "folder for the text log and spreadsheet")
	compressCmd.Flags().StringVar(&compressLogFile, "log-file", report.DefaultLogFile, "text log file name; the spreadsheet uses the same name with .xlsx")
	compressCmd.Flags().BoolVar(&compressNoReport, "no-report", false, "skip writing the log and spreadsheet")
	compressCmd.Flags().BoolVar(&compressNoProgress, "no-progress", false, "disable the progress view")
	compressCmd.Flags().BoolVar(&compressHistory, "history", false, "record the run in the history database")
	compressCmd.Flags().StringVar(&compressHistoryDB, "history-db", history.DefaultPath(), "history database path (env "+history.EnvPath+")")

	rootCmd.AddCommand(compressCmd)
}
