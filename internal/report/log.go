// Package report turns a finished batch into a text log and a spreadsheet.
package report

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"squish/internal/codec"
	"squish/internal/processor"
)

const (
	DefaultLogDir  = "logs"
	DefaultLogFile = "log.txt"
)

// Paths returns the text log path and the spreadsheet path that sits next to
// it with an .xlsx extension.
func Paths(logDir, logFile string) (logPath, xlsxPath string) {
	if logDir == "" {
		logDir = DefaultLogDir
	}
	if logFile == "" {
		logFile = DefaultLogFile
	}
	logPath = filepath.Join(logDir, logFile)
	xlsxPath = strings.TrimSuffix(logPath, filepath.Ext(logPath)) + ".xlsx"
	return logPath, xlsxPath
}

func kb(b int64) float64 { return float64(b) / 1024 }

// knobName is how the search parameter of a format is labelled.
func knobName(f codec.Format) string {
	if f == codec.PNG {
		return "compression level"
	}
	return "quality"
}

// methodLabel renders the secondary effort level, "N/A" when there is none.
func methodLabel(method int) string {
	if method < 0 {
		return "N/A"
	}
	return fmt.Sprint(method)
}

func relOutput(r processor.BatchReport, o processor.JobOutcome) string {
	if r.OutputDir != "" {
		if rel, err := filepath.Rel(r.OutputDir, o.OutputPath); err == nil {
			return rel
		}
	}
	return o.OutputPath
}

// WriteLog writes the human-readable log of r to w.
func WriteLog(w io.Writer, r processor.BatchReport) error {
	bw := bufio.NewWriter(w)
	line := func(format string, args ...any) {
		fmt.Fprintf(bw, format+"\n", args...)
	}

	format := strings.ToUpper(string(r.Spec.OutputFormat))
	line("Image Compression Log")
	line("Date: %s", r.Started.Format(time.DateTime))
	line("Target Size: %s | Format: %s | Mode: %s", targetLabel(r.Spec.TargetBytes), format, r.Spec.Naming)
	line("%s", strings.Repeat("-", 60))

	for _, o := range r.Outcomes {
		line("Processing: %s", o.RelPath)
		line("  Original size: %.2f KB", kb(o.OriginalBytes))

		switch o.Status {
		case processor.StatusCopied:
			line("  No compression needed - copied to output")
			line("  Output size: %.2f KB", kb(o.FinalBytes))
		case processor.StatusCompressed:
			name := knobName(o.Format)
			for _, a := range o.Trace {
				if a.Level >= 0 {
					line("  Tuning method for Q%d: %d (%.2f KB)", a.Param, a.Level, kb(a.Bytes))
					continue
				}
				line("  Trying %s: %d (%.2f KB)", name, a.Param, kb(a.Bytes))
			}
			line("  Compressed with %s: %d (method: %s)", name, o.Param, methodLabel(o.Method))
			line("  Output size: %.2f KB", kb(o.FinalBytes))
			line("  Size reduction: %.1f%%", o.Reduction())
			if !o.TargetMet {
				line("  Target not reached: smallest encoding kept")
			}
		case processor.StatusSkipped:
			line("  Skipped by user: %s", o.RelPath)
			continue
		default:
			line("  Error processing %s: %v", o.RelPath, o.Err)
			continue
		}
		line("  Saved as: %s", relOutput(r, o))
	}

	s := r.Summary
	line("%s", strings.Repeat("-", 60))
	if r.Cancelled {
		line("Stopped by user")
	}
	line("Processed: %d | Copied: %d | Compressed: %d | Target missed: %d | Failed: %d | Skipped: %d",
		s.Total, s.Copied, s.Compressed, s.TargetMissed, s.Failed, s.Skipped)
	line("Total size: %.2f KB -> %.2f KB", kb(s.BytesBefore), kb(s.BytesAfter))
	line("Elapsed: %.2f s", r.Finished.Sub(r.Started).Seconds())

	return bw.Flush()
}

func targetLabel(b int64) string {
	if b%1024 == 0 {
		return fmt.Sprintf("%d KB", b/1024)
	}
	return fmt.Sprintf("%d B", b)
}
