package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"squish/internal/processor"
)

// SheetName is the worksheet WriteXLSX fills.
const SheetName = "Image Compression Log"

var columns = []string{
	"Filename",
	"Original Size (KB)",
	"Compressed Quality",
	"Method",
	"Output Size (KB)",
	"Size Reduction (%)",
	"Output Filename",
	"Processing Time (s)",
	"Status",
	"Error",
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// WriteXLSX writes one row per outcome of r to a new workbook at path.
func WriteXLSX(path string, r processor.BatchReport) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}
	if err := sw.SetColWidth(1, 1, 32); err != nil {
		return err
	}
	if err := sw.SetColWidth(2, len(columns), 18); err != nil {
		return err
	}

	header := make([]any, len(columns))
	for i, name := range columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, o := range r.Outcomes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, outcomeRow(r, o)); err != nil {
			return fmt.Errorf("report: row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func outcomeRow(r processor.BatchReport, o processor.JobOutcome) []any {
	quality, method := any("-"), any("-")
	if o.HasParam {
		quality = o.Param
		method = methodLabel(o.Method)
	}

	var outSize, reduction, output any = "", "", ""
	if o.Succeeded() {
		outSize = round(kb(o.FinalBytes), 2)
		reduction = round(o.Reduction(), 1)
		output = relOutput(r, o)
	}

	errText := ""
	if o.Err != nil {
		errText = o.Err.Error()
	}

	return []any{
		o.RelPath,
		round(kb(o.OriginalBytes), 2),
		quality,
		method,
		outSize,
		reduction,
		output,
		round(o.Elapsed.Seconds(), 2),
		o.Status.String(),
		errText,
	}
}
