package cmd

import (
	"github.com/spf13/cobra"

	"squish/internal/codec"
	"squish/internal/processor"
	"squish/pkg/imgutil"
)

// targetFlags are shared by compress and plan.
type targetFlags struct {
	target      string
	format      string
	naming      string
	output      string
	maxAttempts int
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.target, "target", "t", "200KB", "target size per file, e.g. 200KB, 1.5MB or a byte count")
	cmd.Flags().StringVarP(&f.format, "format", "f", "webp", "output format: webp, jpeg, png, heif or original")
	cmd.Flags().StringVar(&f.naming, "naming", "folder", "output naming: folder (out/<size>/...) or prefix (<name>_<size>kb)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "out", "output folder")
	cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", processor.DefaultMaxSearchAttempts, "encode attempts allowed per image")
}

func (f *targetFlags) spec() (processor.TargetSpec, error) {
	target, err := imgutil.ParseSize(f.target)
	if err != nil {
		return processor.TargetSpec{}, err
	}
	format, err := codec.ParseFormat(f.format)
	if err != nil {
		return processor.TargetSpec{}, err
	}
	naming, err := processor.ParseNaming(f.naming)
	if err != nil {
		return processor.TargetSpec{}, err
	}
	spec := processor.TargetSpec{
		TargetBytes:       target,
		OutputFormat:      format,
		Naming:            naming,
		MaxSearchAttempts: f.maxAttempts,
	}
	return spec, spec.Validate()
}

func inputArg(args []string) string {
	if len(args) == 0 {
		return "in"
	}
	return args[0]
}
