package cmd

import (
	"testing"

	"github.com/spf13/cobra"

	"squish/internal/codec"
	"squish/internal/processor"
)

func TestTargetFlagsSpec(t *testing.T) {
	f := targetFlags{target: "1.5MB", format: "webp", naming: "prefix", maxAttempts: 8}
	spec, err := f.spec()
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if spec.TargetBytes != 1536*1024 {
		t.Fatalf("target = %d", spec.TargetBytes)
	}
	if spec.OutputFormat != codec.WEBP || spec.Naming != processor.NamingPrefix || spec.MaxSearchAttempts != 8 {
		t.Fatalf("unexpected spec %+v", spec)
	}
}

func TestTargetFlagsRejectBadInput(t *testing.T) {
	cases := []targetFlags{
		{target: "lots", format: "jpeg", naming: "folder", maxAttempts: 10},
		{target: "200KB", format: "gif", naming: "folder", maxAttempts: 10},
		{target: "200KB", format: "jpeg", naming: "sideways", maxAttempts: 10},
		{target: "200KB", format: "jpeg", naming: "folder", maxAttempts: 1},
	}
	for _, f := range cases {
		if _, err := f.spec(); err == nil {
			t.Errorf("expected error for %+v", f)
		}
	}
}

func TestInputArgDefault(t *testing.T) {
	if got := inputArg(nil); got != "in" {
		t.Fatalf("default input = %q", got)
	}
	if got := inputArg([]string{"photos"}); got != "photos" {
		t.Fatalf("input = %q", got)
	}
}

func TestTargetFlagDefaults(t *testing.T) {
	var f targetFlags
	f.register(&cobra.Command{Use: "compress"})

	spec, err := f.spec()
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if spec.TargetBytes != 200*1024 || spec.OutputFormat != codec.WEBP || spec.Naming != processor.NamingFolder {
		t.Fatalf("defaults = %+v", spec)
	}
	if f.output != "out" {
		t.Fatalf("output default = %q", f.output)
	}
}
