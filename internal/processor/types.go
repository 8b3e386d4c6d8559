package processor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"squish/internal/codec"
	"squish/internal/search"
)

const (
	DefaultMaxSearchAttempts = 10
	DefaultTuneThreshold     = 0.95
)

// NamingMode controls where outputs land relative to the output root.
type NamingMode int

const (
	// NamingFolder writes out/<target>/<rel_dir>/<stem><ext>.
	NamingFolder NamingMode = iota
	// NamingPrefix writes out/<rel_dir>/<stem>_<target>kb<ext>.
	NamingPrefix
)

func (n NamingMode) String() string {
	switch n {
	case NamingFolder:
		return "folder"
	case NamingPrefix:
		return "prefix"
	default:
		return "unknown"
	}
}

func ParseNaming(s string) (NamingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "folder", "":
		return NamingFolder, nil
	case "prefix", "suffix":
		return NamingPrefix, nil
	default:
		return 0, fmt.Errorf("unknown naming mode %q", s)
	}
}

// TargetSpec is the read-only budget shared by every job in a run.
type TargetSpec struct {
	TargetBytes       int64
	OutputFormat      codec.Format
	Naming            NamingMode
	MaxSearchAttempts int
}

func (s TargetSpec) Validate() error {
	if s.TargetBytes <= 0 {
		return fmt.Errorf("processor: target must be positive, got %d", s.TargetBytes)
	}
	if s.MaxSearchAttempts < search.MinAttempts {
		return fmt.Errorf("processor: max search attempts must be at least %d, got %d", search.MinAttempts, s.MaxSearchAttempts)
	}
	if s.Naming != NamingFolder && s.Naming != NamingPrefix {
		return fmt.Errorf("processor: unknown naming mode %d", s.Naming)
	}
	for _, f := range codec.OutputFormats {
		if s.OutputFormat == f {
			return nil
		}
	}
	return fmt.Errorf("processor: unsupported output format %q", s.OutputFormat)
}

func (s TargetSpec) isWholeKB() bool { return s.TargetBytes%1024 == 0 }

// FolderName is the directory used under NamingFolder: the target in KB, or
// in bytes with a "b" suffix when it is not a whole number of KB.
func (s TargetSpec) FolderName() string {
	if s.isWholeKB() {
		return strconv.FormatInt(s.TargetBytes/1024, 10)
	}
	return strconv.FormatInt(s.TargetBytes, 10) + "b"
}

// Suffix is appended to the stem under NamingPrefix.
func (s TargetSpec) Suffix() string {
	if s.isWholeKB() {
		return "_" + strconv.FormatInt(s.TargetBytes/1024, 10) + "kb"
	}
	return "_" + strconv.FormatInt(s.TargetBytes, 10) + "b"
}

type Status int

const (
	StatusCopied Status = iota + 1
	StatusCompressed
	StatusFailed
	// StatusSkipped is a job abandoned on request. It is neither a success
	// nor a failure.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusCopied:
		return "COPIED"
	case StatusCompressed:
		return "COMPRESSED"
	case StatusFailed:
		return "FAILED"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return "PENDING"
	}
}

// Entry is one input handed to Run: an absolute path plus the path relative
// to the input root that determines the output location.
type Entry struct {
	Path    string
	RelPath string
}

// JobOutcome is the immutable record of one processed input.
type JobOutcome struct {
	Index         int
	InputPath     string
	RelPath       string
	OutputPath    string
	OriginalBytes int64
	FinalBytes    int64
	Param         int
	HasParam      bool
	// Method is the secondary effort level, -1 when the format has none.
	Method    int
	Attempts  int
	Status    Status
	TargetMet bool
	ErrorKind string
	Err       error
	Format    codec.Format
	Trace     []search.Attempt
	Elapsed   time.Duration
}

func (o JobOutcome) Succeeded() bool {
	return o.Status == StatusCopied || o.Status == StatusCompressed
}

// Reduction is the size saving in percent, 0 for failed jobs.
func (o JobOutcome) Reduction() float64 {
	if !o.Succeeded() || o.OriginalBytes == 0 {
		return 0
	}
	return float64(o.OriginalBytes-o.FinalBytes) / float64(o.OriginalBytes) * 100
}

type Summary struct {
	Total        int
	Succeeded    int
	Failed       int
	Copied       int
	Compressed   int
	Skipped      int
	TargetMissed int
	BytesBefore  int64
	BytesAfter   int64
}

// BatchReport is the finalized result of a run, ordered by input index.
type BatchReport struct {
	Spec TargetSpec
	// OutputDir is the output root the run wrote under.
	OutputDir string
	Outcomes  []JobOutcome
	Summary   Summary
	Started   time.Time
	Finished  time.Time
	Cancelled bool
}

// ProgressFunc receives every completed job in input order. index is
// zero-based.
type ProgressFunc func(index, total int, outcome JobOutcome)

// ProgressUpdate is the channel form of a ProgressFunc call, consumed by the
// terminal UI.
type ProgressUpdate struct {
	Index   int
	Total   int
	Outcome JobOutcome
}

// SendTo adapts a channel into a ProgressFunc. The caller closes the channel
// once Run returns.
func SendTo(updates chan<- ProgressUpdate) ProgressFunc {
	return func(index, total int, outcome JobOutcome) {
		updates <- ProgressUpdate{Index: index, Total: total, Outcome: outcome}
	}
}

type Options struct {
	Spec TargetSpec
	// OutputDir is the output root; "out" when empty.
	OutputDir string
	// Workers is the number of jobs processed at once; values below 1 mean 1.
	Workers    int
	AutoOrient bool
	// TuneThreshold gates the secondary-knob refinement: it runs while the
	// best size is below TuneThreshold*target. Zero selects the default, a
	// negative value disables refinement.
	TuneThreshold float64
	// WebPMethod is the WEBP encoder effort used by the quality search,
	// 0 (fastest) to codec.MaxWebPMethod. Refinement tries the levels below
	// it.
	WebPMethod int
	// Control pauses and skips jobs while the batch runs; nil disables both.
	Control *Controller
	Logger  *zerolog.Logger
}

// DefaultOptions returns options for spec with every optional knob at its
// default.
func DefaultOptions(spec TargetSpec, outputDir string) Options {
	return Options{
		Spec:          spec,
		OutputDir:     outputDir,
		Workers:       1,
		AutoOrient:    true,
		TuneThreshold: DefaultTuneThreshold,
		WebPMethod:    codec.DefaultWebPMethod,
	}
}

func (o Options) validate() error {
	if err := o.Spec.Validate(); err != nil {
		return err
	}
	if o.WebPMethod < 0 || o.WebPMethod > codec.MaxWebPMethod {
		return fmt.Errorf("processor: webp method must be within 0..%d, got %d", codec.MaxWebPMethod, o.WebPMethod)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.OutputDir == "" {
		o.OutputDir = "out"
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.TuneThreshold == 0 {
		o.TuneThreshold = DefaultTuneThreshold
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}
