package processor

import (
	"errors"
	"path/filepath"

	"squish/internal/codec"
	"squish/pkg/imgutil"
)

// Action is what a run would do with a file.
type Action string

const (
	ActionCopy     Action = "copy"
	ActionCompress Action = "compress"
	ActionFail     Action = "fail"
)

// PlanItem is the dry-run decision for one entry.
type PlanItem struct {
	Entry      Entry
	Bytes      int64
	Action     Action
	Format     codec.Format
	Lo, Hi     int
	OutputPath string
	ErrorKind  string
	Err        error
}

// Plan reports what Run would do with entries without decoding or writing
// anything. Only the file header is read to pick a strategy.
func Plan(entries []Entry, opts Options) ([]PlanItem, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	planned := planJobs(entries, opts)
	items := make([]PlanItem, 0, len(planned))
	for _, j := range planned {
		item := PlanItem{Entry: j.entry, Bytes: j.size, OutputPath: j.outputPath}

		fail := func(err error) {
			item.Action = ActionFail
			item.ErrorKind = KindOf(err)
			item.Err = err
		}

		switch {
		case j.statErr != nil:
			fail(jobError(ErrDecode, j.statErr))
		case samePath(j.outputPath, j.entry.Path):
			fail(jobError(ErrWrite, errors.New("output path resolves to the input")))
		case j.copy:
			item.Action = ActionCopy
			if f, err := codec.FromKind(imgutil.KindFromExt(filepath.Ext(j.entry.Path))); err == nil {
				item.Format = f
			}
		default:
			kind, err := imgutil.SniffFile(j.entry.Path)
			if err == nil && kind == imgutil.KindUnknown {
				err = errors.New("unrecognized image header")
			}
			if err != nil {
				fail(jobError(ErrDecode, err))
				break
			}
			strategy, err := resolveStrategy(kind, opts)
			if err != nil {
				fail(err)
				break
			}
			if kind == imgutil.KindHEIF && !codec.HEIFDecoderAvailable() {
				fail(jobError(ErrUnsupportedFormat, errors.New("no HEIF decoder installed")))
				break
			}
			item.Action = ActionCompress
			item.Format = strategy.Format()
			item.Lo, item.Hi = strategy.Range()
		}
		items = append(items, item)
	}
	return items, nil
}
