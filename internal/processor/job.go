package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"squish/internal/codec"
	"squish/internal/search"
	"squish/pkg/imgutil"
)

// job is one planned entry. Size and output path are fixed before any worker
// starts so that naming does not depend on scheduling.
type job struct {
	index      int
	entry      Entry
	size       int64
	statErr    error
	copy       bool
	outputPath string
}

func planJobs(entries []Entry, opts Options) []job {
	claims := newPathClaims()
	jobs := make([]job, 0, len(entries))

	var reencodeExt string
	if opts.Spec.OutputFormat != codec.Original {
		if s, err := codec.For(opts.Spec.OutputFormat); err == nil {
			reencodeExt = s.Extension()
		}
	}

	for i, entry := range entries {
		j := job{index: i, entry: entry}
		srcExt := filepath.Ext(entry.RelPath)

		info, err := os.Stat(entry.Path)
		switch {
		case err != nil:
			j.statErr = err
		case !info.Mode().IsRegular():
			j.statErr = fmt.Errorf("%s is not a regular file", entry.Path)
		default:
			j.size = info.Size()
			j.copy = j.size <= opts.Spec.TargetBytes
		}

		ext := srcExt
		if !j.copy && reencodeExt != "" {
			ext = reencodeExt
		}
		j.outputPath = claims.claim(outputPath(opts.OutputDir, opts.Spec, entry.RelPath, ext), srcExt)
		jobs = append(jobs, j)
	}
	return jobs
}

// resolveStrategy picks the strategy used to re-encode a source of kind into
// the requested format, failing with the job error kind when it cannot run.
func resolveStrategy(kind imgutil.Kind, opts Options) (codec.Strategy, error) {
	format, err := opts.Spec.OutputFormat.Resolve(kind)
	if err != nil {
		return nil, jobError(ErrUnsupportedFormat, err)
	}
	var strategy codec.Strategy
	if format == codec.WEBP {
		strategy, err = codec.WebP(opts.WebPMethod)
	} else {
		strategy, err = codec.For(format)
	}
	if err != nil {
		return nil, jobError(ErrUnsupportedFormat, err)
	}
	if !strategy.Controllable() {
		return nil, jobError(ErrUncontrollableFormat, fmt.Errorf("%w: %s", codec.ErrUncontrollable, format))
	}
	if !strategy.Available() {
		return nil, jobError(ErrUnsupportedFormat, fmt.Errorf("%w: %s encoder not available", codec.ErrUnsupported, format))
	}
	return strategy, nil
}

// Compression is the in-memory result of fitting one image to a target.
type Compression struct {
	Data      []byte
	Status    Status
	Format    codec.Format
	Extension string
	Param     int
	HasParam  bool
	Method    int
	Attempts  int
	TargetMet bool
	Trace     []search.Attempt
	Source    SourceImage
}

// CompressBytes runs the size check and, when needed, the quality search on
// an encoded image held in memory. Inputs already within the target come back
// unchanged with StatusCopied.
func CompressBytes(data []byte, opts Options) (Compression, error) {
	if err := opts.validate(); err != nil {
		return Compression{}, err
	}
	opts = opts.withDefaults()

	if int64(len(data)) <= opts.Spec.TargetBytes {
		c := Compression{Data: data, Status: StatusCopied, Method: -1, TargetMet: true}
		if kind, err := imgutil.DetectHeader(data); err == nil {
			if f, err := codec.FromKind(kind); err == nil {
				c.Format = f
				if s, err := codec.For(f); err == nil {
					c.Extension = s.Extension()
				}
			}
		}
		return c, nil
	}
	return encodeToTarget(data, opts)
}

func encodeToTarget(data []byte, opts Options) (Compression, error) {
	spec := opts.Spec

	kind, err := imgutil.DetectHeader(data)
	if err != nil {
		return Compression{}, jobError(ErrDecode, err)
	}
	if kind == imgutil.KindUnknown {
		return Compression{}, jobError(ErrDecode, errors.New("unrecognized image header"))
	}

	strategy, err := resolveStrategy(kind, opts)
	if err != nil {
		return Compression{}, err
	}

	src, err := decodeSource(data, opts.AutoOrient)
	if err != nil {
		return Compression{}, err
	}
	img := strategy.Prepare(src.Image)

	lo, hi := strategy.Range()
	res, err := search.Run(func(param int) ([]byte, error) {
		if opts.Control.takeSkip() {
			return nil, ErrSkipped
		}
		return strategy.Encode(img, param)
	}, lo, hi, spec.TargetBytes, spec.MaxSearchAttempts)
	if err != nil {
		return Compression{}, jobError(ErrEncode, err)
	}

	if r, ok := strategy.(codec.Refiner); ok {
		param := res.Param
		res.Level = r.DefaultLevel()
		res, err = search.Refine(res, func(level int) ([]byte, error) {
			if opts.Control.takeSkip() {
				return nil, ErrSkipped
			}
			return r.EncodeLevel(img, param, level)
		}, r.Levels(), spec.TargetBytes, spec.MaxSearchAttempts, opts.TuneThreshold)
		if err != nil {
			return Compression{}, jobError(ErrEncode, err)
		}
	}

	return Compression{
		Data:      res.Data,
		Status:    StatusCompressed,
		Format:    strategy.Format(),
		Extension: strategy.Extension(),
		Param:     res.Param,
		HasParam:  true,
		Method:    res.Level,
		Attempts:  res.Attempts,
		TargetMet: res.TargetMet,
		Trace:     res.Trace,
		Source:    src,
	}, nil
}

// process runs one planned job to completion. It never returns early on
// failure: every path yields an outcome.
func process(ctx context.Context, j job, opts Options) JobOutcome {
	log := zerolog.Ctx(ctx)
	start := time.Now()

	out := JobOutcome{
		Index:         j.index,
		InputPath:     j.entry.Path,
		RelPath:       j.entry.RelPath,
		OutputPath:    j.outputPath,
		OriginalBytes: j.size,
		Method:        -1,
	}

	skipped := func() JobOutcome {
		out.Status = StatusSkipped
		out.Elapsed = time.Since(start)
		log.Info().Str("path", out.RelPath).Msg("skipped by user")
		return out
	}

	fail := func(err error) JobOutcome {
		out.Status = StatusFailed
		out.ErrorKind = KindOf(err)
		out.Err = err
		out.Elapsed = time.Since(start)
		log.Warn().Err(err).Str("path", out.RelPath).Str("kind", out.ErrorKind).Msg("job failed")
		return out
	}

	if opts.Control.takeSkip() {
		return skipped()
	}
	if j.statErr != nil {
		return fail(jobError(ErrDecode, j.statErr))
	}
	if samePath(j.outputPath, j.entry.Path) {
		return fail(jobError(ErrWrite, fmt.Errorf("output path %s resolves to the input", j.outputPath)))
	}

	if j.copy {
		if f, err := codec.FromKind(imgutil.KindFromExt(filepath.Ext(j.entry.Path))); err == nil {
			out.Format = f
		}
		n, err := copyFile(j.entry.Path, j.outputPath)
		if err != nil {
			return fail(jobError(ErrWrite, err))
		}
		out.Status = StatusCopied
		out.FinalBytes = n
		out.TargetMet = true
		out.Elapsed = time.Since(start)
		log.Debug().Str("path", out.RelPath).Str("status", out.Status.String()).Int64("bytes", n).Msg("copied")
		return out
	}

	data, err := os.ReadFile(j.entry.Path)
	if err != nil {
		return fail(jobError(ErrDecode, err))
	}
	out.OriginalBytes = int64(len(data))

	c, err := encodeToTarget(data, opts)
	if errors.Is(err, ErrSkipped) {
		return skipped()
	}
	if err != nil {
		return fail(err)
	}
	if err := writeBytes(j.outputPath, c.Data); err != nil {
		return fail(jobError(ErrWrite, err))
	}

	out.Status = StatusCompressed
	out.FinalBytes = int64(len(c.Data))
	out.Param = c.Param
	out.HasParam = c.HasParam
	out.Method = c.Method
	out.Attempts = c.Attempts
	out.TargetMet = c.TargetMet
	out.Format = c.Format
	out.Trace = c.Trace
	out.Elapsed = time.Since(start)

	event := log.Debug()
	if !c.TargetMet {
		event = log.Warn()
	}
	event.Str("path", out.RelPath).
		Str("status", out.Status.String()).
		Int("param", out.Param).
		Int("attempts", out.Attempts).
		Int64("bytes", out.FinalBytes).
		Bool("target_met", out.TargetMet).
		Str("camera", c.Source.CameraModel).
		Msg("compressed")
	return out
}
