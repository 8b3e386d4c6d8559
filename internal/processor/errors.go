package processor

import (
	"errors"
	"fmt"
)

// Failure kinds stored on a FAILED outcome. Every job error wraps exactly one
// of them.
var (
	ErrDecode               = errors.New("decode failed")
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrUncontrollableFormat = errors.New("format has no size control")
	ErrEncode               = errors.New("encode failed")
	ErrWrite                = errors.New("write failed")
)

// ErrFinalized is returned by an Aggregator used after Finalize.
var ErrFinalized = errors.New("processor: aggregator already finalized")

var errorKinds = []struct {
	err  error
	name string
}{
	{ErrDecode, "decode"},
	{ErrUnsupportedFormat, "unsupported_format"},
	{ErrUncontrollableFormat, "uncontrollable_format"},
	{ErrEncode, "encode"},
	{ErrWrite, "write"},
}

// KindOf names the failure kind wrapped by err, or "" when err is nil or
// carries none.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

func jobError(kind error, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}
