package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"sync/atomic"

	"imagestream/internal/logging"
	"imagestream/internal/source"
)

// BufferSize is the pass-through chunk size.
const BufferSize = 2 << 17

// ErrNotRestartable is yielded when a chunk sequence is ranged over twice.
var ErrNotRestartable = errors.New("chunk sequence already consumed")

// RawStreamer streams source bytes unchanged.
type RawStreamer struct {
	Opener source.Opener
	// ChunkSize overrides BufferSize when positive.
	ChunkSize int
}

// Chunks returns a single-use sequence of independent chunks of exactly
// the chunk size, except possibly the last. An open or read failure is
// yielded once as a *Failure and ends the sequence. The source is closed
// when the sequence ends, fails or the consumer stops early.
func (s *RawStreamer) Chunks(ctx context.Context, loc *source.Locator) iter.Seq2[[]byte, error] {
	var used atomic.Bool
	size := s.ChunkSize
	if size <= 0 {
		size = BufferSize
	}

	return func(yield func([]byte, error) bool) {
		if used.Swap(true) {
			yield(nil, ErrNotRestartable)
			return
		}

		rc, err := s.Opener.Open(ctx, loc)
		if err != nil {
			yield(nil, readFailure(loc.Raw, err))
			return
		}
		defer func() {
			if cerr := rc.Close(); cerr != nil {
				logging.Warn("close %s: %v", loc, cerr)
			}
		}()

		buf := make([]byte, size)
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, readFailure(loc.Raw, err))
				return
			}

			n, err := io.ReadFull(rc, buf)
			if n > 0 {
				if !yield(bytes.Clone(buf[:n]), nil) {
					return
				}
			}
			switch {
			case err == nil:
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				return
			default:
				yield(nil, readFailure(loc.Raw, err))
				return
			}
		}
	}
}
