package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"imagestream/internal/decoder"
	"imagestream/internal/logging"
	"imagestream/internal/metrics"
	"imagestream/internal/source"
	"imagestream/internal/transcoder"

	_ "image/png" // ffmpeg frames arrive as PNG
)

// ErrFFmpegUnavailable is returned when no ffmpeg binary is configured or found.
var ErrFFmpegUnavailable = transcoder.ErrFFmpegUnavailable

// FrameOffset is where the representative frame is taken from. Clips
// shorter than this fall back to their first frame.
const FrameOffset = time.Second

// MaxRemoteBytes bounds how much of a non-file source is piped to ffmpeg.
const MaxRemoteBytes = 1 << 30

// FrameModel extracts a representative frame from a video. Local files are
// handed to ffmpeg by path so it can seek; other sources are piped.
type FrameModel struct {
	Locator *source.Locator
	Opener  source.Opener
	// Files resolves file locators to paths. Nil pipes every source.
	Files  *source.FileOpener
	FFmpeg *transcoder.Transcoder
}

// Key implements decoder.Model.
func (m FrameModel) Key() string {
	return "video:" + m.Locator.Raw
}

// Decode implements decoder.Model. A clean ffmpeg run that yields no frame
// is a nil bitmap.
func (m FrameModel) Decode(ctx context.Context, _ decoder.Options) (*decoder.Bitmap, error) {
	if !m.FFmpeg.Available() {
		return nil, ErrFFmpegUnavailable
	}

	in, err := m.input(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := m.FFmpeg.ExtractFrame(ctx, in, FrameOffset)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Debug("frame at %v failed for %s: %v, retrying first frame", FrameOffset, m.Locator, err)
		out, err = m.FFmpeg.ExtractFrame(ctx, in, 0)
	}
	if errors.Is(err, transcoder.ErrNoFrame) {
		return nil, nil
	}
	if err != nil {
		metrics.DecodeErrors.WithLabelValues("video").Inc()
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		metrics.DecodeErrors.WithLabelValues("video").Inc()
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	metrics.DecodeDuration.WithLabelValues("video").Observe(time.Since(start).Seconds())

	return &decoder.Bitmap{Image: img, Oriented: true, Backend: "video"}, nil
}

func (m FrameModel) input(ctx context.Context) (transcoder.Input, error) {
	if m.Files != nil && m.Locator.Scheme == source.SchemeFile {
		path, err := m.Files.Resolve(m.Locator.Path)
		if err != nil {
			return transcoder.Input{}, err
		}
		// Open once so missing files surface as source errors, not ffmpeg noise.
		rc, err := m.Files.Open(ctx, m.Locator)
		if err != nil {
			return transcoder.Input{}, err
		}
		rc.Close()
		return transcoder.Input{Path: path}, nil
	}

	rc, err := m.Opener.Open(ctx, m.Locator)
	if err != nil {
		return transcoder.Input{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxRemoteBytes))
	if err != nil {
		return transcoder.Input{}, fmt.Errorf("read %s: %w", m.Locator, err)
	}
	return transcoder.Input{Data: data}, nil
}
