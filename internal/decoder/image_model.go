package decoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"time"

	"imagestream/internal/logging"
	"imagestream/internal/mediatypes"
	"imagestream/internal/metrics"
	"imagestream/internal/source"
	"imagestream/internal/transcoder"

	"github.com/disintegration/imaging"

	// Extra formats for the imaging backend
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxSourceBytes bounds how much of a source is read for a single decode.
const MaxSourceBytes = 256 << 20

// ImageModel decodes a still image from a source. Backends are tried in
// order: imaging (Go decoders), libvips, ffmpeg.
type ImageModel struct {
	Opener  source.Opener
	Locator *source.Locator
	// MimeType, RotationDegrees and IsFlipped are part of the cache key so
	// differently-oriented requests never share an entry.
	MimeType        string
	RotationDegrees int
	IsFlipped       bool
	FFmpeg          *transcoder.Transcoder
}

// Key implements Model.
func (m ImageModel) Key() string {
	return "image:" + m.Locator.Raw + "|" + mediatypes.Normalize(m.MimeType) +
		"|" + strconv.Itoa(mediatypes.NormalizeDegrees(m.RotationDegrees)) +
		"|" + strconv.FormatBool(m.IsFlipped)
}

// Decode implements Model. Content that no backend recognizes yields a nil
// bitmap; content a backend recognizes but cannot decode is an error.
func (m ImageModel) Decode(ctx context.Context, opts Options) (*Bitmap, error) {
	data, err := readSource(ctx, m.Opener, m.Locator)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		logging.Debug("decode %s: empty source", m.Locator)
		return nil, nil
	}

	img, err := decodeWithImaging(data, opts.AutoOrient)
	if err == nil {
		return &Bitmap{Image: img, Oriented: opts.AutoOrient, Backend: "imaging"}, nil
	}
	recognized := !errors.Is(err, image.ErrFormat)
	logging.Debug("imaging decode failed for %s: %v", m.Locator, err)

	if IsVipsAvailable() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		img, vipsErr := decodeWithVips(data, opts.AutoOrient)
		if vipsErr == nil {
			metrics.DecodeDuration.WithLabelValues("vips").Observe(time.Since(start).Seconds())
			return &Bitmap{Image: img, Oriented: opts.AutoOrient, Backend: "vips"}, nil
		}
		metrics.DecodeErrors.WithLabelValues("vips").Inc()
		logging.Debug("vips decode failed for %s: %v", m.Locator, vipsErr)
	}

	if m.FFmpeg.Available() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		img, ffErr := decodeWithFFmpeg(ctx, m.FFmpeg, data)
		if ffErr == nil {
			metrics.DecodeDuration.WithLabelValues("ffmpeg").Observe(time.Since(start).Seconds())
			// ffmpeg ignores EXIF orientation for stills.
			return &Bitmap{Image: img, Oriented: false, Backend: "ffmpeg"}, nil
		}
		metrics.DecodeErrors.WithLabelValues("ffmpeg").Inc()
		logging.Debug("ffmpeg decode failed for %s: %v", m.Locator, ffErr)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if recognized {
		return nil, fmt.Errorf("all image decode methods failed for %s: %w", m.Locator, err)
	}
	return nil, nil
}

func readSource(ctx context.Context, opener source.Opener, loc *source.Locator) ([]byte, error) {
	rc, err := opener.Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			logging.Warn("close %s: %v", loc, cerr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(rc, MaxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	if len(data) > MaxSourceBytes {
		return nil, fmt.Errorf("read %s: source larger than %d bytes", loc, MaxSourceBytes)
	}
	return data, nil
}

func decodeWithImaging(data []byte, autoOrient bool) (image.Image, error) {
	start := time.Now()
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(autoOrient))
	if err != nil {
		if !errors.Is(err, image.ErrFormat) {
			metrics.DecodeErrors.WithLabelValues("imaging").Inc()
		}
		return nil, err
	}
	metrics.DecodeDuration.WithLabelValues("imaging").Observe(time.Since(start).Seconds())
	return img, nil
}

func decodeWithFFmpeg(ctx context.Context, t *transcoder.Transcoder, data []byte) (image.Image, error) {
	out, err := t.ExtractFrame(ctx, transcoder.Input{Data: data}, 0)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
