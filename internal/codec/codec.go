// Package codec chooses and runs the output encoder for transcoded bitmaps.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"time"

	"imagestream/internal/mediatypes"
	"imagestream/internal/metrics"

	"github.com/disintegration/imaging"
)

// Codec is an output encoding.
type Codec int

const (
	// LosslessWithAlpha is PNG.
	LosslessWithAlpha Codec = iota
	// LossyNoAlpha is JPEG at maximum quality.
	LossyNoAlpha
)

// JPEGQuality is the quality used for LossyNoAlpha.
const JPEGQuality = 100

// ForMimeType picks PNG for source types that can carry transparency and
// JPEG for everything else.
func ForMimeType(mimeType string) Codec {
	if mediatypes.CanHaveAlpha(mimeType) {
		return LosslessWithAlpha
	}
	return LossyNoAlpha
}

func (c Codec) String() string {
	switch c {
	case LosslessWithAlpha:
		return "png"
	case LossyNoAlpha:
		return "jpeg"
	default:
		return "unknown"
	}
}

// ContentType is the MIME type of the encoded output.
func (c Codec) ContentType() string {
	switch c {
	case LosslessWithAlpha:
		return mediatypes.PNG
	case LossyNoAlpha:
		return mediatypes.JPEG
	default:
		return "application/octet-stream"
	}
}

// Encode writes img in codec c and returns the full buffer.
func Encode(img image.Image, c Codec) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode %s: nil image", c)
	}

	start := time.Now()
	var buf bytes.Buffer
	var err error
	switch c {
	case LosslessWithAlpha:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed))
	case LossyNoAlpha:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality))
	default:
		err = fmt.Errorf("unknown codec %d", int(c))
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c, err)
	}

	metrics.EncodeDuration.WithLabelValues(c.String()).Observe(time.Since(start).Seconds())
	return buf.Bytes(), nil
}
