package decoder

import (
	"context"
	"image"
)

// Format is the preferred in-memory pixel layout of a decoded bitmap.
type Format int

const (
	// FormatDefault lets the backend choose its native layout.
	FormatDefault Format = iota
	// FormatARGB8888 asks for 8 bits per channel with alpha (image.NRGBA).
	FormatARGB8888
)

// Options configures one decode request.
type Options struct {
	Format Format
	// AutoOrient applies EXIF orientation during decode where the backend can.
	AutoOrient bool
}

// FreshOptions decodes at full fidelity (8 bits per channel with alpha) and
// leaves orientation to the caller. Decoded bitmaps are not kept in memory
// or on disk after the target is cleared.
func FreshOptions() Options {
	return Options{
		Format:     FormatARGB8888,
		AutoOrient: false,
	}
}

// Bitmap is a decoded image.
type Bitmap struct {
	Image image.Image
	// Oriented is true when EXIF orientation was already applied.
	Oriented bool
	// Backend names the decoder that produced the bitmap.
	Backend string
}

// Model is something the engine can decode. Decode returns (nil, nil) when
// the content holds nothing it can turn into a bitmap.
type Model interface {
	// Key identifies the model in logs.
	Key() string
	Decode(ctx context.Context, opts Options) (*Bitmap, error)
}
