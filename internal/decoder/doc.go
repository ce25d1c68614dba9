// Package decoder is the asynchronous bitmap decode engine.
//
// Callers submit a Model and receive a Target, read the result with
// Target.Get and must release it with Engine.Clear on every path:
//
//	target := engine.Submit(ctx, model, decoder.FreshOptions())
//	defer engine.Clear(target)
//	bmp, err := target.Get()
//
// Decodes run on their own goroutines, bounded by an optional workers.Pool.
// Nothing is cached between targets. Decoder panics are recovered and
// returned as errors.
//
// ImageModel decodes stills with imaging (Go decoders plus x/image bmp,
// tiff and webp), then libvips for formats Go cannot read (HEIC, AVIF, JXL,
// SVG, camera raw), then ffmpeg as a last resort.
package decoder
