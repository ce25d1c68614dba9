package pipeline

import (
	"context"
	"fmt"

	"imagestream/internal/codec"
	"imagestream/internal/decoder"
	"imagestream/internal/logging"
	"imagestream/internal/orient"
	"imagestream/internal/source"
	"imagestream/internal/transcoder"
	"imagestream/internal/video"
)

// Engine is the decode engine as the pipelines use it.
type Engine interface {
	Submit(ctx context.Context, m decoder.Model, opts decoder.Options) *decoder.Target
	Clear(t *decoder.Target)
}

// ImageRequest describes one image to transcode.
type ImageRequest struct {
	Locator         *source.Locator
	MimeType        string
	RotationDegrees int
	IsFlipped       bool
}

// ImageTranscoder decodes an image, corrects its orientation and
// re-encodes it as PNG or JPEG.
type ImageTranscoder struct {
	Engine Engine
	Opener source.Opener
	FFmpeg *transcoder.Transcoder
}

// Transcode returns the whole encoded image or a *Failure.
func (p *ImageTranscoder) Transcode(ctx context.Context, req ImageRequest) (out []byte, err error) {
	uri := req.Locator.Raw
	log := logging.With("uri", uri, "mime", req.MimeType)

	target := p.Engine.Submit(ctx, decoder.ImageModel{
		Opener:          p.Opener,
		Locator:         req.Locator,
		MimeType:        req.MimeType,
		RotationDegrees: req.RotationDegrees,
		IsFlipped:       req.IsFlipped,
		FFmpeg:          p.FFmpeg,
	}, decoder.FreshOptions())
	defer p.Engine.Clear(target)

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, exceptionFailure(KindDecodeException, uri, fmt.Errorf("transcode panic: %v", r))
			log.Error("transcode panic: %v", r)
		}
	}()

	bmp, err := target.Get()
	if err != nil {
		log.Warn("decode failed: %v", err)
		return nil, exceptionFailure(KindDecodeException, uri, err)
	}
	if bmp == nil || bmp.Image == nil {
		log.Debug("decode produced no bitmap")
		return nil, &Failure{Kind: KindDecodeNull, URI: uri}
	}

	img := bmp.Image
	if !bmp.Oriented && orient.NeedsCorrection(req.RotationDegrees, req.IsFlipped) {
		img = orient.Apply(img, req.RotationDegrees, req.IsFlipped)
		bmp.Image = nil
	}

	c := codec.ForMimeType(req.MimeType)
	out, err = codec.Encode(img, c)
	if err != nil {
		log.Warn("encode failed: %v", err)
		return nil, exceptionFailure(KindDecodeException, uri, err)
	}

	log.Debug("transcoded via %s to %s, %d bytes", bmp.Backend, c, len(out))
	return out, nil
}

// VideoThumbnailer extracts a frame from a video and encodes it as JPEG.
type VideoThumbnailer struct {
	Engine Engine
	Opener source.Opener
	Files  *source.FileOpener
	FFmpeg *transcoder.Transcoder
}

// Thumbnail returns the encoded frame or a *Failure.
func (p *VideoThumbnailer) Thumbnail(ctx context.Context, loc *source.Locator) (out []byte, err error) {
	uri := loc.Raw
	log := logging.With("uri", uri)

	target := p.Engine.Submit(ctx, video.FrameModel{
		Locator: loc,
		Opener:  p.Opener,
		Files:   p.Files,
		FFmpeg:  p.FFmpeg,
	}, decoder.FreshOptions())
	defer p.Engine.Clear(target)

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, exceptionFailure(KindVideoException, uri, fmt.Errorf("thumbnail panic: %v", r))
			log.Error("thumbnail panic: %v", r)
		}
	}()

	bmp, err := target.Get()
	if err != nil {
		log.Warn("frame extraction failed: %v", err)
		return nil, exceptionFailure(KindVideoException, uri, err)
	}
	if bmp == nil || bmp.Image == nil {
		log.Debug("no frame extracted")
		return nil, &Failure{Kind: KindVideoNull, URI: uri}
	}

	out, err = codec.Encode(bmp.Image, codec.LossyNoAlpha)
	if err != nil {
		log.Warn("encode failed: %v", err)
		return nil, exceptionFailure(KindVideoException, uri, err)
	}
	return out, nil
}
