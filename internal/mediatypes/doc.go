// Package mediatypes holds the MIME type knowledge of the imagestream
// service and the capability classifier that routes every stream request.
//
// It is a dependency-free foundation imported by the pipelines, the session
// controller and the metrics, so it must not import other internal packages.
//
// # Classification
//
// Classify maps a declared MIME type and the orientation the consumer wants
// applied to one of three routes:
//
//	mediatypes.Classify("video/mp4", 0, false)   // RouteVideoThumbnail
//	mediatypes.Classify("image/heic", 0, false)  // RouteImageTranscode
//	mediatypes.Classify("image/png", 90, false)  // RouteImageTranscode
//	mediatypes.Classify("image/jpeg", 90, true)  // RoutePassThrough
//	mediatypes.Classify("image/png", 0, false)   // RoutePassThrough
//
// The renderer decodes JPEG, PNG, GIF, WebP, BMP and WBMP, and honours
// orientation metadata only for JPEG. Anything else, including unknown
// types, is transcoded.
//
// # Codec hints
//
// CanHaveAlpha tells the transcode pipeline whether the output must keep an
// alpha channel (lossless) or can be flattened (lossy).
package mediatypes
