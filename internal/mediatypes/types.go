package mediatypes

import "strings"

// MIME types the service knows by name.
const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	WEBP = "image/webp"
	BMP  = "image/bmp"
	XBMP = "image/x-ms-bmp"
	WBMP = "image/vnd.wap.wbmp"
	ICO  = "image/x-icon"
	SVG  = "image/svg+xml"
	TIFF = "image/tiff"
	HEIC = "image/heic"
	HEIF = "image/heif"
	AVIF = "image/avif"
	JXL  = "image/jxl"
	DNG  = "image/x-adobe-dng"
	CR2  = "image/x-canon-cr2"
	NEF  = "image/x-nikon-nef"
	ARW  = "image/x-sony-arw"
	PSD  = "image/vnd.adobe.photoshop"

	MP4  = "video/mp4"
	MKV  = "video/x-matroska"
	AVI  = "video/x-msvideo"
	MOV  = "video/quicktime"
	WEBM = "video/webm"
)

// rendererDecodable lists the formats the consuming renderer decodes itself.
var rendererDecodable = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
	WEBP: true,
	BMP:  true,
	XBMP: true,
	WBMP: true,
}

// rendererOrients lists the formats whose orientation metadata the renderer
// applies on its own.
var rendererOrients = map[string]bool{
	JPEG: true,
}

// alphaCapable lists source formats that can carry transparency.
var alphaCapable = map[string]bool{
	PNG:  true,
	GIF:  true,
	WEBP: true,
	BMP:  true,
	XBMP: true,
	ICO:  true,
	SVG:  true,
	TIFF: true,
	HEIC: true,
	HEIF: true,
	AVIF: true,
	JXL:  true,
	PSD:  true,
}

// Normalize lowercases a MIME type and strips parameters, so that
// "Image/PNG; q=1" and "image/png" compare equal.
func Normalize(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// IsVideo reports whether the MIME type denotes a video.
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(Normalize(mimeType), "video/")
}

// CanHaveAlpha reports whether images of this type may contain transparency.
func CanHaveAlpha(mimeType string) bool {
	return alphaCapable[Normalize(mimeType)]
}

// IsSupportedByRenderer reports whether the renderer can display bytes of this
// type as they are, including applying the requested rotation and flip.
func IsSupportedByRenderer(mimeType string, rotationDegrees int, isFlipped bool) bool {
	mimeType = Normalize(mimeType)
	if !rendererDecodable[mimeType] {
		return false
	}
	if rendererOrients[mimeType] {
		return true
	}
	return NormalizeDegrees(rotationDegrees) == 0 && !isFlipped
}

// NormalizeDegrees maps any clockwise angle into [0, 360).
func NormalizeDegrees(degrees int) int {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return degrees
}
