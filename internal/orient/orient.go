// Package orient applies rotation and horizontal-flip corrections to bitmaps.
package orient

import (
	"image"
	"image/color"

	"imagestream/internal/mediatypes"

	"github.com/disintegration/imaging"
)

// Apply rotates img clockwise by degrees and then mirrors it horizontally
// when flipped is set. Right angles are exact; other angles are resampled
// onto a transparent background. The input is never modified, and an
// upright unflipped image is returned as is.
func Apply(img image.Image, degrees int, flipped bool) image.Image {
	out := Rotate(img, degrees)
	if flipped {
		out = imaging.FlipH(out)
	}
	return out
}

// Rotate turns img clockwise by degrees.
func Rotate(img image.Image, degrees int) image.Image {
	// imaging rotates counter-clockwise.
	switch d := mediatypes.NormalizeDegrees(degrees); d {
	case 0:
		return img
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return imaging.Rotate(img, float64(360-d), color.Transparent)
	}
}

// NeedsCorrection reports whether Apply would change img.
func NeedsCorrection(degrees int, flipped bool) bool {
	return flipped || mediatypes.NormalizeDegrees(degrees) != 0
}
