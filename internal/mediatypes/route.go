package mediatypes

// Route is the way a request's bytes reach the consumer.
type Route int

const (
	// RoutePassThrough streams the source bytes unmodified.
	RoutePassThrough Route = iota
	// RouteImageTranscode decodes the image and re-encodes it portably.
	RouteImageTranscode
	// RouteVideoThumbnail extracts and encodes one representative frame.
	RouteVideoThumbnail
)

// String returns the metric/log label for the route.
func (r Route) String() string {
	switch r {
	case RoutePassThrough:
		return "passthrough"
	case RouteImageTranscode:
		return "image_transcode"
	case RouteVideoThumbnail:
		return "video_thumbnail"
	default:
		return "unknown"
	}
}

// Routes lists every route, in declaration order.
var Routes = []Route{RoutePassThrough, RouteImageTranscode, RouteVideoThumbnail}

// Classify decides how a request is served. It is pure and total: unknown or
// empty MIME types are transcoded, since that path always yields a portable
// format.
func Classify(mimeType string, rotationDegrees int, isFlipped bool) Route {
	if IsVideo(mimeType) {
		return RouteVideoThumbnail
	}
	if !IsSupportedByRenderer(mimeType, rotationDegrees, isFlipped) {
		return RouteImageTranscode
	}
	return RoutePassThrough
}
