// Package transcoder wraps the ffmpeg binary.
//
// It extracts single frames as PNG, either from a local file path or from
// bytes piped on stdin, and tracks running processes so they can be killed
// on shutdown. The video frame model and the last-resort image decoder both
// use it.
package transcoder
