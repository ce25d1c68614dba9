// Package pipeline holds the three ways a stream request is served:
//
//   - RawStreamer passes source bytes through in fixed-size chunks.
//   - ImageTranscoder decodes, orients and re-encodes an image.
//   - VideoThumbnailer extracts and encodes a representative video frame.
//
// Failures are returned as *Failure, whose Kind the session layer maps to
// an error code. Details shown to consumers are cut to their first line;
// the full error stays in Err and in the logs.
package pipeline
