// Package video provides the frame-extraction model for video thumbnails.
//
// FrameModel plugs into the decoder engine like any other model. It asks
// ffmpeg for the frame one second in and falls back to the first frame for
// short clips or streams that cannot seek. Frames are treated as already
// oriented.
package video
