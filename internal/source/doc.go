// Package source resolves content locators to byte streams.
//
// A Locator is parsed from the uri argument of a stream request:
//
//	/photos/a.heic             file below MEDIA_DIR
//	file:///media/photos/a.jpg file below MEDIA_DIR
//	s3://bucket/photos/a.jpg   S3 or an S3-compatible store
//	gs://bucket/photos/a.jpg   Google Cloud Storage
//
// A Router dispatches to the Opener registered for the scheme. File access
// goes through filesystem.OpenWithRetry so NFS stale handles are retried.
// Missing content wraps ErrNotFound on every backend.
package source
