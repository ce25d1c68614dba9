package pipeline

import (
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindReadException Kind = iota
	KindDecodeNull
	KindDecodeException
	KindVideoNull
	KindVideoException
)

var kindNames = [...]string{
	KindReadException:   "image-read-exception",
	KindDecodeNull:      "image-decode-null",
	KindDecodeException: "image-decode-exception",
	KindVideoNull:       "video-null",
	KindVideoException:  "video-exception",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Failure is the terminal error of one pipeline run.
type Failure struct {
	Kind Kind
	URI  string
	// Detail is what the consumer sees. Err keeps the full cause for logs.
	Detail string
	Err    error
}

// Message is the consumer-facing summary.
func (f *Failure) Message() string {
	return "failed to get image from uri=" + f.URI
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message())
	}
	return fmt.Sprintf("%s: %s: %s", f.Kind, f.Message(), f.Detail)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// FirstLine returns s up to its first line break.
func FirstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func readFailure(uri string, err error) *Failure {
	return &Failure{Kind: KindReadException, URI: uri, Detail: err.Error(), Err: err}
}

func exceptionFailure(kind Kind, uri string, err error) *Failure {
	return &Failure{Kind: kind, URI: uri, Detail: FirstLine(err.Error()), Err: err}
}
