package session

import (
	"net/http"

	"imagestream/internal/pipeline"
)

// Error codes and messages sent to consumers.
const (
	codePrefix = "streamImage-"

	CodeArgs    = codePrefix + "args"
	MessageArgs = "failed because of missing arguments"
)

// CodeFor returns the consumer-facing error code of a pipeline failure kind.
func CodeFor(k pipeline.Kind) string {
	return codePrefix + k.String()
}

// Codes lists every error code a session can emit.
func Codes() []string {
	return []string{
		CodeArgs,
		CodeFor(pipeline.KindReadException),
		CodeFor(pipeline.KindDecodeNull),
		CodeFor(pipeline.KindDecodeException),
		CodeFor(pipeline.KindVideoNull),
		CodeFor(pipeline.KindVideoException),
	}
}

// HTTPStatus maps an error code to the status used when the error arrives
// before any payload byte was written.
func HTTPStatus(code string) int {
	switch code {
	case CodeArgs:
		return http.StatusBadRequest
	case CodeFor(pipeline.KindReadException):
		return http.StatusNotFound
	case CodeFor(pipeline.KindDecodeNull), CodeFor(pipeline.KindVideoNull):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
