package session

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"imagestream/internal/source"
)

// Argument names understood by ParseArgs.
const (
	ArgMimeType        = "mimeType"
	ArgURI             = "uri"
	ArgRotationDegrees = "rotationDegrees"
	ArgIsFlipped       = "isFlipped"
)

// Request is a validated stream request. It is not modified after
// ParseArgs returns it.
type Request struct {
	URI             string
	Locator         *source.Locator
	MimeType        string
	RotationDegrees int
	IsFlipped       bool
}

// ArgumentError reports a missing or malformed request argument.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// ParseArgs validates a request argument map. Integers may arrive as any Go
// integer type, as an integral float64 (JSON) or as a json.Number.
func ParseArgs(args map[string]any) (*Request, error) {
	mimeType, err := requiredString(args, ArgMimeType)
	if err != nil {
		return nil, err
	}
	uri, err := requiredString(args, ArgURI)
	if err != nil {
		return nil, err
	}

	loc, err := source.ParseLocator(uri)
	if err != nil {
		return nil, &ArgumentError{Field: ArgURI, Reason: err.Error()}
	}

	degrees, err := optionalInt(args, ArgRotationDegrees)
	if err != nil {
		return nil, err
	}
	flipped, err := optionalBool(args, ArgIsFlipped)
	if err != nil {
		return nil, err
	}

	return &Request{
		URI:             uri,
		Locator:         loc,
		MimeType:        mimeType,
		RotationDegrees: degrees,
		IsFlipped:       flipped,
	}, nil
}

func requiredString(args map[string]any, field string) (string, error) {
	v, ok := args[field]
	if !ok || v == nil {
		return "", &ArgumentError{Field: field, Reason: "missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgumentError{Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	if strings.TrimSpace(s) == "" {
		return "", &ArgumentError{Field: field, Reason: "empty"}
	}
	return s, nil
}

func optionalInt(args map[string]any, field string) (int, error) {
	v, ok := args[field]
	if !ok || v == nil {
		return 0, nil
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) > math.MaxInt32 {
			return 0, &ArgumentError{Field: field, Reason: "not an integer"}
		}
		return int(n), nil
	case json.Number:
		i, err := strconv.Atoi(n.String())
		if err != nil {
			return 0, &ArgumentError{Field: field, Reason: "not an integer"}
		}
		return i, nil
	default:
		return 0, &ArgumentError{Field: field, Reason: fmt.Sprintf("expected integer, got %T", v)}
	}
}

func optionalBool(args map[string]any, field string) (bool, error) {
	v, ok := args[field]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ArgumentError{Field: field, Reason: fmt.Sprintf("expected boolean, got %T", v)}
	}
	return b, nil
}
