package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"imagestream/internal/logging"
	"imagestream/internal/metrics"
)

var (
	// ErrUnsupportedScheme is returned for locators no opener is registered for.
	ErrUnsupportedScheme = errors.New("unsupported locator scheme")
	// ErrNotFound is wrapped by openers when the content does not exist.
	ErrNotFound = errors.New("content not found")
)

// Opener opens a readable byte stream for a locator. The caller closes it.
type Opener interface {
	Open(ctx context.Context, loc *Locator) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, loc *Locator) (io.ReadCloser, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, loc *Locator) (io.ReadCloser, error) {
	return f(ctx, loc)
}

// Router dispatches to an Opener by locator scheme.
type Router struct {
	openers map[string]Opener
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{openers: make(map[string]Opener)}
}

// Register installs the opener for a scheme, replacing any previous one.
func (r *Router) Register(scheme string, o Opener) {
	r.openers[scheme] = o
}

// Schemes returns the registered schemes.
func (r *Router) Schemes() []string {
	out := make([]string, 0, len(r.openers))
	for s := range r.openers {
		out = append(out, s)
	}
	return out
}

// Open implements Opener.
func (r *Router) Open(ctx context.Context, loc *Locator) (io.ReadCloser, error) {
	o, ok := r.openers[loc.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, loc.Scheme)
	}

	rc, err := o.Open(ctx, loc)
	if err != nil {
		metrics.SourceOpenTotal.WithLabelValues(loc.Scheme, "error").Inc()
		logging.Debug("source: open %s failed: %v", loc, err)
		return nil, err
	}
	metrics.SourceOpenTotal.WithLabelValues(loc.Scheme, "success").Inc()
	return rc, nil
}
