package source

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Locator schemes.
const (
	SchemeFile = "file"
	SchemeS3   = "s3"
	SchemeGCS  = "gs"
)

// ErrInvalidLocator is returned by ParseLocator for uris that cannot name content.
var ErrInvalidLocator = errors.New("invalid content locator")

// Locator identifies a piece of content. File locators carry Path; bucket
// locators (s3://bucket/key, gs://bucket/key) carry Bucket and Key. Other
// schemes keep the authority in Host, so scheme://asset/1 has Host "asset"
// and Path "/1".
type Locator struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Bucket string
	Key    string
}

// ParseLocator parses a content uri. A bare path is a file locator. Any
// other scheme parses (the opener decides whether it is supported), but
// s3 and gs locators must name both a bucket and a key.
func ParseLocator(uri string) (*Locator, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("%w: empty uri", ErrInvalidLocator)
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}

	loc := &Locator{Raw: uri, Scheme: strings.ToLower(u.Scheme), Host: u.Host}

	switch loc.Scheme {
	case "":
		loc.Scheme = SchemeFile
		loc.Path = u.Path
	case SchemeFile:
		loc.Path = u.Path
	case SchemeS3, SchemeGCS:
		loc.Bucket = u.Host
		loc.Key = strings.TrimPrefix(u.Path, "/")
		if loc.Bucket == "" || loc.Key == "" {
			return nil, fmt.Errorf("%w: %s locator needs bucket and key", ErrInvalidLocator, loc.Scheme)
		}
		return loc, nil
	default:
		loc.Path = u.Opaque + u.Path
		return loc, nil
	}

	if loc.Path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidLocator)
	}
	return loc, nil
}

// String returns the uri the locator was parsed from.
func (l *Locator) String() string {
	return l.Raw
}
