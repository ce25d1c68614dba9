package source

import (
	"errors"
	"testing"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		scheme string
		host   string
		path   string
		bucket string
		key    string
	}{
		{"bare absolute path", "/media/a.jpg", SchemeFile, "", "/media/a.jpg", "", ""},
		{"bare relative path", "photos/a.jpg", SchemeFile, "", "photos/a.jpg", "", ""},
		{"file uri", "file:///media/a.jpg", SchemeFile, "", "/media/a.jpg", "", ""},
		{"escaped path", "/media/my%20photo.jpg", SchemeFile, "", "/media/my photo.jpg", "", ""},
		{"s3", "s3://bucket/dir/a.heic", SchemeS3, "bucket", "", "bucket", "dir/a.heic"},
		{"gs uppercase scheme", "GS://bucket/a.png", SchemeGCS, "bucket", "", "bucket", "a.png"},
		{"unknown scheme parses", "content://media/external/images/1", "content", "media", "/external/images/1", "", ""},
		{"custom scheme keeps host", "scheme://asset/1", "scheme", "asset", "/1", "", ""},
		{"opaque custom scheme", "mem:hello", "mem", "", "hello", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseLocator(tt.uri)
			if err != nil {
				t.Fatalf("ParseLocator(%q) error = %v", tt.uri, err)
			}
			if loc.Scheme != tt.scheme || loc.Host != tt.host || loc.Path != tt.path || loc.Bucket != tt.bucket || loc.Key != tt.key {
				t.Errorf("ParseLocator(%q) = %+v", tt.uri, loc)
			}
			if loc.String() != tt.uri {
				t.Errorf("String() = %q, want %q", loc.String(), tt.uri)
			}
		})
	}
}

func TestParseLocator_Invalid(t *testing.T) {
	for _, uri := range []string{"", "   ", "s3://bucket", "s3:///key", "gs://bucket/", "file://", "%zz"} {
		t.Run(uri, func(t *testing.T) {
			if _, err := ParseLocator(uri); !errors.Is(err, ErrInvalidLocator) {
				t.Errorf("ParseLocator(%q) error = %v, want ErrInvalidLocator", uri, err)
			}
		})
	}
}
