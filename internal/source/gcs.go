package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSOpener opens gs://bucket/object locators.
type GCSOpener struct {
	client *storage.Client
	open   func(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// NewGCSOpener creates a GCS client. An empty credentialsFile uses
// application default credentials.
func NewGCSOpener(ctx context.Context, credentialsFile string) (*GCSOpener, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	g := &GCSOpener{client: client}
	g.open = func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
		return client.Bucket(bucket).Object(object).NewReader(ctx)
	}
	return g, nil
}

// Open implements Opener.
func (g *GCSOpener) Open(ctx context.Context, loc *Locator) (io.ReadCloser, error) {
	rc, err := g.open(ctx, loc.Bucket, loc.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
		}
		return nil, fmt.Errorf("Object.NewReader %s: %w", loc, err)
	}
	return rc, nil
}

// Close releases the storage client.
func (g *GCSOpener) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
