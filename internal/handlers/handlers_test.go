package handlers

import (
	"context"
	"errors"
	"iter"
	"sync"

	"imagestream/internal/database"
	"imagestream/internal/metrics"
	"imagestream/internal/pipeline"
	"imagestream/internal/session"
	"imagestream/internal/source"
	"imagestream/internal/transcoder"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// fakeRaw serves chunks by locator path. Unknown paths fail to open.
type fakeRaw struct {
	files map[string][][]byte
	// broken paths fail after their chunks
	broken map[string]bool
}

func (f *fakeRaw) Chunks(ctx context.Context, loc *source.Locator) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if loc.Path == "/media/slow.png" {
			if !yield(pngHeader, nil) {
				return
			}
			<-ctx.Done()
			yield(nil, ctx.Err())
			return
		}

		chunks, ok := f.files[loc.Path]
		if !ok {
			yield(nil, &pipeline.Failure{Kind: pipeline.KindReadException, URI: loc.Raw, Detail: "open " + loc.Path + ": no such file or directory"})
			return
		}
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if f.broken[loc.Path] {
			yield(nil, &pipeline.Failure{Kind: pipeline.KindReadException, URI: loc.Raw, Detail: "unexpected EOF"})
		}
	}
}

type fakeImages struct {
	mu   sync.Mutex
	last pipeline.ImageRequest
}

func (f *fakeImages) Transcode(_ context.Context, req pipeline.ImageRequest) ([]byte, error) {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if req.MimeType == "image/vnd.custom" {
		return nil, &pipeline.Failure{Kind: pipeline.KindDecodeNull, URI: req.Locator.Raw}
	}
	return pngHeader, nil
}

type fakeVideos struct{}

func (fakeVideos) Thumbnail(_ context.Context, loc *source.Locator) ([]byte, error) {
	return nil, &pipeline.Failure{Kind: pipeline.KindVideoNull, URI: loc.Raw}
}

type fakeStore struct {
	pingErr  error
	records  []database.SessionRecord
	stats    []metrics.HistoryCount
	err      error
	gotLimit int
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) RecentSessions(_ context.Context, limit int) ([]database.SessionRecord, error) {
	f.gotLimit = limit
	return f.records, f.err
}

func (f *fakeStore) SessionStats(context.Context) ([]metrics.HistoryCount, error) {
	return f.stats, f.err
}

var errStore = errors.New("database is locked")

func newTestHandlers(store *fakeStore) (*Handlers, *fakeImages) {
	images := &fakeImages{}
	raw := &fakeRaw{
		files: map[string][][]byte{
			"/media/a.png":      {pngHeader, []byte("rest"), []byte("-of-file")},
			"/media/broken.png": {pngHeader},
		},
		broken: map[string]bool{"/media/broken.png": true},
	}
	controller := session.NewController(session.Config{
		Raw:    raw,
		Images: images,
		Videos: fakeVideos{},
	})
	if store == nil {
		store = &fakeStore{}
	}
	return New(controller, store, transcoder.New("/nonexistent/ffmpeg"), nil), images
}
