package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"imagestream/internal/logging"
)

var (
	// ErrFFmpegUnavailable is returned when the ffmpeg binary cannot be found.
	ErrFFmpegUnavailable = errors.New("ffmpeg not available")
	// ErrNoFrame is returned when ffmpeg exits cleanly without writing a frame.
	ErrNoFrame = errors.New("ffmpeg produced no frame")
)

// Transcoder runs ffmpeg to pull still frames out of media.
type Transcoder struct {
	ffmpegPath string

	processes map[int]*exec.Cmd
	nextID    int
	processMu sync.Mutex
}

// Input names what ffmpeg reads: a local file, or bytes piped on stdin.
type Input struct {
	Path string
	Data []byte
}

func (in Input) arg() string {
	if in.Path != "" {
		return in.Path
	}
	return "pipe:0"
}

func (in Input) String() string {
	if in.Path != "" {
		return in.Path
	}
	return fmt.Sprintf("<stdin %d bytes>", len(in.Data))
}

// New creates a Transcoder. An empty path looks ffmpeg up on PATH.
func New(ffmpegPath string) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Transcoder{
		ffmpegPath: ffmpegPath,
		processes:  make(map[int]*exec.Cmd),
	}
}

// Available reports whether the ffmpeg binary can be found.
func (t *Transcoder) Available() bool {
	if t == nil {
		return false
	}
	_, err := exec.LookPath(t.ffmpegPath)
	return err == nil
}

// ExtractFrame writes the frame at offset as PNG. A zero offset takes the
// first decodable frame. For still images this is a full decode.
func (t *Transcoder) ExtractFrame(ctx context.Context, in Input, offset time.Duration) ([]byte, error) {
	if !t.Available() {
		return nil, ErrFFmpegUnavailable
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-i", in.arg()}
	if offset > 0 {
		args = append(args, "-ss", formatOffset(offset))
	}
	args = append(args,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	return t.run(ctx, in, args)
}

func (t *Transcoder) run(ctx context.Context, in Input, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if in.Path == "" {
		cmd.Stdin = bytes.NewReader(in.Data)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	id := t.track(cmd)
	defer t.untrack(id)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Debug("ffmpeg failed for %s: %v, stderr: %s", in, err, stderr.String())
		return nil, fmt.Errorf("ffmpeg failed: %w\n%s", err, stderr.String())
	}

	if stdout.Len() == 0 {
		return nil, ErrNoFrame
	}

	logging.Debug("ffmpeg output size: %d bytes for %s", stdout.Len(), in)
	return stdout.Bytes(), nil
}

func (t *Transcoder) track(cmd *exec.Cmd) int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	t.nextID++
	t.processes[t.nextID] = cmd
	return t.nextID
}

func (t *Transcoder) untrack(id int) {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	delete(t.processes, id)
}

// Running returns the number of ffmpeg processes currently running.
func (t *Transcoder) Running() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// Cleanup kills all running ffmpeg processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for id, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing ffmpeg process %d (pid %d)", id, cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill ffmpeg process %d: %v", id, err)
			}
		}
	}
}

// formatOffset renders d as HH:MM:SS.mmm.
func formatOffset(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}
