package transcoder

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{time.Second, "00:00:01.000"},
		{1500 * time.Millisecond, "00:00:01.500"},
		{61 * time.Minute, "01:01:00.000"},
	}
	for _, tt := range tests {
		if got := formatOffset(tt.in); got != tt.want {
			t.Errorf("formatOffset(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewDefaultsToPath(t *testing.T) {
	if got := New("").ffmpegPath; got != "ffmpeg" {
		t.Errorf("ffmpegPath = %q", got)
	}
	if got := New("/opt/ffmpeg/bin/ffmpeg").ffmpegPath; got != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("ffmpegPath = %q", got)
	}
}

func TestInputArg(t *testing.T) {
	if got := (Input{Path: "/media/a.mp4"}).arg(); got != "/media/a.mp4" {
		t.Errorf("arg() = %q", got)
	}
	if got := (Input{Data: []byte{1, 2}}).arg(); got != "pipe:0" {
		t.Errorf("arg() = %q", got)
	}
}

func TestExtractFrame_Unavailable(t *testing.T) {
	tr := New("/nonexistent/ffmpeg-for-tests")
	_, err := tr.ExtractFrame(context.Background(), Input{Path: "/x.mp4"}, 0)
	if !errors.Is(err, ErrFFmpegUnavailable) {
		t.Errorf("ExtractFrame() error = %v, want ErrFFmpegUnavailable", err)
	}
}

func TestExtractFrame_GarbageInput(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	tr := New("ffmpeg")
	_, err := tr.ExtractFrame(context.Background(), Input{Data: []byte("definitely not media")}, 0)
	if err == nil {
		t.Fatal("ExtractFrame() on garbage succeeded")
	}
	if tr.Running() != 0 {
		t.Errorf("Running() = %d after completion", tr.Running())
	}
}
