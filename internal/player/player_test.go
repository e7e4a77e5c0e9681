package player

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeDownloader struct {
	refs []string
	err  error
}

func (f *fakeDownloader) Download(_ context.Context, ref string) (io.ReadCloser, error) {
	f.refs = append(f.refs, ref)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader("ID3 audio")), nil
}

func TestPlayFallsBackToNextPlayer(t *testing.T) {
	dl := &fakeDownloader{}
	p := New(dl, "")

	var tried []string
	var played string
	p.run = func(_ context.Context, name string, args ...string) error {
		tried = append(tried, name)
		if name == "paplay" {
			return errors.New("exit status 1")
		}
		played = args[len(args)-1]
		data, err := os.ReadFile(played)
		if err != nil || string(data) != "ID3 audio" {
			t.Errorf("temp file content = %q, %v", data, err)
		}
		return nil
	}

	if err := p.Play(context.Background(), "/static/reply_1.mp3"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if diff := cmp.Diff([]string{"paplay", "mpv"}, tried); diff != "" {
		t.Fatalf("players (-want +got):\n%s", diff)
	}
	if !strings.HasSuffix(played, ".mp3") {
		t.Fatalf("temp file %q lost the extension", played)
	}
	if _, err := os.Stat(played); !os.IsNotExist(err) {
		t.Fatalf("temp file not removed: %v", err)
	}
}

func TestPlayNoPlayer(t *testing.T) {
	p := New(&fakeDownloader{}, "")
	p.run = func(context.Context, string, ...string) error { return errors.New("not found") }

	if err := p.Play(context.Background(), "reply.wav"); !errors.Is(err, ErrNoPlayer) {
		t.Fatalf("err = %v", err)
	}
}

func TestPlayDownloadError(t *testing.T) {
	cause := errors.New("404")
	p := New(&fakeDownloader{err: cause}, "")
	p.run = func(context.Context, string, ...string) error {
		t.Fatalf("player started without audio")
		return nil
	}
	if err := p.Play(context.Background(), "reply.wav"); !errors.Is(err, cause) {
		t.Fatalf("err = %v", err)
	}
}

func TestCandidatesPreferred(t *testing.T) {
	got := candidates("ffplay", "a.mp3")
	if got[0][0] != "ffplay" || len(got) != 4 {
		t.Fatalf("candidates = %v", got)
	}
	got = candidates("cvlc", "a.mp3")
	if diff := cmp.Diff([]string{"cvlc", "a.mp3"}, got[0]); diff != "" || len(got) != 5 {
		t.Fatalf("candidates = %v", got)
	}
}

func TestExtensionOf(t *testing.T) {
	tests := map[string]string{
		"/static/a.MP3":            ".mp3",
		"http://h/x/reply.wav?t=1": ".wav",
		"/audio/1234":              ".mp3",
	}
	for in, want := range tests {
		if got := extensionOf(in); got != want {
			t.Errorf("extensionOf(%q) = %q, want %q", in, got, want)
		}
	}
}
