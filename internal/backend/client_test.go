package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dooshek/voiceassist/internal/catalog"
	"github.com/google/go-cmp/cmp"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"ftp://x", "localhost:5000", "://"} {
		if _, err := New(u); err == nil {
			t.Errorf("New(%q) expected error", u)
		}
	}
}

func TestGetCharacters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/get_characters" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("missing request id")
		}
		io.WriteString(w, `{"success": true, "characters": {"Ada": {"description": "x", "languages": {"English": "en", "French": "fr"}}}}`)
	})

	got, err := c.GetCharacters(context.Background())
	if err != nil {
		t.Fatalf("GetCharacters: %v", err)
	}
	ada, ok := got.Get("Ada")
	if !ok {
		t.Fatalf("Ada missing: %v", got.Names())
	}
	want := []catalog.Language{{Name: "English", Code: "en"}, {Name: "French", Code: "fr"}}
	if diff := cmp.Diff(want, ada.Languages); diff != "" {
		t.Fatalf("languages (-want +got):\n%s", diff)
	}
}

func TestGetCharactersFailures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantBackend bool
	}{
		{"success false", 200, `{"success": false, "error": "db down"}`, true},
		{"http error with envelope", 500, `{"success": false, "error": "Server error"}`, true},
		{"http error plain", 502, `bad gateway`, false},
		{"not json", 200, `<html>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.GetCharacters(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := errors.Is(err, ErrBackendFailure); got != tt.wantBackend {
				t.Fatalf("errors.Is(ErrBackendFailure) = %v for %v", got, err)
			}
		})
	}
}

func TestGetLanguages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["character"] != "Mark" {
			t.Errorf("character = %q", body["character"])
		}
		io.WriteString(w, `{"success": true, "languages": {"English": "en", "German": "de"}}`)
	})

	langs, err := c.GetLanguages(context.Background(), "Mark")
	if err != nil {
		t.Fatalf("GetLanguages: %v", err)
	}
	if len(langs) != 2 || langs[1].Code != "de" {
		t.Fatalf("langs = %+v", langs)
	}
}

func TestGetLanguagesRequiresObject(t *testing.T) {
	for _, body := range []string{`{"success": true}`, `{"success": true, "languages": ["English"]}`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		})
		if langs, err := c.GetLanguages(context.Background(), "Mark"); err == nil {
			t.Errorf("%s: langs = %+v, want error", body, langs)
		}

		// the compiled-in list is used instead
		langs, err := catalog.Languages(context.Background(), c, "Mark")
		if err != nil {
			t.Fatalf("catalog.Languages: %v", err)
		}
		mark, _ := catalog.Fallback().Get("Mark")
		if diff := cmp.Diff(mark.Languages, langs); diff != "" {
			t.Errorf("%s: fallback languages (-want +got):\n%s", body, diff)
		}
	}
}

func TestProcessAudio(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "RIFFdata" || hdr.Filename != "recording.wav" {
			t.Errorf("audio part = %q (%s)", data, hdr.Filename)
		}
		want := map[string]string{
			"language":      "French",
			"language_code": "fr",
			"character":     "Meera",
			"voice_id":      "voice-1",
			"api_version":   "1",
		}
		for k, v := range want {
			if got := r.FormValue(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		io.WriteString(w, `{"success": true, "transcribed_text": "hello", "response_text": "bonjour", "audio_file": "/audio/r.mp3"}`)
	})

	reply, err := c.ProcessAudio(context.Background(), AudioRequest{
		Audio:        []byte("RIFFdata"),
		Language:     "French",
		LanguageCode: "fr",
		Character:    "Meera",
		VoiceID:      "voice-1",
		APIVersion:   "1",
	})
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	want := &Reply{Success: true, TranscribedText: "hello", ResponseText: "bonjour", AudioFile: "/audio/r.mp3"}
	if diff := cmp.Diff(want, reply); diff != "" {
		t.Fatalf("reply (-want +got):\n%s", diff)
	}
}

func TestProcessText(t *testing.T) {
	var got TextRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		io.WriteString(w, `{"success": true, "response_text": "Bonjour"}`)
	})

	req := TextRequest{
		Text:               "Hello",
		SourceLanguage:     "English",
		SourceLanguageCode: "en",
		TargetLanguage:     "French",
		TargetLanguageCode: "fr",
		Character:          "Ada",
		APIVersion:         "1",
	}
	reply, err := c.ProcessText(context.Background(), req)
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	if reply.ResponseText != "Bonjour" {
		t.Fatalf("response = %q", reply.ResponseText)
	}
	if diff := cmp.Diff(req, got); diff != "" {
		t.Fatalf("request body (-want +got):\n%s", diff)
	}
}

func TestProcessTextBackendFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success": false, "error": "Text is required"}`)
	})
	_, err := c.ProcessText(context.Background(), TextRequest{})
	var fe *FailureError
	if !errors.As(err, &fe) || fe.Message != "Text is required" {
		t.Fatalf("err = %v", err)
	}
}

func TestResolveAndDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/reply.mp3" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "ID3")
	})

	rc, err := c.Download(context.Background(), "/audio/reply.mp3")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "ID3" {
		t.Fatalf("data = %q", data)
	}

	if _, err := c.Download(context.Background(), "/audio/missing.mp3"); err == nil {
		t.Fatalf("expected 404 error")
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": "healthy", "timestamp": 1700000000.5}`)
	})
	h, err := c.Health(context.Background())
	if err != nil || h.Status != "healthy" {
		t.Fatalf("Health = %+v, %v", h, err)
	}
}
