package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dooshek/voiceassist/internal/audio"
	"github.com/dooshek/voiceassist/internal/backend"
	"github.com/dooshek/voiceassist/internal/catalog"
	"github.com/dooshek/voiceassist/internal/recording"
	"github.com/dooshek/voiceassist/internal/state"
	"github.com/dooshek/voiceassist/internal/submit"
)

type fakeFetcher struct {
	cat *catalog.Catalog
	err error
}

func (f *fakeFetcher) GetCharacters(context.Context) (*catalog.Catalog, error) {
	return f.cat, f.err
}

func (f *fakeFetcher) GetLanguages(context.Context, string) ([]catalog.Language, error) {
	return nil, errors.New("not implemented")
}

type fakeBackend struct {
	mu    sync.Mutex
	audio []backend.AudioRequest
	text  []backend.TextRequest
}

func (f *fakeBackend) ProcessAudio(_ context.Context, req backend.AudioRequest) (*backend.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, req)
	return &backend.Reply{Success: true, TranscribedText: "Hello", ResponseText: "Bonjour"}, nil
}

func (f *fakeBackend) ProcessText(_ context.Context, req backend.TextRequest) (*backend.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = append(f.text, req)
	return &backend.Reply{Success: true, ResponseText: "Bonjour"}, nil
}

type fakeMic struct{}

func (fakeMic) Acquire() error       { return nil }
func (fakeMic) Begin() error         { return nil }
func (fakeMic) End() ([]byte, error) { return []byte{0, 0}, nil }

type stillTicker struct{ c chan time.Time }

func (t stillTicker) C() <-chan time.Time { return t.c }
func (t stillTicker) Stop()               {}

type recorder struct {
	mu        sync.Mutex
	responses []submit.Response
	errs      []error
	views     int
	started   int
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnView: func(state.View) { r.mu.Lock(); r.views++; r.mu.Unlock() },
		OnResponse: func(resp submit.Response) {
			r.mu.Lock()
			r.responses = append(r.responses, resp)
			r.mu.Unlock()
		},
		OnError:            func(err error) { r.mu.Lock(); r.errs = append(r.errs, err); r.mu.Unlock() },
		OnRecordingStarted: func(state.Selection) { r.mu.Lock(); r.started++; r.mu.Unlock() },
	}
}

func (r *recorder) lastResponse() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return ""
	}
	return r.responses[len(r.responses)-1].String()
}

func newTestApp(f *fakeFetcher, b *fakeBackend) (*App, *recorder) {
	a := New(Deps{
		Fetcher:  f,
		Backend:  b,
		Capturer: fakeMic{},
		Encode: func(pcm []byte) (audio.Clip, error) {
			return audio.Clip{Data: pcm, Filename: "recording.wav", Duration: time.Second}, nil
		},
		MaxDuration: time.Minute,
		NewTicker: func(time.Duration) recording.Ticker {
			return stillTicker{c: make(chan time.Time)}
		},
	})
	r := &recorder{}
	a.Observe(r.hooks())
	return a, r
}

func TestLoadFallsBackAndSelectsFirst(t *testing.T) {
	a, r := newTestApp(&fakeFetcher{err: errors.New("connection refused")}, &fakeBackend{})

	res := a.Load(context.Background())
	if !res.UsedFallback() {
		t.Fatalf("source = %v", res.Source)
	}
	first, _ := catalog.Fallback().First()
	lang, _ := first.FirstLanguage()
	want := state.Selection{Character: first.Name, Language: lang.Name, LanguageCode: lang.Code}
	if got := a.Selection(); got != want {
		t.Fatalf("selection = %+v, want %+v", got, want)
	}
	if len(r.errs) != 1 || r.views != 1 {
		t.Fatalf("errs = %v, views = %d", r.errs, r.views)
	}
}

func TestLoadHonoursDefaultCharacter(t *testing.T) {
	cat := catalog.New(
		catalog.Character{Name: "Adam", Languages: []catalog.Language{{Name: "English", Code: "en"}}},
		catalog.Character{Name: "Mark", Languages: []catalog.Language{{Name: "French", Code: "fr"}}},
	)
	a := New(Deps{
		Fetcher:          &fakeFetcher{cat: cat},
		Backend:          &fakeBackend{},
		Capturer:         fakeMic{},
		MaxDuration:      time.Minute,
		DefaultCharacter: "Mark",
	})
	a.Load(context.Background())
	if got := a.Selection().Character; got != "Mark" {
		t.Fatalf("character = %q", got)
	}
}

func TestRecordAndSubmit(t *testing.T) {
	cat := catalog.New(catalog.Character{
		Name: "Adam", ID: "v-adam",
		Languages: []catalog.Language{{Name: "English", Code: "en"}, {Name: "French", Code: "fr"}},
	})
	b := &fakeBackend{}
	a, r := newTestApp(&fakeFetcher{cat: cat}, b)
	a.Load(context.Background())

	if err := a.Dispatch(state.LanguageClicked{Name: "French"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := a.ToggleRecording(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if a.RecordingState() != recording.Recording || r.started != 1 {
		t.Fatalf("state = %v, started = %d", a.RecordingState(), r.started)
	}
	if err := a.ToggleRecording(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	a.Wait()

	if a.RecordingState() != recording.Idle {
		t.Fatalf("state after submission = %v", a.RecordingState())
	}
	if len(b.audio) != 1 || b.audio[0].LanguageCode != "fr" || b.audio[0].VoiceID != "v-adam" || b.audio[0].APIVersion != "1" {
		t.Fatalf("audio requests = %+v", b.audio)
	}
	if got := r.lastResponse(); got != "You said: Hello\nResponse: Bonjour" {
		t.Fatalf("response = %q", got)
	}
}

func TestRecordingKeepsItsSelection(t *testing.T) {
	for _, switchTo := range []string{"Mark", "Mute"} {
		t.Run(switchTo, func(t *testing.T) {
			cat := catalog.New(
				catalog.Character{Name: "Adam", ID: "v-adam", Languages: []catalog.Language{{Name: "English", Code: "en"}}},
				catalog.Character{Name: "Mark", ID: "v-mark", Languages: []catalog.Language{{Name: "Hindi", Code: "hi"}}},
				catalog.Character{Name: "Mute"},
			)
			b := &fakeBackend{}
			a, r := newTestApp(&fakeFetcher{cat: cat}, b)
			a.Load(context.Background())

			if err := a.StartRecording(); err != nil {
				t.Fatalf("start: %v", err)
			}
			if err := a.Dispatch(state.CharacterClicked{Name: switchTo}); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			a.StopRecording()
			a.Wait()

			if len(r.errs) != 0 {
				t.Fatalf("errors = %v", r.errs)
			}
			if len(b.audio) != 1 {
				t.Fatalf("audio requests = %d", len(b.audio))
			}
			req := b.audio[0]
			if req.Character != "Adam" || req.Language != "English" || req.LanguageCode != "en" || req.VoiceID != "v-adam" {
				t.Fatalf("request = %+v", req)
			}
			if a.Selection().Character != switchTo {
				t.Fatalf("selection = %+v", a.Selection())
			}
		})
	}
}

func TestStartWithoutLanguage(t *testing.T) {
	cat := catalog.New(catalog.Character{Name: "Mute"})
	a, r := newTestApp(&fakeFetcher{cat: cat}, &fakeBackend{})
	a.Load(context.Background())

	if err := a.StartRecording(); !errors.Is(err, recording.ErrNoSelection) {
		t.Fatalf("err = %v", err)
	}
	if len(r.errs) != 1 || r.started != 0 {
		t.Fatalf("errs = %v, started = %d", r.errs, r.started)
	}
}

func TestSendText(t *testing.T) {
	cat := catalog.New(catalog.Character{Name: "Adam", Languages: []catalog.Language{{Name: "French", Code: "fr"}}})
	b := &fakeBackend{}
	a, r := newTestApp(&fakeFetcher{cat: cat}, b)
	a.Load(context.Background())

	a.SendText("Hello")
	a.Wait()
	if got := r.lastResponse(); got != "You: Hello\nResponse: Bonjour" {
		t.Fatalf("response = %q", got)
	}

	a.SendText("  ")
	a.Wait()
	if len(b.text) != 1 {
		t.Fatalf("blank text reached the backend")
	}
	if !errors.Is(r.errs[len(r.errs)-1], submit.ErrEmptyText) {
		t.Fatalf("errs = %v", r.errs)
	}
}

func TestDispatchRejectsUnknownCharacter(t *testing.T) {
	a, _ := newTestApp(&fakeFetcher{err: errors.New("down")}, &fakeBackend{})
	a.Load(context.Background())
	before := a.Selection()

	if err := a.Dispatch(state.CharacterClicked{Name: "Nobody"}); !errors.Is(err, state.ErrUnknownCharacter) {
		t.Fatalf("err = %v", err)
	}
	if a.Selection() != before {
		t.Fatalf("selection changed")
	}
}
