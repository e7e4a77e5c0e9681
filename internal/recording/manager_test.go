package recording

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dooshek/voiceassist/internal/audio"
	"github.com/dooshek/voiceassist/internal/state"
	"github.com/google/go-cmp/cmp"
)

type fakeCapturer struct {
	mu         sync.Mutex
	acquires   int
	acquireErr error
	capturing  bool
}

func (f *fakeCapturer) Acquire() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	return f.acquireErr
}

func (f *fakeCapturer) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capturing = true
	return nil
}

func (f *fakeCapturer) End() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capturing = false
	return make([]byte, 320), nil
}

type manualTicker struct {
	c       chan time.Time
	stopped chan struct{}
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               { close(t.stopped) }

type harness struct {
	mgr      *Manager
	mic      *fakeCapturer
	ticker   *manualTicker
	progress chan Progress
	takes    chan Take
}

func newHarness(t *testing.T, max time.Duration) *harness {
	t.Helper()
	h := &harness{
		mic:      &fakeCapturer{},
		progress: make(chan Progress, 128),
		takes:    make(chan Take, 4),
	}
	encode := func(pcm []byte) (audio.Clip, error) {
		return audio.Clip{Data: pcm, Filename: "recording.wav"}, nil
	}
	h.mgr = NewManager(h.mic, encode, max,
		WithTicker(func(time.Duration) Ticker {
			h.ticker = &manualTicker{c: make(chan time.Time), stopped: make(chan struct{})}
			return h.ticker
		}),
		OnProgress(func(p Progress) { h.progress <- p }),
		OnFinished(func(tk Take) { h.takes <- tk }),
	)
	return h
}

var sel = state.Selection{Character: "Monika", Language: "English", LanguageCode: "en"}

func (h *harness) drainProgress() []Progress {
	var out []Progress
	for {
		select {
		case p := <-h.progress:
			out = append(out, p)
		default:
			return out
		}
	}
}

func (h *harness) waitTake(t *testing.T) Take {
	t.Helper()
	select {
	case tk := <-h.takes:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatalf("no take delivered")
		return Take{}
	}
}

func TestStartRequiresSelection(t *testing.T) {
	h := newHarness(t, time.Minute)
	err := h.mgr.Start(state.Selection{Character: "Monika"})
	if !errors.Is(err, ErrNoSelection) {
		t.Fatalf("err = %v", err)
	}
	if h.mic.acquires != 0 {
		t.Fatalf("microphone acquired without a selection")
	}
	if h.mgr.State() != Idle {
		t.Fatalf("state = %v", h.mgr.State())
	}
}

func TestMicrophoneUnavailable(t *testing.T) {
	h := newHarness(t, time.Minute)
	cause := errors.New("no device")
	h.mic.acquireErr = cause

	err := h.mgr.Start(sel)
	if !errors.Is(err, ErrMicrophoneUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("err = %v", err)
	}
	if h.mgr.State() != Idle {
		t.Fatalf("state = %v", h.mgr.State())
	}
}

func (h *harness) next(t *testing.T) Progress {
	t.Helper()
	select {
	case p := <-h.progress:
		return p
	case <-time.After(2 * time.Second):
		t.Fatalf("no progress update")
		return Progress{}
	}
}

func TestManualStopFlow(t *testing.T) {
	h := newHarness(t, time.Minute)
	var got []Progress

	if err := h.mgr.Start(sel); err != nil {
		t.Fatalf("Start: %v", err)
	}
	got = append(got, h.next(t))
	// second start while recording is a no-op
	if err := h.mgr.Start(sel); err != nil {
		t.Fatalf("Start while recording: %v", err)
	}

	for i := 0; i < 2; i++ {
		h.ticker.c <- time.Now()
		got = append(got, h.next(t))
	}

	h.mgr.Stop()
	got = append(got, h.next(t))
	tk := h.waitTake(t)
	if tk.Err != nil || tk.Selection != sel || len(tk.Clip.Data) != 320 {
		t.Fatalf("take = %+v", tk)
	}
	if h.mgr.State() != Processing {
		t.Fatalf("state = %v", h.mgr.State())
	}
	// start while processing is ignored too
	if err := h.mgr.Start(sel); err != nil || h.mgr.State() != Processing {
		t.Fatalf("Start while processing changed state: %v", err)
	}

	h.mgr.Done()
	got = append(got, h.next(t))
	<-h.ticker.stopped

	want := []Progress{
		{State: Recording, Elapsed: 0, Max: 60},
		{State: Recording, Elapsed: 1, Max: 60},
		{State: Recording, Elapsed: 2, Max: 60},
		{State: Processing, Elapsed: 2, Max: 60, Label: ProcessingLabel},
		{State: Idle, Max: 60},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("progress mismatch (-want +got):\n%s", diff)
	}
	if h.mic.acquires != 1 {
		t.Fatalf("acquires = %d", h.mic.acquires)
	}
}

func TestAutoStopAtMax(t *testing.T) {
	h := newHarness(t, 3*time.Second)
	if err := h.mgr.Start(sel); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		h.ticker.c <- time.Now()
	}
	tk := h.waitTake(t)
	if tk.Err != nil {
		t.Fatalf("take err: %v", tk.Err)
	}
	<-h.ticker.stopped

	got := h.drainProgress()
	last := got[len(got)-1]
	if last.State != Processing || last.Elapsed != 3 || last.Label != ProcessingLabel {
		t.Fatalf("last progress = %+v", last)
	}
	for _, p := range got {
		if p.Elapsed > p.Max {
			t.Fatalf("elapsed exceeded max: %+v", p)
		}
	}

	// manual stop after auto-stop does nothing
	h.mgr.Stop()
	select {
	case tk := <-h.takes:
		t.Fatalf("unexpected second take: %+v", tk)
	default:
	}
}

func TestMicrophoneKeptAcrossSessions(t *testing.T) {
	h := newHarness(t, time.Minute)
	for i := 0; i < 3; i++ {
		if err := h.mgr.Toggle(sel); err != nil {
			t.Fatalf("Toggle start: %v", err)
		}
		if err := h.mgr.Toggle(sel); err != nil {
			t.Fatalf("Toggle stop: %v", err)
		}
		h.waitTake(t)
		h.mgr.Done()
	}
	if h.mic.acquires != 1 {
		t.Fatalf("acquires = %d", h.mic.acquires)
	}
}

func TestProgressFraction(t *testing.T) {
	if f := (Progress{Elapsed: 15, Max: 60}).Fraction(); f != 0.25 {
		t.Fatalf("Fraction = %v", f)
	}
	if f := (Progress{}).Fraction(); f != 0 {
		t.Fatalf("Fraction = %v", f)
	}
}
