package dbus

import (
	"errors"
	"testing"

	"github.com/dooshek/voiceassist/internal/app"
	"github.com/dooshek/voiceassist/internal/recording"
	"github.com/dooshek/voiceassist/internal/state"
)

type fakeController struct {
	toggles int
	events  []state.Event
	err     error
	hooks   []app.Hooks
}

func (f *fakeController) ToggleRecording() error {
	f.toggles++
	return f.err
}

func (f *fakeController) RecordingState() recording.State { return recording.Processing }

func (f *fakeController) Dispatch(e state.Event) error {
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeController) Selection() state.Selection {
	return state.Selection{Character: "Adam", Language: "French", LanguageCode: "fr"}
}

func (f *fakeController) Observe(h app.Hooks) { f.hooks = append(f.hooks, h) }

func TestMethods(t *testing.T) {
	c := &fakeController{}
	s := NewServer(c)

	if len(c.hooks) != 1 {
		t.Fatalf("hooks = %d", len(c.hooks))
	}
	if err := s.ToggleRecording(); err != nil {
		t.Fatalf("ToggleRecording: %v", err)
	}
	if st, _ := s.GetStatus(); st != "processing" {
		t.Fatalf("GetStatus = %q", st)
	}
	if err := s.SelectCharacter("Adam"); err != nil {
		t.Fatalf("SelectCharacter: %v", err)
	}
	if err := s.SelectLanguage("French"); err != nil {
		t.Fatalf("SelectLanguage: %v", err)
	}
	want := []state.Event{state.CharacterClicked{Name: "Adam"}, state.LanguageClicked{Name: "French"}}
	if len(c.events) != 2 || c.events[0] != want[0] || c.events[1] != want[1] {
		t.Fatalf("events = %#v", c.events)
	}
	ch, lang, code, _ := s.GetSelection()
	if ch != "Adam" || lang != "French" || code != "fr" {
		t.Fatalf("selection = %s %s %s", ch, lang, code)
	}

	// signals before Start are dropped without panicking
	c.hooks[0].OnError(errors.New("boom"))
}

func TestMethodErrors(t *testing.T) {
	c := &fakeController{err: errors.New("unknown character")}
	s := NewServer(c)
	if err := s.SelectCharacter("Nobody"); err == nil || err.Body[0] != "unknown character" {
		t.Fatalf("err = %v", err)
	}
	if err := s.ToggleRecording(); err == nil {
		t.Fatalf("expected error")
	}
}
