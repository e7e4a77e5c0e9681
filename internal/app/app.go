// Package app ties the selection state, the recording session and the
// submission handlers together. Front ends (the console and the D-Bus
// service) drive it and observe it through Hooks.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dooshek/voiceassist/internal/backend"
	"github.com/dooshek/voiceassist/internal/catalog"
	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/internal/notification"
	"github.com/dooshek/voiceassist/internal/recording"
	"github.com/dooshek/voiceassist/internal/state"
	"github.com/dooshek/voiceassist/internal/submit"
)

// Hooks are optional callbacks fired after the matching change
type Hooks struct {
	OnView             func(state.View)
	OnProgress         func(recording.Progress)
	OnResponse         func(submit.Response)
	OnClearInput       func()
	OnRecordingStarted func(state.Selection)
	OnReply            func(character string, reply *backend.Reply)
	OnError            func(error)
}

// Deps are the collaborators of an App. Player and Stats may be nil.
type Deps struct {
	Fetcher          catalog.Fetcher
	Backend          submit.Backend
	Capturer         recording.Capturer
	Encode           recording.EncodeFunc
	Player           submit.Player
	Notifier         notification.Notifier
	Stats            submit.Stats
	MaxDuration      time.Duration
	DefaultCharacter string
	RequestTimeout   time.Duration

	// NewTicker replaces the one-second recording ticker
	NewTicker func(time.Duration) recording.Ticker
}

type App struct {
	mu    sync.Mutex
	view  state.View
	hooks []Hooks

	fetcher   catalog.Fetcher
	notifier  notification.Notifier
	recorder  *recording.Manager
	submitter *submit.Handler
	preferred string
	timeout   time.Duration

	inflight sync.WaitGroup
}

func New(d Deps) *App {
	a := &App{
		fetcher:   d.Fetcher,
		notifier:  d.Notifier,
		preferred: d.DefaultCharacter,
		timeout:   d.RequestTimeout,
		view:      state.Init(catalog.New(), ""),
	}
	if a.notifier == nil {
		a.notifier = notification.NewSilent()
	}

	opts := []recording.Option{
		recording.OnProgress(a.progressChanged),
		recording.OnFinished(a.recordingFinished),
	}
	if d.NewTicker != nil {
		opts = append(opts, recording.WithTicker(d.NewTicker))
	}
	a.recorder = recording.NewManager(d.Capturer, d.Encode, d.MaxDuration, opts...)

	subOpts := []submit.Option{
		submit.WithNotifier(a.notifier),
		submit.OnReply(a.replied),
	}
	if d.Player != nil {
		subOpts = append(subOpts, submit.WithPlayer(d.Player))
	}
	if d.Stats != nil {
		subOpts = append(subOpts, submit.WithStats(d.Stats))
	}
	a.submitter = submit.New(d.Backend, panel{a}, subOpts...)
	return a
}

// Observe registers hooks. Register before Load; hooks are not removed.
func (a *App) Observe(h Hooks) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, h)
}

// Load fetches the catalog once, falling back to the compiled-in one, and
// selects the default character.
func (a *App) Load(ctx context.Context) catalog.Result {
	res := catalog.Load(ctx, a.fetcher)
	if res.Err != nil {
		a.fail(res.Err)
	}

	v := state.Init(res.Catalog, a.preferred)
	a.mu.Lock()
	a.view = v
	a.mu.Unlock()

	logger.Infof("Loaded %d characters (%s)", res.Catalog.Len(), res.Source)
	a.emit(func(h Hooks) {
		if h.OnView != nil {
			h.OnView(v)
		}
	})
	return res
}

// View returns the current view
func (a *App) View() state.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

func (a *App) Selection() state.Selection {
	return a.View().Selection()
}

// Dispatch applies a selection event. Rejected events leave the view as is.
func (a *App) Dispatch(e state.Event) error {
	a.mu.Lock()
	next, err := state.Reduce(a.view, e)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.view = next
	a.mu.Unlock()

	a.emit(func(h Hooks) {
		if h.OnView != nil {
			h.OnView(next)
		}
	})
	return nil
}

// Languages lists a character's languages as the backend reports them
func (a *App) Languages(ctx context.Context, character string) ([]catalog.Language, error) {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()
	return catalog.Languages(ctx, a.fetcher, character)
}

func (a *App) RecordingState() recording.State {
	return a.recorder.State()
}

func (a *App) Progress() recording.Progress {
	return a.recorder.Progress()
}

// StartRecording starts a session for the current selection
func (a *App) StartRecording() error {
	sel := a.Selection()
	if err := a.recorder.Start(sel); err != nil {
		a.fail(err)
		return err
	}
	if a.recorder.State() == recording.Recording {
		_ = a.notifier.PlayStartBeep()
		_ = a.notifier.NotifyRecordingStarted(sel.Character)
		a.emit(func(h Hooks) {
			if h.OnRecordingStarted != nil {
				h.OnRecordingStarted(sel)
			}
		})
	}
	return nil
}

func (a *App) StopRecording() {
	a.recorder.Stop()
}

// ToggleRecording starts when idle and stops when recording
func (a *App) ToggleRecording() error {
	switch a.recorder.State() {
	case recording.Idle:
		return a.StartRecording()
	case recording.Recording:
		a.StopRecording()
	}
	return nil
}

// SendText submits a typed message in the background
func (a *App) SendText(text string) {
	v := a.View()
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		ctx, cancel := a.requestContext(context.Background())
		defer cancel()
		if err := a.submitter.Text(ctx, v, text); err != nil && !errors.Is(err, submit.ErrStale) {
			a.emitError(err)
		}
	}()
}

// Wait blocks until every submission started so far has finished
func (a *App) Wait() {
	a.inflight.Wait()
}

func (a *App) recordingFinished(take recording.Take) {
	_ = a.notifier.PlayStopBeep()
	if take.Err != nil {
		a.fail(take.Err)
		a.recorder.Done()
		return
	}

	// the take goes to the selection it was recorded for, not the current one
	target := submit.Target{Selection: take.Selection}
	target.Character, _ = a.View().Catalog().Get(take.Selection.Character)
	_ = a.notifier.NotifyProcessing()
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		defer a.recorder.Done()
		ctx, cancel := a.requestContext(context.Background())
		defer cancel()
		if err := a.submitter.Audio(ctx, target, take.Clip); err != nil && !errors.Is(err, submit.ErrStale) {
			a.emitError(err)
		}
	}()
}

func (a *App) progressChanged(p recording.Progress) {
	a.emit(func(h Hooks) {
		if h.OnProgress != nil {
			h.OnProgress(p)
		}
	})
}

func (a *App) replied(character string, reply *backend.Reply) {
	a.emit(func(h Hooks) {
		if h.OnReply != nil {
			h.OnReply(character, reply)
		}
	})
}

// fail reports an error raised outside the submission handlers
func (a *App) fail(err error) {
	logger.Error("Voice assistant error", err)
	_ = a.notifier.NotifyError(err)
	a.emitError(err)
}

func (a *App) emitError(err error) {
	_ = a.notifier.PlayErrorBeep()
	a.emit(func(h Hooks) {
		if h.OnError != nil {
			h.OnError(err)
		}
	})
}

func (a *App) emit(f func(Hooks)) {
	a.mu.Lock()
	hooks := make([]Hooks, len(a.hooks))
	copy(hooks, a.hooks)
	a.mu.Unlock()
	for _, h := range hooks {
		f(h)
	}
}

func (a *App) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// panel forwards the submission handlers' output to the hooks
type panel struct{ a *App }

func (p panel) Show(r submit.Response) {
	p.a.emit(func(h Hooks) {
		if h.OnResponse != nil {
			h.OnResponse(r)
		}
	})
}

func (p panel) ClearInput() {
	p.a.emit(func(h Hooks) {
		if h.OnClearInput != nil {
			h.OnClearInput()
		}
	})
}
