// Package submit sends recordings and typed messages to the backend and
// renders the replies.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dooshek/voiceassist/internal/audio"
	"github.com/dooshek/voiceassist/internal/backend"
	"github.com/dooshek/voiceassist/internal/catalog"
	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/internal/state"
)

const (
	processingAudio = "Processing your audio..."
	processingText  = "Processing your message..."

	genericAudioError = "An error occurred while processing your audio."
	genericTextError  = "An error occurred while processing your message."
)

var (
	ErrNoSelection = state.ErrNoSelection
	ErrEmptyText   = errors.New("Please enter a message.")
	// ErrStale is returned when a newer submission superseded this one
	ErrStale = errors.New("reply superseded by a newer submission")
)

type Backend interface {
	ProcessAudio(ctx context.Context, req backend.AudioRequest) (*backend.Reply, error)
	ProcessText(ctx context.Context, req backend.TextRequest) (*backend.Reply, error)
}

type Player interface {
	PlayAsync(ref string)
}

type Notifier interface {
	NotifyResponse(character, text string) error
	NotifyError(err error) error
}

// Stats records per-character usage
type Stats interface {
	RecordAudio(character string, d time.Duration)
	RecordText(character string)
}

type Option func(*Handler)

// WithPlayer enables autoplay of reply audio
func WithPlayer(p Player) Option {
	return func(h *Handler) { h.player = p }
}

func WithNotifier(n Notifier) Option {
	return func(h *Handler) { h.notifier = n }
}

func WithStats(s Stats) Option {
	return func(h *Handler) { h.stats = s }
}

// OnReply is called with every reply that is shown
func OnReply(f func(character string, reply *backend.Reply)) Option {
	return func(h *Handler) { h.onReply = f }
}

type Handler struct {
	backend  Backend
	panel    Panel
	player   Player
	notifier Notifier
	stats    Stats
	onReply  func(string, *backend.Reply)
	seq      Sequencer
}

func New(b Backend, panel Panel, opts ...Option) *Handler {
	h := &Handler{backend: b, panel: panel}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Target is the selection a submission is addressed to, together with the
// catalog entry of its character
type Target struct {
	Selection state.Selection
	Character catalog.Character
}

// TargetOf is the current selection of v
func TargetOf(v state.View) Target {
	ch, _ := v.SelectedCharacter()
	return Target{Selection: v.Selection(), Character: ch}
}

// Audio submits a finished recording to the selection it was recorded for
func (h *Handler) Audio(ctx context.Context, target Target, clip audio.Clip) error {
	sel := target.Selection
	if !sel.Complete() {
		return h.reject(ErrNoSelection)
	}
	ch := target.Character

	req := backend.AudioRequest{
		Audio:        clip.Data,
		Filename:     clip.Filename,
		Language:     sel.Language,
		LanguageCode: sel.LanguageCode,
		Character:    sel.Character,
		VoiceID:      ch.VoiceID(),
		APIVersion:   ch.APIVersion(),
	}

	ticket := h.seq.Next()
	h.panel.Show(pending(processingAudio))
	logger.Infof("Submitting %.1fs of audio to %s in %s", clip.Duration.Seconds(), sel.Character, sel.Language)

	reply, err := h.backend.ProcessAudio(ctx, req)
	if !h.seq.Current(ticket) {
		h.dropStale("audio", ticket, err)
		return ErrStale
	}
	if err != nil {
		return h.fail("Error processing audio", genericAudioError, err)
	}

	if h.stats != nil {
		h.stats.RecordAudio(sel.Character, clip.Duration)
	}
	resp := Response{Lines: []Line{{Text: reply.ResponseText}}}
	if reply.TranscribedText != "" {
		resp.Lines = []Line{
			{Label: "You said:", Text: reply.TranscribedText},
			{Label: "Response:", Text: reply.ResponseText},
		}
	}
	h.deliver(sel.Character, reply, resp)
	return nil
}

// Text submits a typed message. The text is trimmed; an empty message is
// rejected before the selection is checked.
func (h *Handler) Text(ctx context.Context, v state.View, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return h.reject(ErrEmptyText)
	}
	sel := v.Selection()
	if !sel.Complete() {
		return h.reject(ErrNoSelection)
	}
	ch, _ := v.SelectedCharacter()
	source, sourceCode := SourceLanguage(v)

	req := backend.TextRequest{
		Text:               text,
		SourceLanguage:     source,
		SourceLanguageCode: sourceCode,
		TargetLanguage:     sel.Language,
		TargetLanguageCode: sel.LanguageCode,
		Character:          sel.Character,
		VoiceID:            ch.VoiceID(),
		APIVersion:         ch.APIVersion(),
	}

	ticket := h.seq.Next()
	h.panel.Show(pending(processingText))

	reply, err := h.backend.ProcessText(ctx, req)
	if !h.seq.Current(ticket) {
		h.dropStale("text", ticket, err)
		return ErrStale
	}
	if err != nil {
		return h.fail("Error processing text", genericTextError, err)
	}

	if h.stats != nil {
		h.stats.RecordText(sel.Character)
	}
	h.deliver(sel.Character, reply, Response{Lines: []Line{
		{Label: "You:", Text: text},
		{Label: "Response:", Text: reply.ResponseText},
	}})
	h.panel.ClearInput()
	return nil
}

// dropStale logs a reply that lost to a newer submission. Failures are
// logged as warnings since they are never shown.
func (h *Handler) dropStale(kind string, ticket uint64, err error) {
	if err != nil {
		logger.Warnf("Dropping failed %s reply (ticket %d), a newer submission is pending: %v", kind, ticket, err)
		return
	}
	logger.Debugf("Dropping stale %s reply (ticket %d)", kind, ticket)
}

// SourceLanguage resolves the language the user writes in: the explicit
// source choice when set, else the target language. The code comes from the
// character's list and falls back to the target code.
func SourceLanguage(v state.View) (name, code string) {
	sel := v.Selection()
	name = sel.Language
	if src, ok := v.SourceLanguage(); ok {
		name = src
	}
	code = sel.LanguageCode
	if ch, ok := v.SelectedCharacter(); ok {
		if c, ok := ch.LanguageCode(name); ok {
			code = c
		}
	}
	return name, code
}

func (h *Handler) deliver(character string, reply *backend.Reply, resp Response) {
	h.panel.Show(resp)
	if h.notifier != nil {
		_ = h.notifier.NotifyResponse(character, reply.ResponseText)
	}
	if h.onReply != nil {
		h.onReply(character, reply)
	}
	if reply.AudioFile != "" && h.player != nil {
		h.player.PlayAsync(reply.AudioFile)
	}
}

func (h *Handler) reject(err error) error {
	h.panel.Show(failed(err.Error()))
	if h.notifier != nil {
		_ = h.notifier.NotifyError(err)
	}
	return err
}

// fail renders a request failure. Messages the backend reported itself are
// shown verbatim; anything else gets the generic text.
func (h *Handler) fail(action, generic string, err error) error {
	logger.Error(action, err)

	shown := generic
	var failure *backend.FailureError
	if errors.As(err, &failure) && failure.Message != "" {
		shown = "Error: " + failure.Message
	}
	h.panel.Show(failed(shown))
	if h.notifier != nil {
		_ = h.notifier.NotifyError(fmt.Errorf("%s: %w", action, err))
	}
	return fmt.Errorf("%s: %w", action, err)
}
