package dbus

import (
	"context"
	"fmt"

	"github.com/dooshek/voiceassist/internal/app"
	"github.com/dooshek/voiceassist/internal/backend"
	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/internal/recording"
	"github.com/dooshek/voiceassist/internal/state"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	dbusServiceName = "com.dooshek.voiceassist"
	dbusObjectPath  = "/com/dooshek/voiceassist/Assistant"
	dbusInterface   = "com.dooshek.voiceassist.Assistant"
)

// Controller is the part of the app the service exposes
type Controller interface {
	ToggleRecording() error
	RecordingState() recording.State
	Dispatch(e state.Event) error
	Selection() state.Selection
	Observe(h app.Hooks)
}

// Server exposes the assistant on the session bus
type Server struct {
	conn   *dbus.Conn
	app    Controller
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server for a. Signals are wired immediately; they are
// dropped until Start connects.
func NewServer(a Controller) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{app: a, ctx: ctx, cancel: cancel}

	a.Observe(app.Hooks{
		OnRecordingStarted: func(state.Selection) {
			s.emitSignal("RecordingStarted")
		},
		OnReply: func(_ string, reply *backend.Reply) {
			s.emitSignal("ResponseReady", reply.ResponseText)
		},
		OnError: func(err error) {
			s.emitSignal("RequestError", err.Error())
		},
	})
	return s
}

// Start starts the D-Bus server
func (s *Server) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	reply, err := conn.RequestName(dbusServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return fmt.Errorf("name already taken")
	}

	if err := conn.Export(s, dbusObjectPath, dbusInterface); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: dbusObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: dbusInterface,
				Methods: []introspect.Method{
					{Name: "ToggleRecording"},
					{
						Name: "GetStatus",
						Args: []introspect.Arg{
							{Name: "state", Type: "s", Direction: "out"},
						},
					},
					{
						Name: "SelectCharacter",
						Args: []introspect.Arg{
							{Name: "name", Type: "s", Direction: "in"},
						},
					},
					{
						Name: "SelectLanguage",
						Args: []introspect.Arg{
							{Name: "name", Type: "s", Direction: "in"},
						},
					},
					{
						Name: "GetSelection",
						Args: []introspect.Arg{
							{Name: "character", Type: "s", Direction: "out"},
							{Name: "language", Type: "s", Direction: "out"},
							{Name: "language_code", Type: "s", Direction: "out"},
						},
					},
				},
				Signals: []introspect.Signal{
					{Name: "RecordingStarted"},
					{
						Name: "ResponseReady",
						Args: []introspect.Arg{{Name: "text", Type: "s"}},
					},
					{
						Name: "RequestError",
						Args: []introspect.Arg{{Name: "error", Type: "s"}},
					},
				},
			},
		},
	}

	err = conn.Export(introspect.NewIntrospectable(node), dbusObjectPath, "org.freedesktop.DBus.Introspectable")
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	s.conn = conn
	logger.Infof("D-Bus service started: %s", dbusServiceName)
	return nil
}

// Stop stops the D-Bus server
func (s *Server) Stop() {
	s.cancel()
	if s.conn != nil {
		s.conn.Close()
	}
	logger.Info("D-Bus service stopped")
}

// Wait waits for the server context to be cancelled
func (s *Server) Wait() {
	<-s.ctx.Done()
}

// ToggleRecording starts or stops recording (D-Bus method)
func (s *Server) ToggleRecording() *dbus.Error {
	logger.Debug("D-Bus: ToggleRecording called")
	if err := s.app.ToggleRecording(); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// GetStatus returns idle, recording or processing (D-Bus method)
func (s *Server) GetStatus() (string, *dbus.Error) {
	return s.app.RecordingState().String(), nil
}

// SelectCharacter selects a character and its first language (D-Bus method)
func (s *Server) SelectCharacter(name string) *dbus.Error {
	if err := s.app.Dispatch(state.CharacterClicked{Name: name}); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// SelectLanguage selects a language of the current character (D-Bus method)
func (s *Server) SelectLanguage(name string) *dbus.Error {
	if err := s.app.Dispatch(state.LanguageClicked{Name: name}); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// GetSelection returns the current selection (D-Bus method)
func (s *Server) GetSelection() (string, string, string, *dbus.Error) {
	sel := s.app.Selection()
	return sel.Character, sel.Language, sel.LanguageCode, nil
}

func (s *Server) emitSignal(name string, args ...interface{}) {
	if s.conn == nil {
		logger.Debugf("D-Bus: not connected, dropping signal %s", name)
		return
	}

	err := s.conn.Emit(dbus.ObjectPath(dbusObjectPath), dbusInterface+"."+name, args...)
	if err != nil {
		logger.Errorf("D-Bus: Failed to emit signal %s", err, name)
	} else {
		logger.Debugf("D-Bus: Emitted signal: %s", name)
	}
}
