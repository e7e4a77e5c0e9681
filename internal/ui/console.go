package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dooshek/voiceassist/internal/app"
	"github.com/dooshek/voiceassist/internal/auth"
	"github.com/dooshek/voiceassist/internal/backend"
	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/internal/recording"
	"github.com/dooshek/voiceassist/internal/state"
	"github.com/dooshek/voiceassist/internal/stats"
	"github.com/dooshek/voiceassist/internal/submit"
)

// Console runs the interactive command loop
type Console struct {
	app       *app.App
	in        *bufio.Scanner
	out       io.Writer
	stats     *stats.StatsManager
	validator *auth.Validator
	clip      Copier

	mu        sync.Mutex
	level     float64
	lastReply string

	readerDone chan struct{}
}

// Copier puts text on the clipboard
type Copier interface {
	Copy(text string) error
}

type ConsoleOption func(*Console)

func WithStats(s *stats.StatsManager) ConsoleOption {
	return func(c *Console) { c.stats = s }
}

// WithClipboard enables the copy command
func WithClipboard(c Copier) ConsoleOption {
	return func(con *Console) { con.clip = c }
}

// WithLevels shows the microphone level next to the progress bar
func WithLevels(levels <-chan float64) ConsoleOption {
	return func(c *Console) {
		go func() {
			for l := range levels {
				c.mu.Lock()
				c.level = l
				c.mu.Unlock()
			}
		}()
	}
}

func NewConsole(a *app.App, in io.Reader, out io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		app:       a,
		in:        bufio.NewScanner(in),
		out:       out,
		validator: auth.NewValidator(),
	}
	for _, opt := range opts {
		opt(c)
	}

	a.Observe(app.Hooks{
		OnView:     c.viewChanged,
		OnProgress: c.progressChanged,
		OnResponse: func(r submit.Response) { c.println(RenderResponse(r)) },
		OnReply:    c.replied,
		OnError:    c.showError,
	})
	return c
}

// Run reads commands until quit, end of input or ctx is done
func (c *Console) Run(ctx context.Context) error {
	c.println(helpText)
	c.println("")
	c.showGrid()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	c.readerDone = make(chan struct{})
	go c.readLines(ctx, lines)

	for {
		c.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				c.app.Wait()
				return c.in.Err()
			}
			if quit := c.Execute(ctx, line, lines); quit {
				c.app.Wait()
				return nil
			}
		}
	}
}

// readLines feeds input lines to Run and exits once Run has returned
func (c *Console) readLines(ctx context.Context, lines chan<- string) {
	defer close(c.readerDone)
	defer close(lines)
	for c.in.Scan() {
		select {
		case lines <- c.in.Text():
		case <-ctx.Done():
			return
		}
	}
}

// Execute runs one command line. Interactive commands read follow-up
// answers from lines. It reports whether the user asked to quit.
func (c *Console) Execute(ctx context.Context, line string, lines <-chan string) bool {
	cmd, err := Parse(line)
	if err != nil {
		c.showError(err)
		return false
	}

	if e, ok, err := cmd.Event(c.app.View()); ok {
		if err != nil {
			c.showError(err)
			return false
		}
		if err := c.app.Dispatch(e); err != nil {
			c.showError(err)
		}
		return false
	}

	switch cmd.Name {
	case "":
	case "chars":
		c.showGrid()
	case "langs":
		c.listLanguages(ctx, cmd)
	case "record":
		// errors reach the console through OnError
		_ = c.app.ToggleRecording()
	case "stop":
		c.app.StopRecording()
	case "say":
		c.app.SendText(cmd.Arg(0))
	case "copy":
		c.copyReply()
	case "stats":
		c.showStats()
	case "signup":
		c.signup(lines)
	case "login":
		c.login(lines)
	case "help":
		c.println(helpText)
	case "quit":
		return true
	}
	return false
}

func (c *Console) listLanguages(ctx context.Context, cmd Command) {
	name := c.app.Selection().Character
	if len(cmd.Args) > 0 {
		name = match(c.app.View().Catalog().Names(), cmd.Arg(0))
	}
	if name == "" {
		c.showError(state.ErrNoCharacter)
		return
	}
	langs, err := c.app.Languages(ctx, name)
	if err != nil {
		c.showError(err)
		return
	}
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = fmt.Sprintf("%s (%s)", l.Name, l.Code)
	}
	c.println(fmt.Sprintf("%s speaks: %s", name, strings.Join(names, ", ")))
}

func (c *Console) replied(_ string, reply *backend.Reply) {
	c.mu.Lock()
	c.lastReply = reply.ResponseText
	c.mu.Unlock()
}

func (c *Console) copyReply() {
	if c.clip == nil {
		c.println("Clipboard is not available.")
		return
	}
	c.mu.Lock()
	text := c.lastReply
	c.mu.Unlock()
	if text == "" {
		c.println("No response to copy yet.")
		return
	}
	if err := c.clip.Copy(text); err != nil {
		c.showError(err)
		return
	}
	c.println("Response copied to the clipboard.")
}

func (c *Console) showStats() {
	if c.stats == nil {
		c.println("Statistics are disabled.")
		return
	}
	entries := c.stats.Report()
	if len(entries) == 0 {
		c.println("No conversations yet.")
		return
	}
	for _, e := range entries {
		c.println(fmt.Sprintf("%-10s %3d recordings (%6.1fs)  %3d messages",
			e.Character, e.RecordingCount, e.TotalSeconds, e.TextCount))
	}
}

func (c *Console) signup(lines <-chan string) {
	form := auth.Signup{
		FirstName: c.ask(lines, "First name: "),
		LastName:  c.ask(lines, "Last name: "),
		Email:     c.ask(lines, "Email: "),
		Password:  c.ask(lines, "Password: "),
	}
	form.AcceptedTerms = isYes(c.ask(lines, "Agree to the Terms & Conditions? [y/N]: "))
	c.reportForm(c.validator.Signup(form))
}

func (c *Console) login(lines <-chan string) {
	form := auth.Login{
		Email:    c.ask(lines, "Email: "),
		Password: c.ask(lines, "Password: "),
	}
	c.reportForm(c.validator.Login(form))
}

func (c *Console) reportForm(err error) {
	if err != nil {
		c.showError(err)
		return
	}
	c.println(selectedStyle.Sprint("Form is valid."))
}

func (c *Console) ask(lines <-chan string, question string) string {
	c.print(question)
	line, ok := <-lines
	if !ok {
		return ""
	}
	return line
}

func (c *Console) viewChanged(v state.View) {
	if v.OpenDropdown() != "" {
		ch, _ := v.Catalog().Get(v.OpenDropdown())
		var b strings.Builder
		renderBox(&b, v, ch)
		c.print(b.String())
		return
	}
	c.println(RenderSelection(v))
}

func (c *Console) showGrid() {
	var b strings.Builder
	RenderGrid(&b, c.app.View())
	c.print(b.String())
}

func (c *Console) progressChanged(p recording.Progress) {
	c.mu.Lock()
	level := c.level
	c.mu.Unlock()
	if line := RenderProgress(p, level); line != "" {
		c.println(line)
	}
}

func (c *Console) showError(err error) {
	if errors.Is(err, submit.ErrStale) {
		return
	}
	logger.Debugf("console: %v", err)
	c.println(errorStyle.Sprint(err.Error()))
}

func (c *Console) prompt() {
	c.print("> ")
}

func (c *Console) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, s)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes"
}
