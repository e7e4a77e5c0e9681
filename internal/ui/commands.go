package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dooshek/voiceassist/internal/state"
)

var ErrUnknownCommand = errors.New("unknown command, type help for the list")

// Command is one parsed input line
type Command struct {
	Name string
	Args []string
}

// Arg joins the arguments from i on, for names with spaces
func (c Command) Arg(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return strings.Join(c.Args[i:], " ")
}

var aliases = map[string]string{
	"ls":   "chars",
	"list": "chars",
	"r":    "record",
	"rec":  "record",
	"s":    "stop",
	"l":    "lang",
	"c":    "select",
	"exit": "quit",
	"q":    "quit",
	"?":    "help",
}

var commands = map[string]bool{
	"chars": true, "select": true, "lang": true, "pick": true, "langs": true,
	"open": true, "close": true, "source": true, "record": true, "stop": true,
	"say": true, "copy": true, "stats": true, "signup": true, "login": true, "help": true,
	"quit": true,
}

const helpText = `Commands:
  chars                     show the characters
  select <character>        select a character and its first language
  lang <language>           select a language of the selected character
  pick <character> <lang>   select a language from another character's list
  open <character>          open (or close) a character's language list
  close                     close the open language list
  langs [character]         ask the backend for a character's languages
  source <language>         set the language you speak or type in
  record                    start or stop recording
  stop                      stop recording
  say <text>                send a text message
  copy                      copy the last response to the clipboard
  stats                     show usage per character
  signup | login            check account form input
  quit                      exit`

// Parse splits an input line into a command. Blank lines give an empty name.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, nil
	}
	name := strings.ToLower(fields[0])
	if a, ok := aliases[name]; ok {
		name = a
	}
	if !commands[name] {
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
	return Command{Name: name, Args: fields[1:]}, nil
}

// Event maps a selection command to its state event. ok is false for
// commands that are not selection events.
func (c Command) Event(v state.View) (e state.Event, ok bool, err error) {
	names := v.Catalog().Names()
	switch c.Name {
	case "select":
		if len(c.Args) == 0 {
			return nil, true, errors.New("usage: select <character>")
		}
		return state.CharacterClicked{Name: match(names, c.Arg(0))}, true, nil

	case "lang":
		if len(c.Args) == 0 {
			return nil, true, errors.New("usage: lang <language>")
		}
		ch, _ := v.SelectedCharacter()
		return state.LanguageClicked{Name: match(ch.LanguageNames(), c.Arg(0))}, true, nil

	case "pick":
		if len(c.Args) < 2 {
			return nil, true, errors.New("usage: pick <character> <language>")
		}
		name := match(names, c.Args[0])
		ch, _ := v.Catalog().Get(name)
		return state.LanguageClicked{Character: name, Name: match(ch.LanguageNames(), c.Arg(1))}, true, nil

	case "open":
		if len(c.Args) == 0 {
			return nil, true, errors.New("usage: open <character>")
		}
		return state.DropdownToggled{Name: match(names, c.Arg(0))}, true, nil

	case "close":
		return state.ClickedOutside{}, true, nil

	case "source":
		if len(c.Args) == 0 {
			return nil, true, errors.New("usage: source <language>")
		}
		ch, _ := v.SelectedCharacter()
		return state.SourceLanguageChosen{Name: match(ch.LanguageNames(), c.Arg(0))}, true, nil
	}
	return nil, false, nil
}

// match resolves typed input to a known name ignoring case; unknown input is
// returned as typed so the reducer can reject it.
func match(names []string, input string) string {
	for _, n := range names {
		if strings.EqualFold(n, input) {
			return n
		}
	}
	return input
}
