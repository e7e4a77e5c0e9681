// Package state holds the character/language selection as an immutable
// value. Every change goes through Reduce (or the equivalent methods), which
// return a new View and leave the old one untouched.
package state

import (
	"errors"
	"fmt"

	"github.com/dooshek/voiceassist/internal/catalog"
)

// NoLanguageLabel is the dropdown label before a language is chosen
const NoLanguageLabel = "Select Language"

var (
	ErrUnknownCharacter = errors.New("unknown character")
	ErrUnknownLanguage  = errors.New("language not offered by character")
	ErrNoCharacter      = errors.New("no character selected")

	// ErrNoSelection is shown to the user as is
	ErrNoSelection = errors.New("Please select a character and language first.")
)

// Selection is the (character, language) pair used by submissions.
// Empty strings mean "not selected".
type Selection struct {
	Character    string
	Language     string
	LanguageCode string
}

// Complete reports whether both a character and a language are selected.
// The language code may be empty; it is sent to the backend as is.
func (s Selection) Complete() bool {
	return s.Character != "" && s.Language != ""
}

// View is everything the selection UI shows: the selection itself plus the
// selected box, the open dropdown and the per-character dropdown labels.
type View struct {
	catalog        *catalog.Catalog
	selection      Selection
	openDropdown   string
	labels         map[string]string
	sourceLanguage string
}

// Init builds the initial view for a catalog and auto-selects preferred, or
// the first character when preferred is empty or unknown.
func Init(c *catalog.Catalog, preferred string) View {
	v := View{catalog: c}
	if _, ok := c.Get(preferred); ok {
		return v.SelectCharacter(preferred)
	}
	if first, ok := c.First(); ok {
		return v.SelectCharacter(first.Name)
	}
	return v
}

func (v View) Catalog() *catalog.Catalog { return v.catalog }

func (v View) Selection() Selection { return v.selection }

// SelectedBox is the name of the highlighted character box
func (v View) SelectedBox() string { return v.selection.Character }

// OpenDropdown is the character whose dropdown is open, or ""
func (v View) OpenDropdown() string { return v.openDropdown }

// DropdownLabel is the visible label of a character's language dropdown
func (v View) DropdownLabel(character string) string {
	if l, ok := v.labels[character]; ok {
		return l
	}
	return NoLanguageLabel
}

// SelectedCharacter returns the catalog entry of the selected character
func (v View) SelectedCharacter() (catalog.Character, bool) {
	if v.selection.Character == "" {
		return catalog.Character{}, false
	}
	return v.catalog.Get(v.selection.Character)
}

// SourceLanguage returns the explicit source language, if one was chosen
func (v View) SourceLanguage() (string, bool) {
	return v.sourceLanguage, v.sourceLanguage != ""
}

// SelectCharacter marks the character as the only selected one, resets its
// dropdown label and selects its first language. Unknown names leave the view
// unchanged.
func (v View) SelectCharacter(name string) View {
	ch, ok := v.catalog.Get(name)
	if !ok {
		return v
	}

	next := v.clone()
	next.selection = Selection{Character: ch.Name}
	next.openDropdown = ""
	next.sourceLanguage = ""
	delete(next.labels, ch.Name)

	if first, ok := ch.FirstLanguage(); ok {
		return next.applyLanguage(ch, first)
	}
	return next
}

// SelectLanguage picks a language from the selected character's list
func (v View) SelectLanguage(name string) (View, error) {
	ch, ok := v.SelectedCharacter()
	if !ok {
		return v, ErrNoCharacter
	}
	code, ok := ch.LanguageCode(name)
	if !ok {
		return v, fmt.Errorf("%w: %s does not speak %s", ErrUnknownLanguage, ch.Name, name)
	}
	return v.applyLanguage(ch, catalog.Language{Name: name, Code: code}), nil
}

// SelectSourceLanguage sets the language the user types or speaks in
func (v View) SelectSourceLanguage(name string) (View, error) {
	ch, ok := v.SelectedCharacter()
	if !ok {
		return v, ErrNoCharacter
	}
	if _, ok := ch.LanguageCode(name); !ok {
		return v, fmt.Errorf("%w: %s does not speak %s", ErrUnknownLanguage, ch.Name, name)
	}
	next := v.clone()
	next.sourceLanguage = name
	return next, nil
}

// ToggleDropdown opens a character's dropdown, closing any other. An open
// dropdown is closed.
func (v View) ToggleDropdown(name string) (View, error) {
	if _, ok := v.catalog.Get(name); !ok {
		return v, fmt.Errorf("%w: %s", ErrUnknownCharacter, name)
	}
	next := v.clone()
	if next.openDropdown == name {
		next.openDropdown = ""
	} else {
		next.openDropdown = name
	}
	return next, nil
}

// CloseDropdowns closes every open dropdown
func (v View) CloseDropdowns() View {
	if v.openDropdown == "" {
		return v
	}
	next := v.clone()
	next.openDropdown = ""
	return next
}

func (v View) applyLanguage(ch catalog.Character, lang catalog.Language) View {
	next := v.clone()
	next.selection = Selection{
		Character:    ch.Name,
		Language:     lang.Name,
		LanguageCode: lang.Code,
	}
	next.labels[ch.Name] = lang.Name
	next.openDropdown = ""
	next.sourceLanguage = ""
	return next
}

func (v View) clone() View {
	labels := make(map[string]string, len(v.labels)+1)
	for k, l := range v.labels {
		labels[k] = l
	}
	v.labels = labels
	return v
}
