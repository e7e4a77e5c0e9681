package state

import "fmt"

// Event is a user interaction with the selection UI
type Event interface {
	event()
}

// CharacterClicked is a click on a character box outside its dropdown
type CharacterClicked struct{ Name string }

// LanguageClicked is a click on a language entry. Character names the box the
// entry belongs to; empty means the selected character.
type LanguageClicked struct {
	Character string
	Name      string
}

// SourceLanguageChosen sets the explicit source language
type SourceLanguageChosen struct{ Name string }

// DropdownToggled is a click on a character's dropdown button
type DropdownToggled struct{ Name string }

// ClickedOutside is a click anywhere outside the dropdowns
type ClickedOutside struct{}

func (CharacterClicked) event()     {}
func (LanguageClicked) event()      {}
func (SourceLanguageChosen) event() {}
func (DropdownToggled) event()      {}
func (ClickedOutside) event()       {}

// Reduce applies one event. On error the returned view is v unchanged.
func Reduce(v View, e Event) (View, error) {
	switch e := e.(type) {
	case CharacterClicked:
		if _, ok := v.catalog.Get(e.Name); !ok {
			return v, fmt.Errorf("%w: %s", ErrUnknownCharacter, e.Name)
		}
		return v.SelectCharacter(e.Name), nil

	case LanguageClicked:
		next := v
		if e.Character != "" && e.Character != v.selection.Character {
			// A language picked from another box selects that box first
			if _, ok := v.catalog.Get(e.Character); !ok {
				return v, fmt.Errorf("%w: %s", ErrUnknownCharacter, e.Character)
			}
			next = v.SelectCharacter(e.Character)
		}
		selected, err := next.SelectLanguage(e.Name)
		if err != nil {
			return v, err
		}
		return selected, nil

	case SourceLanguageChosen:
		return v.SelectSourceLanguage(e.Name)

	case DropdownToggled:
		return v.ToggleDropdown(e.Name)

	case ClickedOutside:
		return v.CloseDropdowns(), nil

	default:
		return v, fmt.Errorf("unsupported event %T", e)
	}
}
