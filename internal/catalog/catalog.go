// Package catalog holds the characters (voice personas) offered by the
// assistant backend and the languages each of them can speak.
//
// Language order matters: the first language of a character is the one
// selected by default, so catalogs are decoded by walking the JSON document
// in order instead of going through Go maps.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
)

// DefaultAPIVersion is sent when a character does not carry an api tag
const DefaultAPIVersion = "1"

// Language is one entry of a character's language list
type Language struct {
	Name string
	Code string
}

// Character is a selectable voice persona
type Character struct {
	Name        string
	ID          string // voice-engine id
	API         string // api-version tag
	Description string
	Languages   []Language
}

// FirstLanguage returns the default language of the character
func (c Character) FirstLanguage() (Language, bool) {
	if len(c.Languages) == 0 {
		return Language{}, false
	}
	return c.Languages[0], true
}

// LanguageCode looks up a language by display name
func (c Character) LanguageCode(name string) (string, bool) {
	for _, l := range c.Languages {
		if l.Name == name {
			return l.Code, true
		}
	}
	return "", false
}

// LanguageNames returns the display names in catalog order
func (c Character) LanguageNames() []string {
	names := make([]string, len(c.Languages))
	for i, l := range c.Languages {
		names[i] = l.Name
	}
	return names
}

// VoiceID returns the voice-engine id, empty when unknown
func (c Character) VoiceID() string {
	return c.ID
}

// APIVersion returns the api-version tag, defaulting to "1"
func (c Character) APIVersion() string {
	if c.API == "" {
		return DefaultAPIVersion
	}
	return c.API
}

// Catalog is an ordered, read-only set of characters
type Catalog struct {
	characters []Character
	index      map[string]int
}

// New builds a catalog; later duplicates of a name replace earlier ones in place
func New(characters ...Character) *Catalog {
	c := &Catalog{index: make(map[string]int, len(characters))}
	for _, ch := range characters {
		if i, ok := c.index[ch.Name]; ok {
			c.characters[i] = ch
			continue
		}
		c.index[ch.Name] = len(c.characters)
		c.characters = append(c.characters, ch)
	}
	return c
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.characters)
}

// Characters returns a copy of the characters in catalog order
func (c *Catalog) Characters() []Character {
	if c == nil {
		return nil
	}
	out := make([]Character, len(c.characters))
	copy(out, c.characters)
	return out
}

// Names returns the character names in catalog order
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.characters))
	for i, ch := range c.characters {
		names[i] = ch.Name
	}
	return names
}

func (c *Catalog) Get(name string) (Character, bool) {
	if c == nil {
		return Character{}, false
	}
	i, ok := c.index[name]
	if !ok {
		return Character{}, false
	}
	return c.characters[i], true
}

// First returns the first character in catalog order
func (c *Catalog) First() (Character, bool) {
	if c.Len() == 0 {
		return Character{}, false
	}
	return c.characters[0], true
}

// ParseCharacters decodes a {name: {id, api, description, languages}} object
func ParseCharacters(raw []byte) (*Catalog, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid character catalog JSON")
	}
	return CharactersFromResult(gjson.ParseBytes(raw))
}

// CharactersFromResult decodes an already parsed characters object
func CharactersFromResult(obj gjson.Result) (*Catalog, error) {
	if !obj.IsObject() {
		return nil, fmt.Errorf("character catalog must be an object, got %s", obj.Type)
	}

	var characters []Character
	obj.ForEach(func(key, value gjson.Result) bool {
		characters = append(characters, Character{
			Name:        key.String(),
			ID:          value.Get("id").String(),
			API:         value.Get("api").String(),
			Description: value.Get("description").String(),
			Languages:   LanguagesFromResult(value.Get("languages")),
		})
		return true
	})

	return New(characters...), nil
}

// LanguagesFromResult decodes a {name: code} object preserving its order.
// Anything that is not an object yields no languages.
func LanguagesFromResult(obj gjson.Result) []Language {
	if !obj.IsObject() {
		return nil
	}
	var languages []Language
	obj.ForEach(func(key, value gjson.Result) bool {
		languages = append(languages, Language{Name: key.String(), Code: value.String()})
		return true
	})
	return languages
}

//go:embed fallback.json
var fallbackJSON []byte

var (
	fallbackOnce    sync.Once
	fallbackCatalog *Catalog
)

// Fallback returns the compiled-in catalog used when the backend cannot
// provide one
func Fallback() *Catalog {
	fallbackOnce.Do(func() {
		c, err := ParseCharacters(fallbackJSON)
		if err != nil {
			panic(fmt.Sprintf("embedded fallback catalog is broken: %v", err))
		}
		fallbackCatalog = c
	})
	return fallbackCatalog
}
