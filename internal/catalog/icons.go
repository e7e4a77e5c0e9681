package catalog

// DefaultIcon is shown for characters without an entry in the icon table
const DefaultIcon = "👤"

var icons = map[string]string{
	"Monika":   "👩‍💼",
	"Meera":    "👩",
	"Danielle": "👱‍♀️",
	"Adam":     "🧔",
	"Neeraj":   "👨‍🦱",
	"Mark":     "👨",
}

// Icon returns the display icon for a character name
func Icon(name string) string {
	if icon, ok := icons[name]; ok {
		return icon
	}
	return DefaultIcon
}
