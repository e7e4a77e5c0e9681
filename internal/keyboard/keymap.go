package keyboard

// Modifier key codes as reported by evdev
const (
	LeftControl  uint16 = 29
	RightControl uint16 = 97
	LeftShift    uint16 = 42
	RightShift   uint16 = 54
	LeftAlt      uint16 = 56
	RightAlt     uint16 = 100
	LeftSuper    uint16 = 125
	RightSuper   uint16 = 126
)

// KeyCodes maps key names to their evdev codes
var KeyCodes = map[string]uint16{
	// a-z
	"a": 30, "b": 48, "c": 46, "d": 32, "e": 18, "f": 33, "g": 34, "h": 35,
	"i": 23, "j": 36, "k": 37, "l": 38, "m": 50, "n": 49, "o": 24, "p": 25,
	"q": 16, "r": 19, "s": 31, "t": 20, "u": 22, "v": 47, "w": 17, "x": 45,
	"y": 21, "z": 44,
	// 0-9
	"0": 11, "1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10,
	// Special characters
	"`": 41, "[": 26, "]": 27, "\\": 43, ";": 39, "'": 40, ",": 51, ".": 52, "/": 53, "-": 12, "=": 13,
	// Named keys
	"space": 57, "escape": 1, "tab": 15, "enter": 28,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64,
	"f7": 65, "f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
}
