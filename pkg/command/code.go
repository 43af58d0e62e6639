// Package command resolves one control command per loop cycle from the
// keyboard, OS signals and the remote command listener.
package command

// Code is a single resolved command token.
type Code int

const (
	// None means no source produced a command this cycle.
	None Code = iota
	Quit
	Confirm
	AfTrigger
	FocusNear
	FocusFar
	ZoomIn
	ZoomOut
	PanLeft
	PanRight
	PanUp
	PanDown
	ZoomMax
	ZoomReset
)

// keys maps input characters (lower case) onto codes.
var keys = map[byte]Code{
	'x':  Quit,
	'\n': Confirm,
	'f':  AfTrigger,
	'a':  FocusNear,
	'd':  FocusFar,
	'w':  ZoomIn,
	's':  ZoomOut,
	'j':  PanLeft,
	'l':  PanRight,
	'i':  PanUp,
	'k':  PanDown,
	'm':  ZoomMax,
	'r':  ZoomReset,
}

var names = map[Code]string{
	None:      "none",
	Quit:      "quit",
	Confirm:   "confirm",
	AfTrigger: "af-trigger",
	FocusNear: "focus-near",
	FocusFar:  "focus-far",
	ZoomIn:    "zoom-in",
	ZoomOut:   "zoom-out",
	PanLeft:   "pan-left",
	PanRight:  "pan-right",
	PanUp:     "pan-up",
	PanDown:   "pan-down",
	ZoomMax:   "zoom-max",
	ZoomReset: "zoom-reset",
}

// FromByte maps one input character onto a code. Letters are case-insensitive;
// anything outside the alphabet is None.
func FromByte(b byte) Code {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	return keys[b]
}

// Parse maps a line of input onto a code. Only the first character counts.
func Parse(line string) Code {
	if line == "" {
		return None
	}
	return FromByte(line[0])
}

// String returns the command's name.
func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown"
}

// Key returns the canonical input character for c, or 0 for None.
func (c Code) Key() byte {
	for k, v := range keys {
		if v == c {
			return k
		}
	}
	return 0
}

// IsZoomPan reports whether c changes the crop rectangle.
func (c Code) IsZoomPan() bool {
	switch c {
	case ZoomIn, ZoomOut, PanLeft, PanRight, PanUp, PanDown, ZoomMax, ZoomReset:
		return true
	}
	return false
}

// IsFocus reports whether c is a manual lens step.
func (c Code) IsFocus() bool {
	return c == FocusNear || c == FocusFar
}

// FromName looks up a command by its String name.
func FromName(name string) (Code, bool) {
	for c, n := range names {
		if n == name && c != None {
			return c, true
		}
	}
	return None, false
}

// Line returns the input line that resolves to c.
func (c Code) Line() string {
	k := c.Key()
	if k == 0 {
		return ""
	}
	if k == '\n' {
		return "\n"
	}
	return string(k) + "\n"
}
