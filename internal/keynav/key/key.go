// Package key models keyboard input for grid navigation: the keys the
// engine reacts to, modifier combinations, and parsing of the combination
// strings custom shortcuts are declared with.
package key

import (
	"fmt"
	"strings"
	"unicode"
)

// Key identifies a keyboard key. Character keys use KeyRune with the Rune
// field of Event set.
type Key uint16

const (
	// KeyNone represents no key.
	KeyNone Key = iota

	KeyRune

	KeyEscape
	KeyEnter
	KeyTab
	KeySpace
	KeyBackspace
	KeyDelete

	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown

	KeyUp
	KeyDown
	KeyLeft
	KeyRight

	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// keyNames maps special keys to their canonical names.
var keyNames = map[Key]string{
	KeyEscape:    "Escape",
	KeyEnter:     "Enter",
	KeyTab:       "Tab",
	KeySpace:     "Space",
	KeyBackspace: "Backspace",
	KeyDelete:    "Delete",
	KeyHome:      "Home",
	KeyEnd:       "End",
	KeyPageUp:    "PageUp",
	KeyPageDown:  "PageDown",
	KeyUp:        "Up",
	KeyDown:      "Down",
	KeyLeft:      "Left",
	KeyRight:     "Right",
	KeyF1:        "F1",
	KeyF2:        "F2",
	KeyF3:        "F3",
	KeyF4:        "F4",
	KeyF5:        "F5",
	KeyF6:        "F6",
	KeyF7:        "F7",
	KeyF8:        "F8",
	KeyF9:        "F9",
	KeyF10:       "F10",
	KeyF11:       "F11",
	KeyF12:       "F12",
}

var namedKeys = func() map[string]Key {
	m := make(map[string]Key, len(keyNames))
	for k, name := range keyNames {
		m[strings.ToLower(name)] = k
	}
	// Common aliases.
	m["esc"] = KeyEscape
	m["return"] = KeyEnter
	m["pgup"] = KeyPageUp
	m["pgdn"] = KeyPageDown
	return m
}()

// String returns the key's canonical name.
func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	if k == KeyRune {
		return "Rune"
	}
	return "None"
}

// Modifier is a bitmask of held modifier keys.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModShift indicates the Shift key.
	ModShift Modifier = 1 << iota

	// ModCtrl indicates the Control key.
	ModCtrl

	// ModAlt indicates the Alt key.
	ModAlt

	// ModMeta indicates the Meta key (Cmd/Win).
	ModMeta
)

// Has reports whether m contains mod.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// With returns m with mod added.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

// String renders the modifiers in canonical order, "Ctrl+Shift" style.
func (m Modifier) String() string {
	var parts []string
	if m.Has(ModCtrl) {
		parts = append(parts, "Ctrl")
	}
	if m.Has(ModAlt) {
		parts = append(parts, "Alt")
	}
	if m.Has(ModShift) {
		parts = append(parts, "Shift")
	}
	if m.Has(ModMeta) {
		parts = append(parts, "Meta")
	}
	return strings.Join(parts, "+")
}

// Event is one key press.
type Event struct {
	// Key identifies the key pressed.
	Key Key

	// Rune is the character for KeyRune events.
	Rune rune

	// Modifiers contains the active modifier keys.
	Modifiers Modifier
}

// NewEvent creates an event for a special key.
func NewEvent(key Key, mods Modifier) Event {
	return Event{Key: key, Modifiers: mods}
}

// NewRuneEvent creates an event for a character key.
func NewRuneEvent(r rune, mods Modifier) Event {
	return Event{Key: KeyRune, Rune: r, Modifiers: mods}
}

// Combo returns the event's canonical combination string, the form custom
// shortcuts are declared in: modifiers in Ctrl, Alt, Shift, Meta order,
// then the key name or uppercased character, joined by "+".
func (e Event) Combo() string {
	var parts []string
	if mods := e.Modifiers.String(); mods != "" {
		parts = append(parts, mods)
	}
	if e.Key == KeyRune {
		parts = append(parts, strings.ToUpper(string(e.Rune)))
	} else {
		parts = append(parts, e.Key.String())
	}
	return strings.Join(parts, "+")
}

// Parse errors.
var (
	ErrEmptySpec   = fmt.Errorf("key: empty combination")
	ErrInvalidSpec = fmt.Errorf("key: invalid combination")
)

// Parse turns a combination string like "Ctrl+Shift+E", "Alt+Down", or
// "F5" into an Event. Matching is case-insensitive; the last segment is
// the key, everything before it a modifier.
func Parse(spec string) (Event, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Event{}, ErrEmptySpec
	}

	parts := strings.Split(spec, "+")
	var mods Modifier
	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "ctrl", "control", "c":
			mods = mods.With(ModCtrl)
		case "alt", "option", "a":
			mods = mods.With(ModAlt)
		case "shift", "s":
			mods = mods.With(ModShift)
		case "meta", "cmd", "win", "m":
			mods = mods.With(ModMeta)
		default:
			return Event{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
	}

	keyPart := strings.TrimSpace(parts[len(parts)-1])
	if keyPart == "" {
		return Event{}, fmt.Errorf("%w: missing key in %q", ErrInvalidSpec, spec)
	}

	if k, ok := namedKeys[strings.ToLower(keyPart)]; ok {
		return NewEvent(k, mods), nil
	}

	runes := []rune(keyPart)
	if len(runes) != 1 {
		return Event{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, keyPart)
	}
	return NewRuneEvent(unicode.ToUpper(runes[0]), mods), nil
}

// Normalize canonicalizes a combination string so registration and lookup
// agree on one spelling. Invalid specs come back unchanged.
func Normalize(spec string) string {
	ev, err := Parse(spec)
	if err != nil {
		return spec
	}
	return ev.Combo()
}
