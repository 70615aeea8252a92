// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Package keysym translates local keyboard input into X11 keysyms, the key
// identifiers carried by RFB KeyEvent messages.
//
// Two lookups are provided. FromKey maps a local key identifier (a
// physical or named key such as KeyLeft or KeyF5) and is used for
// press/release pairs coming from a keyboard. FromRune maps a Unicode
// character and is used for committed text, where only the produced
// character is known. Both tables are immutable and built at package
// initialisation.
package keysym

// Keysym is an X11 keysym as sent on the wire.
type Keysym uint32

// Keysyms for non-printing keys.
const (
	ISOLeftTab Keysym = 0xfe20
	BackSpace  Keysym = 0xff08
	Tab        Keysym = 0xff09
	Clear      Keysym = 0xff0b
	Return     Keysym = 0xff0d
	Pause      Keysym = 0xff13
	ScrollLock Keysym = 0xff14
	SysReq     Keysym = 0xff15
	Escape     Keysym = 0xff1b
	Home       Keysym = 0xff50
	Left       Keysym = 0xff51
	Up         Keysym = 0xff52
	Right      Keysym = 0xff53
	Down       Keysym = 0xff54
	PageUp     Keysym = 0xff55
	PageDown   Keysym = 0xff56
	End        Keysym = 0xff57
	Print      Keysym = 0xff61
	Insert     Keysym = 0xff63
	Menu       Keysym = 0xff67
	Help       Keysym = 0xff6a
	NumLock    Keysym = 0xff7f
	F1         Keysym = 0xffbe
	F35        Keysym = 0xffe0
	ShiftL     Keysym = 0xffe1
	ControlL   Keysym = 0xffe3
	CapsLock   Keysym = 0xffe5
	MetaL      Keysym = 0xffe7
	AltL       Keysym = 0xffe9
	AltR       Keysym = 0xffea
	SuperL     Keysym = 0xffeb
	SuperR     Keysym = 0xffec
	HyperL     Keysym = 0xffed
	HyperR     Keysym = 0xffee
	Delete     Keysym = 0xffff
)

// Keysyms outside Latin-1 referenced by the Unicode table.
const (
	EuroSign      Keysym = 0x20ac
	NumeroSign    Keysym = 0x06b0
	CyrillicIO    Keysym = 0x06b3
	CyrillicSmall Keysym = 0x06c0
	CyrillicLarge Keysym = 0x06e0
)

// Key identifies a key on the local keyboard. Printable keys use their
// Unicode code point (letters in upper case); named keys live above
// 0x01000000.
type Key uint32

// Named keys.
const (
	KeyEscape Key = 0x01000000 + iota
	KeyTab
	KeyBacktab
	KeyBackspace
	KeyReturn
	KeyEnter
	KeyInsert
	KeyDelete
	KeyPause
	KeyPrint
	KeySysReq
	KeyClear
)

const (
	KeyHome Key = 0x01000010 + iota
	KeyEnd
	KeyLeft
	KeyUp
	KeyRight
	KeyDown
	KeyPageUp
	KeyPageDown
)

const (
	KeyShift Key = 0x01000020 + iota
	KeyControl
	KeyMeta
	KeyAlt
	KeyCapsLock
	KeyNumLock
	KeyScrollLock
)

const (
	KeyF1  Key = 0x01000030
	KeyF35 Key = KeyF1 + 34
)

const (
	KeySuperL Key = 0x01000053 + iota
	KeySuperR
	KeyMenu
	KeyHyperL
	KeyHyperR
	KeyHelp
)

// KeyAltGr is the AltGr modifier.
const KeyAltGr Key = 0x01001103

// KeyF returns the key for function key Fn, n in 1..35.
func KeyF(n int) Key {
	return KeyF1 + Key(n-1)
}

var namedKeys = map[Key]Keysym{
	KeyEscape:     Escape,
	KeyTab:        Tab,
	KeyBacktab:    ISOLeftTab,
	KeyBackspace:  BackSpace,
	KeyReturn:     Return,
	KeyEnter:      Return,
	KeyInsert:     Insert,
	KeyDelete:     Delete,
	KeyPause:      Pause,
	KeyPrint:      Print,
	KeySysReq:     SysReq,
	KeyClear:      Clear,
	KeyHome:       Home,
	KeyEnd:        End,
	KeyLeft:       Left,
	KeyUp:         Up,
	KeyRight:      Right,
	KeyDown:       Down,
	KeyPageUp:     PageUp,
	KeyPageDown:   PageDown,
	KeyShift:      ShiftL,
	KeyControl:    ControlL,
	KeyMeta:       MetaL,
	KeyAlt:        AltL,
	KeyAltGr:      AltR,
	KeyCapsLock:   CapsLock,
	KeyNumLock:    NumLock,
	KeyScrollLock: ScrollLock,
	KeySuperL:     SuperL,
	KeySuperR:     SuperR,
	KeyMenu:       Menu,
	KeyHyperL:     HyperL,
	KeyHyperR:     HyperR,
	KeyHelp:       Help,
}

// FromKey returns the keysym for a local key. Letters map to their lower
// case keysym regardless of the case of k; the remote applies shift state
// itself. ok is false for keys with no keysym.
func FromKey(k Key) (Keysym, bool) {
	switch {
	case k >= 'A' && k <= 'Z':
		return Keysym(k - 'A' + 'a'), true
	case k >= 0x20 && k <= 0x7e:
		return Keysym(k), true
	case k >= 0xa0 && k <= 0xff:
		return Keysym(k), true
	case k >= KeyF1 && k <= KeyF35:
		return F1 + Keysym(k-KeyF1), true
	}
	ks, ok := namedKeys[k]
	return ks, ok
}
