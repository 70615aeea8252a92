// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package keysym

// koi8Order lists the Cyrillic lower case letters in the order of their
// keysyms, which follows KOI8-R starting at CyrillicSmall.
const koi8Order = "юабцдефгхийклмнопярстужвьызшэщчъ"

// runeKeysyms holds the characters outside Latin-1 that have a keysym.
var runeKeysyms = buildRuneTable()

func buildRuneTable() map[rune]Keysym {
	m := map[rune]Keysym{
		'€': EuroSign,
		'№': NumeroSign,
		'ё': CyrillicIO - 0x10,
		'Ё': CyrillicIO,

		// Serbian, Macedonian, Ukrainian and Byelorussian letters.
		'ђ': 0x6a1, 'Ђ': 0x6b1,
		'ѓ': 0x6a2, 'Ѓ': 0x6b2,
		'є': 0x6a4, 'Є': 0x6b4,
		'ѕ': 0x6a5, 'Ѕ': 0x6b5,
		'і': 0x6a6, 'І': 0x6b6,
		'ї': 0x6a7, 'Ї': 0x6b7,
		'ј': 0x6a8, 'Ј': 0x6b8,
		'љ': 0x6a9, 'Љ': 0x6b9,
		'њ': 0x6aa, 'Њ': 0x6ba,
		'ћ': 0x6ab, 'Ћ': 0x6bb,
		'ќ': 0x6ac, 'Ќ': 0x6bc,
		'ґ': 0x6ad, 'Ґ': 0x6bd,
		'ў': 0x6ae, 'Ў': 0x6be,
		'џ': 0x6af, 'Џ': 0x6bf,
	}
	i := 0
	for _, r := range koi8Order {
		m[r] = CyrillicSmall + Keysym(i)
		m[r-0x20] = CyrillicLarge + Keysym(i)
		i++
	}
	return m
}

// FromRune returns the keysym that types r. ok is false when r has no
// keysym.
func FromRune(r rune) (Keysym, bool) {
	switch {
	case r >= 0x20 && r <= 0x7e, r >= 0xa0 && r <= 0xff:
		return Keysym(r), true
	case r == '\b':
		return BackSpace, true
	case r == '\t':
		return Tab, true
	case r == '\n', r == '\r':
		return Return, true
	case r == 0x1b:
		return Escape, true
	case r == 0x7f:
		return Delete, true
	}
	ks, ok := runeKeysyms[r]
	return ks, ok
}
