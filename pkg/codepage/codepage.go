// Package codepage translates between Unicode code points and the 8-bit
// character set understood by CC:Tweaked monitor peripherals.
//
// The table is reproduced exactly from the reference implementation:
//
//	|0 1 2 3 4 5 6 7 8 9 A B C D E F
//	-+--------------------------------
//	0|  ☺ ☻ ♥ ♦ ♣ ♠ ● ○     ♂ ♀   ♪ ♬
//	1|▶ ◀ ↕ ‼ ¶ ░ ▬ ↨ ⬆ ⬇ ➡ ⬅ ∟ ⧺ ▲ ▼
//	2_..7E: ASCII identity          7F: ▒
//	8_: sextants row 1 (0x80 unassigned)
//	9_: sextants row 2
//	A_..FF: Latin-1 supplement identity-ish (see table below)
package codepage

import "fmt"

// InvalidCharError reports a Unicode character with no codepage mapping.
type InvalidCharError struct {
	Char rune
}

func (e *InvalidCharError) Error() string {
	return fmt.Sprintf("codepage: no mapping for character %q (U+%04X)", e.Char, e.Char)
}

// InvalidByteError reports a codepage byte with no Unicode mapping (0x09,
// 0x0A, 0x0D, 0x80 and 0xB6).
type InvalidByteError struct {
	Byte byte
}

func (e *InvalidByteError) Error() string {
	return fmt.Sprintf("codepage: no mapping for byte 0x%02X", e.Byte)
}

// runeToByte maps every recognized Unicode character to its codepage byte.
// Built once from the same table as byteToRune so it only needs to be specified once,
// in the direction the monitor protocol actually cares about decoding: the
// byte the wire already carries, and the glyph it refers to.
var runeToByte map[rune]byte

// byteToRune is indexed by codepage byte; a zero-value entry (rune 0) that is
// not byte 0x00 itself marks the byte as unassigned (0x09, 0x0A, 0x0D, 0x80
// and 0xB6).
var byteToRune [256]rune

func init() {
	byteToRune[0x00] = 0x00
	table := map[byte]rune{
		0x01: '☺', 0x02: '☻', 0x03: '♥', 0x04: '♦', 0x05: '♣', 0x06: '♠',
		0x07: '●', 0x08: '○', 0x0B: '♂', 0x0C: '♀', 0x0E: '♪', 0x0F: '♬',

		0x10: '▶', 0x11: '◀', 0x12: '↕', 0x13: '‼', 0x14: '¶', 0x15: '░',
		0x16: '▬', 0x17: '↨', 0x18: '⬆', 0x19: '⬇', 0x1A: '➡', 0x1B: '⬅',
		0x1C: '∟', 0x1D: '⧺', 0x1E: '▲', 0x1F: '▼',

		0x7F: '▒',

		// Sextant glyphs, row 1. 0x80 is deliberately left unassigned.
		0x81: '\U0001FB00', 0x82: '\U0001FB01', 0x83: '\U0001FB02', 0x84: '\U0001FB03', 0x85: '\U0001FB04', 0x86: '\U0001FB05',
		0x87: '\U0001FB06', 0x88: '\U0001FB07', 0x89: '\U0001FB08', 0x8A: '\U0001FB09', 0x8B: '\U0001FB0A', 0x8C: '\U0001FB0B',
		0x8D: '\U0001FB0C', 0x8E: '\U0001FB0D', 0x8F: '\U0001FB0E',

		// Sextant glyphs, row 2. 0x95 is the left half block ▌.
		0x90: '\U0001FB0F', 0x91: '\U0001FB10', 0x92: '\U0001FB11', 0x93: '\U0001FB12', 0x94: '\U0001FB13', 0x95: '▌',
		0x96: '\U0001FB14', 0x97: '\U0001FB15', 0x98: '\U0001FB16', 0x99: '\U0001FB17', 0x9A: '\U0001FB18', 0x9B: '\U0001FB19',
		0x9C: '\U0001FB1A', 0x9D: '\U0001FB1B', 0x9E: '\U0001FB1C', 0x9F: '\U0001FB1D',

		0xA0: '▓', 0xA1: '¡', 0xA2: '¢', 0xA3: '£', 0xA4: '¤', 0xA5: '¥',
		0xA6: '¦', 0xA7: '█', 0xA8: '¨', 0xA9: '©', 0xAA: 'ª', 0xAB: '«',
		0xAC: '¬', 0xAD: '­', 0xAE: '®', 0xAF: '¯',

		0xB0: '°', 0xB1: '±', 0xB2: '²', 0xB3: '³', 0xB4: '´', 0xB5: 'µ',
		// 0xB6: '¶' is deliberately not mapped — see the open question in
		// DESIGN.md. ¶ lives at 0x14 instead.
		0xB7: '·', 0xB8: '¸', 0xB9: '¹', 0xBA: 'º', 0xBB: '»', 0xBC: '¼',
		0xBD: '½', 0xBE: '¾', 0xBF: '¿',

		0xC0: 'À', 0xC1: 'Á', 0xC2: 'Â', 0xC3: 'Ã', 0xC4: 'Ä', 0xC5: 'Å',
		0xC6: 'Æ', 0xC7: 'Ç', 0xC8: 'È', 0xC9: 'É', 0xCA: 'Ê', 0xCB: 'Ë',
		0xCC: 'Ì', 0xCD: 'Í', 0xCE: 'Î', 0xCF: 'Ï',

		0xD0: 'Ð', 0xD1: 'Ñ', 0xD2: 'Ò', 0xD3: 'Ó', 0xD4: 'Ô', 0xD5: 'Õ',
		0xD6: 'Ö', 0xD7: '×', 0xD8: 'Ø', 0xD9: 'Ù', 0xDA: 'Ú', 0xDB: 'Û',
		0xDC: 'Ü', 0xDD: 'Ý', 0xDE: 'Þ', 0xDF: 'ß',

		0xE0: 'à', 0xE1: 'á', 0xE2: 'â', 0xE3: 'ã', 0xE4: 'ä', 0xE5: 'å',
		0xE6: 'æ', 0xE7: 'ç', 0xE8: 'è', 0xE9: 'é', 0xEA: 'ê', 0xEB: 'ë',
		0xEC: 'ì', 0xED: 'í', 0xEE: 'î', 0xEF: 'ï',

		0xF0: 'ð', 0xF1: 'ñ', 0xF2: 'ò', 0xF3: 'ó', 0xF4: 'ô', 0xF5: 'õ',
		0xF6: 'ö', 0xF7: '÷', 0xF8: 'ø', 0xF9: 'ù', 0xFA: 'ú', 0xFB: 'û',
		0xFC: 'ü', 0xFD: 'ý', 0xFE: 'þ', 0xFF: 'ÿ',
	}

	for b := 0x20; b <= 0x7E; b++ {
		byteToRune[b] = rune(b)
	}
	for b, r := range table {
		byteToRune[b] = r
	}

	runeToByte = make(map[rune]byte, len(table)+(0x7E-0x20+1))
	for b := 0x20; b <= 0x7E; b++ {
		runeToByte[rune(b)] = byte(b)
	}
	for b, r := range table {
		runeToByte[r] = b
	}
}

// unassigned reports whether byte b has no glyph (0x09, 0x0A, 0x0D, 0x80
// and 0xB6).
func unassigned(b byte) bool {
	return b != 0x00 && byteToRune[b] == 0
}

// EncodeRune translates a single Unicode character to its codepage byte.
func EncodeRune(c rune) (byte, error) {
	if b, ok := runeToByte[c]; ok {
		return b, nil
	}
	return 0, &InvalidCharError{Char: c}
}

// Encode translates a Unicode string into codepage bytes. It fails closed:
// the first untranslatable character aborts the whole conversion.
func Encode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, c := range s {
		b, err := EncodeRune(c)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// DecodeByte translates a single codepage byte to its Unicode character.
func DecodeByte(b byte) (rune, error) {
	if unassigned(b) {
		return 0, &InvalidByteError{Byte: b}
	}
	return byteToRune[b], nil
}

// Decode translates codepage bytes into a Unicode string. Not required by
// the render path, but kept for round-trip testing and any future reader
// of monitor-origin text.
func Decode(b []byte) (string, error) {
	runes := make([]rune, 0, len(b))
	for _, c := range b {
		r, err := DecodeByte(c)
		if err != nil {
			return "", err
		}
		runes = append(runes, r)
	}
	return string(runes), nil
}
