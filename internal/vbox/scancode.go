package vbox

// PC/AT set-1 scan codes for the characters the adapter can type.
// Characters outside this table are skipped rather than mistyped.
var scanCodes = map[rune]byte{
	'a': 0x1e, 'b': 0x30, 'c': 0x2e, 'd': 0x20, 'e': 0x12,
	'f': 0x21, 'g': 0x22, 'h': 0x23, 'i': 0x17, 'j': 0x24,
	'k': 0x25, 'l': 0x26, 'm': 0x32, 'n': 0x31, 'o': 0x18,
	'p': 0x19, 'q': 0x10, 'r': 0x13, 's': 0x1f, 't': 0x14,
	'u': 0x16, 'v': 0x2f, 'w': 0x11, 'x': 0x2d, 'y': 0x15,
	'z': 0x2c,
	'1': 0x02, '2': 0x03, '3': 0x04, '4': 0x05, '5': 0x06,
	'6': 0x07, '7': 0x08, '8': 0x09, '9': 0x0a, '0': 0x0b,
	' ': 0x39, '-': 0x0c, '=': 0x0d, '.': 0x34, ',': 0x33,
	'/': 0x35, ';': 0x27, '\n': 0x1c, '\t': 0x0f,
}

// scanPair renders the press and release codes for a single character
// as hex strings ready for keyboardputscancode, or ok=false when the
// character has no mapping.
func scanPair(r rune) (press, release string, ok bool) {
	code, ok := scanCodes[r]
	if !ok {
		return "", "", false
	}
	return hexByte(code), hexByte(code | 0x80), true
}

const hexDigits = "0123456789abcdef"

func hexByte(b byte) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0f]})
}
