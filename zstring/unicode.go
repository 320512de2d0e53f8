package zstring

import "github.com/inkwell-if/zvm/zcore"

// DefaultUnicodeTranslationTable maps the characters of the standard
// Z-machine Unicode extension set onto their ZSCII codes (155-223), used
// when a story supplies no custom table of its own.
var DefaultUnicodeTranslationTable = map[rune]uint8{
	'ä': 155,
	'ö': 156,
	'ü': 157,
	'Ä': 158,
	'Ö': 159,
	'Ü': 160,
	'ß': 161,
	'»': 162,
	'«': 163,
	'ë': 164,
	'ï': 165,
	'ÿ': 166,
	'Ë': 167,
	'Ï': 168,
	'á': 169,
	'é': 170,
	'í': 171,
	'ó': 172,
	'ú': 173,
	'ý': 174,
	'Á': 175,
	'É': 176,
	'Í': 177,
	'Ó': 178,
	'Ú': 179,
	'Ý': 180,
	'à': 181,
	'è': 182,
	'ì': 183,
	'ò': 184,
	'ù': 185,
	'À': 186,
	'È': 187,
	'Ì': 188,
	'Ò': 189,
	'Ù': 190,
	'â': 191,
	'ê': 192,
	'î': 193,
	'ô': 194,
	'û': 195,
	'Â': 196,
	'Ê': 197,
	'Î': 198,
	'Ô': 199,
	'Û': 200,
	'å': 201,
	'Å': 202,
	'ø': 203,
	'Ø': 204,
	'ã': 205,
	'ñ': 206,
	'õ': 207,
	'Ã': 208,
	'Ñ': 209,
	'Õ': 210,
	'æ': 211,
	'Æ': 212,
	'ç': 213,
	'Ç': 214,
	'þ': 215,
	'ð': 216,
	'Þ': 217,
	'Ð': 218,
	'£': 219,
	'œ': 220,
	'Œ': 221,
	'¡': 222,
	'¿': 223,
}

func unicodeTableFor(core *zcore.Core) map[rune]uint8 {
	if core != nil && core.UnicodeTableAddress != 0 {
		return parseUnicodeTranslationTable(core)
	}
	return DefaultUnicodeTranslationTable
}

func unicodeToZscii(r rune, core *zcore.Core) (uint8, bool) {
	zchr, ok := unicodeTableFor(core)[r]
	return zchr, ok
}

// ZsciiToUnicode translates a ZSCII code (in the 155-223 extension range)
// back to its display rune, consulting a custom table first if the story
// supplies one.
func ZsciiToUnicode(zchr uint8, core *zcore.Core) (rune, bool) {
	for r, ix := range unicodeTableFor(core) {
		if ix == zchr {
			return r, true
		}
	}

	if core != nil && core.UnicodeTableAddress != 0 {
		for r, ix := range DefaultUnicodeTranslationTable {
			if ix == zchr {
				return r, true
			}
		}
	}

	return 0, false
}

func parseUnicodeTranslationTable(core *zcore.Core) map[rune]uint8 {
	result := make(map[rune]uint8)

	numEntries := core.ReadByte(uint32(core.UnicodeTableAddress))
	start := uint32(core.UnicodeTableAddress) + 1
	for i := 0; i < int(numEntries); i++ {
		result[rune(core.ReadHalfWord(start+uint32(i)*2))] = uint8(i + 155)
	}

	return result
}
