// Package zstring implements the Z-machine's packed text encoding: the
// 5-bit z-character alphabet, abbreviation expansion, the 10-bit ZSCII
// escape, and encoding text back into dictionary-ready z-chars.
package zstring

import (
	"encoding/binary"

	"github.com/inkwell-if/zvm/zcore"
)

var a0Default = [26]uint8{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z'}
var a1Default = [26]uint8{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z'}
var a2V1 = [26]uint8{' ', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '<', '-', ':', '(', ')'}
var a2Default = [26]uint8{' ', '\n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '-', ':', '(', ')'}

// Alphabet names the three z-char alphabets a string decode/encode can be
// shifted into.
type Alphabet int

const (
	A0 Alphabet = 0
	A1 Alphabet = 1
	A2 Alphabet = 2
)

// Alphabets holds the three 26-entry lookup tables active for a story,
// either the version defaults or a custom table loaded from the header
// extension (v5+).
type Alphabets struct {
	Tables [3][26]uint8
}

// DefaultAlphabets returns the standard alphabet tables for a version; A2
// differs between v1 and v2+.
func DefaultAlphabets(version uint8) Alphabets {
	a2 := a2Default
	if version == 1 {
		a2 = a2V1
	}
	return Alphabets{Tables: [3][26]uint8{a0Default, a1Default, a2}}
}

// LoadAlphabets returns the alphabet tables in effect for core: a custom
// table from core.AlphabetTableAddress if the story supplies one (v5+),
// otherwise the version defaults.
func LoadAlphabets(core *zcore.Core) Alphabets {
	if core.Version >= 5 && core.AlphabetTableAddress != 0 {
		var a Alphabets
		base := uint32(core.AlphabetTableAddress)
		for i := 0; i < 26; i++ {
			a.Tables[0][i] = core.ReadByte(base + uint32(i))
			a.Tables[1][i] = core.ReadByte(base + 26 + uint32(i))
			a.Tables[2][i] = core.ReadByte(base + 52 + uint32(i))
		}
		return a
	}
	return DefaultAlphabets(core.Version)
}

// unpackZChars splits the packed-word stream starting at address into its
// constituent 5-bit z-characters, stopping after the word with the
// top bit set. It returns the z-chars and the number of bytes consumed.
func unpackZChars(core *zcore.Core, address uint32) ([]uint8, uint32) {
	var zchrs []uint8
	bytesRead := uint32(0)
	ptr := address

	for {
		halfWord := core.ReadHalfWord(ptr)
		bytesRead += 2
		ptr += 2

		zchrs = append(zchrs,
			uint8((halfWord>>10)&0b11111),
			uint8((halfWord>>5)&0b11111),
			uint8(halfWord&0b11111),
		)

		if halfWord>>15 == 1 {
			break
		}
	}

	return zchrs, bytesRead
}

// Decode reads a packed z-string from the story at address, expanding
// abbreviations and ZSCII escapes, and returns the decoded text plus the
// number of bytes the packed representation occupied.
func Decode(core *zcore.Core, alphabets *Alphabets, address uint32) (string, uint32) {
	zchrs, bytesRead := unpackZChars(core, address)

	var out []rune
	baseAlphabet := A0
	currentAlphabet := A0
	nextAlphabet := A0

	for i := 0; i < len(zchrs); i++ {
		zchr := zchrs[i]
		currentAlphabet = nextAlphabet
		nextAlphabet = baseAlphabet

		switch zchr {
		case 0:
			out = append(out, ' ')
			continue
		case 1:
			if core.Version == 1 {
				out = append(out, '\n')
				continue
			}
			i++
			out = append(out, []rune(expandAbbreviation(core, alphabets, 1, zchrs[i]))...)
			continue
		case 2, 3:
			if core.Version >= 3 {
				i++
				out = append(out, []rune(expandAbbreviation(core, alphabets, zchr, zchrs[i]))...)
				continue
			}
			if zchr == 2 {
				nextAlphabet = (currentAlphabet + 1) % 3
			} else {
				nextAlphabet = (currentAlphabet + 2) % 3
			}
			continue
		case 4, 5:
			shift := Alphabet(1)
			if zchr == 5 {
				shift = 2
			}
			if core.Version >= 3 {
				nextAlphabet = shift
			} else {
				baseAlphabet = (baseAlphabet + shift) % 3
				nextAlphabet = baseAlphabet
			}
			continue
		}

		if currentAlphabet == A2 && zchr == 6 {
			hi := zchrs[i+1]
			lo := zchrs[i+2]
			i += 2
			zscii := uint8(hi<<5 | lo)
			if r, ok := ZsciiToUnicode(zscii, core); ok {
				out = append(out, r)
			} else {
				out = append(out, rune(zscii))
			}
			continue
		}

		out = append(out, rune(alphabets.Tables[currentAlphabet][zchr-6]))
	}

	return string(out), bytesRead
}

// expandAbbreviation resolves abbreviation bank z (1, 2 or 3) index x into
// its decoded text. Abbreviations never reference other abbreviations.
func expandAbbreviation(core *zcore.Core, alphabets *Alphabets, z, x uint8) string {
	abbrIx := 32*(uint16(z)-1) + uint16(x)
	entryAddr := uint32(core.AbbreviationTableBase) + 2*uint32(abbrIx)
	wordAddr := core.ReadHalfWord(entryAddr)
	str, _ := Decode(core, alphabets, uint32(wordAddr)*2)
	return str
}

// Encode converts text into zWords 2-byte words of packed z-characters,
// padded with z-char 5, suitable for dictionary key construction. v1-3
// dictionary entries are 2 words (6 z-chars); v4+ are 3 words (9 z-chars).
func Encode(alphabets *Alphabets, version uint8, text string) []uint8 {
	numWords := 2
	if version >= 4 {
		numWords = 3
	}
	numZChars := numWords * 3

	zchrs := make([]uint8, 0, numZChars)
	for _, r := range []rune(text) {
		if len(zchrs) >= numZChars {
			break
		}
		zchrs = append(zchrs, encodeRune(alphabets, r)...)
	}
	for len(zchrs) < numZChars {
		zchrs = append(zchrs, 5)
	}
	zchrs = zchrs[:numZChars]

	out := make([]uint8, numWords*2)
	for w := 0; w < numWords; w++ {
		word := uint16(zchrs[w*3])<<10 | uint16(zchrs[w*3+1])<<5 | uint16(zchrs[w*3+2])
		if w == numWords-1 {
			word |= 0x8000
		}
		binary.BigEndian.PutUint16(out[w*2:w*2+2], word)
	}

	return out
}

// encodeRune returns the z-chars needed to represent a single rune: a
// direct alphabet lookup (with a shift prefix for A1/A2), or a 10-bit
// ZSCII escape (z-char 5, 6, then two 5-bit halves) if it appears in no
// alphabet.
func encodeRune(alphabets *Alphabets, r rune) []uint8 {
	if r == ' ' {
		return []uint8{0}
	}

	for i, c := range alphabets.Tables[A0] {
		if rune(c) == r {
			return []uint8{uint8(i) + 6}
		}
	}
	for i, c := range alphabets.Tables[A1] {
		if rune(c) == r {
			return []uint8{4, uint8(i) + 6}
		}
	}
	for i, c := range alphabets.Tables[A2] {
		if rune(c) == r {
			return []uint8{5, uint8(i) + 6}
		}
	}

	zscii := uint8(r)
	if r > 0x7f {
		if z, ok := DefaultUnicodeTranslationTable[r]; ok {
			zscii = z
		}
	}
	return []uint8{5, 6, zscii >> 5, zscii & 0b11111}
}
