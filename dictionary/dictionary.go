// Package dictionary implements the Z-machine's word dictionary and the
// input tokenizer that splits a typed command into dictionary lookups.
package dictionary

import (
	"bytes"

	"github.com/inkwell-if/zvm/zcore"
	"github.com/inkwell-if/zvm/zstring"
)

// Header describes the dictionary's word-separator set and entry layout.
type Header struct {
	InputCodes []uint8
	EntryLength uint8
	Count       int16
}

// Entry is one decoded word in the dictionary.
type Entry struct {
	Address     uint16
	EncodedWord []uint8
	DecodedWord string
	Data        []uint8
}

// Dictionary is a story's parsed word list, ready for lookups during
// tokenisation.
type Dictionary struct {
	Header  Header
	Entries []Entry
}

// Parse decodes the dictionary at baseAddress.
func Parse(core *zcore.Core, alphabets *zstring.Alphabets, baseAddress uint32) *Dictionary {
	numInputCodes := core.ReadByte(baseAddress)

	header := Header{
		InputCodes:  append([]uint8{}, core.ReadSlice(baseAddress+1, baseAddress+1+uint32(numInputCodes))...),
		EntryLength: core.ReadByte(baseAddress + 1 + uint32(numInputCodes)),
		Count:       int16(core.ReadHalfWord(baseAddress + 2 + uint32(numInputCodes))),
	}

	entryPtr := baseAddress + 4 + uint32(numInputCodes)
	encodedWordLength := uint32(4)
	if core.Version > 3 {
		encodedWordLength = 6
	}

	entries := make([]Entry, header.Count)
	for ix := 0; ix < int(header.Count); ix++ {
		encodedWord := append([]uint8{}, core.ReadSlice(entryPtr, entryPtr+encodedWordLength)...)
		decodedWord, _ := zstring.Decode(core, alphabets, entryPtr)

		entries[ix] = Entry{
			Address:     uint16(entryPtr),
			EncodedWord: encodedWord,
			DecodedWord: decodedWord,
			Data:        core.ReadSlice(entryPtr+encodedWordLength, entryPtr+uint32(header.EntryLength)),
		}

		entryPtr += uint32(header.EntryLength)
	}

	return &Dictionary{Header: header, Entries: entries}
}

// Find returns the byte address of the dictionary entry whose encoded
// word matches zstr, or 0 if the word is not in the dictionary.
func (d *Dictionary) Find(zstr []uint8) uint16 {
	for _, entry := range d.Entries {
		if bytes.Equal(entry.EncodedWord, zstr) {
			return entry.Address
		}
	}
	return 0
}
