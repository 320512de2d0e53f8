package dictionary

import (
	"testing"

	"github.com/inkwell-if/zvm/zcore"
	"github.com/inkwell-if/zvm/zstring"
)

// buildTestStory lays out a v3 story with a dictionary (separators ".",
// ",") containing the words "take" and "lamp", plus a text buffer and
// parse buffer for tokenizer tests.
func buildTestStory() (zcore.Core, *zstring.Alphabets, uint32, uint32, uint32) {
	b := make([]uint8, 0x400)
	b[0x00] = 3
	b[0x0e] = 0x03
	b[0x0f] = 0x00

	core := zcore.LoadCore(b)
	alphabets := zstring.DefaultAlphabets(core.Version)

	dictBase := uint32(0x100)
	core.WriteByte(dictBase, 2) // 2 input codes
	core.WriteByte(dictBase+1, '.')
	core.WriteByte(dictBase+2, ',')
	core.WriteByte(dictBase+3, 7) // entry length (4 encoded + 3 data)
	core.WriteHalfWord(dictBase+4, 2)

	entryPtr := dictBase + 6
	takeZ := zstring.Encode(&alphabets, core.Version, "take")
	for i, bb := range takeZ {
		core.WriteByte(entryPtr+uint32(i), bb)
	}
	entryPtr += 7

	lampZ := zstring.Encode(&alphabets, core.Version, "lamp")
	for i, bb := range lampZ {
		core.WriteByte(entryPtr+uint32(i), bb)
	}

	textBuffer := uint32(0x200)
	core.WriteByte(textBuffer, 32) // max length

	parseBuffer := uint32(0x240)
	core.WriteByte(parseBuffer, 8) // max words

	return core, &alphabets, dictBase, textBuffer, parseBuffer
}

func TestParseAndFind(t *testing.T) {
	core, alphabets, dictBase, _, _ := buildTestStory()
	dict := Parse(&core, alphabets, dictBase)

	if dict.Header.Count != 2 {
		t.Fatalf("expected 2 entries, got %d", dict.Header.Count)
	}
	if dict.Entries[0].DecodedWord[:4] != "take" {
		t.Errorf("expected first entry to decode to take..., got %q", dict.Entries[0].DecodedWord)
	}

	takeZ := zstring.Encode(alphabets, core.Version, "take")
	addr := dict.Find(takeZ)
	if addr != dict.Entries[0].Address {
		t.Errorf("expected Find to return entry 0's address, got %#x", addr)
	}

	missingZ := zstring.Encode(alphabets, core.Version, "zzzz")
	if dict.Find(missingZ) != 0 {
		t.Errorf("expected Find to return 0 for a word not in the dictionary")
	}
}

func TestTokeniseSeparatorsAreOwnTokens(t *testing.T) {
	core, alphabets, dictBase, textBuffer, parseBuffer := buildTestStory()
	dict := Parse(&core, alphabets, dictBase)

	text := "take lamp."
	for i, c := range []byte(text) {
		core.WriteByte(textBuffer+1+uint32(i), c)
	}
	core.WriteByte(textBuffer+1+uint32(len(text)), 0)

	Tokenise(&core, alphabets, dict, textBuffer, parseBuffer, false)

	wordCount := core.ReadByte(parseBuffer + 1)
	if wordCount != 3 {
		t.Fatalf("expected 3 tokens (take, lamp, .), got %d", wordCount)
	}

	// Third token is the separator itself, one character long.
	thirdLength := core.ReadByte(parseBuffer + 2 + 3*4 - 4 + 2)
	if thirdLength != 1 {
		t.Errorf("expected separator token to be length 1, got %d", thirdLength)
	}
}
