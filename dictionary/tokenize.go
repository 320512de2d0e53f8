package dictionary

import (
	"github.com/inkwell-if/zvm/zcore"
	"github.com/inkwell-if/zvm/zstring"
)

type word struct {
	text              string
	startingLocation  uint32
	dictionaryAddress uint16
}

func tokeniseSingleWord(core *zcore.Core, alphabets *zstring.Alphabets, dict *Dictionary, text string, wordStartPtr uint32) word {
	zstr := zstring.Encode(alphabets, core.Version, text)

	return word{
		text:              text,
		startingLocation:  wordStartPtr,
		dictionaryAddress: dict.Find(zstr),
	}
}

// Tokenise implements the `tokenise` opcode: it splits the text
// buffer at baddr1 into words on spaces and the dictionary's separator
// set, looks each word up in dict, and writes the results into the parse
// buffer at baddr2. Separators are emitted as their own one-character
// tokens rather than being discarded; empty runs (consecutive spaces, or
// a space or separator at the end) produce no token. When leaveWordsBlank
// is set, unrecognised words still occupy a parse-buffer slot but nothing
// is written into it, matching the `tokenise` opcode's flag argument.
func Tokenise(core *zcore.Core, alphabets *zstring.Alphabets, dict *Dictionary, baddr1, baddr2 uint32, leaveWordsBlank bool) {
	var words []word
	startingLocation := baddr1 + 1
	chrCount := uint32(0)
	if core.Version >= 5 {
		chrCount = uint32(core.ReadByte(startingLocation))
		startingLocation++
	}
	currentLocation := startingLocation

	emit := func(from, to uint32) {
		if to <= from {
			return
		}
		text := string(core.ReadSlice(from, to))
		words = append(words, tokeniseSingleWord(core, alphabets, dict, text, from))
	}

	for {
		atEnd := false
		if core.Version < 5 {
			atEnd = core.ReadByte(currentLocation) == 0
		} else {
			atEnd = currentLocation-(baddr1+2) >= chrCount
		}
		if atEnd {
			emit(startingLocation, currentLocation)
			break
		}

		chr := core.ReadByte(currentLocation)
		if chr == ' ' {
			emit(startingLocation, currentLocation)
			startingLocation = currentLocation + 1
		} else {
			isSeparator := false
			for _, separator := range dict.Header.InputCodes {
				if chr == separator {
					isSeparator = true
					break
				}
			}
			if isSeparator {
				emit(startingLocation, currentLocation)
				emit(currentLocation, currentLocation+1)
				startingLocation = currentLocation + 1
			}
		}

		currentLocation++
	}

	if core.ReadByte(baddr2) < uint8(len(words)) {
		panic("more words were tokenised than the parse buffer can hold")
	}

	parseBufferPtr := baddr2 + 1
	core.WriteByte(parseBufferPtr, uint8(len(words)))
	parseBufferPtr++

	for _, w := range words {
		if w.dictionaryAddress == 0 && leaveWordsBlank {
			parseBufferPtr += 4
			continue
		}
		core.WriteHalfWord(parseBufferPtr, w.dictionaryAddress)
		core.WriteByte(parseBufferPtr+2, uint8(len(w.text)))
		core.WriteByte(parseBufferPtr+3, uint8(w.startingLocation-baddr1))
		parseBufferPtr += 4
	}
}
