package zstring

import (
	"encoding/binary"
	"testing"

	"github.com/inkwell-if/zvm/zcore"
)

func newTestCore(version uint8) zcore.Core {
	b := make([]uint8, 0x400)
	b[0x00] = version
	b[0x0e] = 0x02 // static memory base
	b[0x0f] = 0x00
	b[0x18] = 0x01 // abbreviation table base
	b[0x19] = 0x00
	return zcore.LoadCore(b)
}

// want is the text expected back: Encode truncates to the dictionary
// length (6 z-chars in v1-3, 9 in v4+), so longer input comes back cut.
var roundTripTests = []struct {
	name    string
	text    string
	want    string
	version uint8
}{
	{"all lowercase", "hello", "hello", 3},
	{"with space", "open mailbox", "open m", 3},
	{"v5 lowercase", "look", "look", 5},
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, tt := range roundTripTests {
		t.Run(tt.name, func(t *testing.T) {
			core := newTestCore(tt.version)
			alphabets := DefaultAlphabets(tt.version)

			encoded := Encode(&alphabets, tt.version, tt.text)
			addr := uint32(0x200)
			for i, b := range encoded {
				core.WriteByte(addr+uint32(i), b)
			}

			decoded, bytesRead := Decode(&core, &alphabets, addr)
			if bytesRead != uint32(len(encoded)) {
				t.Errorf("expected %d bytes read, got %d", len(encoded), bytesRead)
			}

			want := tt.want
			if len(want) > len(decoded) {
				t.Fatalf("decoded string shorter than input: got %q", decoded)
			}
			if decoded[:len(want)] != want {
				t.Errorf("round trip mismatch: got %q, want prefix %q", decoded, want)
			}
		})
	}
}

func TestDecodeAbbreviation(t *testing.T) {
	core := newTestCore(3)
	alphabets := DefaultAlphabets(3)

	// Pack "hi" into a single word at byte address 0x180 (word address 0xc0),
	// clear of the abbreviation table at 0x100.
	hWord := uint16(13)<<10 | uint16(14)<<5 | 5
	hWord |= 0x8000
	binary.BigEndian.PutUint16(core.ReadSlice(0x180, 0x182), hWord)

	// Abbreviation entry 0 (bank 1, index 0) points at word address 0xc0.
	abbrBase := uint32(core.AbbreviationTableBase)
	binary.BigEndian.PutUint16(core.ReadSlice(abbrBase, abbrBase+2), 0xc0)

	// Outer string: z-char 1 (abbreviation bank 1), x=0.
	outerWord := uint16(1)<<10 | uint16(0)<<5 | 5
	outerWord |= 0x8000
	binary.BigEndian.PutUint16(core.ReadSlice(0x110, 0x112), outerWord)

	decoded, bytesRead := Decode(&core, &alphabets, 0x110)
	if decoded != "hi" {
		t.Errorf("expected abbreviation to expand to %q, got %q", "hi", decoded)
	}
	if bytesRead != 2 {
		t.Errorf("expected outer string to consume 2 bytes, got %d", bytesRead)
	}
}

func TestDecodeZsciiEscape(t *testing.T) {
	core := newTestCore(3)
	alphabets := DefaultAlphabets(3)

	// '@' = ASCII 64 = 0b01000000 -> hi=2, lo=0.
	word1 := uint16(5)<<10 | uint16(6)<<5 | 2
	word2 := uint16(0)<<10 | uint16(5)<<5 | 5
	word2 |= 0x8000

	binary.BigEndian.PutUint16(core.ReadSlice(0x120, 0x122), word1)
	binary.BigEndian.PutUint16(core.ReadSlice(0x122, 0x124), word2)

	decoded, bytesRead := Decode(&core, &alphabets, 0x120)
	if decoded != "@" {
		t.Errorf("expected ZSCII escape to decode to %q, got %q", "@", decoded)
	}
	if bytesRead != 4 {
		t.Errorf("expected escape string to consume 4 bytes, got %d", bytesRead)
	}
}

func TestLoadAlphabetsDefaultsWhenNoCustomTable(t *testing.T) {
	core := newTestCore(5)
	alphabets := LoadAlphabets(&core)
	if alphabets.Tables[0][0] != 'a' {
		t.Errorf("expected default A0 table when no custom alphabet table is present")
	}
}

func TestLoadAlphabetsCustomTable(t *testing.T) {
	core := newTestCore(5)
	core.AlphabetTableAddress = 0x300
	for i := 0; i < 26; i++ {
		core.WriteByte(0x300+uint32(i), 'z'-uint8(i))
		core.WriteByte(0x300+26+uint32(i), 'Z'-uint8(i))
		core.WriteByte(0x300+52+uint32(i), '9'-uint8(i%10))
	}

	alphabets := LoadAlphabets(&core)
	if alphabets.Tables[0][0] != 'z' {
		t.Errorf("expected custom A0 table to be loaded, got %q", alphabets.Tables[0][0])
	}
}
