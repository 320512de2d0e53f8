package zcore

import "testing"

// newTestStory builds a minimal synthetic story image of the given
// version with a header large enough to exercise LoadCore.
func newTestStory(version uint8, size int) []uint8 {
	b := make([]uint8, size)
	b[0x00] = version
	// static memory base just past the header
	b[0x0e] = 0x00
	b[0x0f] = 0x40
	// high memory base
	b[0x04] = 0x00
	b[0x05] = 0x60
	// first instruction
	b[0x06] = 0x00
	b[0x07] = 0x50
	return b
}

func TestLoadCoreHeaderFields(t *testing.T) {
	b := newTestStory(3, 128)
	b[0x1a] = 0x00
	b[0x1b] = 0x10 // file length field = 16, *2 for v3 = 32

	core := LoadCore(b)

	if core.Version != 3 {
		t.Errorf("expected version 3, got %d", core.Version)
	}
	if core.StaticMemoryBase != 0x40 {
		t.Errorf("expected static memory base 0x40, got %#x", core.StaticMemoryBase)
	}
	if core.FileLength() != 32 {
		t.Errorf("expected file length 32, got %d", core.FileLength())
	}
	if core.MemoryLength() != 128 {
		t.Errorf("expected memory length 128, got %d", core.MemoryLength())
	}
}

func TestFileLengthMultiplierByVersion(t *testing.T) {
	tests := []struct {
		version    uint8
		multiplier uint32
	}{
		{1, 2},
		{3, 2},
		{4, 4},
		{5, 4},
		{6, 8},
		{8, 8},
	}

	for _, tt := range tests {
		b := newTestStory(tt.version, 128)
		b[0x1a] = 0x00
		b[0x1b] = 0x04
		core := LoadCore(b)
		want := 4 * tt.multiplier
		if got := core.FileLength(); got != want {
			t.Errorf("version %d: expected file length %d, got %d", tt.version, want, got)
		}
	}
}

func TestReadWriteByteAndHalfWord(t *testing.T) {
	b := newTestStory(3, 128)
	core := LoadCore(b)

	core.WriteByte(0x50, 0xAB)
	if got := core.ReadByte(0x50); got != 0xAB {
		t.Errorf("expected 0xAB, got %#x", got)
	}

	core.WriteHalfWord(0x52, 0x1234)
	if got := core.ReadHalfWord(0x52); got != 0x1234 {
		t.Errorf("expected 0x1234, got %#x", got)
	}
}

func TestDynamicMemoryBoundary(t *testing.T) {
	b := newTestStory(3, 128)
	core := LoadCore(b)

	dyn := core.DynamicMemory()
	if len(dyn) != int(core.StaticMemoryBase) {
		t.Errorf("expected dynamic memory length %d, got %d", core.StaticMemoryBase, len(dyn))
	}
}

func TestRestartPreservesFlagsAndResetsMemory(t *testing.T) {
	b := newTestStory(3, 128)
	core := LoadCore(b)

	// Simulate the screen-split flag already set by LoadCore, plus a
	// user toggling the transcription bit and dirtying dynamic memory.
	core.WriteByte(0x11, core.ReadByte(0x11)|0b0000_0001)
	core.WriteByte(0x30, 0xFF)

	core.Restart()

	if core.ReadByte(0x30) != core.OriginalDynamicMemory[0x30] {
		t.Errorf("expected dynamic memory to be restored from original snapshot")
	}
	if core.ReadByte(0x01)&0b0010_0000 == 0 {
		t.Errorf("expected screen-split flag to be preserved across restart")
	}
	if core.ReadByte(0x11)&0b0000_0001 == 0 {
		t.Errorf("expected transcription flag to be preserved across restart")
	}
}

func TestVerifyChecksum(t *testing.T) {
	b := newTestStory(3, 128)
	b[0x1a] = 0x00
	b[0x1b] = 0x40 // file length field = 0x40, *2 = 0x80 = 128

	var sum uint16
	for ix := 0x40; ix < len(b); ix++ {
		b[ix] = uint8(ix)
		sum += uint16(b[ix])
	}
	b[0x1c] = uint8(sum >> 8)
	b[0x1d] = uint8(sum)

	core := LoadCore(b)
	if !core.VerifyChecksum() {
		t.Errorf("expected checksum to verify")
	}

	core.WriteByte(0x40, core.ReadByte(0x40)+1)
	if core.VerifyChecksum() {
		t.Errorf("expected checksum to fail after corrupting a byte")
	}
}

func TestCursorReadsAndAdvances(t *testing.T) {
	b := newTestStory(3, 128)
	core := LoadCore(b)
	core.WriteHalfWord(0x60, 0x0102)
	core.WriteByte(0x62, 0x03)

	c := NewCursor(&core, 0x60)
	if got := c.Word(); got != 0x0102 {
		t.Errorf("expected word 0x0102, got %#x", got)
	}
	if got := c.Byte(); got != 0x03 {
		t.Errorf("expected byte 0x03, got %#x", got)
	}
	if c.Position != 0x63 {
		t.Errorf("expected cursor position 0x63, got %#x", c.Position)
	}
}

func TestCursorWrites(t *testing.T) {
	b := newTestStory(3, 128)
	core := LoadCore(b)

	c := NewCursor(&core, 0x70)
	c.WriteWord(0xBEEF)
	c.WriteByte(0x42)

	if got := core.ReadHalfWord(0x70); got != 0xBEEF {
		t.Errorf("expected 0xBEEF, got %#x", got)
	}
	if got := core.ReadByte(0x72); got != 0x42 {
		t.Errorf("expected 0x42, got %#x", got)
	}
}
