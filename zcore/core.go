// Package zcore owns the story image: a flat byte buffer plus typed,
// version-dependent access to the Z-machine header fields laid out across
// it. Everything else in the interpreter reads and writes memory through
// this package.
package zcore

import "encoding/binary"

// Core is the byte-addressable backing store for a loaded story file,
// together with the header fields decoded from its first 64 bytes.
type Core struct {
	bytes []uint8

	Version                  uint8
	FlagByte1                uint8
	FlagByte2                uint16
	StatusBarTimeBased       bool
	ReleaseNumber            uint16
	HighMemoryBase           uint16
	FirstInstruction         uint16
	DictionaryBase           uint16
	ObjectTableBase          uint16
	GlobalVariableBase       uint16
	StaticMemoryBase         uint16
	SerialNumber             [6]uint8
	AbbreviationTableBase    uint16
	FileChecksum             uint16
	RoutinesOffset           uint16
	StringOffset             uint16
	TerminatingCharTableBase uint16
	AlphabetTableAddress     uint16
	HeaderExtensionAddress   uint16
	UnicodeTableAddress      uint16

	// OriginalDynamicMemory is a snapshot of bytes [0, StaticMemoryBase)
	// taken immediately after load, used by the quetzal package to
	// compute the XOR diff for Quetzal CMem chunks and by Restart.
	OriginalDynamicMemory []uint8
}

// LoadCore parses a story image's header and returns a ready-to-use Core.
// It also stamps a handful of interpreter-identity bytes into the header
// (interpreter number/version, screen dimensions, standard revision) the
// way a real interpreter is expected to on load.
func LoadCore(storyBytes []uint8) Core {
	storyBytes[0x1e] = 0x6 // Interpreter number - IBM PC, closest available match
	storyBytes[0x1f] = 0x1 // Interpreter version

	// Typical terminal dimensions; games may use these for layout math.
	storyBytes[0x20] = 25 // Screen height, lines
	storyBytes[0x21] = 80 // Screen width, characters
	storyBytes[0x22] = 0
	storyBytes[0x23] = 80
	storyBytes[0x24] = 0
	storyBytes[0x25] = 25
	storyBytes[0x26] = 1 // Font height, units
	storyBytes[0x27] = 1 // Font width, units

	storyBytes[0x32] = 0x1 // Claim standard 1.2 compliance
	storyBytes[0x33] = 0x2

	version := storyBytes[0x00]
	if version <= 3 {
		storyBytes[1] |= 0b0010_0000 // Split screen available
	} else {
		// colours(0x01) bold(0x04) italic(0x08) split-screen(0x20); not
		// claiming pictures, fixed-width default, or timed input.
		storyBytes[1] |= 0b0010_1101
	}

	extensionAddr := binary.BigEndian.Uint16(storyBytes[0x36:0x38])
	unicodeTableAddr := uint16(0)
	if extensionAddr != 0 && int(extensionAddr)+8 <= len(storyBytes) {
		extLen := binary.BigEndian.Uint16(storyBytes[extensionAddr : extensionAddr+2])
		if extLen >= 3 {
			unicodeTableAddr = binary.BigEndian.Uint16(storyBytes[extensionAddr+6 : extensionAddr+8])
		}
	}

	var serial [6]uint8
	copy(serial[:], storyBytes[0x12:0x18])

	core := Core{
		bytes:                    storyBytes,
		Version:                  version,
		FlagByte1:                storyBytes[0x01],
		FlagByte2:                binary.BigEndian.Uint16(storyBytes[0x10:0x12]),
		StatusBarTimeBased:       version <= 3 && storyBytes[0x01]&0b0000_0010 != 0,
		ReleaseNumber:            binary.BigEndian.Uint16(storyBytes[0x02:0x04]),
		HighMemoryBase:           binary.BigEndian.Uint16(storyBytes[0x04:0x06]),
		FirstInstruction:         binary.BigEndian.Uint16(storyBytes[0x06:0x08]),
		DictionaryBase:           binary.BigEndian.Uint16(storyBytes[0x08:0x0a]),
		ObjectTableBase:          binary.BigEndian.Uint16(storyBytes[0x0a:0x0c]),
		GlobalVariableBase:       binary.BigEndian.Uint16(storyBytes[0x0c:0x0e]),
		StaticMemoryBase:         binary.BigEndian.Uint16(storyBytes[0x0e:0x10]),
		SerialNumber:             serial,
		AbbreviationTableBase:    binary.BigEndian.Uint16(storyBytes[0x18:0x1a]),
		FileChecksum:             binary.BigEndian.Uint16(storyBytes[0x1c:0x1e]),
		RoutinesOffset:           binary.BigEndian.Uint16(storyBytes[0x28:0x2a]),
		StringOffset:             binary.BigEndian.Uint16(storyBytes[0x2a:0x2c]),
		TerminatingCharTableBase: binary.BigEndian.Uint16(storyBytes[0x2e:0x30]),
		AlphabetTableAddress:     binary.BigEndian.Uint16(storyBytes[0x34:0x36]),
		HeaderExtensionAddress:   extensionAddr,
		UnicodeTableAddress:      unicodeTableAddr,
	}

	core.OriginalDynamicMemory = make([]uint8, core.StaticMemoryBase)
	copy(core.OriginalDynamicMemory, storyBytes[:core.StaticMemoryBase])

	return core
}

// FileLength returns the declared story length in bytes, applying the
// version-dependent multiplier to the header's packed length field.
func (core *Core) FileLength() uint32 {
	var multiplier uint32
	switch {
	case core.Version <= 3:
		multiplier = 2
	case core.Version <= 5:
		multiplier = 4
	default:
		multiplier = 8
	}
	return uint32(binary.BigEndian.Uint16(core.bytes[0x1a:0x1c])) * multiplier
}

// MemoryLength returns the total size of the loaded story image in bytes,
// which may exceed the declared FileLength if the file was padded.
func (core *Core) MemoryLength() uint32 {
	return uint32(len(core.bytes))
}

// ReadByte reads a single byte from the story image.
func (core *Core) ReadByte(address uint32) uint8 {
	return core.bytes[address]
}

// WriteByte writes a single byte to the story image. Callers are expected
// to respect the dynamic/static split themselves: this layer does
// not police it.
func (core *Core) WriteByte(address uint32, value uint8) {
	core.bytes[address] = value
}

// ReadHalfWord reads a big-endian 16-bit value from the story image.
func (core *Core) ReadHalfWord(address uint32) uint16 {
	return binary.BigEndian.Uint16(core.bytes[address : address+2])
}

// WriteHalfWord writes a big-endian 16-bit value to the story image.
func (core *Core) WriteHalfWord(address uint32, value uint16) {
	binary.BigEndian.PutUint16(core.bytes[address:address+2], value)
}

// ReadSlice returns the raw bytes in [start, end) without copying. Callers
// that need to retain the result across further writes must copy it.
func (core *Core) ReadSlice(start, end uint32) []uint8 {
	return core.bytes[start:end]
}

// DynamicMemory returns the mutable prefix of the story image, bytes
// [0, StaticMemoryBase).
func (core *Core) DynamicMemory() []uint8 {
	return core.bytes[:core.StaticMemoryBase]
}

// Restart reloads dynamic memory from the originally loaded bytes, as
// required by the `restart` opcode, while preserving the transcription
// bit of flag 2 and the screen-split bit of flag 1.
func (core *Core) Restart() {
	preservedFlag1 := core.bytes[0x01] & 0b0010_0000
	preservedFlag2Transcript := core.bytes[0x11] & 0b0000_0001

	copy(core.bytes[:core.StaticMemoryBase], core.OriginalDynamicMemory)

	core.bytes[0x01] |= preservedFlag1
	core.bytes[0x11] |= preservedFlag2Transcript
	core.FlagByte1 = core.bytes[0x01]
	core.FlagByte2 = binary.BigEndian.Uint16(core.bytes[0x10:0x12])
}

// VerifyChecksum recomputes the checksum over bytes [0x40, FileLength) and
// compares it to the header's stored checksum.
func (core *Core) VerifyChecksum() bool {
	fileLength := core.FileLength()
	if fileLength > core.MemoryLength() {
		fileLength = core.MemoryLength()
	}

	var sum uint16
	for ix := uint32(0x40); ix < fileLength; ix++ {
		sum += uint16(core.bytes[ix])
	}

	return sum == core.FileChecksum
}

// Cursor is a positional reader/writer over a Core: each read/write
// advances Position automatically, convenient for code that walks
// sequential structures like the parse buffer or a property table.
type Cursor struct {
	core     *Core
	Position uint32
}

// NewCursor returns a Cursor starting at the given address.
func NewCursor(core *Core, address uint32) Cursor {
	return Cursor{core: core, Position: address}
}

// Byte reads the byte at the cursor and advances by one.
func (c *Cursor) Byte() uint8 {
	v := c.core.ReadByte(c.Position)
	c.Position++
	return v
}

// Word reads the half-word at the cursor and advances by two.
func (c *Cursor) Word() uint16 {
	v := c.core.ReadHalfWord(c.Position)
	c.Position += 2
	return v
}

// WriteByte writes the byte at the cursor and advances by one.
func (c *Cursor) WriteByte(value uint8) {
	c.core.WriteByte(c.Position, value)
	c.Position++
}

// WriteWord writes the half-word at the cursor and advances by two.
func (c *Cursor) WriteWord(value uint16) {
	c.core.WriteHalfWord(c.Position, value)
	c.Position += 2
}
