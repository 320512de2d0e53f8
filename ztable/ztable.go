// Package ztable implements the Z-machine's generic table opcodes:
// print_table, scan_table, and copy_table.
package ztable

import (
	"strings"

	"github.com/inkwell-if/zvm/zcore"
)

// PrintTable renders the byte table at baddr as a string, wrapping after
// width characters and stopping after height rows, skipping skip bytes
// between the end of one row and the start of the next. The first byte
// of the table holds the number of bytes to print; the text starts at
// baddr+1.
func PrintTable(core *zcore.Core, baddr uint32, width, height, skip uint16) string {
	numBytes := core.ReadByte(baddr)
	s := strings.Builder{}

	for i := uint16(0); i < uint16(numBytes); i++ {
		row := i / width
		col := i % width

		if col == 0 && row != 0 {
			s.WriteByte('\n')
			if row == height {
				break
			}
		}

		s.WriteByte(core.ReadByte(baddr + 1 + uint32(i) + uint32(skip)*uint32(row)))
	}

	return s.String()
}

// ScanTable searches the table at baddr for a field equal to test,
// returning the address of the first match or 0 if none is found. form's
// top bit selects word (set) vs byte (clear) comparisons; the remaining
// bits give the field size in bytes.
func ScanTable(core *zcore.Core, test uint16, baddr uint32, length, form uint16) uint32 {
	ptr := baddr
	fieldSize := form & 0b0111_1111
	checkWord := form&0b1000_0000 != 0
	if fieldSize == 0 {
		return 0
	}

	for i := uint16(0); i < length; i++ {
		if checkWord {
			if core.ReadHalfWord(ptr) == test {
				return ptr
			}
		} else if uint16(core.ReadByte(ptr)) == test {
			return ptr
		}

		ptr += uint32(fieldSize)
	}

	return 0
}

// CopyTable copies size bytes from first to second. A positive size
// copies from an untouched snapshot of the source (safe for overlapping
// ranges); a negative size copies byte-by-byte left to right, allowing
// the destination to clobber the source as it goes. second == 0 zeroes
// the first table instead of copying.
func CopyTable(core *zcore.Core, first, second uint32, size int16) {
	sizeAbs := uint32(size)
	if size < 0 {
		sizeAbs = uint32(-int32(size))
	}

	switch {
	case second == 0:
		for i := uint32(0); i < sizeAbs; i++ {
			core.WriteByte(first+i, 0)
		}
	case size >= 0:
		tmp := make([]uint8, sizeAbs)
		copy(tmp, core.ReadSlice(first, first+sizeAbs))
		for i := uint32(0); i < sizeAbs; i++ {
			core.WriteByte(second+i, tmp[i])
		}
	default:
		for i := uint32(0); i < sizeAbs; i++ {
			core.WriteByte(second+i, core.ReadByte(first+i))
		}
	}
}
