package ztable

import (
	"testing"

	"github.com/inkwell-if/zvm/zcore"
)

func newCore() zcore.Core {
	b := make([]uint8, 0x200)
	b[0x00] = 3
	b[0x0e] = 0x01
	b[0x0f] = 0x00
	return zcore.LoadCore(b)
}

func TestPrintTableWraps(t *testing.T) {
	core := newCore()
	core.WriteByte(0x100, 4)
	core.WriteByte(0x101, 'a')
	core.WriteByte(0x102, 'b')
	core.WriteByte(0x103, 'c')
	core.WriteByte(0x104, 'd')

	got := PrintTable(&core, 0x100, 2, 2, 0)
	if got != "ab\ncd" {
		t.Errorf("expected %q, got %q", "ab\ncd", got)
	}
}

func TestScanTableByte(t *testing.T) {
	core := newCore()
	for i, v := range []uint8{1, 2, 3, 4} {
		core.WriteByte(0x100+uint32(i), v)
	}

	addr := ScanTable(&core, 3, 0x100, 4, 1)
	if addr != 0x102 {
		t.Errorf("expected address 0x102, got %#x", addr)
	}

	if ScanTable(&core, 9, 0x100, 4, 1) != 0 {
		t.Errorf("expected 0 for a value not in the table")
	}
}

func TestScanTableWord(t *testing.T) {
	core := newCore()
	core.WriteHalfWord(0x100, 0x1234)
	core.WriteHalfWord(0x102, 0x5678)

	addr := ScanTable(&core, 0x5678, 0x100, 2, 0b1000_0010)
	if addr != 0x102 {
		t.Errorf("expected address 0x102, got %#x", addr)
	}
}

func TestCopyTablePositive(t *testing.T) {
	core := newCore()
	for i, v := range []uint8{1, 2, 3} {
		core.WriteByte(0x100+uint32(i), v)
	}

	CopyTable(&core, 0x100, 0x104, 3)

	for i := 0; i < 3; i++ {
		if core.ReadByte(0x104+uint32(i)) != uint8(i+1) {
			t.Errorf("expected copied byte %d at offset %d", i+1, i)
		}
	}
}

func TestCopyTableZeroesOnSecondZero(t *testing.T) {
	core := newCore()
	core.WriteByte(0x100, 0xFF)
	core.WriteByte(0x101, 0xFF)

	CopyTable(&core, 0x100, 0, 2)

	if core.ReadByte(0x100) != 0 || core.ReadByte(0x101) != 0 {
		t.Errorf("expected table to be zeroed")
	}
}
