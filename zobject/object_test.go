package zobject_test

import (
	"testing"

	"github.com/inkwell-if/zvm/zcore"
	"github.com/inkwell-if/zvm/zobject"
	"github.com/inkwell-if/zvm/zstring"
)

// newTestCoreV3 builds a minimal v3 story with a two-entry object table
// (defaults: 31 property-default words, 9 bytes per object entry) and a
// short property table for object 1.
func newTestCoreV3() zcore.Core {
	b := make([]uint8, 0x400)
	b[0x00] = 3
	b[0x0e] = 0x03 // static memory base
	b[0x0f] = 0x00
	b[0x0a] = 0x00 // object table base
	b[0x0b] = 0x40

	core := zcore.LoadCore(b)

	objectTableBase := uint32(core.ObjectTableBase)
	obj1Base := objectTableBase + 31*2

	propTableAddr := uint32(0x200)
	core.WriteByte(obj1Base+7, uint8(propTableAddr>>8))
	core.WriteByte(obj1Base+8, uint8(propTableAddr))

	// Object 2 gets an empty property table (name length 0, no properties)
	// at 0x220, so it can be looked up too.
	obj2Base := obj1Base + 9
	core.WriteByte(obj2Base+7, 0x02)
	core.WriteByte(obj2Base+8, 0x20)

	core.WriteByte(obj1Base+4, 0) // parent
	core.WriteByte(obj1Base+5, 0) // sibling
	core.WriteByte(obj1Base+6, 0) // child

	// Attributes: set bit 2 and bit 19 (matching the original fixture's
	// intent of a handful of scattered bits).
	core.WriteByte(obj1Base, 0b0010_0000) // attribute 2
	core.WriteByte(obj1Base+2, 0b0001_0000)

	// Property table: name length 0 (no name), then property 6 (length 1,
	// data 0x85), property 2 (length 2, data 0x88 0xE5), terminator.
	core.WriteByte(propTableAddr, 0)
	p := propTableAddr + 1
	core.WriteByte(p, (0<<5)|6) // length-1 property id 6
	core.WriteByte(p+1, 0x85)
	p += 2
	core.WriteByte(p, (1<<5)|2) // length-2 property id 2
	core.WriteByte(p+1, 0x88)
	core.WriteByte(p+2, 0xe5)
	p += 3
	core.WriteByte(p, 0) // terminator

	return core
}

func TestZerothObjectRetrievalPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("retrieving object 0 should panic")
		}
	}()

	core := newTestCoreV3()
	alphabets := zstring.DefaultAlphabets(core.Version)
	zobject.GetObject(&core, &alphabets, 0)
}

func TestObjectPropertyRetrieval(t *testing.T) {
	core := newTestCoreV3()
	alphabets := zstring.DefaultAlphabets(core.Version)

	obj := zobject.GetObject(&core, &alphabets, 1)

	prop6 := obj.GetProperty(&core, 6)
	if prop6.Length != 1 {
		t.Errorf("expected length 1, got %d", prop6.Length)
	}
	if prop6.Data[0] != 0x85 {
		t.Errorf("expected data 0x85, got %#x", prop6.Data[0])
	}

	prop2 := obj.GetProperty(&core, 2)
	if prop2.Length != 2 {
		t.Errorf("expected length 2, got %d", prop2.Length)
	}
	if prop2.Data[0] != 0x88 || prop2.Data[1] != 0xe5 {
		t.Errorf("expected data 0x88e5, got %x%x", prop2.Data[0], prop2.Data[1])
	}

	// Non-existent property falls back to the object table default.
	prop9 := obj.GetProperty(&core, 9)
	if prop9.DataAddress != 0 {
		t.Errorf("property 9 shouldn't exist on this object")
	}
}

func TestObjectSetProperty(t *testing.T) {
	core := newTestCoreV3()
	alphabets := zstring.DefaultAlphabets(core.Version)
	obj := zobject.GetObject(&core, &alphabets, 1)

	obj.SetProperty(&core, 2, 0x1234)
	prop2 := obj.GetProperty(&core, 2)
	if prop2.Data[0] != 0x12 || prop2.Data[1] != 0x34 {
		t.Errorf("expected updated data 0x1234, got %x%x", prop2.Data[0], prop2.Data[1])
	}
}

func TestAttributes(t *testing.T) {
	core := newTestCoreV3()
	alphabets := zstring.DefaultAlphabets(core.Version)
	obj := zobject.GetObject(&core, &alphabets, 1)

	if obj.TestAttribute(0) || obj.TestAttribute(4) {
		t.Error("attributes 0 and 4 should not be set")
	}
	if !obj.TestAttribute(2) {
		t.Error("attribute 2 should be set")
	}

	obj.SetAttribute(&core, 10)
	if !obj.TestAttribute(10) {
		t.Error("setting attribute 10 didn't take effect")
	}

	obj.ClearAttribute(&core, 10)
	if obj.TestAttribute(10) {
		t.Error("clearing attribute 10 didn't take effect")
	}
	// Clearing one attribute shouldn't disturb another.
	if !obj.TestAttribute(2) {
		t.Error("clearing attribute 10 incorrectly cleared attribute 2")
	}
}

func TestGetNextProperty(t *testing.T) {
	core := newTestCoreV3()
	alphabets := zstring.DefaultAlphabets(core.Version)
	obj := zobject.GetObject(&core, &alphabets, 1)

	first := obj.GetNextProperty(&core, 0)
	if first != 6 {
		t.Errorf("expected first property id 6, got %d", first)
	}

	second := obj.GetNextProperty(&core, 6)
	if second != 2 {
		t.Errorf("expected second property id 2, got %d", second)
	}

	last := obj.GetNextProperty(&core, 2)
	if last != 0 {
		t.Errorf("expected 0 after the last property, got %d", last)
	}
}

func TestUnlinkFromParent(t *testing.T) {
	core := newTestCoreV3()
	alphabets := zstring.DefaultAlphabets(core.Version)

	objectTableBase := uint32(core.ObjectTableBase)
	parentBase := objectTableBase + 31*2 + 1*9
	core.WriteByte(parentBase+6, 1) // parent's child = object 1

	obj := zobject.GetObject(&core, &alphabets, 1)
	obj.SetParent(&core, 2)
	obj.SetSibling(&core, 0)

	obj.Unlink(&core, &alphabets)

	parent := zobject.GetObject(&core, &alphabets, 2)
	if parent.Child != 0 {
		t.Errorf("expected parent's child link cleared, got %d", parent.Child)
	}
	if obj.Parent != 0 {
		t.Errorf("expected object's parent cleared, got %d", obj.Parent)
	}
}
