// Package zobject implements the Z-machine object tree: the parent/
// sibling/child forest, attribute flags, and property tables attached to
// each object.
package zobject

import (
	"encoding/binary"
	"fmt"

	"github.com/inkwell-if/zvm/zcore"
	"github.com/inkwell-if/zvm/zstring"
)

// Object is a decoded view of one entry in the object table: its tree
// links, attribute flags, and a pointer into its property table.
type Object struct {
	BaseAddress     uint32
	Id              uint16
	Name            string
	Attributes      uint64 // bytes 0-3 valid in all versions, 4-5 only in v4+
	Parent          uint16 // uint8 on v1-3
	Sibling         uint16 // uint8 on v1-3
	Child           uint16 // uint8 on v1-3
	PropertyPointer uint16
}

// GetObject decodes object objId from the story's object table. Object 0
// is a sentinel meaning "no object" and is never valid to fetch.
func GetObject(core *zcore.Core, alphabets *zstring.Alphabets, objId uint16) Object {
	if objId == 0 {
		panic("can't get object 0, it doesn't exist")
	}

	if core.Version >= 4 {
		objectBase := uint32(core.ObjectTableBase) + 63*2 + uint32(objId-1)*14
		propertyPtr := core.ReadHalfWord(objectBase + 12)
		nameLength := core.ReadByte(uint32(propertyPtr))
		name := ""
		if nameLength > 0 {
			name, _ = zstring.Decode(core, alphabets, uint32(propertyPtr)+1)
		}

		attrBytes := core.ReadSlice(objectBase, objectBase+8)
		attributes := (binary.BigEndian.Uint64(attrBytes) >> 16) << 16

		return Object{
			Id:              objId,
			Name:            name,
			Attributes:      attributes,
			Parent:          core.ReadHalfWord(objectBase + 6),
			Sibling:         core.ReadHalfWord(objectBase + 8),
			Child:           core.ReadHalfWord(objectBase + 10),
			PropertyPointer: propertyPtr,
			BaseAddress:     objectBase,
		}
	}

	objectBase := uint32(core.ObjectTableBase) + 31*2 + uint32(objId-1)*9
	propertyPtr := core.ReadHalfWord(objectBase + 7)
	nameLength := core.ReadByte(uint32(propertyPtr))
	name := ""
	if nameLength > 0 {
		name, _ = zstring.Decode(core, alphabets, uint32(propertyPtr)+1)
	}

	attrBytes := core.ReadSlice(objectBase, objectBase+4)
	attributes := uint64(binary.BigEndian.Uint32(attrBytes)) << 32

	return Object{
		Id:              objId,
		Name:            name,
		Attributes:      attributes,
		Parent:          uint16(core.ReadByte(objectBase + 4)),
		Sibling:         uint16(core.ReadByte(objectBase + 5)),
		Child:           uint16(core.ReadByte(objectBase + 6)),
		PropertyPointer: propertyPtr,
		BaseAddress:     objectBase,
	}
}

// TestAttribute reports whether attribute n is set, numbered from the
// most significant bit (attribute 0 is the top bit of byte 0).
func (o *Object) TestAttribute(attribute uint16) bool {
	mask := uint64(1) << (63 - attribute)
	return o.Attributes&mask == mask
}

func (o *Object) writeAttributes(core *zcore.Core) {
	core.WriteByte(o.BaseAddress, uint8(o.Attributes>>56))
	core.WriteByte(o.BaseAddress+1, uint8(o.Attributes>>48))
	core.WriteByte(o.BaseAddress+2, uint8(o.Attributes>>40))
	core.WriteByte(o.BaseAddress+3, uint8(o.Attributes>>32))
	if core.Version >= 4 {
		core.WriteByte(o.BaseAddress+4, uint8(o.Attributes>>24))
		core.WriteByte(o.BaseAddress+5, uint8(o.Attributes>>16))
	}
}

// SetAttribute sets attribute n and writes the change back to the story.
func (o *Object) SetAttribute(core *zcore.Core, attribute uint16) {
	o.Attributes |= uint64(1) << (63 - attribute)
	o.writeAttributes(core)
}

// ClearAttribute clears attribute n and writes the change back to the story.
func (o *Object) ClearAttribute(core *zcore.Core, attribute uint16) {
	o.Attributes &^= uint64(1) << (63 - attribute)
	o.writeAttributes(core)
}

// SetParent rewrites this object's parent link.
func (o *Object) SetParent(core *zcore.Core, parent uint16) {
	if core.Version >= 4 {
		core.WriteHalfWord(o.BaseAddress+6, parent)
	} else {
		core.WriteByte(o.BaseAddress+4, uint8(parent))
	}
	o.Parent = parent
}

// SetSibling rewrites this object's sibling link.
func (o *Object) SetSibling(core *zcore.Core, sibling uint16) {
	if core.Version >= 4 {
		core.WriteHalfWord(o.BaseAddress+8, sibling)
	} else {
		core.WriteByte(o.BaseAddress+5, uint8(sibling))
	}
	o.Sibling = sibling
}

// SetChild rewrites this object's child link.
func (o *Object) SetChild(core *zcore.Core, child uint16) {
	if core.Version >= 4 {
		core.WriteHalfWord(o.BaseAddress+10, child)
	} else {
		core.WriteByte(o.BaseAddress+6, uint8(child))
	}
	o.Child = child
}

// Unlink detaches o from its parent's child list, relinking the parent's
// child pointer or the preceding sibling as needed. Required by the
// `remove_obj` opcode before re-parenting the object.
func (o *Object) Unlink(core *zcore.Core, alphabets *zstring.Alphabets) {
	if o.Parent == 0 {
		return
	}

	parent := GetObject(core, alphabets, o.Parent)
	if parent.Child == o.Id {
		parent.SetChild(core, o.Sibling)
	} else {
		sibling := GetObject(core, alphabets, parent.Child)
		for sibling.Sibling != o.Id {
			sibling = GetObject(core, alphabets, sibling.Sibling)
		}
		sibling.SetSibling(core, o.Sibling)
	}

	o.SetParent(core, 0)
	o.SetSibling(core, 0)
}

// fmtInvalidProperty is shared by property accessors below for a
// consistent panic message.
func fmtInvalidProperty(objId uint16, propertyId uint8) string {
	return fmt.Sprintf("invalid property (%d) requested for object (%d)", propertyId, objId)
}
