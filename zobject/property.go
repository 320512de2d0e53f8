package zobject

import (
	"fmt"

	"github.com/inkwell-if/zvm/zcore"
)

// Property is a decoded entry from an object's property table.
type Property struct {
	Id                   uint8
	Length               uint8
	Data                 []uint8
	PropertyHeaderLength uint8
	Address              uint32
	DataAddress          uint32
}

// GetPropertyLength works backwards from the address of a property's
// first data byte to recover its length, decoding the one or two size
// bytes immediately before it.
func GetPropertyLength(core *zcore.Core, addr uint32) uint16 {
	if addr == 0 {
		return 0 // some story files rely on this special case
	}

	prevByte := core.ReadByte(addr - 1)
	if core.Version <= 3 {
		return uint16(prevByte>>5) + 1
	}
	if prevByte&0b1000_0000 != 0 {
		length := prevByte & 0b11_1111
		if length == 0 {
			return 64
		}
		return uint16(length)
	}
	return uint16((prevByte>>6)&1) + 1
}

// GetPropertyByAddress decodes the property whose size byte(s) begin at
// propertyAddr.
func (o *Object) GetPropertyByAddress(core *zcore.Core, propertyAddr uint32) Property {
	sizeByte := core.ReadByte(propertyAddr)
	var length, id, headerLength uint8 = (sizeByte >> 5) + 1, sizeByte & 0b1_1111, 1

	if core.Version >= 4 {
		if sizeByte>>7 == 1 {
			length = core.ReadByte(propertyAddr+1) & 0b11_1111
			if length == 0 {
				length = 64
			}
			id = sizeByte & 0b11_1111
			headerLength = 2
		} else {
			length = ((sizeByte >> 6) & 1) + 1
			id = sizeByte & 0b11_1111
		}
	}

	dataAddress := propertyAddr + uint32(headerLength)

	return Property{
		Id:                   id,
		Length:               length,
		Data:                 core.ReadSlice(dataAddress, dataAddress+uint32(length)),
		PropertyHeaderLength: headerLength,
		Address:              propertyAddr,
		DataAddress:          dataAddress,
	}
}

func (o *Object) propertyTableStart(core *zcore.Core) uint32 {
	nameLength := core.ReadByte(uint32(o.PropertyPointer))
	return uint32(o.PropertyPointer) + 1 + uint32(nameLength)*2
}

// GetProperty walks the object's property table (properties appear in
// descending id order, terminated by a zero size byte) and returns the
// matching entry, or the table's default-property fallback if absent.
func (o *Object) GetProperty(core *zcore.Core, propertyId uint8) Property {
	currentPtr := o.propertyTableStart(core)

	for core.ReadByte(currentPtr) != 0 {
		property := o.GetPropertyByAddress(core, currentPtr)
		if property.Id == propertyId {
			return property
		}
		if property.Id < propertyId {
			break // properties are descending; none lower can match
		}
		currentPtr += uint32(property.Length) + uint32(property.PropertyHeaderLength)
	}

	propertyAddress := uint32(core.ObjectTableBase) + 2*uint32(propertyId-1)
	return Property{
		Id:   propertyId,
		Data: core.ReadSlice(propertyAddress, propertyAddress+2),
	}
}

// SetProperty overwrites the value of an existing 1- or 2-byte property.
// Setting a property the object doesn't have is a story-file error.
func (o *Object) SetProperty(core *zcore.Core, propertyId uint8, value uint16) {
	currentPtr := o.propertyTableStart(core)

	for core.ReadByte(currentPtr) != 0 {
		property := o.GetPropertyByAddress(core, currentPtr)

		if property.Id == propertyId {
			switch property.Length {
			case 1:
				core.WriteByte(property.DataAddress, uint8(value))
			case 2:
				core.WriteHalfWord(property.DataAddress, value)
			default:
				panic(fmt.Sprintf("invalid property length %d, can't set value", property.Length))
			}
			return
		}

		currentPtr += uint32(property.Length) + uint32(property.PropertyHeaderLength)
	}

	panic(fmtInvalidProperty(o.Id, propertyId))
}

// GetNextProperty implements get_next_prop: propertyId 0 returns the
// first property's id (or 0 if the object has none); otherwise it
// returns the id of the property following propertyId.
func (o *Object) GetNextProperty(core *zcore.Core, propertyId uint8) uint8 {
	if propertyId == 0 {
		currentPtr := o.propertyTableStart(core)
		if core.ReadByte(currentPtr) == 0 {
			return 0
		}
		return o.GetPropertyByAddress(core, currentPtr).Id
	}

	property := o.GetProperty(core, propertyId)
	if property.DataAddress == 0 {
		panic(fmt.Sprintf("can't call get_next_prop with invalid property id (object %d, prop %d)", o.Id, propertyId))
	}

	nextPtr := property.DataAddress + uint32(property.Length)
	if core.ReadByte(nextPtr) == 0 {
		return 0
	}
	return o.GetPropertyByAddress(core, nextPtr).Id
}
