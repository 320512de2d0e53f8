package zmachine

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/inkwell-if/zvm/dictionary"
	"github.com/inkwell-if/zvm/zstring"
	"github.com/inkwell-if/zvm/ztable"
)

func (z *ZMachine) dispatchOP2(frame *CallStackFrame, opcode *Opcode) {
	a := opcode.operands[0].Value(z)
	b := opcode.operands[1].Value(z)

	switch opcode.opcodeNumber {
	case 1: // je - true if any further operand equals the first
		branch := a == b
		for _, extra := range opcode.operands[2:] {
			if a == extra.Value(z) {
				branch = true
			}
		}
		z.handleBranch(frame, branch)
	case 2: // jl
		z.handleBranch(frame, signed(a) < signed(b))
	case 3: // jg
		z.handleBranch(frame, signed(a) > signed(b))
	case 4: // dec_chk
		v := uint8(a)
		newValue := signed(z.readVariable(v, true)) - 1
		z.writeVariable(v, uint16(newValue), true)
		z.handleBranch(frame, newValue < signed(b))
	case 5: // inc_chk
		v := uint8(a)
		newValue := signed(z.readVariable(v, true)) + 1
		z.writeVariable(v, uint16(newValue), true)
		z.handleBranch(frame, newValue > signed(b))
	case 6: // jin
		var parent uint16
		if a != 0 {
			parent = z.object(a).Parent
		}
		z.handleBranch(frame, parent == b)
	case 7: // test
		z.handleBranch(frame, a&b == b)
	case 8: // or
		z.storeResult(frame, a|b)
	case 9: // and
		z.storeResult(frame, a&b)
	case 10: // test_attr
		obj := z.object(a)
		z.handleBranch(frame, obj.TestAttribute(b))
	case 11: // set_attr
		obj := z.object(a)
		obj.SetAttribute(&z.Core, b)
	case 12: // clear_attr
		obj := z.object(a)
		obj.ClearAttribute(&z.Core, b)
	case 13: // store - indirect: variable 0 overwrites the stack top in place
		z.writeVariable(uint8(a), b, true)
	case 14: // insert_obj
		z.insertObject(a, b)
	case 15: // loadw
		z.storeResult(frame, z.Core.ReadHalfWord(uint32(a)+2*uint32(b)))
	case 16: // loadb
		z.storeResult(frame, uint16(z.Core.ReadByte(uint32(a)+uint32(b))))
	case 17: // get_prop
		obj := z.object(a)
		prop := obj.GetProperty(&z.Core, uint8(b))
		var value uint16
		switch len(prop.Data) {
		case 1:
			value = uint16(prop.Data[0])
		case 2:
			value = binary.BigEndian.Uint16(prop.Data)
		default:
			panic(fmt.Sprintf("get_prop on property longer than 2 bytes (object %d, prop %d)", a, b))
		}
		z.storeResult(frame, value)
	case 18: // get_prop_addr
		obj := z.object(a)
		prop := obj.GetProperty(&z.Core, uint8(b))
		z.storeResult(frame, uint16(prop.DataAddress))
	case 19: // get_next_prop
		obj := z.object(a)
		z.storeResult(frame, uint16(obj.GetNextProperty(&z.Core, uint8(b))))
	case 20: // add
		z.storeResult(frame, uint16(signed(a)+signed(b)))
	case 21: // sub
		z.storeResult(frame, uint16(signed(a)-signed(b)))
	case 22: // mul
		z.storeResult(frame, uint16(signed(a)*signed(b)))
	case 23: // div
		if signed(b) == 0 {
			panic("division by zero")
		}
		z.storeResult(frame, uint16(signed(a)/signed(b)))
	case 24: // mod
		if signed(b) == 0 {
			panic("division by zero in mod")
		}
		z.storeResult(frame, uint16(signed(a)%signed(b)))
	case 25: // call_2s
		addr := z.packedAddress(a, true)
		store := z.readIncPC(frame)
		z.call(addr, []uint16{b}, store, true, RoutineTypeFunction)
	case 26: // call_2n
		addr := z.packedAddress(a, true)
		z.call(addr, []uint16{b}, 0, false, RoutineTypeProcedure)
	case 27: // set_colour
		z.screenModel.LowerWindowForeground = z.screenModel.NewZMachineColor(a, true)
		z.screenModel.LowerWindowBackground = z.screenModel.NewZMachineColor(b, false)
	case 28: // throw - unwind to the frame identified by the call-stack depth token
		for uint16(z.callStack.depth()) > b {
			if _, err := z.callStack.pop(); err != nil {
				panic(err)
			}
		}
		z.ret(a)
	default:
		panic(fmt.Sprintf("unhandled OP2 opcode %d", opcode.opcodeNumber))
	}
}

// insertObject implements insert_obj: detach obj from wherever it
// currently sits in the tree and make it the first child of newParent.
func (z *ZMachine) insertObject(objID, newParent uint16) {
	if objID == 0 {
		return
	}
	obj := z.object(objID)
	if obj.Parent == newParent && newParent != 0 && z.object(newParent).Child == objID {
		return
	}

	obj.Unlink(&z.Core, &z.Alphabets)
	if newParent == 0 {
		return
	}

	dest := z.object(newParent)
	obj.SetSibling(&z.Core, dest.Child)
	obj.SetParent(&z.Core, newParent)
	dest.SetChild(&z.Core, obj.Id)
}

func (z *ZMachine) dispatchVAR(frame *CallStackFrame, opcode *Opcode) {
	if opcode.opcodeForm == extForm {
		z.dispatchEXT(frame, opcode)
		return
	}

	operand := func(i int) uint16 { return opcode.operands[i].Value(z) }

	switch opcode.opcodeNumber {
	case 0: // call / call_vs
		addr := z.packedAddress(operand(0), true)
		args := z.varArgs(opcode, 1)
		store := z.readIncPC(frame)
		z.call(addr, args, store, true, RoutineTypeFunction)
	case 1: // storew
		z.Core.WriteHalfWord(uint32(operand(0))+2*uint32(operand(1)), operand(2))
	case 2: // storeb
		z.Core.WriteByte(uint32(operand(0))+uint32(operand(1)), uint8(operand(2)))
	case 3: // put_prop
		obj := z.object(operand(0))
		obj.SetProperty(&z.Core, uint8(operand(1)), operand(2))
	case 4: // sread / aread
		z.opRead(frame, opcode)
	case 5: // print_char
		if chr := operand(0); chr != 0 {
			z.writeText(string(rune(chr)))
		}
	case 6: // print_num
		z.printNumber(signed(operand(0)))
	case 7: // random
		z.storeResult(frame, z.rng.next(signed(operand(0))))
	case 8: // push
		frame.push(operand(0))
	case 9: // pull - indirect: variable 0 is popped in place, not via push/pop
		v, err := frame.pop()
		if err != nil {
			panic(err)
		}
		z.writeVariable(uint8(operand(0)), v, true)
	case 10: // split_window
		z.screenModel.UpperWindowHeight = int(signed(operand(0)))
		z.send(z.screenModel)
	case 11: // set_window
		z.screenModel.LowerWindowActive = operand(0) == 0
		z.send(z.screenModel)
	case 12: // call_vs2
		addr := z.packedAddress(operand(0), true)
		args := z.varArgs(opcode, 1)
		store := z.readIncPC(frame)
		z.call(addr, args, store, true, RoutineTypeFunction)
	case 13: // erase_window
		window := signed(operand(0))
		if window == -1 || window == -2 {
			z.screenModel.LowerWindowActive = true
			z.screenModel.UpperWindowHeight = 0
		}
		z.send(EraseWindowRequest(window))
		z.send(z.screenModel)
	case 14: // erase_line - only "erase to end of line" (value 1) is defined;
		// this host repaints whole rows on every screen-model push, so
		// there's no separate erase primitive to drive.
	case 15: // set_cursor
		if !z.screenModel.LowerWindowActive {
			z.screenModel.UpperWindowCursorY = int(operand(0))
			z.screenModel.UpperWindowCursorX = int(operand(1))
			z.send(z.screenModel)
		}
	case 16: // get_cursor
		addr := uint32(operand(0))
		row, col := uint16(0), uint16(0)
		if !z.screenModel.LowerWindowActive {
			row = uint16(z.screenModel.UpperWindowCursorY)
			col = uint16(z.screenModel.UpperWindowCursorX)
		}
		z.Core.WriteHalfWord(addr, row)
		z.Core.WriteHalfWord(addr+2, col)
	case 17: // set_text_style
		style := TextStyle(operand(0))
		if z.screenModel.LowerWindowActive {
			z.screenModel.LowerWindowTextStyle = style
		} else {
			z.screenModel.UpperWindowTextStyle = style
		}
		z.send(z.screenModel)
	case 18: // buffer_mode - no-op, output is never line-buffered by this host
	case 19: // output_stream
		stream := signed(operand(0))
		switch stream {
		case 1, -1:
			z.streams.Screen = stream > 0
		case 2, -2:
			z.streams.Transcript = stream > 0
		case 3:
			z.pushMemoryStream(uint32(operand(1)))
		case -3:
			z.popMemoryStream()
		case 4, -4:
			z.streams.CommandScript = stream > 0
		}
	case 20: // input_stream - reading commands back from a script file
		// isn't supported by this host; legal to ignore.
	case 21: // sound_effect - no sound output in this host, per Non-goals.
	case 22: // read_char
		z.opReadChar(frame)
	case 23: // scan_table
		form := uint16(0x82)
		if len(opcode.operands) > 3 {
			form = operand(3)
		}
		result := ztable.ScanTable(&z.Core, operand(0), uint32(operand(1)), operand(2), form)
		z.storeResult(frame, uint16(result))
		z.handleBranch(frame, result != 0)
	case 24: // not
		z.storeResult(frame, ^operand(0))
	case 25: // call_vn
		addr := z.packedAddress(operand(0), true)
		z.call(addr, z.varArgs(opcode, 1), 0, false, RoutineTypeProcedure)
	case 26: // call_vn2
		addr := z.packedAddress(operand(0), true)
		z.call(addr, z.varArgs(opcode, 1), 0, false, RoutineTypeProcedure)
	case 27: // tokenise
		dict := z.dictionary
		leaveBlank := false
		if len(opcode.operands) > 2 {
			dict = dictionary.Parse(&z.Core, &z.Alphabets, uint32(operand(2)))
		}
		if len(opcode.operands) > 3 {
			leaveBlank = operand(3) != 0
		}
		dictionary.Tokenise(&z.Core, &z.Alphabets, dict, uint32(operand(0)), uint32(operand(1)), leaveBlank)
	case 28: // encode_text
		textBuf := uint32(operand(0))
		length := operand(1)
		from := textBuf + uint32(operand(2))
		codedBuf := uint32(operand(3))

		raw := make([]byte, length)
		for i := range raw {
			raw[i] = z.Core.ReadByte(from + uint32(i))
		}
		encoded := zstring.Encode(&z.Alphabets, z.Version(), string(raw))
		for i, b := range encoded {
			z.Core.WriteByte(codedBuf+uint32(i), b)
		}
	case 29: // copy_table
		ztable.CopyTable(&z.Core, uint32(operand(0)), uint32(operand(1)), signed(operand(2)))
	case 30: // print_table
		width := operand(1)
		height := uint16(1)
		skip := uint16(0)
		if len(opcode.operands) > 2 {
			height = operand(2)
		}
		if len(opcode.operands) > 3 {
			skip = operand(3)
		}
		z.writeText(ztable.PrintTable(&z.Core, uint32(operand(0)), width, height, skip))
	case 31: // check_arg_count
		z.handleBranch(frame, operand(0) <= uint16(frame.numValuesPassed))
	default:
		panic(fmt.Sprintf("unhandled VAR opcode %d", opcode.opcodeNumber))
	}
}

// varArgs resolves every operand from index start onward, the supplied
// argument list for a call-family opcode.
func (z *ZMachine) varArgs(opcode *Opcode, start int) []uint16 {
	if start >= len(opcode.operands) {
		return nil
	}
	args := make([]uint16, 0, len(opcode.operands)-start)
	for _, op := range opcode.operands[start:] {
		args = append(args, op.Value(z))
	}
	return args
}

func (z *ZMachine) dispatchEXT(frame *CallStackFrame, opcode *Opcode) {
	operand := func(i int) uint16 { return opcode.operands[i].Value(z) }

	switch opcode.opcodeNumber {
	case 0x00: // save (v5+, table form unsupported: always a full save)
		z.opSave(frame, false)
	case 0x01: // restore
		z.opRestore(frame, false)
	case 0x02: // log_shift
		num := operand(0)
		places := signed(operand(1))
		var result uint16
		if places >= 0 {
			result = num << uint16(places)
		} else {
			result = num >> uint16(-places)
		}
		z.storeResult(frame, result)
	case 0x03: // art_shift
		num := signed(operand(0))
		places := signed(operand(1))
		var result int16
		if places >= 0 {
			result = num << uint16(places)
		} else {
			result = num >> uint16(-places)
		}
		z.storeResult(frame, uint16(result))
	case 0x09: // save_undo
		ok := z.saveUndo()
		var v uint16
		if ok {
			v = 1
		}
		z.storeResult(frame, v)
	case 0x0a: // restore_undo
		var v uint16
		if z.restoreUndo() {
			v = 2
		}
		topFrame, err := z.callStack.peek()
		if err != nil {
			panic(err)
		}
		z.storeResult(topFrame, v)
	case 0x0b: // print_unicode
		z.writeText(string(rune(operand(0))))
	case 0x0c: // check_unicode
		var result uint16
		if operand(0) != 0 {
			result = 0b11
		}
		z.storeResult(frame, result)
	case 0x0d: // set_true_colour - colour is not rendered by this host
	default:
		panic(fmt.Sprintf("unhandled EXT opcode %#x", opcode.opcodeNumber))
	}
}

// opRead implements sread/aread: optionally refreshes the status bar,
// blocks for a line of input, lowercases and stores it in the text
// buffer, and tokenises it into the parse buffer.
func (z *ZMachine) opRead(frame *CallStackFrame, opcode *Opcode) {
	if z.Version() <= 3 {
		z.send(z.buildStatusBar())
	}

	z.send(WaitForInput)
	resp := <-z.inputChannel

	textBufferAddr := uint32(opcode.operands[0].Value(z))
	rawText := []byte(strings.ToLower(resp.Line))

	bufferSize := uint32(z.Core.ReadByte(textBufferAddr))
	textStart := textBufferAddr + 1
	if z.Version() >= 5 {
		existing := uint32(z.Core.ReadByte(textStart))
		textStart += 1 + existing
	}

	n := 0
	for n < len(rawText) && uint32(n) < bufferSize {
		ch := rawText[n]
		if ch < 32 || ch > 126 {
			ch = ' '
		}
		z.Core.WriteByte(textStart+uint32(n), ch)
		n++
	}
	z.Core.WriteByte(textStart+uint32(n), 0)

	if z.Version() >= 5 {
		z.Core.WriteByte(textBufferAddr+1, uint8(n))
	}

	if len(opcode.operands) > 1 {
		if parseBufferAddr := uint32(opcode.operands[1].Value(z)); parseBufferAddr != 0 {
			dictionary.Tokenise(&z.Core, &z.Alphabets, z.dictionary, textBufferAddr, parseBufferAddr, false)
		}
	}

	if z.Version() >= 5 {
		z.storeResult(frame, 13)
	}
}

func (z *ZMachine) opReadChar(frame *CallStackFrame) {
	z.send(WaitForCharacter)
	resp := <-z.inputChannel
	z.storeResult(frame, uint16(resp.Char))
}
