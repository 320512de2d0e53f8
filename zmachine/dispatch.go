package zmachine

import (
	"fmt"

	"github.com/inkwell-if/zvm/zobject"
)

// signed reinterprets a Z-machine word as a signed 16-bit value; almost
// every arithmetic and comparison opcode operates on signed operands.
func signed(v uint16) int16 {
	return int16(v)
}

// storeResult reads the store-variable byte following an instruction and
// writes value into it, per the opcodes marked "store" in the opcode
// tables.
func (z *ZMachine) storeResult(frame *CallStackFrame, value uint16) {
	v := z.readIncPC(frame)
	z.writeVariable(v, value, false)
}

func (z *ZMachine) object(id uint16) zobject.Object {
	return zobject.GetObject(&z.Core, &z.Alphabets, id)
}

// dispatch executes a single fully decoded instruction.
func (z *ZMachine) dispatch(opcode *Opcode) {
	frame, err := z.callStack.peek()
	if err != nil {
		panic(err)
	}

	switch opcode.operandCount {
	case OP0:
		z.dispatchOP0(frame, opcode)
	case OP1:
		z.dispatchOP1(frame, opcode)
	case OP2:
		z.dispatchOP2(frame, opcode)
	case VAR:
		// Ext-form opcodes are also decoded with operandCount == VAR (the
		// form only gives a variable-length operand list, not a separate
		// opcode-number table); dispatchVAR forwards those to dispatchEXT.
		z.dispatchVAR(frame, opcode)
	default:
		panic(fmt.Sprintf("unknown operand count %v", opcode.operandCount))
	}
}

func (z *ZMachine) dispatchOP0(frame *CallStackFrame, opcode *Opcode) {
	switch opcode.opcodeNumber {
	case 0: // rtrue
		z.doReturn(true)
	case 1: // rfalse
		z.doReturn(false)
	case 2: // print (literal string follows the opcode)
		frame.pc = z.printZString(frame.pc)
	case 3: // print_ret
		frame.pc = z.printZString(frame.pc)
		z.writeText("\n")
		z.doReturn(true)
	case 4: // nop
	case 5: // save (v1-3 branches on success; v4 stores it instead)
		z.opSave(frame, z.Version() <= 3)
	case 6: // restore
		z.opRestore(frame, z.Version() <= 3)
	case 7: // restart
		z.Core.Restart()
		z.send(Restart{})
		z.callStack = CallStack{}
		z.callStack.push(CallStackFrame{pc: uint32(z.Core.FirstInstruction), routineType: RoutineTypeFunction})
		panic(haltExecution{})
	case 8: // ret_popped
		z.ret(z.readVariable(0, false))
	case 9: // pop (v1-5) / catch (v6+, stores the call-stack depth)
		if z.Version() >= 6 {
			// we implement catch/throw without re-entrant stack unwinding
			// beyond Go's own panic/recover, so the "token" is just depth.
			z.storeResult(frame, uint16(z.callStack.depth()))
		} else {
			z.readVariable(0, false)
		}
	case 10: // quit
		z.send(Quit{})
		panic(haltExecution{})
	case 11: // new_line
		z.writeText("\n")
	case 12: // show_status (v3 only, legal to no-op elsewhere)
		z.send(z.buildStatusBar())
	case 13: // verify
		z.handleBranch(frame, z.Core.VerifyChecksum())
	case 15: // piracy - always claim genuine
		z.handleBranch(frame, true)
	default:
		panic(fmt.Sprintf("unhandled OP0 opcode %d", opcode.opcodeNumber))
	}
}

func (z *ZMachine) dispatchOP1(frame *CallStackFrame, opcode *Opcode) {
	a := opcode.operands[0].Value(z)

	switch opcode.opcodeNumber {
	case 0: // jz
		z.handleBranch(frame, a == 0)
	case 1: // get_sibling
		if a == 0 {
			z.storeResult(frame, 0)
			z.handleBranch(frame, false)
			return
		}
		sibling := z.object(a).Sibling
		z.storeResult(frame, sibling)
		z.handleBranch(frame, sibling != 0)
	case 2: // get_child
		if a == 0 {
			z.storeResult(frame, 0)
			z.handleBranch(frame, false)
			return
		}
		child := z.object(a).Child
		z.storeResult(frame, child)
		z.handleBranch(frame, child != 0)
	case 3: // get_parent
		var parent uint16
		if a != 0 {
			parent = z.object(a).Parent
		}
		z.storeResult(frame, parent)
	case 4: // get_prop_len
		z.storeResult(frame, zobject.GetPropertyLength(&z.Core, uint32(a)))
	case 5: // inc
		z.writeVariable(uint8(a), uint16(signed(z.readVariable(uint8(a), true))+1), true)
	case 6: // dec
		z.writeVariable(uint8(a), uint16(signed(z.readVariable(uint8(a), true))-1), true)
	case 7: // print_addr
		z.printZString(uint32(a))
	case 8: // call_1s
		z.call(z.packedAddress(a, true), nil, z.readIncPC(frame), true, RoutineTypeFunction)
	case 9: // remove_obj
		if a != 0 {
			obj := z.object(a)
			obj.Unlink(&z.Core, &z.Alphabets)
		}
	case 10: // print_obj
		if a != 0 {
			z.writeText(z.object(a).Name)
		}
	case 11: // ret
		z.ret(a)
	case 12: // jump (unconditional, signed offset relative to the following instruction)
		frame.pc = uint32(int64(frame.pc) + int64(signed(a)) - 2)
	case 13: // print_paddr
		z.printZString(z.packedAddress(a, false))
	case 14: // load
		z.storeResult(frame, z.readVariable(uint8(a), true))
	case 15: // not (v1-4) / call_1n (v5+)
		if z.Version() <= 4 {
			z.storeResult(frame, ^a)
		} else {
			z.call(z.packedAddress(a, true), nil, 0, false, RoutineTypeProcedure)
		}
	default:
		panic(fmt.Sprintf("unhandled OP1 opcode %d", opcode.opcodeNumber))
	}
}

func (z *ZMachine) buildStatusBar() StatusBar {
	bar := StatusBar{IsTimeBased: z.Core.StatusBarTimeBased}
	globalBase := uint32(z.Core.GlobalVariableBase)
	locationObj := z.Core.ReadHalfWord(globalBase)
	if locationObj != 0 {
		bar.RoomName = z.object(locationObj).Name
	}
	if bar.IsTimeBased {
		bar.Hours = signed(z.Core.ReadHalfWord(globalBase + 2))
		bar.Minutes = signed(z.Core.ReadHalfWord(globalBase + 4))
	} else {
		bar.Score = signed(z.Core.ReadHalfWord(globalBase + 2))
		bar.Turns = signed(z.Core.ReadHalfWord(globalBase + 4))
	}
	return bar
}
