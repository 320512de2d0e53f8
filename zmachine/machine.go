// Package zmachine implements the Z-machine's frame and variable model,
// instruction decoder, opcode dispatcher, and execution loop.
package zmachine

import (
	"fmt"

	"github.com/inkwell-if/zvm/dictionary"
	"github.com/inkwell-if/zvm/zcore"
	"github.com/inkwell-if/zvm/zstring"
)

// StatusBar is the v1-3 status-line content: either a score/turns pair
// or a time-of-day pair, selected by the header's time-based flag.
type StatusBar struct {
	RoomName  string
	IsTimeBased bool
	Score     int16
	Turns     int16
	Hours     int16
	Minutes   int16
}

// Quit is sent on the output channel when the `quit` opcode executes.
type Quit struct{}

// Restart is sent on the output channel when a restart is in progress,
// so a host can reset any UI state it owns.
type Restart struct{}

// RuntimeError carries a fatal interpreter error (panic recovery) out to
// the host for display.
type RuntimeError string

// EraseWindowRequest asks the host to clear a window (-1 or -2 = both,
// 0 = lower, 1 = upper). For -1 and -2 alike the engine also unsplits
// the screen, pushing a ScreenModel with no upper window after the request.
type EraseWindowRequest int16

// StateChangeRequest reports what kind of input the engine is now
// blocked on, or that it resumed running.
type StateChangeRequest int

const (
	Running StateChangeRequest = iota
	WaitForInput
	WaitForCharacter
)

// RoutineType is defined in callstack.go; see its doc comment.

// InputResponse is what a host sends back after WaitForInput,
// WaitForCharacter, or a save/restore request: a typed line, a single
// character code, or the outcome and payload of a save-file operation.
type InputResponse struct {
	Line     string
	Char     uint8
	Ok       bool
	SaveData []byte
}

// Streams tracks which of the four Z-machine output streams are active;
// more than one may be simultaneously.
type Streams struct {
	Screen        bool
	Transcript    bool
	Memory        bool
	CommandScript bool
	MemoryStack   []MemoryStreamData
}

// MemoryStreamData is one nested redirection target for output stream 3.
type MemoryStreamData struct {
	Address uint32
	Text    []uint8
}

// ZMachine is a single running story: its memory, dictionary, object
// alphabets, screen state, call stack, and I/O channels.
type ZMachine struct {
	Core       zcore.Core
	dictionary *dictionary.Dictionary
	Alphabets  zstring.Alphabets
	screenModel ScreenModel
	streams    Streams
	callStack  CallStack
	rng        rng

	currentInstructionPC uint32
	warnedOnce           map[string]bool

	outputChannel chan<- any
	inputChannel  <-chan InputResponse

	UndoStates InMemorySaveStateCache
}

// LoadRom builds a ZMachine from a story file's raw bytes and wires it to
// the given input/output channels.
func LoadRom(storyBytes []uint8, inputChannel <-chan InputResponse, outputChannel chan<- any) *ZMachine {
	core := zcore.LoadCore(storyBytes)
	alphabets := zstring.LoadAlphabets(&core)

	z := &ZMachine{
		Core:          core,
		Alphabets:     alphabets,
		outputChannel: outputChannel,
		inputChannel:  inputChannel,
		warnedOnce:    make(map[string]bool),
		streams:       Streams{Screen: true},
		rng:           newRNG(),
	}

	z.dictionary = dictionary.Parse(&z.Core, &z.Alphabets, uint32(z.Core.DictionaryBase))

	foreground := z.screenModel.NewZMachineColor(9, true)
	background := z.screenModel.NewZMachineColor(2, false)
	z.screenModel = newScreenModel(foreground, background)

	z.callStack.push(CallStackFrame{
		pc:           uint32(z.Core.FirstInstruction),
		locals:       nil,
		routineType:  RoutineTypeFunction,
		framePointer: uint32(z.Core.FirstInstruction),
	})

	return z
}

// Version returns the story file's Z-machine version.
func (z *ZMachine) Version() uint8 {
	return z.Core.Version
}

// ObjectTableBase returns the configured base of the object table.
func (z *ZMachine) ObjectTableBase() uint16 {
	return z.Core.ObjectTableBase
}

func (z *ZMachine) warnOnce(key, format string, args ...any) {
	if z.warnedOnce[key] {
		return
	}
	z.warnedOnce[key] = true
	fmt.Printf("warning: "+format+"\n", args...)
}

func (z *ZMachine) readIncPC(frame *CallStackFrame) uint8 {
	v := z.Core.ReadByte(frame.pc)
	frame.pc++
	return v
}

func (z *ZMachine) readHalfWordIncPC(frame *CallStackFrame) uint16 {
	v := z.Core.ReadHalfWord(frame.pc)
	frame.pc += 2
	return v
}

// packedAddress expands a packed routine or string address using the
// version-dependent multiplier (and, on v6-7, the separate routine and
// string offsets from the header).
func (z *ZMachine) packedAddress(addr uint16, isRoutine bool) uint32 {
	switch {
	case z.Version() <= 3:
		return uint32(addr) * 2
	case z.Version() <= 5:
		return uint32(addr) * 4
	case z.Version() == 8:
		return uint32(addr) * 8
	default:
		offset := z.Core.StringOffset
		if isRoutine {
			offset = z.Core.RoutinesOffset
		}
		return uint32(addr)*4 + uint32(offset)*8
	}
}

// readVariable resolves variable number v: 0 is the top of the current
// frame's evaluation stack (peek or pop, per the "peek" flag that lvalue
// contexts like indirect operands need), 1-15 are locals, 16+ are globals.
func (z *ZMachine) readVariable(v uint8, peek bool) uint16 {
	frame, err := z.callStack.peek()
	if err != nil {
		panic(err)
	}

	switch {
	case v == 0:
		if peek {
			val, err := frame.peek()
			if err != nil {
				z.warnOnce("stack_underflow_peek", "%v (pc=%#x)", err, z.currentInstructionPC)
				return 0
			}
			return val
		}
		val, err := frame.pop()
		if err != nil {
			z.warnOnce("stack_underflow_pop", "%v (pc=%#x)", err, z.currentInstructionPC)
			return 0
		}
		return val
	case v <= 15:
		ix := int(v) - 1
		if ix >= len(frame.locals) {
			panic(fmt.Sprintf("read of local variable %d but routine only has %d locals", v, len(frame.locals)))
		}
		return frame.locals[ix]
	default:
		addr := uint32(z.Core.GlobalVariableBase) + 2*uint32(v-16)
		return z.Core.ReadHalfWord(addr)
	}
}

// writeVariable writes value to variable v. The seven opcodes with
// indirect variable references (inc, dec, inc_chk, dec_chk, load, store,
// pull) overwrite the top of the evaluation stack in place rather than
// pushing a new entry when v is 0; every other write (store-variable
// bytes, results of call) pushes normally.
func (z *ZMachine) writeVariable(v uint8, value uint16, indirect bool) {
	frame, err := z.callStack.peek()
	if err != nil {
		panic(err)
	}

	switch {
	case v == 0:
		if indirect {
			if _, err := frame.pop(); err != nil {
				z.warnOnce("stack_underflow_indirect_write", "%v (pc=%#x)", err, z.currentInstructionPC)
			}
		}
		frame.push(value)
	case v <= 15:
		ix := int(v) - 1
		if ix >= len(frame.locals) {
			panic(fmt.Sprintf("write of local variable %d but routine only has %d locals", v, len(frame.locals)))
		}
		frame.locals[ix] = value
	default:
		addr := uint32(z.Core.GlobalVariableBase) + 2*uint32(v-16)
		z.Core.WriteHalfWord(addr, value)
	}
}

// handleBranch reads the branch operand following an opcode and, given
// the instruction's own boolean result, either falls through, jumps to a
// new PC, or performs a function return of true/false, per the branch
// encoding's special offsets 0 and 1.
func (z *ZMachine) handleBranch(frame *CallStackFrame, result bool) {
	firstByte := z.readIncPC(frame)
	branchOnTrue := firstByte&0b1000_0000 != 0
	var offset int32

	if firstByte&0b0100_0000 != 0 {
		offset = int32(firstByte & 0b0011_1111)
	} else {
		secondByte := z.readIncPC(frame)
		combined := uint16(firstByte&0b0011_1111)<<8 | uint16(secondByte)
		if combined&0b0010_0000_0000_0000 != 0 {
			combined |= 0b1100_0000_0000_0000 // sign extend 14-bit value
		}
		offset = int32(int16(combined))
	}

	if result != branchOnTrue {
		return
	}

	switch offset {
	case 0:
		z.doReturn(false)
	case 1:
		z.doReturn(true)
	default:
		frame.pc = uint32(int64(frame.pc) + int64(offset) - 2)
	}
}

// call enters routine at packed address addr, copying suppliedArgs into
// its locals (default values from the routine header fill the rest), and
// arranging for the result to be stored in storeVariable once the routine
// returns (unless routineType is RoutineTypeProcedure, which discards it).
func (z *ZMachine) call(addr uint32, suppliedArgs []uint16, storeVariable uint8, hasStore bool, routineType RoutineType) {
	if addr == 0 {
		// Calling address 0 always "returns false" without entering a frame.
		if hasStore {
			z.writeVariable(storeVariable, 0, false)
		}
		return
	}

	numLocals := z.Core.ReadByte(addr)
	locals := make([]uint16, numLocals)

	cursor := addr + 1
	if z.Version() <= 4 {
		for i := 0; i < int(numLocals); i++ {
			locals[i] = z.Core.ReadHalfWord(cursor)
			cursor += 2
		}
	}

	for i := range locals {
		if i < len(suppliedArgs) {
			locals[i] = suppliedArgs[i]
		}
	}

	newFrame := CallStackFrame{
		pc:               cursor,
		locals:           locals,
		routineType:      routineType,
		numValuesPassed:  len(suppliedArgs),
		framePointer:     cursor,
		storeVariable:    storeVariable,
		hasStoreVariable: hasStore,
	}
	z.callStack.push(newFrame)
}

// doReturn pops the current frame and, unless it was entered as a
// procedure call (call_vn/call_vn2), stores the return value in the
// caller's designated variable.
func (z *ZMachine) doReturn(valueTrue bool) {
	var value uint16
	if valueTrue {
		value = 1
	}
	z.ret(value)
}

// ret implements the `ret`/`rtrue`/`rfalse` family: pop the current frame
// and deliver value to the caller.
func (z *ZMachine) ret(value uint16) {
	frame, err := z.callStack.pop()
	if err != nil {
		panic(err)
	}

	if z.callStack.depth() == 0 {
		// Returning from the main routine ends the story.
		z.send(Quit{})
		panic(haltExecution{})
	}

	if frame.routineType != RoutineTypeProcedure && frame.hasStoreVariable {
		z.writeVariable(frame.storeVariable, value, false)
	}
}

// haltExecution is panicked to unwind StepMachine's recover-based loop
// cleanly once the story has finished (quit or top-level return).
type haltExecution struct{}

func (z *ZMachine) send(msg any) {
	if z.outputChannel != nil {
		z.outputChannel <- msg
	}
}

// Run executes the story until it quits, restarts permanently, or hits
// an unrecoverable error. Panics from opcode handlers are caught and
// reported as RuntimeError values rather than crashing the host process.
func (z *ZMachine) Run() {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(haltExecution); ok {
				return
			}
			z.send(RuntimeError(fmt.Sprintf("%v", r)))
		}
	}()

	for {
		z.StepMachine()
	}
}

// StepMachine decodes and executes exactly one instruction.
func (z *ZMachine) StepMachine() {
	frame, err := z.callStack.peek()
	if err != nil {
		panic(err)
	}
	z.currentInstructionPC = frame.pc

	opcode := ParseOpcode(z)
	z.dispatch(&opcode)
}
