package zmachine

import "github.com/inkwell-if/zvm/quetzal"

// Save is sent on the output channel when the `save` opcode runs; Data is
// a complete Quetzal save file ready for the host to persist however it
// sees fit (disk, browser storage, etc).
type Save struct {
	Data []byte
}

// Restore is sent on the output channel when the `restore` opcode runs.
// The host should respond on the input channel with an InputResponse
// whose Ok/SaveData fields carry the outcome and, on success, the bytes
// of a previously saved Quetzal file.
type Restore struct{}

func (z *ZMachine) identity() quetzal.Identity {
	return quetzal.Identity{
		Release:  z.Core.ReleaseNumber,
		Serial:   z.Core.SerialNumber,
		Checksum: z.Core.FileChecksum,
	}
}

// opSave builds a Quetzal save file of the current state and asks the
// host to persist it. useBranch selects v1-3's branch-on-success
// encoding versus v4+'s store-the-result encoding.
func (z *ZMachine) opSave(frame *CallStackFrame, useBranch bool) {
	data := quetzal.Write(z.identity(), z.Core.DynamicMemory(), z.Core.OriginalDynamicMemory, framesToQuetzal(z.callStack.frames), frame.pc)
	z.send(Save{Data: data})
	resp := <-z.inputChannel

	if useBranch {
		z.handleBranch(frame, resp.Ok)
	} else {
		var v uint16
		if resp.Ok {
			v = 1
		}
		z.storeResult(frame, v)
	}
}

// opRestore asks the host for a previously saved file and, if it parses
// and matches this story's identity, replaces the running state with it.
// On any failure the machine is left untouched and the call reports
// failure in place, exactly as if save_undo-style validation had failed.
func (z *ZMachine) opRestore(frame *CallStackFrame, useBranch bool) {
	z.send(Restore{})
	resp := <-z.inputChannel

	fail := func() {
		if useBranch {
			z.handleBranch(frame, false)
		} else {
			z.storeResult(frame, 0)
		}
	}

	if !resp.Ok || len(resp.SaveData) == 0 {
		fail()
		return
	}

	state, err := quetzal.Read(resp.SaveData, z.Core.OriginalDynamicMemory, uint32(z.Core.StaticMemoryBase))
	if err != nil {
		fail()
		return
	}
	if err := quetzal.VerifyIdentity(state.Identity, z.identity()); err != nil {
		fail()
		return
	}

	copy(z.Core.DynamicMemory(), state.DynamicMemory)
	z.callStack = CallStack{frames: quetzalToFrames(state.Frames)}

	restoredFrame, err := z.callStack.peek()
	if err != nil {
		panic(err)
	}
	// IFhd's PC is the live execution point; it's independent of the
	// topmost frame's Stks-derived ReturnPC field, which a third-party
	// writer is free to leave at 0 or anything else.
	restoredFrame.pc = state.PC
	if useBranch {
		z.handleBranch(restoredFrame, true)
	} else {
		z.storeResult(restoredFrame, 2)
	}
}

// framesToQuetzal and quetzalToFrames convert between the call stack's
// own frame representation and quetzal.Frame, shared by the Quetzal
// save/restore path above and the JSON snapshot in snapshot.go. On save,
// a CallStackFrame's pc doubles as Quetzal's "return PC" for every frame
// but the innermost, and as the current execution point for the
// innermost one, which is also passed separately as IFhd's PC. On
// restore, the innermost frame's pc gets overwritten from IFhd's PC
// (see opRestore) since a third-party writer's Stks data for that frame
// carries no such guarantee.
func framesToQuetzal(frames []CallStackFrame) []quetzal.Frame {
	out := make([]quetzal.Frame, len(frames))
	for i, f := range frames {
		out[i] = quetzal.Frame{
			ReturnPC:         f.pc,
			Locals:           append([]uint16{}, f.locals...),
			EvalStack:        append([]uint16{}, f.routineStack...),
			StoreVariable:    f.storeVariable,
			HasStoreVariable: f.hasStoreVariable,
			ArgsSupplied:     f.numValuesPassed,
		}
	}
	return out
}

func quetzalToFrames(frames []quetzal.Frame) []CallStackFrame {
	out := make([]CallStackFrame, len(frames))
	for i, f := range frames {
		routineType := RoutineTypeFunction
		if !f.HasStoreVariable {
			routineType = RoutineTypeProcedure
		}
		out[i] = CallStackFrame{
			pc:               f.ReturnPC,
			locals:           append([]uint16{}, f.Locals...),
			routineStack:     append([]uint16{}, f.EvalStack...),
			routineType:      routineType,
			numValuesPassed:  f.ArgsSupplied,
			framePointer:     f.ReturnPC,
			storeVariable:    f.StoreVariable,
			hasStoreVariable: f.HasStoreVariable,
		}
	}
	return out
}
