package zmachine

// undoState is one captured snapshot for save_undo/restore_undo: a copy
// of dynamic memory, the full call stack, and the RNG state at the
// moment of capture.
type undoState struct {
	dynamicMemory []uint8
	callStack     CallStack
	rngState0     uint64
	rngState1     uint64
	rngPredictable bool
	rngPredictableSeq uint16
}

// InMemorySaveStateCache holds the single most recent save_undo snapshot.
// The standard only requires one level of undo; stories that call
// save_undo repeatedly simply overwrite the previous slot.
type InMemorySaveStateCache struct {
	state *undoState
}

func (z *ZMachine) saveUndo() bool {
	s0, s1, pred, seq := z.rng.snapshot()
	dyn := make([]uint8, len(z.Core.DynamicMemory()))
	copy(dyn, z.Core.DynamicMemory())

	z.UndoStates.state = &undoState{
		dynamicMemory:     dyn,
		callStack:         z.callStack.copy(),
		rngState0:         s0,
		rngState1:         s1,
		rngPredictable:    pred,
		rngPredictableSeq: seq,
	}
	return true
}

func (z *ZMachine) restoreUndo() bool {
	if z.UndoStates.state == nil {
		return false
	}
	s := z.UndoStates.state
	copy(z.Core.DynamicMemory(), s.dynamicMemory)
	z.callStack = s.callStack.copy()
	z.rng.restore(s.rngState0, s.rngState1, s.rngPredictable, s.rngPredictableSeq)
	return true
}
