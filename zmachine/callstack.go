package zmachine

import "fmt"

// RoutineType records how a routine was entered, since interrupt
// routines (timed input, v3 sound effects) behave differently on return
// than ordinary calls.
type RoutineType int

const (
	RoutineTypeFunction  RoutineType = iota // call_vs family: returns a value
	RoutineTypeProcedure                    // call_vn family: discards the return value
	RoutineTypeInterrupt                    // invoked by a timed-input or sound interrupt
)

// CallStackFrame is one entry of the Z-machine's routine call stack: a
// return address, local variables, and this routine's private evaluation
// stack.
type CallStackFrame struct {
	pc              uint32
	routineStack    []uint16
	locals          []uint16
	routineType     RoutineType
	numValuesPassed int
	framePointer    uint32
	storeVariable   uint8
	hasStoreVariable bool
}

func (f *CallStackFrame) push(v uint16) {
	f.routineStack = append(f.routineStack, v)
}

func (f *CallStackFrame) pop() (uint16, error) {
	if len(f.routineStack) == 0 {
		return 0, fmt.Errorf("attempt to pop from an empty routine stack")
	}
	v := f.routineStack[len(f.routineStack)-1]
	f.routineStack = f.routineStack[:len(f.routineStack)-1]
	return v, nil
}

func (f *CallStackFrame) peek() (uint16, error) {
	if len(f.routineStack) == 0 {
		return 0, fmt.Errorf("attempt to peek an empty routine stack")
	}
	return f.routineStack[len(f.routineStack)-1], nil
}

func (f *CallStackFrame) copy() CallStackFrame {
	c := CallStackFrame{
		pc:               f.pc,
		routineType:      f.routineType,
		numValuesPassed:  f.numValuesPassed,
		framePointer:     f.framePointer,
		storeVariable:    f.storeVariable,
		hasStoreVariable: f.hasStoreVariable,
		routineStack:     make([]uint16, len(f.routineStack)),
		locals:           make([]uint16, len(f.locals)),
	}
	copy(c.routineStack, f.routineStack)
	copy(c.locals, f.locals)
	return c
}

// CallStack is the full chain of active routine frames.
type CallStack struct {
	frames []CallStackFrame
}

func (s *CallStack) push(frame CallStackFrame) {
	s.frames = append(s.frames, frame)
}

func (s *CallStack) pop() (CallStackFrame, error) {
	if len(s.frames) == 0 {
		return CallStackFrame{}, fmt.Errorf("attempt to pop from an empty call stack")
	}
	frame := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return frame, nil
}

func (s *CallStack) peek() (*CallStackFrame, error) {
	if len(s.frames) == 0 {
		return nil, fmt.Errorf("attempt to peek an empty call stack")
	}
	return &s.frames[len(s.frames)-1], nil
}

func (s *CallStack) depth() int {
	return len(s.frames)
}

// copy performs a deep copy of the whole call stack, used by save_undo
// and restore_undo so a captured state can't be mutated by further
// execution.
func (s *CallStack) copy() CallStack {
	cs := CallStack{frames: make([]CallStackFrame, len(s.frames))}
	for i, f := range s.frames {
		cs.frames[i] = f.copy()
	}
	return cs
}
