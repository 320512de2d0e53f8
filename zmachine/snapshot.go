package zmachine

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/inkwell-if/zvm/quetzal"
)

// jsonSnapshot is the on-the-wire shape of Freeze/Thaw: a full machine
// state as plain JSON, for hosts (browser local storage, a debugger)
// that want something more introspectable than a Quetzal file. Frames
// use the same byte layout as Quetzal's Stks records, base64-encoded
// individually, so the two formats share their frame codec.
type jsonSnapshot struct {
	Memory            string   `json:"memory"`
	PC                uint32   `json:"pc"`
	Frames            []string `json:"frames"`
	RNGState          []uint64 `json:"rng_state"`
	RNGPredictable    bool     `json:"rng_predictable"`
	RNGPredictableSeq uint16   `json:"rng_predictable_seq"`
}

// Freeze captures the machine's full state as a JSON document.
func (z *ZMachine) Freeze() ([]byte, error) {
	frame, err := z.callStack.peek()
	if err != nil {
		return nil, err
	}

	frames := framesToQuetzal(z.callStack.frames)
	encodedFrames := make([]string, len(frames))
	for i, f := range frames {
		encodedFrames[i] = base64.StdEncoding.EncodeToString(quetzal.EncodeFrame(f))
	}

	s0, s1, predictable, seq := z.rng.snapshot()

	return json.Marshal(jsonSnapshot{
		Memory:            base64.StdEncoding.EncodeToString(z.Core.DynamicMemory()),
		PC:                frame.pc,
		Frames:            encodedFrames,
		RNGState:          []uint64{s0, s1},
		RNGPredictable:    predictable,
		RNGPredictableSeq: seq,
	})
}

// Thaw restores a machine's state from a snapshot produced by Freeze. The
// snapshot must have been taken from this exact story (same dynamic
// memory size); it carries no identity check of its own, unlike a
// Quetzal save file, so callers are responsible for only feeding back
// snapshots taken from the same running story.
func (z *ZMachine) Thaw(data []byte) error {
	var snap jsonSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("zmachine: invalid snapshot: %w", err)
	}

	memory, err := base64.StdEncoding.DecodeString(snap.Memory)
	if err != nil {
		return fmt.Errorf("zmachine: invalid snapshot memory: %w", err)
	}
	if len(memory) != len(z.Core.DynamicMemory()) {
		return fmt.Errorf("zmachine: snapshot memory size %d does not match story's %d", len(memory), len(z.Core.DynamicMemory()))
	}
	if len(snap.RNGState) != 2 {
		return fmt.Errorf("zmachine: invalid snapshot rng state")
	}

	frames := make([]quetzal.Frame, len(snap.Frames))
	for i, encoded := range snap.Frames {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("zmachine: invalid snapshot frame %d: %w", i, err)
		}
		f, _, err := quetzal.DecodeFrame(raw)
		if err != nil {
			return fmt.Errorf("zmachine: invalid snapshot frame %d: %w", i, err)
		}
		frames[i] = f
	}

	copy(z.Core.DynamicMemory(), memory)
	z.callStack = CallStack{frames: quetzalToFrames(frames)}
	z.rng.restore(snap.RNGState[0], snap.RNGState[1], snap.RNGPredictable, snap.RNGPredictableSeq)
	return nil
}
