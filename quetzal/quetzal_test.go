package quetzal_test

import (
	"bytes"
	"testing"

	"github.com/inkwell-if/zvm/quetzal"
)

func testIdentity() quetzal.Identity {
	return quetzal.Identity{
		Release:  42,
		Serial:   [6]byte{'9', '9', '0', '1', '0', '1'},
		Checksum: 0xbeef,
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	original := make([]uint8, 0x200)
	for i := range original {
		original[i] = uint8(i)
	}

	current := append([]uint8{}, original...)
	current[0x10] = 0xff
	current[0x11] = 0xff
	current[0x1f0] = 0x01

	frames := []quetzal.Frame{
		{ReturnPC: 0, Locals: nil, EvalStack: nil, HasStoreVariable: false},
		{
			ReturnPC:         0x4a10,
			Locals:           []uint16{1, 2, 3},
			EvalStack:        []uint16{100, 200},
			StoreVariable:    5,
			HasStoreVariable: true,
			ArgsSupplied:     2,
		},
	}

	identity := testIdentity()
	data := quetzal.Write(identity, current, original, frames, 0x1234)

	state, err := quetzal.Read(data, original, uint32(len(original)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if err := quetzal.VerifyIdentity(state.Identity, identity); err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	if state.PC != 0x1234 {
		t.Fatalf("PC = %#x, want %#x", state.PC, 0x1234)
	}
	if !bytes.Equal(state.DynamicMemory, current) {
		t.Fatalf("restored dynamic memory does not match original state")
	}
	if len(state.Frames) != len(frames) {
		t.Fatalf("got %d frames, want %d", len(state.Frames), len(frames))
	}
	for i, f := range frames {
		got := state.Frames[i]
		if got.ReturnPC != f.ReturnPC || got.HasStoreVariable != f.HasStoreVariable ||
			got.StoreVariable != f.StoreVariable || got.ArgsSupplied != f.ArgsSupplied {
			t.Fatalf("frame %d = %+v, want %+v", i, got, f)
		}
		if !equalU16(got.Locals, f.Locals) {
			t.Fatalf("frame %d locals = %v, want %v", i, got.Locals, f.Locals)
		}
		if !equalU16(got.EvalStack, f.EvalStack) {
			t.Fatalf("frame %d eval stack = %v, want %v", i, got.EvalStack, f.EvalStack)
		}
	}
}

func TestReadRejectsIdentityMismatch(t *testing.T) {
	original := make([]uint8, 0x100)
	data := quetzal.Write(testIdentity(), original, original, nil, 0)

	state, err := quetzal.Read(data, original, uint32(len(original)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	other := testIdentity()
	other.Release = 7
	if err := quetzal.VerifyIdentity(state.Identity, other); err == nil {
		t.Fatalf("expected identity mismatch error")
	}
}

func TestReadRejectsMalformedContainer(t *testing.T) {
	cases := []struct {
		name string
		data []uint8
	}{
		{"too short", []uint8{'F', 'O', 'R', 'M'}},
		{"wrong magic", append([]byte("FORM\x00\x00\x00\x04NOPE"), 0, 0, 0, 0)},
		{"missing IFZS", append([]byte("FORM\x00\x00\x00\x04XXXX"))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := quetzal.Read(tc.data, nil, 0); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestReadRejectsMissingChunks(t *testing.T) {
	// A well-formed FORM/IFZS with only an IFhd chunk is missing CMem/UMem and Stks.
	ifhd := make([]byte, 13)
	body := append([]byte("IFZSIFhd\x00\x00\x00\x0d"), ifhd...)
	data := append([]byte("FORM\x00\x00\x00"), byte(len(body)))
	data = append(data, body...)

	if _, err := quetzal.Read(data, nil, 0); err == nil {
		t.Fatalf("expected error for missing CMem/UMem and Stks chunks")
	}
}

func equalU16(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
