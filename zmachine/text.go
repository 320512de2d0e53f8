package zmachine

import (
	"fmt"

	"github.com/inkwell-if/zvm/zstring"
)

// TextOutput is sent on the output channel for every run of printed
// text; a host concatenates these onto whichever window is current.
type TextOutput struct {
	Text string
}

// writeText routes printed text to every currently active output
// stream: the memory stream (nested table redirection) takes priority
// over the screen and transcript, matching the "memory stream wins"
// rule for output stream 3.
func (z *ZMachine) writeText(s string) {
	if z.streams.Memory && len(z.streams.MemoryStack) > 0 {
		top := &z.streams.MemoryStack[len(z.streams.MemoryStack)-1]
		top.Text = append(top.Text, []uint8(s)...)
		return
	}

	if z.streams.Screen {
		z.send(TextOutput{Text: s})
	}
	if z.streams.Transcript {
		z.send(TextOutput{Text: s})
	}
}

// printZString decodes and emits the Z-string at addr, returning the
// byte address immediately following it.
func (z *ZMachine) printZString(addr uint32) uint32 {
	text, bytesRead := zstring.Decode(&z.Core, &z.Alphabets, addr)
	z.writeText(text)
	return addr + bytesRead
}

func (z *ZMachine) printNumber(n int16) {
	z.writeText(fmt.Sprintf("%d", n))
}

// pushMemoryStream begins redirecting output to a table in dynamic
// memory (output_stream 3); the first two bytes of the table are
// reserved for the final text length, written on pop.
func (z *ZMachine) pushMemoryStream(tableAddr uint32) {
	z.streams.Memory = true
	z.streams.MemoryStack = append(z.streams.MemoryStack, MemoryStreamData{Address: tableAddr})
}

func (z *ZMachine) popMemoryStream() {
	if len(z.streams.MemoryStack) == 0 {
		return
	}
	top := z.streams.MemoryStack[len(z.streams.MemoryStack)-1]
	z.streams.MemoryStack = z.streams.MemoryStack[:len(z.streams.MemoryStack)-1]
	if len(z.streams.MemoryStack) == 0 {
		z.streams.Memory = false
	}

	z.Core.WriteHalfWord(top.Address, uint16(len(top.Text)))
	cursor := top.Address + 2
	for _, b := range top.Text {
		z.Core.WriteByte(cursor, b)
		cursor++
	}
}
