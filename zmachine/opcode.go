package zmachine

// OperandType is the 2-bit tag on each operand telling the decoder how
// many bytes follow and how to resolve it to a value.
type OperandType int

// OpcodeForm is which of the four instruction forms an opcode byte uses.
type OpcodeForm int

// OperandCount groups opcodes by how many operands their form implies,
// which in turn selects which opcode-number table they're looked up in.
type OperandCount int

const (
	largeConstant OperandType = 0b00
	smallConstant OperandType = 0b01
	variable      OperandType = 0b10
	omitted       OperandType = 0b11
)

const (
	longForm  OpcodeForm = 0b00
	extForm   OpcodeForm = 0b01
	shortForm OpcodeForm = 0b10
	varForm   OpcodeForm = 0b11
)

const (
	OP0 OperandCount = iota
	OP1
	OP2
	VAR
	EXT
)

// Operand is one decoded instruction argument: either a constant or a
// reference to a variable, resolved lazily via Value.
type Operand struct {
	operandType OperandType
	value       uint16
}

// Value resolves the operand to its numeric value, reading the named
// variable (without popping the stack twice) when it's a variable operand.
func (operand *Operand) Value(z *ZMachine) uint16 {
	switch operand.operandType {
	case largeConstant, smallConstant:
		return operand.value
	case variable:
		return z.readVariable(uint8(operand.value), false)
	default:
		return 0
	}
}

// Opcode is one fully decoded instruction, ready for dispatch.
type Opcode struct {
	opcodeByte   uint8
	operandCount OperandCount
	opcodeForm   OpcodeForm
	opcodeNumber uint8
	operands     []Operand
}

func parseVariableOperands(z *ZMachine, frame *CallStackFrame, opcode *Opcode) {
	operandTypeByte := z.readIncPC(frame)
	operandTypeByteExt := uint8(0)
	maxOperands := 4

	// call_vs2 (VAR:12) and call_vn2 (VAR:26) take a second type byte,
	// allowing up to 8 operands.
	if opcode.operandCount == VAR && (opcode.opcodeNumber == 12 || opcode.opcodeNumber == 26) {
		operandTypeByteExt = z.readIncPC(frame)
		maxOperands = 8
	}

	for ix := 0; ix < maxOperands; ix++ {
		var operandType OperandType
		if ix < 4 {
			operandType = OperandType((operandTypeByte >> (2 * (3 - ix))) & 0b11)
		} else {
			operandType = OperandType((operandTypeByteExt >> (2 * (7 - ix))) & 0b11)
		}

		if operandType == omitted {
			break
		}

		switch operandType {
		case smallConstant, variable:
			opcode.operands = append(opcode.operands, Operand{operandType: operandType, value: uint16(z.readIncPC(frame))})
		case largeConstant:
			opcode.operands = append(opcode.operands, Operand{operandType: operandType, value: z.readHalfWordIncPC(frame)})
		}
	}
}

// ParseOpcode decodes the instruction at the current PC, advancing the PC
// past the opcode byte, any operand-type bytes, and the operands
// themselves, leaving it positioned at the store-variable / branch-offset
// / text bytes that follow.
func ParseOpcode(z *ZMachine) Opcode {
	frame, err := z.callStack.peek()
	if err != nil {
		panic(err)
	}

	opcodeByte := z.readIncPC(frame)
	opcode := Opcode{
		opcodeForm: OpcodeForm(opcodeByte >> 6),
		opcodeByte: opcodeByte,
	}

	switch {
	case opcodeByte == 0xbe && z.Version() >= 5:
		opcode.opcodeByte = z.readIncPC(frame)
		opcode.opcodeNumber = opcode.opcodeByte
		opcode.opcodeForm = extForm
		opcode.operandCount = VAR
		parseVariableOperands(z, frame, &opcode)

	case opcode.opcodeForm == varForm:
		opcode.opcodeNumber = opcodeByte & 0b1_1111
		opcode.operandCount = VAR
		if (opcodeByte>>5)&1 == 0 {
			opcode.operandCount = OP2
		}
		parseVariableOperands(z, frame, &opcode)

	case opcode.opcodeForm == shortForm:
		opcode.opcodeNumber = opcodeByte & 0b1111
		operandType := (opcodeByte >> 4) & 0b11

		switch operandType {
		case 0b00:
			opcode.operands = append(opcode.operands, Operand{operandType: OperandType(operandType), value: z.readHalfWordIncPC(frame)})
			opcode.operandCount = OP1
		case 0b01, 0b10:
			opcode.operands = append(opcode.operands, Operand{operandType: OperandType(operandType), value: uint16(z.readIncPC(frame))})
			opcode.operandCount = OP1
		case 0b11:
			opcode.operandCount = OP0
		}

	default: // longForm
		opcode.opcodeNumber = opcodeByte & 0b1_1111
		opcode.opcodeForm = longForm
		opcode.operandCount = OP2

		op1Type, op2Type := smallConstant, smallConstant
		if (opcodeByte>>6)&1 == 1 {
			op1Type = variable
		}
		if (opcodeByte>>5)&1 == 1 {
			op2Type = variable
		}
		for _, t := range []OperandType{op1Type, op2Type} {
			opcode.operands = append(opcode.operands, Operand{operandType: t, value: uint16(z.readIncPC(frame))})
		}
	}

	return opcode
}
