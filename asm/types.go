package asm

import "fmt"

// Register is one of the eight general purpose 16-bit registers.
type Register uint8

const (
	R0 Register = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
)

var registerNames = [8]string{"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7"}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return fmt.Sprintf("R?%d", uint8(r))
}

var strToRegister = map[string]Register{}

func init() {
	for i, name := range registerNames {
		strToRegister[name] = Register(i)
	}
}

// ConditionCode selects one of the eight flag tests available to the
// conditional jump/call family. The numeric value is also the offset added
// to the relevant *_BASE opcode, so this order is load-bearing.
type ConditionCode uint8

const (
	CcV ConditionCode = iota
	CcNv
	CcN
	CcNn
	CcC
	CcNc
	CcZ
	CcNz
)

var conditionCodeNames = [8]string{"V", "NV", "N", "NN", "C", "NC", "Z", "NZ"}

func (cc ConditionCode) String() string {
	if int(cc) < len(conditionCodeNames) {
		return conditionCodeNames[cc]
	}
	return fmt.Sprintf("CC?%d", uint8(cc))
}

var strToConditionCode = map[string]ConditionCode{}

func init() {
	for i, name := range conditionCodeNames {
		strToConditionCode[name] = ConditionCode(i)
	}
}

// OperandKind tags the concrete shape an Operand carries. Mirrors the
// teacher's tagged-union-via-byte-constant convention (see Bytecode).
type OperandKind uint8

const (
	OpndRegister OperandKind = iota
	OpndImmediate
	OpndIndirect
	OpndIndexed
	OpndIndexedLabel
	OpndAbsAddr
	OpndLabel
	OpndPreDec
	OpndPostInc
)

// Operand is a flat tagged variant of every addressing-mode payload the
// parser can produce from source text, before an instruction's concrete
// Op-specialized form pulls the pieces it needs out of it.
type Operand struct {
	Kind   OperandKind
	Reg    Register // Register, Indirect, Indexed, IndexedLabel, PreDec, PostInc
	Imm    uint16   // Immediate, AbsAddr
	Offset int8     // Indexed
	Name   string   // IndexedLabel, Label
}

func RegOperand(r Register) Operand           { return Operand{Kind: OpndRegister, Reg: r} }
func ImmOperand(v uint16) Operand             { return Operand{Kind: OpndImmediate, Imm: v} }
func IndirectOperand(r Register) Operand      { return Operand{Kind: OpndIndirect, Reg: r} }
func AbsAddrOperand(addr uint16) Operand      { return Operand{Kind: OpndAbsAddr, Imm: addr} }
func LabelOperand(name string) Operand        { return Operand{Kind: OpndLabel, Name: name} }
func PreDecOperand(r Register) Operand        { return Operand{Kind: OpndPreDec, Reg: r} }
func PostIncOperand(r Register) Operand       { return Operand{Kind: OpndPostInc, Reg: r} }
func IndexedOperand(r Register, off int8) Operand {
	return Operand{Kind: OpndIndexed, Reg: r, Offset: off}
}
func IndexedLabelOperand(r Register, name string) Operand {
	return Operand{Kind: OpndIndexedLabel, Reg: r, Name: name}
}

func (o Operand) String() string {
	switch o.Kind {
	case OpndRegister:
		return o.Reg.String()
	case OpndImmediate:
		return fmt.Sprintf("0x%04X", o.Imm)
	case OpndIndirect:
		return fmt.Sprintf("(%s)", o.Reg)
	case OpndIndexed:
		return fmt.Sprintf("(%s, %d)", o.Reg, o.Offset)
	case OpndIndexedLabel:
		return fmt.Sprintf("(%s, %s)", o.Reg, o.Name)
	case OpndAbsAddr:
		return fmt.Sprintf("(0x%04X)", o.Imm)
	case OpndLabel:
		return o.Name
	case OpndPreDec:
		return fmt.Sprintf("-(%s)", o.Reg)
	case OpndPostInc:
		return fmt.Sprintf("(%s)+", o.Reg)
	default:
		return "?operand"
	}
}

// IsLabelLike reports whether the operand still needs symbol resolution
// (either a bare label or a label tucked inside an indexed form).
func (o Operand) IsLabelLike() bool {
	return o.Kind == OpndLabel || o.Kind == OpndIndexedLabel
}

// InstrOp tags the concrete instruction variant. Every constant here has
// exactly one case in EncodeInstruction's switch; an InstrOp with no case
// falls through to the structural "unhandled instruction opcode" error
// returned after that switch.
type InstrOp uint8

const (
	// nullary
	OpNop InstrOp = iota
	OpHalt
	OpEi
	OpDi
	OpRet
	OpReti
	OpCcf
	OpScf
	OpRcf
	OpEnter
	OpLeave
	OpNegAcc
	OpNotAcc
	OpSwapAcc
	OpPushF
	OpPopF

	// word load/store
	OpLdReg
	OpLdi
	OpLdIndirect
	OpLdAbs
	OpLdIndexed
	OpLdPreDec
	OpLdPostInc
	OpStIndirect
	OpStAbs
	OpStIndexed
	OpStPreDec
	OpStPostInc

	// byte load/store
	OpLdiB
	OpLdBIndirect
	OpLdBPreDec
	OpLdBPostInc
	OpStBIndirect
	OpStBPreDec
	OpStBPostInc

	OpLea

	// stack
	OpPush
	OpPushI
	OpPop

	// accumulator arithmetic (word)
	OpAddAcc
	OpSubAcc
	OpAndAcc
	OpOrAcc
	OpXorAcc
	OpCmpAcc
	OpAddAccI
	OpSubAccI
	OpAndAccI
	OpOrAccI
	OpXorAccI
	OpCmpAccI
	OpAdcAccI
	OpSbcAccI

	// register-register arithmetic (word)
	OpAddReg
	OpSubReg
	OpAndReg
	OpOrReg
	OpXorReg
	OpCmpReg
	OpAdcReg
	OpSbcReg

	// immediate-to-register arithmetic (word)
	OpAddIReg
	OpSubIReg
	OpAndIReg
	OpOrIReg
	OpXorIReg
	OpCmpIReg

	OpAddSp
	OpInc
	OpDec

	// accumulator arithmetic (byte)
	OpAddBAcc
	OpSubBAcc
	OpAndBAcc
	OpOrBAcc
	OpXorBAcc
	OpCmpBAcc

	// shift/rotate
	OpSra
	OpShl
	OpShr
	OpRol
	OpRor

	// bit ops
	OpBitReg
	OpSetReg
	OpResReg
	OpBitAbs
	OpSetAbs
	OpResAbs
	OpBitIndirect
	OpSetIndirect
	OpResIndirect

	// control flow
	OpJmpI
	OpJmpIndirect
	OpJrI
	OpJccI
	OpJrccI
	OpDjnz
	OpCallI
	OpCallIndirect
	OpCallccI
	OpSyscall

	// synthetic far forms
	OpCallFar
	OpCallFarVia
	OpJmpFar
	OpJmpFarVia
)

// Instruction is a flat struct carrying every field any concrete variant
// needs; Op selects which fields are meaningful, the same shape the teacher
// uses for its 8-byte Instruction{code,register,arg}.
type Instruction struct {
	Op    InstrOp
	Rd    Register
	Rs    Register
	CC    ConditionCode
	Arg   Operand // immediate / address / offset-as-label slot
	Label string  // CallFar / JmpFar target
	Via   string  // CallFarVia / JmpFarVia trampoline
	Line  int
}

// String renders an instruction the way a listing line would show it:
// mnemonic-ish opcode tag plus whichever operand fields that variant uses.
// Mirrors the teacher's Instruction.String() (compile.go), which likewise
// prints the decoded fields rather than round-tripping through source text.
func (ins Instruction) String() string {
	switch ins.Op {
	case OpNop, OpHalt, OpEi, OpDi, OpRet, OpReti, OpCcf, OpScf, OpRcf,
		OpEnter, OpLeave, OpNegAcc, OpNotAcc, OpSwapAcc, OpPushF, OpPopF:
		return fmt.Sprintf("op%d", ins.Op)
	case OpCallFar, OpJmpFar:
		return fmt.Sprintf("op%d %s", ins.Op, ins.Label)
	case OpCallFarVia, OpJmpFarVia:
		return fmt.Sprintf("op%d %s, %s", ins.Op, ins.Label, ins.Via)
	case OpJccI, OpCallccI, OpJrccI:
		return fmt.Sprintf("op%d %s, %s", ins.Op, ins.CC, ins.Arg)
	default:
		if ins.Rs != R0 || ins.Rd != R0 {
			return fmt.Sprintf("op%d %s, %s, %s", ins.Op, ins.Rd, ins.Rs, ins.Arg)
		}
		return fmt.Sprintf("op%d %s", ins.Op, ins.Arg)
	}
}

// DirectiveKind tags the closed set of assembler directives named in
// spec.md §3 — Org, Bank, Byte, Word, Define, Include, Header, Interrupt,
// plus the section push/pop pair.
type DirectiveKind uint8

const (
	DirOrg DirectiveKind = iota
	DirBank
	DirByte
	DirWord
	DirDefine
	DirInclude
	DirHeader
	DirInterrupt
	DirSectionPush
	DirSectionPop
)

// Directive carries the payload for whichever DirectiveKind it holds.
type Directive struct {
	Kind      DirectiveKind
	Addr      uint16   // Org
	Bank      uint16   // Bank
	Bytes     []Operand // Byte (each entry Immediate or Label)
	Words     []Operand // Word
	Name      string   // Define / Include / section name
	Value     Operand  // Define
	Path      string   // Include
	Header    *HeaderInfo
	Interrupts []Operand // Interrupt: up to 16 word entries (labels or immediates)
}

var directiveKindNames = [10]string{
	"org", "bank", "byte", "word", "define", "include", "header", "interrupt",
	"section_push", "section_pop",
}

func (k DirectiveKind) String() string {
	if int(k) < len(directiveKindNames) {
		return directiveKindNames[k]
	}
	return fmt.Sprintf("dir?%d", uint8(k))
}

// String renders a directive as a listing line would: its kind tag plus
// whichever payload fields that kind carries.
func (d Directive) String() string {
	switch d.Kind {
	case DirOrg:
		return fmt.Sprintf(".org 0x%04X", d.Addr)
	case DirBank:
		return fmt.Sprintf(".bank %d", d.Bank)
	case DirByte:
		return fmt.Sprintf(".byte %s", joinOperands(d.Bytes))
	case DirWord:
		return fmt.Sprintf(".word %s", joinOperands(d.Words))
	case DirDefine:
		return fmt.Sprintf(".define %s %s", d.Name, d.Value)
	case DirInclude:
		return fmt.Sprintf(".include %q", d.Path)
	case DirHeader:
		return ".header"
	case DirInterrupt:
		return fmt.Sprintf(".interrupt %s", joinOperands(d.Interrupts))
	case DirSectionPush:
		return fmt.Sprintf(".section %s", d.Name)
	case DirSectionPop:
		return ".endsection"
	default:
		return d.Kind.String()
	}
}

func joinOperands(ops []Operand) string {
	s := ""
	for i, op := range ops {
		if i > 0 {
			s += ", "
		}
		s += op.String()
	}
	return s
}

// HeaderInfo mirrors the 96-byte cartridge header record: boot-animation
// bytes, a zero-padded title and developer string, and the packed
// hardware/region/mapper bitfields.
type HeaderInfo struct {
	BootAnim      []byte
	Title         string
	Developer     string
	Version       uint8
	RomSize       uint8
	RamSize       uint8
	HardwareRev   uint8 // 2 bits
	Region        uint8 // 3 bits
	InterruptMode uint8 // 1 bit
	Mapper        uint8 // 2 bits
}

// AssemblyLine is one source line as seen by the parser: an optional label,
// an optional instruction, an optional directive, and the raw line number
// for diagnostics — mirrors GVM's debugSymMap, lifted into the AST itself.
type AssemblyLine struct {
	Line        int
	Label       string
	HasLabel    bool
	Instruction *Instruction
	Directive   *Directive
}

// Program is the parsed AST root: one assembled translation unit after
// include resolution, in source order.
type Program struct {
	Lines []AssemblyLine
}
