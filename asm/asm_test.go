package asm

import (
	"bytes"
	"strings"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func assembleSrc(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Assemble([]byte(src), AssembleOptions{Reader: MapReader{}, Path: "main.asm"})
	assert(t, err == nil, "unexpected error: %v", err)
	return res
}

func assembleWithOpts(t *testing.T, src string, opts AssembleOptions) *Result {
	t.Helper()
	if opts.Reader == nil {
		opts.Reader = MapReader{}
	}
	if opts.Path == "" {
		opts.Path = "main.asm"
	}
	res, err := Assemble([]byte(src), opts)
	assert(t, err == nil, "unexpected error: %v", err)
	return res
}

func TestNopEncodesToZeroByte(t *testing.T) {
	res := assembleSrc(t, "NOP\n")
	assert(t, res.ROM[0] == 0x00, "expected NOP to encode as 0x00, got 0x%02X", res.ROM[0])
}

func TestLdiEncodesRegisterAndImmediate(t *testing.T) {
	res := assembleSrc(t, "LDI R3, 0x1234\n")
	want := []byte{byte(opLdiBase + 3), 0x34, 0x12}
	assert(t, bytes.Equal(res.ROM[:3], want), "got % X want % X", res.ROM[:3], want)
}

func TestStAbsoluteAddressing(t *testing.T) {
	res := assembleSrc(t, "ST (0x4321), R2\n")
	want := []byte{byte(opStAbsBase + 2), 0x21, 0x43}
	assert(t, bytes.Equal(res.ROM[:3], want), "got % X want % X", res.ROM[:3], want)
}

func TestLabelResolutionAndJump(t *testing.T) {
	res := assembleSrc(t, "start:\n  JMP start\n")
	want := []byte{opJmpImm, 0x00, 0x00}
	assert(t, bytes.Equal(res.ROM[:3], want), "got % X want % X", res.ROM[:3], want)
}

func TestBankDirectiveSwitchesPhysicalWindow(t *testing.T) {
	res := assembleSrc(t, ".bank 1\nfar_label:\n  NOP\n")
	assert(t, res.ROM[BankSize] == 0x00, "expected NOP at start of bank 1's physical region")
}

func TestIncludeResolvesAgainstInMemoryReader(t *testing.T) {
	reader := MapReader{
		"main.asm": ".include \"sub.asm\"\nNOP\n",
		"sub.asm":  "HALT\n",
	}
	res, err := Assemble([]byte(reader["main.asm"]), AssembleOptions{Reader: reader, Path: "main.asm"})
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, res.ROM[0] == opHalt, "expected included HALT first, got 0x%02X", res.ROM[0])
	assert(t, res.ROM[1] == opNop, "expected NOP second, got 0x%02X", res.ROM[1])
}

func TestCircularIncludeIsRejected(t *testing.T) {
	reader := MapReader{
		"a.asm": ".include \"b.asm\"\n",
		"b.asm": ".include \"a.asm\"\n",
	}
	_, err := Assemble([]byte(reader["a.asm"]), AssembleOptions{Reader: reader, Path: "a.asm"})
	assert(t, err != nil, "expected circular include to fail")
	ae, ok := err.(*AssemblyError)
	assert(t, ok, "expected *AssemblyError, got %T", err)
	assert(t, ae.Kind == KindCircularInclude, "expected CircularIncludeError, got %s", ae.Kind)
}

func TestDuplicateLabelIsSemanticError(t *testing.T) {
	_, err := Assemble([]byte("a:\n NOP\na:\n NOP\n"), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected duplicate label to fail")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindSemantic, "expected SemanticError, got %s", ae.Kind)
}

func TestUnknownMnemonicIsSyntaxError(t *testing.T) {
	_, err := Assemble([]byte("FROB R1, R2\n"), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected unknown mnemonic to fail")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindSyntax, "expected SyntaxError, got %s", ae.Kind)
}

func TestFinalImageIsPaddedToWholeBanksWithFiller(t *testing.T) {
	res := assembleSrc(t, "NOP\n")
	assert(t, len(res.ROM) == 2*BankSize, "expected minimum 2-bank image, got %d bytes", len(res.ROM))
	assert(t, res.ROM[len(res.ROM)-1] == padFiller, "expected trailing filler byte 0xFF")
}

func TestOrgForwardGapIsZeroFilled(t *testing.T) {
	res := assembleSrc(t, ".byte 0xAB\n.org 0x0010\n.byte 0xCD\n")
	assert(t, res.ROM[0] == 0xAB, "expected first byte 0xAB, got 0x%02X", res.ROM[0])
	for i := 1; i < 0x10; i++ {
		assert(t, res.ROM[i] == 0x00, "expected .org gap byte %d to be 0x00, got 0x%02X", i, res.ROM[i])
	}
	assert(t, res.ROM[0x10] == 0xCD, "expected 0xCD at 0x10, got 0x%02X", res.ROM[0x10])
}

func TestDefineConstantSubstitution(t *testing.T) {
	res := assembleSrc(t, ".define SCORE 0x0042\nLDI R0, SCORE\n")
	want := []byte{byte(opLdiBase + 0), 0x42, 0x00}
	assert(t, bytes.Equal(res.ROM[:3], want), "got % X want % X", res.ROM[:3], want)
}

func TestByteStringLiteralExpandsToCharacters(t *testing.T) {
	res := assembleSrc(t, ".byte \"AB\"\n")
	assert(t, res.ROM[0] == 'A' && res.ROM[1] == 'B', "expected 'A','B', got %q %q", res.ROM[0], res.ROM[1])
}

func TestCallFarExpandsToScratchLoadsAndSyscall(t *testing.T) {
	src := ".bank 0\n  CALL.FAR far_target\n.bank 1\nfar_target:\n  NOP\n"
	res := assembleSrc(t, src)
	// LDI R4,<bank>; LDI R5,<addr>; SYSCALL syscallCallFar
	assert(t, res.ROM[0] == byte(opLdiBase+int(farCallScratchBank)), "expected bank scratch load")
	assert(t, res.ROM[3] == byte(opLdiBase+int(farCallScratchAddr)), "expected addr scratch load")
	assert(t, res.ROM[6] == opSyscall && res.ROM[7] == syscallCallFar, "expected SYSCALL CALL.far id")
}

func TestCallFarToBankZeroIsRejected(t *testing.T) {
	src := "far_target:\n  NOP\n  CALL.FAR far_target\n"
	_, err := Assemble([]byte(src), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected CALL.FAR to bank 0 to fail")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindSemantic, "expected SemanticError, got %s", ae.Kind)
}

func TestScenarioConstantDefineAndAbsoluteStore(t *testing.T) {
	res := assembleSrc(t, ".define CON1 3\n.define CON2 0x0200\nLDI r0, CON1\nST (CON2), r0\n")
	want := []byte{0x01, 0x03, 0x00, 0xF1, 0x00, 0x02}
	assert(t, bytes.Equal(res.ROM[:len(want)], want), "got % X want % X", res.ROM[:len(want)], want)
}

func TestScenarioMultiBankOrgAndCrossBankJump(t *testing.T) {
	src := ".bank 0\n.org 0x0200\nFIXED_LABEL:\nNOP\n.bank 1\n.org 0x4100\nBANK_1_LABEL:\nNOP\nJMP FIXED_LABEL\n"
	res := assembleSrc(t, src)
	assert(t, res.ROM[0x0200] == 0x00, "expected NOP at 0x0200")
	assert(t, res.ROM[0x4100] == 0x00, "expected NOP at 0x4100")
	want := []byte{0x51, 0x00, 0x02}
	got := res.ROM[0x4101 : 0x4101+3]
	assert(t, bytes.Equal(got, want), "got % X want % X", got, want)
}

func TestScenarioIncludeGraphIsDepthFirst(t *testing.T) {
	reader := MapReader{
		"test.asm":  ".include \"inc_1.asm\"\n.include \"inc_2.asm\"\n",
		"inc_1.asm": ".include \"inc_3.asm\"\nLDI r0, 1\n",
		"inc_3.asm": "LDI r1, 2\n",
		"inc_2.asm": "LDI r2, 3\n",
	}
	res, err := Assemble([]byte(reader["test.asm"]), AssembleOptions{Reader: reader, Path: "test.asm"})
	assert(t, err == nil, "unexpected error: %v", err)
	want := []byte{
		byte(opLdiBase + 1), 2, 0, // inc_3.asm: LDI r1, 2
		byte(opLdiBase + 0), 1, 0, // inc_1.asm: LDI r0, 1
		byte(opLdiBase + 2), 3, 0, // inc_2.asm: LDI r2, 3
	}
	assert(t, bytes.Equal(res.ROM[:len(want)], want), "got % X want % X", res.ROM[:len(want)], want)
}

func TestCallToDifferentBankIsRejected(t *testing.T) {
	src := ".bank 0\nCALL target\n.bank 1\ntarget:\nNOP\n"
	_, err := Assemble([]byte(src), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected CALL across banks to fail")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindSemantic, "expected SemanticError, got %s", ae.Kind)
}

func TestJmpAcrossBanksIsAllowed(t *testing.T) {
	src := ".bank 0\nJMP target\n.bank 1\ntarget:\nNOP\n"
	_, err := Assemble([]byte(src), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err == nil, "unconditional JMP across banks should be allowed: %v", err)
}

func TestByteOutOfRangeIsStructuralError(t *testing.T) {
	_, err := Assemble([]byte(".byte 256\n"), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected out-of-range .byte to fail")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindStructural, "expected StructuralError, got %s", ae.Kind)
}

func TestOrgBackwardMoveIsRejected(t *testing.T) {
	src := ".org 0x0200\nNOP\n.org 0x0100\nNOP\n"
	_, err := Assemble([]byte(src), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected backward .org to fail")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindSemantic, "expected SemanticError, got %s", ae.Kind)
}

func TestBankBackwardMoveIsRejected(t *testing.T) {
	src := ".bank 1\nNOP\n.bank 0\nNOP\n"
	_, err := Assemble([]byte(src), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected backward .bank to fail")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindSemantic, "expected SemanticError, got %s", ae.Kind)
}

func TestRelativeJumpOutOfRangeIsRejected(t *testing.T) {
	var b strings.Builder
	b.WriteString("JR far\n")
	for i := 0; i < 150; i++ {
		b.WriteString("NOP\n")
	}
	b.WriteString("far:\nNOP\n")
	_, err := Assemble([]byte(b.String()), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected out-of-range relative jump to fail")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindSemantic, "expected SemanticError, got %s", ae.Kind)
}

func TestLabelCollidingWithConstantIsRejected(t *testing.T) {
	src := ".define FOO 1\nFOO:\nNOP\n"
	_, err := Assemble([]byte(src), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected label/constant name collision to fail")
}

func TestHeaderEncodingLayout(t *testing.T) {
	res := assembleWithOpts(t, ".header title=\"GAME\" version=1 rom_size=2 ram_size=0\nNOP\n", AssembleOptions{
		HasExpectedHeaderAddr: true,
		ExpectedHeaderAddr:    0,
	})
	assert(t, string(bytes.TrimRight(res.ROM[headerOffTitle:headerOffDeveloper], "\x00")) == "GAME", "expected title GAME in header")
	assert(t, res.ROM[headerOffVersion] == 1, "expected version byte 1")
	assert(t, res.ROM[HeaderSize] == 0x00, "expected NOP to follow the 96-byte header")
}

func TestDefineWithStringOperandIsSemanticError(t *testing.T) {
	_, err := Assemble([]byte(".define NAME \"text\"\nNOP\n"), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected a non-immediate define operand to be rejected")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindSemantic, "expected SemanticError, got %s", ae.Kind)
}

func TestDefineReferencingAnotherConstantIsSemanticError(t *testing.T) {
	_, err := Assemble([]byte(".define A 1\n.define B A\nNOP\n"), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected a define-of-a-define to be rejected")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindSemantic, "expected SemanticError, got %s", ae.Kind)
}

func TestHeaderWithoutExpectedAddrIsRejected(t *testing.T) {
	_, err := Assemble([]byte(".header title=\"GAME\" version=1 rom_size=2 ram_size=0\nNOP\n"), AssembleOptions{Reader: MapReader{}, Path: "m.asm"})
	assert(t, err != nil, "expected an unconfigured .header to be rejected")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindStructural, "expected StructuralError, got %s", ae.Kind)
}

func TestHeaderAtWrongAddressIsRejected(t *testing.T) {
	_, err := Assemble([]byte("NOP\n.header title=\"GAME\" version=1 rom_size=2 ram_size=0\n"), AssembleOptions{
		Reader: MapReader{}, Path: "m.asm",
		HasExpectedHeaderAddr: true,
		ExpectedHeaderAddr:    0,
	})
	assert(t, err != nil, "expected a misplaced .header to be rejected")
	ae := err.(*AssemblyError)
	assert(t, ae.Kind == KindStructural, "expected StructuralError, got %s", ae.Kind)
}

func TestInterruptTableEncodesInlineEntries(t *testing.T) {
	res := assembleWithOpts(t, "NOP\nhandler:\nNOP\n.interrupt handler, 0, 0\n", AssembleOptions{
		HasExpectedInterruptAddr: true,
		ExpectedInterruptAddr:    2,
	})
	want := []byte{0x01, 0x00}
	assert(t, bytes.Equal(res.ROM[2:4], want), "expected first IVT entry to point at handler, got % X", res.ROM[2:4])
	assert(t, len(res.ROM) >= 2+IVTSize, "expected the ROM to hold the full 32-byte table")
}

func TestInstructionSizeMatchesEncodedLength(t *testing.T) {
	cases := []Instruction{
		{Op: OpNop},
		{Op: OpLdi, Rd: R1, Arg: ImmOperand(1)},
		{Op: OpAddReg, Rd: R1, Rs: R2},
		{Op: OpAddIReg, Rd: R1, Arg: ImmOperand(1)},
		{Op: OpBitAbs, Rd: 0, Arg: AbsAddrOperand(0x100)},
		{Op: OpCallFar, Label: "x"},
		{Op: OpCallFarVia, Label: "x", Via: "y"},
	}
	symtab := NewSymbolTable()
	symtab.Insert("x", Symbol{LogicalAddr: 0x4000, Bank: 1})
	symtab.Insert("y", Symbol{LogicalAddr: 0x0000, Bank: 0})
	for _, ins := range cases {
		ctx := &encodeCtx{symtab: symtab, bank: 0}
		encoded, err := EncodeInstruction(ins, ctx)
		assert(t, err == nil, "encode failed for %+v: %v", ins, err)
		assert(t, InstructionSize(ins) == len(encoded), "size/encode drift for %+v: size=%d encoded=%d", ins, InstructionSize(ins), len(encoded))
	}
}
