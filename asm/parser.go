package asm

import (
	"bufio"
	"strconv"
	"strings"
)

// ParseSource runs the lexer/AST-builder stage (an expanded generalization
// of the teacher's preprocessLine+parseInputLine pair) over src, resolving
// `.include` directives through reader as they're encountered. path is the
// logical path of src itself, used both for relative include resolution
// and for circular-include detection.
func ParseSource(src []byte, path string, reader FileReader, guard *includeStack) (*Program, error) {
	if err := guard.push(path); err != nil {
		return nil, err
	}
	defer guard.pop()

	prog := &Program{}
	scanner := bufio.NewScanner(strings.NewReader(string(src)))
	lineNo := 0
	dir := dirOf(path)

	for scanner.Scan() {
		lineNo++
		text := stripComment(scanner.Text())
		rl := splitLabel(text)

		if rl.hasLabel {
			prog.Lines = append(prog.Lines, AssemblyLine{Line: lineNo, Label: rl.label, HasLabel: true})
		}
		if rl.rest == "" {
			continue
		}

		mnemonic, operandText := splitMnemonic(rl.rest)
		if strings.HasPrefix(mnemonic, ".") {
			d, err := parseDirective(mnemonic, operandText, lineNo)
			if err != nil {
				return nil, err
			}
			if d.Kind == DirInclude {
				includePath := reader.Resolve(dir, d.Path)
				data, rerr := reader.ReadFile(includePath)
				if rerr != nil {
					return nil, newStructuralError(lineNo, "cannot read include %q: %v", d.Path, rerr)
				}
				sub, perr := ParseSource(data, includePath, reader, guard)
				if perr != nil {
					return nil, perr
				}
				prog.Lines = append(prog.Lines, sub.Lines...)
				continue
			}
			prog.Lines = append(prog.Lines, AssemblyLine{Line: lineNo, Directive: d})
			continue
		}

		ins, err := parseInstruction(mnemonic, operandText, lineNo)
		if err != nil {
			return nil, err
		}
		prog.Lines = append(prog.Lines, AssemblyLine{Line: lineNo, Instruction: ins})
	}
	if err := scanner.Err(); err != nil {
		return nil, newStructuralError(lineNo, "%v", err)
	}
	return prog, nil
}

func dirOf(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

// --- operand parsing ---

func parseOperand(tok string, line int) (Operand, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Operand{}, newSyntaxError(line, "expected operand, found nothing")
	}

	if strings.HasPrefix(tok, "-(") && strings.HasSuffix(tok, ")") {
		inner := strings.TrimSpace(tok[2 : len(tok)-1])
		if !isRegisterName(inner) {
			return Operand{}, newSyntaxError(line, "pre-decrement operand %q must name a register", tok)
		}
		return PreDecOperand(strToRegister[strings.ToUpper(inner)]), nil
	}
	if strings.HasPrefix(tok, "(") && strings.HasSuffix(tok, ")+") {
		inner := strings.TrimSpace(tok[1 : len(tok)-2])
		if !isRegisterName(inner) {
			return Operand{}, newSyntaxError(line, "post-increment operand %q must name a register", tok)
		}
		return PostIncOperand(strToRegister[strings.ToUpper(inner)]), nil
	}
	if strings.HasPrefix(tok, "(") && strings.HasSuffix(tok, ")") {
		inner := strings.TrimSpace(tok[1 : len(tok)-1])
		parts := splitOperands(inner)
		if len(parts) == 1 {
			part := parts[0]
			if isRegisterName(part) {
				return IndirectOperand(strToRegister[strings.ToUpper(part)]), nil
			}
			if v, ok := parseNumber(part); ok {
				return AbsAddrOperand(v), nil
			}
			return LabelOperand(part), nil
		}
		if len(parts) == 2 {
			if !isRegisterName(parts[0]) {
				return Operand{}, newSyntaxError(line, "indexed operand %q must start with a register", tok)
			}
			reg := strToRegister[strings.ToUpper(parts[0])]
			if v, ok := parseNumber(parts[1]); ok {
				return IndexedOperand(reg, int8(v)), nil
			}
			return IndexedLabelOperand(reg, parts[1]), nil
		}
		return Operand{}, newSyntaxError(line, "malformed parenthesized operand %q", tok)
	}

	if isRegisterName(tok) {
		return RegOperand(strToRegister[strings.ToUpper(tok)]), nil
	}
	if v, ok := parseNumber(tok); ok {
		return ImmOperand(v), nil
	}
	if strings.HasPrefix(tok, "'") && strings.HasSuffix(tok, "'") && len(tok) == 3 {
		return ImmOperand(uint16(tok[1])), nil
	}
	return LabelOperand(tok), nil
}

func parseOperands(text string, line int) ([]Operand, error) {
	fields := splitOperands(text)
	ops := make([]Operand, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		op, err := parseOperand(f, line)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// --- instruction dispatch ---

var nullaryOps = map[string]InstrOp{
	"NOP": OpNop, "HALT": OpHalt, "EI": OpEi, "DI": OpDi, "RET": OpRet,
	"RETI": OpReti, "CCF": OpCcf, "SCF": OpScf, "RCF": OpRcf,
	"ENTER": OpEnter, "LEAVE": OpLeave, "NEG": OpNegAcc, "NOT": OpNotAcc,
	"SWAP": OpSwapAcc, "PUSH.F": OpPushF, "POP.F": OpPopF,
}

var shiftOps = map[string]InstrOp{
	"SRA": OpSra, "SHL": OpShl, "SHR": OpShr, "ROL": OpRol, "ROR": OpRor,
}

var ccNames = map[string]ConditionCode{
	"Z": CcZ, "NZ": CcNz, "C": CcC, "NC": CcNc, "N": CcN, "NN": CcNn, "V": CcV, "NV": CcNv,
}

func parseInstruction(mnemonicRaw, operandText string, line int) (*Instruction, error) {
	mnemonic := strings.ToUpper(mnemonicRaw)

	if op, ok := nullaryOps[mnemonic]; ok {
		return &Instruction{Op: op, Line: line}, nil
	}
	if op, ok := shiftOps[mnemonic]; ok {
		ops, err := parseOperands(operandText, line)
		if err != nil {
			return nil, err
		}
		if len(ops) != 1 || ops[0].Kind != OpndRegister {
			return nil, newSyntaxError(line, "%s expects a single register operand", mnemonic)
		}
		return &Instruction{Op: op, Rd: ops[0].Reg, Line: line}, nil
	}

	ops, err := parseOperands(operandText, line)
	if err != nil {
		return nil, err
	}

	switch mnemonic {
	case "LDI":
		return buildLDI(ops, line)
	case "LDI.B":
		return buildLDIB(ops, line)
	case "LD":
		return buildLD(ops, line)
	case "LD.B":
		return buildLDB(ops, line)
	case "ST":
		return buildST(ops, line)
	case "ST.B":
		return buildSTB(ops, line)
	case "LEA":
		return buildLEA(ops, line)
	case "PUSH":
		return buildPush(ops, line)
	case "POP":
		return buildPop(ops, line)
	case "ADD":
		return buildArith(ops, line, OpAddAcc, OpAddAccI, OpAddReg, OpAddIReg)
	case "SUB":
		return buildArith(ops, line, OpSubAcc, OpSubAccI, OpSubReg, OpSubIReg)
	case "AND":
		return buildArith(ops, line, OpAndAcc, OpAndAccI, OpAndReg, OpAndIReg)
	case "OR":
		return buildArith(ops, line, OpOrAcc, OpOrAccI, OpOrReg, OpOrIReg)
	case "XOR":
		return buildArith(ops, line, OpXorAcc, OpXorAccI, OpXorReg, OpXorIReg)
	case "CMP":
		return buildArith(ops, line, OpCmpAcc, OpCmpAccI, OpCmpReg, OpCmpIReg)
	case "ADC":
		return buildAdcSbc(ops, line, OpAdcAccI, OpAdcReg)
	case "SBC":
		return buildAdcSbc(ops, line, OpSbcAccI, OpSbcReg)
	case "ADD.B":
		return buildByteAcc(ops, line, OpAddBAcc)
	case "SUB.B":
		return buildByteAcc(ops, line, OpSubBAcc)
	case "AND.B":
		return buildByteAcc(ops, line, OpAndBAcc)
	case "OR.B":
		return buildByteAcc(ops, line, OpOrBAcc)
	case "XOR.B":
		return buildByteAcc(ops, line, OpXorBAcc)
	case "CMP.B":
		return buildByteAcc(ops, line, OpCmpBAcc)
	case "ADD.SP":
		if len(ops) != 1 || ops[0].Kind != OpndImmediate {
			return nil, newSyntaxError(line, "ADD.SP expects a single signed immediate")
		}
		return &Instruction{Op: OpAddSp, Arg: ops[0], Line: line}, nil
	case "INC":
		return buildRegOnly(ops, line, OpInc)
	case "DEC":
		return buildRegOnly(ops, line, OpDec)
	case "BIT":
		return buildBitOp(ops, line, OpBitReg, OpBitAbs, OpBitIndirect)
	case "SET":
		return buildBitOp(ops, line, OpSetReg, OpSetAbs, OpSetIndirect)
	case "RES":
		return buildBitOp(ops, line, OpResReg, OpResAbs, OpResIndirect)
	case "JMP":
		return buildJmp(ops, line)
	case "JR":
		if len(ops) != 1 {
			return nil, newSyntaxError(line, "JR expects a single branch target")
		}
		return &Instruction{Op: OpJrI, Arg: ops[0], Line: line}, nil
	case "DJNZ":
		if len(ops) != 1 {
			return nil, newSyntaxError(line, "DJNZ expects a single branch target")
		}
		return &Instruction{Op: OpDjnz, Arg: ops[0], Line: line}, nil
	case "CALL":
		return buildCall(ops, line)
	case "SYSCALL":
		if len(ops) != 1 || ops[0].Kind != OpndImmediate {
			return nil, newSyntaxError(line, "SYSCALL expects a single immediate")
		}
		return &Instruction{Op: OpSyscall, Arg: ops[0], Line: line}, nil
	case "CALL.FAR":
		return buildFar(ops, line, OpCallFar, OpCallFarVia)
	case "JMP.FAR":
		return buildFar(ops, line, OpJmpFar, OpJmpFarVia)
	}

	if strings.HasPrefix(mnemonic, "JR") {
		if cc, ok := ccNames[strings.TrimPrefix(mnemonic, "JR")]; ok {
			if len(ops) != 1 {
				return nil, newSyntaxError(line, "%s expects a single branch target", mnemonic)
			}
			return &Instruction{Op: OpJrccI, CC: cc, Arg: ops[0], Line: line}, nil
		}
	}
	if strings.HasPrefix(mnemonic, "CALL") {
		if cc, ok := ccNames[strings.TrimPrefix(mnemonic, "CALL")]; ok {
			if len(ops) != 1 {
				return nil, newSyntaxError(line, "%s expects a single call target", mnemonic)
			}
			return &Instruction{Op: OpCallccI, CC: cc, Arg: ops[0], Line: line}, nil
		}
	}
	if strings.HasPrefix(mnemonic, "J") {
		if cc, ok := ccNames[strings.TrimPrefix(mnemonic, "J")]; ok {
			if len(ops) != 1 {
				return nil, newSyntaxError(line, "%s expects a single jump target", mnemonic)
			}
			return &Instruction{Op: OpJccI, CC: cc, Arg: ops[0], Line: line}, nil
		}
	}

	return nil, newSyntaxError(line, "unknown mnemonic %q", mnemonicRaw)
}

func buildLDI(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 2 || ops[0].Kind != OpndRegister {
		return nil, newSyntaxError(line, "LDI expects Rd, value")
	}
	return &Instruction{Op: OpLdi, Rd: ops[0].Reg, Arg: ops[1], Line: line}, nil
}

func buildLDIB(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 2 || ops[0].Kind != OpndRegister || ops[1].Kind != OpndImmediate {
		return nil, newSyntaxError(line, "LDI.B expects Rd, imm8")
	}
	return &Instruction{Op: OpLdiB, Rd: ops[0].Reg, Arg: ops[1], Line: line}, nil
}

func buildLD(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 2 || ops[0].Kind != OpndRegister {
		return nil, newSyntaxError(line, "LD expects Rd, <source>")
	}
	rd := ops[0].Reg
	src := ops[1]
	switch src.Kind {
	case OpndRegister:
		return &Instruction{Op: OpLdReg, Rd: rd, Rs: src.Reg, Line: line}, nil
	case OpndIndirect:
		return &Instruction{Op: OpLdIndirect, Rd: rd, Rs: src.Reg, Line: line}, nil
	case OpndIndexed:
		return &Instruction{Op: OpLdIndexed, Rd: rd, Rs: src.Reg, Arg: ImmOperand(uint16(src.Offset)), Line: line}, nil
	case OpndIndexedLabel:
		return &Instruction{Op: OpLdIndexed, Rd: rd, Rs: src.Reg, Arg: LabelOperand(src.Name), Line: line}, nil
	case OpndPreDec:
		return &Instruction{Op: OpLdPreDec, Rd: rd, Rs: src.Reg, Line: line}, nil
	case OpndPostInc:
		return &Instruction{Op: OpLdPostInc, Rd: rd, Rs: src.Reg, Line: line}, nil
	case OpndAbsAddr, OpndLabel:
		return &Instruction{Op: OpLdAbs, Rd: rd, Arg: src, Line: line}, nil
	}
	return nil, newSyntaxError(line, "LD: unsupported source operand %s", src)
}

func buildLDB(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 2 || ops[0].Kind != OpndRegister {
		return nil, newSyntaxError(line, "LD.B expects Rd, <source>")
	}
	rd := ops[0].Reg
	src := ops[1]
	switch src.Kind {
	case OpndIndirect:
		return &Instruction{Op: OpLdBIndirect, Rd: rd, Rs: src.Reg, Line: line}, nil
	case OpndPreDec:
		return &Instruction{Op: OpLdBPreDec, Rd: rd, Rs: src.Reg, Line: line}, nil
	case OpndPostInc:
		return &Instruction{Op: OpLdBPostInc, Rd: rd, Rs: src.Reg, Line: line}, nil
	}
	return nil, newSyntaxError(line, "LD.B: unsupported source operand %s", src)
}

func buildST(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 2 || ops[1].Kind != OpndRegister {
		return nil, newSyntaxError(line, "ST expects <destination>, Rs")
	}
	rs := ops[1].Reg
	dst := ops[0]
	switch dst.Kind {
	case OpndIndirect:
		return &Instruction{Op: OpStIndirect, Rd: dst.Reg, Rs: rs, Line: line}, nil
	case OpndIndexed:
		return &Instruction{Op: OpStIndexed, Rd: dst.Reg, Rs: rs, Arg: ImmOperand(uint16(dst.Offset)), Line: line}, nil
	case OpndIndexedLabel:
		return &Instruction{Op: OpStIndexed, Rd: dst.Reg, Rs: rs, Arg: LabelOperand(dst.Name), Line: line}, nil
	case OpndPreDec:
		return &Instruction{Op: OpStPreDec, Rd: dst.Reg, Rs: rs, Line: line}, nil
	case OpndPostInc:
		return &Instruction{Op: OpStPostInc, Rd: dst.Reg, Rs: rs, Line: line}, nil
	case OpndAbsAddr, OpndLabel:
		return &Instruction{Op: OpStAbs, Rs: rs, Arg: dst, Line: line}, nil
	}
	return nil, newSyntaxError(line, "ST: unsupported destination operand %s", dst)
}

func buildSTB(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 2 || ops[1].Kind != OpndRegister {
		return nil, newSyntaxError(line, "ST.B expects <destination>, Rs")
	}
	rs := ops[1].Reg
	dst := ops[0]
	switch dst.Kind {
	case OpndIndirect:
		return &Instruction{Op: OpStBIndirect, Rd: dst.Reg, Rs: rs, Line: line}, nil
	case OpndPreDec:
		return &Instruction{Op: OpStBPreDec, Rd: dst.Reg, Rs: rs, Line: line}, nil
	case OpndPostInc:
		return &Instruction{Op: OpStBPostInc, Rd: dst.Reg, Rs: rs, Line: line}, nil
	}
	return nil, newSyntaxError(line, "ST.B: unsupported destination operand %s", dst)
}

func buildLEA(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 2 || ops[0].Kind != OpndRegister {
		return nil, newSyntaxError(line, "LEA expects Rd, (Rs, offset)")
	}
	src := ops[1]
	switch src.Kind {
	case OpndIndexed:
		return &Instruction{Op: OpLea, Rd: ops[0].Reg, Rs: src.Reg, Arg: ImmOperand(uint16(src.Offset)), Line: line}, nil
	case OpndIndexedLabel:
		return &Instruction{Op: OpLea, Rd: ops[0].Reg, Rs: src.Reg, Arg: LabelOperand(src.Name), Line: line}, nil
	}
	return nil, newSyntaxError(line, "LEA expects an indexed source operand")
}

func buildPush(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 1 {
		return nil, newSyntaxError(line, "PUSH expects a single operand")
	}
	if ops[0].Kind == OpndRegister {
		return &Instruction{Op: OpPush, Rd: ops[0].Reg, Line: line}, nil
	}
	return &Instruction{Op: OpPushI, Arg: ops[0], Line: line}, nil
}

func buildPop(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 1 || ops[0].Kind != OpndRegister {
		return nil, newSyntaxError(line, "POP expects a single register")
	}
	return &Instruction{Op: OpPop, Rd: ops[0].Reg, Line: line}, nil
}

func buildArith(ops []Operand, line int, accOp, accIOp, regOp, regIOp InstrOp) (*Instruction, error) {
	switch len(ops) {
	case 1:
		if ops[0].Kind == OpndRegister {
			return &Instruction{Op: accOp, Rs: ops[0].Reg, Line: line}, nil
		}
		return &Instruction{Op: accIOp, Arg: ops[0], Line: line}, nil
	case 2:
		if ops[0].Kind != OpndRegister {
			return nil, newSyntaxError(line, "expected a register destination")
		}
		if ops[1].Kind == OpndRegister {
			return &Instruction{Op: regOp, Rd: ops[0].Reg, Rs: ops[1].Reg, Line: line}, nil
		}
		return &Instruction{Op: regIOp, Rd: ops[0].Reg, Arg: ops[1], Line: line}, nil
	}
	return nil, newSyntaxError(line, "expected 1 or 2 operands")
}

func buildAdcSbc(ops []Operand, line int, accIOp, regOp InstrOp) (*Instruction, error) {
	switch len(ops) {
	case 1:
		return &Instruction{Op: accIOp, Arg: ops[0], Line: line}, nil
	case 2:
		if ops[0].Kind != OpndRegister || ops[1].Kind != OpndRegister {
			return nil, newSyntaxError(line, "two-operand form requires two registers")
		}
		return &Instruction{Op: regOp, Rd: ops[0].Reg, Rs: ops[1].Reg, Line: line}, nil
	}
	return nil, newSyntaxError(line, "expected 1 or 2 operands")
}

func buildByteAcc(ops []Operand, line int, op InstrOp) (*Instruction, error) {
	if len(ops) != 1 || ops[0].Kind != OpndRegister {
		return nil, newSyntaxError(line, "expected a single register operand")
	}
	return &Instruction{Op: op, Rs: ops[0].Reg, Line: line}, nil
}

func buildRegOnly(ops []Operand, line int, op InstrOp) (*Instruction, error) {
	if len(ops) != 1 || ops[0].Kind != OpndRegister {
		return nil, newSyntaxError(line, "expected a single register operand")
	}
	return &Instruction{Op: op, Rd: ops[0].Reg, Line: line}, nil
}

func buildBitOp(ops []Operand, line int, regOp, absOp, indirOp InstrOp) (*Instruction, error) {
	if len(ops) != 2 || ops[1].Kind != OpndImmediate {
		return nil, newSyntaxError(line, "expected <target>, bit_index")
	}
	target := ops[0]
	switch target.Kind {
	case OpndRegister:
		return &Instruction{Op: regOp, Rd: target.Reg, Arg: ops[1], Line: line}, nil
	case OpndIndirect:
		return &Instruction{Op: indirOp, Rd: target.Reg, Arg: ops[1], Line: line}, nil
	case OpndAbsAddr, OpndLabel:
		return &Instruction{Op: absOp, Rd: Register(ops[1].Imm), Arg: target, Line: line}, nil
	}
	return nil, newSyntaxError(line, "unsupported bit-op target %s", target)
}

func buildJmp(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 1 {
		return nil, newSyntaxError(line, "JMP expects a single operand")
	}
	if ops[0].Kind == OpndIndirect {
		return &Instruction{Op: OpJmpIndirect, Rd: ops[0].Reg, Line: line}, nil
	}
	return &Instruction{Op: OpJmpI, Arg: ops[0], Line: line}, nil
}

func buildCall(ops []Operand, line int) (*Instruction, error) {
	if len(ops) != 1 {
		return nil, newSyntaxError(line, "CALL expects a single operand")
	}
	if ops[0].Kind == OpndIndirect {
		return &Instruction{Op: OpCallIndirect, Rd: ops[0].Reg, Line: line}, nil
	}
	return &Instruction{Op: OpCallI, Arg: ops[0], Line: line}, nil
}

func buildFar(ops []Operand, line int, plainOp, viaOp InstrOp) (*Instruction, error) {
	switch len(ops) {
	case 1:
		if ops[0].Kind != OpndLabel {
			return nil, newSyntaxError(line, "expected a label operand")
		}
		return &Instruction{Op: plainOp, Label: ops[0].Name, Line: line}, nil
	case 2:
		if ops[0].Kind != OpndLabel || ops[1].Kind != OpndLabel {
			return nil, newSyntaxError(line, "expected label, trampoline_label")
		}
		return &Instruction{Op: viaOp, Label: ops[0].Name, Via: ops[1].Name, Line: line}, nil
	}
	return nil, newSyntaxError(line, "expected 1 or 2 operands")
}

// --- directives ---

func parseDirective(mnemonicRaw, operandText string, line int) (*Directive, error) {
	mnemonic := strings.ToLower(mnemonicRaw)
	fields := splitOperands(operandText)

	switch mnemonic {
	case ".org":
		if len(fields) != 1 {
			return nil, newSyntaxError(line, ".org expects a single address")
		}
		v, ok := parseNumber(fields[0])
		if !ok {
			return nil, newSyntaxError(line, ".org: invalid address %q", fields[0])
		}
		return &Directive{Kind: DirOrg, Addr: v}, nil

	case ".bank":
		if len(fields) != 1 {
			return nil, newSyntaxError(line, ".bank expects a single bank number")
		}
		v, ok := parseNumber(fields[0])
		if !ok {
			return nil, newSyntaxError(line, ".bank: invalid bank number %q", fields[0])
		}
		return &Directive{Kind: DirBank, Bank: v}, nil

	case ".byte":
		ops, err := parseByteList(fields, line)
		if err != nil {
			return nil, err
		}
		return &Directive{Kind: DirByte, Bytes: ops}, nil

	case ".word":
		ops := make([]Operand, 0, len(fields))
		for _, f := range fields {
			op, err := parseOperand(f, line)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
		return &Directive{Kind: DirWord, Words: ops}, nil

	case ".define":
		name, valueText := splitMnemonic(operandText)
		if len(fields) == 2 {
			name, valueText = fields[0], fields[1]
		}
		if name == "" || valueText == "" {
			return nil, newSyntaxError(line, ".define expects NAME value")
		}
		if strings.HasPrefix(valueText, "\"") && strings.HasSuffix(valueText, "\"") {
			return &Directive{Kind: DirDefine, Name: name, Value: LabelOperand(strings.Trim(valueText, "\""))}, nil
		}
		v, err := parseOperand(valueText, line)
		if err != nil {
			return nil, err
		}
		return &Directive{Kind: DirDefine, Name: name, Value: v}, nil

	case ".include":
		if len(fields) != 1 {
			return nil, newSyntaxError(line, ".include expects a single path")
		}
		return &Directive{Kind: DirInclude, Path: strings.Trim(fields[0], "\"")}, nil

	case ".header":
		return parseHeaderDirective(fields, line)

	case ".interrupt":
		if len(fields) == 0 || len(fields) > 16 {
			return nil, newSyntaxError(line, ".interrupt expects 1-16 word entries")
		}
		entries := make([]Operand, 0, len(fields))
		for _, f := range fields {
			op, err := parseOperand(f, line)
			if err != nil {
				return nil, err
			}
			entries = append(entries, op)
		}
		return &Directive{Kind: DirInterrupt, Interrupts: entries}, nil

	case ".section":
		name := ""
		if len(fields) == 1 {
			name = strings.Trim(fields[0], "\"")
		}
		return &Directive{Kind: DirSectionPush, Name: name}, nil

	case ".endsection":
		return &Directive{Kind: DirSectionPop}, nil
	}

	return nil, newSyntaxError(line, "unknown directive %q", mnemonicRaw)
}

// parseByteList expands each string-literal field into one Immediate
// operand per character, the way the teacher's preprocessLine turns
// `const "text"` into a run of `byte` instructions.
func parseByteList(fields []string, line int) ([]Operand, error) {
	var out []Operand
	for _, f := range fields {
		if strings.HasPrefix(f, "\"") && strings.HasSuffix(f, "\"") && len(f) >= 2 {
			text := f[1 : len(f)-1]
			for _, r := range []byte(text) {
				out = append(out, ImmOperand(uint16(r)))
			}
			continue
		}
		op, err := parseOperand(f, line)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}

func parseHeaderDirective(fields []string, line int) (*Directive, error) {
	h := &HeaderInfo{}
	// key=value pairs may be separated by whitespace as well as commas;
	// whitespace inside a quoted value does not split it.
	var pairs []string
	for _, f := range fields {
		inQuote, start := false, 0
		for i := 0; i <= len(f); i++ {
			if i < len(f) && f[i] == '"' {
				inQuote = !inQuote
			}
			if i == len(f) || (!inQuote && (f[i] == ' ' || f[i] == '\t')) {
				if i > start {
					pairs = append(pairs, f[start:i])
				}
				start = i + 1
			}
		}
	}
	for _, f := range pairs {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			return nil, newSyntaxError(line, ".header: malformed field %q", f)
		}
		key, val := strings.ToLower(strings.TrimSpace(kv[0])), strings.TrimSpace(kv[1])
		switch key {
		case "title":
			h.Title = strings.Trim(val, "\"")
		case "developer":
			h.Developer = strings.Trim(val, "\"")
		case "version":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, newSyntaxError(line, ".header: invalid version %q", val)
			}
			h.Version = uint8(n)
		case "rom_size":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, newSyntaxError(line, ".header: invalid rom_size %q", val)
			}
			h.RomSize = uint8(n)
		case "ram_size":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, newSyntaxError(line, ".header: invalid ram_size %q", val)
			}
			h.RamSize = uint8(n)
		case "hw_rev":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, newSyntaxError(line, ".header: invalid hw_rev %q", val)
			}
			h.HardwareRev = uint8(n) & 0x3
		case "region":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, newSyntaxError(line, ".header: invalid region %q", val)
			}
			h.Region = uint8(n) & 0x7
		case "int_mode":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, newSyntaxError(line, ".header: invalid int_mode %q", val)
			}
			h.InterruptMode = uint8(n) & 0x1
		case "mapper":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, newSyntaxError(line, ".header: invalid mapper %q", val)
			}
			h.Mapper = uint8(n) & 0x3
		default:
			return nil, newSyntaxError(line, ".header: unknown field %q", key)
		}
	}
	return &Directive{Kind: DirHeader, Header: h}, nil
}
