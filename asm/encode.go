package asm

// encodeCtx carries everything the encoder needs about where in the image
// an instruction lives. When sizeOnly is set (used by InstructionSize),
// label lookups that would otherwise fail are tolerated with a zero value
// since only the byte COUNT matters at that point, never the resolved
// address — this is what keeps the Pass-1 size table and the Pass-2
// encoder from drifting apart (see DESIGN.md's asm/encode.go entry).
type encodeCtx struct {
	symtab   *SymbolTable
	pc       uint16 // logical address of this instruction
	bank     uint16
	line     int
	sizeOnly bool
}

func packReg2(hi, lo Register) byte { return byte(hi)<<3 | byte(lo) }

func (c *encodeCtx) resolveWord(op Operand) (uint16, *AssemblyError) {
	switch op.Kind {
	case OpndImmediate, OpndAbsAddr:
		return op.Imm, nil
	case OpndLabel:
		sym, ok := c.symtab.Lookup(op.Name)
		if !ok {
			if c.sizeOnly {
				return 0, nil
			}
			return 0, newSemanticError(c.line, "undefined label %q", op.Name)
		}
		return sym.LogicalAddr, nil
	default:
		return 0, newSemanticError(c.line, "operand %s cannot resolve to a 16-bit value", op)
	}
}

func (c *encodeCtx) resolveIndexOffset(op Operand) (int8, *AssemblyError) {
	switch op.Kind {
	case OpndImmediate:
		return int8(op.Imm), nil
	case OpndLabel:
		sym, ok := c.symtab.Lookup(op.Name)
		if !ok {
			if c.sizeOnly {
				return 0, nil
			}
			return 0, newSemanticError(c.line, "undefined label %q", op.Name)
		}
		delta := int32(sym.LogicalAddr) - int32(c.pc)
		if delta < -128 || delta > 127 {
			return 0, newSemanticError(c.line, "label %q is out of 8-bit indexed-offset range", op.Name)
		}
		return int8(delta), nil
	default:
		return 0, newSemanticError(c.line, "operand %s is not a valid indexed offset", op)
	}
}

// resolveRel computes the signed byte delta a relative branch needs: the
// label's logical address minus the logical address of the instruction
// currently being emitted.
func (c *encodeCtx) resolveRel(op Operand) (int8, *AssemblyError) {
	var target uint16
	switch op.Kind {
	case OpndImmediate:
		target = op.Imm
	case OpndLabel:
		sym, ok := c.symtab.Lookup(op.Name)
		if !ok {
			if c.sizeOnly {
				return 0, nil
			}
			return 0, newSemanticError(c.line, "undefined label %q", op.Name)
		}
		if !c.sizeOnly && sym.Bank != c.bank {
			return 0, newSemanticError(c.line, "relative branch to label %q in a different bank", op.Name)
		}
		target = sym.LogicalAddr
	default:
		return 0, newSemanticError(c.line, "operand %s is not a valid branch target", op)
	}
	delta := int32(target) - int32(c.pc)
	if delta < -128 || delta > 127 {
		if c.sizeOnly {
			return 0, nil
		}
		return 0, newSemanticError(c.line, "branch target out of range (%d bytes)", delta)
	}
	return int8(delta), nil
}

// resolveSameBankWord is resolveWord plus the bank-crossing check that
// applies to Jcc/Call/Callcc (but not the unconditional JMP/CALL-indirect
// forms): a label target in a different bank than the instruction itself
// is a semantic error, since a plain CALL/Jcc return address or the
// implicit fallthrough has no way to carry a bank switch with it.
func (c *encodeCtx) resolveSameBankWord(op Operand) (uint16, *AssemblyError) {
	if op.Kind == OpndLabel {
		sym, ok := c.symtab.Lookup(op.Name)
		if !ok {
			if c.sizeOnly {
				return 0, nil
			}
			return 0, newSemanticError(c.line, "undefined label %q", op.Name)
		}
		if !c.sizeOnly && sym.Bank != c.bank {
			return 0, newSemanticError(c.line, "label %q exists in a different bank than the calling instruction", op.Name)
		}
		return sym.LogicalAddr, nil
	}
	return c.resolveWord(op)
}

func u16le(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }

// InstructionSize returns the number of bytes EncodeInstruction would
// produce for ins, without requiring a populated symbol table.
func InstructionSize(ins Instruction) int {
	ctx := &encodeCtx{symtab: NewSymbolTable(), sizeOnly: true}
	b, err := EncodeInstruction(ins, ctx)
	if err != nil {
		// Every code path that can fail in sizeOnly mode is a malformed
		// instruction, not an unresolved label; surface it as size 0 so
		// callers notice rather than silently miscounting.
		return 0
	}
	return len(b)
}

// EncodeInstruction runs Pass 2 for a single instruction: resolves its
// operands against symtab and renders the final byte sequence.
func EncodeInstruction(ins Instruction, ctx *encodeCtx) ([]byte, *AssemblyError) {
	switch ins.Op {
	// --- nullary ---
	case OpNop:
		return []byte{opNop}, nil
	case OpHalt:
		return []byte{opHalt}, nil
	case OpEi:
		return []byte{opEi}, nil
	case OpDi:
		return []byte{opDi}, nil
	case OpRet:
		return []byte{opRet}, nil
	case OpReti:
		return []byte{opReti}, nil
	case OpCcf:
		return []byte{opCcf}, nil
	case OpScf:
		return []byte{opScf}, nil
	case OpRcf:
		return []byte{opRcf}, nil
	case OpEnter:
		return []byte{opEnter}, nil
	case OpLeave:
		return []byte{opLeave}, nil
	case OpNegAcc:
		return []byte{opNegAcc}, nil
	case OpNotAcc:
		return []byte{opNotAcc}, nil
	case OpSwapAcc:
		return []byte{opSwapAcc}, nil
	case OpPushF:
		return []byte{opPushF}, nil
	case OpPopF:
		return []byte{opPopF}, nil

	// --- word load/store ---
	case OpLdReg:
		return []byte{opLdRegRegBase | packReg2(ins.Rd, ins.Rs)}, nil
	case OpLdi:
		v, err := ctx.resolveWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(opLdiBase + int(ins.Rd))}, u16le(v)...), nil
	case OpLdIndirect:
		return []byte{prefixFE, subLdIndir | packReg2(ins.Rd, ins.Rs)}, nil
	case OpLdAbs:
		v, err := ctx.resolveWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(opLdAbsBase + int(ins.Rd))}, u16le(v)...), nil
	case OpLdIndexed:
		off, err := ctx.resolveIndexOffset(ins.Arg)
		if err != nil {
			return nil, err
		}
		return []byte{prefixFF, subLdIndex | packReg2(ins.Rd, ins.Rs), byte(off)}, nil
	case OpLdPreDec:
		return []byte{prefixFF, byte(subLdPreDec + int(ins.Rs)), byte(ins.Rd)}, nil
	case OpLdPostInc:
		return []byte{prefixFF, byte(subLdPostInc + int(ins.Rs)), byte(ins.Rd)}, nil
	case OpStIndirect:
		return []byte{prefixFE, subStIndir | packReg2(ins.Rd, ins.Rs)}, nil
	case OpStAbs:
		v, err := ctx.resolveWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(opStAbsBase + int(ins.Rs))}, u16le(v)...), nil
	case OpStIndexed:
		off, err := ctx.resolveIndexOffset(ins.Arg)
		if err != nil {
			return nil, err
		}
		return []byte{prefixFF, subStIndex | packReg2(ins.Rd, ins.Rs), byte(off)}, nil
	case OpStPreDec:
		return []byte{prefixFF, byte(subStPreDec + int(ins.Rd)), byte(ins.Rs)}, nil
	case OpStPostInc:
		return []byte{prefixFF, byte(subStPostInc + int(ins.Rd)), byte(ins.Rs)}, nil

	// --- byte load/store ---
	case OpLdiB:
		return []byte{prefixFD, byte(subLdiBBase + int(ins.Rd)), byte(ins.Arg.Imm)}, nil
	case OpLdBIndirect:
		return []byte{prefixFE, subLdBIndir | packReg2(ins.Rd, ins.Rs)}, nil
	case OpLdBPreDec:
		return []byte{prefixFF, byte(subLdBPreDec + int(ins.Rs)), byte(ins.Rd)}, nil
	case OpLdBPostInc:
		return []byte{prefixFF, byte(subLdBPostInc + int(ins.Rs)), byte(ins.Rd)}, nil
	case OpStBIndirect:
		return []byte{prefixFE, subStBIndir | packReg2(ins.Rd, ins.Rs)}, nil
	case OpStBPreDec:
		return []byte{prefixFF, byte(subStBPreDec + int(ins.Rd)), byte(ins.Rs)}, nil
	case OpStBPostInc:
		return []byte{prefixFF, byte(subStBPostInc + int(ins.Rd)), byte(ins.Rs)}, nil

	case OpLea:
		off, err := ctx.resolveIndexOffset(ins.Arg)
		if err != nil {
			return nil, err
		}
		return []byte{prefixFF, subLea | packReg2(ins.Rd, ins.Rs), byte(off)}, nil

	// --- stack ---
	case OpPush:
		return []byte{byte(opPushRegBase + int(ins.Rd))}, nil
	case OpPop:
		return []byte{byte(opPopRegBase + int(ins.Rd))}, nil
	case OpPushI:
		v, err := ctx.resolveWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{opPushImm}, u16le(v)...), nil

	// --- accumulator arithmetic (word) ---
	case OpAddAcc:
		return []byte{byte(opAddAccBase + int(ins.Rs))}, nil
	case OpSubAcc:
		return []byte{byte(opSubAccBase + int(ins.Rs))}, nil
	case OpAndAcc:
		return []byte{byte(opAndAccBase + int(ins.Rs))}, nil
	case OpOrAcc:
		return []byte{byte(opOrAccBase + int(ins.Rs))}, nil
	case OpXorAcc:
		return []byte{byte(opXorAccBase + int(ins.Rs))}, nil
	case OpCmpAcc:
		return []byte{byte(opCmpAccBase + int(ins.Rs))}, nil
	case OpAddAccI:
		return encodeAccImm(ctx, opAddiAcc, ins.Arg)
	case OpSubAccI:
		return encodeAccImm(ctx, opSubiAcc, ins.Arg)
	case OpAndAccI:
		return encodeAccImm(ctx, opAndiAcc, ins.Arg)
	case OpOrAccI:
		return encodeAccImm(ctx, opOriAcc, ins.Arg)
	case OpXorAccI:
		return encodeAccImm(ctx, opXoriAcc, ins.Arg)
	case OpCmpAccI:
		return encodeAccImm(ctx, opCmpiAcc, ins.Arg)
	case OpAdcAccI:
		return encodeAccImm(ctx, opAdciAcc, ins.Arg)
	case OpSbcAccI:
		return encodeAccImm(ctx, opSbciAcc, ins.Arg)

	// --- register-register arithmetic (word) ---
	case OpAddReg:
		return []byte{opAddReg, packReg2(ins.Rd, ins.Rs)}, nil
	case OpSubReg:
		return []byte{opSubReg, packReg2(ins.Rd, ins.Rs)}, nil
	case OpAndReg:
		return []byte{opAndReg, packReg2(ins.Rd, ins.Rs)}, nil
	case OpOrReg:
		return []byte{opOrReg, packReg2(ins.Rd, ins.Rs)}, nil
	case OpXorReg:
		return []byte{opXorReg, packReg2(ins.Rd, ins.Rs)}, nil
	case OpCmpReg:
		return []byte{opCmpReg, packReg2(ins.Rd, ins.Rs)}, nil
	case OpAdcReg:
		return []byte{opAdcReg, packReg2(ins.Rd, ins.Rs)}, nil
	case OpSbcReg:
		return []byte{opSbcReg, packReg2(ins.Rd, ins.Rs)}, nil

	// --- immediate-to-register arithmetic (word) ---
	case OpAddIReg:
		return encodeRegImm(ctx, opAddiReg, ins.Rd, ins.Arg)
	case OpSubIReg:
		return encodeRegImm(ctx, opSubiReg, ins.Rd, ins.Arg)
	case OpAndIReg:
		return encodeRegImm(ctx, opAndiReg, ins.Rd, ins.Arg)
	case OpOrIReg:
		return encodeRegImm(ctx, opOriReg, ins.Rd, ins.Arg)
	case OpXorIReg:
		return encodeRegImm(ctx, opXoriReg, ins.Rd, ins.Arg)
	case OpCmpIReg:
		return encodeRegImm(ctx, opCmpiReg, ins.Rd, ins.Arg)

	case OpAddSp:
		return []byte{opAddSp, byte(int8(ins.Arg.Imm))}, nil
	case OpInc:
		return []byte{byte(opIncBase + int(ins.Rd))}, nil
	case OpDec:
		return []byte{byte(opDecBase + int(ins.Rd))}, nil

	// --- accumulator arithmetic (byte) ---
	case OpAddBAcc:
		return []byte{prefixFD, byte(subAddBAcc + int(ins.Rs))}, nil
	case OpSubBAcc:
		return []byte{prefixFD, byte(subSubBAcc + int(ins.Rs))}, nil
	case OpAndBAcc:
		return []byte{prefixFD, byte(subAndBAcc + int(ins.Rs))}, nil
	case OpOrBAcc:
		return []byte{prefixFD, byte(subOrBAcc + int(ins.Rs))}, nil
	case OpXorBAcc:
		return []byte{prefixFD, byte(subXorBAcc + int(ins.Rs))}, nil
	case OpCmpBAcc:
		return []byte{prefixFD, byte(subCmpBAcc + int(ins.Rs))}, nil

	// --- shift/rotate ---
	case OpSra:
		return []byte{prefixFD, byte(subSra + int(ins.Rd))}, nil
	case OpShl:
		return []byte{prefixFD, byte(subShl + int(ins.Rd))}, nil
	case OpShr:
		return []byte{prefixFD, byte(subShr + int(ins.Rd))}, nil
	case OpRol:
		return []byte{prefixFD, byte(subRol + int(ins.Rd))}, nil
	case OpRor:
		return []byte{prefixFD, byte(subRor + int(ins.Rd))}, nil

	// --- bit ops ---
	case OpBitReg:
		return []byte{prefixFD, byte(subBitReg + int(ins.Arg.Imm)), byte(ins.Rd)}, nil
	case OpSetReg:
		return []byte{prefixFD, byte(subSetReg + int(ins.Arg.Imm)), byte(ins.Rd)}, nil
	case OpResReg:
		return []byte{prefixFD, byte(subResReg + int(ins.Arg.Imm)), byte(ins.Rd)}, nil
	case OpBitIndirect:
		return []byte{prefixFD, byte(subBitIndir + int(ins.Arg.Imm)), byte(ins.Rd)}, nil
	case OpSetIndirect:
		return []byte{prefixFD, byte(subSetIndir + int(ins.Arg.Imm)), byte(ins.Rd)}, nil
	case OpResIndirect:
		return []byte{prefixFD, byte(subResIndir + int(ins.Arg.Imm)), byte(ins.Rd)}, nil
	case OpBitAbs:
		v, err := ctx.resolveWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{prefixFD, byte(subBitAbs + int(ins.Rd))}, u16le(v)...), nil
	case OpSetAbs:
		v, err := ctx.resolveWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{prefixFD, byte(subSetAbs + int(ins.Rd))}, u16le(v)...), nil
	case OpResAbs:
		v, err := ctx.resolveWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{prefixFD, byte(subResAbs + int(ins.Rd))}, u16le(v)...), nil

	// --- control flow ---
	case OpJmpI:
		v, err := ctx.resolveWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{opJmpImm}, u16le(v)...), nil
	case OpJmpIndirect:
		return []byte{byte(opJmpIndirBase + int(ins.Rd))}, nil
	case OpJrI:
		rel, err := ctx.resolveRel(ins.Arg)
		if err != nil {
			return nil, err
		}
		return []byte{opJr, byte(rel)}, nil
	case OpJccI:
		v, err := ctx.resolveSameBankWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(opJccBase + int(ins.CC))}, u16le(v)...), nil
	case OpJrccI:
		rel, err := ctx.resolveRel(ins.Arg)
		if err != nil {
			return nil, err
		}
		return []byte{byte(opJrccBase + int(ins.CC)), byte(rel)}, nil
	case OpDjnz:
		rel, err := ctx.resolveRel(ins.Arg)
		if err != nil {
			return nil, err
		}
		return []byte{opDjnz, byte(rel)}, nil
	case OpCallI:
		v, err := ctx.resolveSameBankWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{opCallImm}, u16le(v)...), nil
	case OpCallIndirect:
		return []byte{byte(opCallIndir + int(ins.Rd))}, nil
	case OpCallccI:
		v, err := ctx.resolveSameBankWord(ins.Arg)
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(opCallccBase + int(ins.CC))}, u16le(v)...), nil
	case OpSyscall:
		return []byte{opSyscall, byte(ins.Arg.Imm)}, nil

	case OpCallFar:
		return encodeFar(ctx, ins.Label, "", syscallCallFar, false)
	case OpCallFarVia:
		return encodeFar(ctx, ins.Label, ins.Via, 0, true)
	case OpJmpFar:
		return encodeFar(ctx, ins.Label, "", syscallJmpFar, false)
	case OpJmpFarVia:
		return encodeFar(ctx, ins.Label, ins.Via, 0, true)
	}

	return nil, newStructuralError(ctx.line, "unhandled instruction opcode %d", ins.Op)
}

func encodeAccImm(ctx *encodeCtx, opcode byte, arg Operand) ([]byte, *AssemblyError) {
	v, err := ctx.resolveWord(arg)
	if err != nil {
		return nil, err
	}
	return append([]byte{opcode}, u16le(v)...), nil
}

func encodeRegImm(ctx *encodeCtx, opcode byte, rd Register, arg Operand) ([]byte, *AssemblyError) {
	v, err := ctx.resolveWord(arg)
	if err != nil {
		return nil, err
	}
	return append([]byte{opcode, byte(rd)}, u16le(v)...), nil
}

// encodeFar lowers the synthetic CALL.far/JMP.far forms into the concrete
// LDI Rbank, bank ; LDI Raddr, target ; SYSCALL id sequence (plain far
// form), or LDI Rbank, bank ; LDI Raddr, target ; CALL via (trampoline
// form), validating the bank-crossing invariants the source encoder's test
// suite pins: the target must not be in bank 0 (a plain CALL/JMP reaches
// it already) and must not be in the calling bank (same reason), and for
// the *Via forms the trampoline itself must live in bank 0.
func encodeFar(ctx *encodeCtx, label, via string, syscallID byte, useVia bool) ([]byte, *AssemblyError) {
	sym, ok := ctx.symtab.Lookup(label)
	if !ok {
		if ctx.sizeOnly {
			sym = Symbol{}
		} else {
			return nil, newSemanticError(ctx.line, "undefined label %q", label)
		}
	}
	if !ctx.sizeOnly {
		if sym.Bank == 0 {
			return nil, newSemanticError(ctx.line, "label %q exists in bank 0, use a normal CALL instruction instead.", label)
		}
		if sym.Bank == ctx.bank {
			return nil, newSemanticError(ctx.line, "label %q exists in the same bank as the CALL.far instruction, use a normal CALL instruction instead.", label)
		}
	}

	out := []byte{byte(opLdiBase + int(farCallScratchBank))}
	out = append(out, u16le(sym.Bank)...)
	out = append(out, byte(opLdiBase+int(farCallScratchAddr)))
	out = append(out, u16le(sym.LogicalAddr)...)

	if useVia {
		viaSym, ok := ctx.symtab.Lookup(via)
		if !ok {
			if ctx.sizeOnly {
				viaSym = Symbol{}
			} else {
				return nil, newSemanticError(ctx.line, "undefined trampoline label %q", via)
			}
		}
		if !ctx.sizeOnly && viaSym.Bank != 0 {
			return nil, newSemanticError(ctx.line, "Custom CALL.far via trampoline label must exist in bank 0, %q found in bank %d", via, viaSym.Bank)
		}
		out = append(out, opCallImm)
		out = append(out, u16le(viaSym.LogicalAddr)...)
		return out, nil
	}

	out = append(out, opSyscall, syscallID)
	return out, nil
}
