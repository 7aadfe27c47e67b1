package asm

// AssembleOptions configures a single assembly run.
type AssembleOptions struct {
	Reader           FileReader
	Path             string
	StartAddr        uint16
	FinalLogicalAddr uint16 // upper bound an .org may not exceed; 0 means unbounded

	// ExpectedHeaderAddr/ExpectedInterruptAddr are physical-ROM-address
	// commitments the layout pass enforces: a `.header`/`.interrupt`
	// directive is a structural error unless the matching Has* flag is
	// set, and its actual placement must match the expected address
	// exactly.
	ExpectedHeaderAddr      uint32
	HasExpectedHeaderAddr   bool
	ExpectedInterruptAddr   uint32
	HasExpectedInterruptAddr bool
}

// Result is everything Assemble produces: the finalized, bank-padded ROM
// image plus the symbol table, exposed so a caller (or a future
// disassembler/debugger) can map labels back onto the image.
type Result struct {
	ROM     []byte
	Symbols *SymbolTable
	Program *Program
}

// Assemble runs the full five-phase pipeline: parse+include-resolve, P0
// constant collection, P0.5 substitution, P1 layout, P2 encode, P3
// finalize.
func Assemble(src []byte, opts AssembleOptions) (*Result, error) {
	reader := opts.Reader
	if reader == nil {
		reader = NewFSReader()
	}
	path := opts.Path
	if path == "" {
		path = "main.asm"
	}

	prog, err := ParseSource(src, path, reader, newIncludeStack())
	if err != nil {
		return nil, err
	}

	ctable, err := BuildConstants(prog)
	if err != nil {
		return nil, err
	}
	if err := SubstituteConstants(prog, ctable); err != nil {
		return nil, err
	}

	symtab, err := BuildLayout(prog, ctable, opts)
	if err != nil {
		return nil, err
	}

	rom, err := encodeProgram(prog, symtab, opts)
	if err != nil {
		return nil, err
	}

	return &Result{ROM: Finalize(rom), Symbols: symtab, Program: prog}, nil
}

func physicalOffset(bank uint16, logicalAddr uint16) int {
	if bank == 0 {
		return int(logicalAddr)
	}
	return int(bank)*BankSize + int(logicalAddr-bankWindowBase)
}

// ensureSize grows buf to at least n bytes, zero-filling the new region.
// Forward `.org`/`.bank` movement leaves a 0x00 gap per spec.md §4.4 point 1;
// only Finalize's trailing whole-bank pad uses padFiller.
func ensureSize(buf *[]byte, n int) {
	if len(*buf) >= n {
		return
	}
	grown := make([]byte, n)
	copy(grown, *buf)
	*buf = grown
}

func writeAt(buf *[]byte, offset int, data []byte) {
	ensureSize(buf, offset+len(data))
	copy((*buf)[offset:], data)
}

func encodeProgram(prog *Program, symtab *SymbolTable, opts AssembleOptions) ([]byte, error) {
	var rom []byte
	var bank uint16
	logicalAddr := opts.StartAddr

	for i := range prog.Lines {
		line := &prog.Lines[i]
		d := line.Directive

		if d != nil {
			switch d.Kind {
			case DirOrg:
				logicalAddr = d.Addr
				continue
			case DirBank:
				bank = d.Bank
				if bank == 0 {
					logicalAddr = 0
				} else {
					logicalAddr = bankWindowBase
				}
				continue
			case DirByte:
				data := make([]byte, 0, len(d.Bytes))
				for _, op := range d.Bytes {
					if op.Kind != OpndImmediate {
						return nil, newSemanticError(line.Line, "non-constant .byte operand %s", op)
					}
					data = append(data, byte(op.Imm))
				}
				writeAt(&rom, physicalOffset(bank, logicalAddr), data)
				logicalAddr += uint16(len(data))
				continue
			case DirWord:
				var data []byte
				for _, op := range d.Words {
					v, werr := resolveDirectiveWord(op, symtab, line.Line)
					if werr != nil {
						return nil, werr
					}
					data = append(data, u16le(v)...)
				}
				writeAt(&rom, physicalOffset(bank, logicalAddr), data)
				logicalAddr += uint16(len(data))
				continue
			case DirHeader:
				writeAt(&rom, physicalOffset(bank, logicalAddr), EncodeHeader(*d.Header))
				logicalAddr += HeaderSize
				continue
			case DirInterrupt:
				data := make([]byte, 0, IVTSize)
				for _, op := range d.Interrupts {
					v, werr := resolveDirectiveWord(op, symtab, line.Line)
					if werr != nil {
						return nil, werr
					}
					data = append(data, u16le(v)...)
				}
				for len(data) < IVTSize {
					data = append(data, 0)
				}
				writeAt(&rom, physicalOffset(bank, logicalAddr), data)
				logicalAddr += IVTSize
				continue
			case DirSectionPush, DirSectionPop, DirDefine, DirInclude:
				continue
			}
		}

		if line.Instruction != nil {
			ctx := &encodeCtx{symtab: symtab, pc: logicalAddr, bank: bank, line: line.Line}
			bytes, eerr := EncodeInstruction(*line.Instruction, ctx)
			if eerr != nil {
				return nil, eerr
			}
			writeAt(&rom, physicalOffset(bank, logicalAddr), bytes)
			logicalAddr += uint16(len(bytes))
		}
	}

	return rom, nil
}

func resolveDirectiveWord(op Operand, symtab *SymbolTable, line int) (uint16, error) {
	switch op.Kind {
	case OpndImmediate, OpndAbsAddr:
		return op.Imm, nil
	case OpndLabel:
		sym, ok := symtab.Lookup(op.Name)
		if !ok {
			return 0, newSemanticError(line, "undefined label %q", op.Name)
		}
		return sym.LogicalAddr, nil
	}
	return 0, newSemanticError(line, ".word operand %s cannot resolve to 16 bits", op)
}
