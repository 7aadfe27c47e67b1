package asm

// ConstantTable holds every `.define NAME value` binding collected during
// Pass 0, keyed by name.
type ConstantTable struct {
	numbers map[string]uint16
}

func NewConstantTable() *ConstantTable {
	return &ConstantTable{numbers: make(map[string]uint16)}
}

// BuildConstants runs Pass 0: it scans every Define directive in source
// order and records its binding, rejecting a name that's already bound.
// A Define whose operand isn't an immediate is a semantic error — constants
// are always a raw 16-bit value, never a string or another constant's name.
func BuildConstants(prog *Program) (*ConstantTable, error) {
	table := NewConstantTable()
	for _, line := range prog.Lines {
		d := line.Directive
		if d == nil || d.Kind != DirDefine {
			continue
		}
		if _, ok := table.numbers[d.Name]; ok {
			return nil, newSemanticError(line.Line, "constant %q already defined", d.Name)
		}
		if d.Value.Kind != OpndImmediate {
			return nil, newSemanticError(line.Line, "constant %q: define operand must be an immediate", d.Name)
		}
		table.numbers[d.Name] = d.Value.Imm
	}
	return table, nil
}

// SubstituteConstants runs Pass 0.5: every operand that names a bound
// constant is rewritten in place to its literal 16-bit value.
func SubstituteConstants(prog *Program, table *ConstantTable) error {
	for i := range prog.Lines {
		line := &prog.Lines[i]

		if ins := line.Instruction; ins != nil {
			if err := substituteOperand(&ins.Arg, table, line.Line); err != nil {
				return err
			}
		}

		if d := line.Directive; d != nil {
			switch d.Kind {
			case DirByte:
				for j := range d.Bytes {
					if err := substituteOperand(&d.Bytes[j], table, line.Line); err != nil {
						return err
					}
					if d.Bytes[j].Kind == OpndImmediate && d.Bytes[j].Imm > 0xFF {
						return newStructuralError(line.Line, ".byte value %d is out of unsigned-byte range", d.Bytes[j].Imm)
					}
				}
			case DirWord:
				for j := range d.Words {
					if err := substituteOperand(&d.Words[j], table, line.Line); err != nil {
						return err
					}
				}
			case DirInterrupt:
				for j := range d.Interrupts {
					if err := substituteOperand(&d.Interrupts[j], table, line.Line); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func substituteOperand(op *Operand, table *ConstantTable, line int) error {
	if op.Kind != OpndLabel {
		return nil
	}
	if v, ok := table.numbers[op.Name]; ok {
		*op = ImmOperand(v)
	}
	// Labels that aren't bound constants are left as-is; they're resolved
	// against the symbol table in Pass 1/2 instead.
	return nil
}
