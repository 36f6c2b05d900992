package assembler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jihoonsong/sicxe/emu/opcode"
	"github.com/jihoonsong/sicxe/emu/symtab"
)

// pass2State carries the base-register state that persists across
// lines (set by BASE/NOBASE) while pass 2 walks the trace.
type pass2State struct {
	base        int
	baseEnabled bool
	rb          recordBuilder
}

// pass2 replays the pass-1 trace, emitting object code and listing rows.
func pass2(traces []lineTrace, startName string, startAddr, progLen int, table *opcode.Table, st *symtab.Table) (*ObjectProgram, []ListingRow, error) {
	p2 := &pass2State{}
	var rows []ListingRow
	var allMods []string
	endAddr := startAddr

	for _, tr := range traces {
		ln := tr.parsed
		var objCode []byte
		var mods []string
		var err error

		switch {
		case ln.isBlank || ln.isComment:
			// No code, no listing object column.
		case ln.mnemonic == "START":
			// No emission; the header carries this information.
		case ln.mnemonic == "END":
			p2.rb.flush()
			if len(ln.operands) == 1 {
				if addr, ok := st.Lookup(ln.operands[0]); ok {
					endAddr = addr
				}
			}
		case ln.mnemonic == "BASE":
			if len(ln.operands) != 1 {
				err = fail(symtab.RequiredOneOperand, tr.lineNo, "BASE")
				break
			}
			addr, ok := st.Lookup(ln.operands[0])
			if !ok {
				err = fail(symtab.InvalidOperand, tr.lineNo, ln.operands[0])
				break
			}
			p2.base = addr
			p2.baseEnabled = true
		case ln.mnemonic == "NOBASE":
			p2.baseEnabled = false
		case ln.mnemonic == "BYTE":
			objCode, err = encodeByte(ln.operands[0], tr.lineNo)
			if err == nil {
				p2.rb.emit(tr.locctr, objCode)
			}
		case ln.mnemonic == "WORD":
			n, _ := strconv.Atoi(ln.operands[0])
			objCode = word24(n)
			p2.rb.emit(tr.locctr, objCode)
		case ln.mnemonic == "RESB", ln.mnemonic == "RESW":
			p2.rb.flush()
		default:
			entry, _ := table.Lookup(ln.mnemonic)
			objCode, mods, err = p2.encodeInstruction(entry, ln, tr.locctr, tr.length, st)
			if err == nil {
				p2.rb.emit(tr.locctr, objCode)
			}
		}

		if err != nil {
			if aerr, ok := err.(*symtab.Error); ok {
				st.SetError(aerr)
			}
			return nil, nil, err
		}

		rows = append(rows, ListingRow{
			LineNo:   tr.lineNo,
			Locctr:   tr.locctr,
			Label:    ln.label,
			Mnemonic: ln.mnemonic,
			Operands: strings.Join(ln.operands, ","),
			ObjCode:  objCode,
		})

		allMods = append(allMods, mods...)
	}

	p2.rb.flush()

	prog := &ObjectProgram{
		Name:    padName(startName),
		Start:   startAddr,
		Length:  progLen,
		Texts:   p2.rb.texts,
		Mods:    allMods,
		EndAddr: endAddr,
	}

	return prog, rows, nil
}

func padName(name string) string {
	if len(name) > 6 {
		return name[:6]
	}
	return name
}

// operandFlags strips a leading '#' or '@' from *operand and returns
// the (n, i) addressing bits implied.
func operandFlags(operand *string) (n, i int) {
	switch {
	case strings.HasPrefix(*operand, "#"):
		*operand = (*operand)[1:]
		return 0, 1
	case strings.HasPrefix(*operand, "@"):
		*operand = (*operand)[1:]
		return 1, 0
	default:
		return 1, 1
	}
}

// encodeInstruction dispatches to the format-1/2/3-4 encoder matching
// entry's permitted formats and ln's `+` prefix.
func (p2 *pass2State) encodeInstruction(entry opcode.Entry, ln line, locctr, instrLen int, st *symtab.Table) ([]byte, []string, error) {
	switch {
	case entry.Formats&opcode.Fmt1 != 0:
		return []byte{entry.Opcode}, nil, nil
	case entry.Formats&opcode.Fmt2 != 0:
		return p2.encodeFmt2(entry, ln)
	default:
		return p2.encodeFmt34(entry, ln, locctr, instrLen, st)
	}
}

func (p2 *pass2State) encodeFmt2(entry opcode.Entry, ln line) ([]byte, []string, error) {
	r1, ok := opcode.RegisterIDs[ln.operands[0]]
	if !ok {
		return nil, nil, fail(symtab.InvalidOperand, 0, ln.operands[0])
	}
	r2 := 0
	if len(ln.operands) == 2 {
		r2, ok = opcode.RegisterIDs[ln.operands[1]]
		if !ok {
			return nil, nil, fail(symtab.InvalidOperand, 0, ln.operands[1])
		}
	}
	return []byte{entry.Opcode, byte(r1<<4 | r2)}, nil, nil
}

// RSUB is historically encoded with no addressing bits set at all
// (object code "4C0000" in the canonical COPY program), not the
// n=1,i=1 simple-addressing pattern its operandless form would
// otherwise imply; this keeps that textbook encoding.
func (p2 *pass2State) encodeFmt34(entry opcode.Entry, ln line, locctr, instrLen int, st *symtab.Table) ([]byte, []string, error) {
	if ln.mnemonic == "RSUB" {
		if ln.extended {
			return []byte{entry.Opcode, 0, 0, 0}, nil, nil
		}
		return []byte{entry.Opcode, 0, 0}, nil, nil
	}

	operand := ln.operands[0]
	indexed := strings.HasSuffix(operand, ",X")
	operand = strings.TrimSuffix(operand, ",X")
	n, i := operandFlags(&operand)

	if n == 0 && i == 1 {
		if num, err := strconv.Atoi(operand); err == nil {
			return p2.encodeDirectImmediate(entry, ln.extended, indexed, num)
		}
	}

	target, ok := st.Lookup(operand)
	if !ok {
		return nil, nil, fail(symtab.InvalidOperand, 0, operand)
	}

	if ln.extended {
		bytes := encode4(entry.Opcode, n, i, indexed, 0, 0, 1, target)
		mod := fmt.Sprintf("M%06X05", locctr+1)
		return bytes, []string{mod}, nil
	}

	if disp := target - (locctr + instrLen); disp >= -2048 && disp <= 2047 {
		return encode3(entry.Opcode, n, i, indexed, 0, 1, 0, disp&0xFFF), nil, nil
	}
	if p2.baseEnabled {
		if d := target - p2.base; d >= 0 && d <= 4095 {
			return encode3(entry.Opcode, n, i, indexed, 1, 0, 0, d), nil, nil
		}
	}
	return nil, nil, fail(symtab.InvalidOperand, 0, operand)
}

func (p2 *pass2State) encodeDirectImmediate(entry opcode.Entry, extended, indexed bool, value int) ([]byte, []string, error) {
	if extended {
		return encode4(entry.Opcode, 0, 1, indexed, 0, 0, 1, value), nil, nil
	}
	if value < 0 || value > 4095 {
		return nil, nil, fail(symtab.InvalidOperand, 0, strconv.Itoa(value))
	}
	return encode3(entry.Opcode, 0, 1, indexed, 0, 0, 0, value), nil, nil
}

func encode3(opc byte, n, i int, indexed bool, b, p, e int, disp12 int) []byte {
	x := 0
	if indexed {
		x = 1
	}
	byte0 := opc | byte(n<<1) | byte(i)
	byte1 := byte(x<<7|b<<6|p<<5|e<<4) | byte((disp12>>8)&0xF)
	byte2 := byte(disp12 & 0xFF)
	return []byte{byte0, byte1, byte2}
}

func encode4(opc byte, n, i int, indexed bool, b, p, e int, addr int) []byte {
	x := 0
	if indexed {
		x = 1
	}
	byte0 := opc | byte(n<<1) | byte(i)
	byte1 := byte(x<<7|b<<6|p<<5|e<<4) | byte((addr>>16)&0xF)
	byte2 := byte((addr >> 8) & 0xFF)
	byte3 := byte(addr & 0xFF)
	return []byte{byte0, byte1, byte2, byte3}
}

func encodeByte(operand string, lineNo int) ([]byte, error) {
	switch {
	case strings.HasPrefix(operand, "C'") && strings.HasSuffix(operand, "'") && len(operand) >= 3:
		return []byte(operand[2 : len(operand)-1]), nil
	case strings.HasPrefix(operand, "X'") && strings.HasSuffix(operand, "'") && len(operand) >= 3:
		digits := operand[2 : len(operand)-1]
		if len(digits)%2 != 0 {
			digits = "0" + digits
		}
		out := make([]byte, len(digits)/2)
		for i := range out {
			v, err := strconv.ParseUint(digits[i*2:i*2+2], 16, 8)
			if err != nil {
				return nil, fail(symtab.InvalidOperand, lineNo, operand)
			}
			out[i] = byte(v)
		}
		return out, nil
	default:
		return nil, fail(symtab.InvalidOperand, lineNo, operand)
	}
}

func word24(n int) []byte {
	v := uint32(n) & 0xFFFFFF
	return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
}
