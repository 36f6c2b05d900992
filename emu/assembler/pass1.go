package assembler

import (
	"strconv"
	"strings"

	"github.com/jihoonsong/sicxe/emu/opcode"
	"github.com/jihoonsong/sicxe/emu/symtab"
)

// lineTrace is one line of the pass-1 intermediate trace: the parsed
// fields, its locctr at entry, and its instruction/data length.
type lineTrace struct {
	lineNo int
	raw    string
	locctr int
	length int
	parsed line
}

// oneOperandFmt2 names format-2 mnemonics that take a single register
// operand; every other format-2 mnemonic takes two.
var oneOperandFmt2 = map[string]bool{
	"CLEAR": true,
	"TIXR":  true,
}

func fail(kind symtab.ErrorKind, lineNo int, token string) *symtab.Error {
	return &symtab.Error{Kind: kind, Line: lineNo, Token: token}
}

// pass1 builds the symbol table and the per-line trace pass 2 replays.
// On error it returns immediately without inserting further symbols;
// the caller is responsible for not saving the table.
func pass1(source []string, table *opcode.Table, st *symtab.Table) ([]lineTrace, string, int, int, error) {
	var traces []lineTrace
	locctr := 0
	startName := ""
	startAddr := 0
	started := false
	ended := false
	lastLine := 0

	isKnown := func(tok string) bool {
		bare := strings.TrimPrefix(tok, "+")
		if directives[bare] {
			return true
		}
		_, ok := table.Lookup(bare)
		return ok
	}

	for i, raw := range source {
		lineNo := i + 1
		lastLine = lineNo
		ln := parseLine(raw, isKnown)

		if ln.isBlank || ln.isComment {
			traces = append(traces, lineTrace{lineNo: lineNo, raw: raw, locctr: locctr, parsed: ln})
			continue
		}
		if ended {
			break
		}

		if !started && ln.mnemonic == "START" {
			if len(ln.operands) != 1 {
				return nil, "", 0, 0, fail(symtab.RequiredOneOperand, lineNo, "START")
			}
			addr, err := strconv.ParseInt(ln.operands[0], 16, 32)
			if err != nil {
				return nil, "", 0, 0, fail(symtab.InvalidOperand, lineNo, ln.operands[0])
			}
			startName = ln.label
			startAddr = int(addr)
			locctr = startAddr
			started = true
			if ln.label != "" {
				if insErr := st.Insert(ln.label, locctr); insErr != nil {
					aerr := insErr.(*symtab.Error)
					aerr.Line = lineNo
					aerr.Token = ln.label
					return nil, "", 0, 0, aerr
				}
			}
			traces = append(traces, lineTrace{lineNo: lineNo, raw: raw, locctr: locctr, length: 0, parsed: ln})
			continue
		}
		started = true

		if ln.mnemonic == "END" {
			ended = true
			traces = append(traces, lineTrace{lineNo: lineNo, raw: raw, locctr: locctr, length: 0, parsed: ln})
			continue
		}

		length, err := instrLength(ln, table, lineNo)
		if err != nil {
			return nil, "", 0, 0, err
		}

		if ln.label != "" {
			if insErr := st.Insert(ln.label, locctr); insErr != nil {
				aerr := insErr.(*symtab.Error)
				aerr.Line = lineNo
				aerr.Token = ln.label
				st.SetError(aerr)
				return nil, "", 0, 0, aerr
			}
		}

		traces = append(traces, lineTrace{lineNo: lineNo, raw: raw, locctr: locctr, length: length, parsed: ln})
		locctr += length
	}

	if !ended {
		err := fail(symtab.MissingEnd, lastLine, "")
		st.SetError(err)
		return nil, "", 0, 0, err
	}

	return traces, startName, startAddr, locctr - startAddr, nil
}

// instrLength computes the byte length of one instruction or
// directive line, validating opcode/operand arity along the way.
func instrLength(ln line, table *opcode.Table, lineNo int) (int, error) {
	if directives[ln.mnemonic] {
		switch ln.mnemonic {
		case "BYTE":
			if len(ln.operands) != 1 {
				return 0, fail(symtab.RequiredOneOperand, lineNo, ln.mnemonic)
			}
			return byteLiteralLength(ln.operands[0], lineNo)
		case "WORD":
			if len(ln.operands) != 1 {
				return 0, fail(symtab.RequiredOneOperand, lineNo, ln.mnemonic)
			}
			if _, err := strconv.Atoi(ln.operands[0]); err != nil {
				return 0, fail(symtab.InvalidOperand, lineNo, ln.operands[0])
			}
			return 3, nil
		case "RESB":
			n, err := resCount(ln, lineNo)
			if err != nil {
				return 0, err
			}
			return n, nil
		case "RESW":
			n, err := resCount(ln, lineNo)
			if err != nil {
				return 0, err
			}
			return 3 * n, nil
		case "BASE", "NOBASE":
			return 0, nil
		}
	}

	entry, ok := table.Lookup(ln.mnemonic)
	if !ok {
		return 0, fail(symtab.InvalidOpcode, lineNo, ln.mnemonic)
	}

	switch {
	case entry.Formats&opcode.Fmt1 != 0:
		if ln.extended {
			return 0, fail(symtab.InvalidOpcode, lineNo, ln.mnemonic)
		}
		return 1, nil
	case entry.Formats&opcode.Fmt2 != 0:
		if ln.extended {
			return 0, fail(symtab.InvalidOpcode, lineNo, ln.mnemonic)
		}
		if oneOperandFmt2[ln.mnemonic] {
			if len(ln.operands) != 1 {
				return 0, fail(symtab.RequiredOneOperand, lineNo, ln.mnemonic)
			}
		} else if len(ln.operands) != 2 {
			return 0, fail(symtab.RequiredTwoOperands, lineNo, ln.mnemonic)
		}
		return 2, nil
	case entry.Formats&(opcode.Fmt3|opcode.Fmt4) != 0:
		if ln.mnemonic != "RSUB" && len(ln.operands) != 1 {
			return 0, fail(symtab.RequiredOneOperand, lineNo, ln.mnemonic)
		}
		if ln.extended {
			return 4, nil
		}
		return 3, nil
	default:
		return 0, fail(symtab.InvalidOpcode, lineNo, ln.mnemonic)
	}
}

func resCount(ln line, lineNo int) (int, error) {
	if len(ln.operands) != 1 {
		return 0, fail(symtab.RequiredOneOperand, lineNo, ln.mnemonic)
	}
	n, err := strconv.Atoi(ln.operands[0])
	if err != nil || n < 0 {
		return 0, fail(symtab.InvalidOperand, lineNo, ln.operands[0])
	}
	return n, nil
}

func byteLiteralLength(operand string, lineNo int) (int, error) {
	switch {
	case strings.HasPrefix(operand, "C'") && strings.HasSuffix(operand, "'") && len(operand) >= 3:
		return len(operand) - 3, nil
	case strings.HasPrefix(operand, "X'") && strings.HasSuffix(operand, "'") && len(operand) >= 3:
		digits := operand[2 : len(operand)-1]
		if len(digits) == 0 {
			return 0, fail(symtab.InvalidOperand, lineNo, operand)
		}
		return (len(digits) + 1) / 2, nil
	default:
		return 0, fail(symtab.InvalidOperand, lineNo, operand)
	}
}
