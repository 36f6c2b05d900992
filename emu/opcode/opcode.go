// Package opcode implements the SIC/XE opcode dictionary: the
// read-only mapping between a mnemonic and its opcode byte and
// permitted instruction formats, shared read-only by the assembler
// and the virtual machine.
package opcode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Format bits, combined into a bitset since format 3 and 4 share an
// opcode (a `+` prefix selects format 4 at assembly time).
const (
	Fmt1 = 1 << 1
	Fmt2 = 1 << 2
	Fmt3 = 1 << 3
	Fmt4 = 1 << 4
)

// Entry is one opcode-dictionary record.
type Entry struct {
	Mnemonic string
	Opcode   byte // Low 2 bits are always zero.
	Formats  int  // Bitset of Fmt1..Fmt4.
}

// Table is the opcode dictionary. It is built once by LoadTable or
// LoadFile and is read-only afterward.
type Table struct {
	byMnemonic map[string]Entry
	byOpcode   map[byte]string
}

// New returns an empty table; entries are added with Add.
func New() *Table {
	return &Table{
		byMnemonic: make(map[string]Entry),
		byOpcode:   make(map[byte]string),
	}
}

// Add registers one opcode-dictionary entry.
func (t *Table) Add(e Entry) {
	t.byMnemonic[e.Mnemonic] = e
	t.byOpcode[e.Opcode] = e.Mnemonic
}

// Lookup returns the entry for mnemonic and whether it was found.
// Lookup is case-sensitive: only upper-case mnemonics match.
func (t *Table) Lookup(mnemonic string) (Entry, bool) {
	e, ok := t.byMnemonic[mnemonic]
	return e, ok
}

// FormatOf returns the format bitset for mnemonic, or 0 if unknown.
func (t *Table) FormatOf(mnemonic string) int {
	e, ok := t.byMnemonic[mnemonic]
	if !ok {
		return 0
	}
	return e.Formats
}

// OpcodeOf returns the opcode byte for mnemonic and whether it exists.
func (t *Table) OpcodeOf(mnemonic string) (byte, bool) {
	e, ok := t.byMnemonic[mnemonic]
	if !ok {
		return 0, false
	}
	return e.Opcode, true
}

// ByOpcode reverses OpcodeOf: given an opcode byte whose low 2 bits are
// already cleared (masked with 0xFC), returns the mnemonic the VM should
// execute.
func (t *Table) ByOpcode(opc byte) (string, bool) {
	m, ok := t.byOpcode[opc]
	return m, ok
}

// LoadFile loads an opcode dictionary from the on-disk config format
// described in §6: one entry per line, "<hex-opcode> <MNEMONIC> <formats>",
// formats being digits 1-4 joined by '/'.
func LoadFile(name string) (*Table, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadTable(f)
}

// LoadTable parses the opcode config format from r.
func LoadTable(r io.Reader) (*Table, error) {
	t := New()
	reader := bufio.NewReader(r)
	lineNumber := 0
	for {
		line, err := reader.ReadString('\n')
		lineNumber++
		if len(line) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if err := t.parseLine(line, lineNumber); err != nil {
			return nil, err
		}
		if err != nil && errors.Is(err, io.EOF) {
			break
		}
	}
	return t, nil
}

func (t *Table) parseLine(line string, lineNumber int) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ".") {
		return nil
	}
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return fmt.Errorf("opcode table line %d: expected 3 fields, got %d", lineNumber, len(fields))
	}

	opc, err := strconv.ParseUint(fields[0], 16, 8)
	if err != nil {
		return fmt.Errorf("opcode table line %d: bad opcode %q: %w", lineNumber, fields[0], err)
	}

	mnemonic := strings.ToUpper(fields[1])

	formats := 0
	for _, digit := range strings.Split(fields[2], "/") {
		switch digit {
		case "1":
			formats |= Fmt1
		case "2":
			formats |= Fmt2
		case "3":
			formats |= Fmt3
		case "4":
			formats |= Fmt4
		default:
			return fmt.Errorf("opcode table line %d: bad format digit %q", lineNumber, digit)
		}
	}

	t.Add(Entry{Mnemonic: mnemonic, Opcode: byte(opc), Formats: formats})
	return nil
}

// Standard returns the built-in SIC/XE opcode dictionary, used as a
// fallback when no opcode-table file is configured.
func Standard() *Table {
	t := New()
	for _, e := range standardEntries {
		t.Add(e)
	}
	return t
}

var standardEntries = []Entry{
	{"ADD", 0x18, Fmt3 | Fmt4},
	{"ADDF", 0x58, Fmt3 | Fmt4},
	{"ADDR", 0x90, Fmt2},
	{"AND", 0x40, Fmt3 | Fmt4},
	{"CLEAR", 0xB4, Fmt2},
	{"COMP", 0x28, Fmt3 | Fmt4},
	{"COMPF", 0x88, Fmt3 | Fmt4},
	{"COMPR", 0xA0, Fmt2},
	{"DIV", 0x24, Fmt3 | Fmt4},
	{"DIVF", 0x64, Fmt3 | Fmt4},
	{"DIVR", 0x9C, Fmt2},
	{"FIX", 0xC4, Fmt1},
	{"FLOAT", 0xC0, Fmt1},
	{"HIO", 0xF4, Fmt1},
	{"J", 0x3C, Fmt3 | Fmt4},
	{"JEQ", 0x30, Fmt3 | Fmt4},
	{"JGT", 0x34, Fmt3 | Fmt4},
	{"JLT", 0x38, Fmt3 | Fmt4},
	{"JSUB", 0x48, Fmt3 | Fmt4},
	{"LDA", 0x00, Fmt3 | Fmt4},
	{"LDB", 0x68, Fmt3 | Fmt4},
	{"LDCH", 0x50, Fmt3 | Fmt4},
	{"LDF", 0x70, Fmt3 | Fmt4},
	{"LDL", 0x08, Fmt3 | Fmt4},
	{"LDS", 0x6C, Fmt3 | Fmt4},
	{"LDT", 0x74, Fmt3 | Fmt4},
	{"LDX", 0x04, Fmt3 | Fmt4},
	{"LPS", 0xD0, Fmt3 | Fmt4},
	{"MUL", 0x20, Fmt3 | Fmt4},
	{"MULF", 0x60, Fmt3 | Fmt4},
	{"MULR", 0x98, Fmt2},
	{"NORM", 0xC8, Fmt1},
	{"OR", 0x44, Fmt3 | Fmt4},
	{"RD", 0xD8, Fmt3 | Fmt4},
	{"RMO", 0xAC, Fmt2},
	{"RSUB", 0x4C, Fmt3 | Fmt4},
	{"SHIFTL", 0xA4, Fmt2},
	{"SHIFTR", 0xA8, Fmt2},
	{"SIO", 0xF0, Fmt3 | Fmt4},
	{"SSK", 0xEC, Fmt3 | Fmt4},
	{"STA", 0x0C, Fmt3 | Fmt4},
	{"STB", 0x78, Fmt3 | Fmt4},
	{"STCH", 0x54, Fmt3 | Fmt4},
	{"STF", 0x80, Fmt3 | Fmt4},
	{"STI", 0xD4, Fmt3 | Fmt4},
	{"STL", 0x14, Fmt3 | Fmt4},
	{"STS", 0x7C, Fmt3 | Fmt4},
	{"STSW", 0xE8, Fmt3 | Fmt4},
	{"STT", 0x84, Fmt3 | Fmt4},
	{"STX", 0x10, Fmt3 | Fmt4},
	{"SUB", 0x1C, Fmt3 | Fmt4},
	{"SUBF", 0x5C, Fmt3 | Fmt4},
	{"SUBR", 0x94, Fmt2},
	{"SVC", 0xB0, Fmt2},
	{"TD", 0xE0, Fmt3 | Fmt4},
	{"TIO", 0xF8, Fmt1},
	{"TIX", 0x2C, Fmt3 | Fmt4},
	{"TIXR", 0xB8, Fmt2},
	{"WD", 0xDC, Fmt3 | Fmt4},
}

// RegisterIDs maps register mnemonics to their fixed numeric identifiers.
var RegisterIDs = map[string]int{
	"A":  0,
	"X":  1,
	"L":  2,
	"B":  3,
	"S":  4,
	"T":  5,
	"F":  6,
	"PC": 8,
	"SW": 9,
}
