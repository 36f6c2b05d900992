// Package symtab implements the assembler's per-assembly symbol
// table: a working table under construction by the current pass and a
// saved table reflecting the last successful assembly.
package symtab

import (
	"sort"
	"strconv"
	"strings"

	op "github.com/jihoonsong/sicxe/emu/opcode"
)

// ErrorKind names the kinds of error the symbol table (and the
// assembler passes that drive it) can record.
type ErrorKind int

const (
	DuplicateSymbol ErrorKind = iota
	InvalidOpcode
	InvalidOperand
	RequiredOneOperand
	RequiredTwoOperands
	MissingEnd
)

func (k ErrorKind) String() string {
	switch k {
	case DuplicateSymbol:
		return "DUPLICATE_SYMBOL"
	case InvalidOpcode:
		return "INVALID_OPCODE"
	case InvalidOperand:
		return "INVALID_OPERAND"
	case RequiredOneOperand:
		return "REQUIRED_ONE_OPERAND"
	case RequiredTwoOperands:
		return "REQUIRED_TWO_OPERANDS"
	case MissingEnd:
		return "MISSING_END"
	default:
		return "UNKNOWN"
	}
}

// Error is the sum-type error record carried by a symbol table. Only
// one is held at a time; a later error overwrites an earlier one.
type Error struct {
	Kind  ErrorKind
	Line  int
	Token string
}

func (e *Error) Error() string {
	return e.Kind.String() + " at line " + strconv.Itoa(e.Line) + ": " + e.Token
}

// Table is the symbol table for one assembly session: a working map
// under construction and a saved map from the last successful pass.
type Table struct {
	working map[string]int
	saved   map[string]int
	lastErr *Error
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{
		working: make(map[string]int),
		saved:   make(map[string]int),
	}
}

// NewTable clears the working table, starting a new assembly.
func (t *Table) NewTable() {
	t.working = make(map[string]int)
	t.lastErr = nil
}

// isValidName reports whether name is a legal SIC/XE symbol: upper-case
// letters/digits, starting with a letter.
func isValidName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] < 'A' || name[0] > 'Z' {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// Insert adds name->locctr to the working table. It fails if name
// already exists in the working table or names a register.
func (t *Table) Insert(name string, locctr int) error {
	if _, isReg := op.RegisterIDs[name]; isReg {
		return &Error{Kind: InvalidOperand, Token: name}
	}
	if _, exists := t.working[name]; exists {
		return &Error{Kind: DuplicateSymbol, Token: name}
	}
	t.working[name] = locctr
	return nil
}

// Lookup resolves name, consulting registers first, then the working
// table. ok is false if name is neither a register nor a working symbol.
func (t *Table) Lookup(name string) (addr int, ok bool) {
	if id, isReg := op.RegisterIDs[name]; isReg {
		return id, true
	}
	addr, ok = t.working[name]
	return addr, ok
}

// Save atomically replaces the saved table with the working table and
// clears working, completing a successful assembly.
func (t *Table) Save() {
	t.saved = t.working
	t.working = make(map[string]int)
}

// Entry is one row of Show's output.
type Entry struct {
	Name string
	Addr int
}

// Show returns the saved table's entries in a stable order: bucketed
// by first character, alphabetical within a bucket.
func (t *Table) Show() []Entry {
	names := make([]string, 0, len(t.saved))
	for name := range t.saved {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		bi, bj := names[i][0], names[j][0]
		if bi != bj {
			return bi < bj
		}
		return strings.Compare(names[i], names[j]) < 0
	})
	out := make([]Entry, 0, len(names))
	for _, name := range names {
		out = append(out, Entry{Name: name, Addr: t.saved[name]})
	}
	return out
}

// SetError records the latest assembler error, overwriting any prior one.
func (t *Table) SetError(err *Error) {
	t.lastErr = err
}

// LastError returns the most recently recorded error, or nil.
func (t *Table) LastError() *Error {
	return t.lastErr
}

// ShowError formats the last recorded error, or "no error" if none.
func (t *Table) ShowError() string {
	if t.lastErr == nil {
		return "no error"
	}
	return t.lastErr.Error()
}
