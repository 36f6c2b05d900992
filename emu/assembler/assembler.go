// Package assembler implements the two-pass SIC/XE assembler: pass 1
// assigns location counters and builds the symbol table, pass 2 emits
// object code and a listing from the pass-1 trace.
package assembler

import (
	"strings"

	"github.com/jihoonsong/sicxe/emu/opcode"
	"github.com/jihoonsong/sicxe/emu/symtab"
)

// ListingRow is one row of the assembly listing: the source line
// alongside its assigned address and emitted object code, if any.
type ListingRow struct {
	LineNo   int
	Locctr   int
	Label    string
	Mnemonic string
	Operands string
	ObjCode  []byte
}

// Result bundles everything one Assemble call produces.
type Result struct {
	Program  *ObjectProgram
	Listing  []ListingRow
	ProgName string
	ProgAddr int
	ProgLen  int
}

// Assemble runs both passes over source against table, using st as
// the symbol table for this assembly. On success st.Save() has been
// called and the returned Result is complete. On failure st's working
// table is left in whatever partial state pass 1 reached, and
// st.LastError() names the failure; the caller must not treat the
// assembly as having produced usable output.
func Assemble(source string, table *opcode.Table, st *symtab.Table) (*Result, error) {
	st.NewTable()
	lines := strings.Split(source, "\n")

	traces, startName, startAddr, progLen, err := pass1(lines, table, st)
	if err != nil {
		if aerr, ok := err.(*symtab.Error); ok {
			st.SetError(aerr)
		}
		return nil, err
	}

	prog, rows, err := pass2(traces, startName, startAddr, progLen, table, st)
	if err != nil {
		return nil, err
	}

	st.Save()

	return &Result{
		Program:  prog,
		Listing:  rows,
		ProgName: startName,
		ProgAddr: startAddr,
		ProgLen:  progLen,
	}, nil
}
