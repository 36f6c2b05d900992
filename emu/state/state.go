// Package state holds the one process-scoped container the REPL
// threads into every command handler: the opcode dictionary, shared
// memory, both symbol tables, the VM, and the last assemble error.
package state

import (
	"github.com/jihoonsong/sicxe/emu/assembler"
	"github.com/jihoonsong/sicxe/emu/extsymtab"
	"github.com/jihoonsong/sicxe/emu/loader"
	"github.com/jihoonsong/sicxe/emu/memory"
	"github.com/jihoonsong/sicxe/emu/opcode"
	"github.com/jihoonsong/sicxe/emu/symtab"
	"github.com/jihoonsong/sicxe/emu/vm"
)

// Session is the single owned instance of all shared subsystem state.
// It has no package-level globals — the REPL creates one Session at
// startup and passes a pointer into every handler, the same shape as
// the teacher's core.Core threaded through parser.ProcessCommand.
type Session struct {
	Table    *opcode.Table
	Mem      *memory.Memory
	Symtab   *symtab.Table
	Ext      *extsymtab.Table
	VM       *vm.VM
	ProgAddr int

	LastAssembleErr error
	LastProgram     *assembler.Result
}

// New builds a Session around an already-loaded opcode dictionary.
func New(table *opcode.Table) *Session {
	mem := memory.New()
	return &Session{
		Table:  table,
		Mem:    mem,
		Symtab: symtab.New(),
		Ext:    extsymtab.New(),
		VM:     vm.New(mem, table),
	}
}

// Assemble runs the assembler over source, recording the last error
// (if any) for later query and, on success, the resulting program.
func (s *Session) Assemble(source string) (*assembler.Result, error) {
	res, err := assembler.Assemble(source, s.Table, s.Symtab)
	s.LastAssembleErr = err
	s.LastProgram = res
	return res, err
}

// Load runs the loader over filenames at the configured program
// address, replacing the external-symbol table and configuring the VM
// with the resulting program extent on success. On failure the VM's
// program extent is cleared, so run refuses until a later Load succeeds.
func (s *Session) Load(filenames []string) (*loader.Result, error) {
	result, err := loader.Load(filenames, s.ProgAddr, s.Mem)
	if err != nil {
		s.VM.ProgStart, s.VM.ProgEnd = 0, 0
		return nil, err
	}
	s.Ext = result.Ext
	s.VM.Configure(result.ProgStart, result.ProgEnd)
	return result, nil
}
