package repl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jihoonsong/sicxe/emu/assembler"
	"github.com/jihoonsong/sicxe/emu/opcode"
	"github.com/jihoonsong/sicxe/emu/state"
)

func newSession() *state.Session {
	return state.New(opcode.Standard())
}

func TestAssembleAndSymbolCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "copy.asm")
	src := "COPY START 1000\n LDA #5\n RSUB\n END COPY\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sess := newSession()
	quit, err := ProcessCommand("assemble "+path, sess)
	if err != nil {
		t.Fatalf("assemble returned error: %v", err)
	}
	if quit {
		t.Fatal("assemble should not quit the REPL")
	}

	if entries := sess.Symtab.Show(); len(entries) != 1 || entries[0].Name != "COPY" || entries[0].Addr != 0x1000 {
		t.Errorf("saved symbols got: %+v expected: [{COPY 1000}]", entries)
	}

	if _, err := ProcessCommand("symbol", sess); err != nil {
		t.Fatalf("symbol returned error: %v", err)
	}
}

func TestProgaddrAndBreakpointCommands(t *testing.T) {
	sess := newSession()

	if _, err := ProcessCommand("progaddr 4000", sess); err != nil {
		t.Fatalf("progaddr returned error: %v", err)
	}
	if sess.ProgAddr != 0x4000 {
		t.Errorf("ProgAddr got: %X expected: 4000", sess.ProgAddr)
	}

	if _, err := ProcessCommand("bp 4006", sess); err != nil {
		t.Fatalf("bp returned error: %v", err)
	}
	if !sess.VM.Breaks.Has(0x4006) {
		t.Error("breakpoint 4006 not recorded")
	}

	if _, err := ProcessCommand("bp clear", sess); err != nil {
		t.Fatalf("bp clear returned error: %v", err)
	}
	if len(sess.VM.Breaks.List()) != 0 {
		t.Error("bp clear did not empty the breakpoint set")
	}

	if _, err := ProcessCommand("bp gg", sess); err == nil {
		t.Error("bp with an invalid address should have failed")
	}
}

func TestAssembleLoaderAndRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "copy.asm")
	src := "COPY START 0\n LDA #5\n RSUB\n END COPY\n"
	if err := os.WriteFile(srcPath, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sess := newSession()
	if _, err := ProcessCommand("assemble "+srcPath, sess); err != nil {
		t.Fatalf("assemble returned error: %v", err)
	}

	objPath := filepath.Join(dir, "copy.obj")
	if _, err := os.Stat(objPath); err != nil {
		t.Fatalf("assemble did not write object file: %v", err)
	}

	if _, err := ProcessCommand("progaddr 4000", sess); err != nil {
		t.Fatalf("progaddr returned error: %v", err)
	}
	if _, err := ProcessCommand("loader "+objPath, sess); err != nil {
		t.Fatalf("loader returned error: %v", err)
	}
	if sess.VM.ProgStart != 0x4000 {
		t.Errorf("ProgStart got: %X expected: 4000", sess.VM.ProgStart)
	}

	if _, err := ProcessCommand("run", sess); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if sess.VM.Regs.A != 5 {
		t.Errorf("A got: %d expected: 5", sess.VM.Regs.A)
	}
}

func TestRunFailsWithNoProgramLoaded(t *testing.T) {
	sess := newSession()
	if _, err := ProcessCommand("run", sess); err == nil {
		t.Error("run with no program loaded should have failed")
	}
}

func TestUnknownCommandFails(t *testing.T) {
	sess := newSession()
	if _, err := ProcessCommand("bogus", sess); err == nil {
		t.Error("unknown command should have failed")
	}
}

func TestUnsupportedCommandsReportNotSupported(t *testing.T) {
	sess := newSession()
	if _, err := ProcessCommand("dump", sess); err == nil {
		t.Error("dump should report not supported")
	}
}

func TestQuitCommandSignalsExit(t *testing.T) {
	sess := newSession()
	quit, err := ProcessCommand("quit", sess)
	if err != nil {
		t.Fatalf("quit returned error: %v", err)
	}
	if !quit {
		t.Error("quit should signal the REPL to exit")
	}
}

func TestCompleteCmdPrefixes(t *testing.T) {
	matches := CompleteCmd("as")
	if len(matches) != 1 || matches[0] != "assemble" {
		t.Errorf("CompleteCmd(as) got: %v expected: [assemble]", matches)
	}
}

func TestFormatListingRow(t *testing.T) {
	row := assembler.ListingRow{
		LineNo:   10,
		Locctr:   0x1000,
		Label:    "COPY",
		Mnemonic: "LDA",
		Operands: "5,X",
		ObjCode:  []byte{0x01, 0x00, 0x05},
	}
	got := formatListingRow(row)
	want := " 10 1000 COPY   LDA    5, X             010005"
	if got != want {
		t.Errorf("formatListingRow got: %q expected: %q", got, want)
	}
}

func TestFormatListingRowBlanksLocctrForEnd(t *testing.T) {
	row := assembler.ListingRow{LineNo: 20, Mnemonic: "END", Operands: "COPY"}
	got := formatListingRow(row)
	want := " 20             END    COPY"
	if got != want {
		t.Errorf("formatListingRow got: %q expected: %q", got, want)
	}
}
