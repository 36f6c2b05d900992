// Package repl implements the SIC/XE toolchain's line-oriented command
// dispatcher, grounded on the teacher's command/parser.ProcessCommand
// tokenizer and prefix-matching idiom, narrowed to the in-scope
// commands the core exposes.
package repl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/jihoonsong/sicxe/emu/assembler"
	"github.com/jihoonsong/sicxe/emu/extsymtab"
	"github.com/jihoonsong/sicxe/emu/state"
	"github.com/jihoonsong/sicxe/emu/vm"
	hexfmt "github.com/jihoonsong/sicxe/util/hex"
)

type cmd struct {
	name     string
	min      int
	process  func(*cmdLine, *state.Session) (bool, error)
	complete func(*cmdLine) []string
}

type cmdLine struct {
	line string
	pos  int
}

var cmdList = []cmd{
	{name: "assemble", min: 1, process: assembleCmd},
	{name: "symbol", min: 2, process: symbolCmd},
	{name: "progaddr", min: 1, process: progaddrCmd},
	{name: "loader", min: 1, process: loaderCmd},
	{name: "bp", min: 2, process: bpCmd},
	{name: "run", min: 1, process: runCmd},
	{name: "help", min: 1, process: helpCmd},
	{name: "quit", min: 1, process: quitCmd},
	{name: "directory", min: 3, process: unsupportedCmd},
	{name: "dump", min: 2, process: unsupportedCmd},
	{name: "edit", min: 2, process: unsupportedCmd},
	{name: "fill", min: 2, process: unsupportedCmd},
	{name: "reset", min: 2, process: unsupportedCmd},
}

// ProcessCommand executes one command line against sess, returning
// whether the REPL should exit.
func ProcessCommand(commandLine string, sess *state.Session) (bool, error) {
	line := cmdLine{line: commandLine}
	command := line.getWord()

	match := matchList(command)
	if len(match) == 0 {
		return false, errors.New("command not found: " + command)
	}
	if len(match) > 1 {
		return false, errors.New("ambiguous command: " + command)
	}

	return match[0].process(&line, sess)
}

// CompleteCmd returns candidate completions for commandLine, used for
// tab completion during line editing.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord()

	if !line.isEOL() && line.line[line.pos] == ' ' {
		line.skipSpace()
		match := matchList(name)
		if len(match) != 1 || match[0].complete == nil {
			return nil
		}
		return match[0].complete(&line)
	}

	matches := matchList(name)
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.name
	}
	return names
}

func matchCommand(m cmd, command string) bool {
	if len(command) > len(m.name) {
		return false
	}
	for i := 0; i < len(command); i++ {
		if m.name[i] != command[i] {
			return false
		}
	}
	return len(command) >= m.min
}

func matchList(command string) []cmd {
	if command == "" {
		return nil
	}
	var match []cmd
	for _, m := range cmdList {
		if matchCommand(m, command) {
			match = append(match, m)
		}
	}
	return match
}

func (l *cmdLine) skipSpace() {
	for l.pos < len(l.line) && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

func (l *cmdLine) isEOL() bool {
	return l.pos >= len(l.line)
}

// getWord returns the next whitespace-delimited, lower-cased token.
func (l *cmdLine) getWord() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.line) && !unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
	return strings.ToLower(l.line[start:l.pos])
}

// rest returns everything remaining on the line, unmodified.
func (l *cmdLine) rest() string {
	l.skipSpace()
	return l.line[l.pos:]
}

// words splits the remainder of the line on whitespace, case-preserved
// (used for filenames, which are not lower-cased).
func (l *cmdLine) words() []string {
	r := l.rest()
	if r == "" {
		return nil
	}
	return strings.Fields(r)
}

func assembleCmd(line *cmdLine, sess *state.Session) (bool, error) {
	args := line.words()
	if len(args) != 1 {
		return false, errors.New("usage: assemble <file.asm>")
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return false, err
	}

	res, err := sess.Assemble(string(src))
	if err != nil {
		fmt.Println("Assembly failed: " + sess.Symtab.ShowError())
		return false, nil
	}

	objPath, lstPath := objectPaths(args[0])
	if err := writeObjectAndListing(res, objPath, lstPath); err != nil {
		return false, err
	}

	for _, l := range res.Program.Lines() {
		fmt.Println(l)
	}
	for _, row := range res.Listing {
		fmt.Println(formatListingRow(row))
	}
	fmt.Printf("Assembly successful: %s, length %d (%s, %s)\n", res.ProgName, res.ProgLen, objPath, lstPath)
	return false, nil
}

// objectPaths derives the object and listing file paths from the
// source path, replacing its extension with .obj/.lst.
func objectPaths(source string) (objPath, lstPath string) {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	return base + ".obj", base + ".lst"
}

// writeObjectAndListing emits the object program and listing files.
// It is only ever called after a successful assembly, so pass-2's
// "discard partial files on error" invariant holds by construction —
// there is nothing to discard because nothing is written until here.
func writeObjectAndListing(res *assembler.Result, objPath, lstPath string) error {
	obj := strings.Join(res.Program.Lines(), "\n") + "\n"
	if err := os.WriteFile(objPath, []byte(obj), 0o644); err != nil {
		return err
	}

	var lst strings.Builder
	for _, row := range res.Listing {
		lst.WriteString(formatListingRow(row))
		lst.WriteByte('\n')
	}
	return os.WriteFile(lstPath, []byte(lst.String()), 0o644)
}

// listingObjCodeColumn is the column the object-code hex is padded to,
// so it lines up across rows regardless of label/mnemonic/operand width.
const listingObjCodeColumn = 40

// formatListingRow renders one assembly listing line: 3-digit line
// number, 4-digit locctr (blank for BASE/NOBASE/END, which assign no
// address), 6-char label, 6-char mnemonic, operands, and the
// object-code hex padded out to a fixed column.
func formatListingRow(row assembler.ListingRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%3d ", row.LineNo)

	switch row.Mnemonic {
	case "BASE", "NOBASE", "END":
		b.WriteString("     ")
	default:
		fmt.Fprintf(&b, "%04X ", row.Locctr)
	}

	fmt.Fprintf(&b, "%-6s %-6s %s", row.Label, row.Mnemonic, formatOperands(row.Operands))

	if len(row.ObjCode) > 0 {
		for b.Len() < listingObjCodeColumn {
			b.WriteByte(' ')
		}
		hexfmt.FormatBytes(&b, false, row.ObjCode)
	}
	return b.String()
}

// formatOperands renders a comma-joined operand pair as "operand1, operand2",
// matching the listing format's ", " separator rather than the assembler's
// internal bare-comma join.
func formatOperands(operands string) string {
	parts := strings.SplitN(operands, ",", 2)
	if len(parts) < 2 {
		return operands
	}
	return parts[0] + ", " + parts[1]
}

func symbolCmd(_ *cmdLine, sess *state.Session) (bool, error) {
	for _, e := range sess.Symtab.Show() {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("%-8s ", e.Name))
		hexfmt.FormatWord24(&b, e.Addr)
		fmt.Println(b.String())
	}
	return false, nil
}

func progaddrCmd(line *cmdLine, sess *state.Session) (bool, error) {
	arg := line.getWord()
	addr, err := strconv.ParseInt(arg, 16, 32)
	if err != nil {
		return false, errors.New("progaddr requires a hex address: " + arg)
	}
	sess.ProgAddr = int(addr)
	return false, nil
}

func loaderCmd(line *cmdLine, sess *state.Session) (bool, error) {
	files := line.words()
	if len(files) < 1 || len(files) > 3 {
		return false, errors.New("usage: loader <f1.obj> [<f2.obj> [<f3.obj>]]")
	}
	result, err := sess.Load(files)
	if err != nil {
		return false, err
	}
	fmt.Printf("Loaded: start %06X end %06X\n", result.ProgStart, result.ProgEnd)
	printLoadMap(result.Ext)
	return false, nil
}

// printLoadMap renders ext's sections and their exported symbols
// followed by the grand total length, per the external-symbol table's
// show behavior.
func printLoadMap(ext *extsymtab.Table) {
	for _, s := range ext.Sections() {
		var b strings.Builder
		fmt.Fprintf(&b, "%-6s ", s.Name)
		hexfmt.FormatWord24(&b, s.Load)
		fmt.Fprintf(&b, " %06X", s.Length)
		fmt.Println(b.String())

		names := make([]string, 0, len(s.Symbols))
		for name := range s.Symbols {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			var sb strings.Builder
			fmt.Fprintf(&sb, "  %-6s ", name)
			hexfmt.FormatWord24(&sb, s.Symbols[name])
			fmt.Println(sb.String())
		}
	}
	fmt.Printf("Total length %06X\n", ext.TotalLength())
}

func bpCmd(line *cmdLine, sess *state.Session) (bool, error) {
	arg := line.getWord()
	switch arg {
	case "":
		for _, addr := range sess.VM.Breaks.List() {
			fmt.Printf("%06X\n", addr)
		}
	case "clear":
		sess.VM.Breaks.Clear()
	default:
		addr, err := strconv.ParseInt(arg, 16, 32)
		if err != nil || addr < 0 || addr > 0xFFFFF {
			return false, errors.New("bp requires clear or a hex address in [0, FFFFF]: " + arg)
		}
		sess.VM.Breaks.Insert(int(addr))
	}
	return false, nil
}

func runCmd(_ *cmdLine, sess *state.Session) (bool, error) {
	if sess.VM.ProgEnd <= sess.VM.ProgStart {
		return false, errors.New("no program loaded")
	}

	reason, err := sess.VM.Run()
	printRegisters(sess.VM)
	if err != nil {
		fmt.Println("Run error: " + err.Error())
		return false, nil
	}
	switch reason {
	case vm.ProgramFinished:
		fmt.Println("Program finished")
	case vm.BreakpointHit:
		fmt.Printf("Breakpoint at %X\n", sess.VM.Regs.PC)
	}
	return false, nil
}

func printRegisters(v *vm.VM) {
	var b strings.Builder
	for _, reg := range []struct {
		name string
		val  int
	}{
		{"A", v.Regs.A}, {"X", v.Regs.X}, {"L", v.Regs.L},
		{"B", v.Regs.B}, {"S", v.Regs.S}, {"T", v.Regs.T}, {"PC", v.Regs.PC},
	} {
		b.WriteString(reg.name)
		b.WriteByte(':')
		hexfmt.FormatWord24(&b, reg.val)
		b.WriteByte(' ')
	}
	fmt.Printf("%sSW:%c\n", b.String(), v.Regs.SW)
}

// commandNames lists every command in cmdList. It is filled by init
// because helpCmd is itself referenced from cmdList's initializer.
var commandNames []string

func init() {
	for _, c := range cmdList {
		commandNames = append(commandNames, c.name)
	}
}

func helpCmd(_ *cmdLine, _ *state.Session) (bool, error) {
	names := append([]string(nil), commandNames...)
	sort.Strings(names)
	fmt.Println("Commands: " + strings.Join(names, ", "))
	return false, nil
}

func quitCmd(_ *cmdLine, _ *state.Session) (bool, error) {
	return true, nil
}

func unsupportedCmd(_ *cmdLine, _ *state.Session) (bool, error) {
	return false, errors.New("not supported")
}
