// Package loader implements the two-pass linking loader: pass 1 lays
// out control sections and their exported symbols, pass 2 writes
// object bytes into memory and applies relocation.
package loader

import (
	"bufio"
	"fmt"
	"os"

	"github.com/jihoonsong/sicxe/emu/extsymtab"
	"github.com/jihoonsong/sicxe/emu/memory"
)

// ErrorKind names the fatal conditions the loader can hit.
type ErrorKind int

const (
	MissingFile ErrorKind = iota
	WrongFileCount
	WriteOutOfRange
	UnresolvedExternal
	MalformedRecord
)

func (k ErrorKind) String() string {
	switch k {
	case MissingFile:
		return "MISSING_FILE"
	case WrongFileCount:
		return "WRONG_FILE_COUNT"
	case WriteOutOfRange:
		return "WRITE_OUT_OF_RANGE"
	case UnresolvedExternal:
		return "UNRESOLVED_EXTERNAL"
	case MalformedRecord:
		return "MALFORMED_RECORD"
	default:
		return "UNKNOWN"
	}
}

// Error is the loader's sum-type error, naming which file and record
// line triggered the fatal condition.
type Error struct {
	Kind ErrorKind
	File string
	Line int
	Text string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s line %d: %s", e.Kind, e.File, e.Line, e.Text)
}

// Result is what a successful Load produces: the populated
// external-symbol table and the program's run extent.
type Result struct {
	Ext       *extsymtab.Table
	ProgStart int
	ProgEnd   int
}

// Load runs both loader passes over filenames in order, writing object
// bytes into mem starting at progAddr. On any fatal condition it
// returns early; mem may hold a partial write, and the caller must
// treat the load as failed (a fresh Load is required before running).
func Load(filenames []string, progAddr int, mem *memory.Memory) (*Result, error) {
	if len(filenames) < 1 || len(filenames) > 3 {
		return nil, &Error{Kind: WrongFileCount, Text: fmt.Sprintf("got %d files, want 1-3", len(filenames))}
	}

	files := make([][]string, len(filenames))
	for i, name := range filenames {
		lines, err := readLines(name)
		if err != nil {
			return nil, &Error{Kind: MissingFile, File: name, Text: err.Error()}
		}
		files[i] = lines
	}

	ext := extsymtab.New()
	load := progAddr
	for i, name := range filenames {
		length, err := pass1(files[i], name, load, ext)
		if err != nil {
			return nil, err
		}
		load += length
	}
	progEnd := load

	load = progAddr
	for i, name := range filenames {
		length, err := pass2(files[i], name, load, ext, mem)
		if err != nil {
			return nil, err
		}
		load += length
	}

	return &Result{Ext: ext, ProgStart: progAddr, ProgEnd: progEnd}, nil
}

func readLines(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// pass1 reads one file's H/D/E records, appending a section to ext and
// returning its length.
func pass1(lines []string, file string, load int, ext *extsymtab.Table) (int, error) {
	if len(lines) == 0 {
		return 0, &Error{Kind: MalformedRecord, File: file, Line: 1, Text: "empty file"}
	}

	h, err := parseHeader(lines[0])
	if err != nil {
		return 0, &Error{Kind: MalformedRecord, File: file, Line: 1, Text: err.Error()}
	}
	ext.InsertSection(h.name, load, h.length)

	for i := 1; i < len(lines); i++ {
		raw := lines[i]
		if raw == "" {
			continue
		}
		switch raw[0] {
		case 'E':
			return h.length, nil
		case 'D':
			defs, err := parseDefine(raw)
			if err != nil {
				return 0, &Error{Kind: MalformedRecord, File: file, Line: i + 1, Text: err.Error()}
			}
			for _, d := range defs {
				ext.InsertSymbol(h.name, d.name, load+d.addr)
			}
		default:
			// T, M, and anything else: irrelevant to layout.
		}
	}
	return 0, &Error{Kind: MalformedRecord, File: file, Line: len(lines), Text: "missing E record"}
}

// pass2 reads one file's H/R/T/M/E records, writing object bytes into
// mem and applying relocation via the reference vector.
func pass2(lines []string, file string, load int, ext *extsymtab.Table, mem *memory.Memory) (int, error) {
	h, err := parseHeader(lines[0])
	if err != nil {
		return 0, &Error{Kind: MalformedRecord, File: file, Line: 1, Text: err.Error()}
	}

	refs := map[int]int{1: load}

	for i := 1; i < len(lines); i++ {
		raw := lines[i]
		if raw == "" {
			continue
		}
		lineNo := i + 1
		switch raw[0] {
		case 'E':
			return h.length, nil
		case 'D':
			// Ignored in pass 2; already applied to the symbol table.
		case 'R':
			entries, err := parseRefer(raw)
			if err != nil {
				return 0, &Error{Kind: MalformedRecord, File: file, Line: lineNo, Text: err.Error()}
			}
			for _, r := range entries {
				if r.index < 2 {
					return 0, &Error{Kind: MalformedRecord, File: file, Line: lineNo, Text: fmt.Sprintf("R entry index %02d", r.index)}
				}
				addr, ok := ext.AddressOf(r.name)
				if !ok {
					return 0, &Error{Kind: UnresolvedExternal, File: file, Line: lineNo, Text: r.name}
				}
				refs[r.index] = addr
			}
		case 'T':
			t, err := parseText(raw)
			if err != nil {
				return 0, &Error{Kind: MalformedRecord, File: file, Line: lineNo, Text: err.Error()}
			}
			if err := mem.Write(load+t.addr, t.data); err != nil {
				return 0, &Error{Kind: WriteOutOfRange, File: file, Line: lineNo, Text: err.Error()}
			}
		case 'M':
			m, err := parseModify(raw)
			if err != nil {
				return 0, &Error{Kind: MalformedRecord, File: file, Line: lineNo, Text: err.Error()}
			}
			ref, ok := refs[m.ref]
			if !ok {
				return 0, &Error{Kind: UnresolvedExternal, File: file, Line: lineNo, Text: fmt.Sprintf("ref %02d", m.ref)}
			}
			if err := mem.Modify(load+m.addr, m.length, m.sign, ref); err != nil {
				return 0, &Error{Kind: WriteOutOfRange, File: file, Line: lineNo, Text: err.Error()}
			}
		default:
			// Comment or unrecognized record type: ignore.
		}
	}
	return 0, &Error{Kind: MalformedRecord, File: file, Line: len(lines), Text: "missing E record"}
}
