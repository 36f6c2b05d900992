package opcode

import (
	"strings"
	"testing"
)

func TestStandardLookup(t *testing.T) {
	tbl := Standard()
	e, ok := tbl.Lookup("LDA")
	if !ok {
		t.Fatal("LDA not found in standard table")
	}
	if e.Opcode != 0x00 {
		t.Errorf("LDA opcode got: %02X expected: %02X", e.Opcode, 0x00)
	}
	if e.Formats&Fmt3 == 0 || e.Formats&Fmt4 == 0 {
		t.Errorf("LDA formats got: %v expected fmt3 and fmt4", e.Formats)
	}
}

func TestStandardLookupUnknown(t *testing.T) {
	tbl := Standard()
	if _, ok := tbl.Lookup("NOPE"); ok {
		t.Error("unknown mnemonic reported found")
	}
	if tbl.FormatOf("NOPE") != 0 {
		t.Error("unknown mnemonic reported nonzero formats")
	}
}

func TestByOpcodeReverse(t *testing.T) {
	tbl := Standard()
	m, ok := tbl.ByOpcode(0x4C)
	if !ok || m != "RSUB" {
		t.Errorf("ByOpcode(0x4C) got: %q %v expected: RSUB true", m, ok)
	}
}

func TestCaseSensitiveLookup(t *testing.T) {
	tbl := Standard()
	if _, ok := tbl.Lookup("lda"); ok {
		t.Error("lowercase mnemonic should not match")
	}
}

func TestLoadTableParsesConfig(t *testing.T) {
	const cfg = `# comment line
00 LDA 3/4
4C RSUB 3/4
B4 CLEAR 2
F1 TIO 1
`
	tbl, err := LoadTable(strings.NewReader(cfg))
	if err != nil {
		t.Fatalf("LoadTable returned error: %v", err)
	}
	e, ok := tbl.Lookup("LDA")
	if !ok || e.Opcode != 0x00 || e.Formats != (Fmt3|Fmt4) {
		t.Errorf("LDA entry wrong: %+v ok=%v", e, ok)
	}
	e, ok = tbl.Lookup("CLEAR")
	if !ok || e.Formats != Fmt2 {
		t.Errorf("CLEAR entry wrong: %+v ok=%v", e, ok)
	}
}

func TestLoadTableRejectsBadFormat(t *testing.T) {
	const cfg = "00 LDA 9\n"
	if _, err := LoadTable(strings.NewReader(cfg)); err == nil {
		t.Error("bad format digit did not return error")
	}
}

func TestLoadTableRejectsBadFieldCount(t *testing.T) {
	const cfg = "00 LDA\n"
	if _, err := LoadTable(strings.NewReader(cfg)); err == nil {
		t.Error("missing field did not return error")
	}
}
