package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jihoonsong/sicxe/emu/memory"
)

func writeObj(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadExternalReferenceAndModification(t *testing.T) {
	dir := t.TempDir()

	progA := writeObj(t, dir, "proga.obj", []string{
		"HPROGA 000000000004",
		"R02PROGB ",
		"T000000044B100000",
		"M00000105+02",
		"E000000",
	})
	progB := writeObj(t, dir, "progb.obj", []string{
		"HPROGB 000000000003",
		"T000000034C0000",
		"E000000",
	})

	mem := memory.New()
	res, err := Load([]string{progA, progB}, 0x4000, mem)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if res.ProgStart != 0x4000 || res.ProgEnd != 0x4007 {
		t.Errorf("extent got: %X..%X expected: 4000..4007", res.ProgStart, res.ProgEnd)
	}

	bytes, err := mem.Read(0x4000, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []byte{0x4B, 0x10, 0x40, 0x04}
	for i := range want {
		if bytes[i] != want[i] {
			t.Errorf("byte %d got: %02X expected: %02X (full: %X)", i, bytes[i], want[i], bytes)
		}
	}

	if addr, ok := res.Ext.AddressOf("PROGB"); !ok || addr != 0x4004 {
		t.Errorf("AddressOf(PROGB) got: %X %v expected: 4004 true", addr, ok)
	}
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	mem := memory.New()
	_, err := Load([]string{"/nonexistent/path.obj"}, 0, mem)
	if err == nil {
		t.Fatal("expected MISSING_FILE error")
	}
	if lerr, ok := err.(*Error); !ok || lerr.Kind != MissingFile {
		t.Errorf("expected MissingFile, got %v", err)
	}
}

func TestLoadWrongFileCountIsFatal(t *testing.T) {
	mem := memory.New()
	if _, err := Load(nil, 0, mem); err == nil {
		t.Fatal("expected WRONG_FILE_COUNT for zero files")
	}
	many := []string{"a", "b", "c", "d"}
	if _, err := Load(many, 0, mem); err == nil {
		t.Fatal("expected WRONG_FILE_COUNT for four files")
	}
}

func TestLoadUnresolvedExternalIsFatal(t *testing.T) {
	dir := t.TempDir()
	prog := writeObj(t, dir, "prog.obj", []string{
		"HPROG  000000000004",
		"R02NOPE  ",
		"T000000044B100000",
		"E000000",
	})
	mem := memory.New()
	_, err := Load([]string{prog}, 0, mem)
	if err == nil {
		t.Fatal("expected UNRESOLVED_EXTERNAL error")
	}
	if lerr, ok := err.(*Error); !ok || lerr.Kind != UnresolvedExternal {
		t.Errorf("expected UnresolvedExternal, got %v", err)
	}
}

func TestLoadWriteOutOfRangeIsFatal(t *testing.T) {
	dir := t.TempDir()
	// T record addr pushes the write past the 1 MiB memory ceiling.
	prog := writeObj(t, dir, "prog.obj", []string{
		"HPROG  000000000001",
		"TFFFFF8014C",
		"E000000",
	})
	mem := memory.New()
	_, err := Load([]string{prog}, 0, mem)
	if err == nil {
		t.Fatal("expected WRITE_OUT_OF_RANGE error")
	}
	if lerr, ok := err.(*Error); !ok || lerr.Kind != WriteOutOfRange {
		t.Errorf("expected WriteOutOfRange, got %v", err)
	}
}

func TestLoadMalformedRecordIsFatal(t *testing.T) {
	dir := t.TempDir()
	prog := writeObj(t, dir, "prog.obj", []string{
		"HPROG  000000000003",
		"TNOTHEX",
		"E000000",
	})
	mem := memory.New()
	_, err := Load([]string{prog}, 0, mem)
	if err == nil {
		t.Fatal("expected MALFORMED_RECORD error")
	}
	if lerr, ok := err.(*Error); !ok || lerr.Kind != MalformedRecord {
		t.Errorf("expected MalformedRecord, got %v", err)
	}
}
