package memory

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	m := New()
	data := []byte{0x01, 0x00, 0x05}
	if err := m.Write(0x1000, data); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	got, err := m.Read(0x1000, 3)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Read got: %x expected: %x", got, data)
	}
}

func TestReadWriteOutOfRange(t *testing.T) {
	m := New()
	if _, err := m.Read(Size-1, 2); err == nil {
		t.Error("Read past end of memory did not return error")
	}
	if err := m.Write(Size-1, []byte{1, 2}); err == nil {
		t.Error("Write past end of memory did not return error")
	}
	if _, err := m.Read(-1, 1); err == nil {
		t.Error("Read below memory did not return error")
	}
}

func TestWordRoundTrip(t *testing.T) {
	m := New()
	if err := m.WriteWord(0x2000, 0x00FFAB); err != nil {
		t.Fatalf("WriteWord returned error: %v", err)
	}
	got, err := m.ReadWord(0x2000)
	if err != nil {
		t.Fatalf("ReadWord returned error: %v", err)
	}
	if got != 0x00FFAB {
		t.Errorf("ReadWord got: %06X expected: %06X", got, 0x00FFAB)
	}
}

func TestReadWordSignedNegative(t *testing.T) {
	m := New()
	_ = m.WriteWord(0x3000, 0xFFFFFF) // -1 in 24-bit two's complement.
	v, err := m.ReadWordSigned(0x3000)
	if err != nil {
		t.Fatalf("ReadWordSigned returned error: %v", err)
	}
	if v != -1 {
		t.Errorf("ReadWordSigned got: %d expected: -1", v)
	}
}

func TestModifySixNibbleAdd(t *testing.T) {
	m := New()
	_ = m.WriteWord(0x4000, 0x001000)
	if err := m.Modify(0x4000, 6, '+', 0x000500); err != nil {
		t.Fatalf("Modify returned error: %v", err)
	}
	got, _ := m.ReadWord(0x4000)
	if got != 0x001500 {
		t.Errorf("Modify got: %06X expected: %06X", got, 0x001500)
	}
}

func TestModifyFivePreservesHighNibble(t *testing.T) {
	m := New()
	_ = m.WriteWord(0x5000, 0xF00000) // High nibble set, field zero.
	if err := m.Modify(0x5000, 5, '+', 0x000010); err != nil {
		t.Fatalf("Modify returned error: %v", err)
	}
	got, _ := m.ReadWord(0x5000)
	if got != 0xF00010 {
		t.Errorf("Modify got: %06X expected: %06X", got, 0xF00010)
	}
}

func TestModifySubtractWraps(t *testing.T) {
	m := New()
	_ = m.WriteWord(0x6000, 0x000000)
	if err := m.Modify(0x6000, 6, '-', 1); err != nil {
		t.Fatalf("Modify returned error: %v", err)
	}
	got, _ := m.ReadWord(0x6000)
	if got != 0xFFFFFF {
		t.Errorf("Modify wraparound got: %06X expected: %06X", got, 0xFFFFFF)
	}
}

func TestModifyUnsupportedLength(t *testing.T) {
	m := New()
	if err := m.Modify(0, 4, '+', 1); err == nil {
		t.Error("Modify with unsupported length did not return error")
	}
}
