package assembler

import "fmt"

// maxTextRecordBytes is the object-code byte ceiling per text record
// (0x1E bytes, 60 hex characters).
const maxTextRecordBytes = 0x1E

// textRecord accumulates object-code bytes for one T record.
type textRecord struct {
	start int
	data  []byte
}

func (r textRecord) String() string {
	s := fmt.Sprintf("T%06X%02X", r.start, len(r.data))
	for _, b := range r.data {
		s += fmt.Sprintf("%02X", b)
	}
	return s
}

// ObjectProgram is the assembled output: one H record, the T records
// in emission order, the M records, and the E record.
type ObjectProgram struct {
	Name    string
	Start   int
	Length  int
	Texts   []string
	Mods    []string
	EndAddr int
}

// Lines renders the object program as H/T/M/E record lines, in file order.
func (p *ObjectProgram) Lines() []string {
	out := make([]string, 0, 2+len(p.Texts)+len(p.Mods))
	out = append(out, fmt.Sprintf("H%-6s%06X%06X", p.Name, p.Start, p.Length))
	out = append(out, p.Texts...)
	out = append(out, p.Mods...)
	out = append(out, fmt.Sprintf("E%06X", p.EndAddr))
	return out
}

// recordBuilder accumulates text records during pass 2, applying the
// flush-before-overflow policy.
type recordBuilder struct {
	cur   *textRecord
	texts []string
}

// emit appends bytes for the instruction/data at addr, flushing the
// current text record first if appending would exceed the byte ceiling.
func (b *recordBuilder) emit(addr int, bytes []byte) {
	if b.cur != nil && len(b.cur.data)+len(bytes) > maxTextRecordBytes {
		b.flush()
	}
	if b.cur == nil {
		b.cur = &textRecord{start: addr}
	}
	b.cur.data = append(b.cur.data, bytes...)
}

// flush closes out the current text record, if any.
func (b *recordBuilder) flush() {
	if b.cur == nil || len(b.cur.data) == 0 {
		b.cur = nil
		return
	}
	b.texts = append(b.texts, b.cur.String())
	b.cur = nil
}
