package assembler

import "strings"

// line is one parsed source line: either a comment, or
// [label] mnemonic [operand1[, operand2]], with the `+` extended
// prefix split out of the mnemonic per Design Notes §9.
type line struct {
	raw       string
	isComment bool
	isBlank   bool
	label     string
	mnemonic  string
	extended  bool
	operands  []string
}

// directives is the set of assembler directive mnemonics.
var directives = map[string]bool{
	"START": true,
	"END":   true,
	"BYTE":  true,
	"WORD":  true,
	"RESB":  true,
	"RESW":  true,
	"BASE":  true,
	"NOBASE": true,
}

// parseLine splits raw into its fields. isKnownMnemonic decides
// whether the first token is a label or a mnemonic.
func parseLine(raw string, isKnownMnemonic func(string) bool) line {
	l := line{raw: raw}

	trimmed := strings.TrimRight(raw, "\r\n")
	noLeading := strings.TrimLeft(trimmed, " \t")
	if noLeading == "" {
		l.isBlank = true
		return l
	}
	if noLeading[0] == '.' {
		l.isComment = true
		return l
	}

	tok1, rest1 := splitToken(noLeading)
	tok2, rest2 := splitToken(rest1)

	if isKnownMnemonic(tok1) {
		l.mnemonic, l.extended = stripExtended(tok1)
		l.operands = splitOperands(strings.TrimSpace(rest1))
		return l
	}

	l.label = tok1
	l.mnemonic, l.extended = stripExtended(tok2)
	l.operands = splitOperands(strings.TrimSpace(rest2))
	return l
}

func stripExtended(tok string) (string, bool) {
	if strings.HasPrefix(tok, "+") {
		return tok[1:], true
	}
	return tok, false
}

// splitToken returns the first whitespace-delimited token and the
// remainder of s after it.
func splitToken(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// splitOperands splits an operand field on top-level commas, ignoring
// commas inside C'...' or X'...' literals.
func splitOperands(field string) []string {
	if field == "" {
		return nil
	}
	var out []string
	inQuote := false
	start := 0
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case '\'':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				out = append(out, strings.TrimSpace(field[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(field[start:]))
	return out
}
