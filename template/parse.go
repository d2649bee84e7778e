package template

import (
	"fmt"
	"strings"
)

type segKind int

const (
	segText  segKind = iota
	segValue         // :ref
	segIn            // :ref inside IN ( ... ), one marker per element
	segTable         // #table
)

type segment struct {
	kind segKind
	text string // literal text, or the reference for value and in segments
}

const tableName = "table"

// lexer states
const (
	sText = iota
	sSQ   // '...'
	sDQ   // "..."
	sBT   // `...`
	sLC   // -- ...
	sBC   // /* ... */
)

// parse splits text into literal and placeholder segments. Quoted strings,
// quoted identifiers, comments and :: casts are kept verbatim.
func parse(q string) ([]segment, error) {
	var (
		segs  []segment
		buf   strings.Builder
		state = sText
	)
	flush := func() {
		if buf.Len() > 0 {
			segs = append(segs, segment{kind: segText, text: buf.String()})
			buf.Reset()
		}
	}

	for i := 0; i < len(q); {
		c := q[i]
		switch state {
		case sText:
			switch {
			case c == '\'':
				state = sSQ
			case c == '"':
				state = sDQ
			case c == '`':
				state = sBT
			case c == '-' && i+1 < len(q) && q[i+1] == '-':
				state = sLC
			case c == '/' && i+1 < len(q) && q[i+1] == '*':
				state = sBC
				buf.WriteString("/*")
				i += 2
				continue
			case c == ':' && i+1 < len(q) && q[i+1] == ':':
				buf.WriteString("::")
				i += 2
				continue
			case c == ':' && i+1 < len(q) && isIdent(q[i+1]) && (i == 0 || !isIdent(q[i-1])):
				ref, end := scanRef(q, i+1)
				kind := segValue
				if opensIn(buf.String()) && closesIn(q[end:]) {
					kind = segIn
				}
				flush()
				segs = append(segs, segment{kind: kind, text: ref})
				i = end
				continue
			case c == '#':
				if n := matchTable(q[i:]); n > 0 {
					flush()
					segs = append(segs, segment{kind: segTable})
					i += n
					continue
				}
			}
			buf.WriteByte(c)
			i++

		case sSQ, sDQ, sBT:
			quote := quoteOf(state)
			buf.WriteByte(c)
			i++
			if c == '\\' && state != sBT && i < len(q) {
				buf.WriteByte(q[i])
				i++
				continue
			}
			if c == quote {
				if i < len(q) && q[i] == quote {
					buf.WriteByte(q[i])
					i++
				} else {
					state = sText
				}
			}

		case sLC:
			buf.WriteByte(c)
			i++
			if c == '\n' {
				state = sText
			}

		case sBC:
			buf.WriteByte(c)
			i++
			if c == '*' && i < len(q) && q[i] == '/' {
				buf.WriteByte('/')
				i++
				state = sText
			}
		}
	}

	switch state {
	case sSQ, sDQ, sBT:
		return nil, fmt.Errorf("unterminated quoted text")
	case sBC:
		return nil, fmt.Errorf("unterminated block comment")
	}
	flush()
	return segs, nil
}

func quoteOf(state int) byte {
	switch state {
	case sDQ:
		return '"'
	case sBT:
		return '`'
	}
	return '\''
}

func isIdent(c byte) bool {
	return c == '_' || isLetter(c) || isDigit(c)
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// scanRef reads name(.name)* starting at i and returns it with the end offset.
func scanRef(q string, i int) (string, int) {
	start := i
	for i < len(q) {
		if isIdent(q[i]) {
			i++
			continue
		}
		if q[i] == '.' && i+1 < len(q) && isIdent(q[i+1]) {
			i++
			continue
		}
		break
	}
	return q[start:i], i
}

// matchTable returns the length of a #table or #{table} marker at the start of s.
func matchTable(s string) int {
	if strings.HasPrefix(s, "#{"+tableName+"}") {
		return len(tableName) + 3
	}
	if strings.HasPrefix(s, "#"+tableName) && (len(s) == len(tableName)+1 || !isIdent(s[len(tableName)+1])) {
		return len(tableName) + 1
	}
	return 0
}

// opensIn reports whether text ends with the keyword IN and an open parenthesis.
func opensIn(text string) bool {
	t := strings.TrimRight(text, " \t\r\n")
	if !strings.HasSuffix(t, "(") {
		return false
	}
	t = strings.TrimRight(t[:len(t)-1], " \t\r\n")
	if len(t) < 2 || !strings.EqualFold(t[len(t)-2:], "in") {
		return false
	}
	return len(t) == 2 || !isIdent(t[len(t)-3])
}

func closesIn(rest string) bool {
	return strings.HasPrefix(strings.TrimLeft(rest, " \t\r\n"), ")")
}

// firstKeyword returns the upper-cased first word, skipping whitespace,
// comments and opening parentheses.
func firstKeyword(q string) string {
	i := 0
	for i < len(q) {
		switch {
		case q[i] == ' ' || q[i] == '\t' || q[i] == '\r' || q[i] == '\n' || q[i] == '(':
			i++
		case strings.HasPrefix(q[i:], "--"):
			nl := strings.IndexByte(q[i:], '\n')
			if nl < 0 {
				return ""
			}
			i += nl + 1
		case strings.HasPrefix(q[i:], "/*"):
			end := strings.Index(q[i+2:], "*/")
			if end < 0 {
				return ""
			}
			i += end + 4
		default:
			j := i
			for j < len(q) && isLetter(q[j]) {
				j++
			}
			return strings.ToUpper(q[i:j])
		}
	}
	return ""
}

// modifiesData reports whether q contains a data-modifying statement at any
// depth, as a CTE body or as the main statement of a WITH query. UPDATE in
// a FOR UPDATE or FOR NO KEY UPDATE locking clause does not count.
func modifiesData(q string) bool {
	prev := ""
	for i := 0; i < len(q); {
		c := q[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for j < len(q) {
				if q[j] == c {
					if j+1 < len(q) && q[j+1] == c {
						j += 2
						continue
					}
					break
				}
				j++
			}
			i = j + 1
		case strings.HasPrefix(q[i:], "--"):
			nl := strings.IndexByte(q[i:], '\n')
			if nl < 0 {
				return false
			}
			i += nl + 1
		case strings.HasPrefix(q[i:], "/*"):
			end := strings.Index(q[i+2:], "*/")
			if end < 0 {
				return false
			}
			i += end + 4
		case isLetter(c):
			j := i
			for j < len(q) && (isLetter(q[j]) || q[j] >= '0' && q[j] <= '9') {
				j++
			}
			word := strings.ToUpper(q[i:j])
			switch word {
			case "INSERT", "DELETE", "MERGE":
				return true
			case "UPDATE":
				if prev != "FOR" && prev != "KEY" {
					return true
				}
			}
			prev = word
			i = j
		default:
			i++
		}
	}
	return false
}
