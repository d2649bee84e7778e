package page

import (
	"fmt"
	"strings"

	"github.com/Konsultn-Engineering/sqlmap/template"
)

// Handler rewrites rendered statements for paging.
type Handler interface {
	// PageAndSort appends ORDER BY and LIMIT/OFFSET for p in place.
	PageAndSort(stmt *template.Statement, p *Page) error
	// CountOnly returns a statement counting the rows stmt would return
	// without paging. stmt is left untouched.
	CountOnly(stmt *template.Statement) (*template.Statement, error)
}

// LimitOffsetHandler pages with LIMIT n OFFSET m, which postgres, mysql,
// tidb and sqlite all accept.
type LimitOffsetHandler struct{}

// NewHandler returns the default handler.
func NewHandler() Handler { return LimitOffsetHandler{} }

// PageAndSort extends an existing top-level ORDER BY with the page's sort
// keys. Statements that already limit their rows cannot be paged.
func (LimitOffsetHandler) PageAndSort(stmt *template.Statement, p *Page) error {
	if p == nil {
		return nil
	}
	if err := p.Validate(); err != nil {
		return err
	}

	sql := trimStatement(stmt.SQL)
	words, err := scanTopLevel(sql)
	if err != nil {
		return err
	}
	ordered, tail := false, len(sql)
	for i, w := range words {
		switch {
		case w.word == "ORDER" && i+1 < len(words) && words[i+1].word == "BY":
			ordered = true
		case w.word == "LIMIT" || w.word == "OFFSET" || w.word == "FETCH":
			if p.Size > 0 {
				return fmt.Errorf("cannot page a statement that has its own %s", w.word)
			}
			tail = min(tail, w.start)
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(sql[:tail]))
	if len(p.Sort) > 0 {
		if ordered {
			sb.WriteString(", ")
		} else {
			sb.WriteString(" ORDER BY ")
		}
		for i, o := range p.Sort {
			if i > 0 {
				sb.WriteString(", ")
			}
			dir := o.Direction
			if dir == "" {
				dir = Asc
			}
			sb.WriteString(o.Column)
			sb.WriteByte(' ')
			sb.WriteString(string(dir))
		}
	}
	if tail < len(sql) {
		sb.WriteByte(' ')
		sb.WriteString(sql[tail:])
	}
	if p.Size > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", p.Size, p.Offset()))
	}
	stmt.SQL = sb.String()
	return nil
}

func (LimitOffsetHandler) CountOnly(stmt *template.Statement) (*template.Statement, error) {
	sql := trimStatement(stmt.SQL)
	words, err := scanTopLevel(sql)
	if err != nil {
		return nil, err
	}

	tail := len(sql)
	for i, w := range words {
		if (w.word == "ORDER" && i+1 < len(words) && words[i+1].word == "BY") ||
			w.word == "LIMIT" || w.word == "OFFSET" || w.word == "FETCH" {
			tail = w.start
			break
		}
	}
	body := strings.TrimSpace(sql[:tail])
	dropped := countMarkers(sql[tail:])
	if dropped > len(stmt.Args) {
		return nil, fmt.Errorf("count statement: %d markers removed but only %d arguments", dropped, len(stmt.Args))
	}
	args := make([]any, len(stmt.Args)-dropped)
	copy(args, stmt.Args)

	from := -1
	wrap := len(words) == 0 || words[0].word != "SELECT"
	for i, w := range words {
		if w.start >= tail {
			break
		}
		switch w.word {
		case "DISTINCT":
			if i == 1 {
				wrap = true
			}
		case "GROUP", "HAVING", "UNION", "INTERSECT", "EXCEPT":
			wrap = true
		case "FROM":
			if from < 0 {
				from = w.start
			}
		}
	}
	if from < 0 || countMarkers(sql[:from]) > 0 {
		wrap = true
	}

	if wrap {
		return &template.Statement{SQL: "SELECT COUNT(*) FROM (" + body + ") count_", Args: args}, nil
	}
	return &template.Statement{SQL: "SELECT COUNT(*) " + strings.TrimSpace(sql[from:tail]), Args: args}, nil
}

func trimStatement(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \t\r\n")
}

type token struct {
	word  string // upper-cased
	start int
}

// scanTopLevel returns the keywords at parenthesis depth zero, outside
// quotes and comments.
func scanTopLevel(sql string) ([]token, error) {
	var out []token
	depth := 0
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(sql, i)
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote at offset %d", i)
			}
			i = end
		case strings.HasPrefix(sql[i:], "--"):
			nl := strings.IndexByte(sql[i:], '\n')
			if nl < 0 {
				i = len(sql)
			} else {
				i += nl + 1
			}
		case strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment at offset %d", i)
			}
			i += end + 4
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case isWordByte(c):
			j := i
			for j < len(sql) && (isWordByte(sql[j]) || sql[j] >= '0' && sql[j] <= '9') {
				j++
			}
			if depth == 0 {
				out = append(out, token{word: strings.ToUpper(sql[i:j]), start: i})
			}
			i = j
		default:
			i++
		}
	}
	return out, nil
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// skipQuoted returns the offset just past the quoted run starting at i, or -1.
func skipQuoted(sql string, i int) int {
	q := sql[i]
	for j := i + 1; j < len(sql); j++ {
		switch sql[j] {
		case '\\':
			if q != '`' {
				j++
			}
		case q:
			if j+1 < len(sql) && sql[j+1] == q {
				j++
				continue
			}
			return j + 1
		}
	}
	return -1
}

// countMarkers counts ? and $n bind markers outside quotes.
func countMarkers(sql string) int {
	n := 0
	for i := 0; i < len(sql); i++ {
		switch c := sql[i]; {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(sql, i)
			if end < 0 {
				return n
			}
			i = end - 1
		case c == '?':
			n++
		case c == '$' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9':
			n++
			for i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9' {
				i++
			}
		}
	}
	return n
}

