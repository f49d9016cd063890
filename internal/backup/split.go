package backup

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Splitter reads SQL statements from a script one at a time.
//
// Statements end at a semicolon outside quoted strings, quoted identifiers
// and "--" line comments. Line comments are dropped.
type Splitter struct {
	r                *bufio.Reader
	backslashEscapes bool
	err              error
}

// NewSplitter returns a Splitter over r. When backslashEscapes is set a
// backslash inside a string literal escapes the following character.
func NewSplitter(r io.Reader, backslashEscapes bool) *Splitter {
	return &Splitter{r: bufio.NewReader(r), backslashEscapes: backslashEscapes}
}

// Next returns the next non-empty statement without its terminator.
// It returns io.EOF when the script is exhausted.
func (s *Splitter) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}

	var b strings.Builder
	var quote rune // active quote character, 0 outside quotes

	for {
		c, _, err := s.r.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.err = io.EOF
				if stmt := strings.TrimSpace(b.String()); stmt != "" {
					return stmt, nil
				}
			} else {
				s.err = err
			}
			return "", s.err
		}

		if quote != 0 {
			b.WriteRune(c)
			switch {
			case c == '\\' && quote == '\'' && s.backslashEscapes:
				next, _, err := s.r.ReadRune()
				if err == nil {
					b.WriteRune(next)
				}
			case c == quote:
				// A doubled quote stays inside the literal.
				if next, _, err := s.r.ReadRune(); err == nil {
					if next == quote {
						b.WriteRune(next)
						continue
					}
					_ = s.r.UnreadRune()
				}
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"', '`':
			quote = c
			b.WriteRune(c)
		case '-':
			next, _, err := s.r.ReadRune()
			if err == nil && next == '-' {
				s.skipLine()
				b.WriteByte('\n')
				continue
			}
			b.WriteRune(c)
			if err == nil {
				_ = s.r.UnreadRune()
			}
		case ';':
			if stmt := strings.TrimSpace(b.String()); stmt != "" {
				return stmt, nil
			}
			b.Reset()
		default:
			b.WriteRune(c)
		}
	}
}

func (s *Splitter) skipLine() {
	for {
		c, _, err := s.r.ReadRune()
		if err != nil || c == '\n' {
			return
		}
	}
}

// SplitStatements splits a whole script. See Splitter for the rules.
func SplitStatements(script string, backslashEscapes bool) []string {
	sp := NewSplitter(strings.NewReader(script), backslashEscapes)
	var out []string
	for {
		stmt, err := sp.Next()
		if err != nil {
			return out
		}
		out = append(out, stmt)
	}
}
