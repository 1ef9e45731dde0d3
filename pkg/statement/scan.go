package statement

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// placeholder is one occurrence found by the scanner.
type placeholder struct {
	index  int    // Dollar: the N of $N; Question: ordinal position
	name   string // Named
	offset int
}

// scanResult holds the placeholders found and the statement text with
// literals and comments blanked, used for write classification.
type scanResult struct {
	placeholders []placeholder
	code         string
}

// scan walks the statement once, skipping quoted literals, quoted identifiers
// and comments, and collects placeholders in the dialect's style.
func scan(text string, d Dialect) (scanResult, error) {
	var (
		res      scanResult
		code     strings.Builder
		question int
	)
	code.Grow(len(text))

	i := 0
	for i < len(text) {
		c := text[i]

		if lc := matchPrefix(text[i:], d.LineComments); lc != "" {
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			code.WriteByte(' ')
			i += end
			continue
		}

		if d.BlockComments && strings.HasPrefix(text[i:], "/*") {
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return res, fmt.Errorf("unterminated block comment at offset %d", i)
			}
			code.WriteByte(' ')
			i += end + 4
			continue
		}

		switch {
		case d.StringPlaceholders && c == '"':
			end, err := skipQuoted(text, i, c, true)
			if err != nil {
				return res, err
			}
			ph, err := stringPlaceholder(text, i, end)
			if err != nil {
				return res, err
			}
			if ph != nil {
				res.placeholders = append(res.placeholders, *ph)
			}
			code.WriteString(" '' ")
			i = end
			continue
		case c == '\'' || c == '"' || (c == '`' && d.Backticks):
			end, err := skipQuoted(text, i, c, d.BackslashEscapes && c != '`')
			if err != nil {
				return res, err
			}
			code.WriteString(" '' ")
			i = end
			continue

		case c == '$' && d.DollarQuotes:
			if tag, ok := dollarQuoteTag(text[i:]); ok {
				end := strings.Index(text[i+len(tag):], tag)
				if end < 0 {
					return res, fmt.Errorf("unterminated dollar-quoted string at offset %d", i)
				}
				code.WriteString(" '' ")
				i += len(tag)*2 + end
				continue
			}
		}

		switch d.Style {
		case Dollar:
			if c == '$' {
				j := i + 1
				for j < len(text) && isDigit(text[j]) {
					j++
				}
				if j > i+1 {
					n, err := strconv.Atoi(text[i+1 : j])
					if err != nil || n == 0 {
						return res, fmt.Errorf("invalid placeholder %q at offset %d", text[i:j], i)
					}
					res.placeholders = append(res.placeholders, placeholder{index: n, offset: i})
					code.WriteString(text[i:j])
					i = j
					continue
				}
			}
		case Question:
			if c == '?' {
				question++
				res.placeholders = append(res.placeholders, placeholder{index: question, offset: i})
			}
		case Named:
			if c == '$' {
				j := i + 1
				for j < len(text) && isIdentByte(text[j], j == i+1) {
					j++
				}
				if j > i+1 {
					res.placeholders = append(res.placeholders, placeholder{name: text[i+1 : j], offset: i})
					code.WriteString(text[i:j])
					i = j
					continue
				}
			}
		}

		code.WriteByte(c)
		i++
	}

	res.code = code.String()
	if !d.StringPlaceholders {
		if semi := strings.IndexByte(res.code, ';'); semi >= 0 && strings.Trim(res.code[semi:], "; \t\r\n") != "" {
			return res, errors.New("only one statement is allowed; text continues after ';'")
		}
	}
	return res, nil
}

// stringPlaceholder inspects the JSON string literal text[start:end]. A value
// that is exactly "$name" is a placeholder. Any other use of $name inside a
// string, or a placeholder used as an object key, is rejected because only
// whole string values are substituted.
func stringPlaceholder(text string, start, end int) (*placeholder, error) {
	body := text[start+1 : end-1]
	name := ""
	if len(body) > 1 && body[0] == '$' && isIdent(body[1:]) {
		name = body[1:]
	}
	isKey := strings.HasPrefix(strings.TrimLeft(text[end:], " \t\r\n"), ":")

	switch {
	case name != "" && !isKey:
		return &placeholder{name: name, offset: start + 1}, nil
	case name != "":
		return nil, fmt.Errorf("placeholder %q at offset %d is an object key; only string values are substituted", body, start)
	}
	for j := 0; j+1 < len(body); j++ {
		if body[j] == '$' && isIdentByte(body[j+1], true) {
			k := j + 1
			for k < len(body) && isIdentByte(body[k], false) {
				k++
			}
			return nil, fmt.Errorf("placeholder %q at offset %d must be the whole string value", body[j:k], start)
		}
	}
	return nil, nil
}

func isIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i], i == 0) {
			return false
		}
	}
	return s != ""
}

// skipQuoted returns the offset just past the literal starting at start.
// A doubled quote character inside the literal is an escaped quote.
func skipQuoted(text string, start int, quote byte, backslash bool) (int, error) {
	i := start + 1
	for i < len(text) {
		if backslash && text[i] == '\\' && i+1 < len(text) {
			i += 2
			continue
		}
		if text[i] == quote {
			if i+1 < len(text) && text[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("unterminated quoted text starting at offset %d", start)
}

// dollarQuoteTag recognizes $$ or $tag$ at the start of s.
func dollarQuoteTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	for j := 1; j < len(s); j++ {
		switch {
		case s[j] == '$':
			return s[:j+1], true
		case isIdentByte(s[j], j == 1):
			continue
		default:
			return "", false
		}
	}
	return "", false
}

func matchPrefix(s string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return p
		}
	}
	return ""
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isIdentByte(b byte, first bool) bool {
	if b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') {
		return true
	}
	return !first && isDigit(b)
}
