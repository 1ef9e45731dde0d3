// Package statement compiles templated tool statements into positional or
// named executable plans and binds validated arguments into them.
//
// The compiler treats statement text as an opaque template: it reconciles
// placeholders with declared parameters and never splices argument values
// into the text.
package statement

import (
	"regexp"
	"strings"
)

// Style is the placeholder style a backend understands.
type Style int

// Placeholder styles.
const (
	// Dollar is $1, $2, ... bound by declaration order (PostgreSQL).
	Dollar Style = iota + 1
	// Question is ? bound strictly by declaration order (SQLite, Trino).
	Question
	// Named is $name bound through a variable map (Cypher, DQL).
	Named
)

func (s Style) String() string {
	switch s {
	case Dollar:
		return "dollar"
	case Question:
		return "question"
	case Named:
		return "named"
	default:
		return "unknown"
	}
}

// Dialect describes the lexical rules the placeholder scanner needs for one
// backend language.
type Dialect struct {
	Name          string
	Style         Style
	LineComments  []string
	BlockComments bool
	DollarQuotes  bool
	Backticks     bool

	// BackslashEscapes marks \ as an escape inside quoted literals.
	BackslashEscapes bool

	// StringPlaceholders finds placeholders inside double-quoted strings,
	// for JSON templates whose string leaves are "$name".
	StringPlaceholders bool

	// StrictArity forbids declared parameters that no placeholder consumes,
	// regardless of the unused-parameter policy.
	StrictArity bool

	// Writes reports whether the literal-free statement text mutates state.
	Writes func(code string) bool

	// ContainsWrite reports a write keyword anywhere in the literal-free
	// text, including nested in a CTE or subquery. Read-only tools are
	// checked with it in addition to Writes.
	ContainsWrite func(code string) bool
}

func (d Dialect) writesAnywhere(code string) bool {
	return d.ContainsWrite != nil && d.ContainsWrite(code)
}

// Built-in dialects.
var (
	Postgres = Dialect{
		Name:          "postgres",
		Style:         Dollar,
		LineComments:  []string{"--"},
		BlockComments: true,
		DollarQuotes:  true,
		Writes:        IsWrite,
		ContainsWrite: containsSQLWrite,
	}
	SQLite = Dialect{
		Name:          "sqlite",
		Style:         Question,
		LineComments:  []string{"--"},
		BlockComments: true,
		Backticks:     true,
		StrictArity:   true,
		Writes:        IsWrite,
		ContainsWrite: containsSQLWrite,
	}
	Trino = Dialect{
		Name:          "trino",
		Style:         Question,
		LineComments:  []string{"--"},
		BlockComments: true,
		StrictArity:   true,
		Writes:        IsWrite,
		ContainsWrite: containsSQLWrite,
	}
	Cypher = Dialect{
		Name:          "cypher",
		Style:         Named,
		LineComments:  []string{"//"},
		BlockComments: true,
		Backticks:     true,
		Writes:        isCypherWrite,
		ContainsWrite: isCypherWrite,

		BackslashEscapes: true,
	}
	DQL = Dialect{
		Name:          "dql",
		Style:         Named,
		LineComments:  []string{"#"},
		Writes:        isDQLWrite,
		ContainsWrite: containsDQLWrite,

		BackslashEscapes: true,
	}
	// DQLJSONMutation is a Dgraph JSON mutation template. A string value that
	// is exactly "$name" is replaced by the typed argument value; a
	// placeholder anywhere else in a string is a compile error.
	DQLJSONMutation = Dialect{
		Name:   "dql-json",
		Style:  Named,
		Writes: func(string) bool { return true },

		BackslashEscapes:   true,
		StringPlaceholders: true,
	}
)

// writeKeywords are SQL keywords that start a statement which modifies data or schema.
var writeKeywords = []string{
	"INSERT",
	"UPDATE",
	"DELETE",
	"DROP",
	"CREATE",
	"ALTER",
	"TRUNCATE",
	"GRANT",
	"REVOKE",
	"MERGE",
	"CALL",
	"EXECUTE",
	"UPSERT",
	"REPLACE",
}

var sqlWritePattern = regexp.MustCompile(
	`(?i)^\s*(?:WITH\s+[\s\S]*?\)\s*)?(` + strings.Join(writeKeywords, "|") + `)(?:\s|$|;|\()`,
)

// sqlAnyWritePattern matches write keywords anywhere, for data-modifying
// CTEs such as WITH d AS (DELETE ... RETURNING *) SELECT ... and SELECT INTO.
// REPLACE is left out because it is also a string function.
var sqlAnyWritePattern = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|GRANT|REVOKE|MERGE|CALL|EXECUTE|UPSERT|INTO|COPY|ATTACH|DETACH|VACUUM|REINDEX)\b`,
)

var cypherWritePattern = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP)\b`)

var dqlWritePattern = regexp.MustCompile(`(?i)^\s*(upsert\b|\{\s*(set|delete)\b)`)

var dqlAnyWritePattern = regexp.MustCompile(`(?i)\bupsert\b|\b(set|delete)\s*\{`)

// IsWrite reports whether a SQL statement modifies data or schema. Comments
// and literals should already be stripped; see Scan.
func IsWrite(code string) bool {
	return sqlWritePattern.MatchString(code)
}

func isCypherWrite(code string) bool {
	return cypherWritePattern.MatchString(code)
}

func isDQLWrite(code string) bool {
	return dqlWritePattern.MatchString(code)
}

func containsSQLWrite(code string) bool {
	return sqlAnyWritePattern.MatchString(code)
}

func containsDQLWrite(code string) bool {
	return dqlAnyWritePattern.MatchString(code)
}
