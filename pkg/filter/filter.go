// Package filter parses the small list-filter language accepted by the
// registry list endpoints, for example:
//
//	status = "active" AND production_year >= 2015
//
// Terms are joined by AND. Fields are mapped to columns by the caller so that
// only whitelisted columns ever reach SQL.
package filter

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"gorm.io/gorm"
)

// Expression is a conjunction of comparisons.
type Expression struct {
	Terms []*Term `parser:"@@ ( 'AND' @@ )*"`
}

// Term compares a field with a literal.
type Term struct {
	Field string `parser:"@Ident"`
	Op    string `parser:"@Operator"`
	Value *Value `parser:"@@"`
}

// Value is a string, number, boolean or null literal.
type Value struct {
	String *string  `parser:"  @String"`
	Number *float64 `parser:"| @Number"`
	Bool   *string  `parser:"| @('true' | 'false')"`
	Null   bool     `parser:"| @'null'"`
}

// Interface returns the Go value of the literal.
func (v *Value) Interface() any {
	switch {
	case v.String != nil:
		return *v.String
	case v.Number != nil:
		return *v.Number
	case v.Bool != nil:
		return strings.EqualFold(*v.Bool, "true")
	}
	return nil
}

var (
	filterLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "String", Pattern: `"(?:\\.|[^"])*"|'(?:\\.|[^'])*'`},
		{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Operator", Pattern: `!=|<=|>=|=|<|>`},
		{Name: "whitespace", Pattern: `\s+`},
	})

	parser = participle.MustBuild[Expression](
		participle.Lexer(filterLexer),
		participle.Unquote("String"),
		participle.CaseInsensitive("Ident"),
		participle.Elide("whitespace"),
	)
)

// Parse parses a filter expression. An empty string yields an empty
// expression.
func Parse(s string) (*Expression, error) {
	if strings.TrimSpace(s) == "" {
		return &Expression{}, nil
	}
	expr, err := parser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	return expr, nil
}

// Columns maps filter field names to qualified column names.
type Columns map[string]string

// Apply adds a WHERE clause per term to db. Fields missing from columns are
// rejected.
func (e *Expression) Apply(db *gorm.DB, columns Columns) (*gorm.DB, error) {
	for _, t := range e.Terms {
		col, ok := columns[strings.ToLower(t.Field)]
		if !ok {
			return nil, fmt.Errorf("unknown filter field %q", t.Field)
		}
		val := t.Value.Interface()
		if val == nil {
			switch t.Op {
			case "=":
				db = db.Where(col + " IS NULL")
			case "!=":
				db = db.Where(col + " IS NOT NULL")
			default:
				return nil, fmt.Errorf("operator %s cannot compare %s with null", t.Op, t.Field)
			}
			continue
		}
		op := t.Op
		if op == "!=" {
			op = "<>"
		}
		db = db.Where(fmt.Sprintf("%s %s ?", col, op), val)
	}
	return db, nil
}

// String renders the expression in canonical form.
func (e *Expression) String() string {
	parts := make([]string, 0, len(e.Terms))
	for _, t := range e.Terms {
		var lit string
		switch v := t.Value; {
		case v.String != nil:
			lit = fmt.Sprintf("%q", *v.String)
		case v.Number != nil:
			lit = fmt.Sprintf("%g", *v.Number)
		case v.Bool != nil:
			lit = strings.ToLower(*v.Bool)
		default:
			lit = "null"
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", t.Field, t.Op, lit))
	}
	return strings.Join(parts, " AND ")
}
