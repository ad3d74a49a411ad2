// Copyright (C) 2026 zappend-go contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package attrs implements the post-write Attribute Resolver: scanning
// configured attribute strings for "{{ expr }}" placeholders and
// evaluating expr against the just-written dataset, the way
// pkg/ql's participle grammar turns a small query language into an AST
// to evaluate -- applied here to the tiny attribute-expression language
// instead of a filter query.
package attrs

import (
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/bcdev/zappend-go/zerr"
)

// Expr is one parsed attribute expression: a function call, a dotted/
// bracketed dataset access, or a literal.
type Expr struct {
	Call   *Call    `@@`
	Access *Access  `| @@`
	Number *float64 `| @Number`
	Str    *string  `| @String`
}

// Call is a function invocation, e.g. lower_bound(ds.time, "center").
type Call struct {
	Name string  `@Ident "("`
	Args []*Expr `( @@ ( "," @@ )* )? ")"`
}

// Access is an identifier followed by zero or more dotted/bracketed
// lookups, e.g. ds.time, ds["time"], ds.time[0].
type Access struct {
	Base  string  `@Ident`
	Steps []*Step `@@*`
}

// Step is one link in an Access chain: either ".name" or "[expr]".
type Step struct {
	Dot   string `( "." @Ident`
	Index *Expr  `| "[" @@ "]" )`
}

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Number", Pattern: `[-+]?\d*\.?\d+([eE][-+]?\d+)?`},
	{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
	{Name: "Punct", Pattern: `[.\[\](),]`},
	{Name: "whitespace", Pattern: `\s+`},
})

var exprParser = participle.MustBuild[Expr](
	participle.Lexer(exprLexer),
	participle.Unquote("String"),
)

// Parse parses expr (the text between "{{" and "}}", trimmed) into an AST.
func Parse(expr string) (*Expr, error) {
	e, err := exprParser.ParseString("", expr)
	if err != nil {
		return nil, zerr.Wrap(zerr.Configuration, "invalid attribute expression "+strconv.Quote(expr), err)
	}
	return e, nil
}
