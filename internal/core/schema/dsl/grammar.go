// Package dsl parses .tables files, a compact way to declare a module's live
// schema without writing Go:
//
//	enum Genre { rock pop jazz = "jazz-fusion" }
//
//	table Band "band" {
//	    name    Varchar(length: 100, unique: true)
//	    genre   Varchar(choices: Genre, default: Genre.rock)
//	    rating  Numeric(digits: [5, 2], null: true)
//	    manager ForeignKey(references: Manager, on_delete: "SET NULL")
//	    founded Timestamp(default: now())
//	}
package dsl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// tablesLexer tokenizes .tables files.
var tablesLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Punct", Pattern: `[{}()\[\],:=.]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// File is the parse tree of a .tables file.
type File struct {
	Pos   lexer.Position
	Decls []*Decl `@@*`
}

// Decl is a top level declaration.
type Decl struct {
	Enum  *EnumDecl  `  @@`
	Table *TableDecl `| @@`
}

// EnumDecl declares an enum usable as column choices.
type EnumDecl struct {
	Pos     lexer.Position
	Name    string        `"enum" @Ident "{"`
	Members []*MemberDecl `@@* "}"`
}

// MemberDecl is one enum member, optionally with an explicit value.
type MemberDecl struct {
	Pos   lexer.Position
	Name  string `@Ident`
	Value *Value `("=" @@)?`
}

// TableDecl declares a table. The table name defaults to the snake cased
// class name.
type TableDecl struct {
	Pos     lexer.Position
	Class   string        `"table" @Ident`
	Name    *string       `@String?`
	Schema  *string       `("in" @String)?`
	Columns []*ColumnDecl `"{" @@* "}"`
}

// ColumnDecl declares a column and its params.
type ColumnDecl struct {
	Pos  lexer.Position
	Name string `@Ident`
	Kind string `@Ident`
	Args []*Arg `("(" (@@ ("," @@)* ","?)? ")")?`
}

// Arg is a key: value param.
type Arg struct {
	Pos   lexer.Position
	Key   string `@Ident ":"`
	Value *Value `@@`
}

// Value is a param value.
type Value struct {
	Pos    lexer.Position
	String *string  `  @String`
	Number *string  `| @Number`
	Call   *Call    `| @@`
	Path   []string `| @Ident ("." @Ident)*`
	Empty  bool     `| @("[" "]")`
	List   []*Value `| "[" @@ ("," @@)* ","? "]"`
}

// Call is a default generator such as now() or offset("90m").
type Call struct {
	Pos  lexer.Position
	Name string `@Ident "("`
	Arg  *Value `@@? ")"`
}

var parser = participle.MustBuild[File](
	participle.Lexer(tablesLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(3),
)
