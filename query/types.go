package query

import "fmt"

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenSelect TokenType = iota
	TokenFrom
	TokenWhere
	TokenAnd
	TokenOr
	TokenNot
	TokenAs
	TokenLimit
	TokenIn
	TokenLike
	TokenEscape
	TokenBetween
	TokenIs
	TokenNull
	TokenCase
	TokenWhen
	TokenThen
	TokenElse
	TokenEnd
	TokenCast
	TokenExtract
	TokenBool

	// Comparison operators
	TokenEqual        // =
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=

	// Arithmetic operators
	TokenPlus     // +
	TokenMinus    // -
	TokenAsterisk // *
	TokenSlash    // /
	TokenPercent  // %
	TokenCaret    // ^

	// Literals
	TokenString
	TokenNumber
	TokenIdent

	// Delimiters
	TokenComma      // ,
	TokenLeftParen  // (
	TokenRightParen // )
	TokenSemicolon  // ;

	// Special
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenSelect:       "SELECT",
	TokenFrom:         "FROM",
	TokenWhere:        "WHERE",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNot:          "NOT",
	TokenAs:           "AS",
	TokenLimit:        "LIMIT",
	TokenIn:           "IN",
	TokenLike:         "LIKE",
	TokenEscape:       "ESCAPE",
	TokenBetween:      "BETWEEN",
	TokenIs:           "IS",
	TokenNull:         "NULL",
	TokenCase:         "CASE",
	TokenWhen:         "WHEN",
	TokenThen:         "THEN",
	TokenElse:         "ELSE",
	TokenEnd:          "END",
	TokenCast:         "CAST",
	TokenExtract:      "EXTRACT",
	TokenBool:         "boolean",
	TokenEqual:        "=",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenGreater:      ">",
	TokenLessEqual:    "<=",
	TokenGreaterEqual: ">=",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenAsterisk:     "*",
	TokenSlash:        "/",
	TokenPercent:      "%",
	TokenCaret:        "^",
	TokenString:       "string",
	TokenNumber:       "number",
	TokenIdent:        "identifier",
	TokenComma:        ",",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenSemicolon:    ";",
	TokenEOF:          "end of input",
	TokenError:        "invalid character",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a lexical token. Pos is the byte offset of the token's
// first character in the query text.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// NodeID addresses a node inside a query's arena
type NodeID int32

// NoNode marks an absent child
const NoNode NodeID = -1

// NodeKind is the closed set of AST node kinds
type NodeKind uint8

const (
	NodeLiteral NodeKind = iota // constant value
	NodeColumn                  // named or positional column, or alias reference
	NodeStar                    // the * wildcard
	NodeArith                   // + - * / % ^
	NodeCompare                 // = != < > <= >=
	NodeLogical                 // AND, OR
	NodeFunc                    // function call, including predicate forms
)

var nodeKindNames = [...]string{"literal", "column", "star", "arithmetic", "comparison", "logical", "function"}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("node(%d)", int(k))
}

// columnBinding records how a column node resolved on first evaluation
type columnBinding uint8

const (
	bindUnresolved columnBinding = iota
	bindSchema
	bindAlias
)

// Node is one AST node. Nodes live in the arena slab and refer to each
// other by NodeID; alias references go through the alias table by name.
type Node struct {
	Kind   NodeKind
	Op     TokenType // operator for arithmetic, comparison and logical nodes
	Left   NodeID
	Right  NodeID
	Args   []NodeID // function arguments
	Value  Value    // literal value
	Name   string   // column, alias or function name
	Pos    int      // 1-based column position for positional references
	Negate bool     // toggled by NOT
	Offset int      // byte offset in the query text

	binding  columnBinding
	position int // resolved 0-based schema position
	alias    int // resolved alias index
	fn       Function
}

// Mode selects how a node is evaluated
type Mode uint8

const (
	// ModeRow evaluates a node against the current row.
	ModeRow Mode = iota
	// ModeAccumulate feeds aggregate calls and skips plain subexpressions.
	ModeAccumulate
	// ModeFinalize makes aggregate calls return their accumulated result.
	ModeFinalize
)

func (m Mode) String() string {
	switch m {
	case ModeAccumulate:
		return "accumulate"
	case ModeFinalize:
		return "finalize"
	default:
		return "row"
	}
}

// Projection is one item of the SELECT list
type Projection struct {
	Node  NodeID
	Alias string // empty when not aliased
	Text  string // source text of the expression

	aliasIdx int // index into the alias table, -1 when not aliased
}
