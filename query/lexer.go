package query

import (
	"strings"
	"unicode"
)

// Lexer tokenizes SQL query strings
type Lexer struct {
	input string
	pos   int // offset of the byte after ch
	ch    rune
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = rune(l.input[l.pos])
	}
	l.pos++
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return rune(l.input[l.pos])
}

// offset returns the byte offset of the current character
func (l *Lexer) offset() int {
	return l.pos - 1
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a quoted string. A doubled quote stands for one quote
// character. ok is false when the closing quote is missing.
func (l *Lexer) readString(quote rune) (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for {
		switch l.ch {
		case 0:
			if l.pos > len(l.input) {
				return result.String(), false
			}
			result.WriteByte(0)
		case quote:
			if l.peekChar() != quote {
				l.readChar() // skip closing quote
				return result.String(), true
			}
			l.readChar()
			result.WriteRune(quote)
		default:
			result.WriteByte(byte(l.ch))
		}
		l.readChar()
	}
}

// readNumber reads an integer or decimal literal with an optional exponent
func (l *Lexer) readNumber() string {
	start := l.offset()
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.offset()]
}

// readIdentifier reads an identifier or keyword. Dots are kept so that
// qualified references such as s._1 stay one token.
func (l *Lexer) readIdentifier() string {
	start := l.offset()
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '.' {
		l.readChar()
	}
	// s3object[*] names the JSON document root
	if l.ch == '[' && l.peekChar() == '*' {
		l.readChar()
		l.readChar()
		if l.ch == ']' {
			l.readChar()
		}
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '.' {
			l.readChar()
		}
	}
	return l.input[start:l.offset()]
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func isLetter(ch rune) bool { return ch < 0x80 && unicode.IsLetter(ch) }

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.offset()
	var tok Token

	switch l.ch {
	case 0:
		if l.pos > len(l.input) {
			return Token{Type: TokenEOF, Pos: len(l.input)}
		}
		tok = Token{Type: TokenError, Value: "\x00"}
		l.readChar()
	case '=':
		tok = Token{Type: TokenEqual, Value: "="}
		l.readChar()
		if l.ch == '=' {
			l.readChar()
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenNotEqual, Value: "!="}
			l.readChar()
		} else {
			tok = Token{Type: TokenError, Value: "!"}
			l.readChar()
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: TokenLessEqual, Value: "<="}
		case '>':
			l.readChar()
			tok = Token{Type: TokenNotEqual, Value: "<>"}
		default:
			tok = Token{Type: TokenLess, Value: "<"}
		}
		l.readChar()
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenGreaterEqual, Value: ">="}
		} else {
			tok = Token{Type: TokenGreater, Value: ">"}
		}
		l.readChar()
	case '\'', '"':
		str, ok := l.readString(l.ch)
		if !ok {
			return Token{Type: TokenError, Value: "unterminated string", Pos: pos}
		}
		tok = Token{Type: TokenString, Value: str}
	case '+':
		tok = Token{Type: TokenPlus, Value: "+"}
		l.readChar()
	case '-':
		tok = Token{Type: TokenMinus, Value: "-"}
		l.readChar()
	case '*':
		tok = Token{Type: TokenAsterisk, Value: "*"}
		l.readChar()
	case '/':
		tok = Token{Type: TokenSlash, Value: "/"}
		l.readChar()
	case '%':
		tok = Token{Type: TokenPercent, Value: "%"}
		l.readChar()
	case '^':
		tok = Token{Type: TokenCaret, Value: "^"}
		l.readChar()
	case ',':
		tok = Token{Type: TokenComma, Value: ","}
		l.readChar()
	case '(':
		tok = Token{Type: TokenLeftParen, Value: "("}
		l.readChar()
	case ')':
		tok = Token{Type: TokenRightParen, Value: ")"}
		l.readChar()
	case ';':
		tok = Token{Type: TokenSemicolon, Value: ";"}
		l.readChar()
	default:
		switch {
		case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
			tok = Token{Type: TokenNumber, Value: l.readNumber()}
		case isLetter(l.ch) || l.ch == '_':
			value := l.readIdentifier()
			tok = Token{Type: identifierType(value), Value: value}
		default:
			tok = Token{Type: TokenError, Value: string(l.ch)}
			l.readChar()
		}
	}

	tok.Pos = pos
	return tok
}

// keywords maps lower-case reserved words to their token types
var keywords = map[string]TokenType{
	"select":  TokenSelect,
	"from":    TokenFrom,
	"where":   TokenWhere,
	"and":     TokenAnd,
	"or":      TokenOr,
	"not":     TokenNot,
	"as":      TokenAs,
	"limit":   TokenLimit,
	"in":      TokenIn,
	"like":    TokenLike,
	"escape":  TokenEscape,
	"between": TokenBetween,
	"is":      TokenIs,
	"null":    TokenNull,
	"case":    TokenCase,
	"when":    TokenWhen,
	"then":    TokenThen,
	"else":    TokenElse,
	"end":     TokenEnd,
	"cast":    TokenCast,
	"extract": TokenExtract,
	"true":    TokenBool,
	"false":   TokenBool,
}

// identifierType determines if an identifier is a keyword
func identifierType(ident string) TokenType {
	if tokType, ok := keywords[strings.ToLower(ident)]; ok {
		return tokType
	}
	return TokenIdent
}

// Tokenize returns all tokens from the input, ending with EOF or the first
// error token.
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
