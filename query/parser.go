package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser turns a token stream into arena-allocated nodes. Productions call
// small action hooks that push partially built fragments onto typed stacks
// and, once a production is complete, pop them and push the composite node.
// The parser value is the only parsing state; nothing is global.
type Parser struct {
	input        string
	tokens       []Token
	pos          int
	depthCounter *ExpressionDepthCounter

	arena   *Arena
	aliases *AliasTable

	// action stacks
	operands   []NodeID
	operators  []TokenType
	conditions []NodeID
	callFrames [][]NodeID

	// statement parts
	projections []Projection
	filter      NodeID
	source      string
	tableAlias  string
	limit       int64
}

// NewParser creates a new parser that allocates into arena
func NewParser(input string, tokens []Token, arena *Arena) *Parser {
	return &Parser{
		input:        input,
		tokens:       tokens,
		depthCounter: NewExpressionDepthCounter(),
		arena:        arena,
		aliases:      &AliasTable{},
		filter:       NoNode,
		limit:        -1,
	}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Pos: len(p.input)}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF, Pos: len(p.input)}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// errorf builds a parse error positioned at the current token
func (p *Parser) errorf(format string, args ...any) error {
	tok := p.current()
	msg := fmt.Sprintf(format, args...)
	if tok.Type == TokenError {
		msg = fmt.Sprintf("%s: %q", TokenError, tok.Value)
	}
	return &ParseError{Offset: tok.Pos, Msg: msg}
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) error {
	if p.current().Type != tokType {
		return p.errorf("expected %v, got %v", tokType, p.describe(p.current()))
	}
	p.advance()
	return nil
}

func (p *Parser) describe(tok Token) string {
	switch tok.Type {
	case TokenIdent, TokenNumber:
		return fmt.Sprintf("%s %q", tok.Type, tok.Value)
	case TokenString:
		return fmt.Sprintf("string '%s'", tok.Value)
	default:
		return tok.Type.String()
	}
}

// wrap attaches the current position to a non-syntax failure such as arena
// exhaustion or a duplicate alias.
func (p *Parser) wrap(err error, offset int) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ParseError); ok {
		return err
	}
	return &ParseError{Offset: offset, Msg: err.Error(), Err: err}
}

// Action hooks

func (p *Parser) newNode(n Node) (NodeID, error) {
	id, err := p.arena.New(n)
	return id, p.wrap(err, n.Offset)
}

func (p *Parser) pushOperand(id NodeID) {
	p.operands = append(p.operands, id)
}

func (p *Parser) popOperand() NodeID {
	id := p.operands[len(p.operands)-1]
	p.operands = p.operands[:len(p.operands)-1]
	return id
}

func (p *Parser) pushOperator(op TokenType) {
	p.operators = append(p.operators, op)
}

func (p *Parser) popOperator() TokenType {
	op := p.operators[len(p.operators)-1]
	p.operators = p.operators[:len(p.operators)-1]
	return op
}

func (p *Parser) pushCondition(id NodeID) {
	p.conditions = append(p.conditions, id)
}

func (p *Parser) popCondition() NodeID {
	id := p.conditions[len(p.conditions)-1]
	p.conditions = p.conditions[:len(p.conditions)-1]
	return id
}

// reduceArith pops two operands and the pending operator and pushes the
// binary node, which makes each family left-associative.
func (p *Parser) reduceArith(offset int) error {
	right := p.popOperand()
	left := p.popOperand()
	op := p.popOperator()
	id, err := p.newNode(Node{Kind: NodeArith, Op: op, Left: left, Right: right, Offset: offset})
	if err != nil {
		return err
	}
	p.pushOperand(id)
	return nil
}

// reduceCompare pops two operands and pushes a comparison condition
func (p *Parser) reduceCompare(offset int) error {
	right := p.popOperand()
	left := p.popOperand()
	op := p.popOperator()
	id, err := p.newNode(Node{Kind: NodeCompare, Op: op, Left: left, Right: right, Offset: offset})
	if err != nil {
		return err
	}
	p.pushCondition(id)
	return nil
}

// reduceLogical pops two conditions and pushes an AND/OR condition
func (p *Parser) reduceLogical(offset int) error {
	right := p.popCondition()
	left := p.popCondition()
	op := p.popOperator()
	id, err := p.newNode(Node{Kind: NodeLogical, Op: op, Left: left, Right: right, Offset: offset})
	if err != nil {
		return err
	}
	p.pushCondition(id)
	return nil
}

// promote turns the top operand into a condition
func (p *Parser) promote() {
	p.pushCondition(p.popOperand())
}

// demote turns the top condition into an operand
func (p *Parser) demote() {
	p.pushOperand(p.popCondition())
}

// negateTop toggles NOT on the top condition
func (p *Parser) negateTop() {
	n := p.arena.Node(p.conditions[len(p.conditions)-1])
	n.Negate = !n.Negate
}

// beginCall opens a new argument frame
func (p *Parser) beginCall() {
	p.callFrames = append(p.callFrames, nil)
}

// pushArg moves the top condition into the open argument frame
func (p *Parser) pushArg(id NodeID) {
	top := len(p.callFrames) - 1
	p.callFrames[top] = append(p.callFrames[top], id)
}

// endCall closes the open frame and pushes the function node as an operand
func (p *Parser) endCall(name string, offset int) (NodeID, error) {
	top := len(p.callFrames) - 1
	args := p.callFrames[top]
	p.callFrames = p.callFrames[:top]
	id, err := p.newNode(Node{Kind: NodeFunc, Name: name, Args: args, Offset: offset})
	if err != nil {
		return NoNode, err
	}
	p.pushOperand(id)
	return id, nil
}

func (p *Parser) literal(v Value, offset int) (NodeID, error) {
	if v.kind == KindText {
		s, err := p.arena.String(v.s)
		if err != nil {
			return NoNode, p.wrap(err, offset)
		}
		v.s = s
	}
	return p.newNode(Node{Kind: NodeLiteral, Value: v, Offset: offset})
}

// Statement productions

// parseStatement parses: SELECT list FROM source [alias] [WHERE cond] [LIMIT n] [;]
func (p *Parser) parseStatement() error {
	if err := p.expect(TokenSelect); err != nil {
		return err
	}

	if err := p.parseSelectList(); err != nil {
		return err
	}

	if err := p.expect(TokenFrom); err != nil {
		return err
	}
	if err := p.parseSource(); err != nil {
		return err
	}

	if p.current().Type == TokenWhere {
		p.advance()
		if err := p.parseCondition(); err != nil {
			return err
		}
		p.filter = p.popCondition()
	}

	if p.current().Type == TokenLimit {
		p.advance()
		tok := p.current()
		if tok.Type != TokenNumber {
			return p.errorf("expected row count after LIMIT, got %v", p.describe(tok))
		}
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil || n < 0 {
			return p.errorf("invalid LIMIT %q", tok.Value)
		}
		p.limit = n
		p.advance()
	}

	if p.current().Type == TokenSemicolon {
		p.advance()
	}
	if p.current().Type != TokenEOF {
		return p.errorf("unexpected %v after end of statement", p.describe(p.current()))
	}

	p.qualifyColumns()
	return nil
}

// parseSelectList parses comma separated projections
func (p *Parser) parseSelectList() error {
	for {
		if err := p.parseSelectItem(); err != nil {
			return err
		}
		if p.current().Type != TokenComma {
			return nil
		}
		p.advance()
	}
}

// parseSelectItem parses one projection with an optional alias
func (p *Parser) parseSelectItem() error {
	start := p.current().Pos
	var id NodeID

	if p.current().Type == TokenAsterisk {
		var err error
		id, err = p.newNode(Node{Kind: NodeStar, Name: "*", Offset: start})
		if err != nil {
			return err
		}
		p.advance()
	} else {
		if err := p.parseCondition(); err != nil {
			return err
		}
		id = p.popCondition()
	}
	end := p.current().Pos

	proj := Projection{Node: id, Text: strings.TrimSpace(p.input[start:end]), aliasIdx: -1}

	aliasPos := p.current().Pos
	switch {
	case p.current().Type == TokenAs:
		p.advance()
		if p.current().Type != TokenIdent {
			return p.errorf("expected alias name after AS, got %v", p.describe(p.current()))
		}
		proj.Alias = p.current().Value
		aliasPos = p.current().Pos
		p.advance()
	case p.current().Type == TokenIdent:
		proj.Alias = p.current().Value
		p.advance()
	}

	if proj.Alias != "" {
		if p.arena.Node(id).Kind == NodeStar {
			return &ParseError{Offset: aliasPos, Msg: "cannot alias *"}
		}
		name, err := p.arena.String(proj.Alias)
		if err != nil {
			return p.wrap(err, aliasPos)
		}
		proj.Alias = name
		idx, err := p.aliases.Define(name, id)
		if err != nil {
			return p.wrap(err, aliasPos)
		}
		proj.aliasIdx = idx
	}

	p.projections = append(p.projections, proj)
	return nil
}

// parseSource parses the FROM target and its optional alias
func (p *Parser) parseSource() error {
	tok := p.current()
	if tok.Type != TokenIdent && tok.Type != TokenString {
		return p.errorf("expected data source after FROM, got %v", p.describe(tok))
	}
	p.source = tok.Value
	p.advance()

	if p.current().Type == TokenAs {
		p.advance()
		if p.current().Type != TokenIdent {
			return p.errorf("expected source alias after AS, got %v", p.describe(p.current()))
		}
	}
	if p.current().Type == TokenIdent {
		p.tableAlias = p.current().Value
		p.advance()
	}
	return nil
}

// qualifyColumns strips source or alias qualifiers (s._1, s3object[*].name)
// from column references once the FROM clause is known.
func (p *Parser) qualifyColumns() {
	var prefixes []string
	if p.tableAlias != "" {
		prefixes = append(prefixes, p.tableAlias+".")
	}
	if p.source != "" {
		prefixes = append(prefixes, p.source+".", p.source+"[*].")
	}
	for i := 0; i < p.arena.Len(); i++ {
		n := p.arena.Node(NodeID(i))
		if n.Kind != NodeColumn || n.Pos > 0 {
			continue
		}
		for _, prefix := range prefixes {
			if rest, ok := strings.CutPrefix(n.Name, prefix); ok && rest != "" {
				n.Name = rest
				n.Pos = positionalIndex(rest)
				break
			}
		}
	}
}

// positionalIndex returns N for a positional reference _N, or 0
func positionalIndex(name string) int {
	if len(name) < 2 || name[0] != '_' {
		return 0
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n < 1 || strings.ContainsAny(name[1:], "+-") {
		return 0
	}
	return n
}
