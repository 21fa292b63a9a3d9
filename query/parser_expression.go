package query

import (
	"strconv"
	"strings"
)

// parseCondition parses OR expressions (lowest precedence). The result is
// left on the condition stack.
func (p *Parser) parseCondition() error {
	if err := p.depthCounter.Enter(); err != nil {
		return p.wrap(err, p.current().Pos)
	}
	defer p.depthCounter.Exit()

	if err := p.parseAnd(); err != nil {
		return err
	}

	for p.current().Type == TokenOr {
		offset := p.current().Pos
		p.pushOperator(TokenOr)
		p.advance()
		if err := p.parseAnd(); err != nil {
			return err
		}
		if err := p.reduceLogical(offset); err != nil {
			return err
		}
	}
	return nil
}

// parseAnd parses AND expressions (higher precedence than OR)
func (p *Parser) parseAnd() error {
	if err := p.parseNot(); err != nil {
		return err
	}

	for p.current().Type == TokenAnd {
		offset := p.current().Pos
		p.pushOperator(TokenAnd)
		p.advance()
		if err := p.parseNot(); err != nil {
			return err
		}
		if err := p.reduceLogical(offset); err != nil {
			return err
		}
	}
	return nil
}

// parseNot parses any number of NOT prefixes. Each one toggles the negation
// flag of the following condition, so NOT NOT x is x.
func (p *Parser) parseNot() error {
	negations := 0
	for p.current().Type == TokenNot {
		negations++
		p.advance()
	}

	if err := p.parsePredicate(); err != nil {
		return err
	}
	if negations%2 == 1 {
		p.negateTop()
	}
	return nil
}

// parsePredicate parses comparisons and the BETWEEN, IN, LIKE and IS NULL
// forms. A lone arithmetic expression is promoted to a condition.
func (p *Parser) parsePredicate() error {
	if err := p.parseAdditive(); err != nil {
		return err
	}

	offset := p.current().Pos
	switch op := p.current().Type; op {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual:
		p.pushOperator(op)
		p.advance()
		if err := p.parseAdditive(); err != nil {
			return err
		}
		return p.reduceCompare(offset)
	case TokenBetween:
		return p.parseBetween(false, offset)
	case TokenIn:
		return p.parseIn(false, offset)
	case TokenLike:
		return p.parseLike(false, offset)
	case TokenIs:
		return p.parseIsNull(offset)
	case TokenNot:
		switch p.peek().Type {
		case TokenBetween:
			p.advance()
			return p.parseBetween(true, offset)
		case TokenIn:
			p.advance()
			return p.parseIn(true, offset)
		case TokenLike:
			p.advance()
			return p.parseLike(true, offset)
		}
		return p.errorf("expected IN, LIKE or BETWEEN after NOT, got %v", p.describe(p.peek()))
	}

	p.promote()
	return nil
}

// predicateCall turns the operand already on the stack plus the operands
// parsed by more into a predicate function node on the condition stack.
func (p *Parser) predicateCall(name string, negate bool, offset int, more func() error) error {
	subject := p.popOperand()
	p.beginCall()
	p.pushArg(subject)
	if err := more(); err != nil {
		return err
	}
	id, err := p.endCall(name, offset)
	if err != nil {
		return err
	}
	p.arena.Node(id).Negate = negate
	p.promote()
	return nil
}

// operandArg parses an arithmetic operand into the open argument frame
func (p *Parser) operandArg() error {
	if err := p.parseAdditive(); err != nil {
		return err
	}
	p.pushArg(p.popOperand())
	return nil
}

// parseBetween parses: x [NOT] BETWEEN lower AND upper
func (p *Parser) parseBetween(negate bool, offset int) error {
	return p.predicateCall(fnBetween, negate, offset, func() error {
		if err := p.expect(TokenBetween); err != nil {
			return err
		}
		if err := p.operandArg(); err != nil {
			return err
		}
		if err := p.expect(TokenAnd); err != nil {
			return err
		}
		return p.operandArg()
	})
}

// parseIn parses: x [NOT] IN (v1, v2, ...)
func (p *Parser) parseIn(negate bool, offset int) error {
	return p.predicateCall(fnIn, negate, offset, func() error {
		if err := p.expect(TokenIn); err != nil {
			return err
		}
		if err := p.expect(TokenLeftParen); err != nil {
			return err
		}
		for {
			if err := p.operandArg(); err != nil {
				return err
			}
			if p.current().Type != TokenComma {
				break
			}
			p.advance()
		}
		return p.expect(TokenRightParen)
	})
}

// parseLike parses: x [NOT] LIKE pattern [ESCAPE char]
func (p *Parser) parseLike(negate bool, offset int) error {
	return p.predicateCall(fnLike, negate, offset, func() error {
		if err := p.expect(TokenLike); err != nil {
			return err
		}
		if err := p.operandArg(); err != nil {
			return err
		}
		if p.current().Type == TokenEscape {
			p.advance()
			return p.operandArg()
		}
		return nil
	})
}

// parseIsNull parses: x IS [NOT] NULL
func (p *Parser) parseIsNull(offset int) error {
	if err := p.expect(TokenIs); err != nil {
		return err
	}
	negate := false
	if p.current().Type == TokenNot {
		negate = true
		p.advance()
	}
	return p.predicateCall(fnIsNull, negate, offset, func() error {
		return p.expect(TokenNull)
	})
}

// parseAdditive parses + and - chains
func (p *Parser) parseAdditive() error {
	if err := p.parseMultiplicative(); err != nil {
		return err
	}

	for op := p.current().Type; op == TokenPlus || op == TokenMinus; op = p.current().Type {
		offset := p.current().Pos
		p.pushOperator(op)
		p.advance()
		if err := p.parseMultiplicative(); err != nil {
			return err
		}
		if err := p.reduceArith(offset); err != nil {
			return err
		}
	}
	return nil
}

// parseMultiplicative parses ^, *, / and % chains
func (p *Parser) parseMultiplicative() error {
	if err := p.parseUnary(); err != nil {
		return err
	}

	for op := p.current().Type; isMultiplicative(op); op = p.current().Type {
		offset := p.current().Pos
		p.pushOperator(op)
		p.advance()
		if err := p.parseUnary(); err != nil {
			return err
		}
		if err := p.reduceArith(offset); err != nil {
			return err
		}
	}
	return nil
}

func isMultiplicative(op TokenType) bool {
	return op == TokenAsterisk || op == TokenSlash || op == TokenPercent || op == TokenCaret
}

// parseUnary parses a leading sign. Negative numeric literals are folded;
// anything else becomes 0 - x.
func (p *Parser) parseUnary() error {
	switch p.current().Type {
	case TokenPlus:
		p.advance()
		return p.parseUnary()
	case TokenMinus:
		offset := p.current().Pos
		p.advance()
		if p.current().Type == TokenNumber {
			return p.parseNumber("-", offset)
		}
		zero, err := p.literal(IntValue(0), offset)
		if err != nil {
			return err
		}
		p.pushOperand(zero)
		p.pushOperator(TokenMinus)
		if err := p.parseUnary(); err != nil {
			return err
		}
		return p.reduceArith(offset)
	}
	return p.parsePrimary()
}

// parseNumber pushes a numeric literal. A literal without fraction or
// exponent is an Integer.
func (p *Parser) parseNumber(sign string, offset int) error {
	text := sign + p.current().Value
	var v Value
	if !strings.ContainsAny(text, ".eE") {
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return p.errorf("invalid integer %s", text)
		}
		v = IntValue(i)
	} else {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return p.errorf("invalid number %s", text)
		}
		v = FloatValue(f)
	}
	p.advance()

	id, err := p.literal(v, offset)
	if err != nil {
		return err
	}
	p.pushOperand(id)
	return nil
}

// parsePrimary parses literals, column references, function calls and
// parenthesised groups
func (p *Parser) parsePrimary() error {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		return p.parseNumber("", tok.Pos)
	case TokenString:
		p.advance()
		return p.pushLiteral(TextValue(tok.Value), tok.Pos)
	case TokenBool:
		p.advance()
		return p.pushLiteral(BoolValue(strings.EqualFold(tok.Value, "true")), tok.Pos)
	case TokenNull:
		p.advance()
		return p.pushLiteral(Null(), tok.Pos)
	case TokenLeftParen:
		p.advance()
		if err := p.parseCondition(); err != nil {
			return err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return err
		}
		p.demote()
		return nil
	case TokenCase:
		return p.parseCase()
	case TokenCast:
		return p.parseCast()
	case TokenExtract:
		return p.parseExtract()
	case TokenIdent:
		if p.peek().Type == TokenLeftParen {
			return p.parseFunctionCall()
		}
		return p.parseColumn()
	case TokenEOF:
		return p.errorf("unexpected end of query")
	default:
		return p.errorf("expected expression, got %v", p.describe(tok))
	}
}

func (p *Parser) pushLiteral(v Value, offset int) error {
	id, err := p.literal(v, offset)
	if err != nil {
		return err
	}
	p.pushOperand(id)
	return nil
}

// parseColumn parses a named or positional column reference
func (p *Parser) parseColumn() error {
	tok := p.current()
	if err := ValidateColumnName(tok.Value); err != nil {
		return p.wrap(err, tok.Pos)
	}
	name, err := p.arena.String(tok.Value)
	if err != nil {
		return p.wrap(err, tok.Pos)
	}
	p.advance()

	id, err := p.newNode(Node{Kind: NodeColumn, Name: name, Pos: positionalIndex(name), Offset: tok.Pos})
	if err != nil {
		return err
	}
	p.pushOperand(id)
	return nil
}
