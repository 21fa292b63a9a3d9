package query

import (
	"strings"
)

// dateParts are the identifiers accepted as the first argument of
// date_add, date_diff and extract
var dateParts = map[string]bool{
	"year":            true,
	"month":           true,
	"day":             true,
	"hour":            true,
	"minute":          true,
	"second":          true,
	"timezone_hour":   true,
	"timezone_minute": true,
}

// castTargets maps CAST type names to conversion functions
var castTargets = map[string]string{
	"int":       fnToInt,
	"integer":   fnToInt,
	"bigint":    fnToInt,
	"float":     fnToFloat,
	"double":    fnToFloat,
	"decimal":   fnToFloat,
	"numeric":   fnToFloat,
	"string":    fnToString,
	"varchar":   fnToString,
	"char":      fnToString,
	"timestamp": fnToTimestamp,
	"bool":      fnToBool,
	"boolean":   fnToBool,
}

// argument parses one full condition into the open argument frame
func (p *Parser) argument() error {
	if err := p.parseCondition(); err != nil {
		return err
	}
	p.pushArg(p.popCondition())
	return nil
}

// datePartArgument turns a bare date part identifier into a text literal
// argument. Any other expression is parsed normally.
func (p *Parser) datePartArgument() error {
	tok := p.current()
	if tok.Type == TokenIdent && dateParts[strings.ToLower(tok.Value)] {
		p.advance()
		id, err := p.literal(TextValue(strings.ToLower(tok.Value)), tok.Pos)
		if err != nil {
			return err
		}
		p.pushArg(id)
		return nil
	}
	return p.argument()
}

// parseFunctionCall parses name(arg, ...). Names are folded to lower case
// before lookup.
func (p *Parser) parseFunctionCall() error {
	tok := p.current()
	name, err := p.arena.String(strings.ToLower(tok.Value))
	if err != nil {
		return p.wrap(err, tok.Pos)
	}
	p.advance() // skip function name

	if err := p.expect(TokenLeftParen); err != nil {
		return err
	}

	p.beginCall()

	switch {
	case p.current().Type == TokenRightParen:
		// empty argument list
	case name == "count" && p.current().Type == TokenAsterisk:
		star, err := p.newNode(Node{Kind: NodeStar, Name: "*", Offset: p.current().Pos})
		if err != nil {
			return err
		}
		p.advance()
		p.pushArg(star)
	default:
		first := p.argument
		if name == "date_add" || name == "date_diff" {
			first = p.datePartArgument
		}
		if err := first(); err != nil {
			return err
		}
		for p.current().Type == TokenComma {
			p.advance()
			if err := p.argument(); err != nil {
				return err
			}
		}
	}

	if err := p.expect(TokenRightParen); err != nil {
		return err
	}

	_, err = p.endCall(name, tok.Pos)
	return err
}

// parseCast parses CAST(expr AS type)
func (p *Parser) parseCast() error {
	offset := p.current().Pos
	p.advance() // skip CAST

	if err := p.expect(TokenLeftParen); err != nil {
		return err
	}
	p.beginCall()
	if err := p.argument(); err != nil {
		return err
	}
	if err := p.expect(TokenAs); err != nil {
		return err
	}

	typeTok := p.current()
	target, ok := castTargets[strings.ToLower(typeTok.Value)]
	if typeTok.Type != TokenIdent || !ok {
		return p.errorf("unknown CAST target type %v", p.describe(typeTok))
	}
	p.advance()

	if err := p.expect(TokenRightParen); err != nil {
		return err
	}

	_, err := p.endCall(target, offset)
	return err
}

// parseExtract parses EXTRACT(part FROM timestamp)
func (p *Parser) parseExtract() error {
	offset := p.current().Pos
	p.advance() // skip EXTRACT

	if err := p.expect(TokenLeftParen); err != nil {
		return err
	}

	tok := p.current()
	if tok.Type != TokenIdent || !dateParts[strings.ToLower(tok.Value)] {
		return p.errorf("expected date part in EXTRACT, got %v", p.describe(tok))
	}

	p.beginCall()
	if err := p.datePartArgument(); err != nil {
		return err
	}
	if err := p.expect(TokenFrom); err != nil {
		return err
	}
	if err := p.argument(); err != nil {
		return err
	}
	if err := p.expect(TokenRightParen); err != nil {
		return err
	}

	_, err := p.endCall("extract", offset)
	return err
}

// parseCase parses both CASE forms:
//
//	CASE WHEN cond THEN result [...] [ELSE result] END
//	CASE value WHEN match THEN result [...] [ELSE result] END
//
// The searched form becomes #case_when#(cond, result, ..., [else]) and the
// simple form #case_value#(value, match, result, ..., [else]).
func (p *Parser) parseCase() error {
	offset := p.current().Pos
	p.advance() // skip CASE

	name := fnCaseWhen
	p.beginCall()
	if p.current().Type != TokenWhen {
		name = fnCaseValue
		if err := p.argument(); err != nil {
			return err
		}
	}

	clauses := 0
	for p.current().Type == TokenWhen {
		p.advance()
		if err := p.argument(); err != nil {
			return err
		}
		if err := p.expect(TokenThen); err != nil {
			return err
		}
		if err := p.argument(); err != nil {
			return err
		}
		clauses++
	}
	if clauses == 0 {
		return p.errorf("CASE expression must have at least one WHEN clause")
	}

	if p.current().Type == TokenElse {
		p.advance()
		if err := p.argument(); err != nil {
			return err
		}
	}

	if err := p.expect(TokenEnd); err != nil {
		return err
	}

	_, err := p.endCall(name, offset)
	return err
}
