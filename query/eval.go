package query

import (
	"fmt"
)

// truthy reports whether a condition result accepts the row. Null never
// does.
func truthy(v Value) bool {
	return v.IsBool() && v.Bool()
}

// eval evaluates node id in the given mode. In ModeAccumulate the result is
// always Unset; only aggregate calls do work.
func (q *Query) eval(id NodeID, mode Mode) (Value, error) {
	n := q.arena.Node(id)
	v, err := q.evalNode(id, n, mode)
	if err != nil || !n.Negate || mode == ModeAccumulate {
		return v, err
	}

	switch {
	case v.IsBool():
		return BoolValue(!v.Bool()), nil
	case v.isNullLike():
		return v, nil
	}
	return Value{}, fmt.Errorf("%w: NOT applied to %s", ErrTypeMismatch, v.Kind())
}

func (q *Query) evalNode(id NodeID, n *Node, mode Mode) (Value, error) {
	switch n.Kind {
	case NodeLiteral:
		if mode == ModeAccumulate {
			return Value{}, nil
		}
		return n.Value, nil

	case NodeColumn:
		if err := q.resolve(n); err != nil {
			return Value{}, err
		}
		if n.binding == bindAlias {
			return q.evalAlias(n.alias, mode)
		}
		if mode == ModeAccumulate {
			return Value{}, nil
		}
		return q.scratch.Column(n.position)

	case NodeStar:
		return Value{}, fmt.Errorf("%w: * is only allowed as a projection or in count(*)", ErrSyntax)

	case NodeArith:
		l, r, err := q.evalPair(n, mode)
		if err != nil || mode == ModeAccumulate {
			return Value{}, err
		}
		return arith(n.Op, l, r)

	case NodeCompare:
		l, r, err := q.evalPair(n, mode)
		if err != nil || mode == ModeAccumulate {
			return Value{}, err
		}
		ok, err := l.Compare(n.Op, r)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(ok), nil

	case NodeLogical:
		if mode == ModeAccumulate {
			_, _, err := q.evalPair(n, mode)
			return Value{}, err
		}
		return q.evalLogical(n, mode)

	case NodeFunc:
		return q.evalFunc(id, n, mode)
	}
	return Value{}, fmt.Errorf("unknown node kind %v", n.Kind)
}

func (q *Query) evalPair(n *Node, mode Mode) (Value, Value, error) {
	l, err := q.eval(n.Left, mode)
	if err != nil {
		return Value{}, Value{}, err
	}
	r, err := q.eval(n.Right, mode)
	if err != nil {
		return Value{}, Value{}, err
	}
	return l, r, nil
}

// evalLogical evaluates AND and OR. AND stops at a false left side and OR
// at a true one; otherwise a Null on either side makes the result Null.
func (q *Query) evalLogical(n *Node, mode Mode) (Value, error) {
	l, err := q.eval(n.Left, mode)
	if err != nil {
		return Value{}, err
	}
	if err := checkCondition(n.Op, l); err != nil {
		return Value{}, err
	}
	if l.IsBool() && l.Bool() == (n.Op == TokenOr) {
		return l, nil
	}

	r, err := q.eval(n.Right, mode)
	if err != nil {
		return Value{}, err
	}
	if err := checkCondition(n.Op, r); err != nil {
		return Value{}, err
	}
	if l.isNullLike() || r.isNullLike() {
		return Null(), nil
	}
	return r, nil
}

func checkCondition(op TokenType, v Value) error {
	if v.IsBool() || v.isNullLike() {
		return nil
	}
	return fmt.Errorf("%w: %s operand must be a condition, got %s", ErrTypeMismatch, op, v.Kind())
}

// evalFunc dispatches a function node. Aggregates accumulate in
// ModeAccumulate and report their result in ModeFinalize; scalars skip
// ModeAccumulate apart from descending into their arguments.
func (q *Query) evalFunc(id NodeID, n *Node, mode Mode) (Value, error) {
	fn, err := q.bind(id)
	if err != nil {
		return Value{}, err
	}
	aggregate := isAggregate(n.Name)

	switch {
	case aggregate && mode == ModeAccumulate:
		// A rejected input only leaves this aggregate unchanged.
		_, err := fn.Call(Args{q: q, ids: n.Args, mode: ModeRow})
		if err != nil && !IsFatal(err) {
			q.inputErrs = append(q.inputErrs, err)
			return Value{}, nil
		}
		return Value{}, err
	case aggregate && mode == ModeFinalize:
		return fn.Finalize()
	case aggregate:
		return Value{}, fmt.Errorf("%w: %s used outside an aggregate query", ErrMixedAggregate, n.Name)
	case mode == ModeAccumulate:
		for _, arg := range n.Args {
			if _, err := q.eval(arg, mode); err != nil {
				return Value{}, err
			}
		}
		return Value{}, nil
	}
	return fn.Call(Args{q: q, ids: n.Args, mode: mode})
}

// resolve binds a column node to a schema position or an alias on first
// evaluation. Positional references need no schema.
func (q *Query) resolve(n *Node) error {
	if n.binding != bindUnresolved {
		return nil
	}
	if n.Pos > 0 {
		n.binding, n.position = bindSchema, n.Pos-1
		return nil
	}

	pos, inSchema := q.scratch.Position(n.Name)
	idx, isAlias := q.aliases.Lookup(n.Name)
	switch {
	case inSchema && isAlias:
		return fmt.Errorf("%w: %q", ErrAmbiguousAlias, n.Name)
	case inSchema:
		n.binding, n.position = bindSchema, pos
	case isAlias:
		n.binding, n.alias = bindAlias, idx
	default:
		return fmt.Errorf("%w: %q", ErrColumnNotFound, n.Name)
	}
	return nil
}

// evalAlias evaluates the subtree bound to alias i at most once per row
// and mode
func (q *Query) evalAlias(i int, mode Mode) (Value, error) {
	if v, err, ok := q.cache.get(i, mode); ok {
		return v, err
	}

	q.aliasDepth++
	defer func() { q.aliasDepth-- }()
	if q.aliasDepth > MaxAliasDepth {
		return Value{}, fmt.Errorf("%w: %q (max %d)", ErrAliasCycle, q.aliases.Name(i), MaxAliasDepth)
	}

	v, err := q.eval(q.aliases.Node(i), mode)
	q.cache.put(i, mode, v, err)
	return v, err
}
