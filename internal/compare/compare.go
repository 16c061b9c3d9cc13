// Package compare holds the closed set of threshold operators used to accept
// or reject fit results.
package compare

import (
	"errors"
	"fmt"
)

// ErrUnknownOperator is returned when an operator string is not one of
// ">", ">=", "<", "<=", "==", "!=".
var ErrUnknownOperator = errors.New("unknown comparison operator")

// Op is a comparison kind.
type Op int

const (
	GT Op = iota + 1 // >
	GE               // >=
	LT               // <
	LE               // <=
	EQ               // ==
	NE               // !=
)

var symbols = map[Op]string{
	GT: ">",
	GE: ">=",
	LT: "<",
	LE: "<=",
	EQ: "==",
	NE: "!=",
}

// Ops returns every operator in declaration order.
func Ops() []Op {
	return []Op{GT, GE, LT, LE, EQ, NE}
}

// Parse resolves an operator symbol. It never falls back to a default.
func Parse(s string) (Op, error) {
	switch s {
	case ">":
		return GT, nil
	case ">=":
		return GE, nil
	case "<":
		return LT, nil
	case "<=":
		return LE, nil
	case "==":
		return EQ, nil
	case "!=":
		return NE, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownOperator, s)
}

// Valid reports whether o is one of Ops().
func (o Op) Valid() bool {
	_, ok := symbols[o]
	return ok
}

// Eval applies the operator to (a, b). An invalid operator never holds.
func (o Op) Eval(a, b float64) bool {
	switch o {
	case GT:
		return a > b
	case GE:
		return a >= b
	case LT:
		return a < b
	case LE:
		return a <= b
	case EQ:
		return a == b
	case NE:
		return a != b
	}
	return false
}

func (o Op) String() string {
	if s, ok := symbols[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// MarshalText encodes the operator as its symbol.
func (o Op) MarshalText() ([]byte, error) {
	s, ok := symbols[o]
	if !ok {
		return nil, fmt.Errorf("%w: Op(%d)", ErrUnknownOperator, int(o))
	}
	return []byte(s), nil
}

// UnmarshalText decodes an operator symbol, so config files and result
// records carry ">=" rather than an integer.
func (o *Op) UnmarshalText(text []byte) error {
	op, err := Parse(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}
