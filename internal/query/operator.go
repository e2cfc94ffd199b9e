package query

import (
	"fmt"
	"strings"
)

// Operator is a binary comparison between a field value and a literal.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
)

// ParseOperator maps an operator spelling to an Operator.
func ParseOperator(raw string) (Operator, error) {
	switch strings.TrimSpace(raw) {
	case "==", "=", "===":
		return OpEqual, nil
	case "!=", "<>", "!==":
		return OpNotEqual, nil
	case "<":
		return OpLess, nil
	case "<=":
		return OpLessOrEqual, nil
	case ">":
		return OpGreater, nil
	case ">=":
		return OpGreaterOrEqual, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedOperator, raw)
	}
}

func (op Operator) String() string {
	switch op {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// holds reports whether a three-way comparison result satisfies op.
func (op Operator) holds(cmp int) bool {
	switch op {
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpLess:
		return cmp < 0
	case OpLessOrEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpGreaterOrEqual:
		return cmp >= 0
	default:
		return false
	}
}
