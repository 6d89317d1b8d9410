package authz

import (
	"fmt"
	"strings"
)

// Predicate is a declarative query filter. Scope builders return one per
// resource type; repositories render it into a WHERE fragment with ToSQL.
// Predicates are pure values: building one performs no I/O.
type Predicate interface {
	isPredicate()
}

type condEq struct {
	column string
	value  interface{}
}

type condIsNull struct {
	column string
}

type andPred struct {
	preds []Predicate
}

type orPred struct {
	preds []Predicate
}

// neverPred matches no rows. It is the "access denied" answer for callers
// whose role has no claim on a resource; deliberately not an error.
type neverPred struct{}

func (condEq) isPredicate()     {}
func (condIsNull) isPredicate() {}
func (andPred) isPredicate()    {}
func (orPred) isPredicate()     {}
func (neverPred) isPredicate()  {}

// Eq matches rows where column equals value.
func Eq(column string, value interface{}) Predicate {
	return condEq{column: column, value: value}
}

// IsNull matches rows where column is NULL.
func IsNull(column string) Predicate {
	return condIsNull{column: column}
}

// And conjoins predicates. And() with no arguments matches everything.
func And(preds ...Predicate) Predicate {
	return andPred{preds: preds}
}

// Or disjoins predicates.
func Or(preds ...Predicate) Predicate {
	return orPred{preds: preds}
}

// Never returns the unsatisfiable predicate.
func Never() Predicate {
	return neverPred{}
}

// Satisfiable reports whether the predicate can match any row at all.
func Satisfiable(p Predicate) bool {
	switch v := p.(type) {
	case neverPred:
		return false
	case andPred:
		for _, sub := range v.preds {
			if !Satisfiable(sub) {
				return false
			}
		}
		return true
	case orPred:
		for _, sub := range v.preds {
			if Satisfiable(sub) {
				return true
			}
		}
		return len(v.preds) == 0
	default:
		return true
	}
}

// ToSQL renders the predicate as a SQL boolean expression with positional
// placeholders starting at argIndex, returning the expression and its
// arguments in order. Column names are emitted verbatim, so scope builders
// and repositories must agree on table aliases.
func ToSQL(p Predicate, argIndex int) (string, []interface{}) {
	var args []interface{}
	expr := render(p, &argIndex, &args)
	return expr, args
}

func render(p Predicate, argIndex *int, args *[]interface{}) string {
	switch v := p.(type) {
	case condEq:
		s := fmt.Sprintf("%s = $%d", v.column, *argIndex)
		*argIndex++
		*args = append(*args, v.value)
		return s
	case condIsNull:
		return v.column + " IS NULL"
	case andPred:
		if len(v.preds) == 0 {
			return "TRUE"
		}
		parts := make([]string, 0, len(v.preds))
		for _, sub := range v.preds {
			parts = append(parts, render(sub, argIndex, args))
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case orPred:
		if len(v.preds) == 0 {
			return "FALSE"
		}
		parts := make([]string, 0, len(v.preds))
		for _, sub := range v.preds {
			parts = append(parts, render(sub, argIndex, args))
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	case neverPred:
		return "FALSE"
	default:
		return "FALSE"
	}
}
