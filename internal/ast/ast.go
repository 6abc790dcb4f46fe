// Package ast defines the expression surface syntax and the
// recursive-descent parser that produces it.
package ast

import "fmt"

// ExprKind tags the three Expr variants.
type ExprKind int

const (
	Number ExprKind = iota
	Var
	Call
)

// Expr is a tagged expression node: a numeric literal, a variable
// reference, or an n-ary named-operator call. Arity is implied by Op and
// is not separately validated by the parser — that's internal/backend's
// job, when it looks Op up in its lowering table.
type Expr struct {
	Kind ExprKind
	Num  float64 // valid when Kind == Number
	Name string  // valid when Kind == Var or Kind == Call (the var name / op name)
	Args []Expr  // valid when Kind == Call
}

func NewNumber(v float64) Expr { return Expr{Kind: Number, Num: v} }
func NewVar(name string) Expr  { return Expr{Kind: Var, Name: name} }
func NewCall(op string, args ...Expr) Expr {
	return Expr{Kind: Call, Name: op, Args: args}
}

func (e Expr) String() string {
	switch e.Kind {
	case Number:
		return fmt.Sprintf("%g", e.Num)
	case Var:
		return e.Name
	case Call:
		s := e.Name + "("
		for i, a := range e.Args {
			if i > 0 {
				s += ", "
			}
			s += a.String()
		}
		return s + ")"
	default:
		return "<invalid expr>"
	}
}
