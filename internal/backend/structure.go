package backend

import "github.com/edkins/fractalwasm/internal/dag"

// structureKind tags the two Structure variants used by the non-Newton
// lowering path. The dual-number variant used by the Newton/derivative
// path has its own type, derivStruct, in newton.go — it never mixes with
// plain Structure values.
type structureKind int

const (
	sComplex structureKind = iota
	sBool
)

// Structure is the lowered type of a sub-expression: either a complex
// pair (real, imag) or an i32 boolean comparison result.
type Structure struct {
	kind structureKind
	x, y dag.Node // valid when kind == sComplex
	b    dag.Node // valid when kind == sBool
}

func complexStructure(x, y dag.Node) Structure { return Structure{kind: sComplex, x: x, y: y} }
func boolStructure(b dag.Node) Structure       { return Structure{kind: sBool, b: b} }

// asComplex unwraps a Complex Structure, or fails with WrongStructureKind.
func (s Structure) asComplex() (dag.Node, dag.Node) {
	if s.kind != sComplex {
		fail(WrongStructureKind, "expected a complex value, found a boolean")
	}
	return s.x, s.y
}

// asBool unwraps a Bool Structure, or fails with WrongStructureKind.
func (s Structure) asBool() dag.Node {
	if s.kind != sBool {
		fail(WrongStructureKind, "expected a boolean value, found a complex number")
	}
	return s.b
}

// assertReal returns the real part of a Complex Structure whose imaginary
// part is a constant-zero node, or fails with NonRealReduction. This is
// the check applied whenever a Structure is reduced to a plain scalar.
func (s Structure) assertReal() dag.Node {
	x, y := s.asComplex()
	if !y.IsZeroConst() {
		fail(NonRealReduction, "value is not known to be real (imaginary part is not a constant zero)")
	}
	return x
}

// --- componentwise complex arithmetic over raw (x,y) node pairs ---
//
// These are shared by Structure-based lowering (lowerComplex in backend.go)
// and by the backend's own hard-coded escape conditions (sqabs(z) in the
// simple shape, the Newton solver's complex division), so both paths agree
// on the same formulas.

func complexAdd(d *dag.Dag, ax, ay, bx, by dag.Node) (dag.Node, dag.Node) {
	return d.Add(ax, bx), d.Add(ay, by)
}

func complexSub(d *dag.Dag, ax, ay, bx, by dag.Node) (dag.Node, dag.Node) {
	return d.Sub(ax, bx), d.Sub(ay, by)
}

func complexMul(d *dag.Dag, ax, ay, bx, by dag.Node) (dag.Node, dag.Node) {
	x0x1 := d.Mul(ax, bx)
	y0y1 := d.Mul(ay, by)
	x0y1 := d.Mul(ax, by)
	x1y0 := d.Mul(bx, ay)
	return d.Sub(x0x1, y0y1), d.Add(x0y1, x1y0)
}

// complexDiv multiplies the numerator by the conjugate of the denominator
// and divides by the denominator's squared magnitude: (ac+bd)/(c²+d²),
// (bc−ad)/(c²+d²).
func complexDiv(d *dag.Dag, ax, ay, bx, by dag.Node) (dag.Node, dag.Node) {
	denom := d.Add(d.Mul(bx, bx), d.Mul(by, by))
	numx := d.Add(d.Mul(ax, bx), d.Mul(ay, by))
	numy := d.Sub(d.Mul(ay, bx), d.Mul(ax, by))
	return d.Div(numx, denom), d.Div(numy, denom)
}

func complexNeg(d *dag.Dag, x, y dag.Node) (dag.Node, dag.Node) {
	return d.Neg(x), d.Neg(y)
}

// complexSqabs returns (x²+y², 0): the imaginary part is forced to the
// constant-zero node, marking the result as real.
func complexSqabs(d *dag.Dag, x, y dag.Node) (dag.Node, dag.Node) {
	return d.Add(d.Mul(x, x), d.Mul(y, y)), d.Zero()
}

func complexReal(d *dag.Dag, x, _ dag.Node) (dag.Node, dag.Node) {
	return x, d.Zero()
}

func complexConj(d *dag.Dag, x, y dag.Node) (dag.Node, dag.Node) {
	return x, d.Neg(y)
}
