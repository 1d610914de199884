package rtmsim

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// Outputter evaluates user-declared derived output fields against a
// whole snapshot, following the teacher's io.go Outputter
// (govaluate-backed expression evaluation over named variables and
// registered aggregate functions). Variables are bound to arrays
// spanning every cell, and an expression is evaluated once per
// snapshot rather than once per cell.
type Outputter struct {
	expressions map[string]*govaluate.EvaluableExpression
	functions   map[string]govaluate.ExpressionFunction
}

// NewOutputter registers the default aggregate functions available to
// every expression: sum, mean, max, min, mirroring the teacher's
// default set (exp, log, log10, sum), generalized from the teacher's
// single-array sum(x) to accept several equal-length arrays, which are
// elementwise-multiplied before reducing (so sum(gamma, volume) is the
// total resin-filled volume).
func NewOutputter() *Outputter {
	o := &Outputter{
		expressions: make(map[string]*govaluate.EvaluableExpression),
		functions:   make(map[string]govaluate.ExpressionFunction),
	}
	o.functions["sum"] = aggFunc(sumOf)
	o.functions["mean"] = aggFunc(meanOf)
	o.functions["max"] = aggFunc(maxOf)
	o.functions["min"] = aggFunc(minOf)
	return o
}

// aggFunc adapts a reducer over the elementwise product of one or
// more snapshot arrays into a govaluate function.
func aggFunc(reduce func([]float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		arrays := make([][]float64, len(args))
		for i, a := range args {
			xs, ok := a.([]float64)
			if !ok {
				return nil, fmt.Errorf("rtmsim: aggregate function argument %d is not a snapshot array", i)
			}
			arrays[i] = xs
		}
		return reduce(elementwiseProduct(arrays)), nil
	}
}

func elementwiseProduct(arrays [][]float64) []float64 {
	if len(arrays) == 0 {
		return nil
	}
	out := make([]float64, len(arrays[0]))
	for i := range out {
		p := 1.0
		for _, a := range arrays {
			p *= a[i]
		}
		out[i] = p
	}
	return out
}

func sumOf(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sumOf(xs) / float64(len(xs))
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// Add registers a derived field under name, evaluated once per
// snapshot against whole-mesh arrays bound to
// {rho, u, v, p, gamma, gammaHat, volume} (spec §4.13).
func (o *Outputter) Add(name, expression string) error {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, o.functions)
	if err != nil {
		return fmt.Errorf("rtmsim: invalid output expression %q: %w", name, err)
	}
	o.expressions[name] = expr
	return nil
}

// Evaluate computes every registered field over the whole snapshot.
// states and volumes are indexed by cell; gammaHats is the
// output-only γ̂ encoding from BuildResultSnapshot.
func (o *Outputter) Evaluate(states []CellState, volumes, gammaHats []float64) (map[string]float64, error) {
	n := len(states)
	rho := make([]float64, n)
	u := make([]float64, n)
	v := make([]float64, n)
	p := make([]float64, n)
	gamma := make([]float64, n)
	for i, st := range states {
		rho[i], u[i], v[i], p[i], gamma[i] = st.Rho, st.U, st.V, st.P, st.Gamma
	}
	env := map[string]interface{}{
		"rho": rho, "u": u, "v": v, "p": p, "gamma": gamma,
		"gammaHat": gammaHats, "volume": volumes,
	}
	out := make(map[string]float64, len(o.expressions))
	for name, expr := range o.expressions {
		val, err := expr.Evaluate(env)
		if err != nil {
			return nil, fmt.Errorf("rtmsim: evaluating output %q: %w", name, err)
		}
		f, ok := val.(float64)
		if !ok {
			return nil, fmt.Errorf("rtmsim: output %q did not evaluate to a number", name)
		}
		out[name] = f
	}
	return out, nil
}
