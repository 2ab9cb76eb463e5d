// Package selection provides the constrained selection engine: an exact branch-and-bound optimizer
// over one binary decision per candidate, for bundle assembly and single-choice selection.
package selection

import (
	"context"
	"math"

	"github.com/jonathan/benefit-optimizer/internal/candidates"
	"github.com/jonathan/benefit-optimizer/internal/constraints"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

// State is the lifecycle stage of a Problem
type State int

// Problem states. Optimal, Infeasible and Error are terminal.
const (
	StateUnbuilt State = iota
	StateBuilt
	StateSolving
	StateOptimal
	StateInfeasible
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateBuilt:
		return "built"
	case StateSolving:
		return "solving"
	case StateOptimal:
		return "optimal"
	case StateInfeasible:
		return "infeasible"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateOptimal || s == StateInfeasible || s == StateError
}

// Sense is the optimization direction of the objective
type Sense int

// Objective senses
const (
	Minimize Sense = iota
	Maximize
)

type relation int

const (
	lessEqual relation = iota
	greaterEqual
	equal
)

// row is one linear constraint sum(coef[j] * x[j]) <relation> rhs
type row struct {
	coef  []float64
	rel   relation
	rhs   float64
	label string
	// cover rows have 0/1 coefficients and require at least one more selection while unsatisfied
	cover bool
}

// Problem is a binary program with one decision variable per candidate.
// Variables are ordered by ascending candidate id.
type Problem struct {
	state     State
	sense     Sense
	pool      []types.Candidate
	objective func(types.Candidate) float64

	vars      []types.Candidate
	obj       []float64
	rows      []row
	fixedZero []bool
	nodes     int
}

// NewProblem returns an unbuilt problem over pool with the given objective coefficient per candidate
func NewProblem(sense Sense, pool []types.Candidate, objective func(types.Candidate) float64) *Problem {
	return &Problem{
		state:     StateUnbuilt,
		sense:     sense,
		pool:      pool,
		objective: objective,
	}
}

// State returns the current lifecycle state
func (p *Problem) State() State {
	return p.state
}

// Nodes returns the number of search nodes visited by Solve
func (p *Problem) Nodes() int {
	return p.nodes
}

// Build enumerates the decision variables and translates every constraint into linear rows
func (p *Problem) Build(cs []types.Constraint) error {
	if p.state != StateUnbuilt {
		prev := p.state
		p.state = StateError
		return faultf("build called in state %s", prev)
	}

	p.vars = candidates.SortedByID(p.pool)
	n := len(p.vars)
	p.obj = make([]float64, n)
	for j, c := range p.vars {
		p.obj[j] = p.objective(c)
		if math.IsNaN(p.obj[j]) || math.IsInf(p.obj[j], 0) {
			p.state = StateError
			return faultf("objective coefficient for %s is not finite", c.ID)
		}
	}
	p.fixedZero = make([]bool, n)

	for _, c := range cs {
		if err := p.addConstraint(c); err != nil {
			p.state = StateError
			return err
		}
	}
	p.presolve()

	p.state = StateBuilt
	return nil
}

// presolve fixes to zero every variable whose coefficient alone exceeds a ceiling row that
// has no negative coefficient, repeating until no further variable is fixed
func (p *Problem) presolve() {
	for changed := true; changed; {
		changed = false
		for _, r := range p.rows {
			if r.rel != lessEqual || hasNegative(r.coef) {
				continue
			}
			tol := feasTolerance(r.rhs)
			for j, c := range r.coef {
				if !p.fixedZero[j] && c > r.rhs+tol {
					p.fixedZero[j] = true
					changed = true
				}
			}
		}
	}
}

func hasNegative(coef []float64) bool {
	for _, c := range coef {
		if c < 0 {
			return true
		}
	}
	return false
}

func (p *Problem) addConstraint(c types.Constraint) error {
	n := len(p.vars)
	r := row{coef: make([]float64, n), label: c.String()}

	switch c.Kind {
	case types.ConstraintBudget, types.ConstraintSumAttributeLessEqual:
		for j, v := range p.vars {
			r.coef[j] = v.Value(c.Attribute)
		}
		r.rel = lessEqual
		r.rhs = c.Ceiling
	case types.ConstraintExactlyOneSelected:
		for j := range p.vars {
			r.coef[j] = 1
		}
		r.rel = equal
		r.rhs = 1
		r.cover = true
	case types.ConstraintAtLeastOneOfCategory:
		for j, v := range p.vars {
			if v.Category == c.Category {
				r.coef[j] = 1
			}
		}
		r.rel = greaterEqual
		r.rhs = 1
		r.cover = true
	case types.ConstraintPreferredAtLeastOther:
		preferred := constraints.ProviderSet(c.Providers)
		for j, v := range p.vars {
			if preferred[v.Provider] {
				r.coef[j] = 1
			} else {
				r.coef[j] = -1
			}
		}
		r.rel = greaterEqual
		r.rhs = 0
	case types.ConstraintExcludeIf:
		for j, v := range p.vars {
			if c.Predicate.Matches(v) {
				p.fixedZero[j] = true
			}
		}
		return nil
	default:
		return faultf("unsupported constraint kind %q", c.Kind)
	}

	p.rows = append(p.rows, r)
	return nil
}

// Solution is the outcome of a completed solve
type Solution struct {
	Status    types.ResultStatus
	Chosen    []types.Candidate
	Objective float64
	Nodes     int
}

// Solve runs the exact search. Cancellation is checked between search nodes and
// yields a Cancelled error, never a partial solution.
func (p *Problem) Solve(ctx context.Context) (*Solution, error) {
	if p.state != StateBuilt {
		prev := p.state
		p.state = StateError
		return nil, faultf("solve called in state %s", prev)
	}
	p.state = StateSolving

	s := newSearch(ctx, p)
	s.run()
	p.nodes = s.nodes

	if s.cancelled {
		p.state = StateError
		return nil, &Error{Kind: KindCancelled, Message: "optimization cancelled", Cause: ctx.Err()}
	}
	if !s.found {
		p.state = StateInfeasible
		return &Solution{Status: types.StatusInfeasible, Nodes: s.nodes}, nil
	}

	if err := p.verify(s.best); err != nil {
		p.state = StateError
		return nil, err
	}

	chosen := make([]types.Candidate, 0)
	objective := 0.0
	for j, selected := range s.best {
		if selected {
			chosen = append(chosen, p.vars[j])
			objective += p.obj[j]
		}
	}

	p.state = StateOptimal
	return &Solution{Status: types.StatusOptimal, Chosen: chosen, Objective: objective, Nodes: s.nodes}, nil
}

// verify re-checks the incumbent against every row, independently of the search bookkeeping
func (p *Problem) verify(x []bool) error {
	if len(x) != len(p.vars) {
		return faultf("assignment has %d variables, problem has %d", len(x), len(p.vars))
	}
	for j, selected := range x {
		if selected && p.fixedZero[j] {
			return faultf("excluded candidate %s was selected", p.vars[j].ID)
		}
	}
	for _, r := range p.rows {
		activity := 0.0
		for j, selected := range x {
			if selected {
				activity += r.coef[j]
			}
		}
		if !satisfies(r, activity) {
			return faultf("selection violates %s (activity %g)", r.label, activity)
		}
	}
	return nil
}

func satisfies(r row, activity float64) bool {
	tol := feasTolerance(r.rhs)
	switch r.rel {
	case lessEqual:
		return activity <= r.rhs+tol
	case greaterEqual:
		return activity >= r.rhs-tol
	default:
		return math.Abs(activity-r.rhs) <= tol
	}
}

func feasTolerance(rhs float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(rhs))
}
