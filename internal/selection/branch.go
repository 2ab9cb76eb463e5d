// Package selection provides the constrained selection engine: an exact branch-and-bound optimizer
// over one binary decision per candidate, for bundle assembly and single-choice selection.
package selection

import (
	"context"
	"math"
)

// cancelCheckInterval is the number of nodes visited between context checks
const cancelCheckInterval = 256

// multiplier updates spent on the relaxation at the root and at every deeper node
const (
	rootIterations = 150
	nodeIterations = 8
)

type value int8

const (
	unassigned value = iota
	dropped
	picked
)

// keptCover is a cover row solved exactly inside the relaxation. Kept covers share no variable.
type keptCover struct {
	row   int
	exact bool

	// statistics over the free members, refreshed by evaluate
	met        bool
	top1, top2 float64
	topIdx     int
	posSum     float64
}

// pricedRow is a row moved into the objective with a multiplier, stored as coef·x <= rhs
// and scaled so its largest coefficient has magnitude one
type pricedRow struct {
	coef  []float64
	rhs   float64
	equal bool
	abs   float64
}

// search is the depth-first branch-and-bound state for one Solve call.
//
// Internally the objective is always maximized as gain (the objective for Maximize,
// its negation for Minimize). Among assignments with equal gain the one that selects
// the lowest-id candidate at the first differing variable wins, so the result does not
// depend on the branching order.
//
// Every node propagates the rows to a fixpoint, then bounds the subtree with a Lagrangian
// relaxation: covers that share no variable stay exact and every other row is priced into
// the gains. Free variables whose flip would sink the bound are fixed before branching.
type search struct {
	ctx       context.Context
	p         *Problem
	n         int
	gain      []float64
	absGain   float64
	cancelled bool
	nodes     int

	val      []value
	trail    []int
	activity []float64

	covers  []keptCover
	coverOf []int
	unmet   []bool
	coverLo []float64
	coverHi []float64

	priced   []pricedRow
	mult     []float64
	bestMult []float64
	step     []float64
	reduced  []float64
	relaxed  []bool

	found    bool
	best     []bool
	bestGain float64
}

func newSearch(ctx context.Context, p *Problem) *search {
	n := len(p.vars)
	s := &search{
		ctx:      ctx,
		p:        p,
		n:        n,
		gain:     make([]float64, n),
		val:      make([]value, n),
		activity: make([]float64, len(p.rows)),
		coverOf:  make([]int, n),
		reduced:  make([]float64, n),
		relaxed:  make([]bool, n),
	}
	for j, v := range p.obj {
		if p.sense == Minimize {
			v = -v
		}
		s.gain[j] = v
		s.absGain += math.Abs(v)
		s.coverOf[j] = -1
		if p.fixedZero[j] {
			s.val[j] = dropped
		}
	}
	s.splitRows()
	return s
}

// splitRows keeps pairwise disjoint cover rows exact and prices every other row
func (s *search) splitRows() {
	for r, rw := range s.p.rows {
		if rw.cover && s.disjointCover(rw) {
			c := len(s.covers)
			for j, a := range rw.coef {
				if a != 0 {
					s.coverOf[j] = c
				}
			}
			s.covers = append(s.covers, keptCover{row: r, exact: rw.rel == equal})
			continue
		}

		scale := 0.0
		for _, a := range rw.coef {
			scale = math.Max(scale, math.Abs(a))
		}
		if scale == 0 {
			continue
		}
		sign := 1.0
		if rw.rel == greaterEqual {
			sign = -1
		}
		pr := pricedRow{coef: make([]float64, s.n), rhs: sign * rw.rhs / scale, equal: rw.rel == equal}
		pr.abs = math.Abs(pr.rhs)
		for j, a := range rw.coef {
			pr.coef[j] = sign * a / scale
			pr.abs += math.Abs(pr.coef[j])
		}
		s.priced = append(s.priced, pr)
	}

	s.unmet = make([]bool, len(s.covers))
	s.coverLo = make([]float64, len(s.covers))
	s.coverHi = make([]float64, len(s.covers))
	s.mult = make([]float64, len(s.priced))
	s.bestMult = make([]float64, len(s.priced))
	s.step = make([]float64, len(s.priced))
}

func (s *search) disjointCover(rw row) bool {
	for j, a := range rw.coef {
		if a != 0 && s.coverOf[j] >= 0 {
			return false
		}
	}
	return true
}

func (s *search) run() {
	if s.ctx.Err() != nil {
		s.cancelled = true
		return
	}
	s.visit(0)
}

// visit explores the subtree where every variable before from is assigned
func (s *search) visit(from int) {
	if s.cancelled {
		return
	}
	s.nodes++
	if s.nodes%cancelCheckInterval == 0 && s.ctx.Err() != nil {
		s.cancelled = true
		return
	}

	mark := len(s.trail)
	defer s.undo(mark)

	k, bound, ok := s.settle(from)
	if !ok {
		return
	}
	if k == s.n {
		s.offer()
		return
	}
	if s.found && s.dominated(k, bound) {
		return
	}

	first := s.relaxed[k]
	for _, pick := range [2]bool{first, !first} {
		m := len(s.trail)
		s.assign(k, pick)
		s.visit(k + 1)
		s.undo(m)
		if s.cancelled {
			return
		}
	}
}

// settle propagates and bounds the current node, then fixes the variables the bound decides.
// It returns the first free variable from index from together with the bound, or false once
// the node is pruned.
func (s *search) settle(from int) (int, float64, bool) {
	for round := 0; ; round++ {
		if !s.propagate() {
			return 0, 0, false
		}
		k := s.nextFree(from)
		if k == s.n {
			return k, 0, true
		}

		threshold := s.bestGain
		if !s.found {
			threshold = s.floor()
		}
		iterations := nodeIterations
		if s.nodes == 1 && round == 0 {
			iterations = rootIterations
		}

		bound := s.relax(threshold-tieTolerance(threshold)-s.slack(), iterations)
		cut := threshold - tieTolerance(threshold) - s.slack()
		if bound < cut {
			return 0, 0, false
		}
		if round == 3 || !s.fixByReducedGain(bound, cut) {
			return k, bound, true
		}
	}
}

func (s *search) nextFree(from int) int {
	k := from
	for k < s.n && s.val[k] != unassigned {
		k++
	}
	return k
}

func (s *search) assign(j int, pick bool) {
	s.trail = append(s.trail, j)
	if !pick {
		s.val[j] = dropped
		return
	}
	s.val[j] = picked
	for r, rw := range s.p.rows {
		s.activity[r] += rw.coef[j]
	}
}

func (s *search) undo(mark int) {
	for len(s.trail) > mark {
		last := len(s.trail) - 1
		j := s.trail[last]
		s.trail = s.trail[:last]
		if s.val[j] == picked {
			for r, rw := range s.p.rows {
				s.activity[r] -= rw.coef[j]
			}
		}
		s.val[j] = unassigned
	}
}

func (s *search) coverMet(c int) bool {
	return s.activity[s.covers[c].row] >= 1-feasTolerance(1)
}

// propagate fixes every free variable whose value a single row implies, until nothing
// changes. It reports false when some row can no longer hold.
func (s *search) propagate() bool {
	for changed := true; changed; {
		changed = false
		for r, rw := range s.p.rows {
			lo, hi := s.rowRange(r)
			tol := feasTolerance(rw.rhs)
			upper := rw.rel != greaterEqual
			lower := rw.rel != lessEqual
			if (upper && lo > rw.rhs+tol) || (lower && hi < rw.rhs-tol) {
				return false
			}

			for j, a := range rw.coef {
				if a == 0 || s.val[j] != unassigned {
					continue
				}
				var coverLo, coverHi float64
				if c := s.coverOf[j]; c >= 0 {
					coverLo, coverHi = s.coverLo[c], s.coverHi[c]
				}
				switch {
				case upper && a > 0 && lo-coverLo+a > rw.rhs+tol:
					s.assign(j, false)
				case upper && a < 0 && lo-a > rw.rhs+tol:
					s.assign(j, true)
				case lower && a < 0 && hi-coverHi+a < rw.rhs-tol:
					s.assign(j, false)
				case lower && a > 0 && hi-a < rw.rhs-tol:
					s.assign(j, true)
				default:
					continue
				}
				changed = true
			}
		}
	}
	return true
}

// rowRange bounds the activity of row r over every completion of the current assignment.
// Each unmet kept cover must still pick one member, so its least (or greatest) coefficient
// is counted; coverLo and coverHi record that share per cover.
func (s *search) rowRange(r int) (lo, hi float64) {
	for c := range s.covers {
		s.unmet[c] = !s.coverMet(c)
		s.coverLo[c] = math.Inf(1)
		s.coverHi[c] = math.Inf(-1)
	}

	lo, hi = s.activity[r], s.activity[r]
	for j, a := range s.p.rows[r].coef {
		if s.val[j] != unassigned {
			continue
		}
		if a < 0 {
			lo += a
		} else {
			hi += a
		}
		if c := s.coverOf[j]; c >= 0 && s.unmet[c] {
			s.coverLo[c] = math.Min(s.coverLo[c], math.Max(a, 0))
			s.coverHi[c] = math.Max(s.coverHi[c], math.Min(a, 0))
		}
	}

	for c := range s.covers {
		if !s.unmet[c] {
			s.coverLo[c], s.coverHi[c] = 0, 0
			continue
		}
		lo += s.coverLo[c]
		hi += s.coverHi[c]
	}
	return lo, hi
}

// floor is the lowest gain any completion of the current assignment can have
func (s *search) floor() float64 {
	f := 0.0
	for j, v := range s.val {
		switch v {
		case picked:
			f += s.gain[j]
		case unassigned:
			f += math.Min(0, s.gain[j])
		}
	}
	return f
}

// slack absorbs rounding in a bound computed with the current multipliers
func (s *search) slack() float64 {
	mag := s.absGain
	for r, pr := range s.priced {
		mag += math.Abs(s.mult[r]) * pr.abs
	}
	return 1e-9 * mag
}

// evaluate solves the relaxation for the current multipliers and records its solution in
// relaxed. It returns -Inf when an unmet cover has no free member.
func (s *search) evaluate() float64 {
	bound := 0.0
	for r, pr := range s.priced {
		bound += s.mult[r] * pr.rhs
	}
	for c := range s.covers {
		kc := &s.covers[c]
		kc.met = s.coverMet(c)
		kc.top1, kc.top2, kc.topIdx, kc.posSum = math.Inf(-1), math.Inf(-1), -1, 0
	}

	for j := 0; j < s.n; j++ {
		s.relaxed[j] = false
		if s.val[j] == dropped {
			continue
		}
		g := s.gain[j]
		for r, pr := range s.priced {
			g -= s.mult[r] * pr.coef[j]
		}
		s.reduced[j] = g

		if s.val[j] == picked {
			bound += g
			s.relaxed[j] = true
			continue
		}
		c := s.coverOf[j]
		if c >= 0 && !s.covers[c].met {
			kc := &s.covers[c]
			if g > kc.top1 {
				kc.top2, kc.top1, kc.topIdx = kc.top1, g, j
			} else if g > kc.top2 {
				kc.top2 = g
			}
			if !kc.exact && g > 0 {
				kc.posSum += g
				s.relaxed[j] = true
			}
			continue
		}
		if c >= 0 && s.covers[c].exact {
			continue
		}
		if g > 0 {
			bound += g
			s.relaxed[j] = true
		}
	}

	for c := range s.covers {
		kc := &s.covers[c]
		if kc.met {
			continue
		}
		if kc.topIdx < 0 {
			return math.Inf(-1)
		}
		if !kc.exact && kc.posSum > 0 {
			bound += kc.posSum
			continue
		}
		bound += kc.top1
		s.relaxed[kc.topIdx] = true
	}
	return bound
}

// relax lowers the relaxation bound with projected subgradient steps, stopping once it falls
// below cut. The lowest bound found is returned, and the multipliers and relaxed solution
// are left at the point that produced it.
func (s *search) relax(cut float64, iterations int) float64 {
	bound := s.evaluate()
	if len(s.priced) == 0 || math.IsInf(bound, -1) {
		return bound
	}
	copy(s.bestMult, s.mult)

	if !allZero(s.mult) {
		clear(s.mult)
		if flat := s.evaluate(); flat < bound {
			bound = flat
			clear(s.bestMult)
		} else {
			copy(s.mult, s.bestMult)
			s.evaluate()
		}
	}

	current, theta, stall, kept := bound, 2.0, 0, true
	for it := 0; it < iterations && bound >= cut && theta > 1e-3; it++ {
		norm := 0.0
		for r, pr := range s.priced {
			d := pr.rhs
			for j, a := range pr.coef {
				if s.relaxed[j] {
					d -= a
				}
			}
			if !pr.equal && s.mult[r] == 0 && d > 0 {
				d = 0
			}
			s.step[r] = d
			norm += d * d
		}
		if norm == 0 {
			break
		}

		t := theta * (current - cut) / norm
		for r, pr := range s.priced {
			s.mult[r] -= t * s.step[r]
			if !pr.equal && s.mult[r] < 0 {
				s.mult[r] = 0
			}
		}

		current = s.evaluate()
		if current < bound {
			bound, stall, kept = current, 0, true
			copy(s.bestMult, s.mult)
			continue
		}
		kept = false
		stall++
		if stall >= 3 {
			theta /= 2
			stall = 0
		}
	}

	if !kept {
		copy(s.mult, s.bestMult)
		s.evaluate()
	}
	return bound
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// fixByReducedGain fixes every free variable to its relaxed value when the opposite value
// would push the bound below cut
func (s *search) fixByReducedGain(bound, cut float64) bool {
	fixed := false
	for j := 0; j < s.n; j++ {
		if s.val[j] != unassigned {
			continue
		}
		if bound-s.flipLoss(j) < cut {
			s.assign(j, s.relaxed[j])
			fixed = true
		}
	}
	return fixed
}

// flipLoss is how far the relaxation bound drops when free variable j takes the value
// opposite to its relaxed one
func (s *search) flipLoss(j int) float64 {
	g := s.reduced[j]
	c := s.coverOf[j]
	if c < 0 {
		return math.Abs(g)
	}
	kc := &s.covers[c]
	switch {
	case kc.met && kc.exact:
		return 0
	case kc.met:
		return math.Abs(g)
	case !kc.exact && kc.posSum > 0:
		if g <= 0 {
			return -g
		}
		if kc.posSum-g > 0 {
			return g
		}
		// j is the only member with positive gain
		return g - kc.top2
	case j == kc.topIdx:
		return kc.top1 - kc.top2
	default:
		return kc.top1 - g
	}
}

// dominated reports whether no completion of the current assignment can replace the incumbent
func (s *search) dominated(k int, bound float64) bool {
	tol := tieTolerance(s.bestGain)
	if bound > s.bestGain+tol {
		return false
	}
	// only ties remain; they win only if the prefix already precedes the incumbent
	return s.comparePrefix(k) > 0
}

// offer considers the complete assignment as a new incumbent. The recorded gain never moves
// down when a tie replaces the incumbent.
func (s *search) offer() {
	gain := 0.0
	for j, v := range s.val {
		if v == picked {
			gain += s.gain[j]
		}
	}
	if !s.found {
		s.accept(gain)
		return
	}
	tol := tieTolerance(s.bestGain)
	switch {
	case gain > s.bestGain+tol:
		s.accept(gain)
	case gain >= s.bestGain-tol && s.comparePrefix(s.n) < 0:
		s.accept(math.Max(s.bestGain, gain))
	}
}

func (s *search) accept(gain float64) {
	s.found = true
	s.bestGain = gain
	s.best = s.best[:0]
	for _, v := range s.val {
		s.best = append(s.best, v == picked)
	}
}

// comparePrefix orders the assignment of variables 0..i-1 against the incumbent: -1 when
// it picks the lower id at the first difference, 1 when the incumbent does, 0 when they agree
func (s *search) comparePrefix(i int) int {
	for j := 0; j < i; j++ {
		x := s.val[j] == picked
		if x == s.best[j] {
			continue
		}
		if x {
			return -1
		}
		return 1
	}
	return 0
}

func tieTolerance(v float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(v))
}
