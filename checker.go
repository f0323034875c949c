package qcec

import (
	"context"
	"errors"
	"math"
	"time"
)

// equivalenceChecker is one strategy instance. Instances own their diagram
// package outright, so independent checkers never contend on shared state.
type equivalenceChecker interface {
	name() string
	run(ctx context.Context) checkOutcome
}

// checkOutcome is a CheckerResult plus the evidence only some strategies
// produce.
type checkOutcome struct {
	CheckerResult
	counterexample *Counterexample
}

// finishOutcome classifies a checker error into a lifecycle state. Timeouts
// and superseded runs are not failures; they just carry no information.
func finishOutcome(name string, started time.Time, p *Package, verdict EquivalenceCriterion, err error) checkOutcome {
	out := checkOutcome{CheckerResult: CheckerResult{
		Checker:     name,
		Equivalence: verdict,
		Runtime:     time.Since(started),
	}}
	if p != nil {
		out.PeakNodes = p.Stats().PeakNodes
	}
	switch {
	case err == nil:
		switch verdict {
		case NotEquivalent, ProbablyNotEquivalent:
			out.State = StateDisproved
		case NoInformation:
			out.State = StateInconclusive
		default:
			out.State = StateProved
		}
	case errors.Is(err, context.DeadlineExceeded):
		out.State = StateTimedOut
		out.Equivalence = NoInformation
	case errors.Is(err, context.Canceled):
		out.State = StateInconclusive
		out.Equivalence = NoInformation
	case errors.Is(err, ErrResourceExhausted):
		out.State = StateInconclusive
		out.Equivalence = NoInformation
		out.Error = err.Error()
	default:
		out.State = StateFailed
		out.Equivalence = NoInformation
		out.Error = err.Error()
	}
	return out
}

// matrixVerdict compares two operator diagrams. Identical nodes decide in
// constant time; otherwise closeness of U * V^dagger to the identity
// absorbs numerical noise accumulated along different gate orders.
func (p *Package) matrixVerdict(e, f Edge, traceThreshold float64) EquivalenceCriterion {
	if e.n == f.n {
		if p.weights.approxEqual(e.w, f.w) {
			return Equivalent
		}
		return EquivalentUpToGlobalPhase
	}

	g := p.Multiply(e, p.ConjugateTranspose(f))
	if !p.IsCloseToIdentity(g, traceThreshold) {
		return NotEquivalent
	}
	if p.weights.approxEqual(e.w, f.w) {
		return Equivalent
	}
	return EquivalentUpToGlobalPhase
}

// vectorVerdict compares two state diagrams via the inner product. A real
// part near one means the states match including phase; a modulus near one
// means they differ only by a global phase.
func (p *Package) vectorVerdict(e, f Edge, fidelityThreshold float64) EquivalenceCriterion {
	if e.n == f.n {
		if p.weights.approxEqual(e.w, f.w) {
			return Equivalent
		}
		return EquivalentUpToPhase
	}

	ip := p.InnerProduct(e, f)
	if math.Abs(real(ip)-1) < fidelityThreshold {
		return Equivalent
	}
	mag2 := real(ip)*real(ip) + imag(ip)*imag(ip)
	if math.Abs(mag2-1) < fidelityThreshold {
		return EquivalentUpToPhase
	}
	return NotEquivalent
}

// reduceAncillae projects the input columns of the ancillary qubits onto
// |0>, so whatever the operator does to other ancilla inputs cannot
// influence the comparison.
func (p *Package) reduceAncillae(e Edge, ancillary []bool) Edge {
	if !anyTrue(ancillary) {
		return e
	}
	proj := term(1)
	for z := int32(0); z < int32(p.nqubits); z++ {
		if ancillary[z] {
			proj = p.makeNode(matrixKind, z, [4]Edge{proj, zeroEdge(), zeroEdge(), zeroEdge()})
		} else {
			proj = p.makeNode(matrixKind, z, [4]Edge{proj, zeroEdge(), zeroEdge(), proj})
		}
	}
	return p.Multiply(e, proj)
}

// reduceGarbage sums the output rows of the garbage qubits, collapsing
// states that differ only on unobserved outputs. The summing operator is
// the tensor product of [[1,1],[0,0]] on garbage levels and the identity
// elsewhere; both operands of a comparison must be reduced the same way.
func (p *Package) reduceGarbage(e Edge, garbage []bool) Edge {
	if !anyTrue(garbage) {
		return e
	}
	sum := term(1)
	for z := int32(0); z < int32(p.nqubits); z++ {
		if garbage[z] {
			sum = p.makeNode(matrixKind, z, [4]Edge{sum, sum, zeroEdge(), zeroEdge()})
		} else {
			sum = p.makeNode(matrixKind, z, [4]Edge{sum, zeroEdge(), zeroEdge(), sum})
		}
	}
	return p.Multiply(sum, e)
}

// reduceGarbageVector is the state-diagram counterpart of reduceGarbage.
func (p *Package) reduceGarbageVector(e Edge, garbage []bool) Edge {
	if !anyTrue(garbage) {
		return e
	}
	sum := p.reduceGarbage(p.MakeIdentity(), garbage)
	return p.Multiply(sum, e)
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}

// newCheckerPackage builds a per-strategy diagram package from the task
// configuration.
func newCheckerPackage(nqubits int, cfg *Configuration) *Package {
	p := NewPackage(nqubits, cfg.Execution.NumericalTolerance)
	if cfg.Execution.GCThreshold > 0 {
		p.SetGCThreshold(cfg.Execution.GCThreshold)
	}
	if cfg.Execution.NodeLimit > 0 {
		p.SetNodeLimit(cfg.Execution.NodeLimit)
	}
	p.SetDebug(cfg.Execution.Debug)
	return p
}
