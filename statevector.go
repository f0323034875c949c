package qcec

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

// StateVector is a dense amplitude vector. It grows exponentially with the
// register size and exists for diagnostics: validating counterexamples
// returned by the checker and cross-checking the diagram engine in tests.
type StateVector struct {
	amps    []complex128
	nqubits int
}

// NewStateVector creates |0...0> over nqubits qubits.
func NewStateVector(nqubits int) *StateVector {
	amps := make([]complex128, 1<<nqubits)
	amps[0] = 1
	return &StateVector{amps: amps, nqubits: nqubits}
}

// NewBasisStateVector creates the computational basis state selected by
// bits, bits[q] being the value of qubit q.
func NewBasisStateVector(bits []bool) *StateVector {
	s := NewStateVector(len(bits))
	index := 0
	for q, b := range bits {
		if b {
			index |= 1 << q
		}
	}
	s.amps[0] = 0
	s.amps[index] = 1
	return s
}

// Qubits returns the register size.
func (s *StateVector) Qubits() int { return s.nqubits }

// Amplitudes returns the amplitude slice. Callers must not mutate it.
func (s *StateVector) Amplitudes() []complex128 { return s.amps }

// Apply applies a gate to the state.
func (s *StateVector) Apply(g Gate) error {
	if err := g.validate(s.nqubits); err != nil {
		return err
	}
	switch g.Type {
	case OpMeasure, OpBarrier:
		return nil
	case OpReset:
		return fmt.Errorf("%w: reset is not unitary", ErrInvalidCircuit)
	case OpGPhase:
		m := g.Matrix()
		for i := range s.amps {
			s.amps[i] *= m[0][0]
		}
		return nil
	case OpSWAP:
		s.applySwap(g)
		return nil
	}

	u := g.Matrix()
	bit := 1 << g.Targets[0]
	for i := range s.amps {
		if i&bit != 0 {
			continue
		}
		if !controlsActive(i, g.Controls) {
			continue
		}
		j := i | bit
		a, b := s.amps[i], s.amps[j]
		s.amps[i] = u[0][0]*a + u[0][1]*b
		s.amps[j] = u[1][0]*a + u[1][1]*b
	}
	return nil
}

func (s *StateVector) applySwap(g Gate) {
	bitA := 1 << g.Targets[0]
	bitB := 1 << g.Targets[1]
	for i := range s.amps {
		if i&bitA != 0 || i&bitB == 0 {
			continue
		}
		if !controlsActive(i, g.Controls) {
			continue
		}
		j := (i &^ bitB) | bitA
		s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
	}
}

// controlsActive reports whether all control qubits match their polarity
// in basis index i. Target bits are never controls, so i is representative
// for the whole amplitude pair.
func controlsActive(i int, controls []Control) bool {
	for _, c := range controls {
		set := i&(1<<c.Qubit) != 0
		if set == c.Negative {
			return false
		}
	}
	return true
}

// Run propagates the state through all unitary gates of a circuit.
func (s *StateVector) Run(c *Circuit) error {
	for _, g := range c.Gates() {
		if g.Type == OpMeasure || g.Type == OpBarrier {
			continue
		}
		if err := s.Apply(g); err != nil {
			return err
		}
	}
	return nil
}

// Probabilities returns the measurement-outcome distribution over the
// computational basis.
func (s *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(s.amps))
	for i, a := range s.amps {
		probs[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return probs
}

// Fidelity computes |<s|o>|^2.
func (s *StateVector) Fidelity(o *StateVector) float64 {
	var ip complex128
	for i := range s.amps {
		ip += cmplx.Conj(s.amps[i]) * o.amps[i]
	}
	return real(ip)*real(ip) + imag(ip)*imag(ip)
}

// DistributionsDiffer reports whether two states produce measurably
// different outcome distributions, ignoring phases entirely.
func DistributionsDiffer(a, b *StateVector, tol float64) bool {
	return !floats.EqualApprox(a.Probabilities(), b.Probabilities(), tol)
}
