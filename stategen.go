package qcec

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sync"
)

// single-qubit basis states used by the random stimulus generator:
// |0>, |1>, |+>, |->, |R>, |L>.
var oneQubitBases = [6][2]complex128{
	{1, 0},
	{0, 1},
	{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
	{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	{complex(1/math.Sqrt2, 0), complex(0, 1/math.Sqrt2)},
	{complex(1/math.Sqrt2, 0), complex(0, -1/math.Sqrt2)},
}

// stimulus describes one generated input state. It is a description, not a
// diagram, so each checker can materialize it inside its own package.
type stimulus struct {
	typ      StateType
	bits     []bool
	oneQ     []int
	clifford *Circuit
}

// buildDiagram materializes the stimulus as a vector diagram in p.
func (st stimulus) buildDiagram(p *Package) (Edge, error) {
	switch st.typ {
	case StateComputationalBasis:
		return p.MakeBasisState(st.bits), nil
	case StateRandom1QBasis:
		amps := make([][2]complex128, len(st.oneQ))
		for q, b := range st.oneQ {
			amps[q] = oneQubitBases[b]
		}
		return p.MakeProductState(amps), nil
	case StateStabilizer:
		v := p.MakeZeroState()
		var err error
		for _, g := range st.clifford.Gates() {
			if v, err = p.ApplyGate(v, g); err != nil {
				return Edge{}, err
			}
		}
		return v, nil
	}
	return Edge{}, fmt.Errorf("%w: unsupported state type %s", ErrInvalidCircuit, st.typ)
}

// buildStateVector materializes the stimulus densely, for counterexample
// reporting and cross-checks.
func (st stimulus) buildStateVector(nqubits int) (*StateVector, error) {
	switch st.typ {
	case StateComputationalBasis:
		return NewBasisStateVector(st.bits), nil
	case StateRandom1QBasis:
		s := NewStateVector(nqubits)
		amps := s.Amplitudes()
		for i := range amps {
			acc := complex128(1)
			for q := 0; q < nqubits; q++ {
				acc *= oneQubitBases[st.oneQ[q]][(i>>q)&1]
			}
			amps[i] = acc
		}
		return s, nil
	case StateStabilizer:
		s := NewStateVector(nqubits)
		if err := s.Run(st.clifford); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: unsupported state type %s", ErrInvalidCircuit, st.typ)
}

// StateGenerator produces stimuli for the simulation checker. It is safe
// for concurrent use; a fixed seed makes the stream reproducible.
// Ancillary qubits always start in |0> and are never randomized.
type StateGenerator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	generated map[uint64]struct{}
}

// NewStateGenerator seeds a generator. A zero seed picks a random stream.
func NewStateGenerator(seed uint64) *StateGenerator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &StateGenerator{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		generated: make(map[uint64]struct{}),
	}
}

// next draws one stimulus over the register described by ancillary.
func (sg *StateGenerator) next(typ StateType, ancillary []bool) (stimulus, error) {
	sg.mu.Lock()
	defer sg.mu.Unlock()

	nqubits := len(ancillary)
	switch typ {
	case StateComputationalBasis:
		return sg.nextBasis(ancillary), nil
	case StateRandom1QBasis:
		oneQ := make([]int, nqubits)
		for q := range oneQ {
			if !ancillary[q] {
				oneQ[q] = sg.rng.IntN(len(oneQubitBases))
			}
		}
		return stimulus{typ: typ, oneQ: oneQ}, nil
	case StateStabilizer:
		return stimulus{typ: typ, clifford: sg.randomClifford(ancillary)}, nil
	}
	return stimulus{}, fmt.Errorf("%w: unsupported state type %s", ErrInvalidCircuit, typ)
}

// nextBasis draws a computational basis state over the primary qubits,
// without repetition while the space is small enough to track.
func (sg *StateGenerator) nextBasis(ancillary []bool) stimulus {
	primary := make([]int, 0, len(ancillary))
	for q, a := range ancillary {
		if !a {
			primary = append(primary, q)
		}
	}

	var draw uint64
	if len(primary) < 63 {
		space := uint64(1) << len(primary)
		for {
			draw = sg.rng.Uint64N(space)
			if _, seen := sg.generated[draw]; !seen {
				break
			}
			if uint64(len(sg.generated)) >= space {
				break
			}
		}
		sg.generated[draw] = struct{}{}
	} else {
		draw = sg.rng.Uint64()
	}

	bits := make([]bool, len(ancillary))
	for i, q := range primary {
		bits[q] = draw&(1<<i) != 0
	}
	return stimulus{typ: StateComputationalBasis, bits: bits}
}

// randomClifford builds a shallow random Clifford preparation over the
// primary qubits. Depth grows logarithmically with the register, which is
// enough to entangle stimuli without inflating the diagrams.
func (sg *StateGenerator) randomClifford(ancillary []bool) *Circuit {
	primary := make([]int, 0, len(ancillary))
	for q, a := range ancillary {
		if !a {
			primary = append(primary, q)
		}
	}
	c := NewCircuit(len(ancillary), "stabilizer_prep")
	if len(primary) == 0 {
		return c
	}

	depth := 1 + int(math.Ceil(math.Log2(float64(len(primary)+1))))
	for layer := 0; layer < depth; layer++ {
		for _, q := range primary {
			switch sg.rng.IntN(3) {
			case 0:
				c.H(q)
			case 1:
				c.S(q)
			case 2:
				c.Z(q)
			}
		}
		if len(primary) > 1 {
			a := sg.rng.IntN(len(primary))
			b := sg.rng.IntN(len(primary) - 1)
			if b >= a {
				b++
			}
			c.CX(primary[a], primary[b])
		}
	}
	return c
}

// phaseAligned reports whether two dense states coincide after removing a
// global phase, used to sanity check counterexamples before reporting.
func phaseAligned(a, b *StateVector, tol float64) bool {
	ip := complex128(0)
	for i, av := range a.amps {
		ip += cmplx.Conj(av) * b.amps[i]
	}
	mag := cmplx.Abs(ip)
	return math.Abs(mag*mag-1) < tol
}
