package qcec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Circuit is an ordered gate sequence over a fixed qubit register. It is
// built incrementally and treated as immutable once handed to a checking
// task. Ancillary qubits are compilation helpers outside the logical
// register; garbage qubits carry outputs the caller does not observe.
type Circuit struct {
	Name    string
	nqubits int
	gates   []Gate

	ancillary []bool
	garbage   []bool
}

// NewCircuit creates an empty circuit over nqubits qubits.
func NewCircuit(nqubits int, name string) *Circuit {
	return &Circuit{
		Name:      name,
		nqubits:   nqubits,
		ancillary: make([]bool, nqubits),
		garbage:   make([]bool, nqubits),
	}
}

// Qubits returns the register size.
func (c *Circuit) Qubits() int { return c.nqubits }

// Gates returns the gate sequence. Callers must not mutate it.
func (c *Circuit) Gates() []Gate { return c.gates }

// NumGates returns the number of operations in the circuit.
func (c *Circuit) NumGates() int { return len(c.gates) }

// Empty reports whether the circuit contains no operations.
func (c *Circuit) Empty() bool { return len(c.gates) == 0 }

// Append adds a gate to the circuit.
func (c *Circuit) Append(g Gate) *Circuit {
	c.gates = append(c.gates, g)
	return c
}

// Convenience builders for the common gates.

func (c *Circuit) H(q int) *Circuit  { return c.Append(Gate{Type: OpH, Targets: []int{q}}) }
func (c *Circuit) X(q int) *Circuit  { return c.Append(Gate{Type: OpX, Targets: []int{q}}) }
func (c *Circuit) Y(q int) *Circuit  { return c.Append(Gate{Type: OpY, Targets: []int{q}}) }
func (c *Circuit) Z(q int) *Circuit  { return c.Append(Gate{Type: OpZ, Targets: []int{q}}) }
func (c *Circuit) S(q int) *Circuit  { return c.Append(Gate{Type: OpS, Targets: []int{q}}) }
func (c *Circuit) T(q int) *Circuit  { return c.Append(Gate{Type: OpT, Targets: []int{q}}) }
func (c *Circuit) SX(q int) *Circuit { return c.Append(Gate{Type: OpSX, Targets: []int{q}}) }

func (c *Circuit) RX(theta float64, q int) *Circuit {
	return c.Append(Gate{Type: OpRX, Targets: []int{q}, Params: []float64{theta}})
}

func (c *Circuit) RY(theta float64, q int) *Circuit {
	return c.Append(Gate{Type: OpRY, Targets: []int{q}, Params: []float64{theta}})
}

func (c *Circuit) RZ(theta float64, q int) *Circuit {
	return c.Append(Gate{Type: OpRZ, Targets: []int{q}, Params: []float64{theta}})
}

func (c *Circuit) Phase(lambda float64, q int) *Circuit {
	return c.Append(Gate{Type: OpPhase, Targets: []int{q}, Params: []float64{lambda}})
}

func (c *Circuit) U2(phi, lambda float64, q int) *Circuit {
	return c.Append(Gate{Type: OpU2, Targets: []int{q}, Params: []float64{phi, lambda}})
}

func (c *Circuit) U3(theta, phi, lambda float64, q int) *Circuit {
	return c.Append(Gate{Type: OpU3, Targets: []int{q}, Params: []float64{theta, phi, lambda}})
}

func (c *Circuit) CX(control, target int) *Circuit {
	return c.Append(Gate{Type: OpX, Targets: []int{target}, Controls: []Control{{Qubit: control}}})
}

func (c *Circuit) CZ(control, target int) *Circuit {
	return c.Append(Gate{Type: OpZ, Targets: []int{target}, Controls: []Control{{Qubit: control}}})
}

func (c *Circuit) CCX(control1, control2, target int) *Circuit {
	return c.Append(Gate{
		Type:     OpX,
		Targets:  []int{target},
		Controls: []Control{{Qubit: control1}, {Qubit: control2}},
	})
}

func (c *Circuit) SWAP(a, b int) *Circuit {
	return c.Append(Gate{Type: OpSWAP, Targets: []int{a, b}})
}

func (c *Circuit) GPhase(gamma float64) *Circuit {
	return c.Append(Gate{Type: OpGPhase, Params: []float64{gamma}})
}

func (c *Circuit) Measure(q int) *Circuit {
	return c.Append(Gate{Type: OpMeasure, Targets: []int{q}})
}

func (c *Circuit) Reset(q int) *Circuit {
	return c.Append(Gate{Type: OpReset, Targets: []int{q}})
}

// SetAncillary marks a qubit as ancillary, outside the logical register.
func (c *Circuit) SetAncillary(q int) { c.ancillary[q] = true }

// SetGarbage marks a qubit's output as unobserved.
func (c *Circuit) SetGarbage(q int) { c.garbage[q] = true }

// IsAncillary reports whether qubit q is ancillary.
func (c *Circuit) IsAncillary(q int) bool { return c.ancillary[q] }

// IsGarbage reports whether qubit q's output is garbage.
func (c *Circuit) IsGarbage(q int) bool { return c.garbage[q] }

// QubitsWithoutAncillae returns the number of primary (logical) inputs.
func (c *Circuit) QubitsWithoutAncillae() int {
	n := c.nqubits
	for _, a := range c.ancillary {
		if a {
			n--
		}
	}
	return n
}

// HasGarbage reports whether any qubit output is marked garbage.
func (c *Circuit) HasGarbage() bool {
	for _, g := range c.garbage {
		if g {
			return true
		}
	}
	return false
}

// HasMeasurements reports whether the circuit contains any measurement.
func (c *Circuit) HasMeasurements() bool {
	for _, g := range c.gates {
		if g.Type == OpMeasure {
			return true
		}
	}
	return false
}

// IsDynamic reports whether the circuit contains non-unitary operations
// before its final measurement block (mid-circuit measurements or resets).
func (c *Circuit) IsDynamic() bool {
	unitaryAfter := false
	for i := len(c.gates) - 1; i >= 0; i-- {
		switch c.gates[i].Type {
		case OpMeasure:
			if unitaryAfter {
				return true
			}
		case OpReset:
			return true
		case OpBarrier:
		default:
			unitaryAfter = true
		}
	}
	return false
}

// IsIdleQubit reports whether no operation acts on qubit q.
func (c *Circuit) IsIdleQubit(q int) bool {
	for _, g := range c.gates {
		for _, t := range g.Targets {
			if t == q {
				return false
			}
		}
		for _, ctl := range g.Controls {
			if ctl.Qubit == q {
				return false
			}
		}
	}
	return true
}

// Validate checks every gate against the register. Run once when a circuit
// is submitted; gate parameters must be finite and all indices in range.
func (c *Circuit) Validate() error {
	if c.nqubits <= 0 {
		return fmt.Errorf("%w: register size %d", ErrInvalidCircuit, c.nqubits)
	}
	for i, g := range c.gates {
		if err := g.validate(c.nqubits); err != nil {
			return fmt.Errorf("gate %d: %w", i, err)
		}
	}
	return nil
}

// Inverse returns the adjoint circuit: gates reversed and inverted.
// Non-unitary markers are dropped.
func (c *Circuit) Inverse() *Circuit {
	inv := NewCircuit(c.nqubits, c.Name+"_inv")
	copy(inv.ancillary, c.ancillary)
	copy(inv.garbage, c.garbage)
	for i := len(c.gates) - 1; i >= 0; i-- {
		if !c.gates[i].Type.IsUnitary() {
			continue
		}
		inv.gates = append(inv.gates, c.gates[i].Inverse())
	}
	return inv
}

// WithoutFinalMeasurements returns a copy with trailing measurement and
// barrier operations removed, leaving a purely unitary circuit when the
// input only measures at the end.
func (c *Circuit) WithoutFinalMeasurements() *Circuit {
	end := len(c.gates)
	for end > 0 {
		t := c.gates[end-1].Type
		if t == OpMeasure || t == OpBarrier {
			end--
			continue
		}
		break
	}
	out := NewCircuit(c.nqubits, c.Name)
	copy(out.ancillary, c.ancillary)
	copy(out.garbage, c.garbage)
	out.gates = append(out.gates, c.gates[:end]...)
	return out
}

// CopyWithQubits returns a copy of the circuit embedded into a register of
// nqubits qubits; added qubits are untouched by every gate.
func (c *Circuit) CopyWithQubits(nqubits int) *Circuit {
	if nqubits < c.nqubits {
		nqubits = c.nqubits
	}
	out := NewCircuit(nqubits, c.Name)
	copy(out.ancillary, c.ancillary)
	copy(out.garbage, c.garbage)
	out.gates = append(out.gates, c.gates...)
	return out
}

// Fingerprint hashes the gate sequence and register size. Used to tag
// results and log lines; not a cryptographic digest.
func (c *Circuit) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	put(uint64(c.nqubits))
	for _, g := range c.gates {
		put(uint64(g.Type))
		for _, t := range g.Targets {
			put(uint64(t))
		}
		for _, ctl := range g.Controls {
			v := uint64(ctl.Qubit) << 1
			if ctl.Negative {
				v |= 1
			}
			put(v)
		}
		for _, pv := range g.Params {
			put(math.Float64bits(pv))
		}
	}
	return h.Sum64()
}
