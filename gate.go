package qcec

import (
	"fmt"
	"math"
	"math/cmplx"
)

// OpType enumerates the supported operations. The unitary set follows the
// usual hardware basis plus the generic IBM-style U gates; Measure, Reset
// and Barrier are non-unitary markers handled during preprocessing.
type OpType uint8

const (
	OpI OpType = iota
	OpX
	OpY
	OpZ
	OpH
	OpS
	OpSdg
	OpT
	OpTdg
	OpSX
	OpSXdg
	OpRX
	OpRY
	OpRZ
	OpPhase
	OpU2
	OpU3
	OpSWAP
	OpGPhase
	OpMeasure
	OpReset
	OpBarrier
)

var opNames = map[OpType]string{
	OpI: "id", OpX: "x", OpY: "y", OpZ: "z", OpH: "h",
	OpS: "s", OpSdg: "sdg", OpT: "t", OpTdg: "tdg",
	OpSX: "sx", OpSXdg: "sxdg",
	OpRX: "rx", OpRY: "ry", OpRZ: "rz", OpPhase: "p",
	OpU2: "u2", OpU3: "u3", OpSWAP: "swap", OpGPhase: "gphase",
	OpMeasure: "measure", OpReset: "reset", OpBarrier: "barrier",
}

func (t OpType) String() string {
	if s, ok := opNames[t]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", uint8(t))
}

// IsUnitary reports whether the operation describes a unitary gate.
func (t OpType) IsUnitary() bool {
	switch t {
	case OpMeasure, OpReset, OpBarrier:
		return false
	}
	return true
}

// paramCount returns the number of real parameters the operation takes.
func (t OpType) paramCount() int {
	switch t {
	case OpRX, OpRY, OpRZ, OpPhase, OpGPhase:
		return 1
	case OpU2:
		return 2
	case OpU3:
		return 3
	}
	return 0
}

// Control is a control qubit with polarity. A negative control activates
// the gate when the qubit is |0> instead of |1>.
type Control struct {
	Qubit    int
	Negative bool
}

// Gate is a purely descriptive operation: type, targets, controls and
// parameters. It carries no diagram state.
type Gate struct {
	Type     OpType
	Targets  []int
	Controls []Control
	Params   []float64
}

func (g Gate) String() string {
	s := g.Type.String()
	if len(g.Params) > 0 {
		s += fmt.Sprintf("%v", g.Params)
	}
	if len(g.Controls) > 0 {
		s = fmt.Sprintf("c[%d]%s", len(g.Controls), s)
	}
	return fmt.Sprintf("%s%v", s, g.Targets)
}

// Matrix returns the 2x2 base matrix of a single-qubit operation, indexed
// [row][column], with parameters substituted.
func (g Gate) Matrix() [2][2]complex128 {
	p := func(i int) float64 {
		if i < len(g.Params) {
			return g.Params[i]
		}
		return 0
	}
	invSqrt2 := complex(1/math.Sqrt2, 0)
	switch g.Type {
	case OpI:
		return [2][2]complex128{{1, 0}, {0, 1}}
	case OpX:
		return [2][2]complex128{{0, 1}, {1, 0}}
	case OpY:
		return [2][2]complex128{{0, -1i}, {1i, 0}}
	case OpZ:
		return [2][2]complex128{{1, 0}, {0, -1}}
	case OpH:
		return [2][2]complex128{{invSqrt2, invSqrt2}, {invSqrt2, -invSqrt2}}
	case OpS:
		return [2][2]complex128{{1, 0}, {0, 1i}}
	case OpSdg:
		return [2][2]complex128{{1, 0}, {0, -1i}}
	case OpT:
		return [2][2]complex128{{1, 0}, {0, cmplx.Exp(1i * math.Pi / 4)}}
	case OpTdg:
		return [2][2]complex128{{1, 0}, {0, cmplx.Exp(-1i * math.Pi / 4)}}
	case OpSX:
		return [2][2]complex128{{0.5 + 0.5i, 0.5 - 0.5i}, {0.5 - 0.5i, 0.5 + 0.5i}}
	case OpSXdg:
		return [2][2]complex128{{0.5 - 0.5i, 0.5 + 0.5i}, {0.5 + 0.5i, 0.5 - 0.5i}}
	case OpRX:
		c := complex(math.Cos(p(0)/2), 0)
		s := complex(0, -math.Sin(p(0)/2))
		return [2][2]complex128{{c, s}, {s, c}}
	case OpRY:
		c := complex(math.Cos(p(0)/2), 0)
		s := complex(math.Sin(p(0)/2), 0)
		return [2][2]complex128{{c, -s}, {s, c}}
	case OpRZ:
		return [2][2]complex128{
			{cmplx.Exp(complex(0, -p(0)/2)), 0},
			{0, cmplx.Exp(complex(0, p(0)/2))},
		}
	case OpPhase:
		return [2][2]complex128{{1, 0}, {0, cmplx.Exp(complex(0, p(0)))}}
	case OpU2:
		phi, lambda := p(0), p(1)
		return [2][2]complex128{
			{invSqrt2, -invSqrt2 * cmplx.Exp(complex(0, lambda))},
			{invSqrt2 * cmplx.Exp(complex(0, phi)), invSqrt2 * cmplx.Exp(complex(0, phi+lambda))},
		}
	case OpU3:
		theta, phi, lambda := p(0), p(1), p(2)
		c := complex(math.Cos(theta/2), 0)
		s := complex(math.Sin(theta/2), 0)
		return [2][2]complex128{
			{c, -s * cmplx.Exp(complex(0, lambda))},
			{s * cmplx.Exp(complex(0, phi)), c * cmplx.Exp(complex(0, phi+lambda))},
		}
	case OpGPhase:
		ph := cmplx.Exp(complex(0, p(0)))
		return [2][2]complex128{{ph, 0}, {0, ph}}
	}
	return [2][2]complex128{{1, 0}, {0, 1}}
}

// Inverse returns the adjoint gate. Controls are unchanged.
func (g Gate) Inverse() Gate {
	inv := Gate{Targets: g.Targets, Controls: g.Controls}
	switch g.Type {
	case OpI, OpX, OpY, OpZ, OpH, OpSWAP:
		inv.Type = g.Type
	case OpS:
		inv.Type = OpSdg
	case OpSdg:
		inv.Type = OpS
	case OpT:
		inv.Type = OpTdg
	case OpTdg:
		inv.Type = OpT
	case OpSX:
		inv.Type = OpSXdg
	case OpSXdg:
		inv.Type = OpSX
	case OpRX, OpRY, OpRZ, OpPhase, OpGPhase:
		inv.Type = g.Type
		inv.Params = []float64{-g.Params[0]}
	case OpU2:
		// u2(phi, lambda) = u3(pi/2, phi, lambda)
		inv.Type = OpU3
		inv.Params = []float64{-math.Pi / 2, -g.Params[1], -g.Params[0]}
	case OpU3:
		inv.Type = OpU3
		inv.Params = []float64{-g.Params[0], -g.Params[2], -g.Params[1]}
	default:
		inv.Type = g.Type
		inv.Params = g.Params
	}
	return inv
}

// validate checks the gate against a register of the given size.
func (g Gate) validate(nqubits int) error {
	want := g.Type.paramCount()
	if len(g.Params) < want {
		return fmt.Errorf("%w: %s expects %d parameters, got %d",
			ErrInvalidCircuit, g.Type, want, len(g.Params))
	}
	for _, v := range g.Params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite parameter on %s", ErrInvalidCircuit, g.Type)
		}
	}
	seen := make(map[int]bool)
	for _, t := range g.Targets {
		if t < 0 || t >= nqubits {
			return fmt.Errorf("%w: target %d outside register of size %d",
				ErrInvalidCircuit, t, nqubits)
		}
		if seen[t] {
			return fmt.Errorf("%w: duplicate qubit %d on %s", ErrInvalidCircuit, t, g.Type)
		}
		seen[t] = true
	}
	for _, c := range g.Controls {
		if c.Qubit < 0 || c.Qubit >= nqubits {
			return fmt.Errorf("%w: control %d outside register of size %d",
				ErrInvalidCircuit, c.Qubit, nqubits)
		}
		if seen[c.Qubit] {
			return fmt.Errorf("%w: qubit %d is both target and control on %s",
				ErrInvalidCircuit, c.Qubit, g.Type)
		}
		seen[c.Qubit] = true
	}
	if g.Type == OpSWAP && len(g.Targets) != 2 {
		return fmt.Errorf("%w: swap needs two targets", ErrInvalidCircuit)
	}
	if g.Type != OpSWAP && g.Type != OpBarrier && g.Type != OpGPhase && len(g.Targets) != 1 {
		return fmt.Errorf("%w: %s needs exactly one target", ErrInvalidCircuit, g.Type)
	}
	return nil
}
