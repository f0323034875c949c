package qcec

import "fmt"

// makeGateDD builds the full-register operator diagram for a gate. The
// construction walks the register bottom-up: levels below the target tensor
// the four matrix entries with the identity, control levels route the
// inactive branch through the identity for diagonal entries and through
// zero for off-diagonal ones (the "don't care" paths), and levels above the
// target wrap the result the same way.
func (p *Package) makeGateDD(g Gate) (Edge, error) {
	if err := g.validate(p.nqubits); err != nil {
		return Edge{}, err
	}
	if !g.Type.IsUnitary() {
		return Edge{}, fmt.Errorf("%w: %s is not unitary", ErrInvalidCircuit, g.Type)
	}

	switch g.Type {
	case OpGPhase:
		ident := p.MakeIdentity()
		m := g.Matrix()
		return p.scaled(ident, m[0][0]), nil
	case OpSWAP:
		return p.makeSwapDD(g)
	}

	target := int32(g.Targets[0])
	controls := make(map[int32]Control, len(g.Controls))
	for _, ctl := range g.Controls {
		controls[int32(ctl.Qubit)] = ctl
	}

	u := g.Matrix()
	em := [4]Edge{term(u[0][0]), term(u[0][1]), term(u[1][0]), term(u[1][1])}

	// levels below the target
	for z := int32(0); z < target; z++ {
		ctl, isControl := controls[z]
		for i1 := 0; i1 < 2; i1++ {
			for i2 := 0; i2 < 2; i2++ {
				i := i1*2 + i2
				if isControl {
					inactive := zeroEdge()
					if i1 == i2 {
						inactive = p.identityUpTo(z - 1)
					}
					if ctl.Negative {
						em[i] = p.makeNode(matrixKind, z, [4]Edge{em[i], zeroEdge(), zeroEdge(), inactive})
					} else {
						em[i] = p.makeNode(matrixKind, z, [4]Edge{inactive, zeroEdge(), zeroEdge(), em[i]})
					}
				} else {
					em[i] = p.makeNode(matrixKind, z, [4]Edge{em[i], zeroEdge(), zeroEdge(), em[i]})
				}
			}
		}
	}

	e := p.makeNode(matrixKind, target, em)

	// levels above the target
	for z := target + 1; z < int32(p.nqubits); z++ {
		if ctl, isControl := controls[z]; isControl {
			ident := p.identityUpTo(z - 1)
			if ctl.Negative {
				e = p.makeNode(matrixKind, z, [4]Edge{e, zeroEdge(), zeroEdge(), ident})
			} else {
				e = p.makeNode(matrixKind, z, [4]Edge{ident, zeroEdge(), zeroEdge(), e})
			}
		} else {
			e = p.makeNode(matrixKind, z, [4]Edge{e, zeroEdge(), zeroEdge(), e})
		}
	}
	return e, nil
}

// makeSwapDD decomposes a (possibly controlled) swap into three CX gates.
func (p *Package) makeSwapDD(g Gate) (Edge, error) {
	a, b := g.Targets[0], g.Targets[1]
	cxAB := Gate{Type: OpX, Targets: []int{b}, Controls: append([]Control{{Qubit: a}}, g.Controls...)}
	cxBA := Gate{Type: OpX, Targets: []int{a}, Controls: append([]Control{{Qubit: b}}, g.Controls...)}

	e1, err := p.makeGateDD(cxAB)
	if err != nil {
		return Edge{}, err
	}
	e2, err := p.makeGateDD(cxBA)
	if err != nil {
		return Edge{}, err
	}
	return p.Multiply(e1, p.Multiply(e2, e1)), nil
}

// ApplyGate left-multiplies the gate onto a matrix or vector diagram:
// e' = G * e.
func (p *Package) ApplyGate(e Edge, g Gate) (Edge, error) {
	gdd, err := p.makeGateDD(g)
	if err != nil {
		return Edge{}, err
	}
	return p.Multiply(gdd, e), nil
}

// ApplyGateInverseFromRight right-multiplies the adjoint of the gate onto
// a matrix diagram: e' = e * G^dagger. Applying the gates of a circuit in
// forward order this way accumulates the inverse circuit.
func (p *Package) ApplyGateInverseFromRight(e Edge, g Gate) (Edge, error) {
	gdd, err := p.makeGateDD(g.Inverse())
	if err != nil {
		return Edge{}, err
	}
	return p.Multiply(e, gdd), nil
}
