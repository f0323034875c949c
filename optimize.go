package qcec

// Lightweight rewrites applied to both circuits before checking. They only
// shrink the gate count; the unitary is untouched, so every verdict is
// preserved. Compiled circuits are full of directly adjacent inverse pairs
// and three-CX swap patterns, and removing them keeps the intermediate
// diagrams smaller.

// optimizeCircuit runs the rewrite passes until a fixpoint.
func optimizeCircuit(c *Circuit) *Circuit {
	out := c
	for {
		reduced := cancelInversePairs(reconstructSwaps(out))
		if reduced.NumGates() == out.NumGates() {
			return reduced
		}
		out = reduced
	}
}

// reconstructSwaps folds the CX(a,b) CX(b,a) CX(a,b) pattern into a single
// swap gate.
func reconstructSwaps(c *Circuit) *Circuit {
	out := NewCircuit(c.Qubits(), c.Name)
	copy(out.ancillary, c.ancillary)
	copy(out.garbage, c.garbage)

	gates := c.Gates()
	for i := 0; i < len(gates); i++ {
		if i+2 < len(gates) {
			a, b, ok := swapPattern(gates[i], gates[i+1], gates[i+2])
			if ok {
				out.SWAP(a, b)
				i += 2
				continue
			}
		}
		out.Append(gates[i])
	}
	return out
}

func swapPattern(g1, g2, g3 Gate) (int, int, bool) {
	cx := func(g Gate) (int, int, bool) {
		if g.Type != OpX || len(g.Controls) != 1 || g.Controls[0].Negative || len(g.Targets) != 1 {
			return 0, 0, false
		}
		return g.Controls[0].Qubit, g.Targets[0], true
	}
	c1, t1, ok1 := cx(g1)
	c2, t2, ok2 := cx(g2)
	c3, t3, ok3 := cx(g3)
	if !ok1 || !ok2 || !ok3 {
		return 0, 0, false
	}
	if c1 == t2 && t1 == c2 && c1 == c3 && t1 == t3 {
		return c1, t1, true
	}
	return 0, 0, false
}

// cancelInversePairs removes directly adjacent gate pairs that compose to
// the identity. A stack of kept gates lets chains collapse in one pass.
func cancelInversePairs(c *Circuit) *Circuit {
	kept := make([]Gate, 0, c.NumGates())
	for _, g := range c.Gates() {
		if n := len(kept); n > 0 && cancels(kept[n-1], g) {
			kept = kept[:n-1]
			continue
		}
		kept = append(kept, g)
	}

	out := NewCircuit(c.Qubits(), c.Name)
	copy(out.ancillary, c.ancillary)
	copy(out.garbage, c.garbage)
	out.gates = append(out.gates, kept...)
	return out
}

// cancels reports whether b undoes a. Only exact operand matches count;
// commutation is never assumed.
func cancels(a, b Gate) bool {
	if !sameOperands(a, b) {
		return false
	}
	switch a.Type {
	case OpI, OpX, OpY, OpZ, OpH, OpSWAP:
		return b.Type == a.Type
	case OpS:
		return b.Type == OpSdg
	case OpSdg:
		return b.Type == OpS
	case OpT:
		return b.Type == OpTdg
	case OpTdg:
		return b.Type == OpT
	case OpSX:
		return b.Type == OpSXdg
	case OpSXdg:
		return b.Type == OpSX
	case OpRX, OpRY, OpRZ, OpPhase, OpGPhase:
		return b.Type == a.Type && len(a.Params) == 1 && len(b.Params) == 1 &&
			a.Params[0] == -b.Params[0]
	}
	return false
}

func sameOperands(a, b Gate) bool {
	if len(a.Targets) != len(b.Targets) || len(a.Controls) != len(b.Controls) {
		return false
	}
	for i := range a.Targets {
		if a.Targets[i] != b.Targets[i] {
			return false
		}
	}
	for i := range a.Controls {
		if a.Controls[i] != b.Controls[i] {
			return false
		}
	}
	return true
}
