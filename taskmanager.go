package qcec

import "context"

// applyDirection distinguishes the two sides of the alternating product.
type applyDirection uint8

const (
	// applyFromLeft accumulates e' = G * e, the forward circuit.
	applyFromLeft applyDirection = iota
	// applyFromRight accumulates e' = e * G^dagger; applying a circuit's
	// gates in forward order this way multiplies its inverse onto the
	// diagram from the right.
	applyFromRight
)

// taskManager walks the unitary gates of one circuit and applies them to a
// diagram held by its checker. It owns the cursor, not the diagram, so the
// alternating checker can drive two managers against a single shared edge.
type taskManager struct {
	p     *Package
	gates []Gate
	pos   int
	dir   applyDirection
}

func newTaskManager(p *Package, c *Circuit, dir applyDirection) *taskManager {
	gates := make([]Gate, 0, c.NumGates())
	for _, g := range c.Gates() {
		if !g.Type.IsUnitary() {
			continue
		}
		gates = append(gates, g)
	}
	return &taskManager{p: p, gates: gates, dir: dir}
}

func (t *taskManager) finished() bool { return t.pos >= len(t.gates) }

func (t *taskManager) remaining() int { return len(t.gates) - t.pos }

// peek returns the next gate without consuming it. Only valid while not
// finished.
func (t *taskManager) peek() Gate { return t.gates[t.pos] }

// advance applies up to n gates onto e, checking for cancellation and the
// node limit at gate granularity.
func (t *taskManager) advance(ctx context.Context, e Edge, n int) (Edge, error) {
	for ; n > 0 && !t.finished(); n-- {
		if err := ctx.Err(); err != nil {
			return e, err
		}
		if err := t.p.CheckLimit(); err != nil {
			return e, err
		}
		next, err := t.applyNext(e)
		if err != nil {
			return e, err
		}
		e = next
	}
	return e, nil
}

// applyNext consumes one gate and applies it onto e.
func (t *taskManager) applyNext(e Edge) (Edge, error) {
	g := t.gates[t.pos]
	t.pos++
	if t.dir == applyFromLeft {
		return t.p.ApplyGate(e, g)
	}
	return t.p.ApplyGateInverseFromRight(e, g)
}
