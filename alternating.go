package qcec

import (
	"context"
	"time"

	"github.com/theapemachine/errnie"
)

// alternatingChecker accumulates C1 * C2^dagger on a single shared diagram:
// gates of the first circuit multiply from the left, gates of the second
// (inverted) from the right. If the circuits agree, the product stays close
// to the identity the whole way, keeping the diagram small.
type alternatingChecker struct {
	qc1, qc2 *Circuit
	config   *Configuration
}

func (c *alternatingChecker) name() string { return "alternating" }

// canHandleAlternating reports whether the alternating strategy applies.
// Garbage outputs cannot be reduced mid-product, and ancilla projections
// do not commute with the right-multiplications, so such circuits fall
// back to the construction strategy.
func canHandleAlternating(qc1, qc2 *Circuit) bool {
	if qc1.HasGarbage() || qc2.HasGarbage() {
		return false
	}
	return !anyTrue(qc1.ancillary) && !anyTrue(qc2.ancillary)
}

func (c *alternatingChecker) run(ctx context.Context) checkOutcome {
	started := time.Now()
	p := newCheckerPackage(c.qc1.Qubits(), c.config)

	verdict, err := c.check(ctx, p)
	if err == nil {
		errnie.Info("alternating checker finished - verdict %s, runtime %s", verdict, time.Since(started))
	}
	return finishOutcome(c.name(), started, p, verdict, err)
}

func (c *alternatingChecker) check(ctx context.Context, p *Package) (EquivalenceCriterion, error) {
	tm1 := newTaskManager(p, c.qc1, applyFromLeft)
	tm2 := newTaskManager(p, c.qc2, applyFromRight)

	u := p.MakeIdentity()

	var err error
	if c.config.Application.AlternatingScheme == SchemeLookahead {
		u, err = c.lookahead(ctx, p, tm1, tm2, u)
	} else {
		u, err = c.scheduled(ctx, p, tm1, tm2, u)
	}
	if err != nil {
		return NoInformation, err
	}

	return p.matrixVerdict(u, p.MakeIdentity(), c.config.Functionality.TraceThreshold), nil
}

func (c *alternatingChecker) scheduled(ctx context.Context, p *Package, tm1, tm2 *taskManager, u Edge) (Edge, error) {
	scheme, err := newApplicationScheme(c.config.Application.AlternatingScheme, tm1, tm2, c.config.Application.CostFunction)
	if err != nil {
		return u, err
	}
	for !tm1.finished() || !tm2.finished() {
		n1, n2 := scheme.next()
		if u, err = tm1.advance(ctx, u, n1); err != nil {
			return u, err
		}
		if u, err = tm2.advance(ctx, u, n2); err != nil {
			return u, err
		}
		p.GarbageCollect(false, u)
	}
	return u, nil
}

// lookahead applies whichever frontier gate keeps the shared diagram
// smaller; ties go to the circuit with more gates left.
func (c *alternatingChecker) lookahead(ctx context.Context, p *Package, tm1, tm2 *taskManager, u Edge) (Edge, error) {
	for !tm1.finished() || !tm2.finished() {
		if err := ctx.Err(); err != nil {
			return u, err
		}
		if err := p.CheckLimit(); err != nil {
			return u, err
		}

		var err error
		switch {
		case tm2.finished():
			u, err = tm1.applyNext(u)
		case tm1.finished():
			u, err = tm2.applyNext(u)
		default:
			var candL, candR Edge
			if candL, err = p.ApplyGate(u, tm1.peek()); err != nil {
				return u, err
			}
			if candR, err = p.ApplyGateInverseFromRight(u, tm2.peek()); err != nil {
				return u, err
			}
			sizeL, sizeR := p.Size(candL), p.Size(candR)
			if sizeL < sizeR || (sizeL == sizeR && tm1.remaining() >= tm2.remaining()) {
				u = candL
				tm1.pos++
			} else {
				u = candR
				tm2.pos++
			}
		}
		if err != nil {
			return u, err
		}
		p.GarbageCollect(false, u)
	}
	return u, nil
}
