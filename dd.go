package qcec

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/davecgh/go-spew/spew"
	"gonum.org/v1/gonum/mat"
)

// The decision-diagram engine. Matrices and state vectors are stored as
// DAGs with complex edge weights: matrix nodes carry four child edges (the
// quadrants of the sub-matrix), vector nodes carry two (the halves of the
// sub-vector). Nodes live in an arena indexed by integer id and are
// canonicalized through a unique table, so semantically identical
// sub-diagrams are represented by exactly one node and equality of two
// diagrams reduces to comparing a node id and a top-edge weight.

type ddKind uint8

const (
	vectorKind ddKind = iota
	matrixKind
)

const terminalID int32 = 0

// Edge references a node together with the complex factor applied to the
// entire sub-diagram below it.
type Edge struct {
	n int32
	w complex128
}

// IsZero reports whether the edge denotes the zero matrix/vector.
func (e Edge) IsZero() bool { return e.w == 0 }

// Weight returns the top edge weight.
func (e Edge) Weight() complex128 { return e.w }

func zeroEdge() Edge { return Edge{n: terminalID, w: 0} }

func term(w complex128) Edge { return Edge{n: terminalID, w: w} }

type ddNode struct {
	kind     ddKind
	level    int32
	children [4]Edge // vector nodes use the first two entries
	rc       uint32
	dead     bool
}

func (n *ddNode) width() int {
	if n.kind == vectorKind {
		return 2
	}
	return 4
}

type nodeKey struct {
	kind           ddKind
	level          int32
	c0, c1, c2, c3 int32
	w0, w1, w2, w3 complex128
}

type pairKey struct {
	a, b int32
}

type addKey struct {
	an, bn int32
	aw, bw complex128
}

type idWeight struct {
	n int32
	w complex128
}

// PackageStats summarizes the state of a decision-diagram package.
type PackageStats struct {
	ActiveNodes    int
	PeakNodes      int
	GCRuns         int
	UniqueLookups  int64
	UniqueHits     int64
	MulCacheHits   int64
	MulCacheMisses int64
	AddCacheHits   int64
	AddCacheMisses int64
	WeightEntries  int
}

// Package owns an arena of decision-diagram nodes together with the unique
// table and operation caches. A package is confined to a single checking
// strategy; nothing in here is safe for concurrent use, and nothing needs
// to be, since every strategy builds its diagrams in its own package.
type Package struct {
	nqubits int
	weights *weightTable

	nodes  []ddNode
	free   []int32
	unique map[nodeKey]int32

	mulCache map[pairKey]Edge
	addCache map[addKey]Edge
	ctCache  map[int32]Edge
	trCache  map[int32]complex128
	ipCache  map[pairKey]complex128

	identities []Edge // cached identity sub-diagrams per level

	gcThreshold int
	nodeLimit   int
	debug       bool

	stats PackageStats
}

// NewPackage creates a decision-diagram package for the given register
// size. A non-positive tolerance falls back to DefaultTolerance.
func NewPackage(nqubits int, tolerance float64) *Package {
	p := &Package{
		nqubits:     nqubits,
		weights:     newWeightTable(tolerance),
		nodes:       make([]ddNode, 1, 1024), // index 0 is the terminal
		unique:      make(map[nodeKey]int32),
		mulCache:    make(map[pairKey]Edge),
		addCache:    make(map[addKey]Edge),
		ctCache:     make(map[int32]Edge),
		trCache:     make(map[int32]complex128),
		ipCache:     make(map[pairKey]complex128),
		identities:  make([]Edge, nqubits),
		gcThreshold: 131072,
	}
	return p
}

// SetGCThreshold sets the active-node count above which GarbageCollect
// actually sweeps. Zero disables deferred collection.
func (p *Package) SetGCThreshold(n int) { p.gcThreshold = n }

// SetNodeLimit bounds the number of active nodes. CheckLimit reports
// ErrResourceExhausted once the bound is exceeded. Zero means unbounded.
func (p *Package) SetNodeLimit(n int) { p.nodeLimit = n }

// SetDebug enables normalization invariant checks after every makeNode.
func (p *Package) SetDebug(on bool) { p.debug = on }

// Qubits returns the register size the package was created for.
func (p *Package) Qubits() int { return p.nqubits }

// Tolerance returns the numeric tolerance in effect.
func (p *Package) Tolerance() float64 { return p.weights.tol }

func (p *Package) node(id int32) *ddNode { return &p.nodes[id] }

func (p *Package) activeNodes() int { return len(p.nodes) - 1 - len(p.free) }

// makeNode normalizes the child edges and interns the resulting node.
// Normalization divides all child weights by the first child weight of
// largest magnitude, which becomes exactly one; the factor is hoisted into
// the returned edge weight. All-zero children collapse to the zero edge.
func (p *Package) makeNode(kind ddKind, level int32, children [4]Edge) Edge {
	width := 2
	if kind == matrixKind {
		width = 4
	}

	// canonical child weights
	for i := 0; i < width; i++ {
		children[i].w = p.weights.lookup(children[i].w)
		if children[i].w == 0 {
			children[i] = zeroEdge()
		}
	}

	// pick the pivot: first child of maximal magnitude
	pivot := -1
	maxMag := 0.0
	for i := 0; i < width; i++ {
		if m := cmplx.Abs(children[i].w); m > maxMag {
			maxMag = m
			pivot = i
		}
	}
	if pivot < 0 {
		return zeroEdge()
	}

	top := children[pivot].w
	for i := 0; i < width; i++ {
		if i == pivot {
			children[i].w = 1
			continue
		}
		if children[i].w != 0 {
			children[i].w = p.weights.lookup(children[i].w / top)
		}
	}

	key := nodeKey{
		kind: kind, level: level,
		c0: children[0].n, c1: children[1].n, c2: children[2].n, c3: children[3].n,
		w0: children[0].w, w1: children[1].w, w2: children[2].w, w3: children[3].w,
	}
	p.stats.UniqueLookups++
	if id, ok := p.unique[key]; ok {
		p.stats.UniqueHits++
		return Edge{n: id, w: p.weights.lookup(top)}
	}

	var id int32
	if k := len(p.free); k > 0 {
		id = p.free[k-1]
		p.free = p.free[:k-1]
		p.nodes[id] = ddNode{kind: kind, level: level, children: children}
	} else {
		id = int32(len(p.nodes))
		p.nodes = append(p.nodes, ddNode{kind: kind, level: level, children: children})
	}
	p.unique[key] = id
	if a := p.activeNodes(); a > p.stats.PeakNodes {
		p.stats.PeakNodes = a
	}

	e := Edge{n: id, w: p.weights.lookup(top)}
	if p.debug {
		if err := p.validateNode(id); err != nil {
			panic(err)
		}
	}
	return e
}

// validateNode checks the normalization invariants of a single node.
func (p *Package) validateNode(id int32) error {
	n := p.node(id)
	pivotSeen := false
	allZero := true
	maxMag := 0.0
	for i := 0; i < n.width(); i++ {
		w := n.children[i].w
		if w != 0 {
			allZero = false
		}
		if m := cmplx.Abs(w); m > maxMag {
			maxMag = m
		}
		if w == 1 && !pivotSeen {
			pivotSeen = true
		}
		if !isFiniteComplex(w) {
			return fmt.Errorf("%w: non-finite child weight on node %d", ErrNumericInstability, id)
		}
	}
	if allZero {
		return fmt.Errorf("%w: interned all-zero node %d", ErrNumericInstability, id)
	}
	if !pivotSeen || maxMag > 1+p.weights.tol {
		return fmt.Errorf("%w: node %d not normalized (max magnitude %g)", ErrNumericInstability, id, maxMag)
	}
	return nil
}

func isFiniteComplex(w complex128) bool {
	return !math.IsNaN(real(w)) && !math.IsInf(real(w), 0) &&
		!math.IsNaN(imag(w)) && !math.IsInf(imag(w), 0)
}

// Equals compares two diagrams structurally. Thanks to canonicalization
// this is a constant-time check on the top edge, not a traversal.
func (p *Package) Equals(a, b Edge) bool {
	return a.n == b.n && p.weights.approxEqual(a.w, b.w)
}

// IncRef marks the root of a diagram as externally referenced so that
// garbage collection keeps it alive.
func (p *Package) IncRef(e Edge) {
	if e.n != terminalID {
		p.node(e.n).rc++
	}
}

// DecRef releases an external reference taken with IncRef.
func (p *Package) DecRef(e Edge) {
	if e.n != terminalID && p.node(e.n).rc > 0 {
		p.node(e.n).rc--
	}
}

// CheckLimit reports ErrResourceExhausted once the active node count
// exceeds the configured bound. Checkers call this at gate granularity.
func (p *Package) CheckLimit() error {
	if p.nodeLimit > 0 && p.activeNodes() > p.nodeLimit {
		return fmt.Errorf("%w: %d decision-diagram nodes (limit %d)",
			ErrResourceExhausted, p.activeNodes(), p.nodeLimit)
	}
	return nil
}

// GarbageCollect sweeps nodes unreachable from referenced roots once the
// active node count exceeds the threshold. Operation caches are dropped
// wholesale since they may reference dead nodes. Roots passed explicitly
// are kept alive in addition to IncRef'd ones.
func (p *Package) GarbageCollect(force bool, roots ...Edge) {
	if !force && (p.gcThreshold == 0 || p.activeNodes() < p.gcThreshold) {
		return
	}

	marked := make(map[int32]bool, p.activeNodes())
	var mark func(id int32)
	mark = func(id int32) {
		if id == terminalID || marked[id] {
			return
		}
		marked[id] = true
		n := p.node(id)
		for i := 0; i < n.width(); i++ {
			if !n.children[i].IsZero() {
				mark(n.children[i].n)
			}
		}
	}
	for id := int32(1); id < int32(len(p.nodes)); id++ {
		if !p.nodes[id].dead && p.nodes[id].rc > 0 {
			mark(id)
		}
	}
	for _, r := range roots {
		if !r.IsZero() {
			mark(r.n)
		}
	}

	for key, id := range p.unique {
		if !marked[id] {
			delete(p.unique, key)
			p.nodes[id].dead = true
			p.free = append(p.free, id)
		}
	}

	p.mulCache = make(map[pairKey]Edge)
	p.addCache = make(map[addKey]Edge)
	p.ctCache = make(map[int32]Edge)
	p.trCache = make(map[int32]complex128)
	p.ipCache = make(map[pairKey]complex128)
	for i := range p.identities {
		p.identities[i] = Edge{}
	}
	p.stats.GCRuns++
}

// Size counts the nodes reachable from e, terminal excluded.
func (p *Package) Size(e Edge) int {
	if e.IsZero() || e.n == terminalID {
		return 0
	}
	seen := make(map[int32]bool)
	var walk func(id int32)
	walk = func(id int32) {
		if id == terminalID || seen[id] {
			return
		}
		seen[id] = true
		n := p.node(id)
		for i := 0; i < n.width(); i++ {
			if !n.children[i].IsZero() {
				walk(n.children[i].n)
			}
		}
	}
	walk(e.n)
	return len(seen)
}

// identityUpTo returns the identity diagram covering levels [0, level].
func (p *Package) identityUpTo(level int32) Edge {
	if level < 0 {
		return term(1)
	}
	if e := p.identities[level]; e.w != 0 {
		return e
	}
	sub := p.identityUpTo(level - 1)
	e := p.makeNode(matrixKind, level, [4]Edge{sub, zeroEdge(), zeroEdge(), sub})
	p.identities[level] = e
	return e
}

// MakeIdentity builds the identity operator over the full register.
func (p *Package) MakeIdentity() Edge {
	return p.identityUpTo(int32(p.nqubits) - 1)
}

// MakeZeroState builds |0...0> over the full register.
func (p *Package) MakeZeroState() Edge {
	e := term(1)
	for q := int32(0); q < int32(p.nqubits); q++ {
		e = p.makeNode(vectorKind, q, [4]Edge{e, zeroEdge()})
	}
	return e
}

// MakeBasisState builds the computational basis state selected by bits,
// bits[q] being the value of qubit q.
func (p *Package) MakeBasisState(bits []bool) Edge {
	e := term(1)
	for q := int32(0); q < int32(p.nqubits); q++ {
		if bits[q] {
			e = p.makeNode(vectorKind, q, [4]Edge{zeroEdge(), e})
		} else {
			e = p.makeNode(vectorKind, q, [4]Edge{e, zeroEdge()})
		}
	}
	return e
}

// MakeProductState builds the product state with single-qubit amplitudes
// (alpha, beta) per qubit.
func (p *Package) MakeProductState(amps [][2]complex128) Edge {
	e := term(1)
	for q := int32(0); q < int32(p.nqubits); q++ {
		a, b := amps[q][0], amps[q][1]
		lo := Edge{n: e.n, w: e.w * a}
		hi := Edge{n: e.n, w: e.w * b}
		e = p.makeNode(vectorKind, q, [4]Edge{lo, hi})
		if e.IsZero() {
			return e
		}
	}
	return e
}

// Multiply computes a*b where a is a matrix diagram and b is either a
// matrix or a vector diagram over the same register.
func (p *Package) Multiply(a, b Edge) Edge {
	return p.multiply(a, b, int32(p.nqubits)-1)
}

func (p *Package) multiply(a, b Edge, level int32) Edge {
	if a.IsZero() || b.IsZero() {
		return zeroEdge()
	}
	if level < 0 {
		return term(a.w * b.w)
	}

	w := a.w * b.w
	key := pairKey{a: a.n, b: b.n}
	if res, ok := p.mulCache[key]; ok {
		p.stats.MulCacheHits++
		return p.scaled(res, w)
	}
	p.stats.MulCacheMisses++

	an := p.node(a.n)
	bn := p.node(b.n)

	var children [4]Edge
	if bn.kind == matrixKind {
		// r[i][j] = sum_k a[i][k] * b[k][j]
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				t0 := p.multiply(an.children[i*2+0], bn.children[0*2+j], level-1)
				t1 := p.multiply(an.children[i*2+1], bn.children[1*2+j], level-1)
				children[i*2+j] = p.add(t0, t1, level-1)
			}
		}
	} else {
		// r[i] = sum_k a[i][k] * b[k]
		for i := 0; i < 2; i++ {
			t0 := p.multiply(an.children[i*2+0], bn.children[0], level-1)
			t1 := p.multiply(an.children[i*2+1], bn.children[1], level-1)
			children[i] = p.add(t0, t1, level-1)
		}
	}

	res := p.makeNode(bn.kind, level, children)
	p.mulCache[key] = res
	return p.scaled(res, w)
}

// scaled multiplies an edge weight by a scalar, collapsing to the zero
// edge when the interned product vanishes.
func (p *Package) scaled(e Edge, w complex128) Edge {
	if e.IsZero() {
		return e
	}
	s := p.weights.lookup(e.w * w)
	if s == 0 {
		return zeroEdge()
	}
	return Edge{n: e.n, w: s}
}

// Add computes the element-wise sum of two diagrams of the same kind.
func (p *Package) Add(a, b Edge) Edge {
	return p.add(a, b, int32(p.nqubits)-1)
}

func (p *Package) add(a, b Edge, level int32) Edge {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	if level < 0 {
		s := p.weights.lookup(a.w + b.w)
		return term(s)
	}
	if a.n == b.n {
		s := p.weights.lookup(a.w + b.w)
		if s == 0 {
			return zeroEdge()
		}
		return Edge{n: a.n, w: s}
	}
	if a.n > b.n {
		a, b = b, a
	}

	key := addKey{an: a.n, aw: a.w, bn: b.n, bw: b.w}
	if res, ok := p.addCache[key]; ok {
		p.stats.AddCacheHits++
		return res
	}
	p.stats.AddCacheMisses++

	an := p.node(a.n)
	bn := p.node(b.n)

	var children [4]Edge
	for i := 0; i < an.width(); i++ {
		ca := an.children[i]
		cb := bn.children[i]
		ca.w *= a.w
		cb.w *= b.w
		children[i] = p.add(ca, cb, level-1)
	}
	res := p.makeNode(an.kind, level, children)
	p.addCache[key] = res
	return res
}

// ConjugateTranspose computes the adjoint of a matrix diagram.
func (p *Package) ConjugateTranspose(e Edge) Edge {
	if e.IsZero() {
		return e
	}
	if e.n == terminalID {
		return term(cmplx.Conj(e.w))
	}
	unit := p.conjugateTransposeNode(e.n)
	return p.scaled(unit, cmplx.Conj(e.w))
}

func (p *Package) conjugateTransposeNode(id int32) Edge {
	if res, ok := p.ctCache[id]; ok {
		return res
	}
	n := p.node(id)
	var children [4]Edge
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			c := n.children[i*2+j]
			children[j*2+i] = p.ConjugateTranspose(c)
		}
	}
	// rebuild one level below the node's own level
	res := p.makeNode(matrixKind, n.level, children)
	p.ctCache[id] = res
	return res
}

// Trace computes the trace of a matrix diagram.
func (p *Package) Trace(e Edge) complex128 {
	return e.w * p.traceNode(e.n, p.levelOf(e))
}

func (p *Package) levelOf(e Edge) int32 {
	if e.n == terminalID {
		return -1
	}
	return p.node(e.n).level
}

func (p *Package) traceNode(id int32, level int32) complex128 {
	if id == terminalID {
		if level < 0 {
			return 1
		}
		// zero edges below the top contribute nothing
		return 0
	}
	if tr, ok := p.trCache[id]; ok {
		return tr
	}
	n := p.node(id)
	c0 := n.children[0]
	c3 := n.children[3]
	tr := c0.w*p.traceNode(c0.n, n.level-1) + c3.w*p.traceNode(c3.n, n.level-1)
	p.trCache[id] = tr
	return tr
}

// InnerProduct computes <a|b> for two vector diagrams.
func (p *Package) InnerProduct(a, b Edge) complex128 {
	return p.innerProduct(a, b, int32(p.nqubits)-1)
}

func (p *Package) innerProduct(a, b Edge, level int32) complex128 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	if level < 0 {
		return cmplx.Conj(a.w) * b.w
	}
	factor := cmplx.Conj(a.w) * b.w
	key := pairKey{a: a.n, b: b.n}
	if ip, ok := p.ipCache[key]; ok {
		return factor * ip
	}
	an := p.node(a.n)
	bn := p.node(b.n)
	var ip complex128
	for i := 0; i < 2; i++ {
		ip += p.innerProduct(an.children[i], bn.children[i], level-1)
	}
	p.ipCache[key] = ip
	return factor * ip
}

// Fidelity computes |<a|b>|^2 for two vector diagrams.
func (p *Package) Fidelity(a, b Edge) float64 {
	ip := p.InnerProduct(a, b)
	return real(ip)*real(ip) + imag(ip)*imag(ip)
}

// IsCloseToIdentity reports whether a matrix diagram is within threshold
// of the identity operator: all off-diagonal contributions vanish and
// every diagonal path multiplies to one.
func (p *Package) IsCloseToIdentity(e Edge, threshold float64) bool {
	visited := make(map[idWeight]bool)
	return p.closeToIdentity(e, 1, threshold, visited)
}

func (p *Package) closeToIdentity(e Edge, acc complex128, threshold float64, visited map[idWeight]bool) bool {
	w := acc * e.w
	if e.n == terminalID {
		return cmplx.Abs(w-1) <= threshold
	}
	key := idWeight{n: e.n, w: w}
	if visited[key] {
		return true
	}
	visited[key] = true
	n := p.node(e.n)
	if cmplx.Abs(w*n.children[1].w) > threshold || cmplx.Abs(w*n.children[2].w) > threshold {
		return false
	}
	return p.closeToIdentity(n.children[0], w, threshold, visited) &&
		p.closeToIdentity(n.children[3], w, threshold, visited)
}

// VectorFromDiagram expands a vector diagram into its dense amplitude
// form. Exponential in the register size; intended for diagnostics and
// small circuits.
func (p *Package) VectorFromDiagram(e Edge) []complex128 {
	out := make([]complex128, 1<<p.nqubits)
	var walk func(e Edge, level int32, index int, acc complex128)
	walk = func(e Edge, level int32, index int, acc complex128) {
		if e.IsZero() {
			return
		}
		acc *= e.w
		if level < 0 {
			out[index] = acc
			return
		}
		n := p.node(e.n)
		walk(n.children[0], level-1, index, acc)
		walk(n.children[1], level-1, index|(1<<level), acc)
	}
	walk(e, int32(p.nqubits)-1, 0, 1)
	return out
}

// MatrixFromDiagram expands a matrix diagram into dense form. Exponential
// in the register size; diagnostics and tests only.
func (p *Package) MatrixFromDiagram(e Edge) *mat.CDense {
	dim := 1 << p.nqubits
	m := mat.NewCDense(dim, dim, nil)
	var walk func(e Edge, level int32, row, col int, acc complex128)
	walk = func(e Edge, level int32, row, col int, acc complex128) {
		if e.IsZero() {
			return
		}
		acc *= e.w
		if level < 0 {
			m.Set(row, col, acc)
			return
		}
		n := p.node(e.n)
		bit := 1 << level
		walk(n.children[0], level-1, row, col, acc)
		walk(n.children[1], level-1, row, col|bit, acc)
		walk(n.children[2], level-1, row|bit, col, acc)
		walk(n.children[3], level-1, row|bit, col|bit, acc)
	}
	walk(e, int32(p.nqubits)-1, 0, 0, 1)
	return m
}

// Reset recycles the package for a fresh run: all nodes, caches and
// statistics are dropped. Edges obtained before the reset are invalid.
func (p *Package) Reset() {
	p.nodes = p.nodes[:1]
	p.free = p.free[:0]
	p.unique = make(map[nodeKey]int32)
	p.mulCache = make(map[pairKey]Edge)
	p.addCache = make(map[addKey]Edge)
	p.ctCache = make(map[int32]Edge)
	p.trCache = make(map[int32]complex128)
	p.ipCache = make(map[pairKey]complex128)
	for i := range p.identities {
		p.identities[i] = Edge{}
	}
	p.stats = PackageStats{}
}

// Stats returns a snapshot of the package counters.
func (p *Package) Stats() PackageStats {
	s := p.stats
	s.ActiveNodes = p.activeNodes()
	s.WeightEntries = p.weights.entries()
	return s
}

// DebugDump renders the package counters for troubleshooting.
func (p *Package) DebugDump() string {
	return spew.Sdump(p.Stats())
}
