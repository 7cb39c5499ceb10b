package mesh

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/geomech/mpmgrid/element"
)

// Cell is one element of the background mesh: an ordered set of node
// references whose local numbering matches the element's canonical ordering,
// plus the shared shape-function capability. Cells never own their nodes;
// the mesh does.
//
// After Initialise the geometric query surface is read-only and safe for
// concurrent use. Particle bookkeeping has its own lock.
type Cell struct {
	id   uint64
	elem element.Element
	dim  int

	// nodes in canonical local order, nil while a slot is empty
	nodes       []*Node
	nfilled     int
	initialised bool

	// precomputed by Initialise
	centroid   []float64
	bboxLo     []float64
	bboxHi     []float64
	meanLength float64
	volume     float64

	mu        sync.Mutex
	particles map[uint64]struct{}
}

// NewCell creates a cell for the given element type. The expected node count
// must match the element's.
func NewCell(id uint64, nnodes int, elem element.Element) (*Cell, error) {
	if elem == nil {
		return nil, fmt.Errorf("mesh: cell %d created without an element", id)
	}
	if nnodes != elem.Nn() {
		return nil, fmt.Errorf("mesh: cell %d expects %d nodes but element %s has %d",
			id, nnodes, elem.Properties().ShortName, elem.Nn())
	}
	return &Cell{
		id:        id,
		elem:      elem,
		dim:       elem.Dim(),
		nodes:     make([]*Node, nnodes),
		particles: make(map[uint64]struct{}),
	}, nil
}

// ID returns the cell id.
func (c *Cell) ID() uint64 { return c.id }

// Element returns the shared shape-function capability.
func (c *Cell) Element() element.Element { return c.elem }

// Nnodes returns the number of populated node slots.
func (c *Cell) Nnodes() int { return c.nfilled }

// Nodes returns the node references in canonical local order.
func (c *Cell) Nodes() []*Node {
	return append([]*Node(nil), c.nodes...)
}

// AddNode attaches a node at the given local index. Re-attaching the same
// node to its slot succeeds; an out-of-range index, a nil node, a dimension
// mismatch or a slot already holding a different node is a reported failure.
func (c *Cell) AddNode(localID int, node *Node) bool {
	if localID < 0 || localID >= len(c.nodes) {
		slog.Warn("cell add node rejected",
			"cell", c.id, "local", localID, "nnodes", len(c.nodes), "err", ErrNodeSlot)
		return false
	}
	if node == nil {
		slog.Warn("cell add node rejected", "cell", c.id, "local", localID, "err", ErrNodeSlot)
		return false
	}
	if node.Dim() != c.dim {
		slog.Warn("cell add node rejected",
			"cell", c.id, "node", node.ID(), "got", node.Dim(), "want", c.dim, "err", ErrVectorDim)
		return false
	}
	if c.nodes[localID] != nil {
		if c.nodes[localID] == node {
			return true
		}
		slog.Warn("cell add node rejected: slot occupied",
			"cell", c.id, "local", localID, "err", ErrNodeSlot)
		return false
	}
	c.nodes[localID] = node
	c.nfilled++
	c.initialised = false
	return true
}

// Initialise validates that every slot holds a distinct node and precomputes
// the cell geometry (centroid, bounding box, mean length, volume). It must
// succeed before the cell participates in localization queries.
func (c *Cell) Initialise() bool {
	if c.nfilled != len(c.nodes) {
		slog.Warn("cell initialise failed",
			"cell", c.id, "filled", c.nfilled, "want", len(c.nodes), "err", ErrCellIncomplete)
		return false
	}
	seen := make(map[uint64]struct{}, len(c.nodes))
	for _, n := range c.nodes {
		if _, dup := seen[n.ID()]; dup {
			slog.Warn("cell initialise failed: duplicate node",
				"cell", c.id, "node", n.ID(), "err", ErrCellIncomplete)
			return false
		}
		seen[n.ID()] = struct{}{}
	}

	c.centroid = make([]float64, c.dim)
	c.bboxLo = make([]float64, c.dim)
	c.bboxHi = make([]float64, c.dim)
	for a := 0; a < c.dim; a++ {
		c.bboxLo[a] = math.Inf(1)
		c.bboxHi[a] = math.Inf(-1)
	}
	for _, n := range c.nodes {
		coords := n.Coordinates()
		for a := 0; a < c.dim; a++ {
			c.centroid[a] += coords[a] / float64(len(c.nodes))
			c.bboxLo[a] = math.Min(c.bboxLo[a], coords[a])
			c.bboxHi[a] = math.Max(c.bboxHi[a], coords[a])
		}
	}

	c.meanLength = 0
	for _, n := range c.nodes {
		coords := n.Coordinates()
		d := 0.0
		for a := 0; a < c.dim; a++ {
			d += (coords[a] - c.centroid[a]) * (coords[a] - c.centroid[a])
		}
		c.meanLength += math.Sqrt(d) / float64(len(c.nodes))
	}

	vol, err := c.computeVolume()
	if err != nil {
		slog.Warn("cell initialise failed", "cell", c.id, "err", err)
		return false
	}
	c.volume = vol
	c.initialised = true
	return true
}

// Centroid returns the mean of the node coordinates. Valid after Initialise.
func (c *Cell) Centroid() []float64 {
	return append([]float64(nil), c.centroid...)
}

// MeanLength returns the average distance from the centroid to the cell
// nodes, a cheap length scale for proximity heuristics. Valid after
// Initialise.
func (c *Cell) MeanLength() float64 { return c.meanLength }

// Volume returns the cell measure (length in 1D, area in 2D, volume in 3D).
// Valid after Initialise.
func (c *Cell) Volume() float64 { return c.volume }

// computeVolume integrates the Jacobian determinant of the isoparametric map
// with a 2-point Gauss rule per axis, exact for the multilinear elements.
func (c *Cell) computeVolume() (float64, error) {
	const g = 0.5773502691896257 // 1/sqrt(3)
	npts := 1 << c.dim
	xi := make([]float64, c.dim)
	total := 0.0
	for p := 0; p < npts; p++ {
		for a := 0; a < c.dim; a++ {
			if p>>a&1 == 0 {
				xi[a] = -g
			} else {
				xi[a] = g
			}
		}
		jac, err := c.jacobianAt(xi)
		if err != nil {
			return 0, err
		}
		det := mat.Det(jac)
		if det <= 0 {
			return 0, fmt.Errorf("mesh: cell %d has non-positive jacobian %g", c.id, det)
		}
		total += det
	}
	return total, nil
}

// jacobianAt assembles J = sum_i x_i (dN_i/dxi)^T at a local coordinate.
func (c *Cell) jacobianAt(xi []float64) (*mat.Dense, error) {
	grad, err := c.elem.GradShapeFn(xi)
	if err != nil {
		return nil, err
	}
	jac := mat.NewDense(c.dim, c.dim, nil)
	for i, n := range c.nodes {
		coords := n.Coordinates()
		for a := 0; a < c.dim; a++ {
			for b := 0; b < c.dim; b++ {
				jac.Set(a, b, jac.At(a, b)+coords[a]*grad.At(i, b))
			}
		}
	}
	return jac, nil
}

// ShapeFnAt evaluates the element shape functions at a local coordinate.
func (c *Cell) ShapeFnAt(xi []float64) ([]float64, error) {
	return c.elem.ShapeFn(xi)
}

// GradShapeFnAt evaluates the element shape-function gradients at a local
// coordinate.
func (c *Cell) GradShapeFnAt(xi []float64) (*mat.Dense, error) {
	return c.elem.GradShapeFn(xi)
}

// PointInCartesianCell reports whether a point lies inside the axis-aligned
// bounding box of the cell. For axis-aligned meshes this is the exact
// containment test; for distorted cells it is the fast pre-check before the
// Newton inversion.
func (c *Cell) PointInCartesianCell(point []float64) bool {
	if !c.initialised || len(point) != c.dim {
		return false
	}
	for a := 0; a < c.dim; a++ {
		if point[a] < c.bboxLo[a]-boundsMargin || point[a] > c.bboxHi[a]+boundsMargin {
			return false
		}
	}
	return true
}

// TransformRealToUnitCell solves for the local coordinate xi with
// sum_i N_i(xi) x_i = point by Newton iteration started at the reference
// centroid. Non-convergence (including a singular Jacobian) is an error;
// callers treat the point as outside this cell.
func (c *Cell) TransformRealToUnitCell(point []float64) ([]float64, error) {
	if !c.initialised {
		return nil, ErrCellIncomplete
	}
	if len(point) != c.dim {
		return nil, fmt.Errorf("%w: point has %d components, cell %d has %d",
			ErrVectorDim, len(point), c.id, c.dim)
	}

	xi := make([]float64, c.dim)
	residual := make([]float64, c.dim)
	var jinv mat.Dense
	for it := 0; it < invMapMaxIter; it++ {
		s, err := c.elem.ShapeFn(xi)
		if err != nil {
			return nil, err
		}

		// residual: r = point - x * S
		norm := 0.0
		for a := 0; a < c.dim; a++ {
			residual[a] = point[a]
			for i, n := range c.nodes {
				residual[a] -= s[i] * n.coords[a]
			}
			norm += residual[a] * residual[a]
		}
		if math.Sqrt(norm) < invMapTolerance {
			return xi, nil
		}

		jac, err := c.jacobianAt(xi)
		if err != nil {
			return nil, err
		}
		if err := jinv.Inverse(jac); err != nil {
			return nil, fmt.Errorf("%w: cell %d singular jacobian at %v",
				ErrNoConvergence, c.id, xi)
		}

		// corrector: xi += J^-1 * r, snapping near-boundary drift back to
		// the reference bounds
		for a := 0; a < c.dim; a++ {
			for b := 0; b < c.dim; b++ {
				xi[a] += jinv.At(a, b) * residual[b]
			}
			if xi[a] < -1 && xi[a] > -1-invMapTolerance {
				xi[a] = -1
			}
			if xi[a] > 1 && xi[a] < 1+invMapTolerance {
				xi[a] = 1
			}
		}
	}
	return nil, fmt.Errorf("%w: cell %d point %v", ErrNoConvergence, c.id, point)
}

// IsPointInCell reports whether a real-world coordinate lies within the
// cell's geometric extent: bounding-box rejection first, then the Newton
// inversion with the converged local coordinate checked against the
// reference bounds (with a margin so shared faces belong to both
// neighbours).
func (c *Cell) IsPointInCell(point []float64) bool {
	if !c.initialised {
		slog.Warn("point-in-cell query on uninitialised cell",
			"cell", c.id, "err", ErrCellIncomplete)
		return false
	}
	if !c.PointInCartesianCell(point) {
		return false
	}
	xi, err := c.TransformRealToUnitCell(point)
	if err != nil {
		return false
	}
	lo, hi := c.elem.ReferenceBounds()
	for a := 0; a < c.dim; a++ {
		if xi[a] < lo[a]-boundsMargin || xi[a] > hi[a]+boundsMargin {
			return false
		}
	}
	return true
}

// AddParticleID records a particle hosted by this cell. Safe for concurrent
// use by scatter workers.
func (c *Cell) AddParticleID(id uint64) {
	c.mu.Lock()
	c.particles[id] = struct{}{}
	c.mu.Unlock()
}

// RemoveParticleID drops a particle from this cell. Removing an id that was
// never added is a no-op.
func (c *Cell) RemoveParticleID(id uint64) {
	c.mu.Lock()
	delete(c.particles, id)
	c.mu.Unlock()
}

// NumParticles returns the number of particles currently hosted.
func (c *Cell) NumParticles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.particles)
}

// Status reports whether any particles are hosted by this cell.
func (c *Cell) Status() bool {
	return c.NumParticles() > 0
}
