package mesh

import (
	"fmt"
	"log/slog"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Node is one point of the background mesh. It accumulates mass, volume,
// momentum and forces per phase from the particles around it, derives
// velocity and acceleration, and enforces prescribed velocity constraints.
//
// All mutating operations serialize on the node's own mutex; nodes never
// share locks, so scatter updates to distinct nodes proceed in parallel.
type Node struct {
	id      uint64
	coords  []float64
	dim     int
	nphases int

	mu     sync.Mutex
	status bool

	// scalar accumulators, one entry per phase
	mass   []float64
	volume []float64

	// vector accumulators, [dim x nphases]
	momentum      *mat.Dense
	velocity      *mat.Dense
	acceleration  *mat.Dense
	externalForce *mat.Dense
	internalForce *mat.Dense

	// direction -> prescribed velocity value, direction in [0, dim*nphases)
	velocityConstraints map[int]float64
}

// NewNode creates a node with its immutable identity and coordinates.
// The coordinate dimension must be 1, 2 or 3 and nphases at least 1.
func NewNode(id uint64, coords []float64, nphases int) (*Node, error) {
	dim := len(coords)
	if dim < 1 || dim > 3 {
		return nil, fmt.Errorf("mesh: node %d has %d coordinates, want 1 to 3", id, dim)
	}
	if nphases < 1 {
		return nil, fmt.Errorf("mesh: node %d needs at least one phase, got %d", id, nphases)
	}
	n := &Node{
		id:                  id,
		coords:              append([]float64(nil), coords...),
		dim:                 dim,
		nphases:             nphases,
		mass:                make([]float64, nphases),
		volume:              make([]float64, nphases),
		momentum:            mat.NewDense(dim, nphases, nil),
		velocity:            mat.NewDense(dim, nphases, nil),
		acceleration:        mat.NewDense(dim, nphases, nil),
		externalForce:       mat.NewDense(dim, nphases, nil),
		internalForce:       mat.NewDense(dim, nphases, nil),
		velocityConstraints: make(map[int]float64),
	}
	return n, nil
}

// ID returns the node id.
func (n *Node) ID() uint64 { return n.id }

// Dim returns the per-phase vector size.
func (n *Node) Dim() int { return n.dim }

// Nphases returns the number of phases tracked by this node.
func (n *Node) Nphases() int { return n.nphases }

// Coordinates returns a copy of the node coordinates.
func (n *Node) Coordinates() []float64 {
	return append([]float64(nil), n.coords...)
}

// Initialise zeroes every accumulator and clears the active status. The mesh
// driver calls this once per time step before any scatter; topology persists.
func (n *Node) Initialise() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for p := 0; p < n.nphases; p++ {
		n.mass[p] = 0
		n.volume[p] = 0
	}
	n.momentum.Zero()
	n.velocity.Zero()
	n.acceleration.Zero()
	n.externalForce.Zero()
	n.internalForce.Zero()
	n.status = false
}

// AssignStatus marks the node active or inactive for the current step.
func (n *Node) AssignStatus(active bool) {
	n.mu.Lock()
	n.status = active
	n.mu.Unlock()
}

// Status reports whether the node was touched in the current step.
func (n *Node) Status() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// updateScalar adds to or replaces a scalar per-phase accumulator.
func (n *Node) updateScalar(dst []float64, update bool, phase int, value float64, op string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if phase < 0 || phase >= n.nphases {
		slog.Warn("node scalar update skipped",
			"op", op, "node", n.id, "phase", phase, "err", ErrPhaseIndex)
		return
	}
	if update {
		dst[phase] += value
	} else {
		dst[phase] = value
	}
}

// UpdateMass adds to (update=true) or replaces (update=false) the nodal mass
// of a phase.
func (n *Node) UpdateMass(update bool, phase int, value float64) {
	n.updateScalar(n.mass, update, phase, value, "mass")
}

// UpdateVolume adds to or replaces the nodal volume of a phase.
func (n *Node) UpdateVolume(update bool, phase int, value float64) {
	n.updateScalar(n.volume, update, phase, value, "volume")
}

// updateVector adds to or replaces a column of a per-phase vector
// accumulator. The operand dimension must match the node's per-phase vector
// size; on mismatch nothing is mutated and the failure is reported.
func (n *Node) updateVector(dst *mat.Dense, update bool, phase int, vec []float64, op string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if phase < 0 || phase >= n.nphases {
		slog.Warn("node vector update rejected",
			"op", op, "node", n.id, "phase", phase, "err", ErrPhaseIndex)
		return false
	}
	if len(vec) != n.dim {
		slog.Warn("node vector update rejected",
			"op", op, "node", n.id, "got", len(vec), "want", n.dim, "err", ErrVectorDim)
		return false
	}
	for i := 0; i < n.dim; i++ {
		if update {
			dst.Set(i, phase, dst.At(i, phase)+vec[i])
		} else {
			dst.Set(i, phase, vec[i])
		}
	}
	return true
}

// UpdateExternalForce adds to or replaces the external force of a phase.
func (n *Node) UpdateExternalForce(update bool, phase int, force []float64) bool {
	return n.updateVector(n.externalForce, update, phase, force, "external force")
}

// UpdateInternalForce adds to or replaces the internal force of a phase.
func (n *Node) UpdateInternalForce(update bool, phase int, force []float64) bool {
	return n.updateVector(n.internalForce, update, phase, force, "internal force")
}

// UpdateMomentum adds to or replaces the momentum of a phase.
func (n *Node) UpdateMomentum(update bool, phase int, momentum []float64) bool {
	return n.updateVector(n.momentum, update, phase, momentum, "momentum")
}

// UpdateAcceleration adds to or replaces the acceleration of a phase.
func (n *Node) UpdateAcceleration(update bool, phase int, acceleration []float64) bool {
	return n.updateVector(n.acceleration, update, phase, acceleration, "acceleration")
}

// ComputeVelocity derives velocity = momentum / mass for every phase whose
// mass exceeds the singular-mass tolerance. A phase with (near-)zero mass
// keeps its previous velocity; the condition is logged and the step goes on.
func (n *Node) ComputeVelocity() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for p := 0; p < n.nphases; p++ {
		if n.mass[p] > massTolerance {
			for i := 0; i < n.dim; i++ {
				n.velocity.Set(i, p, n.momentum.At(i, p)/n.mass[p])
			}
			continue
		}
		slog.Debug("node velocity not updated",
			"node", n.id, "phase", p, "mass", n.mass[p], "err", ErrSingularMass)
	}
}

// AssignVelocityConstraints stores prescribed velocity values keyed by
// constraint direction, where direction = phase*dim + axis. Validation is
// all-or-nothing: if any direction is out of range, no constraint from the
// set is stored and the call reports failure.
func (n *Node) AssignVelocityConstraints(constraints map[int]float64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for dir := range constraints {
		if dir < 0 || dir >= n.dim*n.nphases {
			slog.Warn("node velocity constraints rejected",
				"node", n.id, "direction", dir,
				"limit", n.dim*n.nphases, "err", ErrConstraintDirection)
			return false
		}
	}
	for dir, value := range constraints {
		n.velocityConstraints[dir] = value
	}
	return true
}

// ApplyVelocityConstraints overwrites the constrained velocity components
// with their prescribed values. Idempotent.
func (n *Node) ApplyVelocityConstraints() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for dir, value := range n.velocityConstraints {
		axis := dir % n.dim
		phase := dir / n.dim
		n.velocity.Set(axis, phase, value)
	}
}

// ApplyAccelerationConstraints zeroes the acceleration along every
// velocity-constrained direction. Idempotent.
func (n *Node) ApplyAccelerationConstraints() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for dir := range n.velocityConstraints {
		axis := dir % n.dim
		phase := dir / n.dim
		n.acceleration.Set(axis, phase, 0)
	}
}

// Mass returns the accumulated mass of a phase.
func (n *Node) Mass(phase int) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mass[phase]
}

// Volume returns the accumulated volume of a phase.
func (n *Node) Volume(phase int) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.volume[phase]
}

// column copies one phase column of a vector accumulator.
func (n *Node) column(src *mat.Dense, phase int) []float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]float64, n.dim)
	mat.Col(out, phase, src)
	return out
}

// Momentum returns a copy of the momentum vector of a phase.
func (n *Node) Momentum(phase int) []float64 { return n.column(n.momentum, phase) }

// Velocity returns a copy of the velocity vector of a phase.
func (n *Node) Velocity(phase int) []float64 { return n.column(n.velocity, phase) }

// Acceleration returns a copy of the acceleration vector of a phase.
func (n *Node) Acceleration(phase int) []float64 { return n.column(n.acceleration, phase) }

// ExternalForce returns a copy of the external force vector of a phase.
func (n *Node) ExternalForce(phase int) []float64 { return n.column(n.externalForce, phase) }

// InternalForce returns a copy of the internal force vector of a phase.
func (n *Node) InternalForce(phase int) []float64 { return n.column(n.internalForce, phase) }
