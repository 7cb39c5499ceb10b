// Package mesh implements the background-grid side of an explicit material
// point method step: Nodes that accumulate particle contributions under
// per-node locking, and Cells that localize real-world points through the
// inverse isoparametric mapping.
//
// Locking discipline: every Node guards its accumulators with its own
// sync.Mutex, held only for the read-modify-write; every Cell guards its
// particle bookkeeping the same way. No global lock exists, so scatter
// operations on distinct nodes never contend. Geometric queries
// (IsPointInCell, TransformRealToUnitCell) mutate nothing after Initialise
// and are safe for unsynchronized concurrent use.
//
// Errors:
//
//	ErrVectorDim           - per-phase vector operand has the wrong dimension.
//	ErrPhaseIndex          - phase index outside [0, nphases).
//	ErrConstraintDirection - constraint direction outside [0, dim*nphases).
//	ErrSingularMass        - nodal mass below tolerance in ComputeVelocity.
//	ErrNodeSlot            - cell node slot out of range or already taken.
//	ErrCellIncomplete      - cell used before all node slots are populated.
//	ErrNoConvergence       - inverse mapping failed to converge.
//
// None of these abort a simulation step: Node and Cell mutators report
// boolean success and emit a slog diagnostic carrying the sentinel.
package mesh

import "errors"

// Sentinel errors attached to diagnostics and returned by localization.
var (
	// ErrVectorDim indicates a force/momentum/acceleration operand whose
	// dimension does not match the node's per-phase vector size.
	ErrVectorDim = errors.New("mesh: vector dimension mismatch")

	// ErrPhaseIndex indicates a phase index outside the configured range.
	ErrPhaseIndex = errors.New("mesh: phase index out of range")

	// ErrConstraintDirection indicates a constraint direction outside
	// [0, dim*nphases).
	ErrConstraintDirection = errors.New("mesh: constraint direction out of range")

	// ErrSingularMass indicates a nodal mass below tolerance; the phase's
	// velocity is left untouched.
	ErrSingularMass = errors.New("mesh: nodal mass below tolerance")

	// ErrNodeSlot indicates an out-of-range local node index or a slot
	// already holding a different node.
	ErrNodeSlot = errors.New("mesh: node slot out of range or occupied")

	// ErrCellIncomplete indicates a cell operation before every node slot
	// was populated.
	ErrCellIncomplete = errors.New("mesh: cell is not fully populated")

	// ErrNoConvergence indicates the Newton inverse mapping did not converge;
	// callers treat the point as outside the cell.
	ErrNoConvergence = errors.New("mesh: inverse mapping did not converge")
)

const (
	// massTolerance is the smallest nodal mass considered non-singular when
	// deriving velocity from momentum.
	massTolerance = 1e-16

	// invMapTolerance is the Newton residual tolerance for the inverse
	// isoparametric mapping.
	invMapTolerance = 1e-10

	// invMapMaxIter bounds the Newton iteration count so points far outside
	// a cell cannot cost unbounded work.
	invMapMaxIter = 25

	// boundsMargin widens the reference-cell containment test so points on a
	// face shared by two cells are accepted by both.
	boundsMargin = 1e-7
)
