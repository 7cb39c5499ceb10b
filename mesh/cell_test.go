package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomech/mpmgrid/element"
)

func quadCell(t *testing.T, id uint64, coords [][]float64) *Cell {
	t.Helper()
	elem, err := element.New("ED2Q4")
	require.NoError(t, err)
	cell, err := NewCell(id, 4, elem)
	require.NoError(t, err)
	for i, xy := range coords {
		n, err := NewNode(uint64(i), xy, 1)
		require.NoError(t, err)
		require.True(t, cell.AddNode(i, n))
	}
	require.True(t, cell.Initialise())
	return cell
}

func TestNewCellValidation(t *testing.T) {
	elem, err := element.New("ED2Q4")
	require.NoError(t, err)

	_, err = NewCell(0, 4, nil)
	require.Error(t, err)
	_, err = NewCell(0, 8, elem)
	require.Error(t, err)

	cell, err := NewCell(0, 4, elem)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cell.ID())
	assert.Equal(t, 0, cell.Nnodes())
}

func TestAddNodeSlots(t *testing.T) {
	elem, err := element.New("ED2Q4")
	require.NoError(t, err)
	cell, err := NewCell(0, 4, elem)
	require.NoError(t, err)

	n0, err := NewNode(0, []float64{0, 0}, 1)
	require.NoError(t, err)
	n1, err := NewNode(1, []float64{1, 0}, 1)
	require.NoError(t, err)
	n3d, err := NewNode(2, []float64{0, 0, 0}, 1)
	require.NoError(t, err)

	assert.False(t, cell.AddNode(-1, n0))
	assert.False(t, cell.AddNode(4, n0))
	assert.False(t, cell.AddNode(0, nil))
	assert.False(t, cell.AddNode(0, n3d)) // dimension mismatch

	assert.True(t, cell.AddNode(0, n0))
	assert.True(t, cell.AddNode(0, n0)) // same node again is fine
	assert.False(t, cell.AddNode(0, n1))
	assert.Equal(t, 1, cell.Nnodes())
}

func TestInitialiseRequiresFullPopulation(t *testing.T) {
	elem, err := element.New("ED2Q4")
	require.NoError(t, err)
	cell, err := NewCell(0, 4, elem)
	require.NoError(t, err)

	coords := [][]float64{{0, 0}, {1, 0}, {1, 1}}
	for i, xy := range coords {
		n, err := NewNode(uint64(i), xy, 1)
		require.NoError(t, err)
		require.True(t, cell.AddNode(i, n))
	}
	assert.False(t, cell.Initialise())
	assert.False(t, cell.IsPointInCell([]float64{0.5, 0.5}))
	_, err = cell.TransformRealToUnitCell([]float64{0.5, 0.5})
	require.ErrorIs(t, err, ErrCellIncomplete)

	n3, err := NewNode(3, []float64{0, 1}, 1)
	require.NoError(t, err)
	require.True(t, cell.AddNode(3, n3))
	assert.True(t, cell.Initialise())
}

func TestInitialiseRejectsDuplicateNodes(t *testing.T) {
	elem, err := element.New("ED2Q4")
	require.NoError(t, err)
	cell, err := NewCell(0, 4, elem)
	require.NoError(t, err)

	dup, err := NewNode(9, []float64{0, 0}, 1)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.True(t, cell.AddNode(i, dup))
	}
	assert.False(t, cell.Initialise())
}

func TestUnitSquareGeometry(t *testing.T) {
	cell := quadCell(t, 0, [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}})

	assert.InDelta(t, 1.0, cell.Volume(), tol)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, cell.Centroid(), tol)
	assert.InDelta(t, math.Sqrt(0.5), cell.MeanLength(), tol)

	// for an axis-aligned cell the cartesian fast path and the Newton path
	// must agree
	for _, tc := range []struct {
		point []float64
		in    bool
	}{
		{[]float64{0.5, 0.5}, true},
		{[]float64{0, 0}, true},
		{[]float64{1, 1}, true},
		{[]float64{1.01, 0.5}, false},
		{[]float64{-0.2, 0.5}, false},
	} {
		assert.Equal(t, tc.in, cell.PointInCartesianCell(tc.point), "bbox %v", tc.point)
		assert.Equal(t, tc.in, cell.IsPointInCell(tc.point), "newton %v", tc.point)
	}
}

// The distorted quadrilateral and its probe points are taken from a real
// mesh snapshot; the quad is non-axis-aligned, so only the Newton inversion
// can decide containment.
func TestPointInCellDistortedQuadrilateral(t *testing.T) {
	cell := quadCell(t, 0, [][]float64{
		{0.656514162228664, 0.448587131356584},
		{0.609997617675458, 0.448995487014756},
		{0.612187210083002, 0.414580484205138},
		{0.651629357356265, 0.391627886274249},
	})

	assert.True(t, cell.IsPointInCell([]float64{0.632582, 0.425948}))
	assert.True(t, cell.IsPointInCell([]float64{0.632585, 0.42595}))
	assert.False(t, cell.IsPointInCell([]float64{10, 10}))
	assert.False(t, cell.IsPointInCell([]float64{0.7, 0.45}))
}

// Inverse-mapping a point then forward-evaluating the shape functions must
// reproduce the original global point.
func TestTransformRealToUnitCellRoundTrip(t *testing.T) {
	coords := [][]float64{
		{0.656514162228664, 0.448587131356584},
		{0.609997617675458, 0.448995487014756},
		{0.612187210083002, 0.414580484205138},
		{0.651629357356265, 0.391627886274249},
	}
	cell := quadCell(t, 0, coords)

	// forward-map a few interior reference points, invert, and compare
	for _, xiTrue := range [][]float64{{0, 0}, {0.3, -0.2}, {-0.75, 0.6}} {
		s, err := cell.ShapeFnAt(xiTrue)
		require.NoError(t, err)
		point := make([]float64, 2)
		for i, xy := range coords {
			point[0] += s[i] * xy[0]
			point[1] += s[i] * xy[1]
		}

		xi, err := cell.TransformRealToUnitCell(point)
		require.NoError(t, err)
		assert.InDeltaSlice(t, xiTrue, xi, 1e-9)

		// and the round trip in global coordinates
		s2, err := cell.ShapeFnAt(xi)
		require.NoError(t, err)
		back := make([]float64, 2)
		for i, xy := range coords {
			back[0] += s2[i] * xy[0]
			back[1] += s2[i] * xy[1]
		}
		assert.InDeltaSlice(t, point, back, 1e-9)
	}
}

func TestTransformRealToUnitCellLine(t *testing.T) {
	elem, err := element.New("ED1L2")
	require.NoError(t, err)
	cell, err := NewCell(0, 2, elem)
	require.NoError(t, err)
	for i, x := range []float64{2, 6} {
		n, err := NewNode(uint64(i), []float64{x}, 1)
		require.NoError(t, err)
		require.True(t, cell.AddNode(i, n))
	}
	require.True(t, cell.Initialise())

	assert.InDelta(t, 4.0, cell.Volume(), tol)
	xi, err := cell.TransformRealToUnitCell([]float64{5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, xi[0], 1e-9)
	assert.True(t, cell.IsPointInCell([]float64{5}))
	assert.False(t, cell.IsPointInCell([]float64{6.5}))
}

func TestHexahedronPointInCell(t *testing.T) {
	elem, err := element.New("ED3H8")
	require.NoError(t, err)
	cell, err := NewCell(0, 8, elem)
	require.NoError(t, err)
	corners := [][]float64{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	for i, xyz := range corners {
		n, err := NewNode(uint64(i), xyz, 1)
		require.NoError(t, err)
		require.True(t, cell.AddNode(i, n))
	}
	require.True(t, cell.Initialise())

	assert.InDelta(t, 1.0, cell.Volume(), tol)
	assert.True(t, cell.IsPointInCell([]float64{0.25, 0.5, 0.75}))
	assert.True(t, cell.IsPointInCell([]float64{1, 1, 1}))
	assert.False(t, cell.IsPointInCell([]float64{0.5, 0.5, 1.2}))

	xi, err := cell.TransformRealToUnitCell([]float64{0.75, 0.5, 0.25})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0, -0.5}, xi, 1e-9)
}

// Points on a face shared by two cells must be claimed by both.
func TestSharedFacePointInBothCells(t *testing.T) {
	left := quadCell(t, 0, [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	right := quadCell(t, 1, [][]float64{{1, 0}, {2, 0}, {2, 1}, {1, 1}})

	onFace := []float64{1, 0.5}
	assert.True(t, left.IsPointInCell(onFace))
	assert.True(t, right.IsPointInCell(onFace))
}

func TestParticleBookkeeping(t *testing.T) {
	cell := quadCell(t, 0, [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}})

	assert.False(t, cell.Status())
	cell.AddParticleID(42)
	cell.AddParticleID(42)
	cell.AddParticleID(7)
	assert.Equal(t, 2, cell.NumParticles())
	assert.True(t, cell.Status())

	cell.RemoveParticleID(42)
	cell.RemoveParticleID(99) // never added, no-op
	assert.Equal(t, 1, cell.NumParticles())
}
