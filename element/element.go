// Package element provides the shape-function capability consumed by mesh
// cells: interpolation weights, local-coordinate gradients and reference
// geometry for isoparametric Lagrange elements.
package element

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dimensionality represents the spatial dimension of an element
type Dimensionality uint8

const (
	D1 Dimensionality = iota + 1 // 1D elements (lines)
	D2                           // 2D elements (quadrilaterals)
	D3                           // 3D elements (hexahedra)
)

// GeometryType identifies the element shape
type GeometryType uint8

const (
	Line GeometryType = iota
	Quadrilateral
	Hexahedron
)

// ErrUnknownElement is returned by New for unregistered element names.
var ErrUnknownElement = errors.New("element: unknown element type")

// ElementProperties contains metadata describing an element type
type ElementProperties struct {
	Name       string         // Full descriptive name (e.g., "Bilinear Quadrilateral")
	ShortName  string         // Registry name (e.g., "ED2Q4")
	Type       GeometryType   // Element shape
	Order      int            // Polynomial order
	Np         int            // Total number of nodes in element
	NFaces     int            // Number of faces (edges in 2D, end points in 1D)
	Dimensions Dimensionality // Spatial dimension
}

// Element evaluates shape functions and their local-coordinate derivatives
// for one geometric element type. Implementations hold no mutable state, so a
// single instance may be shared across cells and called from many goroutines.
type Element interface {
	// Properties returns element metadata
	Properties() ElementProperties

	// Nn returns the number of nodes (Np)
	Nn() int

	// Dim returns the spatial dimension
	Dim() int

	// ShapeFn evaluates the Np interpolation weights at local coordinate xi.
	// The slice is ordered by the element's canonical local node numbering.
	ShapeFn(xi []float64) ([]float64, error)

	// GradShapeFn evaluates the [Np x Dim] matrix of shape-function
	// derivatives with respect to the local coordinates at xi.
	GradShapeFn(xi []float64) (*mat.Dense, error)

	// ReferenceBounds returns the canonical reference-cell bounds per local
	// axis, [-1, 1] for every Lagrange element in this package.
	ReferenceBounds() (lo, hi []float64)

	// ReferenceCoordinates returns the [Np x Dim] natural coordinates of the
	// element's nodes in canonical local order.
	ReferenceCoordinates() *mat.Dense
}

// registry maps short names to element instances. Instances are stateless,
// so the registry hands out shared singletons.
var registry = map[string]Element{
	"ED1L2": newLine2(),
	"ED2Q4": newQuad4(),
	"ED2Q8": newQuad8(),
	"ED3H8": newHex8(),
}

// New returns the element registered under the given short name, e.g. "ED2Q4"
// for the 4-node bilinear quadrilateral.
func New(name string) (Element, error) {
	el, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownElement, name)
	}
	return el, nil
}

// checkLocalCoord validates the dimension of a local coordinate vector.
func checkLocalCoord(xi []float64, dim int, name string) error {
	if len(xi) != dim {
		return fmt.Errorf("element: %s local coordinate has %d components, want %d",
			name, len(xi), dim)
	}
	return nil
}

// referenceBounds returns the canonical [-1,1] bounds for a given dimension.
func referenceBounds(dim int) (lo, hi []float64) {
	lo = make([]float64, dim)
	hi = make([]float64, dim)
	for i := range lo {
		lo[i] = -1
		hi[i] = 1
	}
	return lo, hi
}
