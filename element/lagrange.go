package element

import "gonum.org/v1/gonum/mat"

// multilinear implements the tensor-product linear Lagrange elements (2-node
// line, 4-node quadrilateral, 8-node hexahedron). For these the i-th shape
// function factors as
//
//	N_i(xi) = prod_j (1 + xi_j * c_ij) / 2
//
// where c_ij is the j-th natural coordinate of local node i.
type multilinear struct {
	props ElementProperties
	// natural node coordinates, row i holds node i [Np x Dim]
	nat *mat.Dense
}

// Local node numbering follows the counter-clockwise corner convention, with
// the 3D ordering listing the bottom face first, then the top face.
var (
	line2Nat = []float64{
		-1,
		1,
	}
	quad4Nat = []float64{
		-1, -1,
		1, -1,
		1, 1,
		-1, 1,
	}
	hex8Nat = []float64{
		-1, -1, -1,
		1, -1, -1,
		1, 1, -1,
		-1, 1, -1,
		-1, -1, 1,
		1, -1, 1,
		1, 1, 1,
		-1, 1, 1,
	}
)

func newLine2() *multilinear {
	return &multilinear{
		props: ElementProperties{
			Name:       "Linear Line",
			ShortName:  "ED1L2",
			Type:       Line,
			Order:      1,
			Np:         2,
			NFaces:     2,
			Dimensions: D1,
		},
		nat: mat.NewDense(2, 1, line2Nat),
	}
}

func newQuad4() *multilinear {
	return &multilinear{
		props: ElementProperties{
			Name:       "Bilinear Quadrilateral",
			ShortName:  "ED2Q4",
			Type:       Quadrilateral,
			Order:      1,
			Np:         4,
			NFaces:     4,
			Dimensions: D2,
		},
		nat: mat.NewDense(4, 2, quad4Nat),
	}
}

func newHex8() *multilinear {
	return &multilinear{
		props: ElementProperties{
			Name:       "Trilinear Hexahedron",
			ShortName:  "ED3H8",
			Type:       Hexahedron,
			Order:      1,
			Np:         8,
			NFaces:     6,
			Dimensions: D3,
		},
		nat: mat.NewDense(8, 3, hex8Nat),
	}
}

func (e *multilinear) Properties() ElementProperties { return e.props }
func (e *multilinear) Nn() int                       { return e.props.Np }
func (e *multilinear) Dim() int                      { return int(e.props.Dimensions) }

func (e *multilinear) ShapeFn(xi []float64) ([]float64, error) {
	dim := e.Dim()
	if err := checkLocalCoord(xi, dim, e.props.ShortName); err != nil {
		return nil, err
	}
	s := make([]float64, e.props.Np)
	for i := range s {
		n := 1.0
		for j := 0; j < dim; j++ {
			n *= (1 + xi[j]*e.nat.At(i, j)) / 2
		}
		s[i] = n
	}
	return s, nil
}

func (e *multilinear) GradShapeFn(xi []float64) (*mat.Dense, error) {
	dim := e.Dim()
	if err := checkLocalCoord(xi, dim, e.props.ShortName); err != nil {
		return nil, err
	}
	grad := mat.NewDense(e.props.Np, dim, nil)
	for i := 0; i < e.props.Np; i++ {
		for k := 0; k < dim; k++ {
			// d/dxi_k differentiates one factor, the rest stay
			d := e.nat.At(i, k) / 2
			for j := 0; j < dim; j++ {
				if j == k {
					continue
				}
				d *= (1 + xi[j]*e.nat.At(i, j)) / 2
			}
			grad.Set(i, k, d)
		}
	}
	return grad, nil
}

func (e *multilinear) ReferenceBounds() (lo, hi []float64) {
	return referenceBounds(e.Dim())
}

func (e *multilinear) ReferenceCoordinates() *mat.Dense {
	out := mat.NewDense(e.props.Np, e.Dim(), nil)
	out.Copy(e.nat)
	return out
}
