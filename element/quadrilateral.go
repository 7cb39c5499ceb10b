package element

import "gonum.org/v1/gonum/mat"

// quad8 implements the 8-node serendipity quadrilateral. Corners first,
// mid-side nodes 4..7 between corner pairs (0,1), (1,2), (2,3), (3,0).
type quad8 struct {
	props ElementProperties
	nat   *mat.Dense
}

var quad8Nat = []float64{
	-1, -1,
	1, -1,
	1, 1,
	-1, 1,
	0, -1,
	1, 0,
	0, 1,
	-1, 0,
}

func newQuad8() *quad8 {
	return &quad8{
		props: ElementProperties{
			Name:       "Serendipity Quadratic Quadrilateral",
			ShortName:  "ED2Q8",
			Type:       Quadrilateral,
			Order:      2,
			Np:         8,
			NFaces:     4,
			Dimensions: D2,
		},
		nat: mat.NewDense(8, 2, quad8Nat),
	}
}

func (e *quad8) Properties() ElementProperties { return e.props }
func (e *quad8) Nn() int                       { return 8 }
func (e *quad8) Dim() int                      { return 2 }

func (e *quad8) ShapeFn(xi []float64) ([]float64, error) {
	if err := checkLocalCoord(xi, 2, e.props.ShortName); err != nil {
		return nil, err
	}
	r, s := xi[0], xi[1]
	n := make([]float64, 8)
	for i := 0; i < 4; i++ {
		ri, si := e.nat.At(i, 0), e.nat.At(i, 1)
		n[i] = 0.25 * (1 + r*ri) * (1 + s*si) * (r*ri + s*si - 1)
	}
	for i := 4; i < 8; i++ {
		ri, si := e.nat.At(i, 0), e.nat.At(i, 1)
		if ri == 0 {
			n[i] = 0.5 * (1 - r*r) * (1 + s*si)
		} else {
			n[i] = 0.5 * (1 + r*ri) * (1 - s*s)
		}
	}
	return n, nil
}

func (e *quad8) GradShapeFn(xi []float64) (*mat.Dense, error) {
	if err := checkLocalCoord(xi, 2, e.props.ShortName); err != nil {
		return nil, err
	}
	r, s := xi[0], xi[1]
	grad := mat.NewDense(8, 2, nil)
	for i := 0; i < 4; i++ {
		ri, si := e.nat.At(i, 0), e.nat.At(i, 1)
		grad.Set(i, 0, 0.25*ri*(1+s*si)*(2*r*ri+s*si))
		grad.Set(i, 1, 0.25*si*(1+r*ri)*(2*s*si+r*ri))
	}
	for i := 4; i < 8; i++ {
		ri, si := e.nat.At(i, 0), e.nat.At(i, 1)
		if ri == 0 {
			grad.Set(i, 0, -r*(1+s*si))
			grad.Set(i, 1, 0.5*si*(1-r*r))
		} else {
			grad.Set(i, 0, 0.5*ri*(1-s*s))
			grad.Set(i, 1, -s*(1+r*ri))
		}
	}
	return grad, nil
}

func (e *quad8) ReferenceBounds() (lo, hi []float64) {
	return referenceBounds(2)
}

func (e *quad8) ReferenceCoordinates() *mat.Dense {
	out := mat.NewDense(8, 2, nil)
	out.Copy(e.nat)
	return out
}
