// Package geometry provides the stateless numerical transforms used to map
// boundary constraints expressed in rotated (non-Cartesian) frames back to
// the global axes.
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RotationMatrix builds the forward rotation matrix for a rotated boundary
// frame: one angle in 2D, three in 3D composed about the x, then y, then z
// axis (R = Rz * Ry * Rx). Angles are in radians.
func RotationMatrix(angles []float64) (*mat.Dense, error) {
	switch len(angles) {
	case 1:
		c, s := math.Cos(angles[0]), math.Sin(angles[0])
		return mat.NewDense(2, 2, []float64{
			c, -s,
			s, c,
		}), nil
	case 3:
		cx, sx := math.Cos(angles[0]), math.Sin(angles[0])
		cy, sy := math.Cos(angles[1]), math.Sin(angles[1])
		cz, sz := math.Cos(angles[2]), math.Sin(angles[2])
		rx := mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, cx, -sx,
			0, sx, cx,
		})
		ry := mat.NewDense(3, 3, []float64{
			cy, 0, sy,
			0, 1, 0,
			-sy, 0, cy,
		})
		rz := mat.NewDense(3, 3, []float64{
			cz, -sz, 0,
			sz, cz, 0,
			0, 0, 1,
		})
		var r mat.Dense
		r.Mul(rz, ry)
		r.Mul(&r, rx)
		return &r, nil
	default:
		return nil, fmt.Errorf("geometry: rotation needs 1 (2D) or 3 (3D) angles, got %d",
			len(angles))
	}
}

// InverseRotationMatrix returns the numerical inverse of the rotation matrix
// for the given angles, used to carry constraint directions from a rotated
// boundary frame into the global frame. Rotation matrices are orthogonal, so
// inversion cannot fail beyond floating-point conditioning.
func InverseRotationMatrix(angles []float64) (*mat.Dense, error) {
	r, err := RotationMatrix(angles)
	if err != nil {
		return nil, err
	}
	var inv mat.Dense
	if err := inv.Inverse(r); err != nil {
		return nil, fmt.Errorf("geometry: rotation inverse: %w", err)
	}
	return &inv, nil
}
