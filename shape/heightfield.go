package shape

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// HeightField is a regular grid of heights over the local X-Y plane, centered on the origin. Heights[i][j]
// is the height of the grid point in row i (along Y) and column j (along X). Scale gives the total size of
// the grid along X and Y and the multiplier applied to heights along Z. Each cell is split into two
// triangles; the part index of triangle k of cell (i, j) is 2*(i*(cols-1)+j)+k.
type HeightField struct {
	triangleSet
	heights [][]float64
	scale   r3.Vector
}

// NewHeightField instantiates a new HeightField. The grid needs at least two rows and two columns of the
// same length, finite heights and a positive scale.
func NewHeightField(heights [][]float64, scale r3.Vector) (*HeightField, error) {
	if err := checkPositive("heightfield", scale.X, scale.Y, scale.Z); err != nil {
		return nil, err
	}
	rows := len(heights)
	if rows < 2 || len(heights[0]) < 2 {
		return nil, spatialmath.NewConfigurationError("heightfield", "need at least 2x2 heights")
	}
	cols := len(heights[0])
	grid := make([][]float64, rows)
	for i, row := range heights {
		if len(row) != cols {
			return nil, spatialmath.NewConfigurationError("heightfield", "row %d has %d heights, expected %d", i, len(row), cols)
		}
		if !utils.IsFinite(row...) {
			return nil, spatialmath.NewConfigurationError("heightfield", "row %d has non-finite heights", i)
		}
		grid[i] = append([]float64(nil), row...)
	}

	hf := &HeightField{heights: grid, scale: scale}
	triangles := make([]*Triangle, 0, 2*(rows-1)*(cols-1))
	for i := 0; i < rows-1; i++ {
		for j := 0; j < cols-1; j++ {
			p00, p01 := hf.point(i, j), hf.point(i, j+1)
			p10, p11 := hf.point(i+1, j), hf.point(i+1, j+1)
			t1, err := NewTriangle(p00, p01, p11)
			if err != nil {
				return nil, err
			}
			t2, err := NewTriangle(p00, p11, p10)
			if err != nil {
				return nil, err
			}
			triangles = append(triangles, t1, t2)
		}
	}
	hf.triangleSet = newTriangleSet(triangles)
	return hf, nil
}

// point returns the local position of grid point (i, j).
func (hf *HeightField) point(i, j int) r3.Vector {
	rows, cols := len(hf.heights), len(hf.heights[0])
	return r3.Vector{
		X: (float64(j)/float64(cols-1) - 0.5) * hf.scale.X,
		Y: (float64(i)/float64(rows-1) - 0.5) * hf.scale.Y,
		Z: hf.heights[i][j] * hf.scale.Z,
	}
}

// Rows returns the number of grid rows.
func (hf *HeightField) Rows() int { return len(hf.heights) }

// Cols returns the number of grid columns.
func (hf *HeightField) Cols() int { return len(hf.heights[0]) }

// Heights returns the unscaled height grid.
func (hf *HeightField) Heights() [][]float64 { return hf.heights }

// Scale returns the grid scale.
func (hf *HeightField) Scale() r3.Vector { return hf.scale }

// Kind returns KindHeightField.
func (hf *HeightField) Kind() Kind { return KindHeightField }

func (hf *HeightField) String() string {
	return fmt.Sprintf("Type: HeightField | Grid: %dx%d", hf.Rows(), hf.Cols())
}

// MarshalJSON serializes the height field as a ShapeConfig.
func (hf *HeightField) MarshalJSON() ([]byte, error) {
	config, err := NewShapeConfig(hf)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// CastLocalRay returns the first cell triangle hit.
func (hf *HeightField) CastLocalRay(ray spatialmath.Ray, maxTOI float64, solid bool) (RayIntersection, bool) {
	return castComposite(hf, ray, maxTOI, solid)
}
