package shape

import (
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collide/spatialmath"
)

// ShapeConfig is a struct containing the configuration for a shape. Dimensions follow the constructors:
// X, Y, Z are full cuboid dimensions, R is a radius and L a length along local Z.
type ShapeConfig struct {
	Type string `json:"type,omitempty"`

	// cuboid dimensions
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	Z float64 `json:"z,omitempty"`

	// radius of balls, capsules, cylinders and cones
	R float64 `json:"r,omitempty"`
	// length of capsules, cylinders and cones
	L float64 `json:"l,omitempty"`

	// halfspace normal
	Normal *r3.Vector `json:"normal,omitempty"`

	// segment and triangle endpoints, polyhedron point cloud and mesh vertices
	Points []r3.Vector `json:"points,omitempty"`
	// mesh triangles
	Indices [][3]int `json:"indices,omitempty"`

	// heightfield grid and scale
	Heights [][]float64 `json:"heights,omitempty"`
	Scale   *r3.Vector  `json:"scale,omitempty"`

	Children []PartConfig `json:"children,omitempty"`

	Label string `json:"label,omitempty"`
}

// PartConfig places a child shape of a compound.
type PartConfig struct {
	TranslationOffset r3.Vector                             `json:"translation,omitempty"`
	OrientationOffset *spatialmath.OrientationVectorDegrees `json:"orientation,omitempty"`
	Shape             *ShapeConfig                          `json:"shape"`
}

// Pose returns the pose of the part.
func (pc *PartConfig) Pose() spatialmath.Pose {
	if pc.OrientationOffset == nil {
		return spatialmath.NewPoseFromPoint(pc.TranslationOffset)
	}
	return spatialmath.NewPose(pc.TranslationOffset, pc.OrientationOffset)
}

// NewShapeConfig returns the config describing a shape.
func NewShapeConfig(s Shape) (*ShapeConfig, error) {
	config := &ShapeConfig{Type: s.Kind().String()}
	switch v := s.(type) {
	case *Ball:
		config.R = v.Radius()
	case *Cuboid:
		dims := v.HalfExtents().Mul(2)
		config.X, config.Y, config.Z = dims.X, dims.Y, dims.Z
	case *Capsule:
		config.R, config.L = v.Radius(), v.Length()
	case *Cylinder:
		config.R, config.L = v.Radius(), v.Length()
	case *Cone:
		config.R, config.L = v.Radius(), v.Length()
	case *Segment:
		a, b := v.Endpoints()
		config.Points = []r3.Vector{a, b}
	case *Triangle:
		pts := v.Points()
		config.Points = pts[:]
	case *ConvexPolyhedron:
		config.Points = append([]r3.Vector(nil), v.Vertices()...)
	case *HalfSpace:
		n := v.Normal()
		config.Normal = &n
	case *TriMesh:
		config.Points = append([]r3.Vector(nil), v.Vertices()...)
		config.Indices = append([][3]int(nil), v.Indices()...)
	case *HeightField:
		scale := v.Scale()
		config.Heights = v.Heights()
		config.Scale = &scale
	case *Compound:
		for i := 0; i < v.NumParts(); i++ {
			pose, part := v.Part(i)
			child, err := NewShapeConfig(part)
			if err != nil {
				return nil, err
			}
			config.Children = append(config.Children, PartConfig{
				TranslationOffset: pose.Point(),
				OrientationOffset: pose.Orientation().OrientationVectorDegrees(),
				Shape:             child,
			})
		}
	default:
		return nil, errors.Errorf("cannot make a config for shape of kind %s", s.Kind())
	}
	return config, nil
}

// inferType picks a type from the parameters that are set when Type is empty.
func (config *ShapeConfig) inferType() string {
	switch {
	case len(config.Children) > 0:
		return KindCompound.String()
	case len(config.Heights) > 0:
		return KindHeightField.String()
	case len(config.Indices) > 0:
		return KindTriMesh.String()
	case config.Normal != nil:
		return KindHalfSpace.String()
	case len(config.Points) == 2:
		return KindSegment.String()
	case len(config.Points) == 3:
		return KindTriangle.String()
	case len(config.Points) > 3:
		return KindConvexPolyhedron.String()
	case config.X != 0 || config.Y != 0 || config.Z != 0:
		return KindCuboid.String()
	case config.R != 0 && config.L != 0:
		return KindCapsule.String()
	case config.R != 0:
		return KindBall.String()
	}
	return ""
}

// ParseConfig converts a ShapeConfig into the shape it describes.
func (config *ShapeConfig) ParseConfig() (Shape, error) {
	kind := strings.ToLower(config.Type)
	if kind == "" {
		kind = config.inferType()
	}
	switch kind {
	case KindBall.String(), "sphere":
		return NewBall(config.R)
	case KindCuboid.String(), "box":
		return NewCuboidFromDims(r3.Vector{X: config.X, Y: config.Y, Z: config.Z})
	case KindCapsule.String():
		return NewCapsule(config.R, config.L)
	case KindCylinder.String():
		return NewCylinder(config.R, config.L)
	case KindCone.String():
		return NewCone(config.R, config.L)
	case KindSegment.String():
		if len(config.Points) != 2 {
			return nil, spatialmath.NewConfigurationError("segment", "need 2 points, got %d", len(config.Points))
		}
		return NewSegment(config.Points[0], config.Points[1])
	case KindTriangle.String():
		if len(config.Points) != 3 {
			return nil, spatialmath.NewConfigurationError("triangle", "need 3 points, got %d", len(config.Points))
		}
		return NewTriangle(config.Points[0], config.Points[1], config.Points[2])
	case KindConvexPolyhedron.String():
		return NewConvexPolyhedron(config.Points)
	case KindHalfSpace.String():
		if config.Normal == nil {
			return nil, spatialmath.NewConfigurationError("halfspace", "missing normal")
		}
		return NewHalfSpace(*config.Normal)
	case KindTriMesh.String(), "mesh":
		return NewTriMesh(config.Points, config.Indices)
	case KindHeightField.String():
		scale := r3.Vector{X: 1, Y: 1, Z: 1}
		if config.Scale != nil {
			scale = *config.Scale
		}
		return NewHeightField(config.Heights, scale)
	case KindCompound.String():
		parts := make([]CompoundPart, 0, len(config.Children))
		for i, child := range config.Children {
			if child.Shape == nil {
				return nil, spatialmath.NewConfigurationError("compound", "child %d has no shape", i)
			}
			s, err := child.Shape.ParseConfig()
			if err != nil {
				return nil, errors.Wrapf(err, "child %d", i)
			}
			sm, ok := s.(SupportMap)
			if !ok {
				return nil, spatialmath.NewConfigurationError("compound", "child %d of kind %s is not convex", i, s.Kind())
			}
			parts = append(parts, CompoundPart{Pose: child.Pose(), Shape: sm})
		}
		return NewCompound(parts)
	case "":
		return nil, spatialmath.NewConfigurationError("shape", "cannot infer a type from the given parameters")
	default:
		return nil, spatialmath.NewConfigurationError("shape", "unknown type %q", config.Type)
	}
}

// DecodeShapeConfig decodes a generic map, such as one entry of a scene file read as JSON or YAML, into a
// ShapeConfig. Unknown keys are rejected.
func DecodeShapeConfig(attributes map[string]interface{}) (*ShapeConfig, error) {
	var config ShapeConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &config,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "cannot decode shape config")
	}
	return &config, nil
}
