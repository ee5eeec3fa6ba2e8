// Package protoutils converts shapes and poses to and from the common geometry protos.
package protoutils

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	commonpb "go.viam.com/api/common/v1"
	"google.golang.org/protobuf/encoding/protojson"

	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

// MeshContentType is the content type of meshes written by ShapeToProtobuf.
const MeshContentType = "ply"

// PoseToProtobuf converts a pose to its proto counterpart, with the orientation as an orientation vector
// in degrees.
func PoseToProtobuf(pose spatialmath.Pose) *commonpb.Pose {
	pt := pose.Point()
	ov := pose.Orientation().OrientationVectorDegrees()
	return &commonpb.Pose{X: pt.X, Y: pt.Y, Z: pt.Z, OX: ov.OX, OY: ov.OY, OZ: ov.OZ, Theta: ov.Theta}
}

// NewPoseFromProtobuf converts a proto pose. A nil pose is the zero pose.
func NewPoseFromProtobuf(pose *commonpb.Pose) spatialmath.Pose {
	if pose == nil {
		return spatialmath.NewZeroPose()
	}
	return spatialmath.NewPose(
		r3.Vector{X: pose.GetX(), Y: pose.GetY(), Z: pose.GetZ()},
		&spatialmath.OrientationVectorDegrees{OX: pose.GetOX(), OY: pose.GetOY(), OZ: pose.GetOZ(), Theta: pose.GetTheta()},
	)
}

// ShapeToProtobuf converts a shape placed at pose. Balls, cuboids, capsules and triangle meshes have a
// proto counterpart; compounds are flattened by ShapesToProtobuf.
func ShapeToProtobuf(s shape.Shape, pose spatialmath.Pose, label string) (*commonpb.Geometry, error) {
	g := &commonpb.Geometry{Center: PoseToProtobuf(pose), Label: label}
	switch v := s.(type) {
	case *shape.Ball:
		g.GeometryType = &commonpb.Geometry_Sphere{Sphere: &commonpb.Sphere{RadiusMm: v.Radius()}}
	case *shape.Cuboid:
		dims := v.HalfExtents().Mul(2)
		g.GeometryType = &commonpb.Geometry_Box{
			Box: &commonpb.RectangularPrism{DimsMm: &commonpb.Vector3{X: dims.X, Y: dims.Y, Z: dims.Z}},
		}
	case *shape.Capsule:
		g.GeometryType = &commonpb.Geometry_Capsule{Capsule: &commonpb.Capsule{RadiusMm: v.Radius(), LengthMm: v.Length()}}
	case *shape.TriMesh:
		var buf bytes.Buffer
		if err := writePLY(&buf, v.Vertices(), v.Indices()); err != nil {
			return nil, err
		}
		g.GeometryType = &commonpb.Geometry_Mesh{Mesh: &commonpb.Mesh{ContentType: MeshContentType, Mesh: buf.Bytes()}}
	default:
		return nil, errors.Errorf("shape of kind %v has no proto geometry", s.Kind())
	}
	return g, nil
}

// ShapesToProtobuf converts a shape, expanding compounds into one geometry per part. Part labels are the
// label followed by the part index.
func ShapesToProtobuf(s shape.Shape, pose spatialmath.Pose, label string) ([]*commonpb.Geometry, error) {
	compound, ok := s.(*shape.Compound)
	if !ok {
		g, err := ShapeToProtobuf(s, pose, label)
		if err != nil {
			return nil, err
		}
		return []*commonpb.Geometry{g}, nil
	}
	var out []*commonpb.Geometry
	for i := 0; i < compound.NumParts(); i++ {
		partPose, part := compound.Part(i)
		geoms, err := ShapesToProtobuf(part, spatialmath.Compose(pose, partPose), fmt.Sprintf("%s/%d", label, i))
		if err != nil {
			return nil, errors.Wrapf(err, "part %d", i)
		}
		out = append(out, geoms...)
	}
	return out, nil
}

// NewShapeFromProtobuf converts a proto geometry to a shape and its pose.
func NewShapeFromProtobuf(g *commonpb.Geometry) (shape.Shape, spatialmath.Pose, error) {
	if g == nil {
		return nil, nil, errors.New("geometry must not be nil")
	}
	pose := NewPoseFromProtobuf(g.GetCenter())
	var (
		s   shape.Shape
		err error
	)
	switch {
	case g.GetSphere() != nil:
		s, err = shape.NewBall(g.GetSphere().GetRadiusMm())
	case g.GetBox() != nil:
		dims := g.GetBox().GetDimsMm()
		s, err = shape.NewCuboidFromDims(r3.Vector{X: dims.GetX(), Y: dims.GetY(), Z: dims.GetZ()})
	case g.GetCapsule() != nil:
		s, err = shape.NewCapsule(g.GetCapsule().GetRadiusMm(), g.GetCapsule().GetLengthMm())
	case g.GetMesh() != nil:
		s, err = meshFromProtobuf(g.GetMesh())
	default:
		return nil, nil, errors.Errorf("unsupported geometry type %T", g.GetGeometryType())
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot convert geometry %q", g.GetLabel())
	}
	return s, pose, nil
}

func meshFromProtobuf(m *commonpb.Mesh) (*shape.TriMesh, error) {
	if m.GetContentType() != MeshContentType {
		return nil, errors.Errorf("unsupported mesh content type %q", m.GetContentType())
	}
	vertices, indices, err := readPLY(bytes.NewReader(m.GetMesh()))
	if err != nil {
		return nil, err
	}
	return shape.NewTriMesh(vertices, indices)
}

// MarshalScene encodes geometries placed in frame as JSON.
func MarshalScene(frame string, geometries []*commonpb.Geometry) ([]byte, error) {
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(&commonpb.GeometriesInFrame{
		ReferenceFrame: frame,
		Geometries:     geometries,
	})
}

// UnmarshalScene decodes the output of MarshalScene.
func UnmarshalScene(data []byte) (*commonpb.GeometriesInFrame, error) {
	scene := &commonpb.GeometriesInFrame{}
	if err := protojson.Unmarshal(data, scene); err != nil {
		return nil, errors.Wrap(err, "cannot decode scene")
	}
	return scene, nil
}

func writePLY(w io.Writer, vertices []r3.Vector, indices [][3]int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat ascii 1.0\nelement vertex %d\n", len(vertices))
	fmt.Fprint(bw, "property double x\nproperty double y\nproperty double z\n")
	fmt.Fprintf(bw, "element face %d\nproperty list uchar int vertex_indices\nend_header\n", len(indices))
	for _, v := range vertices {
		fmt.Fprintf(bw, "%s %s %s\n",
			strconv.FormatFloat(v.X, 'g', -1, 64), strconv.FormatFloat(v.Y, 'g', -1, 64), strconv.FormatFloat(v.Z, 'g', -1, 64))
	}
	for _, tri := range indices {
		fmt.Fprintf(bw, "3 %d %d %d\n", tri[0], tri[1], tri[2])
	}
	return bw.Flush()
}

// readPLY reads ascii PLY files with a vertex element and a face element of triangles.
func readPLY(r io.Reader) (vertices []r3.Vector, indices [][3]int, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot read ply")
	}
	if err := checkPLYHeader(data); err != nil {
		return nil, nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			vertices, indices, err = nil, nil, errors.Errorf("invalid ply: %v", rec)
		}
	}()
	ply := goply.New(bytes.NewReader(data))

	for i, elem := range ply.Elements("vertex") {
		var xyz [3]float64
		for k, name := range []string{"x", "y", "z"} {
			v, ok := plyFloat(elem.Property(name))
			if !ok {
				return nil, nil, errors.Errorf("vertex %d has no %s coordinate", i, name)
			}
			xyz[k] = v
		}
		vertices = append(vertices, r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	for i, elem := range ply.Elements("face") {
		list, ok := elem.Property("vertex_indices").([]interface{})
		if !ok || len(list) != 3 {
			return nil, nil, errors.Errorf("face %d is not a triangle", i)
		}
		var tri [3]int
		for k, v := range list {
			idx, ok := plyIndex(v)
			if !ok {
				return nil, nil, errors.Errorf("face %d has a non integer index", i)
			}
			tri[k] = idx
		}
		indices = append(indices, tri)
	}
	return vertices, indices, nil
}

// checkPLYHeader rejects element counts the body cannot hold, before the decoder allocates for them.
func checkPLYHeader(data []byte) error {
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "ply" {
		return errors.New("missing ply header")
	}
	declared := 0
	for i, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "element":
			if len(fields) != 3 {
				return errors.Errorf("malformed ply element %q", line)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				return errors.Wrapf(err, "bad %s count", fields[1])
			}
			if n < 0 {
				return errors.Errorf("negative %s count %d", fields[1], n)
			}
			declared += n
		case "end_header":
			if body := len(lines) - i - 2; declared > body {
				return errors.Errorf("ply declares %d elements but has %d body lines", declared, body)
			}
			return nil
		}
	}
	return errors.New("ply header is not terminated")
}

func plyFloat(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	}
	return 0, false
}

func plyIndex(v interface{}) (int, bool) {
	switch i := v.(type) {
	case int8:
		return int(i), true
	case uint8:
		return int(i), true
	case int16:
		return int(i), true
	case uint16:
		return int(i), true
	case int32:
		return int(i), true
	case uint32:
		return int(i), true
	}
	return 0, false
}
