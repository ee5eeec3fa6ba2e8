package cli

import (
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/multierr"

	"go.viam.com/collide/broadphase"
	"go.viam.com/collide/collision"
	"go.viam.com/collide/shape"
	"go.viam.com/collide/spatialmath"
)

// ObjectConfig describes one object of a scene file.
type ObjectConfig struct {
	Name        string                                `json:"name"`
	Translation r3.Vector                             `json:"translation"`
	Orientation *spatialmath.OrientationVectorDegrees `json:"orientation,omitempty"`
	// Velocity is the linear velocity used by time of impact queries.
	Velocity r3.Vector              `json:"velocity"`
	Shape    map[string]interface{} `json:"shape"`
}

// SceneConfig is the content of a scene file.
type SceneConfig struct {
	Options    map[string]interface{} `json:"options,omitempty"`
	BroadPhase map[string]interface{} `json:"broadphase,omitempty"`
	Objects    []ObjectConfig         `json:"objects"`
}

// Object is a parsed scene object.
type Object struct {
	Name     string
	Shape    shape.Shape
	Pose     spatialmath.Pose
	Velocity r3.Vector
}

// Scene is a parsed scene file.
type Scene struct {
	Options    collision.Options
	BroadPhase broadphase.Config
	Objects    []Object
}

// LoadScene reads and parses a scene file.
func LoadScene(path string) (*Scene, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScene(data)
}

// ParseScene parses the JSON5 content of a scene file, so comments and trailing commas are allowed.
// Every invalid object is reported.
func ParseScene(data []byte) (*Scene, error) {
	var cfg SceneConfig
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse scene")
	}

	opts, err := collision.DecodeOptions(cfg.Options)
	if err != nil {
		return nil, err
	}
	bpCfg, err := broadphase.DecodeConfig(cfg.BroadPhase)
	if err != nil {
		return nil, err
	}

	names := lo.Map(cfg.Objects, func(o ObjectConfig, _ int) string { return o.Name })
	for _, dup := range lo.FindDuplicates(names) {
		err = multierr.Append(err, errors.Errorf("object name %q is used more than once", dup))
	}
	scene := &Scene{Options: opts, BroadPhase: bpCfg}
	for i, o := range cfg.Objects {
		obj, objErr := o.parse()
		if objErr != nil {
			err = multierr.Append(err, errors.Wrapf(objErr, "object %d (%s)", i, o.Name))
			continue
		}
		scene.Objects = append(scene.Objects, obj)
	}
	if err != nil {
		return nil, err
	}
	return scene, nil
}

func (o ObjectConfig) parse() (Object, error) {
	if o.Name == "" {
		return Object{}, errors.New("object has no name")
	}
	shapeCfg, err := shape.DecodeShapeConfig(o.Shape)
	if err != nil {
		return Object{}, err
	}
	s, err := shapeCfg.ParseConfig()
	if err != nil {
		return Object{}, err
	}
	pose := spatialmath.NewPoseFromPoint(o.Translation)
	if o.Orientation != nil {
		pose = spatialmath.NewPose(o.Translation, o.Orientation)
	}
	if !spatialmath.PoseIsFinite(pose) {
		return Object{}, spatialmath.NewNonFinitePoseError()
	}
	return Object{Name: o.Name, Shape: s, Pose: pose, Velocity: o.Velocity}, nil
}

// Object returns the object called name.
func (s *Scene) Object(name string) (Object, error) {
	obj, ok := lo.Find(s.Objects, func(o Object) bool { return o.Name == name })
	if !ok {
		return Object{}, errors.Errorf("no object named %q", name)
	}
	return obj, nil
}
