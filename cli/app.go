// Package cli contains the collide command line, which runs collision queries over scene files.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	commonpb "go.viam.com/api/common/v1"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/collide/broadphase"
	"go.viam.com/collide/collision"
	"go.viam.com/collide/collision/toi"
	"go.viam.com/collide/logging"
	"go.viam.com/collide/protoutils"
	"go.viam.com/collide/spatialmath"
)

const (
	flagDebug      = "debug"
	flagLogLevel   = "log-level"
	flagWorkers    = "workers"
	flagPrediction = "prediction"
	flagIterations = "iterations"
	flagOutput     = "output"
	flagDelimited  = "delimited"
	flagFrame      = "frame"
)

// NewApp returns the collide application writing its results to out.
func NewApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:            "collide",
		Usage:           "run collision queries over scene files",
		HideHelpCommand: true,
		Writer:          out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "minimum level of logs written to stderr: debug, info, warn or error",
				Value: "warn",
			},
			&cli.IntFlag{
				Name:  flagWorkers,
				Usage: "number of narrow phase workers, 0 for one per CPU",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "pairs",
				Usage:     "run one pipeline step and print every candidate pair",
				ArgsUsage: "<scene.json>",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  flagPrediction,
						Usage: "override the prediction distance of the scene",
						Value: -1,
					},
				},
				Action: PairsAction,
			},
			{
				Name:      "query",
				Usage:     "run every query between two objects",
				ArgsUsage: "<scene.json> <object> <object>",
				Action:    QueryAction,
			},
			{
				Name:      "toi",
				Usage:     "compute the time of impact of every pair of objects from their velocities",
				ArgsUsage: "<scene.json>",
				Action:    TOIAction,
			},
			{
				Name:      "bench",
				Usage:     "time repeated pipeline steps",
				ArgsUsage: "<scene.json>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagIterations,
						Usage: "number of steps",
						Value: 100,
					},
				},
				Action: BenchAction,
			},
			{
				Name:      "export",
				Usage:     "convert a scene to common geometry protos",
				ArgsUsage: "<scene.json>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagOutput,
						Aliases: []string{"o"},
						Usage:   "write to `FILE` instead of stdout",
					},
					&cli.BoolFlag{
						Name:  flagDelimited,
						Usage: "write size delimited binary geometries instead of JSON",
					},
					&cli.StringFlag{
						Name:  flagFrame,
						Usage: "reference frame of the exported geometries",
						Value: "world",
					},
				},
				Action: ExportAction,
			},
		},
	}
}

type runner struct {
	c      *cli.Context
	logger logging.Logger
	scene  *Scene
}

func newRunner(c *cli.Context, numArgs int) (*runner, error) {
	if c.Args().Len() != numArgs {
		return nil, errors.Errorf("expected %d arguments, got %d", numArgs, c.Args().Len())
	}
	level, err := logging.LevelFromString(c.String(flagLogLevel))
	if err != nil {
		return nil, err
	}
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	logger := logging.NewWriterLogger("collide", level, c.App.ErrWriter)
	scene, err := LoadScene(c.Args().First())
	if err != nil {
		return nil, err
	}
	if c.IsSet(flagWorkers) {
		scene.Options.Workers = c.Int(flagWorkers)
	}
	logger.Debugw("loaded scene", "path", c.Args().First(), "objects", len(scene.Objects))
	return &runner{c: c, logger: logger, scene: scene}, nil
}

func (r *runner) dispatcher() (*collision.Dispatcher, error) {
	return collision.NewDispatcher(nil, r.scene.Options, r.logger.Sublogger("dispatcher"))
}

// pipeline loads every object into a new broad phase.
func (r *runner) pipeline() (*collision.Pipeline, []broadphase.ProxyID, error) {
	d, err := r.dispatcher()
	if err != nil {
		return nil, nil, err
	}
	bp, err := broadphase.New(r.scene.BroadPhase, r.logger.Sublogger("broadphase"))
	if err != nil {
		return nil, nil, err
	}
	entries := make([]broadphase.Entry, len(r.scene.Objects))
	for i, o := range r.scene.Objects {
		entries[i] = broadphase.Entry{Shape: o.Shape, Pose: o.Pose}
	}
	ids, err := bp.InsertBatch(r.c.Context, entries)
	if err != nil {
		return nil, nil, err
	}
	return collision.NewPipeline(bp, d, r.logger.Sublogger("pipeline")), ids, nil
}

func (r *runner) name(id broadphase.ProxyID) string {
	// proxies are inserted in scene order starting at 0
	return r.scene.Objects[int(id)].Name
}

func (r *runner) render(t table.Writer) {
	t.SetOutputMirror(r.c.App.Writer)
	t.Render()
}

func formatVector(v r3.Vector) string {
	return fmt.Sprintf("(%.4g, %.4g, %.4g)", v.X, v.Y, v.Z)
}

// PairsAction runs one pipeline step over the scene.
func PairsAction(c *cli.Context) error {
	r, err := newRunner(c, 1)
	if err != nil {
		return err
	}
	if p := c.Float64(flagPrediction); p >= 0 {
		r.scene.Options.Prediction = p
	}
	pipeline, _, err := r.pipeline()
	if err != nil {
		return err
	}
	results, err := pipeline.Step(c.Context)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Object 1", "Object 2", "Status", "Distance", "Normal", "Points"})
	for i, res := range results {
		row := table.Row{i + 1, r.name(res.Pair.A), r.name(res.Pair.B), res.Pair.Status.String(), "", "", ""}
		if res.HasContact {
			points := 0
			for _, m := range res.Manifolds {
				points += m.NumPoints
			}
			row[4] = fmt.Sprintf("%.6g", res.Contact.Distance)
			row[5] = formatVector(res.Contact.Normal)
			row[6] = points
		}
		t.AppendRow(row)
	}
	r.render(t)
	return nil
}

// QueryAction runs every query between two named objects.
func QueryAction(c *cli.Context) error {
	r, err := newRunner(c, 3)
	if err != nil {
		return err
	}
	o1, err := r.scene.Object(c.Args().Get(1))
	if err != nil {
		return err
	}
	o2, err := r.scene.Object(c.Args().Get(2))
	if err != nil {
		return err
	}
	d, err := r.dispatcher()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Query", "Result"})
	dist, err := d.Distance(o1.Pose, o1.Shape, o2.Pose, o2.Shape)
	if err != nil {
		return err
	}
	t.AppendRow(table.Row{"distance", fmt.Sprintf("%.6g", dist)})
	hit, err := d.Intersects(o1.Pose, o1.Shape, o2.Pose, o2.Shape)
	if err != nil {
		return err
	}
	t.AppendRow(table.Row{"intersects", hit})
	contact, ok, err := d.Contact(o1.Pose, o1.Shape, o2.Pose, o2.Shape, r.scene.Options.Prediction)
	if err != nil {
		return err
	}
	if ok {
		t.AppendRow(table.Row{"contact", fmt.Sprintf("distance %.6g normal %s between %s and %s",
			contact.Distance, formatVector(contact.Normal), formatVector(contact.Point1), formatVector(contact.Point2))})
	} else {
		t.AppendRow(table.Row{"contact", "none"})
	}
	manifolds, err := d.ContactManifolds(o1.Pose, o1.Shape, o2.Pose, o2.Shape, r.scene.Options.Prediction)
	if err != nil {
		return err
	}
	for _, m := range manifolds {
		t.AppendRow(table.Row{"manifold", m.String()})
	}
	res, err := d.TimeOfImpact(o1.Pose, o1.Velocity, o1.Shape, o2.Pose, o2.Velocity, o2.Shape)
	if err != nil {
		return err
	}
	t.AppendRow(table.Row{"time of impact", fmt.Sprintf("%v at %.6g", res.Status, res.Time)})
	r.render(t)
	return nil
}

type impact struct {
	name1, name2 string
	res          toi.Result
	world        r3.Vector
}

// TOIAction computes the time of impact of every pair of objects that moves relative to each other.
func TOIAction(c *cli.Context) error {
	r, err := newRunner(c, 1)
	if err != nil {
		return err
	}
	d, err := r.dispatcher()
	if err != nil {
		return err
	}
	var impacts []impact
	objects := r.scene.Objects
	for i := 0; i < len(objects); i++ {
		for j := i + 1; j < len(objects); j++ {
			o1, o2 := objects[i], objects[j]
			if o1.Velocity == o2.Velocity {
				continue
			}
			res, err := d.TimeOfImpact(o1.Pose, o1.Velocity, o1.Shape, o2.Pose, o2.Velocity, o2.Shape)
			if collision.IsUnsupportedShapePair(err) {
				r.logger.Debugw("skipping unsupported pair", "object1", o1.Name, "object2", o2.Name)
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "%s and %s", o1.Name, o2.Name)
			}
			if res.Status == toi.NoHit {
				continue
			}
			// witness of the first object at the time of impact
			at := spatialmath.NewPose(o1.Pose.Point().Add(o1.Velocity.Mul(res.Time)), o1.Pose.Orientation())
			impacts = append(impacts, impact{o1.Name, o2.Name, res, spatialmath.TransformPoint(at, res.Witness1)})
		}
	}
	sort.SliceStable(impacts, func(i, j int) bool { return impacts[i].res.Time < impacts[j].res.Time })

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Object 1", "Object 2", "Status", "Time", "Point"})
	for _, im := range impacts {
		t.AppendRow(table.Row{im.name1, im.name2, im.res.Status.String(), fmt.Sprintf("%.6g", im.res.Time), formatVector(im.world)})
	}
	r.render(t)
	return nil
}

// BenchAction times repeated pipeline steps over the scene. Steps after the first reuse the results of
// pairs whose bounds did not change.
func BenchAction(c *cli.Context) error {
	r, err := newRunner(c, 1)
	if err != nil {
		return err
	}
	iterations := c.Int(flagIterations)
	if iterations <= 0 {
		return errors.Errorf("iterations must be positive, got %d", iterations)
	}
	pipeline, _, err := r.pipeline()
	if err != nil {
		return err
	}

	durations := make([]float64, 0, iterations)
	pairs := 0
	for i := 0; i < iterations; i++ {
		start := time.Now()
		results, err := pipeline.Step(c.Context)
		if err != nil {
			return err
		}
		durations = append(durations, float64(time.Since(start).Microseconds()))
		pairs = len(results)
	}

	data := stats.LoadRawData(durations)
	mean, err := stats.Mean(data)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Statistic", "Step time (us)"})
	t.AppendRow(table.Row{"pairs", pairs})
	t.AppendRow(table.Row{"min", floats.Min(durations)})
	t.AppendRow(table.Row{"mean", fmt.Sprintf("%.1f", mean)})
	for _, pct := range []float64{50, 90, 99} {
		v, err := stats.Percentile(data, pct)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{fmt.Sprintf("p%.0f", pct), fmt.Sprintf("%.1f", v)})
	}
	t.AppendRow(table.Row{"max", floats.Max(durations)})
	r.render(t)
	return nil
}

// ExportAction writes the scene as common geometry protos.
func ExportAction(c *cli.Context) error {
	r, err := newRunner(c, 1)
	if err != nil {
		return err
	}
	out := c.App.Writer
	if path := c.String(flagOutput); path != "" {
		//nolint:gosec
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				r.logger.Errorw("cannot close export file", "path", path, "error", err)
			}
		}()
		out = f
	}

	var geometries []*commonpb.Geometry
	for _, o := range r.scene.Objects {
		geoms, err := protoutils.ShapesToProtobuf(o.Shape, o.Pose, o.Name)
		if err != nil {
			return errors.Wrapf(err, "object %s", o.Name)
		}
		geometries = append(geometries, geoms...)
	}

	if c.Bool(flagDelimited) {
		writer := protoutils.NewDelimitedProtoWriter[*commonpb.Geometry](out)
		for _, g := range geometries {
			if err := writer.Append(g); err != nil {
				return err
			}
		}
		return nil
	}
	data, err := protoutils.MarshalScene(c.String(flagFrame), geometries)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
