package collision

import (
	"math"
	"runtime"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/collide/collision/epa"
	"go.viam.com/collide/collision/gjk"
	"go.viam.com/collide/collision/manifold"
	"go.viam.com/collide/collision/toi"
)

// Options are the tunables shared by every query.
type Options struct {
	// Prediction is the distance under which separated shapes still produce contacts in a pipeline step.
	Prediction float64         `json:"prediction"`
	GJK        gjk.Config      `json:"gjk"`
	EPA        epa.Config      `json:"epa"`
	Manifold   manifold.Config `json:"manifold"`
	TOI        toi.Config      `json:"toi"`
	// Workers bounds the narrow phase goroutines of a pipeline step. 0 means GOMAXPROCS.
	Workers int `json:"workers"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		GJK:      gjk.DefaultConfig(),
		EPA:      epa.DefaultConfig(),
		Manifold: manifold.DefaultConfig(),
		TOI:      toi.DefaultConfig(),
	}
}

// Validate reports every invalid field.
func (o *Options) Validate() error {
	var err error
	if !(o.Prediction >= 0) || math.IsInf(o.Prediction, 1) {
		err = multierr.Append(err, errors.Errorf("prediction must be non-negative and finite, got %v", o.Prediction))
	}
	if o.Workers < 0 {
		err = multierr.Append(err, errors.Errorf("workers must not be negative, got %d", o.Workers))
	}
	err = multierr.Append(err, o.GJK.Validate())
	err = multierr.Append(err, o.EPA.Validate())
	err = multierr.Append(err, o.Manifold.Validate())
	err = multierr.Append(err, o.TOI.Validate())
	return err
}

func (o *Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// DecodeOptions decodes attributes on top of DefaultOptions and validates the result. Keys follow the
// json tags, e.g. {"gjk": {"max_iterations": 32}, "manifold": {"tie_break_epsilon": 0.01}}.
func DecodeOptions(attributes map[string]interface{}) (Options, error) {
	opts := DefaultOptions()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &opts,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return Options{}, errors.Wrap(err, "cannot decode collision options")
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
