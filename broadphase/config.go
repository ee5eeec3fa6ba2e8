package broadphase

import (
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Config holds the margins used to fatten proxy boxes. A proxy keeps its place in the tree while its
// tight box stays inside the fat one.
type Config struct {
	// Margin is added to every side of a tight box.
	Margin float64 `json:"margin"`
	// MarginRatio scales the bounding radius of the shape and is added on top of Margin.
	MarginRatio float64 `json:"margin_ratio"`
}

// DefaultConfig returns the margins used when none are given.
func DefaultConfig() Config {
	return Config{Margin: 0.01, MarginRatio: 0.05}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var err error
	if !(c.Margin >= 0) || math.IsInf(c.Margin, 1) {
		err = multierr.Append(err, errors.Errorf("broadphase margin must be non-negative and finite, got %v", c.Margin))
	}
	if !(c.MarginRatio >= 0) || math.IsInf(c.MarginRatio, 1) {
		err = multierr.Append(err, errors.Errorf("broadphase margin_ratio must be non-negative and finite, got %v", c.MarginRatio))
	}
	return err
}

// DecodeConfig decodes a generic map of attributes over the defaults and validates the result.
func DecodeConfig(attributes map[string]interface{}) (Config, error) {
	cfg := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return Config{}, errors.Wrap(err, "cannot decode broadphase config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) margin(radius float64) float64 {
	return c.Margin + c.MarginRatio*radius
}
