package priority

import "errors"

// ErrInvalidParams is returned when the thresholds are not strictly increasing.
var ErrInvalidParams = errors.New("immediate threshold must be positive and below the medium threshold")

// Params defines the deadline thresholds, in hours, that separate the tiers
type Params struct {
	// A deadline at most ImmediateHours away is immediate.
	ImmediateHours float64

	// A deadline at most MediumHours away (and beyond ImmediateHours) is medium.
	MediumHours float64
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	ImmediateHours float64
	MediumHours    float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		ImmediateHours: 8,
		MediumHours:    32,
	}
}

// NewParams creates a new Params instance with custom configuration.
// Zero values keep the defaults.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if config.ImmediateHours > 0 {
		params.ImmediateHours = config.ImmediateHours
	}
	if config.MediumHours > 0 {
		params.MediumHours = config.MediumHours
	}

	if params.ImmediateHours >= params.MediumHours {
		return nil, ErrInvalidParams
	}

	return params, nil
}
