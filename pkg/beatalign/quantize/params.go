package quantize

import "fmt"

// Params are caller supplied overrides for Options, in the request format used
// by the annotation tool. Zero values and nil pointers leave the base untouched.
type Params struct {
	Mode            string   `json:"quantizeMode,omitempty" yaml:"mode"`
	Swing           string   `json:"swingAmount,omitempty" yaml:"swing"`
	CustomSwing     *float64 `json:"customSwing,omitempty" yaml:"custom_swing"`
	Tolerance       *float64 `json:"tolerance,omitempty" yaml:"tolerance"`
	PreserveOffGrid *bool    `json:"preserveOffBeat,omitempty" yaml:"preserve_off_beat"`
	MeasureOrigin   *float64 `json:"measureOrigin,omitempty" yaml:"measure_origin"`
}

// Apply overlays p on o and validates the result.
// A custom swing ratio without a swing amount is taken as a custom preset.
func (o Options) Apply(p Params) (Options, error) {
	if p.Mode != "" {
		m, err := ParseMode(p.Mode)
		if err != nil {
			return o, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		o.Mode = m
	}

	switch {
	case p.Swing != "":
		s, err := ParseSwing(p.Swing)
		if err != nil {
			return o, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		custom := o.SwingRatio
		if p.CustomSwing != nil {
			custom = *p.CustomSwing
		}
		o.SwingRatio = s.Ratio(custom)
	case p.CustomSwing != nil:
		o.SwingRatio = *p.CustomSwing
	}

	if p.Tolerance != nil {
		o.Tolerance = *p.Tolerance
	}
	if p.PreserveOffGrid != nil {
		o.PreserveOffGrid = *p.PreserveOffGrid
	}
	if p.MeasureOrigin != nil {
		o.MeasureOrigin = *p.MeasureOrigin
	}
	return o, o.Validate()
}
