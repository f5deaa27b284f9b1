package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/utils"
)

// alignFlags are the quantize parameters shared by every aligning command.
// Only flags set on the command line override the configured defaults.
type alignFlags struct {
	mode        string
	swing       string
	customSwing float64
	tolerance   float64
	preserve    bool
	origin      float64
}

func (f *alignFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.mode, "mode", "m", "", "Quantize mode: 1/4, 1/8, 1/16, 1/4+swing, 1/8+swing, 1/16+swing, 1/4T, 1/8T, off")
	fs.StringVar(&f.swing, "swing", "", "Swing preset: light, medium, heavy, custom")
	fs.Float64Var(&f.customSwing, "custom-swing", 0.6, "Swing ratio for the custom preset (0.5-1.0)")
	fs.Float64VarP(&f.tolerance, "tolerance", "t", 0.25, "Snap window as a fraction of one beat")
	fs.BoolVar(&f.preserve, "preserve-off-beat", true, "Keep annotations that cannot be snapped")
	fs.Float64Var(&f.origin, "origin", 0, "Measure origin in seconds (first downbeat)")
}

func (f *alignFlags) params(cmd *cobra.Command) quantize.Params {
	fs := cmd.Flags()
	p := quantize.Params{Mode: f.mode, Swing: f.swing}
	if fs.Changed("custom-swing") {
		p.CustomSwing = &f.customSwing
	}
	if fs.Changed("tolerance") {
		p.Tolerance = &f.tolerance
	}
	if fs.Changed("preserve-off-beat") {
		p.PreserveOffGrid = &f.preserve
	}
	if fs.Changed("origin") {
		p.MeasureOrigin = &f.origin
	}
	return p
}

// readAnnotations loads annotations from a JSON file holding either a bare
// array or an object with an "annotations" array.
func readAnnotations(path string) ([]quantize.Event, error) {
	var raw json.RawMessage
	if err := utils.ReadJSONFile(path, &raw); err != nil {
		return nil, err
	}

	var events []quantize.Event
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("failed to decode annotations in %s: %w", path, err)
		}
		return events, nil
	}

	var wrapped struct {
		Annotations *[]quantize.Event `json:"annotations"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode annotations in %s: %w", path, err)
	}
	if wrapped.Annotations == nil {
		return nil, fmt.Errorf("%s holds neither an annotation array nor an \"annotations\" field", path)
	}
	return *wrapped.Annotations, nil
}

// readBeats loads an explicit beat list (a JSON array of seconds).
func readBeats(path string) ([]float64, error) {
	var beats []float64
	if err := utils.ReadJSONFile(path, &beats); err != nil {
		return nil, err
	}
	return beats, nil
}
