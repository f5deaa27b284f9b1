package quantize

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownMode is returned by ParseMode for values outside the catalogue.
	ErrUnknownMode = errors.New("unknown quantize mode")
	// ErrUnknownSwing is returned by ParseSwing for values outside the catalogue.
	ErrUnknownSwing = errors.New("unknown swing amount")
)

// Mode is a quantization mode. The set of modes is closed: every value is one of
// StraightMode, SwingMode, TripletMode or OffMode.
type Mode interface {
	// Value is the wire form, e.g. "1/16" or "1/8+swing".
	Value() string
	// Label is a short human readable name.
	Label() string
	Description() string

	// beatPoints appends the grid points owned by the beat at index idx, time b.
	beatPoints(dst []GridPoint, idx int, b, interval, swingRatio float64) []GridPoint
}

// StraightMode divides every beat into Subdivision equal parts (1, 2 or 4).
type StraightMode struct {
	Subdivision int
}

// SwingMode delays every odd subdivision toward the next even one by the swing ratio.
type SwingMode struct {
	Subdivision int
}

// TripletMode places three evenly spaced points across Beats beats (1 for eighth
// triplets, 2 for quarter triplets).
type TripletMode struct {
	Beats int
}

// OffMode disables quantization; its grid is empty.
type OffMode struct{}

var (
	Quarter        Mode = StraightMode{Subdivision: 1}
	Eighth         Mode = StraightMode{Subdivision: 2}
	Sixteenth      Mode = StraightMode{Subdivision: 4}
	QuarterSwing   Mode = SwingMode{Subdivision: 1}
	EighthSwing    Mode = SwingMode{Subdivision: 2}
	SixteenthSwing Mode = SwingMode{Subdivision: 4}
	TripletQuarter Mode = TripletMode{Beats: 2}
	TripletEighth  Mode = TripletMode{Beats: 1}
	Off            Mode = OffMode{}
)

// Modes lists every supported mode in catalogue order.
func Modes() []Mode {
	return []Mode{Quarter, Eighth, Sixteenth, QuarterSwing, EighthSwing, SixteenthSwing, TripletQuarter, TripletEighth, Off}
}

// ParseMode maps a wire value such as "1/16" to its Mode.
func ParseMode(value string) (Mode, error) {
	v := strings.TrimSpace(value)
	for _, m := range Modes() {
		if m.Value() == v {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, value)
}

func noteName(subdivision int) (value, label string) {
	switch subdivision {
	case 1:
		return "1/4", "Quarter Notes"
	case 2:
		return "1/8", "Eighth Notes"
	case 4:
		return "1/16", "Sixteenth Notes"
	default:
		return fmt.Sprintf("1/%d", subdivision*4), fmt.Sprintf("1/%d Notes", subdivision*4)
	}
}

func (m StraightMode) Value() string {
	v, _ := noteName(m.Subdivision)
	return v
}

func (m StraightMode) Label() string {
	_, l := noteName(m.Subdivision)
	return l
}

func (m StraightMode) Description() string {
	switch m.Subdivision {
	case 1:
		return "Align to beat positions"
	case 2:
		return "Align to beat and off-beat positions"
	default:
		return "Align to fine subdivisions"
	}
}

func (m SwingMode) Value() string {
	v, _ := noteName(m.Subdivision)
	return v + "+swing"
}

func (m SwingMode) Label() string {
	_, l := noteName(m.Subdivision)
	return l + " + Swing"
}

func (m SwingMode) Description() string {
	_, l := noteName(m.Subdivision)
	return l + " with swing feel"
}

func (m TripletMode) Value() string {
	if m.Beats == 2 {
		return "1/4T"
	}
	return "1/8T"
}

func (m TripletMode) Label() string {
	if m.Beats == 2 {
		return "Quarter Triplets"
	}
	return "Eighth Triplets"
}

func (m TripletMode) Description() string {
	if m.Beats == 2 {
		return "Quarter note triplets"
	}
	return "Eighth note triplets"
}

func (OffMode) Value() string       { return "off" }
func (OffMode) Label() string       { return "Off Grid" }
func (OffMode) Description() string { return "No quantization" }

// SwingAmount is a named swing intensity.
type SwingAmount string

const (
	SwingLight  SwingAmount = "light"
	SwingMedium SwingAmount = "medium"
	SwingHeavy  SwingAmount = "heavy"
	SwingCustom SwingAmount = "custom"
)

var swingRatios = map[SwingAmount]float64{
	SwingLight:  0.55,
	SwingMedium: 0.60,
	SwingHeavy:  0.67,
}

// ParseSwing maps "light", "medium", "heavy" or "custom" to a SwingAmount.
func ParseSwing(value string) (SwingAmount, error) {
	s := SwingAmount(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case SwingLight, SwingMedium, SwingHeavy, SwingCustom:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSwing, value)
}

// Ratio resolves the amount to a swing ratio. custom is used only for SwingCustom.
func (s SwingAmount) Ratio(custom float64) float64 {
	if r, ok := swingRatios[s]; ok {
		return r
	}
	return custom
}

// Label is the display name of the preset.
func (s SwingAmount) Label() string {
	switch s {
	case SwingLight:
		return "Light Swing"
	case SwingMedium:
		return "Medium Swing"
	case SwingHeavy:
		return "Heavy Swing"
	default:
		return "Custom"
	}
}
