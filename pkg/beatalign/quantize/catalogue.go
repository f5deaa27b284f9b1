package quantize

// ModeOption describes one quantize mode for pickers.
type ModeOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// SwingOption describes one swing preset. Ratio is nil for the custom preset.
type SwingOption struct {
	Value string   `json:"value"`
	Label string   `json:"label"`
	Ratio *float64 `json:"ratio"`
}

// CatalogueInfo is the static list of supported modes and swing presets.
type CatalogueInfo struct {
	Modes  []ModeOption  `json:"quantization_modes"`
	Swings []SwingOption `json:"swing_amounts"`
}

// Catalogue lists every mode and swing preset in display order.
func Catalogue() CatalogueInfo {
	modes := Modes()
	info := CatalogueInfo{
		Modes:  make([]ModeOption, 0, len(modes)),
		Swings: make([]SwingOption, 0, 4),
	}
	for _, m := range modes {
		info.Modes = append(info.Modes, ModeOption{Value: m.Value(), Label: m.Label(), Description: m.Description()})
	}
	for _, s := range []SwingAmount{SwingLight, SwingMedium, SwingHeavy, SwingCustom} {
		opt := SwingOption{Value: string(s), Label: s.Label()}
		if r, ok := swingRatios[s]; ok {
			opt.Ratio = &r
		}
		info.Swings = append(info.Swings, opt)
	}
	return info
}
