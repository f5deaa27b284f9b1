package quantize

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Kind is the note type of an annotation.
type Kind string

const (
	KindDon Kind = "don"
	KindKa  Kind = "ka"
)

// Known reports whether k is one of the note types the game defines.
func (k Kind) Known() bool {
	return k == KindDon || k == KindKa
}

// Reserved JSON keys; every other key of an annotation object is carried in Attrs.
const (
	keyTime          = "time"
	keyType          = "type"
	keyAlignmentInfo = "alignment_info"
)

// Event is a user or pipeline placed annotation. Attrs holds every other field
// of the record (id, duration, ...) and is never interpreted.
type Event struct {
	Time  float64
	Kind  Kind
	Attrs map[string]any
}

// AlignmentInfo describes how an output event relates to its input.
type AlignmentInfo struct {
	OriginalTime     float64 `json:"original_time"`
	Adjustment       float64 `json:"adjustment"`
	GridPosition     string  `json:"grid_position"`
	QuantizeMode     string  `json:"quantize_mode"`
	Confidence       float64 `json:"confidence"`
	Reason           Reason  `json:"reason,omitempty"`
	ConflictResolved bool    `json:"conflict_resolved,omitempty"`
}

// AlignedEvent is an output event. Info is nil only when the event is returned
// untouched after a failed call.
type AlignedEvent struct {
	Time  float64
	Kind  Kind
	Attrs map[string]any
	Info  *AlignmentInfo
}

// Event converts the aligned event back into an input event. The alignment info,
// if any, becomes the "alignment_info" attribute so it survives persistence.
func (a AlignedEvent) Event() Event {
	attrs := maps.Clone(a.Attrs)
	if a.Info != nil {
		if attrs == nil {
			attrs = make(map[string]any)
		}
		attrs[keyAlignmentInfo] = *a.Info
	}
	return Event{Time: a.Time, Kind: a.Kind, Attrs: attrs}
}

func (e Event) MarshalJSON() ([]byte, error) {
	return marshalFlat(e.Time, e.Kind, e.Attrs, nil)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	t, k, attrs, err := unmarshalFlat(data)
	if err != nil {
		return err
	}
	*e = Event{Time: t, Kind: k, Attrs: attrs}
	return nil
}

func (a AlignedEvent) MarshalJSON() ([]byte, error) {
	return marshalFlat(a.Time, a.Kind, a.Attrs, a.Info)
}

func (a *AlignedEvent) UnmarshalJSON(data []byte) error {
	t, k, attrs, err := unmarshalFlat(data)
	if err != nil {
		return err
	}
	out := AlignedEvent{Time: t, Kind: k, Attrs: attrs}
	if raw, ok := attrs[keyAlignmentInfo]; ok {
		b, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("re-encoding alignment_info: %w", err)
		}
		var info AlignmentInfo
		if err := json.Unmarshal(b, &info); err != nil {
			return fmt.Errorf("decoding alignment_info: %w", err)
		}
		out.Info = &info
		delete(out.Attrs, keyAlignmentInfo)
	}
	*a = out
	return nil
}

func marshalFlat(t float64, k Kind, attrs map[string]any, info *AlignmentInfo) ([]byte, error) {
	obj := make(map[string]any, len(attrs)+3)
	for key, v := range attrs {
		obj[key] = v
	}
	obj[keyTime] = t
	obj[keyType] = k
	if info != nil {
		obj[keyAlignmentInfo] = info
	}
	return json.Marshal(obj)
}

func unmarshalFlat(data []byte) (float64, Kind, map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, "", nil, fmt.Errorf("decoding annotation: %w", err)
	}

	var t float64
	rawTime, ok := raw[keyTime]
	if !ok {
		return 0, "", nil, fmt.Errorf("annotation is missing %q", keyTime)
	}
	if err := json.Unmarshal(rawTime, &t); err != nil {
		return 0, "", nil, fmt.Errorf("decoding annotation time: %w", err)
	}

	var k Kind
	if rawType, ok := raw[keyType]; ok {
		if err := json.Unmarshal(rawType, &k); err != nil {
			return 0, "", nil, fmt.Errorf("decoding annotation type: %w", err)
		}
	}

	var attrs map[string]any
	for key, v := range raw {
		if key == keyTime || key == keyType {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return 0, "", nil, fmt.Errorf("decoding annotation field %q: %w", key, err)
		}
		if attrs == nil {
			attrs = make(map[string]any, len(raw))
		}
		attrs[key] = val
	}
	return t, k, attrs, nil
}
