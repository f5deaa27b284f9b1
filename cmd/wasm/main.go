//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign/beatgrid"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorInvalidOptions
	ErrorTimeline
	ErrorAlignment
	ErrorEncoding
)

// alignRequest is the options object passed from the editor: the timeline
// fields plus the usual quantize parameters.
type alignRequest struct {
	beatgrid.Spec
	quantize.Params
	AudioOffset float64 `json:"audioOffset"`
}

// Aligns annotations to a beat grid entirely in the browser.
// Arguments: annotationsJSON string, optionsJSON string
// Returns: {error: number, data: string} where data is the JSON alignment report
func alignAnnotations(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 arguments: annotationsJSON, optionsJSON")
	}
	if args[0].Type() != js.TypeString || args[1].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "annotationsJSON and optionsJSON must be strings")
	}

	var events []quantize.Event
	if err := json.Unmarshal([]byte(args[0].String()), &events); err != nil {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid annotations: %v", err))
	}

	var req alignRequest
	if err := json.Unmarshal([]byte(args[1].String()), &req); err != nil {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid options: %v", err))
	}

	opts, err := quantize.DefaultOptions().Apply(req.Params)
	if err != nil {
		return makeErrorResponse(ErrorInvalidOptions, err.Error())
	}
	opts.MeasureOrigin += req.AudioOffset

	tl, err := req.Spec.Timeline()
	if err != nil {
		return makeErrorResponse(ErrorTimeline, fmt.Sprintf("Failed to build beat grid: %v", err))
	}

	report, err := quantize.Align(events, tl, opts)
	if err != nil {
		return makeErrorResponse(ErrorAlignment, fmt.Sprintf("Alignment failed: %v", err))
	}

	return makeDataResponse(map[string]any{
		"status":           "success",
		"alignment_result": report,
		"original_count":   len(events),
		"aligned_count":    len(report.Events),
	})
}

// Returns the quantize modes and swing presets the editor offers.
func quantizationOptions(this js.Value, args []js.Value) interface{} {
	return makeDataResponse(quantize.Catalogue())
}

// Builds the beat grid for a timeline spec.
// Arguments: specJSON string ({bpm, duration, beats?, origin?, beats_per_measure?})
func beatGrid(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 1 argument: specJSON")
	}

	var req struct {
		beatgrid.Spec
		Origin          float64 `json:"origin"`
		BeatsPerMeasure int     `json:"beats_per_measure"`
	}
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid grid options: %v", err))
	}
	if req.BeatsPerMeasure <= 0 {
		req.BeatsPerMeasure = beatgrid.DefaultBeatsPerMeasure
	}

	tl, err := req.Spec.Timeline()
	if err != nil {
		return makeErrorResponse(ErrorTimeline, err.Error())
	}
	tl = tl.Shift(req.Origin)

	return makeDataResponse(map[string]any{
		"origin":       req.Origin,
		"timeline":     tl,
		"measures":     beatgrid.Measures(tl, req.BeatsPerMeasure),
		"downbeats":    beatgrid.Downbeats(tl, req.BeatsPerMeasure),
		"subdivisions": beatgrid.Subdivisions(tl),
	})
}

func makeDataResponse(v any) js.Value {
	data, err := json.Marshal(v)
	if err != nil {
		return makeErrorResponse(ErrorEncoding, fmt.Sprintf("Failed to encode result: %v", err))
	}
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", string(data))
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	if !console.IsUndefined() {
		console.Call("log", "🔧 BeatAlign WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("alignAnnotations", js.FuncOf(alignAnnotations))
	js.Global().Set("quantizationOptions", js.FuncOf(quantizationOptions))
	js.Global().Set("beatGrid", js.FuncOf(beatGrid))

	if !console.IsUndefined() {
		console.Call("log", "📝 alignAnnotations, quantizationOptions and beatGrid registered")
	}

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		if !console.IsUndefined() {
			console.Call("log", "📤 Dispatching wasmReady event...")
		}
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
		if !console.IsUndefined() {
			console.Call("log", "✅ wasmReady event dispatched")
		}
	} else {
		if !console.IsUndefined() {
			console.Call("error", "❌ window object is undefined!")
		}
	}

	if !console.IsUndefined() {
		console.Call("log", "✅ BeatAlign WASM module loaded and ready")
	}

	<-done
}
