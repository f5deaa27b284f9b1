//go:build !js && !wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/beatgrid"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/logger"
)

func setupTestServer(t *testing.T, origins ...string) http.Handler {
	t.Helper()

	cfg := logger.DefaultConfig()
	cfg.Output = io.Discard
	quiet := logger.New(cfg)

	svc, err := beatalign.NewService(
		beatalign.WithDBPath(filepath.Join(t.TempDir(), "test_server.sqlite3")),
		beatalign.WithLogger(quiet),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	server := NewServer(svc, &ServerConfig{Port: 0, AllowedOrigins: origins})
	server.log = quiet
	return server.setupRoutes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			r = strings.NewReader(s)
		} else {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const annotationsJSON = `[
	{"id": "1", "time": 0.05, "type": "don", "duration": 0.1},
	{"id": "2", "time": 0.48, "type": "ka"},
	{"id": "3", "time": 1.02, "type": "don"},
	{"id": "4", "time": 1.73, "type": "ka"},
	{"id": "5", "time": 2.8, "type": "don"}
]`

func createSong(t *testing.T, h http.Handler) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/projects", map[string]any{"name": "song", "bpm": 120, "duration": 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/projects/song/annotations", `{"annotations": `+annotationsJSON+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	h := setupTestServer(t)

	rec := do(t, h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestUnknownRoute(t *testing.T) {
	h := setupTestServer(t)

	rec := do(t, h, http.MethodGet, "/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])
}

func TestQuantizationOptions(t *testing.T) {
	h := setupTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/quantization_options", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	modes := body["quantization_modes"].([]any)
	require.Len(t, modes, 9)
	assert.Equal(t, "1/4", modes[0].(map[string]any)["value"])
	swings := body["swing_amounts"].([]any)
	require.Len(t, swings, 4)
	assert.Nil(t, swings[3].(map[string]any)["ratio"])

	rec = do(t, h, http.MethodPost, "/api/quantization_options", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProjectLifecycle(t *testing.T) {
	h := setupTestServer(t)
	createSong(t, h)

	rec := do(t, h, http.MethodPost, "/api/projects", map[string]any{"name": "song", "bpm": 100, "duration": 5})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 1.0, body["count"])
	project := body["projects"].([]any)[0].(map[string]any)
	assert.Equal(t, "song", project["name"])
	assert.Equal(t, "song", project["title"])

	rec = do(t, h, http.MethodPatch, "/api/projects/song", map[string]any{"display_name": "Song Title"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Song Title", decode(t, rec)["title"])

	rec = do(t, h, http.MethodGet, "/api/projects/song", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 120.0, decode(t, rec)["bpm"])

	rec = do(t, h, http.MethodDelete, "/api/projects/song", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/projects/song", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProjectValidation(t *testing.T) {
	h := setupTestServer(t)

	cases := map[string]string{
		"malformed":   `{"name": `,
		"no name":     `{"bpm": 120, "duration": 10}`,
		"zero bpm":    `{"name": "a", "duration": 10}`,
		"slash":       `{"name": "a/b", "bpm": 120, "duration": 10}`,
		"negative":    `{"name": "a", "bpm": 120, "duration": -1}`,
		"wide meter":  `{"name": "a", "bpm": 120, "duration": 10, "beats_per_measure": 64}`,
		"wrong types": `{"name": "a", "bpm": "fast"}`,
		"huge length": `{"name": "a", "bpm": 120, "duration": 1e300}`,
		"long track":  `{"name": "a", "bpm": 120, "duration": 90000}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/projects", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	createSong(t, h)
	rec := do(t, h, http.MethodPatch, "/api/projects/song", `{"duration": 1e300}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestAnnotationsRoundTrip(t *testing.T) {
	h := setupTestServer(t)
	createSong(t, h)

	rec := do(t, h, http.MethodGet, "/api/projects/song/annotations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, 5.0, body["count"])
	first := body["annotations"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"id": "1", "time": 0.05, "type": "don", "duration": 0.1}, first)

	rec = do(t, h, http.MethodPut, "/api/projects/song/annotations", `{"annotations": [], "backupOriginal": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["backup_created"])

	rec = do(t, h, http.MethodGet, "/api/projects/missing/annotations", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAutoAlign(t *testing.T) {
	h := setupTestServer(t)
	createSong(t, h)

	rec := do(t, h, http.MethodPost, "/api/auto_align", `{
		"projectName": "song",
		"quantizeMode": "1/4",
		"tolerance": 0.3,
		"preserveOffBeat": true,
		"annotations": []
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 5.0, body["original_count"])
	assert.Equal(t, 5.0, body["aligned_count"])
	assert.Equal(t, false, body["saved"])

	result := body["alignment_result"].(map[string]any)
	stats := result["alignment_stats"].(map[string]any)
	assert.Equal(t, 3.0, stats["aligned_count"])
	assert.Equal(t, "1/4", result["quantization_info"].(map[string]any)["mode"])

	first := result["aligned_annotations"].([]any)[0].(map[string]any)
	assert.Equal(t, 0.0, first["time"])
	assert.Equal(t, "1", first["id"])
	info := first["alignment_info"].(map[string]any)
	assert.Equal(t, 0.05, info["original_time"])
	assert.Equal(t, "quarter", info["grid_position"])

	rec = do(t, h, http.MethodGet, "/api/projects/song/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["count"])
}

func TestAutoAlignErrors(t *testing.T) {
	h := setupTestServer(t)
	createSong(t, h)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"missing project name", `{"quantizeMode": "1/4"}`, http.StatusBadRequest},
		{"unknown project", `{"projectName": "nope"}`, http.StatusNotFound},
		{"unknown mode", `{"projectName": "song", "quantizeMode": "1/32"}`, http.StatusBadRequest},
		{"bad swing", `{"projectName": "song", "quantizeMode": "1/8+swing", "swingAmount": "custom", "customSwing": 0.2}`, http.StatusBadRequest},
		{"negative tolerance", `{"projectName": "song", "tolerance": -0.5}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/auto_align", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, h, http.MethodGet, "/api/auto_align", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSaveAlignedAnnotations(t *testing.T) {
	h := setupTestServer(t)
	createSong(t, h)

	rec := do(t, h, http.MethodPost, "/api/auto_align", `{"projectName": "song", "quantizeMode": "1/4", "tolerance": 0.3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	aligned := decode(t, rec)["alignment_result"].(map[string]any)["aligned_annotations"]

	rec = do(t, h, http.MethodPost, "/api/projects/song/aligned_annotations", map[string]any{"alignedAnnotations": aligned})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Saved 5 aligned annotations", body["message"])
	assert.Equal(t, true, body["backup_created"])

	rec = do(t, h, http.MethodGet, "/api/projects/song/annotations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode(t, rec)["annotations"].([]any)[0].(map[string]any)
	assert.Equal(t, 0.0, first["time"])
	assert.Contains(t, first, "alignment_info")
}

// failingAligner answers AutoAlign with a fixed result and error.
type failingAligner struct {
	beatalign.Service
	res *beatalign.AlignResult
	err error
}

func (f failingAligner) AutoAlign(context.Context, string, beatalign.AlignRequest) (*beatalign.AlignResult, error) {
	return f.res, f.err
}

func TestAutoAlignFailureReturnsOriginals(t *testing.T) {
	cfg := logger.DefaultConfig()
	cfg.Output = io.Discard

	events := []quantize.Event{{Time: 0.05, Kind: quantize.KindDon, Attrs: map[string]any{"id": "1"}}}
	report, err := quantize.Align(events, beatgrid.Timeline{BPM: 120, BeatInterval: 0.5, Duration: 10}, quantize.DefaultOptions())
	require.ErrorIs(t, err, quantize.ErrMalformedTimeline)

	server := NewServer(failingAligner{
		res: &beatalign.AlignResult{Report: report, OriginalCount: 1, AlignedCount: 1},
		err: err,
	}, &ServerConfig{AllowedOrigins: []string{"*"}})
	server.log = logger.New(cfg)

	rec := do(t, server.setupRoutes(), http.MethodPost, "/api/auto_align", `{"projectName": "song"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	result, ok := body["alignment_result"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	assert.Equal(t, []any{map[string]any{"id": "1", "time": 0.05, "type": "don"}}, result["aligned_annotations"])
	assert.NotEmpty(t, result["alignment_stats"].(map[string]any)["error"])

	server.service = failingAligner{err: beatalign.ErrProjectNotFound}
	rec = do(t, server.setupRoutes(), http.MethodPost, "/api/auto_align", `{"projectName": "song"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, decode(t, rec), "alignment_result")
}

func TestBeatGrid(t *testing.T) {
	h := setupTestServer(t)
	createSong(t, h)

	rec := do(t, h, http.MethodGet, "/api/beat_grid?project=song", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	grid := decode(t, rec)["beat_grid"].(map[string]any)
	assert.Equal(t, "song", grid["project"])
	assert.Len(t, grid["downbeats"], 6)

	rec = do(t, h, http.MethodGet, "/api/beat_grid?bpm=60&duration=3&origin=0.5&beats_per_measure=3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	grid = decode(t, rec)["beat_grid"].(map[string]any)
	assert.Equal(t, []any{0.5, 3.5}, grid["downbeats"])
	assert.Equal(t, []any{0.5, 1.5, 2.5, 3.5}, grid["timeline"].(map[string]any)["beats"])

	for _, q := range []string{"", "?bpm=x&duration=1", "?bpm=120", "?bpm=-1&duration=1", "?bpm=120&duration=1&beats_per_measure=0", "?bpm=120&duration=1e300", "?bpm=120&duration=1e10"} {
		rec = do(t, h, http.MethodGet, "/api/beat_grid"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec = do(t, h, http.MethodGet, "/api/beat_grid?project=nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunsLimit(t *testing.T) {
	h := setupTestServer(t)
	createSong(t, h)

	for range 3 {
		rec := do(t, h, http.MethodPost, "/api/auto_align", `{"projectName": "song"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/projects/song/runs?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decode(t, rec)["count"])

	rec = do(t, h, http.MethodGet, "/api/projects/song/runs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjectRouting(t *testing.T) {
	h := setupTestServer(t)
	createSong(t, h)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/projects/", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/projects/song/images", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPost, "/api/projects/song", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodDelete, "/api/projects/song/runs", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupTestServer(t)
	createSong(t, h)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/auto_align", `{"projectName": "song"}`).Code)

	rec := do(t, h, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "beatalign_alignments_total")
	assert.Contains(t, rec.Body.String(), "beatalign_events_total")
}

func TestCORS(t *testing.T) {
	h := setupTestServer(t, "http://localhost:3000")

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
