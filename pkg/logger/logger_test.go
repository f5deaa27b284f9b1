package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{Level: level, Output: &buf})
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger(WARN)

	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warnf("shown %d", 3)
	l.Errorf("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 3")
	assert.Contains(t, out, "[ERROR] shown 4")
}

func TestNamedSharesSink(t *testing.T) {
	root, buf := newTestLogger(INFO)
	storage := root.Named("Storage")

	storage.Infof("opened %s", "db.sqlite3")
	root.SetLevel(ERROR)
	storage.Warnf("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Equal(t, "[INFO] [Storage] opened db.sqlite3", lines[0])
	assert.Equal(t, ERROR, storage.Level())
}

func TestMessageWithoutArgsIsVerbatim(t *testing.T) {
	l, buf := newTestLogger(DEBUG)

	l.Info("100% aligned")

	assert.Equal(t, "[INFO] 100% aligned\n", buf.String())
}

func TestFatalExits(t *testing.T) {
	l, buf := newTestLogger(INFO)
	code := -1
	l.sink.exit = func(c int) { code = c }

	l.Fatalf("boom")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "[FATAL] boom")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{"debug": DEBUG, "INFO": INFO, "warning": WARN, " error ": ERROR, "fatal": FATAL}
	for in, want := range cases {
		got, ok := ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	got, ok := ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, INFO, got)
}
