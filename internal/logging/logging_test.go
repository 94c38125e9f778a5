package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_ConsoleLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, closeFn, err := New(Config{Level: "warn", Console: &buf})
	require.NoError(t, err)
	defer closeFn()

	log.Info("hidden")
	log.Warn("starting", zap.String("source", "raw_fhv_trips"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "starting")
	assert.Contains(t, out, `"source": "raw_fhv_trips"`)
}

func TestNew_TeesToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fhvclean.log")
	var buf bytes.Buffer
	log, closeFn, err := New(Config{File: path, MaxSizeMB: 1, Console: &buf})
	require.NoError(t, err)

	log.Info("written", Elapsed(1500*time.Microsecond))
	closeFn()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "written"), "file = %q", b)
	assert.Contains(t, buf.String(), "elapsed")
}

func TestNew_BadLevel(t *testing.T) {
	t.Parallel()

	_, _, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}
