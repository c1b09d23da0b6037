package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdl2_parser/internal/config"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	require.NoError(t, Configure(logger, config.LogConfig{Level: "warn", Format: "json"}, &buf))

	logger.Info("dropped")
	logger.WithField("pkt_type", "Data").Warn("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "Data", entry["pkt_type"])
}

func TestConfigureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vdl2.log")
	var buf bytes.Buffer
	logger := logrus.New()
	cfg := config.LogConfig{Level: "debug", Format: "text", File: config.FileConfig{Path: path}}
	require.NoError(t, Configure(logger, cfg, &buf))

	logger.Debug("to both")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestConfigureErrors(t *testing.T) {
	logger := logrus.New()
	assert.Error(t, Configure(logger, config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{}))
	assert.Error(t, Configure(logger, config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{}))
}
