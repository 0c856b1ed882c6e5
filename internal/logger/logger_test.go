package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel(" WARNING "))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, logrus.TraceLevel, ParseLevel("trace"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("bogus"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
}

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug", &buf)

	l.WithField("component", "detector").Debug("candidate rejected")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "candidate rejected", entry["msg"])
	assert.Equal(t, "detector", entry["component"])
	assert.Equal(t, "debug", entry["level"])
}

func TestSetupAndComponent(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevLevel := Logger.Out, Logger.GetLevel()
	t.Cleanup(func() {
		Logger.SetOutput(prevOut)
		Logger.SetLevel(prevLevel)
	})

	Setup("warn", &buf)
	Component("server").Info("hidden")
	assert.Zero(t, buf.Len())

	Component("server").Warn("shown")
	assert.Contains(t, buf.String(), `"component":"server"`)
}

func TestDiscard(t *testing.T) {
	e := Discard()
	e.Error("nothing happens")
	assert.NotNil(t, e.Logger)
}
