package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTagsService(t *testing.T) {
	e := New("debug", "dayof-bot")
	assert.Equal(t, logrus.DebugLevel, e.Logger.GetLevel())

	var buf bytes.Buffer
	e.Logger.SetOutput(&buf)
	e.WithField("event", "hotline").Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dayof-bot", line["service"])
	assert.Equal(t, "hotline", line["event"])
	assert.Equal(t, "hello", line["msg"])
}

func TestNewBadLevel(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, New("loud", "x").Logger.GetLevel())
}
