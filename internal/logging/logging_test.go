package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("info", FormatText, &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	l.WithField("user_id", 4).Info("user added")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg="user added"`)
	assert.Contains(t, out, "user_id=4")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", FormatJSON, &buf)
	require.NoError(t, err)

	Component(l, "store").Debug("statement")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "store", rec["component"])
	assert.Equal(t, "statement", rec["msg"])
	assert.Equal(t, "debug", rec["level"])
}

func TestNew_Defaults(t *testing.T) {
	l, err := New("", "", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("chatty", FormatText, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New("info", "xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	e := Discard()
	assert.NotPanics(t, func() { e.Error("dropped") })
}
