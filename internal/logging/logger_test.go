package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newWithOutput("debug", &buf)
	Component(l, "orders").WithField("order_id", 11).Info("created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "orders", line["component"])
	assert.Equal(t, "created", line["msg"])
	assert.EqualValues(t, 11, line["order_id"])
}

func TestNew_UnknownLevelFallsBack(t *testing.T) {
	l := newWithOutput("loud", &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
