package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelsByEnv(t *testing.T) {
	var buf bytes.Buffer
	New("prod", &buf).Debug("hidden")
	assert.Empty(t, buf.String())

	New("dev", &buf).Debug("shown", "booking_id", 5)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "parkaro", rec["app"])
	assert.EqualValues(t, 5, rec["booking_id"])
}
