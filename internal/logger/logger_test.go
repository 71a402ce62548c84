package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLevels(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		want        logrus.Level
	}{
		{"production default", "", false, logrus.InfoLevel},
		{"development default", "", true, logrus.DebugLevel},
		{"explicit level", "warn", false, logrus.WarnLevel},
		{"case insensitive", "ERROR", true, logrus.ErrorLevel},
		{"invalid falls back to info", "chatty", false, logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := initTo(&buf, tt.level, tt.development)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestProductionLogsJSON(t *testing.T) {
	var buf bytes.Buffer
	initTo(&buf, "info", false)

	WithComponent("engine").WithField("award_type", "top_scorer").Info("pass complete")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "top_scorer", entry["award_type"])
	assert.Equal(t, "pass complete", entry["msg"])
}

func TestDevelopmentLogsText(t *testing.T) {
	var buf bytes.Buffer
	initTo(&buf, "debug", true)

	Get().Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
