package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warn", WARN},
		{"warning", WARN},
		{" ERROR ", ERROR},
		{"", INFO},
		{"verbose", INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, JSON, ParseFormat("json"))
	assert.Equal(t, JSON, ParseFormat("JSON"))
	assert.Equal(t, Text, ParseFormat("text"))
	assert.Equal(t, Text, ParseFormat(""))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LogConfig{Level: WARN, Format: JSON, Output: &buf})

	l.Debug("hidden")
	l.Info("hidden too")
	assert.Empty(t, buf.String())

	l.Warn("shown", map[string]interface{}{"k": "v"})
	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "shown", entry.Message)
	assert.Equal(t, map[string]interface{}{"k": "v"}, entry.Data)
}

func TestProgressAlwaysShown(t *testing.T) {
	var buf bytes.Buffer
	l := New(LogConfig{Level: ERROR, Format: JSON, Output: &buf})

	l.Progress("working", nil)
	assert.Contains(t, buf.String(), `"level":"PROGRESS"`)
}

func TestErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	l := New(LogConfig{Level: DEBUG, Format: JSON, Output: &buf})

	l.Error("query failed", errors.New("exit status 1"))

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "query failed: exit status 1", entry.Message)
}

func TestTextFormat(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := New(LogConfig{Level: DEBUG, Format: Text, Output: &buf})

	l.FetchComplete("LIVE", 3, 1)
	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "INFO : Cost data loaded")
	assert.Contains(t, line, "records:3")
	assert.Contains(t, line, "skipped:1")
}

func TestDomainHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := New(LogConfig{Level: DEBUG, Format: JSON, Output: &buf})

	l.FetchStart("this-month", "")
	l.DemoFallback(errors.New("az not found"))
	l.AnalysisError("ollama", errors.New("connection refused"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var start logEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &start))
	assert.Equal(t, map[string]interface{}{"range": "this-month"}, start.Data)

	var fallback logEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &fallback))
	assert.Equal(t, "WARN", fallback.Level)
	assert.Equal(t, map[string]interface{}{"reason": "az not found"}, fallback.Data)

	var analysis logEntry
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &analysis))
	assert.Equal(t, "ERROR", analysis.Level)
	assert.Equal(t, "AI analysis failed: connection refused", analysis.Message)
}
