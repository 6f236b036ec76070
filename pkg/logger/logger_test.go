package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level Level) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	log, err := NewLoggerWithWriter(&Config{
		Level:            level,
		Format:           JSONFormat,
		Output:           StdoutOutput,
		DisableTimestamp: true,
	}, buf)
	require.NoError(t, err)
	return log, buf
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Level = "verbose"
	assert.Error(t, bad.Validate())

	file := DefaultConfig()
	file.Output = FileOutput
	assert.Error(t, file.Validate(), "file output needs a path")
}

func TestFieldsAccumulate(t *testing.T) {
	log, buf := newBufferLogger(t, InfoLevel)

	log.WithComponent("matcher").
		WithField("statement", "CARDX_2508").
		WithError(errors.New("boom")).
		Info("diff computed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "matcher", entry["component"])
	assert.Equal(t, "CARDX_2508", entry["statement"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "diff computed", entry["msg"])
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newBufferLogger(t, WarnLevel)

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warnf("shown %d", 1)
	assert.Contains(t, buf.String(), "shown 1")
}

func TestTimedOperation(t *testing.T) {
	log, buf := newBufferLogger(t, InfoLevel)

	err := TimedOperation("apply", log, func() error { return nil })
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"status":"success"`)

	buf.Reset()
	failure := errors.New("store down")
	err = TimedOperation("apply", log, func() error { return failure })
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, buf.String(), `"status":"error"`)
}

func TestCallerAndTimestampOptions(t *testing.T) {
	tests := []struct {
		name          string
		config        Config
		wantCaller    bool
		wantTimestamp bool
	}{
		{
			name:          "defaults",
			config:        Config{Level: InfoLevel, Format: JSONFormat, Output: StdoutOutput},
			wantTimestamp: true,
		},
		{
			name:       "caller without timestamp",
			config:     Config{Level: InfoLevel, Format: JSONFormat, Output: StdoutOutput, DisableTimestamp: true, Caller: true},
			wantCaller: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log, err := NewLoggerWithWriter(&tt.config, buf)
			require.NoError(t, err)

			log.Info("reconciled")

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

			_, hasTime := entry["time"]
			assert.Equal(t, tt.wantTimestamp, hasTime)

			caller, hasCaller := entry["caller"]
			assert.Equal(t, tt.wantCaller, hasCaller)
			if tt.wantCaller {
				assert.Contains(t, caller, "logger_test.go:")
			}
		})
	}
}
