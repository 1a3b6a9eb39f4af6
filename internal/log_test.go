package internal

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel(" Warning "))
	assert.Equal(t, LogLevelTrace, ParseLogLevel("TRACE"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("loud"))
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "UNKNOWN", LogLevel(9).String())
}

func TestLogger_Filtering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(LogLevelWarn, log.New(&buf, "", 0))

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.Error("shown %d", 3)
	assert.Equal(t, "[WARN] shown 2\n[ERROR] shown 3\n", buf.String())

	buf.Reset()
	l.SetLevel(LogLevelDebug)
	l.Debug("now %s", "visible")
	l.Trace("still hidden")
	assert.Equal(t, "[DEBUG] now visible\n", buf.String())
	assert.Equal(t, LogLevelDebug, l.Level())
}

func TestNewLoggerTo_NilDiscards(t *testing.T) {
	l := NewLoggerTo(LogLevelTrace, nil)
	assert.NotPanics(t, func() { l.Error("nothing") })
}
