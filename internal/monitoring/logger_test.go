package monitoring

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestNewFunc(t *testing.T) {
	var got string
	l := NewFunc(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})

	l.Logf("processing %s", "scene-a")

	if got != "processing scene-a" {
		t.Errorf("custom logger got %q", got)
	}
	if !l.Enabled() {
		t.Error("custom logger should be enabled")
	}
}

func TestNewFunc_Nil(t *testing.T) {
	l := NewFunc(nil)
	if l.Enabled() {
		t.Error("nil function should give a disabled logger")
	}
	// Must not panic.
	l.Logf("test message")
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	if l.Enabled() {
		t.Error("nil logger should be disabled")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf on nil logger panicked: %v", r)
		}
	}()
	l.Logf("test message: %s", "value")
}

func TestForVerbosity(t *testing.T) {
	var buf bytes.Buffer

	ForVerbosity(&buf, false).Logf("hidden")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}

	ForVerbosity(&buf, true).Logf("shown %d", 1)
	if !strings.Contains(buf.String(), "shown 1") {
		t.Errorf("verbose logger output = %q", buf.String())
	}
}
