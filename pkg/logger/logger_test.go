package logger

import (
	"strings"
	"testing"
)

func TestLogger_BasicLevels(t *testing.T) {
	l := New("debug")
	if l == nil {
		t.Fatalf("logger nil")
	}
	l.Debug("dbg", "k", 1)
	l.Info("info")
	l.Warn("warn")
	l.Error("err")
}

func TestLogger_SetLevel(t *testing.T) {
	l := New("info")
	ls, ok := l.(LevelSetter)
	if !ok {
		t.Fatalf("zap logger should support runtime level changes")
	}
	ls.SetLevel("error")
	if got := l.(*zapLogger).level.Level().String(); got != "error" {
		t.Fatalf("level=%s; want error", got)
	}
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("dropped", "k", "v")
	l.Error("dropped")
}

func TestMockLogger_CapturesFields(t *testing.T) {
	var buf strings.Builder
	l := NewMockLogger(&buf)
	l.Warn("upstream slow", "service", "venue")
	out := buf.String()
	if !strings.Contains(out, `"message":"upstream slow"`) || !strings.Contains(out, `"service":"venue"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}
