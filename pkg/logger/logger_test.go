package logger

import (
	"testing"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"DEBUG":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"Warn":    zapcore.WarnLevel,
		"ERROR":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHlogLevelFollowsZap(t *testing.T) {
	if hlogLevel(zapcore.DebugLevel) != hlog.LevelDebug {
		t.Fatal("debug not mapped")
	}
	if hlogLevel(zapcore.WarnLevel) != hlog.LevelWarn {
		t.Fatal("warn not mapped")
	}
	if hlogLevel(zapcore.FatalLevel) != hlog.LevelError {
		t.Fatal("levels above error should collapse to error")
	}
}

func TestNamedBeforeInitIsSafe(t *testing.T) {
	Named("test").Info("no-op logger accepts writes")
}
