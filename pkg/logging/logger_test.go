package logging

import (
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tc := range cases {
		logger := New(tc.level)
		if logger == nil {
			t.Fatalf("New(%q) returned nil", tc.level)
		}
		ctx := t.Context()
		if !logger.Enabled(ctx, tc.want) {
			t.Errorf("New(%q): expected level %v to be enabled", tc.level, tc.want)
		}
		if tc.want != slog.LevelDebug && logger.Enabled(ctx, tc.want-1) {
			t.Errorf("New(%q): expected level below %v to be disabled", tc.level, tc.want)
		}
	}
}

func TestWithReturnsChild(t *testing.T) {
	logger := Default()
	child := logger.With("workspace_id", "ws_1")
	if child == nil || child.Logger == nil {
		t.Fatal("With returned nil logger")
	}
}
