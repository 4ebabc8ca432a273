package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		wantLevel zerolog.Level
	}{
		{"default warn level", 0, zerolog.WarnLevel},
		{"info level", 1, zerolog.InfoLevel},
		{"debug level", 2, zerolog.DebugLevel},
		{"trace level", 3, zerolog.TraceLevel},
		{"high verbosity defaults to trace", 7, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			t.Setenv("XDG_STATE_HOME", tempDir)

			SetupLogger(tt.verbosity)

			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("SetupLogger(%d) set level to %v, want %v",
					tt.verbosity, zerolog.GlobalLevel(), tt.wantLevel)
			}

			logPath := filepath.Join(tempDir, "prompt-manager", "prompt-manager.log")
			if _, err := os.Stat(logPath); os.IsNotExist(err) {
				t.Errorf("Log file was not created at %s", logPath)
			}
		})
	}
}

func TestLogFilePathHonoursStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/custom/state")
	if got := LogFilePath(); got != "/custom/state/prompt-manager/prompt-manager.log" {
		t.Errorf("LogFilePath() = %q", got)
	}
}

func TestLogOperationStartLogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(zerolog.WarnLevel)
	logger := zerolog.New(&buf)

	done := LogOperationStart(logger, "export")
	if !strings.Contains(buf.String(), "Operation started") {
		t.Fatalf("start not logged: %s", buf.String())
	}

	done()
	out := buf.String()
	if !strings.Contains(out, "Operation completed") || !strings.Contains(out, `"operation":"export"`) {
		t.Fatalf("completion not logged: %s", out)
	}
	if !strings.Contains(out, `"duration"`) {
		t.Fatalf("duration missing: %s", out)
	}
}
