package clipboard

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"
)

func TestUnavailableError(t *testing.T) {
	err := NewUnavailableError()

	if err.OS != runtime.GOOS {
		t.Errorf("Expected OS to be %s, got %s", runtime.GOOS, err.OS)
	}
	if err.Error() == "" {
		t.Error("Error message should not be empty")
	}

	wrapped := fmt.Errorf("copy: %w", err)
	if !IsUnavailable(wrapped) {
		t.Error("IsUnavailable should see through wrapping")
	}
	if IsUnavailable(errors.New("other")) {
		t.Error("IsUnavailable should reject unrelated errors")
	}
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	if instructions == "" {
		t.Error("Install instructions should not be empty")
	}
	if runtime.GOOS == "linux" && !strings.Contains(instructions, "xclip") {
		t.Error("Linux instructions should mention xclip")
	}
}

func TestMemory(t *testing.T) {
	var c Clipboard = &Memory{}
	if err := c.Write("hello"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := c.Read()
	if err != nil || got != "hello" {
		t.Errorf("Read = %q, %v", got, err)
	}

	failing := &Memory{Err: errors.New("boom")}
	if err := failing.Write("x"); err == nil {
		t.Error("expected error")
	}
}
