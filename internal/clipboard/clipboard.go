// Package clipboard places resolved text on the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	atotto "github.com/atotto/clipboard"
)

// Clipboard is the collaborator used by the service for copy and paste.
type Clipboard interface {
	Write(text string) error
	Read() (string, error)
}

// UnavailableError is returned when no clipboard mechanism works
type UnavailableError struct {
	OS      string
	Message string
}

func (e *UnavailableError) Error() string {
	return e.Message
}

// NewUnavailableError creates an UnavailableError with installation hints
func NewUnavailableError() *UnavailableError {
	return &UnavailableError{
		OS:      runtime.GOOS,
		Message: "no clipboard utility found. " + InstallInstructions(),
	}
}

// System uses the platform clipboard.
type System struct{}

// Write copies text to the clipboard. atotto/clipboard is tried first;
// on Linux the individual utilities are then tried directly since
// atotto gives up when its preferred one fails.
func (System) Write(text string) error {
	err := atotto.WriteAll(text)
	if err == nil {
		return nil
	}
	if runtime.GOOS != "linux" {
		if atotto.Unsupported {
			return NewUnavailableError()
		}
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return copyLinux(text)
}

// Read returns the clipboard contents.
func (System) Read() (string, error) {
	if atotto.Unsupported {
		return "", NewUnavailableError()
	}
	text, err := atotto.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return text, nil
}

var linuxCommands = [][]string{
	{"wl-copy"},
	{"xclip", "-selection", "clipboard"},
	{"xsel", "--clipboard", "--input"},
}

func copyLinux(text string) error {
	var lastErr error
	for _, args := range linuxCommands {
		if !isCommandAvailable(args[0]) {
			continue
		}
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err != nil {
			lastErr = fmt.Errorf("%s failed: %w", args[0], err)
			continue
		}
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("clipboard utilities available but failed: %w", lastErr)
	}
	return NewUnavailableError()
}

func isCommandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// IsUnavailable reports whether err means there is no clipboard at all
func IsUnavailable(err error) bool {
	var unavailable *UnavailableError
	return errors.As(err, &unavailable)
}

// Memory is an in-process clipboard for tests and headless use.
type Memory struct {
	Text string
	Err  error
}

// Write implements Clipboard.
func (m *Memory) Write(text string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Text = text
	return nil
}

// Read implements Clipboard.
func (m *Memory) Read() (string, error) {
	return m.Text, m.Err
}

// InstallInstructions returns installation hints for clipboard utilities
func InstallInstructions() string {
	switch runtime.GOOS {
	case "linux":
		return "Install a clipboard utility:\n" +
			"  • Ubuntu/Debian: sudo apt install xclip\n" +
			"  • Fedora/RHEL: sudo dnf install xclip\n" +
			"  • Arch: sudo pacman -S xclip\n" +
			"  • For Wayland: install wl-clipboard"
	case "darwin":
		return "pbcopy should be available by default on macOS"
	case "windows":
		return "clip should be available by default on Windows"
	default:
		return fmt.Sprintf("Clipboard not supported on %s", runtime.GOOS)
	}
}
